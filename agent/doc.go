// Package agent runs the tool-calling loop.
//
// A Controller owns one transcript and its message sources. Running decides
// whether the transcript needs a completion, waiting on the sources between
// turns, and Apply records a completion and executes the tool calls it asks
// for, strictly in order.
//
// Agent wraps a Controller for drivers that only want to produce
// completions:
//
//	a := agent.New(registry.New(cfg), agent.WithSystem("Be brief."), agent.WithVerbose(true)).
//		WithTools("Self", "Slack").
//		WithListeners("Slack")
//	defer a.Close()
//	err := a.Run(ctx, client.Complete)
//
// A transcript is actionable when its last message is from the user or a
// tool, or is an assistant message with tool calls. Without message sources
// the loop stops at the first non-actionable transcript. With sources, a
// finished turn is cleared and the loop waits for the next message until
// every source has exited.
package agent
