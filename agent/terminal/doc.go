// Package terminal renders transcript messages for a human watching the
// agent work.
//
// Each message is printed as a colored role tag followed by its content:
// users in green, tools in blue and the assistant in yellow. User and
// assistant text is wrapped at 80 columns and continuation lines are indented
// so conversations stay readable in a plain terminal.
//
// # Usage
//
//	p := terminal.New(os.Stdout)
//	t := session.NewTranscript(nil, session.WithVerbose(p))
//	t.Append(session.UserMessage("hi"))
//
// An assistant message without content shows its tool calls instead, as
// name(arguments).
package terminal
