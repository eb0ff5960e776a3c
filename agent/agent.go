package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/interfaces-to/interfaces-to/agent/terminal"
	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

// Resolver turns names into tool sets and message sources.
// registry.Registry is the standard implementation.
type Resolver interface {
	ToolSets(ctx context.Context, names []string) ([]*tools.Set, error)
	Listeners(ctx context.Context, names []string) ([]session.Listener, error)
}

// CompletionFunc asks a model for the next completion of messages.
type CompletionFunc func(ctx context.Context, messages []session.Message, available []tools.Tool) (*session.Completion, error)

// Step is the outcome of one evaluation of an Agent.
type Step int

const (
	Stop Step = iota
	Continue
)

func (s Step) String() string {
	if s == Continue {
		return "continue"
	}
	return "stop"
}

// Agent accumulates a tool set and a transcript so a driver can loop with
// Next and Apply alone:
//
//	for {
//	    step, err := a.Next(ctx)
//	    if err != nil || step == agent.Stop {
//	        break
//	    }
//	    completion, err := complete(ctx, a.Messages(), a.Tools())
//	    ...
//	    a.Apply(ctx, completion)
//	}
//
// Tool names and listener names are resolved once, on the first call to Next.
type Agent struct {
	resolver Resolver
	logger   *slog.Logger
	printer  session.Printer
	verbose  bool

	system    string
	hasSystem bool

	toolNames []string
	sets      []*tools.Set
	resolved  bool

	messages      []session.Message
	listenerNames []string

	transcript *session.Transcript
	controller *Controller
	firstRun   bool
}

type Option func(*Agent)

// WithSystem installs content as the system message on the first evaluation.
func WithSystem(content string) Option {
	return func(a *Agent) {
		a.system = content
		a.hasSystem = content != ""
	}
}

// WithVerbose prints every message appended to the transcript.
func WithVerbose(verbose bool) Option {
	return func(a *Agent) { a.verbose = verbose }
}

// WithPrinter replaces the terminal printer used in verbose mode.
func WithPrinter(p session.Printer) Option {
	return func(a *Agent) { a.printer = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// New creates an agent. resolver may be nil when neither tool names nor
// listener names are used.
func New(resolver Resolver, opts ...Option) *Agent {
	a := &Agent{resolver: resolver, logger: slog.Default(), firstRun: true}
	for _, opt := range opts {
		opt(a)
	}
	if a.verbose && a.printer == nil {
		a.printer = terminal.New(os.Stdout)
	}
	return a
}

// WithTools attaches tool set names, resolved on the first evaluation.
func (a *Agent) WithTools(names ...string) *Agent {
	a.toolNames = names
	return a
}

// WithMessage seeds the transcript with text as a single user message.
func (a *Agent) WithMessage(text string) *Agent {
	return a.WithMessages([]session.Message{session.UserMessage(text)})
}

// WithMessages seeds the transcript with messages, used verbatim.
func (a *Agent) WithMessages(messages []session.Message) *Agent {
	a.messages = messages
	a.listenerNames = nil
	return a
}

// WithListeners reads the transcript from the named message sources,
// resolved and started on the first evaluation.
func (a *Agent) WithListeners(names ...string) *Agent {
	a.listenerNames = names
	a.messages = nil
	return a
}

func (a *Agent) resolve(ctx context.Context) error {
	if a.resolved {
		return nil
	}
	if a.resolver == nil && (len(a.toolNames) > 0 || len(a.listenerNames) > 0) {
		return fmt.Errorf("%w: no resolver for tools %v and sources %v", errors.ErrConfig, a.toolNames, a.listenerNames)
	}

	var ls []session.Listener
	if len(a.listenerNames) > 0 {
		var err error
		if ls, err = a.resolver.Listeners(ctx, a.listenerNames); err != nil {
			return err
		}
	}
	if len(a.toolNames) > 0 {
		sets, err := a.resolver.ToolSets(ctx, a.toolNames)
		if err != nil {
			return err
		}
		a.sets = sets
	}

	var opts []session.TranscriptOption
	if a.verbose {
		opts = append(opts, session.WithVerbose(a.printer))
	}
	a.transcript = session.NewTranscript(nil, opts...)
	for _, m := range a.messages {
		a.transcript.Append(m)
	}
	a.controller = NewController(a.transcript, ls, a.logger)
	a.resolved = true
	return nil
}

// Next evaluates the agent. The first evaluation continues whenever the
// transcript has something to complete. Later evaluations continue while the
// transcript is actionable, blocking on the message sources between turns.
func (a *Agent) Next(ctx context.Context) (Step, error) {
	if err := a.resolve(ctx); err != nil {
		return Stop, err
	}
	if a.firstRun && a.hasSystem {
		a.transcript.SetSystem(a.system)
	}

	running, err := a.controller.Running(ctx)
	if err != nil {
		return Stop, err
	}
	if a.firstRun {
		a.firstRun = false
		if a.transcript.Len() > 0 {
			return Continue, nil
		}
	}
	if running {
		return Continue, nil
	}
	return Stop, nil
}

// Apply records completion and runs the tool calls it requests. It is the
// only place tools are executed. A completion with nothing to record fails
// with errors.ErrEmptyCompletion, since asking again would see the same
// transcript.
func (a *Agent) Apply(ctx context.Context, completion *session.Completion) error {
	if err := a.resolve(ctx); err != nil {
		return err
	}
	if err := a.controller.Run(ctx, completion, a.sets); err != nil {
		return err
	}
	if !hasOutput(completion) {
		return errors.Wrapf(errors.ErrEmptyCompletion, "no choice had content or tool calls")
	}
	return nil
}

func hasOutput(completion *session.Completion) bool {
	if completion == nil {
		return false
	}
	for _, choice := range completion.Choices {
		if choice.Content != "" || len(choice.ToolCalls) > 0 {
			return true
		}
	}
	return false
}

// Run drives the agent until it stops, asking complete for each completion.
func (a *Agent) Run(ctx context.Context, complete CompletionFunc) error {
	for {
		step, err := a.Next(ctx)
		if err != nil {
			return err
		}
		if step == Stop {
			return nil
		}
		completion, err := complete(ctx, a.Messages(), a.Tools())
		if err != nil {
			return errors.Wrapf(err, "completion failed")
		}
		if err := a.Apply(ctx, completion); err != nil {
			return err
		}
	}
}

// Tools lists the resolved tools in set order.
func (a *Agent) Tools() []tools.Tool {
	return tools.Flatten(a.sets...)
}

// Messages returns a copy of the transcript, or the seed messages before the
// first evaluation.
func (a *Agent) Messages() []session.Message {
	if a.transcript == nil {
		return append([]session.Message(nil), a.messages...)
	}
	return a.transcript.Messages()
}

// Close stops the message sources.
func (a *Agent) Close() {
	if a.controller != nil {
		a.controller.Stop()
	}
}
