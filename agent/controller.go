package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

// Controller decides whether a transcript needs another completion and
// applies completions to it. With listeners attached it blocks between turns
// until one of them delivers a message.
type Controller struct {
	transcript *session.Transcript
	inbox      *session.Inbox
	listeners  []session.Listener
	logger     *slog.Logger

	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewController(t *session.Transcript, listeners []session.Listener, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		transcript: t,
		inbox:      session.NewInbox(),
		listeners:  listeners,
		logger:     logger,
	}
}

// Start launches one goroutine per listener. Listeners outlive ctx's
// deadline and stop on Stop. Calling Start again has no effect.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
		for _, l := range c.listeners {
			c.inbox.Open()
			c.wg.Add(1)
			go func(l session.Listener) {
				defer c.wg.Done()
				defer c.inbox.Close()
				if err := l.Listen(ctx, c.inbox); err != nil && !errors.Is(err, context.Canceled) {
					c.logger.ErrorContext(ctx, "message source stopped", "source", l.Name(), "error", err)
					return
				}
				c.logger.DebugContext(ctx, "message source exited", "source", l.Name())
			}(l)
		}
	})
}

// Stop cancels the listeners and waits for them to return.
func (c *Controller) Stop() {
	c.startOnce.Do(func() {})
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// Running reports whether the driver should request another completion.
//
// An actionable transcript runs immediately. Without listeners a
// non-actionable transcript stops. Otherwise a finished turn is cleared, the
// listeners are told the agent is ready, and Running blocks until messages
// arrive. It returns false for good once every listener has exited.
func (c *Controller) Running(ctx context.Context) (bool, error) {
	if c.transcript.Actionable() {
		return true, nil
	}
	if len(c.listeners) == 0 {
		return false, nil
	}
	c.Start(ctx)

	for {
		c.transcript.ClearIfFinished()
		for _, l := range c.listeners {
			l.Ready()
		}

		err := c.inbox.Wait(ctx)
		if errors.Is(err, session.ErrInboxClosed) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		for _, m := range c.inbox.Drain() {
			c.transcript.Append(m)
		}
		if c.transcript.Actionable() {
			return true, nil
		}
	}
}

// Run applies completion to the controller's transcript.
func (c *Controller) Run(ctx context.Context, completion *session.Completion, sets []*tools.Set) error {
	return Apply(ctx, c.transcript, completion, sets, c.logger)
}

// Apply records each choice of completion as an assistant message and runs
// the tool calls it carries, in order, appending one tool message per call.
//
// Calls naming a tool that is not in sets are logged and skipped. Tool
// failures abort the turn and are returned. A tool result carrying a system
// update is applied right after its tool message.
func Apply(ctx context.Context, t *session.Transcript, completion *session.Completion, sets []*tools.Set, logger *slog.Logger) error {
	if completion == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	index := tools.Index(sets...)

	for _, choice := range completion.Choices {
		if choice.Content == "" && len(choice.ToolCalls) == 0 {
			continue
		}
		t.Append(session.AssistantMessage(choice.Content, choice.ToolCalls...))

		for _, call := range choice.ToolCalls {
			tool, ok := index[call.Function.Name]
			if !ok {
				logger.WarnContext(ctx, "skipping call to unknown tool", "tool", call.Function.Name, "call_id", call.ID)
				continue
			}
			system, hasSystem := t.System()
			res, err := tools.Invoke(tools.WithSystemMessage(ctx, system, hasSystem), tool, call.Function.Arguments)
			if err != nil {
				return err
			}
			logger.DebugContext(ctx, "tool call finished", "tool", call.Function.Name, "call_id", call.ID)
			t.Append(session.ToolMessage(call.ID, res.Content))

			if res.System != nil {
				if res.System.Clear {
					t.ClearSystem()
				} else {
					t.SetSystem(res.System.Content)
				}
			}
		}
	}
	return nil
}
