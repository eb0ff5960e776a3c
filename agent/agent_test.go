package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

func noSleep(context.Context, time.Duration) error { return nil }

func echoSet(t *testing.T) *tools.Set {
	t.Helper()
	s, err := tools.NewSet("Echo", []tools.Spec{{
		Name:        "echo",
		Description: "Echo the text back",
		Parameters:  tools.Object(map[string]*tools.Schema{"text": tools.String("Text to echo")}, "text"),
		Handler: func(_ context.Context, args tools.Args) (*tools.Result, error) {
			return tools.Text("echo: %s", args.String("text")), nil
		},
	}})
	require.NoError(t, err)
	return s
}

// fakeResolver serves a fixed table of sets and listeners.
type fakeResolver struct {
	sets      map[string]*tools.Set
	listeners map[string]session.Listener
}

func newFakeResolver(t *testing.T) *fakeResolver {
	self, err := tools.NewSelf(nil, tools.WithSleep(noSleep))
	require.NoError(t, err)
	system, err := tools.NewSystem(nil)
	require.NoError(t, err)
	return &fakeResolver{
		sets:      map[string]*tools.Set{"Self": self, "System": system, "Echo": echoSet(t)},
		listeners: map[string]session.Listener{},
	}
}

func (r *fakeResolver) ToolSets(_ context.Context, names []string) ([]*tools.Set, error) {
	var out []*tools.Set
	for _, n := range names {
		s, ok := r.sets[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", errors.ErrUnknownTool, n)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeResolver) Listeners(_ context.Context, names []string) ([]session.Listener, error) {
	var out []session.Listener
	for _, n := range names {
		l, ok := r.listeners[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", errors.ErrUnknownListener, n)
		}
		out = append(out, l)
	}
	return out, nil
}

// scriptedListener pushes its messages one per Ready, then exits.
type scriptedListener struct {
	name    string
	script  []string
	ready   chan struct{}
	readies int
	mu      sync.Mutex
}

func newScriptedListener(name string, script ...string) *scriptedListener {
	return &scriptedListener{name: name, script: script, ready: make(chan struct{}, 1)}
}

func (l *scriptedListener) Name() string { return l.name }

func (l *scriptedListener) Ready() {
	l.mu.Lock()
	l.readies++
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *scriptedListener) Listen(ctx context.Context, inbox *session.Inbox) error {
	for _, text := range l.script {
		select {
		case <-l.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
		inbox.Push(session.UserMessage(text))
	}
	return nil
}

func callCompletion(calls ...session.ToolCall) *session.Completion {
	return &session.Completion{Choices: []session.Choice{{ToolCalls: calls}}}
}

func textCompletion(content string) *session.Completion {
	return &session.Completion{Choices: []session.Choice{{Content: content}}}
}

func TestWaitScenario(t *testing.T) {
	ctx := context.Background()
	a := New(newFakeResolver(t)).WithTools("Self").WithMessage("hi")

	step, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Continue, step)

	call := session.NewToolCall("c1", "wait", `{"seconds":1}`)
	require.NoError(t, a.Apply(ctx, callCompletion(call)))

	assert.Equal(t, []session.Message{
		session.UserMessage("hi"),
		session.AssistantMessage("", call),
		session.ToolMessage("c1", "Waiting for 1 seconds"),
	}, a.Messages())
	assert.True(t, session.Actionable(a.Messages()))

	step, err = a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Continue, step)
}

func TestApplyRunsCallsInOrder(t *testing.T) {
	transcript := session.NewTranscript([]session.Message{session.UserMessage("go")})
	var calls []session.ToolCall
	for i := 0; i < 5; i++ {
		calls = append(calls, session.NewToolCall(fmt.Sprintf("c%d", i), "echo", fmt.Sprintf(`{"text":"%d"}`, i)))
	}

	require.NoError(t, Apply(context.Background(), transcript, callCompletion(calls...), []*tools.Set{echoSet(t)}, nil))

	msgs := transcript.Messages()
	require.Len(t, msgs, 7)
	for i, m := range msgs[2:] {
		assert.Equal(t, session.RoleTool, m.Role)
		assert.Equal(t, fmt.Sprintf("c%d", i), m.ToolCallID)
		assert.Equal(t, fmt.Sprintf("echo: %d", i), m.Content)
	}
}

func TestApplySkipsUnknownTools(t *testing.T) {
	transcript := session.NewTranscript([]session.Message{session.UserMessage("go")})
	call := session.NewToolCall("c1", "launch_rockets", "{}")

	require.NoError(t, Apply(context.Background(), transcript, callCompletion(call), []*tools.Set{echoSet(t)}, nil))

	msgs := transcript.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.AssistantMessage("", call), msgs[1])
}

func TestApplyPropagatesToolFailures(t *testing.T) {
	transcript := session.NewTranscript([]session.Message{session.UserMessage("go")})
	bad := session.NewToolCall("c1", "echo", `{"text":42}`)

	err := Apply(context.Background(), transcript, callCompletion(bad), []*tools.Set{echoSet(t)}, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidArguments)
}

func TestApplyHandlesSystemUpdates(t *testing.T) {
	system, err := tools.NewSystem(nil)
	require.NoError(t, err)
	transcript := session.NewTranscript([]session.Message{session.UserMessage("go")})
	transcript.SetSystem("Be brief.")

	set := session.NewToolCall("c1", "set_system_message", `{"message":"Speak French."}`)
	require.NoError(t, Apply(context.Background(), transcript, callCompletion(set), []*tools.Set{system}, nil))
	msgs := transcript.Messages()
	assert.Equal(t, session.SystemMessage("Speak French."), msgs[0])
	assert.Equal(t, "System message set to Speak French.", msgs[len(msgs)-1].Content)

	get := session.NewToolCall("c2", "get_system_message", `{}`)
	clear := session.NewToolCall("c3", "clear_system_message", `{}`)
	require.NoError(t, Apply(context.Background(), transcript, callCompletion(get, clear), []*tools.Set{system}, nil))
	msgs = transcript.Messages()
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, "System message is Speak French.", msgs[len(msgs)-2].Content)
	_, ok := transcript.System()
	assert.False(t, ok)
}

func TestContentOnlyCompletionStops(t *testing.T) {
	ctx := context.Background()
	a := New(nil).WithMessage("hi")

	step, err := a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, Continue, step)

	require.NoError(t, a.Apply(ctx, textCompletion("Hello!")))
	last := a.Messages()[len(a.Messages())-1]
	assert.Equal(t, session.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)

	step, err = a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stop, step)
}

func TestSystemInstalledOnFirstEvaluation(t *testing.T) {
	a := New(nil, WithSystem("Be brief.")).WithMessage("hi")
	_, err := a.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []session.Message{session.SystemMessage("Be brief."), session.UserMessage("hi")}, a.Messages())
}

func TestEmptyTranscriptStops(t *testing.T) {
	step, err := New(nil).WithMessages(nil).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stop, step)
}

func TestResolutionErrors(t *testing.T) {
	_, err := New(newFakeResolver(t)).WithTools("Nope").WithMessage("hi").Next(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnknownTool)

	_, err = New(newFakeResolver(t)).WithListeners("Nope").Next(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnknownListener)

	_, err = New(nil).WithTools("Self").Next(context.Background())
	assert.ErrorIs(t, err, errors.ErrConfig)
}

func TestExitedListenersStopWithoutBlocking(t *testing.T) {
	c := NewController(session.NewTranscript(nil), []session.Listener{
		newScriptedListener("a"), newScriptedListener("b"),
	}, nil)
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	running, err := c.Running(ctx)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRunningWaitsForListenerBetweenTurns(t *testing.T) {
	l := newScriptedListener("chat", "first", "second")
	transcript := session.NewTranscript(nil)
	c := NewController(transcript, []session.Listener{l}, nil)
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	running, err := c.Running(ctx)
	require.NoError(t, err)
	require.True(t, running)
	assert.Equal(t, []session.Message{session.UserMessage("first")}, transcript.Messages())

	require.NoError(t, c.Run(ctx, textCompletion("One."), nil))
	running, err = c.Running(ctx)
	require.NoError(t, err)
	require.True(t, running)
	assert.Equal(t, []session.Message{session.UserMessage("second")}, transcript.Messages())

	require.NoError(t, c.Run(ctx, textCompletion("Two."), nil))
	running, err = c.Running(ctx)
	require.NoError(t, err)
	assert.False(t, running)
	assert.Empty(t, transcript.Messages())
}

func TestRunningHonoursContext(t *testing.T) {
	l := newScriptedListener("idle", "never")
	c := NewController(session.NewTranscript(nil), []session.Listener{l}, nil)
	defer c.Stop()

	// Keep the listener from ever getting the ready signal.
	l.ready = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Running(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunDrivesUntilFinished(t *testing.T) {
	a := New(newFakeResolver(t), WithSystem("Be brief.")).WithTools("Self", "Echo").WithMessage("hi")
	defer a.Close()

	turns := 0
	complete := func(_ context.Context, msgs []session.Message, available []tools.Tool) (*session.Completion, error) {
		turns++
		assert.Len(t, available, 2)
		assert.Equal(t, session.RoleSystem, msgs[0].Role)
		if turns == 1 {
			return callCompletion(session.NewToolCall("c1", "echo", `{"text":"x"}`)), nil
		}
		return textCompletion("Done."), nil
	}

	require.NoError(t, a.Run(context.Background(), complete))
	assert.Equal(t, 2, turns)
	msgs := a.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "Done.", msgs[4].Content)
}

func TestRunStopsOnCompletionError(t *testing.T) {
	boom := errors.New("provider down")
	a := New(nil).WithMessage("hi")
	err := a.Run(context.Background(), func(context.Context, []session.Message, []tools.Tool) (*session.Completion, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunStopsOnEmptyCompletion(t *testing.T) {
	a := New(nil).WithMessage("hi")
	calls := 0
	err := a.Run(context.Background(), func(context.Context, []session.Message, []tools.Tool) (*session.Completion, error) {
		calls++
		return &session.Completion{Choices: []session.Choice{{}}}, nil
	})
	assert.ErrorIs(t, err, errors.ErrEmptyCompletion)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []session.Message{session.UserMessage("hi")}, a.Messages())
}

func TestApplyRejectsCompletionWithoutChoices(t *testing.T) {
	a := New(nil).WithMessage("hi")
	_, err := a.Next(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, a.Apply(context.Background(), &session.Completion{}), errors.ErrEmptyCompletion)

	// Empty choices next to a real one are skipped without error.
	require.NoError(t, a.Apply(context.Background(), &session.Completion{Choices: []session.Choice{{}, {Content: "Hello!"}}}))
	assert.Len(t, a.Messages(), 2)
}

func TestVerbosePrintsAppendedMessages(t *testing.T) {
	var printed []session.Message
	a := New(nil, WithVerbose(true), WithPrinter(session.PrinterFunc(func(m session.Message) {
		printed = append(printed, m)
	}))).WithMessage("hi")

	_, err := a.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Apply(context.Background(), textCompletion("Hello!")))
	assert.Equal(t, []session.Message{session.UserMessage("hi"), session.AssistantMessage("Hello!")}, printed)
}
