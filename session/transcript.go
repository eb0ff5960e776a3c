package session

import (
	"sync"
)

// Printer renders messages as they are appended to a verbose Transcript.
type Printer interface {
	Print(Message)
}

// PrinterFunc adapts a function to the Printer interface.
type PrinterFunc func(Message)

func (f PrinterFunc) Print(m Message) { f(m) }

// Transcript is the ordered message log driving the agent loop.
//
// Once the transcript holds any message, the system message (if one is set)
// is its first entry. A system message set while the transcript is empty is
// kept pending and inserted ahead of the next appended message.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
	system   *Message
	verbose  bool
	printer  Printer
}

// TranscriptOption configures a Transcript.
type TranscriptOption func(*Transcript)

// WithVerbose renders every appended message through p.
func WithVerbose(p Printer) TranscriptOption {
	return func(t *Transcript) {
		t.verbose = p != nil
		t.printer = p
	}
}

// NewTranscript creates a transcript seeded with messages. A leading system
// message in messages becomes the transcript's system message.
func NewTranscript(messages []Message, opts ...TranscriptOption) *Transcript {
	t := &Transcript{}
	for _, opt := range opts {
		opt(t)
	}
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		sys := messages[0]
		t.system = &sys
	}
	t.messages = append([]Message(nil), messages...)
	return t
}

// Append adds m to the tail of the transcript.
func (t *Transcript) Append(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.verbose {
		t.printer.Print(m)
	}
	if len(t.messages) == 0 {
		switch {
		case m.Role == RoleSystem:
			t.system = &m
		case t.system != nil:
			t.messages = append(t.messages, *t.system)
		}
	}
	t.messages = append(t.messages, m)
}

// ClearIfFinished empties the transcript when its last message is a finished
// assistant reply. It reports whether the transcript was cleared.
func (t *Transcript) ClearIfFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.messages) == 0 || !t.messages[len(t.messages)-1].Finished() {
		return false
	}
	t.messages = nil
	return true
}

// Clear drops every message. The system message stays pending.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()
}

// SetSystem installs content as the system message.
func (t *Transcript) SetSystem(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sys := SystemMessage(content)
	t.system = &sys
	switch {
	case len(t.messages) == 0:
	case t.messages[0].Role == RoleSystem:
		t.messages[0] = sys
	default:
		t.messages = append([]Message{sys}, t.messages...)
	}
}

// ClearSystem removes the system message.
func (t *Transcript) ClearSystem() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.system = nil
	if len(t.messages) > 0 && t.messages[0].Role == RoleSystem {
		t.messages = t.messages[1:]
	}
}

// System returns the current system message content.
func (t *Transcript) System() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.system == nil {
		return "", false
	}
	return t.system.Content, true
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

// Last returns the tail of the transcript.
func (t *Transcript) Last() (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Actionable reports whether the transcript warrants another completion.
func (t *Transcript) Actionable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Actionable(t.messages)
}
