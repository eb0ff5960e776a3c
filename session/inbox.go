package session

import (
	"context"
	"errors"
	"sync"
)

// ErrInboxClosed is returned by Inbox.Wait once every producer has exited
// and no message is left to drain.
var ErrInboxClosed = errors.New("inbox closed: all listeners exited")

// Listener is a background message source. Listen runs until ctx is done or
// the source is exhausted and pushes user messages into inbox. Ready tells the
// listener the agent finished its turn and accepts new input.
type Listener interface {
	Name() string
	Listen(ctx context.Context, inbox *Inbox) error
	Ready()
}

// Inbox is the queue between listeners and the agent loop. Producers Push,
// the consumer Waits for a message and Drains the queue.
//
// Every state change closes the current signal channel under the lock and
// installs a fresh one, so a consumer that found the queue empty always sees
// the push that follows.
type Inbox struct {
	mu     sync.Mutex
	queue  []Message
	active int
	signal chan struct{}
}

func NewInbox() *Inbox {
	return &Inbox{signal: make(chan struct{})}
}

// Open registers a producer. Call it before the producer starts.
func (b *Inbox) Open() {
	b.mu.Lock()
	b.active++
	b.mu.Unlock()
}

// Close marks one producer as exited.
func (b *Inbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active > 0 {
		b.active--
	}
	b.notifyLocked()
}

// Push enqueues m and wakes the consumer.
func (b *Inbox) Push(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, m)
	b.notifyLocked()
}

// Wait blocks until at least one message is queued. It returns
// ErrInboxClosed when the queue is empty and no producer is left, or the
// context error when ctx is done first.
func (b *Inbox) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			b.mu.Unlock()
			return nil
		}
		if b.active == 0 {
			b.mu.Unlock()
			return ErrInboxClosed
		}
		signal := b.signal
		b.mu.Unlock()

		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Drain removes and returns every queued message in arrival order.
func (b *Inbox) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out
}

// Active returns the number of producers still running.
func (b *Inbox) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *Inbox) notifyLocked() {
	close(b.signal)
	b.signal = make(chan struct{})
}
