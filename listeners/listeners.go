package listeners

import (
	"fmt"
)

// readiness carries the agent's "turn finished" signal to a listener. Extra
// signals collapse into one.
type readiness struct {
	ch chan struct{}
}

func newReadiness() readiness {
	return readiness{ch: make(chan struct{}, 1)}
}

func (r readiness) Ready() {
	select {
	case r.ch <- struct{}{}:
	default:
	}
}

// received wraps text arriving from a remote caller so the model knows it is
// expected to respond.
func received(text string) string {
	return fmt.Sprintf("Respond to the message you received. The message says: %s", text)
}
