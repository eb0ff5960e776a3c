// Package listeners provides the background message sources an agent can
// wait on: the terminal, Slack Socket Mode, a plain HTTP webhook, the same
// webhook behind an ngrok tunnel, and a WebSocket endpoint.
//
// Every source implements session.Listener. Listen blocks until the context
// is cancelled or the source is exhausted, pushing user messages into the
// agent's inbox as they arrive.
package listeners
