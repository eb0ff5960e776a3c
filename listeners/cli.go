package listeners

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/interfaces-to/interfaces-to/session"
)

const defaultPrompt = "Enter the message to be processed: "

// CLI prompts on the terminal each time the agent finishes a turn. An empty
// line re-prompts, and "/exit" or end of input stops the listener.
type CLI struct {
	readiness
	in     io.Reader
	out    io.Writer
	prompt string
}

type CLIOption func(*CLI)

func WithIO(in io.Reader, out io.Writer) CLIOption {
	return func(c *CLI) {
		c.in = in
		c.out = out
	}
}

func WithPrompt(prompt string) CLIOption {
	return func(c *CLI) { c.prompt = prompt }
}

func NewCLI(opts ...CLIOption) *CLI {
	c := &CLI{readiness: newReadiness(), in: os.Stdin, out: os.Stdout, prompt: defaultPrompt}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CLI) Name() string { return "CLI" }

func (c *CLI) Listen(ctx context.Context, inbox *session.Inbox) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-c.ch:
		case <-ctx.Done():
			return nil
		}

		fmt.Fprint(c.out, c.prompt)
		var line string
		select {
		case line = <-lines:
		case err := <-readErr:
			fmt.Fprintln(c.out)
			return err
		case <-ctx.Done():
			return nil
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			c.Ready()
		case "/exit":
			return nil
		default:
			inbox.Push(session.UserMessage(line))
		}
	}
}
