package tools

import (
	"context"
	"time"
)

// SelfOption configures the Self tool set.
type SelfOption func(*self)

// WithSleep replaces the function used to wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SelfOption {
	return func(s *self) { s.sleep = sleep }
}

type self struct {
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSelf returns the tools the agent uses on itself.
func NewSelf(only []string, opts ...SelfOption) (*Set, error) {
	s := &self{sleep: sleepContext}
	for _, opt := range opts {
		opt(s)
	}
	return NewSet("Self", []Spec{
		{
			Name: "wait",
			Description: "Wait for a specified amount of time. Useful if you want to call another tool in the near future " +
				"and need to wait for a response. Avoid waiting more than 30 seconds at a time and instead try the tool " +
				"call before waiting again if necessary.",
			Parameters: Object(map[string]*Schema{
				"seconds": Integer("The number of seconds to wait"),
			}, "seconds"),
			Handler: s.wait,
		},
	}, Only(only...))
}

func (s *self) wait(ctx context.Context, args Args) (*Result, error) {
	seconds, _ := args.Int("seconds")
	if err := s.sleep(ctx, time.Duration(seconds)*time.Second); err != nil {
		return nil, err
	}
	return Text("Waiting for %d seconds", seconds), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
