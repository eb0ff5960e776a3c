package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/interfaces-to/interfaces-to/errors"
)

// Tool defines the interface for any function the model can call.
type Tool interface {
	Name() string
	Description() string
	Parameters() *Schema
	Execute(ctx context.Context, args Args) (*Result, error)
}

// validator is implemented by tools that check decoded arguments against
// their schema before running.
type validator interface {
	Validate(instance any) error
}

// Result is what a tool returns to the conversation.
type Result struct {
	// Content becomes the body of the tool message.
	Content string
	// System, when set, changes the conversation's system message once the
	// tool message has been recorded.
	System *SystemUpdate
}

// SystemUpdate replaces or clears the system message.
type SystemUpdate struct {
	Content string
	Clear   bool
}

// Text returns a Result with formatted content.
func Text(format string, a ...interface{}) *Result {
	if len(a) == 0 {
		return &Result{Content: format}
	}
	return &Result{Content: fmt.Sprintf(format, a...)}
}

// Invoke validates arguments (JSON text) against tool's schema, decodes them
// and runs the tool.
func Invoke(ctx context.Context, tool Tool, arguments string) (*Result, error) {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	if v, ok := tool.(validator); ok {
		instance, err := unmarshalInstance(arguments)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidArguments, tool.Name(), err)
		}
		if err := v.Validate(instance); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidArguments, tool.Name(), err)
		}
	}

	var args Args
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidArguments, tool.Name(), err)
	}
	if args == nil {
		args = Args{}
	}

	res, err := tool.Execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrToolExecution, tool.Name(), err)
	}
	if res == nil {
		res = &Result{}
	}
	return res, nil
}

// Args are the decoded keyword arguments of a tool call.
type Args map[string]interface{}

// String returns the string argument named key, or "" when it is absent.
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Int returns the integer argument named key.
func (a Args) Int(key string) (int, bool) {
	switch v := a[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

type systemKey struct{}

type systemValue struct {
	content string
	ok      bool
}

// WithSystemMessage records the conversation's current system message on ctx
// so tools can read it.
func WithSystemMessage(ctx context.Context, content string, ok bool) context.Context {
	return context.WithValue(ctx, systemKey{}, systemValue{content: content, ok: ok})
}

// SystemMessageFrom returns the system message recorded on ctx.
func SystemMessageFrom(ctx context.Context) (string, bool) {
	v, _ := ctx.Value(systemKey{}).(systemValue)
	return v.content, v.ok
}

// Credential resolves a credential: the explicit value first, then the
// environment variable env. It fails with errors.ErrMissingCredential naming
// env when neither is set.
func Credential(explicit, env string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: no token provided and %s not found in environment", errors.ErrMissingCredential, env)
}
