// Package llm adapts model provider SDKs to the provider-agnostic
// session.Completion shape the agent loop consumes.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

// Client produces the next completion of a conversation.
type Client interface {
	Complete(ctx context.Context, messages []session.Message, available []tools.Tool) (*session.Completion, error)
}

// Options select and configure a provider.
type Options struct {
	// Provider is one of openai, anthropic, bedrock, gemini or mock. Empty
	// means openai.
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Azure      bool
	APIVersion string
}

// defaultModels is used when Options.Model is empty.
var defaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-3-5-sonnet-latest",
	"bedrock":   "anthropic.claude-3-5-sonnet-20240620-v1:0",
	"gemini":    "gemini-1.5-pro",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	provider = strings.ToLower(provider)
	if provider == "" {
		provider = "openai"
	}
	return defaultModels[provider]
}

// New creates the client for opts.Provider.
func New(ctx context.Context, opts Options) (Client, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}
	switch strings.ToLower(opts.Provider) {
	case "", "openai":
		return NewOpenAI(ctx, opts)
	case "anthropic":
		return NewAnthropic(ctx, opts)
	case "bedrock":
		return NewBedrock(ctx, opts)
	case "gemini":
		return NewGemini(ctx, opts)
	case "mock":
		return &Mock{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", errors.ErrConfig, opts.Provider)
	}
}

// Mock parrots the last message back. It is useful to try tool sets and
// message sources without a model.
type Mock struct{}

func (m *Mock) Complete(_ context.Context, messages []session.Message, _ []tools.Tool) (*session.Completion, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &session.Completion{Choices: []session.Choice{{
		Content: fmt.Sprintf("I am a mock LLM. You said: '%s'.", last),
	}}}, nil
}

// decodeArguments parses tool call arguments for providers that take them as
// a JSON object rather than text.
func decodeArguments(arguments string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(arguments) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, errors.Wrapf(err, "invalid tool call arguments %q", arguments)
	}
	return args, nil
}

func encodeArguments(args map[string]interface{}) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// callNames maps tool call ids to function names, for providers that
// identify tool results by name.
func callNames(messages []session.Message) map[string]string {
	names := map[string]string{}
	for _, m := range messages {
		for _, tc := range m.ToolCalls {
			names[tc.ID] = tc.Function.Name
		}
	}
	return names
}
