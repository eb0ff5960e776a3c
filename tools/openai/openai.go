// Package openai gives the model a second model to delegate prompts to.
package openai

import (
	"context"
	"strconv"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/interfaces-to/interfaces-to/tools"
)

const (
	TokenEnv = "OPENAI_API_KEY"

	defaultModel  = "gpt-4o"
	defaultSystem = "You are a helpful assistant."
)

type options struct {
	token   string
	baseURL string
}

type Option func(*options)

func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

type completer struct {
	client *openai.Client
}

// New builds the OpenAI tool set. It fails when no API key is configured.
func New(only []string, opts ...Option) (*tools.Set, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	token, err := tools.Credential(o.token, TokenEnv)
	if err != nil {
		return nil, err
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(token)}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	client := openai.NewClient(reqOpts...)
	c := &completer{client: &client}

	return tools.NewSet("OpenAI", []tools.Spec{
		{
			Name:        "create_chat_completion",
			Description: "Create a completion using the OpenAI API",
			Parameters: tools.Object(map[string]*tools.Schema{
				"prompt":        tools.String("The prompt to use for completion"),
				"model":         tools.String("The model to use for completion. e.g. gpt-4o"),
				"system_prompt": tools.String("The optional system prompt to use to guide the model. e.g. You are a helpful assistant."),
				"max_tokens":    tools.Integer("The maximum number of tokens to generate"),
			}, "prompt"),
			Handler: c.complete,
		},
	}, tools.Only(only...))
}

func (c *completer) complete(ctx context.Context, args tools.Args) (*tools.Result, error) {
	prompt := args.String("prompt")
	model := args.String("model")
	if model == "" {
		model = defaultModel
	}
	system := args.String("system_prompt")
	if system == "" {
		system = defaultSystem
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
	limit := "none"
	if n, ok := args.Int("max_tokens"); ok && n > 0 {
		params.MaxTokens = openai.Int(int64(n))
		limit = strconv.Itoa(n)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return tools.Text("Created completion using model %s with prompt %s and max tokens %s. Response: %s",
		model, prompt, limit, content), nil
}
