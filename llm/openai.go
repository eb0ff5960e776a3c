package llm

import (
	"context"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/azure"
	"github.com/openai/openai-go/v2/option"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

const defaultAzureAPIVersion = "2024-10-21"

// OpenAI talks to the Chat Completions API of OpenAI, Azure OpenAI or any
// compatible server.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI needs OPENAI_API_KEY unless opts.APIKey is set. With opts.Azure
// the endpoint comes from opts.BaseURL or AZURE_OPENAI_ENDPOINT, and a
// missing key falls back to the default Azure credential chain.
func NewOpenAI(ctx context.Context, opts Options) (*OpenAI, error) {
	var reqOpts []option.RequestOption
	if opts.Azure {
		endpoint := opts.BaseURL
		if endpoint == "" {
			endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		if endpoint == "" {
			return nil, errors.Wrapf(errors.ErrMissingCredential, "no endpoint provided and AZURE_OPENAI_ENDPOINT not found in environment")
		}
		version := opts.APIVersion
		if version == "" {
			version = defaultAzureAPIVersion
		}
		reqOpts = append(reqOpts, azure.WithEndpoint(endpoint, version))

		if key, err := tools.Credential(opts.APIKey, "AZURE_OPENAI_API_KEY"); err == nil {
			reqOpts = append(reqOpts, azure.WithAPIKey(key))
		} else {
			cred, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to create Azure credential")
			}
			reqOpts = append(reqOpts, azure.WithTokenCredential(cred))
		}
	} else {
		key, err := tools.Credential(opts.APIKey, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		reqOpts = append(reqOpts, option.WithAPIKey(key))
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
		}
	}

	c := openai.NewClient(reqOpts...)
	return &OpenAI{client: &c, model: opts.Model}, nil
}

func (o *OpenAI) Complete(ctx context.Context, messages []session.Message, available []tools.Tool) (*session.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(available),
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to OpenAI")
	}
	return fromOpenAI(resp), nil
}

func toOpenAIMessages(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case session.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case session.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: "assistant", Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out = append(out, msg.ToParam())
		case session.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(ts))
	for _, t := range ts {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  openai.FunctionParameters(t.Parameters().Map()),
		}))
	}
	return out
}

func fromOpenAI(resp *openai.ChatCompletion) *session.Completion {
	completion := &session.Completion{}
	for _, c := range resp.Choices {
		choice := session.Choice{Index: int(c.Index), Content: c.Message.Content}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls,
				session.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
		}
		completion.Choices = append(completion.Choices, choice)
	}
	return completion
}
