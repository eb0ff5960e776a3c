package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

const defaultMaxTokens = 4096

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic needs ANTHROPIC_API_KEY unless opts.APIKey is set.
func NewAnthropic(ctx context.Context, opts Options) (*Anthropic, error) {
	key, err := tools.Credential(opts.APIKey, "ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(key)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(reqOpts...)
	return &Anthropic{client: &client, model: opts.Model}, nil
}

func (a *Anthropic) Complete(ctx context.Context, messages []session.Message, available []tools.Tool) (*session.Completion, error) {
	msgs, system := toAnthropicMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: defaultMaxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, t := range toAnthropicTools(available) {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &t})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Anthropic")
	}
	return fromAnthropic(resp), nil
}

// toAnthropicMessages converts the transcript. System messages become the
// system prompt, and consecutive tool results share one user turn.
func toAnthropicMessages(messages []session.Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var system []string
	lastWasTool := false

	for _, m := range messages {
		switch m.Role {
		case session.RoleSystem:
			system = append(system, m.Content)
			continue
		case session.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: input,
				}})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks})
			}
		case session.RoleTool:
			block := anthropic.ContentBlockParamUnion{OfToolResult: &anthropic.ToolResultBlockParam{
				ToolUseID: m.ToolCallID,
				Content: []anthropic.ToolResultBlockParamContentUnion{{
					OfText: &anthropic.TextBlockParam{Text: m.Content},
				}},
			}}
			if lastWasTool {
				out[len(out)-1].Content = append(out[len(out)-1].Content, block)
			} else {
				out = append(out, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleUser,
					Content: []anthropic.ContentBlockParamUnion{block},
				})
			}
			lastWasTool = true
			continue
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
		lastWasTool = false
	}
	return out, strings.Join(system, "\n\n")
}

func toAnthropicTools(ts []tools.Tool) []anthropic.ToolParam {
	out := make([]anthropic.ToolParam, 0, len(ts))
	for _, t := range ts {
		schema := t.Parameters().Map()
		var required []string
		if p := t.Parameters(); p != nil {
			required = p.Required
		}
		out = append(out, anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   required,
			},
		})
	}
	return out
}

func fromAnthropic(resp *anthropic.Message) *session.Completion {
	var choice session.Choice
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			choice.Content += b.Text
		case anthropic.ToolUseBlock:
			choice.ToolCalls = append(choice.ToolCalls, session.NewToolCall(b.ID, b.Name, string(b.Input)))
		}
	}
	return &session.Completion{Choices: []session.Choice{choice}}
}
