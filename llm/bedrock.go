package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

// Bedrock runs Anthropic models on AWS Bedrock. Credentials and region come
// from the default AWS configuration chain.
type Bedrock struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrock loads the AWS configuration. opts.BaseURL overrides the
// runtime endpoint.
func NewBedrock(ctx context.Context, opts Options) (*Bedrock, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if opts.BaseURL != "" {
			o.BaseEndpoint = aws.String(opts.BaseURL)
		}
	})
	return &Bedrock{client: client, modelID: opts.Model}, nil
}

func (b *Bedrock) Complete(ctx context.Context, messages []session.Message, available []tools.Tool) (*session.Completion, error) {
	body, err := bedrockRequest(messages, available)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Anthropic request")
	}
	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}
	return fromBedrock(resp.Body)
}

// toBedrockMessages converts the transcript to the Anthropic-on-Bedrock
// message format.
func toBedrockMessages(messages []session.Message) ([]map[string]interface{}, string, error) {
	var out []map[string]interface{}
	var system []string
	lastWasTool := false

	for _, m := range messages {
		switch m.Role {
		case session.RoleSystem:
			system = append(system, m.Content)
			continue
		case session.RoleAssistant:
			var content []map[string]interface{}
			if m.Content != "" {
				content = append(content, map[string]interface{}{"type": "text", "text": m.Content})
			}
			for _, tc := range m.ToolCalls {
				input, err := decodeArguments(tc.Function.Arguments)
				if err != nil {
					return nil, "", err
				}
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Function.Name,
					"input": input,
				})
			}
			if len(content) > 0 {
				out = append(out, map[string]interface{}{"role": "assistant", "content": content})
			}
		case session.RoleTool:
			result := map[string]interface{}{
				"type":        "tool_result",
				"tool_use_id": m.ToolCallID,
				"content":     m.Content,
			}
			if lastWasTool {
				prev := out[len(out)-1]
				prev["content"] = append(prev["content"].([]map[string]interface{}), result)
			} else {
				out = append(out, map[string]interface{}{
					"role":    "user",
					"content": []map[string]interface{}{result},
				})
			}
			lastWasTool = true
			continue
		default:
			out = append(out, map[string]interface{}{
				"role":    "user",
				"content": []map[string]interface{}{{"type": "text", "text": m.Content}},
			})
		}
		lastWasTool = false
	}
	return out, strings.Join(system, "\n\n"), nil
}

func bedrockRequest(messages []session.Message, available []tools.Tool) ([]byte, error) {
	msgs, system, err := toBedrockMessages(messages)
	if err != nil {
		return nil, err
	}
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        defaultMaxTokens,
		"messages":          msgs,
	}
	if system != "" {
		request["system"] = system
	}
	if len(available) > 0 {
		var specs []map[string]interface{}
		for _, t := range available {
			specs = append(specs, map[string]interface{}{
				"name":         t.Name(),
				"description":  t.Description(),
				"input_schema": t.Parameters().Map(),
			})
		}
		request["tools"] = specs
	}
	return json.Marshal(request)
}

type bedrockResponse struct {
	Content []struct {
		Type  string                 `json:"type"`
		Text  string                 `json:"text"`
		ID    string                 `json:"id"`
		Name  string                 `json:"name"`
		Input map[string]interface{} `json:"input"`
	} `json:"content"`
	Error interface{} `json:"error"`
}

func fromBedrock(body []byte) (*session.Completion, error) {
	var resp bedrockResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}
	if resp.Error != nil {
		return nil, errors.New("Bedrock API error: %v", resp.Error)
	}

	var choice session.Choice
	for i, item := range resp.Content {
		switch item.Type {
		case "text":
			choice.Content += item.Text
		case "tool_use":
			id := item.ID
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, item.Name)
			}
			choice.ToolCalls = append(choice.ToolCalls, session.NewToolCall(id, item.Name, encodeArguments(item.Input)))
		}
	}
	return &session.Completion{Choices: []session.Choice{choice}}, nil
}
