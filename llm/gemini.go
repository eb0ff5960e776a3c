package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

// Gemini talks to the Google Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini needs GEMINI_API_KEY unless opts.APIKey is set.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	key, err := tools.Credential(opts.APIKey, "GEMINI_API_KEY")
	if err != nil {
		return nil, err
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(key)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &Gemini{client: client, model: opts.Model}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Complete(ctx context.Context, messages []session.Message, available []tools.Tool) (*session.Completion, error) {
	history, system := toGeminiContents(messages)
	if len(history) == 0 {
		return nil, errors.New("no messages to send to Gemini")
	}

	model := g.client.GenerativeModel(g.model)
	model.Tools = toGeminiTools(available)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	last := history[len(history)-1]
	chat := model.StartChat()
	chat.History = history[:len(history)-1]
	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Gemini")
	}
	return fromGemini(resp)
}

// toGeminiContents converts the transcript. Tool results are sent as
// function responses, which Gemini matches to calls by function name.
func toGeminiContents(messages []session.Message) ([]*genai.Content, string) {
	names := callNames(messages)
	var out []*genai.Content
	var system []string
	lastWasTool := false

	for _, m := range messages {
		switch m.Role {
		case session.RoleSystem:
			system = append(system, m.Content)
			continue
		case session.RoleAssistant:
			c := &genai.Content{Role: "model"}
			if m.Content != "" {
				c.Parts = append(c.Parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args, err := decodeArguments(tc.Function.Arguments)
				if err != nil {
					args = map[string]interface{}{}
				}
				c.Parts = append(c.Parts, genai.FunctionCall{Name: tc.Function.Name, Args: args})
			}
			if len(c.Parts) > 0 {
				out = append(out, c)
			}
		case session.RoleTool:
			part := genai.FunctionResponse{
				Name:     names[m.ToolCallID],
				Response: map[string]interface{}{"content": m.Content},
			}
			if lastWasTool {
				out[len(out)-1].Parts = append(out[len(out)-1].Parts, part)
			} else {
				out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{part}})
			}
			lastWasTool = true
			continue
		default:
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
		lastWasTool = false
	}
	return out, strings.Join(system, "\n\n")
}

func toGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(ts))
	for _, t := range ts {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  toGeminiSchema(t.Parameters()),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

var geminiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

func toGeminiSchema(s *tools.Schema) *genai.Schema {
	if s == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	out := &genai.Schema{
		Type:        geminiTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
	}
	if out.Type == genai.TypeUnspecified {
		out.Type = genai.TypeString
	}
	for _, v := range s.Enum {
		if str, ok := v.(string); ok {
			out.Enum = append(out.Enum, str)
		}
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGeminiSchema(p)
		}
	}
	if s.Items != nil {
		out.Items = toGeminiSchema(s.Items)
	}
	return out
}

func fromGemini(resp *genai.GenerateContentResponse) (*session.Completion, error) {
	if len(resp.Candidates) == 0 {
		return nil, errors.New("received an empty response from Gemini")
	}
	completion := &session.Completion{}
	for i, cand := range resp.Candidates {
		choice := session.Choice{Index: i}
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					choice.Content += string(v)
				case genai.FunctionCall:
					// Gemini does not assign call ids.
					id := "call_" + uuid.NewString()
					choice.ToolCalls = append(choice.ToolCalls, session.NewToolCall(id, v.Name, encodeArguments(v.Args)))
				}
			}
		}
		completion.Choices = append(completion.Choices, choice)
	}
	return completion, nil
}
