// Package session holds the conversation data model: role-tagged messages,
// the tool calls an assistant requests, the completions a model returns, and
// the Transcript and Inbox the agent loop reads and writes.
package session

import (
	"encoding/json"
)

// Role tags the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a transcript.
//
// ToolCalls is only set on assistant messages that invoke tools and
// ToolCallID only on tool messages, where it names the call that produced
// the result.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function to run and carries its arguments as JSON text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Completion is the provider-agnostic shape of a model response.
type Completion struct {
	Choices []Choice `json:"choices"`
}

// Choice is one candidate of a Completion.
type Choice struct {
	Index     int        `json:"index"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func ToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// NewToolCall builds a function tool call with already serialized arguments.
func NewToolCall(id, name, arguments string) ToolCall {
	return ToolCall{
		ID:       id,
		Type:     "function",
		Function: FunctionCall{Name: name, Arguments: arguments},
	}
}

// Finished reports whether m is a completed assistant reply: it has content
// and requests no tools.
func (m Message) Finished() bool {
	return m.Role == RoleAssistant && m.Content != "" && len(m.ToolCalls) == 0
}

// Actionable reports whether another completion should be requested for
// messages. It is true when the last entry comes from the user or a tool, or
// when it is an assistant message with pending tool calls.
func Actionable(messages []Message) bool {
	if len(messages) == 0 {
		return false
	}
	last := messages[len(messages)-1]
	switch last.Role {
	case RoleUser, RoleTool:
		return true
	case RoleAssistant:
		return len(last.ToolCalls) > 0
	default:
		return false
	}
}

// MarshalIndent renders messages the way they are shown with --all.
func MarshalIndent(messages []Message) (string, error) {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
