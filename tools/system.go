package tools

import (
	"context"
)

// NewSystem returns tools that let the model read and change its own system
// message. Changes are returned as SystemUpdate effects.
func NewSystem(only []string) (*Set, error) {
	return NewSet("System", []Spec{
		{
			Name: "get_system_message",
			Description: "Read your system message (system prompt). The system message provides your instructions " +
				"that define how you should interact with users.",
			Parameters: Object(nil),
			Handler:    getSystemMessage,
		},
		{
			Name: "set_system_message",
			Description: "Set your system message (system prompt). The system message provides your instructions " +
				"that define how you should interact with users. Always use instruction format. e.g. \"You are a helpful assistant.\"",
			Parameters: Object(map[string]*Schema{
				"message": String("The message to set as the system message in the form of instructions. e.g. \"You are a helpful assistant.\""),
			}, "message"),
			Handler: setSystemMessage,
		},
		{
			Name: "clear_system_message",
			Description: "Clear your system message (system prompt). The system message provides your instructions " +
				"that define how you should interact with users.",
			Parameters: Object(nil),
			Handler:    clearSystemMessage,
		},
	}, Only(only...))
}

func getSystemMessage(ctx context.Context, _ Args) (*Result, error) {
	content, ok := SystemMessageFrom(ctx)
	if !ok {
		return Text("No system message available"), nil
	}
	return Text("System message is %s", content), nil
}

func setSystemMessage(_ context.Context, args Args) (*Result, error) {
	message := args.String("message")
	return &Result{
		Content: "System message set to " + message,
		System:  &SystemUpdate{Content: message},
	}, nil
}

func clearSystemMessage(context.Context, Args) (*Result, error) {
	return &Result{
		Content: "System message cleared",
		System:  &SystemUpdate{Clear: true},
	}, nil
}
