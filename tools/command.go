package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
)

type command struct {
	allowed []string
}

// NewCommand returns the execute_command tool. Only commands matching one of
// the allowed regular expressions run.
func NewCommand(allowed []string, only []string) (*Set, error) {
	c := &command{allowed: allowed}
	return NewSet("Command", []Spec{
		{
			Name:        "execute_command",
			Description: c.description(),
			Parameters: Object(map[string]*Schema{
				"command": String("The command line to run, e.g. \"go test ./...\"."),
			}, "command"),
			Handler: c.execute,
		},
	}, Only(only...))
}

func (c *command) description() string {
	if len(c.allowed) == 0 {
		return "Executes a shell command. No commands are currently allowed."
	}
	var b strings.Builder
	b.WriteString("Executes a shell command.\nAllowed command patterns:\n")
	for _, pattern := range c.allowed {
		fmt.Fprintf(&b, "- %s\n", pattern)
	}
	return b.String()
}

func (c *command) execute(ctx context.Context, args Args) (*Result, error) {
	line := args.String("command")
	if !isCommandAllowed(line, c.allowed) {
		return Text("Error: command '%s' is not in the list of allowed commands", line), nil
	}

	parts := strings.Fields(line)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Text("Error: command execution failed: %v. Output:\n%s", err, output), nil
	}
	return Text("Command executed successfully. Output:\n%s", output), nil
}

// isCommandAllowed checks if a command is in the allowlist (with regex support).
func isCommandAllowed(command string, allowed []string) bool {
	if len(strings.Fields(command)) == 0 {
		return false
	}
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			slog.Warn("invalid regex in allowed_commands", "pattern", pattern, "error", err)
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
