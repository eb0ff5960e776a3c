// Package mcp exposes the tools of an MCP server subprocess as a tool set.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/interfaces-to/interfaces-to/config"
	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/tools"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	specs []tools.Spec
}

// Connect starts the MCP server subprocess and discovers its tools.
func Connect(ctx context.Context, server config.MCPServer) (*Client, error) {
	cmd := exec.Command(server.Command, server.Args...)
	cmd.Stderr = os.Stderr
	impl := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "into", Version: "v1.0.0"}, nil)
	conn, err := impl.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", server.Name)
	}
	c := &Client{Name: server.Name, cmd: cmd, conn: conn}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			c.Stop()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", server.Name)
		}
		for _, t := range list.Tools {
			spec, err := c.spec(t)
			if err != nil {
				c.Stop()
				return nil, err
			}
			c.specs = append(c.specs, spec)
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	slog.Info("initialized MCP client", "server", server.Name, "tools", len(c.specs))
	return c, nil
}

func (c *Client) spec(t *mcpsdk.Tool) (tools.Spec, error) {
	params := tools.Object(nil)
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return tools.Spec{}, errors.Wrapf(err, "failed to encode schema of '%s'", t.Name)
		}
		if params, err = tools.ParseSchema(data); err != nil {
			return tools.Spec{}, err
		}
		if params.Type == "" {
			params.Type = "object"
		}
	}
	name := t.Name
	return tools.Spec{
		Name:        name,
		Description: t.Description,
		Parameters:  params,
		Handler: func(ctx context.Context, args tools.Args) (*tools.Result, error) {
			return c.call(ctx, name, args)
		},
	}, nil
}

// Set returns the server's tools, or the subset named in only.
func (c *Client) Set(only []string) (*tools.Set, error) {
	return tools.NewSet(c.Name, c.specs, tools.Only(only...), tools.Lenient())
}

func (c *Client) call(ctx context.Context, name string, args tools.Args) (*tools.Result, error) {
	result, err := c.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: map[string]interface{}(args),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call tool '%s' on '%s'", name, c.Name)
	}
	return tools.Text("%s", textOf(result)), nil
}

// textOf concatenates the text parts of a tool result.
func textOf(result *mcpsdk.CallToolResult) string {
	var b strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "Error: " + b.String()
	}
	return b.String()
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		slog.Info("terminating MCP server", "server", c.Name)
		return c.cmd.Process.Kill()
	}
	return nil
}
