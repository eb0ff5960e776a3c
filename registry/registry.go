// Package registry resolves tool set and message source names, as they
// appear on the command line and in config.yaml, into constructed values.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/interfaces-to/interfaces-to/config"
	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/listeners"
	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
	"github.com/interfaces-to/interfaces-to/tools/airtable"
	"github.com/interfaces-to/interfaces-to/tools/mcp"
	"github.com/interfaces-to/interfaces-to/tools/notion"
	toolopenai "github.com/interfaces-to/interfaces-to/tools/openai"
	"github.com/interfaces-to/interfaces-to/tools/peopledatalabs"
	toolslack "github.com/interfaces-to/interfaces-to/tools/slack"
)

// ToolFactory builds a tool set. only lists the functions to keep; nil
// keeps all of them.
type ToolFactory func(ctx context.Context, only []string) (*tools.Set, error)

// ListenerFactory builds a message source.
type ListenerFactory func(ctx context.Context) (session.Listener, error)

// Registry holds the name tables. The zero value is not usable; call New.
type Registry struct {
	cfg       *config.Config
	logger    *slog.Logger
	tools     map[string]ToolFactory
	listeners map[string]ListenerFactory
	mcp       []*mcp.Client
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New returns a registry with every built-in tool set and message source
// registered. MCP servers named in cfg resolve as tool sets too.
func New(cfg *config.Config, opts ...Option) *Registry {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Registry{
		cfg:       cfg,
		logger:    slog.Default(),
		tools:     make(map[string]ToolFactory),
		listeners: make(map[string]ListenerFactory),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.RegisterTools("Self", func(_ context.Context, only []string) (*tools.Set, error) {
		return tools.NewSelf(only)
	})
	r.RegisterTools("System", func(_ context.Context, only []string) (*tools.Set, error) {
		return tools.NewSystem(only)
	})
	r.RegisterTools("Files", func(_ context.Context, only []string) (*tools.Set, error) {
		return tools.NewFiles(r.cfg.FilesystemAccess, only)
	})
	r.RegisterTools("Command", func(_ context.Context, only []string) (*tools.Set, error) {
		return tools.NewCommand(r.cfg.AllowedCommands, only)
	})
	r.RegisterTools("Slack", func(_ context.Context, only []string) (*tools.Set, error) {
		return toolslack.New(only)
	})
	r.RegisterTools("OpenAI", func(_ context.Context, only []string) (*tools.Set, error) {
		return toolopenai.New(only)
	})
	r.RegisterTools("Notion", func(_ context.Context, only []string) (*tools.Set, error) {
		return notion.New(only)
	})
	r.RegisterTools("Airtable", func(_ context.Context, only []string) (*tools.Set, error) {
		return airtable.New(only)
	})
	r.RegisterTools("PeopleDataLabs", func(_ context.Context, only []string) (*tools.Set, error) {
		return peopledatalabs.New(only)
	})

	r.RegisterListener("CLI", func(context.Context) (session.Listener, error) {
		return listeners.NewCLI(), nil
	})
	r.RegisterListener("Slack", func(context.Context) (session.Listener, error) {
		return listeners.NewSlack("", "", r.logger)
	})
	r.RegisterListener("Webhook", func(context.Context) (session.Listener, error) {
		return listeners.NewWebhook(r.cfg.Listen.Address, r.cfg.Listen.Path, r.logger), nil
	})
	r.RegisterListener("Ngrok", func(context.Context) (session.Listener, error) {
		return listeners.NewNgrok("", r.cfg.Listen.Path, r.logger)
	})
	r.RegisterListener("WebSocket", func(context.Context) (session.Listener, error) {
		return listeners.NewWebSocket(r.cfg.Listen.WSAddress, r.cfg.Listen.WSPath, r.logger), nil
	})
	return r
}

// RegisterTools adds or replaces a tool set constructor.
func (r *Registry) RegisterTools(name string, f ToolFactory) {
	r.tools[name] = f
}

// RegisterListener adds or replaces a message source constructor.
func (r *Registry) RegisterListener(name string, f ListenerFactory) {
	r.listeners[name] = f
}

// ToolNames lists the registered tool sets, configured MCP servers included.
func (r *Registry) ToolNames() []string {
	names := make([]string, 0, len(r.tools)+len(r.cfg.MCPServers))
	for name := range r.tools {
		names = append(names, name)
	}
	for _, srv := range r.cfg.MCPServers {
		names = append(names, srv.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListenerNames() []string {
	names := make([]string, 0, len(r.listeners))
	for name := range r.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selection is one tool set to build, with the functions to keep.
type selection struct {
	name string
	only []string
	all  bool
}

// expand flattens toolset references and groups "Set:function" entries by
// set, keeping first appearance order.
func (r *Registry) expand(names []string) ([]*selection, error) {
	var order []*selection
	byName := map[string]*selection{}
	var visit func(names []string, stack []string) error
	visit = func(names []string, stack []string) error {
		for _, entry := range names {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if ts, ok := r.cfg.GetToolset(entry); ok {
				for _, seen := range stack {
					if seen == entry {
						return fmt.Errorf("%w: toolset %q includes itself", errors.ErrConfig, entry)
					}
				}
				if err := visit(ts.Tools, append(stack, entry)); err != nil {
					return err
				}
				continue
			}

			set, fn, subset := strings.Cut(entry, ":")
			sel, ok := byName[set]
			if !ok {
				sel = &selection{name: set}
				byName[set] = sel
				order = append(order, sel)
			}
			if !subset {
				sel.all = true
				continue
			}
			if !contains(sel.only, fn) {
				sel.only = append(sel.only, fn)
			}
		}
		return nil
	}
	if err := visit(names, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// ToolSets builds the named tool sets. Unknown names fail with
// errors.ErrUnknownTool, and missing credentials with
// errors.ErrMissingCredential.
func (r *Registry) ToolSets(ctx context.Context, names []string) ([]*tools.Set, error) {
	selections, err := r.expand(names)
	if err != nil {
		return nil, err
	}
	sets := make([]*tools.Set, 0, len(selections))
	for _, sel := range selections {
		only := sel.only
		if sel.all {
			only = nil
		}
		set, err := r.build(ctx, sel.name, only)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (r *Registry) build(ctx context.Context, name string, only []string) (*tools.Set, error) {
	if f, ok := r.tools[name]; ok {
		set, err := f(ctx, only)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create tool set '%s'", name)
		}
		return set, nil
	}
	if srv, ok := r.cfg.GetMCPServer(name); ok {
		client, err := mcp.Connect(ctx, *srv)
		if err != nil {
			return nil, err
		}
		r.mcp = append(r.mcp, client)
		return client.Set(only)
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrUnknownTool, name)
}

// Listeners builds the named message sources.
func (r *Registry) Listeners(ctx context.Context, names []string) ([]session.Listener, error) {
	out := make([]session.Listener, 0, len(names))
	for _, name := range names {
		f, ok := r.listeners[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", errors.ErrUnknownListener, name)
		}
		l, err := f(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create message source '%s'", name)
		}
		out = append(out, l)
	}
	return out, nil
}

// Close stops the MCP servers started by ToolSets.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.mcp {
		if err := c.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	r.mcp = nil
	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
