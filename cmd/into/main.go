// Command into runs an agent over a set of tools, reading messages from the
// command line or from message sources such as the terminal, Slack or a
// webhook.
//
//	into --tools=Self,Slack --messages=Slack
//	into --tools=System --llm=mock "hello"
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/interfaces-to/interfaces-to/agent"
	"github.com/interfaces-to/interfaces-to/agent/terminal"
	"github.com/interfaces-to/interfaces-to/config"
	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/llm"
	"github.com/interfaces-to/interfaces-to/registry"
	"github.com/interfaces-to/interfaces-to/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type flags struct {
	tools      string
	messages   string
	model      string
	llm        string
	apiKey     string
	endpoint   string
	azure      bool
	apiVersion string
	system     string
	verbose    bool
	all        bool
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, []string, error) {
	f := &flags{set: map[string]bool{}}
	fs := flag.NewFlagSet("into", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.tools, "tools", "", "Comma-separated tool sets, e.g. Self,Slack or Files:read_file")
	fs.StringVar(&f.messages, "messages", "", "Comma-separated message sources, e.g. CLI,Slack, or - to read one message from stdin")
	fs.StringVar(&f.model, "model", "", "Model name")
	fs.StringVar(&f.llm, "llm", "", "Provider: openai, anthropic, bedrock, gemini or mock")
	fs.StringVar(&f.apiKey, "api-key", "", "API key for the provider")
	fs.StringVar(&f.endpoint, "endpoint", "", "Base URL of an OpenAI compatible server or Azure endpoint")
	fs.BoolVar(&f.azure, "azure", false, "Use Azure OpenAI")
	fs.StringVar(&f.apiVersion, "api-version", "", "Azure OpenAI API version")
	fs.StringVar(&f.system, "system", "", "System message")
	fs.BoolVar(&f.verbose, "verbose", false, "Print every message and debug logs")
	fs.BoolVar(&f.all, "all", false, "Print the final transcript as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, fs.Args(), nil
}

// apply lets explicitly set flags override the configuration files.
func (f *flags) apply(cfg *config.Config) {
	if f.set["tools"] {
		cfg.Tools = splitList(f.tools)
	}
	if f.set["messages"] {
		cfg.Messages = splitList(f.messages)
	}
	if f.set["model"] {
		cfg.Model = f.model
	}
	if f.set["llm"] {
		cfg.LLMClient = f.llm
	}
	if f.set["endpoint"] {
		cfg.BaseURL = f.endpoint
	}
	if f.set["azure"] {
		cfg.Azure = f.azure
	}
	if f.set["api-version"] {
		cfg.APIVersion = f.apiVersion
	}
	if f.set["system"] {
		cfg.System = f.system
	}
	if f.set["verbose"] {
		cfg.Verbose = f.verbose
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(stderr, "Error loading .env: %+v\n", err)
		return 1
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %+v\n", err)
		return 1
	}
	f.apply(cfg)

	logger := newLogger(stderr, cfg.Verbose)
	slog.SetDefault(logger)

	client, err := llm.New(ctx, llm.Options{
		Provider:   cfg.LLMClient,
		Model:      cfg.Model,
		APIKey:     f.apiKey,
		BaseURL:    cfg.BaseURL,
		Azure:      cfg.Azure,
		APIVersion: cfg.APIVersion,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing %s client: %+v\n", providerName(cfg.LLMClient), err)
		return 1
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}

	reg := registry.New(cfg, registry.WithLogger(logger))
	defer reg.Close()

	opts := []agent.Option{agent.WithLogger(logger), agent.WithSystem(cfg.System)}
	if cfg.Verbose {
		opts = append(opts, agent.WithVerbose(true), agent.WithPrinter(terminal.New(stdout)))
	}
	a := agent.New(reg, opts...).WithTools(cfg.Tools...)
	defer a.Close()

	literal, err := literalMessage(rest, cfg.Messages, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading message: %+v\n", err)
		return 1
	}
	switch {
	case literal != "":
		a.WithMessage(literal)
	case len(cfg.Messages) > 0:
		a.WithListeners(cfg.Messages...)
	default:
		a.WithListeners("CLI")
	}

	if err := a.Run(ctx, client.Complete); err != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "Agent stopped with an error: %+v\n", err)
		return 1
	}

	if f.all {
		out, err := session.MarshalIndent(a.Messages())
		if err != nil {
			fmt.Fprintf(stderr, "Error encoding transcript: %+v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, out)
	} else if !cfg.Verbose && literal != "" {
		if last, ok := lastContent(a.Messages()); ok {
			fmt.Fprintln(stdout, last)
		}
	}
	return 0
}

// literalMessage returns the message given on the command line, or read
// from stdin when the sources are exactly "-".
func literalMessage(args, sources []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if len(sources) == 1 && sources[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", errors.New("no message on stdin")
		}
		return text, nil
	}
	return "", nil
}

func lastContent(messages []session.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == session.RoleAssistant && messages[i].Content != "" {
			return messages[i].Content, true
		}
	}
	return "", false
}

func providerName(p string) string {
	if p == "" {
		return "openai"
	}
	return p
}
