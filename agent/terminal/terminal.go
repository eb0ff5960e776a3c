package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/interfaces-to/interfaces-to/session"
)

const defaultWidth = 80

// Printer writes messages to a terminal. It implements session.Printer and is
// safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	colors map[session.Role]*color.Color
}

type Option func(*Printer)

// WithWidth sets the wrap column for user and assistant text. Zero disables
// wrapping.
func WithWidth(width int) Option {
	return func(p *Printer) { p.width = width }
}

// WithoutColor prints plain role tags.
func WithoutColor() Option {
	return func(p *Printer) {
		for _, c := range p.colors {
			c.DisableColor()
		}
	}
}

func New(out io.Writer, opts ...Option) *Printer {
	p := &Printer{
		out:   out,
		width: defaultWidth,
		colors: map[session.Role]*color.Color{
			session.RoleSystem:    color.New(color.FgMagenta),
			session.RoleUser:      color.New(color.FgHiGreen),
			session.RoleTool:      color.New(color.FgHiBlue),
			session.RoleAssistant: color.New(color.FgHiYellow),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) Print(m session.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tag := "[" + string(m.Role) + "]"
	if c, ok := p.colors[m.Role]; ok {
		tag = c.Sprint(tag)
	}
	fmt.Fprintf(p.out, "%s\t%s\n", tag, Format(m, p.width))
}

// Format lays out the body of m: non-assistant content gets a leading tab,
// user and assistant content is wrapped at width, and continuation lines are
// indented by two tabs.
func Format(m session.Message, width int) string {
	body := m.Content
	if body == "" && len(m.ToolCalls) > 0 {
		return calls(m.ToolCalls)
	}
	if m.Role != session.RoleAssistant {
		body = "\t" + body
	}
	if width > 0 && (m.Role == session.RoleUser || m.Role == session.RoleAssistant) {
		body = wrap(body, width)
	}
	return strings.ReplaceAll(body, "\n", "\n\t\t")
}

// wrap breaks s into chunks of at most width runes.
func wrap(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(runes); i += width {
		if i > 0 {
			b.WriteByte('\n')
		}
		end := i + width
		if end > len(runes) {
			end = len(runes)
		}
		b.WriteString(string(runes[i:end]))
	}
	return b.String()
}

func calls(tc []session.ToolCall) string {
	parts := make([]string, 0, len(tc))
	for _, c := range tc {
		parts = append(parts, fmt.Sprintf("%s(%s)", c.Function.Name, c.Function.Arguments))
	}
	return strings.Join(parts, ", ")
}
