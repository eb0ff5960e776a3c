package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/interfaces-to/interfaces-to/session"
)

func TestFormat(t *testing.T) {
	testCases := []struct {
		name string
		msg  session.Message
		want string
	}{
		{"User", session.UserMessage("hi"), "\thi"},
		{"Assistant", session.AssistantMessage("Hello!"), "Hello!"},
		{"ToolMultiline", session.ToolMessage("c1", "a\nb"), "\ta\n\t\tb"},
		{"Calls", session.AssistantMessage("", session.NewToolCall("c1", "wait", `{"seconds":1}`)), `wait({"seconds":1})`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.msg, defaultWidth))
		})
	}
}

func TestFormatWrapsUserAndAssistantOnly(t *testing.T) {
	long := strings.Repeat("x", 100)

	assert.Equal(t, strings.Repeat("x", 80)+"\n\t\t"+strings.Repeat("x", 20),
		Format(session.AssistantMessage(long), 80))
	assert.Equal(t, "\t"+long, Format(session.ToolMessage("c1", long), 80))
	assert.Equal(t, long, Format(session.AssistantMessage(long), 0))
}

func TestPrinterWritesTaggedLines(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, WithoutColor())
	p.Print(session.UserMessage("hi"))
	p.Print(session.AssistantMessage("Hello!"))
	assert.Equal(t, "[user]\t\thi\n[assistant]\tHello!\n", out.String())
}
