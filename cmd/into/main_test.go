package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interfaces-to/interfaces-to/config"
	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/session"
)

func runInto(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunLiteralMessage(t *testing.T) {
	code, out, errOut := runInto(t, "", "--llm=mock", "hello", "there")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "I am a mock LLM. You said: 'hello there'.\n", out)
}

func TestRunPrintsTranscript(t *testing.T) {
	code, out, errOut := runInto(t, "", "--llm=mock", "--tools=System", "--system=Be brief.", "--all", "hi")
	require.Equal(t, 0, code, errOut)

	var messages []session.Message
	require.NoError(t, json.Unmarshal([]byte(out), &messages))
	require.Len(t, messages, 3)
	assert.Equal(t, session.RoleSystem, messages[0].Role)
	assert.Equal(t, "Be brief.", messages[0].Content)
	assert.Equal(t, session.RoleUser, messages[1].Role)
	assert.Equal(t, "I am a mock LLM. You said: 'hi'.", messages[2].Content)
}

func TestRunReadsStdin(t *testing.T) {
	code, out, errOut := runInto(t, "from stdin\n", "--llm=mock", "--messages=-")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "You said: 'from stdin'")

	code, _, errOut = runInto(t, "", "--llm=mock", "--messages=-")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no message on stdin")
}

func TestRunFailures(t *testing.T) {
	code, _, errOut := runInto(t, "", "--llm=watson", "hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown llm provider")

	code, _, errOut = runInto(t, "", "--llm=mock", "--tools=Nope", "hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown tool")

	code, _, errOut = runInto(t, "", "--llm=mock", "--messages=Pigeon")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown message source")

	code, _, _ = runInto(t, "", "--no-such-flag")
	assert.Equal(t, 1, code)
}

func TestFlagsOverrideConfig(t *testing.T) {
	f, rest, err := parseFlags([]string{"--tools= Self , Slack:send_slack_message ,", "--model=gpt-4o-mini", "msg"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg"}, rest)

	cfg := config.Default()
	cfg.LLMClient = "anthropic"
	f.apply(cfg)
	assert.Equal(t, []string{"Self", "Slack:send_slack_message"}, cfg.Tools)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "anthropic", cfg.LLMClient)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true).Debug("shown", "err", errors.New("boom"))
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "boom")
	assert.NotContains(t, buf.String(), "\x1b[")
}
