package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interfaces-to/interfaces-to/config"
	"github.com/interfaces-to/interfaces-to/errors"
)

func echoSpec() Spec {
	return Spec{
		Name:        "echo",
		Description: "Echo the text back",
		Parameters: Object(map[string]*Schema{
			"text":  String("The text to echo"),
			"times": Integer("How many times"),
		}, "text"),
		Handler: func(_ context.Context, args Args) (*Result, error) {
			n, ok := args.Int("times")
			if !ok {
				n = 1
			}
			return Text("%s x%d", args.String("text"), n), nil
		},
	}
}

func TestNewFunctionRejectsIncompleteDeclarations(t *testing.T) {
	handler := func(context.Context, Args) (*Result, error) { return nil, nil }

	testCases := []struct {
		name string
		spec Spec
	}{
		{"NoDescription", Spec{Name: "a", Parameters: Object(nil), Handler: handler}},
		{"NotAnObject", Spec{Name: "a", Description: "d", Parameters: String("x"), Handler: handler}},
		{"ParamWithoutType", Spec{Name: "a", Description: "d", Parameters: Object(map[string]*Schema{
			"x": {Description: "no type"},
		}), Handler: handler}},
		{"ParamWithoutDescription", Spec{Name: "a", Description: "d", Parameters: Object(map[string]*Schema{
			"x": {Type: "string"},
		}), Handler: handler}},
		{"UndeclaredRequired", Spec{Name: "a", Description: "d", Parameters: Object(nil, "x"), Handler: handler}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFunction(tc.spec)
			assert.ErrorIs(t, err, errors.ErrInvalidSchema)
		})
	}
}

func TestInvokeValidatesArguments(t *testing.T) {
	fn, err := NewFunction(echoSpec())
	require.NoError(t, err)

	res, err := Invoke(context.Background(), fn, `{"text":"hi","times":2}`)
	require.NoError(t, err)
	assert.Equal(t, "hi x2", res.Content)

	_, err = Invoke(context.Background(), fn, `{"times":2}`)
	assert.ErrorIs(t, err, errors.ErrInvalidArguments)

	_, err = Invoke(context.Background(), fn, `{"text":1}`)
	assert.ErrorIs(t, err, errors.ErrInvalidArguments)

	_, err = Invoke(context.Background(), fn, `not json`)
	assert.ErrorIs(t, err, errors.ErrInvalidArguments)
}

func TestInvokeWrapsHandlerErrors(t *testing.T) {
	boom := errors.New("boom")
	fn, err := NewFunction(Spec{
		Name:        "fail",
		Description: "Always fails",
		Handler:     func(context.Context, Args) (*Result, error) { return nil, boom },
	})
	require.NoError(t, err)

	_, err = Invoke(context.Background(), fn, "")
	assert.ErrorIs(t, err, errors.ErrToolExecution)
	assert.ErrorIs(t, err, boom)
}

func TestNewSetFiltersAndIndexes(t *testing.T) {
	other := echoSpec()
	other.Name = "shout"

	s, err := NewSet("Echo", []Spec{echoSpec(), other})
	require.NoError(t, err)
	assert.Len(t, s.Tools(), 2)

	only, err := NewSet("Echo", []Spec{echoSpec(), other}, Only("shout"))
	require.NoError(t, err)
	require.Len(t, only.Tools(), 1)
	assert.Equal(t, "shout", only.Tools()[0].Name())

	_, err = NewSet("Echo", []Spec{echoSpec()}, Only("missing"))
	assert.ErrorIs(t, err, errors.ErrUnknownTool)

	_, err = NewSet("Echo", []Spec{echoSpec(), echoSpec()})
	assert.ErrorIs(t, err, errors.ErrInvalidSchema)

	index := Index(s, only)
	assert.Len(t, index, 2)
	_, ok := index["echo"]
	assert.True(t, ok)
}

func TestLenientSetAcceptsUndocumentedParameters(t *testing.T) {
	spec := Spec{
		Name:       "remote",
		Parameters: Object(map[string]*Schema{"q": {Type: "string"}}),
		Handler:    func(context.Context, Args) (*Result, error) { return Text("ok"), nil },
	}
	_, err := NewSet("Remote", []Spec{spec})
	assert.ErrorIs(t, err, errors.ErrInvalidSchema)

	s, err := NewSet("Remote", []Spec{spec}, Lenient())
	require.NoError(t, err)
	assert.Len(t, s.Tools(), 1)
}

func TestParsedSchemaKeepsUnmodelledKeywords(t *testing.T) {
	params, err := ParseSchema([]byte(`{
		"properties": {
			"when": {"type": "string", "format": "date-time"},
			"limit": {"type": "integer", "default": 10},
			"id": {"anyOf": [{"type": "string"}, {"type": "integer"}]}
		},
		"required": ["id"],
		"additionalProperties": false
	}`))
	require.NoError(t, err)
	params.Type = "object"

	m := params.Map()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, false, m["additionalProperties"])
	props := m["properties"].(map[string]interface{})
	assert.Equal(t, "date-time", props["when"].(map[string]interface{})["format"])
	assert.EqualValues(t, 10, props["limit"].(map[string]interface{})["default"])
	assert.Contains(t, props["id"], "anyOf")

	s, err := NewSet("Remote", []Spec{{
		Name:       "fetch",
		Parameters: params,
		Handler:    func(context.Context, Args) (*Result, error) { return Text("ok"), nil },
	}}, Lenient())
	require.NoError(t, err)
	fetch, _ := s.Lookup("fetch")

	_, err = Invoke(context.Background(), fetch, `{"id":7}`)
	require.NoError(t, err)
	_, err = Invoke(context.Background(), fetch, `{"id":7,"extra":true}`)
	assert.ErrorIs(t, err, errors.ErrInvalidArguments)
	_, err = Invoke(context.Background(), fetch, `{"id":true}`)
	assert.ErrorIs(t, err, errors.ErrInvalidArguments)
}

func TestCredential(t *testing.T) {
	t.Setenv("INTO_TEST_CREDENTIAL", "from-env")

	v, err := Credential("explicit", "INTO_TEST_CREDENTIAL")
	require.NoError(t, err)
	assert.Equal(t, "explicit", v)

	v, err = Credential("", "INTO_TEST_CREDENTIAL")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = Credential("", "INTO_TEST_CREDENTIAL_MISSING")
	assert.ErrorIs(t, err, errors.ErrMissingCredential)
	assert.Contains(t, err.Error(), "INTO_TEST_CREDENTIAL_MISSING")
}

func TestSelfWait(t *testing.T) {
	var slept time.Duration
	s, err := NewSelf(nil, WithSleep(func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}))
	require.NoError(t, err)

	wait, ok := s.Lookup("wait")
	require.True(t, ok)
	res, err := Invoke(context.Background(), wait, `{"seconds":1}`)
	require.NoError(t, err)
	assert.Equal(t, "Waiting for 1 seconds", res.Content)
	assert.Equal(t, time.Second, slept)
}

func TestSelfWaitHonoursCancellation(t *testing.T) {
	s, err := NewSelf(nil)
	require.NoError(t, err)
	wait, _ := s.Lookup("wait")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Invoke(ctx, wait, `{"seconds":30}`)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSystemTools(t *testing.T) {
	s, err := NewSystem(nil)
	require.NoError(t, err)
	index := Index(s)

	res, err := Invoke(context.Background(), index["get_system_message"], "{}")
	require.NoError(t, err)
	assert.Equal(t, "No system message available", res.Content)

	ctx := WithSystemMessage(context.Background(), "Be brief.", true)
	res, err = Invoke(ctx, index["get_system_message"], "{}")
	require.NoError(t, err)
	assert.Equal(t, "System message is Be brief.", res.Content)

	res, err = Invoke(ctx, index["set_system_message"], `{"message":"Speak French."}`)
	require.NoError(t, err)
	require.NotNil(t, res.System)
	assert.Equal(t, "Speak French.", res.System.Content)

	res, err = Invoke(ctx, index["clear_system_message"], "{}")
	require.NoError(t, err)
	require.NotNil(t, res.System)
	assert.True(t, res.System.Clear)
}

func TestFilesRespectsAccessRules(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.txt")
	locked := filepath.Join(dir, "locked.txt")
	open := filepath.Join(dir, "open.txt")
	require.NoError(t, os.WriteFile(secret, []byte("s3cr3t"), 0644))
	require.NoError(t, os.WriteFile(locked, []byte("locked"), 0644))

	s, err := NewFiles(config.FilesystemAccess{
		Hidden:   []string{filepath.Join(dir, "secret*")},
		ReadOnly: []string{filepath.Join(dir, "locked*")},
	}, nil)
	require.NoError(t, err)
	index := Index(s)

	res, err := Invoke(context.Background(), index["read_file"], `{"path":"`+secret+`"}`)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "is hidden")

	res, err = Invoke(context.Background(), index["read_file"], `{"path":"`+locked+`"}`)
	require.NoError(t, err)
	assert.Equal(t, "locked", res.Content)

	res, err = Invoke(context.Background(), index["write_file"], `{"path":"`+locked+`","content":"x"}`)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "read-only")

	res, err = Invoke(context.Background(), index["write_file"], `{"path":"`+open+`","content":"hello"}`)
	require.NoError(t, err)
	assert.Equal(t, "Successfully wrote 5 bytes to "+open, res.Content)
}

func TestIsCommandAllowed(t *testing.T) {
	allowed := []string{`^go (test|vet) `, `^ls$`}
	assert.True(t, isCommandAllowed("go test ./...", allowed))
	assert.True(t, isCommandAllowed("ls", allowed))
	assert.False(t, isCommandAllowed("rm -rf /", allowed))
	assert.False(t, isCommandAllowed("   ", allowed))
}

func TestCommandRejectsDisallowed(t *testing.T) {
	s, err := NewCommand(nil, nil)
	require.NoError(t, err)
	exec, _ := s.Lookup("execute_command")
	res, err := Invoke(context.Background(), exec, `{"command":"echo hi"}`)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "not in the list of allowed commands")
}
