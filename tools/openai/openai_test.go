package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interfaces-to/interfaces-to/errors"
	"github.com/interfaces-to/interfaces-to/tools"
)

func TestCreateChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.EqualValues(t, 16, req["max_tokens"])
		msgs := req["messages"].([]interface{})
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Paris"}}]}`))
	}))
	defer srv.Close()

	s, err := New(nil, WithToken("sk-test"), WithBaseURL(srv.URL))
	require.NoError(t, err)
	tool, _ := s.Lookup("create_chat_completion")

	res, err := tools.Invoke(context.Background(), tool,
		`{"prompt":"Capital of France?","model":"gpt-4o-mini","max_tokens":16}`)
	require.NoError(t, err)
	assert.Equal(t,
		"Created completion using model gpt-4o-mini with prompt Capital of France? and max tokens 16. Response: Paris",
		res.Content)
}

func TestNewRequiresToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	_, err := New(nil)
	assert.ErrorIs(t, err, errors.ErrMissingCredential)
}
