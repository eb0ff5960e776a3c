package peopledatalabs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interfaces-to/interfaces-to/tools"
)

func TestFindPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/person/enrich", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "a@b.c", r.URL.Query().Get("email"))
		assert.False(t, r.URL.Query().Has("phone"))
		w.Write([]byte(`{"status":200,"data":{"full_name":"sean thorne"}}`))
	}))
	defer srv.Close()

	s, err := New(nil, WithToken("key"), WithBaseURL(srv.URL))
	require.NoError(t, err)
	tool, _ := s.Lookup("find_person")

	res, err := tools.Invoke(context.Background(), tool, `{"email":"a@b.c"}`)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "sean thorne")
}

func TestFindRequiresAnIdentifier(t *testing.T) {
	s, err := New(nil, WithToken("key"), WithBaseURL("http://127.0.0.1:0"))
	require.NoError(t, err)
	index := tools.Index(s)

	res, err := tools.Invoke(context.Background(), index["find_person"], "{}")
	require.NoError(t, err)
	assert.Equal(t, "At least one of the parameters must be provided", res.Content)

	res, err = tools.Invoke(context.Background(), index["find_company"], `{"ticker":"GOOGL"}`)
	require.NoError(t, err)
	assert.Equal(t, "At least one of the parameters must be provided", res.Content)
}
