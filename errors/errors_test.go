package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCallerLocation(t *testing.T) {
	err := New("missing %s", "token")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "[errors_test.go:"), err.Error())
	assert.Contains(t, err.Error(), "missing token")
}

func TestWrapfKeepsCause(t *testing.T) {
	assert.Nil(t, Wrapf(nil, "ignored"))

	err := Wrapf(ErrMissingCredential, "slack")
	assert.True(t, Is(err, ErrMissingCredential))
	assert.True(t, Is(err, ErrConfig))
	assert.False(t, Is(err, ErrToolExecution))
	assert.Contains(t, err.Error(), "slack: configuration error: missing credential")
}

func TestSentinelHierarchy(t *testing.T) {
	for _, err := range []error{ErrMissingCredential, ErrUnknownTool, ErrUnknownListener} {
		t.Run(err.Error(), func(t *testing.T) {
			assert.True(t, Is(fmt.Errorf("outer: %w", err), ErrConfig))
		})
	}
	assert.False(t, Is(ErrInvalidSchema, ErrConfig))
}
