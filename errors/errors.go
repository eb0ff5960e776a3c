// Package errors builds errors that carry the file and line where they were
// created, and defines the sentinel errors shared by the whole module.
//
// Sentinels are matched with Is; every error created through Wrapf keeps its
// cause reachable, so callers can classify a failure without string matching:
//
//	if errors.Is(err, errors.ErrMissingCredential) {
//	    // configuration problem, do not retry
//	}
package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

var (
	// ErrConfig marks configuration problems. They are fatal and never retried.
	ErrConfig = stderrors.New("configuration error")

	// ErrMissingCredential is returned when neither an explicit credential nor
	// its well-known environment variable is available.
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrConfig)

	// ErrUnknownTool is returned when a tool set or function name cannot be resolved.
	ErrUnknownTool = fmt.Errorf("%w: unknown tool", ErrConfig)

	// ErrUnknownListener is returned when a message source name cannot be resolved.
	ErrUnknownListener = fmt.Errorf("%w: unknown message source", ErrConfig)

	// ErrInvalidSchema marks a tool declared with an incomplete schema.
	ErrInvalidSchema = stderrors.New("invalid tool schema")

	// ErrInvalidArguments is returned when a model supplies arguments that do
	// not satisfy the schema of the tool it called.
	ErrInvalidArguments = stderrors.New("invalid tool arguments")

	// ErrToolExecution wraps failures raised by a tool implementation.
	ErrToolExecution = stderrors.New("tool execution failed")

	// ErrEmptyCompletion is returned when no choice of a completion carries
	// content or tool calls, so the transcript cannot make progress.
	ErrEmptyCompletion = stderrors.New("empty completion")
)

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
