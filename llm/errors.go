package llm

import (
	"errors"
	"fmt"
)

// Error types for classifying LLM errors.

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// MalformedResponseError reports output from a model or parsing service
// that does not have the shape a stage expects. It is never retried.
type MalformedResponseError struct {
	// Stage names the pipeline stage that rejected the output.
	Stage string

	// Reason describes what was wrong.
	Reason string

	// Snippet is a prefix of the offending output.
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s: malformed response: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("%s: malformed response: %s (near %q)", e.Stage, e.Reason, e.Snippet)
}

// snippetLen bounds the output quoted in a MalformedResponseError.
const snippetLen = 120

// NewMalformedResponseError builds a MalformedResponseError quoting the
// start of output.
func NewMalformedResponseError(stage, reason, output string) error {
	return &MalformedResponseError{Stage: stage, Reason: reason, Snippet: Snippet(output)}
}

// Snippet returns at most the first 120 runes of s.
func Snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen]) + "..."
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// IsMalformed returns true if the error reports malformed output.
func IsMalformed(err error) bool {
	var malformed *MalformedResponseError
	return errors.As(err, &malformed)
}
