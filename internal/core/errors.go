package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors for delivery to the client.
type ErrorKind string

// Error kinds.
const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindForbidden     ErrorKind = "forbidden"
	KindConflict      ErrorKind = "conflict"
	KindStateMismatch ErrorKind = "state_mismatch"
)

var (
	// ErrClientClosed is returned by Send once the connection is closed.
	ErrClientClosed = errors.New("client closed")
	// ErrSlowConsumer is returned by Send when the outbound buffer is full.
	ErrSlowConsumer = errors.New("slow consumer")
)

// CoreError wraps a kind and human-readable message.
type CoreError struct {
	Code    ErrorKind
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code ErrorKind, format string, args ...any) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(format string, args ...any) error { return coreError(KindValidation, format, args...) }

// NotFound reports a missing entity, or one the caller may not see.
func NotFound(format string, args ...any) error { return coreError(KindNotFound, format, args...) }

// Forbidden reports an entity that exists but is not the caller's to change.
func Forbidden(format string, args ...any) error { return coreError(KindForbidden, format, args...) }

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) error { return coreError(KindConflict, format, args...) }

// StateMismatch reports an operation invalid for the entity's current state.
func StateMismatch(format string, args ...any) error {
	return coreError(KindStateMismatch, format, args...)
}

// KindOf returns the kind of the first CoreError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
