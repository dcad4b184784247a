/**
 * @description
 * Tagged error kinds surfaced by the billing core.
 */
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. The API layer maps every kind to a status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindValidation
	KindInvalidState
	KindAttemptLimitExceeded
	KindConflict
)

// Kinds lists every declared kind.
var Kinds = []Kind{
	KindInternal,
	KindNotFound,
	KindUnauthorized,
	KindForbidden,
	KindValidation,
	KindInvalidState,
	KindAttemptLimitExceeded,
	KindConflict,
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindAttemptLimitExceeded:
		return "ATTEMPT_LIMIT_EXCEEDED"
	case KindConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

func AttemptLimitExceeded(format string, args ...any) *Error {
	return newError(KindAttemptLimitExceeded, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
