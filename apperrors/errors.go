// Package apperrors implements the error taxonomy shared across the room
// and game use-cases: Validation, Unauthorized, Forbidden, NotFound,
// Conflict, RateLimit and Internal. Each kind carries enough context for
// the dispatcher to decide how to surface it without string-matching.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind identifies which row of the error taxonomy an error belongs to.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindRateLimit   Kind = "rate_limit"
	KindInternal    Kind = "internal"
)

// Error is the sum-type error carried through the use-case layer.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter int // seconds; only meaningful for KindRateLimit
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match on Kind alone via a zero-value sentinel of the
// same Kind, e.g. errors.Is(err, apperrors.Conflict("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func RateLimit(retryAfterSeconds int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindRateLimit, Message: fmt.Sprintf(format, args...), RetryAfter: retryAfterSeconds}
}

func Internal(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Is reports whether err (or anything it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
