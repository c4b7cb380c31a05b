// Package apperror carries the failure taxonomy shared by the query and
// retrieval layers: invalid_argument, not_found, forbidden, unauthorized and
// internal. Handlers map kinds to HTTP statuses in one place so that store or
// file-share error text never reaches a response body.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindUnauthorized    Kind = "unauthorized"
	KindInternal        Kind = "internal"
)

// Error is a kinded error with a human-readable reason. The wrapped cause, if
// any, is kept for logging but is never part of the reason string.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

func InvalidArgument(reason string) *Error {
	return &Error{Kind: KindInvalidArgument, Reason: reason}
}

func NotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Forbidden(reason string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

func Unauthorized(reason string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason}
}

// Internal wraps an infrastructure failure under a caller-safe reason.
func Internal(reason string, cause error) *Error {
	return &Error{Kind: KindInternal, Reason: reason, cause: cause}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the caller-safe reason of err. Unclassified errors get a
// generic reason so internal detail is not leaked.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "unexpected error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
