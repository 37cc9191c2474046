// Package service holds the business workflows of the storefront: auth,
// accounts, catalog, orders and contact intake.  Services talk to
// repositories and return errors classified by the kinds below.
package service

import (
	"errors"
	"fmt"
)

// Error kinds.  Handlers map them to HTTP status codes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")
)

// Domain failures, each belonging to one of the kinds above.
var (
	ErrInsufficientStock = &Error{Kind: ErrBadRequest, Message: "insufficient stock"}
	ErrInvalidQuantity   = &Error{Kind: ErrBadRequest, Message: "invalid quantity"}
	ErrInvalidPrice      = &Error{Kind: ErrBadRequest, Message: "invalid price"}
	ErrEmailTaken        = &Error{Kind: ErrConflict, Message: "Email already registered"}
	ErrInvalidTransition = &Error{Kind: ErrConflict, Message: "invalid status transition"}
)

// Error is a classified failure with a message safe to show to clients.
// It unwraps to its Kind, and to Cause when one is set, so errors.Is
// matches both the kind and the domain sentinel a detailed error was
// derived from.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newErr(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// detail derives an error from a domain sentinel with a specific message;
// errors.Is(err, base) still holds.
func detail(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Message: fmt.Sprintf(format, args...), Cause: base}
}

// internal wraps an unexpected failure.  The cause is kept for logging but
// the message is generic.
func internal(cause error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal server error", Cause: cause}
}
