package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. Its value is the wire error code.
type Kind string

const (
	KindUnauthenticated    Kind = "unauthenticated"
	KindInvalidArgument    Kind = "invalid-argument"
	KindPermissionDenied   Kind = "permission-denied"
	KindNotFound           Kind = "not-found"
	KindFailedPrecondition Kind = "failed-precondition"
	KindResourceExhausted  Kind = "resource-exhausted"
	KindInternal           Kind = "internal"
)

// Error is returned by every service operation. Message is safe to show to
// the caller; Err, when set, carries the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and message, so wrapped
// copies of a sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrUnauthenticated = newError(KindUnauthenticated, "User must be authenticated.")

	ErrVolunteersOnly = newError(KindPermissionDenied, "Only volunteers can generate tokens.")
	ErrGuardsOnly     = newError(KindPermissionDenied, "Only guards can redeem tokens.")
	ErrAdminsOnly     = newError(KindPermissionDenied, "Only an admin or superadmin can perform this action.")

	ErrTokenRequired    = newError(KindInvalidArgument, "Token is required.")
	ErrInvalidToken     = newError(KindNotFound, "Invalid token.")
	ErrTokenDeactivated = newError(KindFailedPrecondition, "Token has been deactivated.")
	ErrTokenExpired     = newError(KindFailedPrecondition, "Token has expired.")
	ErrTokenAlreadyUsed = newError(KindFailedPrecondition, "Token has already been used.")

	// ErrCooldownActive is wrapped by the error carrying the wait time.
	ErrCooldownActive = newError(KindResourceExhausted, "Please wait before generating a new code.")

	ErrEmailRequired = newError(KindInvalidArgument, "A valid email is required.")
	ErrInvalidRole   = newError(KindInvalidArgument, "Role must be one of volunteer, guard, admin, superadmin.")
	ErrUserNotFound  = newError(KindNotFound, "No user exists with that email.")
	ErrUserExists    = newError(KindFailedPrecondition, "A user with that email already exists.")

	ErrIssueFailed  = newError(KindInternal, "Failed to create access token.")
	ErrRedeemFailed = newError(KindInternal, "Failed to redeem access token.")
	ErrInternal     = newError(KindInternal, "An unexpected error occurred.")
)

// internal wraps cause behind a safe internal-kind sentinel.
func internal(sentinel *Error, cause error) *Error {
	return &Error{Kind: KindInternal, Message: sentinel.Message, Err: cause}
}

// KindOf reports the Kind of err. Errors that did not come from this
// package are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return ErrInternal.Message
}
