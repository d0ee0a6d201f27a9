package services

import (
	"context"
	"errors"

	"civictrack-be/store"
)

// Kind classifies failures returned to callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindNotFound
	KindAlreadyFlagged
	KindUnauthenticated
	KindUnavailable
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyFlagged:
		return "AlreadyFlagged"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindUnavailable:
		return "Unavailable"
	case KindConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

func (k Kind) defaultMessage() string {
	switch k {
	case KindInvalidArgument:
		return "Invalid request"
	case KindNotFound:
		return "Issue not found"
	case KindAlreadyFlagged:
		return "You have already flagged this issue"
	case KindUnauthenticated:
		return "User not authenticated"
	case KindUnavailable:
		return "Issue store is unavailable, please try again later"
	case KindConflict:
		return "Issue was modified concurrently, please retry"
	default:
		return "Something went wrong"
	}
}

// Error is the typed failure every service operation returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.defaultMessage()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target is one of the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAlreadyFlagged  = &Error{Kind: KindAlreadyFlagged}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrUnavailable     = &Error{Kind: KindUnavailable}
	ErrConflict        = &Error{Kind: KindConflict}
)

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// fromStore maps store failures onto the service taxonomy. Errors that are
// already typed pass through untouched.
func fromStore(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Err: err}
	case errors.Is(err, store.ErrInvalidPoint):
		return &Error{Kind: KindInvalidArgument, Message: "Latitude and longitude must be valid coordinates", Err: err}
	case errors.Is(err, store.ErrVersionConflict):
		return &Error{Kind: KindConflict, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &Error{Kind: KindUnavailable, Err: err}
	}
}
