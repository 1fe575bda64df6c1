package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure into a caller-actionable outcome.
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindForbidden             Kind = "forbidden"
	KindInvalidState          Kind = "invalid_state"
	KindInvalidTarget         Kind = "invalid_target"
	KindDuplicateInterest     Kind = "duplicate_interest"
	KindReverseInterestExists Kind = "reverse_interest_exists"
	KindCapacityExceeded      Kind = "capacity_exceeded"
	KindConflict              Kind = "conflict"
	KindUnavailable           Kind = "unavailable"
)

// Error is a classified failure with a user-facing message. Two errors
// match under errors.Is when their kinds are equal, so callers compare
// against the sentinels below regardless of the message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound              = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrForbidden             = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrInvalidState          = &Error{Kind: KindInvalidState, Msg: "invalid state"}
	ErrInvalidTarget         = &Error{Kind: KindInvalidTarget, Msg: "invalid target"}
	ErrDuplicateInterest     = &Error{Kind: KindDuplicateInterest, Msg: "interest already exists"}
	ErrReverseInterestExists = &Error{Kind: KindReverseInterestExists, Msg: "reverse interest exists"}
	ErrCapacityExceeded      = &Error{Kind: KindCapacityExceeded, Msg: "capacity exceeded"}
	ErrConflict              = &Error{Kind: KindConflict, Msg: "concurrent update conflict"}
	ErrUnavailable           = &Error{Kind: KindUnavailable, Msg: "service unavailable"}
)

// E returns a classified error with a specific message.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Unavailable wraps an I/O failure from storage or a collaborator.
func Unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: op, Err: err}
}

// KindOf returns the kind of err, or KindUnavailable for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnavailable
}

// Message returns the user-facing message of a classified error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ErrUnavailable.Msg
}
