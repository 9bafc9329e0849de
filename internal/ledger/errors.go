package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger failure. Every failure is per-request and
// recoverable by resubmission; there is no fatal category.
type Kind int

// Error kinds
const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindInsufficientHearts
	KindDeadActor
	KindNotFound
	KindInvalidArgument
	KindDuplicate
	KindConflict
)

// String returns the wire name of the kind
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindInsufficientHearts:
		return "insufficient_hearts"
	case KindDeadActor:
		return "dead_actor"
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindDuplicate:
		return "duplicate_action"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a classified ledger error surfaced to the caller
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unauthorized reports a missing or invalid credential
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// InsufficientHearts reports a balance below the action cost
func InsufficientHearts(msg string) *Error {
	return &Error{Kind: KindInsufficientHearts, Message: msg}
}

// DeadActor reports a dead actor attempting an action that requires life
func DeadActor(msg string) *Error {
	return &Error{Kind: KindDeadActor, Message: msg}
}

// NotFound reports a missing post, comment, like or user
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// InvalidArgument reports a bad amount, empty content or self-targeting
func InvalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// Duplicate reports an already-performed action, e.g. a second like
func Duplicate(msg string) *Error {
	return &Error{Kind: KindDuplicate, Message: msg}
}

// Conflict reports a balance that changed under the caller's feet; the
// action was rejected without mutation and may be resubmitted.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// KindOf extracts the kind from an error chain
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}
