package domainerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP boundary can pick a status code.
type Kind string

const (
	InvalidPayload      Kind = "invalid_payload"
	Unauthenticated     Kind = "unauthenticated"
	Forbidden           Kind = "forbidden"
	VotingDisabled      Kind = "voting_disabled"
	InsufficientBalance Kind = "insufficient_balance"
	InvalidAmount       Kind = "invalid_amount"
	SameAccount         Kind = "same_account"
	AccountNotFound     Kind = "account_not_found"
	StorageError        Kind = "storage_error"
)

// Error carries a Kind, a human readable message and an optional cause.
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

// New builds an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a Kind and message to err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the human readable message of err without the cause chain.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// EnsureKind returns err unchanged if it already carries a Kind, and wraps it
// as StorageError otherwise. Anything escaping a ledger transaction without a
// Kind is by definition a failure to commit.
func EnsureKind(op string, err error) error {
	if err == nil || KindOf(err) != "" {
		return err
	}
	return Wrap(StorageError, op, err)
}
