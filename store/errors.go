package store

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOwnership is returned when a row exists but belongs to another user.
	ErrOwnership = errors.New("resource not owned by user")

	// ErrLedgerConflict is returned when an action transition is attempted
	// from a status other than the one the caller expected.
	ErrLedgerConflict = errors.New("action is not in a transitionable state")

	// ErrInvalidInput is returned when input data fails validation.
	ErrInvalidInput = errors.New("invalid input")
)
