package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is().
// Not-found conditions in store operations are deliberately NOT errors;
// they are silent no-ops so idempotent UI retries stay invisible.
var (
	// State errors
	ErrCommandClosed = errors.New("command already closed")
	ErrCashierClosed = errors.New("cashier is closed")
	ErrInvalidInput  = errors.New("invalid input")

	// Persistence errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCorruptSnapshot    = errors.New("corrupt state snapshot")

	// Broadcast errors
	ErrBroadcastFailed = errors.New("broadcast failed")
)

// StoreError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type StoreError struct {
	Op   string // Operation that failed (e.g., "store.CloseCommand")
	Kind string // Error kind (e.g., "command", "storage", "broadcast")
	ID   string // Optional ID of the entity involved
	Err  error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op, kind string, err error) *StoreError {
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// IsStorageError checks if an error came from the persistence layer.
// Storage failures are fatal to the operation; the caller must not assume
// the mutation was applied.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrCorruptSnapshot)
}

// IsStateError checks if an error is a rejected state transition.
func IsStateError(err error) bool {
	return errors.Is(err, ErrCommandClosed) ||
		errors.Is(err, ErrCashierClosed)
}
