package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrLockTimeout is returned when a row lock could not be acquired in time
	// or the transaction was chosen as a deadlock victim. Callers may retry.
	ErrLockTimeout = errors.New("lock wait timed out")
)
