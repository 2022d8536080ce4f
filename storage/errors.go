package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when an artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrLocked is returned when an artifact lock could not be acquired
	// before the context ended.
	ErrLocked = errors.New("artifact is locked")
)
