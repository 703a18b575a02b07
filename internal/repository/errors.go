package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when a save loses an optimistic
	// concurrency check against a newer write.
	ErrVersionConflict = errors.New("version conflict")
)
