package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrTripBusy is returned when a trip stays locked by another writer
	// for longer than the configured wait.
	ErrTripBusy = errors.New("trip is being modified by another request")

	// ErrInvalidBulkOperation is returned when a bulk request names no
	// operation or an unknown one.
	ErrInvalidBulkOperation = errors.New("invalid bulk operation")

	// ErrReconcileInProgress is returned when another instance holds the
	// reconciliation lock.
	ErrReconcileInProgress = errors.New("reconciliation already in progress")
)

// ValidationError reports a malformed trip field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
