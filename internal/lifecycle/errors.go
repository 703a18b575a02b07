package lifecycle

import (
	"errors"
	"fmt"

	"tripdesk/internal/domain"
)

var (
	// ErrInvalidTransition is returned when a status change violates a guard.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrSettlementLocked is returned when unsettling a cancelled trip.
	ErrSettlementLocked = errors.New("settlement locked")

	// ErrInvariantViolated is returned when a record fails CheckInvariants.
	ErrInvariantViolated = errors.New("trip invariant violated")
)

// Guard identifies which transition rule rejected a request.
type Guard string

const (
	GuardReconciliationOnly Guard = "reconciliation_only"
	GuardDatePassed         Guard = "date_passed"
	GuardDateNotPassed      Guard = "date_not_passed"
	GuardUnknownStatus      Guard = "unknown_status"
)

func (g Guard) describe() string {
	switch g {
	case GuardReconciliationOnly:
		return "active/completed follows the trip date and is set by reconciliation only"
	case GuardDatePassed:
		return "trip date has already passed"
	case GuardDateNotPassed:
		return "trip date has not passed yet"
	case GuardUnknownStatus:
		return "unknown status"
	default:
		return string(g)
	}
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	TripID string
	From   domain.TripStatus
	To     domain.TripStatus
	Guard  Guard
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for trip %s: %s", e.From, e.To, e.TripID, e.Guard.describe())
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// SettlementError describes a rejected settlement-flag change.
type SettlementError struct {
	TripID string
	Status domain.TripStatus
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement locked for trip %s: %s trips stay settled", e.TripID, e.Status)
}

// Is makes errors.Is(err, ErrSettlementLocked) match.
func (e *SettlementError) Is(target error) bool {
	return target == ErrSettlementLocked
}
