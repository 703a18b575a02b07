package lifecycle

import (
	"fmt"
	"time"

	"tripdesk/internal/domain"
)

// Transition is an accepted status change.
type Transition struct {
	From   domain.TripStatus
	To     domain.TripStatus
	NoOp   bool // Target equals the current status; nothing to write.
	Settle bool // The change forces IsSettled to true.
}

// CheckTransition decides whether trip may move to the target status by
// hand. It never mutates trip.
//
//	any       -> cancelled  always; settles the trip
//	cancelled -> active     only while the trip date is today or later
//	cancelled -> completed  only once the trip date has passed
//	active   <-> completed  never; reconciliation owns this edge
//	x         -> x          no-op
func CheckTransition(trip *domain.Trip, to domain.TripStatus, today time.Time) (Transition, error) {
	from := trip.Status
	reject := func(g Guard) (Transition, error) {
		return Transition{}, &TransitionError{TripID: trip.ID, From: from, To: to, Guard: g}
	}

	if !to.Valid() {
		return reject(GuardUnknownStatus)
	}
	if from == to {
		return Transition{From: from, To: to, NoOp: true}, nil
	}
	if to == domain.TripStatusCancelled {
		return Transition{From: from, To: to, Settle: true}, nil
	}

	switch from {
	case domain.TripStatusCancelled:
		past := IsPast(trip.Date, today)
		if to == domain.TripStatusActive && past {
			return reject(GuardDatePassed)
		}
		if to == domain.TripStatusCompleted && !past {
			return reject(GuardDateNotPassed)
		}
		return Transition{From: from, To: to}, nil
	case domain.TripStatusActive, domain.TripStatusCompleted:
		return reject(GuardReconciliationOnly)
	default:
		return reject(GuardUnknownStatus)
	}
}

// Apply writes an accepted transition onto trip.
func Apply(trip *domain.Trip, tr Transition) {
	if tr.NoOp {
		return
	}
	trip.Status = tr.To
	if tr.Settle {
		trip.IsSettled = true
	}
}

// CheckSettlement decides whether the settled flag may be set to settled.
// The bool result is false when the flag already has that value.
func CheckSettlement(trip *domain.Trip, settled bool) (bool, error) {
	if !settled && trip.Status == domain.TripStatusCancelled {
		return false, &SettlementError{TripID: trip.ID, Status: trip.Status}
	}
	return trip.IsSettled != settled, nil
}

// CheckInvariants validates a record before it is persisted.
func CheckInvariants(trip *domain.Trip) error {
	if !trip.Status.Valid() {
		return fmt.Errorf("%w: trip %s has status %q", ErrInvariantViolated, trip.ID, trip.Status)
	}
	if trip.Status == domain.TripStatusCancelled && !trip.IsSettled {
		return fmt.Errorf("%w: cancelled trip %s is not settled", ErrInvariantViolated, trip.ID)
	}
	return nil
}
