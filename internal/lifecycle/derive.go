// Package lifecycle holds the trip status and settlement rules. Every
// function here is pure: callers pass in "today" and get a decision back.
package lifecycle

import (
	"time"

	"tripdesk/internal/clock"
	"tripdesk/internal/domain"
)

// Derive returns the status a trip dated date should have as of today.
// Cancellation is sticky; otherwise a trip is active through its date and
// completed from the following day on.
func Derive(date time.Time, current domain.TripStatus, today time.Time) domain.TripStatus {
	if current == domain.TripStatusCancelled {
		return domain.TripStatusCancelled
	}
	if IsPast(date, today) {
		return domain.TripStatusCompleted
	}
	return domain.TripStatusActive
}

// InitialStatus is the status assigned to a newly booked trip.
func InitialStatus(date, today time.Time) domain.TripStatus {
	return Derive(date, domain.TripStatusActive, today)
}

// IsPast reports whether date falls strictly before today.
func IsPast(date, today time.Time) bool {
	return clock.CivilDate(date).Before(clock.CivilDate(today))
}
