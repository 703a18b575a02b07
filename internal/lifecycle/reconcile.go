package lifecycle

import (
	"time"

	"tripdesk/internal/domain"
)

// Change is a status correction produced by Plan.
type Change struct {
	TripID string            `json:"trip_id"`
	From   domain.TripStatus `json:"from"`
	To     domain.TripStatus `json:"to"`
}

// Plan lists the non-cancelled trips whose stored status no longer matches
// their date. Trips are not modified; input order is kept.
func Plan(trips []*domain.Trip, today time.Time) []Change {
	var changes []Change
	for _, t := range trips {
		if t == nil || t.Status == domain.TripStatusCancelled {
			continue
		}
		if want, ok := NeedsReconcile(t, today); ok {
			changes = append(changes, Change{TripID: t.ID, From: t.Status, To: want})
		}
	}
	return changes
}

// NeedsReconcile returns the derived status and true when it differs from
// the stored one. Cancelled trips never need reconciling.
func NeedsReconcile(t *domain.Trip, today time.Time) (domain.TripStatus, bool) {
	if t.Status == domain.TripStatusCancelled {
		return t.Status, false
	}
	want := Derive(t.Date, t.Status, today)
	return want, want != t.Status
}
