package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tripdesk/internal/domain"
)

var (
	today     = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	yesterday = today.AddDate(0, 0, -1)
	tomorrow  = today.AddDate(0, 0, 1)
)

func newTrip(status domain.TripStatus, date time.Time) *domain.Trip {
	return &domain.Trip{
		ID:        "trip-1",
		Date:      date,
		Status:    status,
		IsSettled: status == domain.TripStatusCancelled,
	}
}

// ──────────────────────────────────────────────
// DERIVATION
// ──────────────────────────────────────────────

func TestDerive(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		date    time.Time
		current domain.TripStatus
		want    domain.TripStatus
	}{
		{"future active stays active", tomorrow, domain.TripStatusActive, domain.TripStatusActive},
		{"today is still active", today, domain.TripStatusActive, domain.TripStatusActive},
		{"past active becomes completed", yesterday, domain.TripStatusActive, domain.TripStatusCompleted},
		{"future completed becomes active", tomorrow, domain.TripStatusCompleted, domain.TripStatusActive},
		{"past completed stays completed", yesterday, domain.TripStatusCompleted, domain.TripStatusCompleted},
		{"cancelled in the past is sticky", yesterday, domain.TripStatusCancelled, domain.TripStatusCancelled},
		{"cancelled in the future is sticky", tomorrow, domain.TripStatusCancelled, domain.TripStatusCancelled},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Derive(tc.date, tc.current, today)
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDerive_IsIdempotent(t *testing.T) {
	t.Parallel()

	for _, date := range []time.Time{yesterday, today, tomorrow} {
		for _, s := range []domain.TripStatus{domain.TripStatusActive, domain.TripStatusCompleted} {
			once := Derive(date, s, today)
			twice := Derive(date, once, today)
			if once != twice {
				t.Errorf("date=%s status=%s: derive not idempotent (%s then %s)", date.Format(time.DateOnly), s, once, twice)
			}
		}
	}
}

func TestDerive_IgnoresTimeOfDayAndLocation(t *testing.T) {
	t.Parallel()

	cairo := time.FixedZone("EET", 2*60*60)
	// 23:30 on the 9th local time is still the 9th, so the trip is in the past.
	lateYesterday := time.Date(2026, time.March, 9, 23, 30, 0, 0, cairo)
	if got := Derive(lateYesterday, domain.TripStatusActive, today); got != domain.TripStatusCompleted {
		t.Errorf("expected completed, got %s", got)
	}

	// Today reported as 00:15 local still counts as the 10th.
	localToday := time.Date(2026, time.March, 10, 0, 15, 0, 0, cairo)
	if got := Derive(today, domain.TripStatusActive, localToday); got != domain.TripStatusActive {
		t.Errorf("expected active, got %s", got)
	}
}

func TestInitialStatus(t *testing.T) {
	t.Parallel()

	if got := InitialStatus(tomorrow, today); got != domain.TripStatusActive {
		t.Errorf("expected active for future trip, got %s", got)
	}
	if got := InitialStatus(today, today); got != domain.TripStatusActive {
		t.Errorf("expected active for trip dated today, got %s", got)
	}
	if got := InitialStatus(yesterday, today); got != domain.TripStatusCompleted {
		t.Errorf("expected completed for past trip, got %s", got)
	}
}

// ──────────────────────────────────────────────
// SETTLEMENT
// ──────────────────────────────────────────────

func TestSettlementValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		collection, commercial string
		want                   string
		direction              string
	}{
		{"500", "700", "-200", "owed_by_agency"},
		{"900", "700", "200", "owed_to_agency"},
		{"700", "700", "0", "balanced"},
		{"0", "0", "0", "balanced"},
		{"120.50", "100.25", "20.25", "owed_to_agency"},
	}

	for _, tc := range cases {
		trip := &domain.Trip{
			Collection:      decimal.RequireFromString(tc.collection),
			CommercialPrice: decimal.RequireFromString(tc.commercial),
		}
		got := SettlementValue(trip)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("collection=%s commercial=%s: expected %s, got %s", tc.collection, tc.commercial, tc.want, got)
		}
		if dir := SettlementDirection(got); dir != tc.direction {
			t.Errorf("expected direction %s, got %s", tc.direction, dir)
		}
	}
}

func TestSettlementValue_ZeroValueFieldsCountAsZero(t *testing.T) {
	t.Parallel()

	if got := SettlementValue(&domain.Trip{}); !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
	if got := SettlementValue(nil); !got.IsZero() {
		t.Errorf("expected 0 for nil trip, got %s", got)
	}
}

func TestSettlementValue_IsPure(t *testing.T) {
	t.Parallel()

	a := &domain.Trip{ID: "a", Collection: decimal.NewFromInt(500), CommercialPrice: decimal.NewFromInt(700), Status: domain.TripStatusActive}
	b := &domain.Trip{ID: "b", Collection: decimal.NewFromInt(500), CommercialPrice: decimal.NewFromInt(700), Status: domain.TripStatusCancelled, IsSettled: true}

	first := SettlementValue(a)
	for i := 0; i < 3; i++ {
		if !SettlementValue(a).Equal(first) {
			t.Fatal("settlement value changed between calls")
		}
	}
	if !SettlementValue(b).Equal(first) {
		t.Errorf("equal inputs gave different outputs: %s vs %s", first, SettlementValue(b))
	}
}

// ──────────────────────────────────────────────
// TRANSITIONS
// ──────────────────────────────────────────────

func TestCheckTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		from      domain.TripStatus
		date      time.Time
		to        domain.TripStatus
		wantGuard Guard // empty means accepted
		wantNoOp  bool
		wantSettl bool
	}{
		{"active to completed rejected", domain.TripStatusActive, yesterday, domain.TripStatusCompleted, GuardReconciliationOnly, false, false},
		{"completed to active rejected", domain.TripStatusCompleted, tomorrow, domain.TripStatusActive, GuardReconciliationOnly, false, false},
		{"active to cancelled", domain.TripStatusActive, tomorrow, domain.TripStatusCancelled, "", false, true},
		{"completed to cancelled", domain.TripStatusCompleted, yesterday, domain.TripStatusCancelled, "", false, true},
		{"cancelled to active future", domain.TripStatusCancelled, tomorrow, domain.TripStatusActive, "", false, false},
		{"cancelled to active today", domain.TripStatusCancelled, today, domain.TripStatusActive, "", false, false},
		{"cancelled to active past", domain.TripStatusCancelled, yesterday, domain.TripStatusActive, GuardDatePassed, false, false},
		{"cancelled to completed past", domain.TripStatusCancelled, yesterday, domain.TripStatusCompleted, "", false, false},
		{"cancelled to completed today", domain.TripStatusCancelled, today, domain.TripStatusCompleted, GuardDateNotPassed, false, false},
		{"cancelled to cancelled", domain.TripStatusCancelled, yesterday, domain.TripStatusCancelled, "", true, false},
		{"active to active", domain.TripStatusActive, tomorrow, domain.TripStatusActive, "", true, false},
		{"completed to completed", domain.TripStatusCompleted, yesterday, domain.TripStatusCompleted, "", true, false},
		{"unknown target", domain.TripStatusActive, tomorrow, domain.TripStatus("pending"), GuardUnknownStatus, false, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			trip := newTrip(tc.from, tc.date)
			before := *trip

			tr, err := CheckTransition(trip, tc.to, today)
			if *trip != before {
				t.Fatal("CheckTransition mutated the trip")
			}

			if tc.wantGuard != "" {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				var te *TransitionError
				if !errors.As(err, &te) {
					t.Fatalf("expected *TransitionError, got %T", err)
				}
				if te.Guard != tc.wantGuard || te.From != tc.from || te.To != tc.to || te.TripID != "trip-1" {
					t.Errorf("unexpected error details: %+v", te)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.NoOp != tc.wantNoOp {
				t.Errorf("expected NoOp=%v, got %v", tc.wantNoOp, tr.NoOp)
			}
			if tr.Settle != tc.wantSettl {
				t.Errorf("expected Settle=%v, got %v", tc.wantSettl, tr.Settle)
			}
		})
	}
}

func TestCheckTransition_CompletedToActiveRejected(t *testing.T) {
	t.Parallel()

	trip := newTrip(domain.TripStatusCompleted, tomorrow)
	_, err := CheckTransition(trip, domain.TripStatusActive, today)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCheckTransition_CancelledFutureReactivates(t *testing.T) {
	t.Parallel()

	trip := newTrip(domain.TripStatusCancelled, tomorrow)
	tr, err := CheckTransition(trip, domain.TripStatusActive, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Apply(trip, tr)
	if trip.Status != domain.TripStatusActive {
		t.Errorf("expected active, got %s", trip.Status)
	}
}

func TestCheckTransition_CancelledPastCannotReactivate(t *testing.T) {
	t.Parallel()

	trip := newTrip(domain.TripStatusCancelled, yesterday)
	_, err := CheckTransition(trip, domain.TripStatusActive, today)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApply_CancelSettles(t *testing.T) {
	t.Parallel()

	trip := newTrip(domain.TripStatusActive, tomorrow)
	tr, err := CheckTransition(trip, domain.TripStatusCancelled, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Apply(trip, tr)
	if trip.Status != domain.TripStatusCancelled || !trip.IsSettled {
		t.Errorf("expected cancelled and settled, got status=%s settled=%v", trip.Status, trip.IsSettled)
	}
	if err := CheckInvariants(trip); err != nil {
		t.Errorf("unexpected invariant error: %v", err)
	}
}

func TestCheckSettlement(t *testing.T) {
	t.Parallel()

	active := newTrip(domain.TripStatusActive, tomorrow)
	changed, err := CheckSettlement(active, true)
	if err != nil || !changed {
		t.Errorf("expected change without error, got changed=%v err=%v", changed, err)
	}

	changed, err = CheckSettlement(active, false)
	if err != nil || changed {
		t.Errorf("expected no change without error, got changed=%v err=%v", changed, err)
	}

	cancelled := newTrip(domain.TripStatusCancelled, yesterday)
	_, err = CheckSettlement(cancelled, false)
	if !errors.Is(err, ErrSettlementLocked) {
		t.Errorf("expected ErrSettlementLocked, got %v", err)
	}

	changed, err = CheckSettlement(cancelled, true)
	if err != nil || changed {
		t.Errorf("settling a cancelled trip should be a no-op, got changed=%v err=%v", changed, err)
	}
}

func TestCheckInvariants(t *testing.T) {
	t.Parallel()

	bad := &domain.Trip{ID: "x", Status: domain.TripStatusCancelled}
	if err := CheckInvariants(bad); !errors.Is(err, ErrInvariantViolated) {
		t.Errorf("expected ErrInvariantViolated, got %v", err)
	}

	unknown := &domain.Trip{ID: "y", Status: "draft"}
	if err := CheckInvariants(unknown); !errors.Is(err, ErrInvariantViolated) {
		t.Errorf("expected ErrInvariantViolated for unknown status, got %v", err)
	}
}

// ──────────────────────────────────────────────
// RECONCILIATION PLAN
// ──────────────────────────────────────────────

func TestPlan_PastActiveBecomesCompleted(t *testing.T) {
	t.Parallel()

	trip := newTrip(domain.TripStatusActive, yesterday)
	changes := Plan([]*domain.Trip{trip}, today)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].To != domain.TripStatusCompleted || changes[0].From != domain.TripStatusActive {
		t.Errorf("unexpected change: %+v", changes[0])
	}
	if trip.Status != domain.TripStatusActive {
		t.Error("Plan must not modify trips")
	}
}

func TestPlan_SkipsCancelledAndConsistentTrips(t *testing.T) {
	t.Parallel()

	trips := []*domain.Trip{
		{ID: "cancelled-past", Date: yesterday, Status: domain.TripStatusCancelled, IsSettled: true},
		{ID: "cancelled-future", Date: tomorrow, Status: domain.TripStatusCancelled, IsSettled: true},
		{ID: "active-future", Date: tomorrow, Status: domain.TripStatusActive},
		{ID: "completed-past", Date: yesterday, Status: domain.TripStatusCompleted},
		{ID: "completed-future", Date: tomorrow, Status: domain.TripStatusCompleted},
		nil,
	}

	changes := Plan(trips, today)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %+v", len(changes), changes)
	}
	if changes[0].TripID != "completed-future" || changes[0].To != domain.TripStatusActive {
		t.Errorf("unexpected change: %+v", changes[0])
	}
}

func TestPlan_IdempotentAfterApplying(t *testing.T) {
	t.Parallel()

	trips := []*domain.Trip{
		{ID: "a", Date: yesterday, Status: domain.TripStatusActive},
		{ID: "b", Date: tomorrow, Status: domain.TripStatusCompleted},
	}
	for _, c := range Plan(trips, today) {
		for _, tr := range trips {
			if tr.ID == c.TripID {
				tr.Status = c.To
			}
		}
	}
	if again := Plan(trips, today); len(again) != 0 {
		t.Errorf("expected no changes on second pass, got %+v", again)
	}
}
