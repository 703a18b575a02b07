package tests

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"tripdesk/internal/clock"
	"tripdesk/internal/domain"
	"tripdesk/internal/repository"
	"tripdesk/internal/service"
)

func TestReconcile_CompletesPastActiveTrips(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addTrip("past-active", yesterday, domain.TripStatusActive, false)
	env.addTrip("future-active", tomorrow, domain.TripStatusActive, false)
	env.addTrip("past-cancelled", yesterday, domain.TripStatusCancelled, true)
	env.addTrip("today-active", today, domain.TripStatusActive, false)

	result, err := env.reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env.notify.Wait()

	if len(result.Updated) != 1 || result.Updated[0].TripID != "past-active" {
		t.Fatalf("expected only past-active updated, got %+v", result.Updated)
	}
	if result.Updated[0].To != domain.TripStatusCompleted {
		t.Errorf("expected status %s, got %s", domain.TripStatusCompleted, result.Updated[0].To)
	}
	if result.Checked != 3 {
		t.Errorf("expected 3 non-cancelled trips checked, got %d", result.Checked)
	}

	stored := env.trips.GetTrip("past-active")
	if stored.Status != domain.TripStatusCompleted {
		t.Errorf("expected stored status %s, got %s", domain.TripStatusCompleted, stored.Status)
	}
	if stored.IsSettled {
		t.Error("expected settlement flag untouched")
	}
	if got := env.trips.GetTrip("past-cancelled").Status; got != domain.TripStatusCancelled {
		t.Errorf("expected cancelled trip untouched, got %s", got)
	}

	entries := env.audit.Entries(domain.AuditTripReconcile)
	if len(entries) != 1 || entries[0].ActorID != domain.SystemActor.ID {
		t.Errorf("expected 1 system reconcile audit entry, got %d", len(entries))
	}
	if got := len(env.sender.Sent(service.NotificationTripCompleted)); got != 1 {
		t.Errorf("expected 1 completion notification, got %d", got)
	}
	if got := len(env.sender.Sent(service.NotificationReconcileReport)); got != 1 {
		t.Errorf("expected 1 reconcile report, got %d", got)
	}
}

func TestReconcile_RevertsCompletedFutureTrip(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addTrip("trip-1", tomorrow, domain.TripStatusCompleted, false)

	result, err := env.reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Updated) != 1 || result.Updated[0].To != domain.TripStatusActive {
		t.Fatalf("expected trip-1 back to active, got %+v", result.Updated)
	}
}

func TestReconcile_IsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addTrip("trip-1", yesterday, domain.TripStatusActive, false)
	env.addTrip("trip-2", yesterday.AddDate(0, 0, -10), domain.TripStatusActive, true)

	first, err := env.reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Updated) != 2 {
		t.Fatalf("expected 2 updates on first pass, got %d", len(first.Updated))
	}
	saves := env.trips.SaveCallCount + env.trips.SaveManyCallCount

	second, err := env.reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Updated) != 0 {
		t.Errorf("expected no updates on second pass, got %+v", second.Updated)
	}
	if got := env.trips.SaveCallCount + env.trips.SaveManyCallCount; got != saves {
		t.Errorf("expected no new saves, got %d", got-saves)
	}
}

// staleTripRepository serves GetMany from a snapshot taken before the test
// mutates the store, so the planner sees outdated statuses.
type staleTripRepository struct {
	*MockTripRepository
	snapshot []*domain.Trip
}

func (s *staleTripRepository) GetMany(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	return s.snapshot, nil
}

func TestReconcile_RechecksBeforeWriting(t *testing.T) {
	t.Parallel()
	trips := NewMockTripRepository()
	trips.AddTrip(&domain.Trip{ID: "trip-1", Date: yesterday, Status: domain.TripStatusActive})

	snapshot, err := trips.GetMany(context.Background(), repository.TripFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A user cancels the trip after the pass read its candidates.
	trips.SetStatus("trip-1", domain.TripStatusCancelled, true)

	reconciler := service.NewReconciler(service.TripServiceDeps{
		Trips: &staleTripRepository{MockTripRepository: trips, snapshot: snapshot},
		Locks: NewMockLockStore(),
		Clock: clock.Fixed{Day: today},
	})

	result, err := reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Updated) != 0 || result.Skipped != 1 {
		t.Errorf("expected 0 updated and 1 skipped, got %d updated %d skipped", len(result.Updated), result.Skipped)
	}
	if got := trips.GetTrip("trip-1").Status; got != domain.TripStatusCancelled {
		t.Errorf("expected user cancellation to win, got %s", got)
	}
}

func TestReconcile_WritesPlanInOneBatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	for i := 1; i <= 3; i++ {
		env.addTrip(fmt.Sprintf("trip-%d", i), yesterday, domain.TripStatusActive, false)
	}

	result, err := env.reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Updated) != 3 {
		t.Fatalf("expected 3 updated, got %d", len(result.Updated))
	}
	if env.trips.SaveManyCallCount != 1 || env.trips.SaveCallCount != 0 {
		t.Errorf("expected 1 batch save and no single saves, got %d/%d", env.trips.SaveManyCallCount, env.trips.SaveCallCount)
	}
}

func TestReconcile_FailedBatchFallsBackToSingleSaves(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.trips.SaveManyError = ErrMockTimeout
	env.addTrip("trip-1", yesterday, domain.TripStatusActive, false)
	env.addTrip("trip-2", tomorrow, domain.TripStatusCompleted, false)

	result, err := env.reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Updated) != 2 || result.Failed != 0 {
		t.Fatalf("expected 2 updated via fallback, got %d updated %d failed", len(result.Updated), result.Failed)
	}
	if env.trips.SaveCallCount != 2 {
		t.Errorf("expected 2 single saves, got %d", env.trips.SaveCallCount)
	}
	if got := env.trips.GetTrip("trip-2").Status; got != domain.TripStatusActive {
		t.Errorf("expected trip-2 active, got %s", got)
	}
}

func TestReconcile_SkipsWhenAnotherPassRuns(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addTrip("trip-1", yesterday, domain.TripStatusActive, false)
	env.locks.Hold("lock:reconcile", time.Minute)

	_, err := env.reconciler.ReconcileAll(context.Background())
	if !errors.Is(err, service.ErrReconcileInProgress) {
		t.Fatalf("expected ErrReconcileInProgress, got %v", err)
	}
	if got := env.trips.GetTrip("trip-1").Status; got != domain.TripStatusActive {
		t.Errorf("expected trip untouched, got %s", got)
	}
}

func TestReconcile_BusyTripCountsAsFailed(t *testing.T) {
	t.Parallel()
	env := newTestEnvWithLock(t, service.LockConfig{TTL: time.Second, Wait: 30 * time.Millisecond})
	env.addTrip("trip-1", yesterday, domain.TripStatusActive, false)
	env.addTrip("trip-2", yesterday, domain.TripStatusActive, false)
	env.locks.Hold("lock:trip:trip-1", time.Minute)

	result, err := env.reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || len(result.Updated) != 1 {
		t.Errorf("expected 1 failed and 1 updated, got %d failed %d updated", result.Failed, len(result.Updated))
	}
}

func TestReconcile_StoreErrorPropagates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.trips.GetManyError = ErrMockTimeout

	_, err := env.reconciler.ReconcileAll(context.Background())
	if !errors.Is(err, ErrMockTimeout) {
		t.Fatalf("expected ErrMockTimeout, got %v", err)
	}
	if env.locks.IsLocked("lock:reconcile") {
		t.Error("expected reconcile lock to be released")
	}
}

// advancingClock returns whatever day is currently set.
type advancingClock struct {
	day time.Time
}

func (c *advancingClock) Today() time.Time { return c.day }

func TestScheduler_RunsOncePerDay(t *testing.T) {
	t.Parallel()
	trips := NewMockTripRepository()
	trips.AddTrip(&domain.Trip{ID: "trip-1", Date: tomorrow, Status: domain.TripStatusActive})

	clk := &advancingClock{day: today}
	deps := service.TripServiceDeps{
		Trips: trips,
		Locks: NewMockLockStore(),
		Clock: clk,
	}
	var logs bytes.Buffer
	scheduler := service.NewScheduler(service.NewReconciler(deps), clk, time.Minute, log.New(&logs, "", 0))
	ctx := context.Background()

	if !scheduler.RunIfDue(ctx) {
		t.Fatal("expected first run to execute")
	}
	if scheduler.RunIfDue(ctx) {
		t.Error("expected second run on the same day to be skipped")
	}
	if got := trips.GetTrip("trip-1").Status; got != domain.TripStatusActive {
		t.Errorf("expected trip still active today, got %s", got)
	}

	// The trip date passes overnight.
	clk.day = tomorrow.AddDate(0, 0, 1)
	if !scheduler.RunIfDue(ctx) {
		t.Fatal("expected run after day change")
	}
	if got := trips.GetTrip("trip-1").Status; got != domain.TripStatusCompleted {
		t.Errorf("expected trip completed, got %s", got)
	}
}

func TestScheduler_RetriesAfterFailure(t *testing.T) {
	t.Parallel()
	trips := NewMockTripRepository()
	trips.GetManyError = ErrMockTimeout

	deps := service.TripServiceDeps{
		Trips: trips,
		Locks: NewMockLockStore(),
		Clock: clock.Fixed{Day: today},
	}
	var logs bytes.Buffer
	scheduler := service.NewScheduler(service.NewReconciler(deps), clock.Fixed{Day: today}, time.Minute, log.New(&logs, "", 0))

	if scheduler.RunIfDue(context.Background()) {
		t.Fatal("expected failed run to report false")
	}
	trips.GetManyError = nil
	if !scheduler.RunIfDue(context.Background()) {
		t.Error("expected retry on the same day after a failure")
	}
}

func TestScheduler_RetriesTripsThatFailedEarlierToday(t *testing.T) {
	t.Parallel()
	env := newTestEnvWithLock(t, service.LockConfig{TTL: time.Second, Wait: 0})
	env.addTrip("trip-1", yesterday, domain.TripStatusActive, false)
	env.locks.Hold("lock:trip:trip-1", time.Minute)

	var logs bytes.Buffer
	scheduler := service.NewScheduler(env.reconciler, clock.Fixed{Day: today}, time.Minute, log.New(&logs, "", 0))
	ctx := context.Background()

	if scheduler.RunIfDue(ctx) {
		t.Fatal("expected a pass with failed trips to report false")
	}
	if got := env.trips.GetTrip("trip-1").Status; got != domain.TripStatusActive {
		t.Fatalf("expected trip still %s while locked, got %s", domain.TripStatusActive, got)
	}

	env.locks.Free("lock:trip:trip-1")
	if !scheduler.RunIfDue(ctx) {
		t.Fatal("expected the same-day retry to run")
	}
	if got := env.trips.GetTrip("trip-1").Status; got != domain.TripStatusCompleted {
		t.Errorf("expected trip %s after retry, got %s", domain.TripStatusCompleted, got)
	}
	if scheduler.RunIfDue(ctx) {
		t.Error("expected no further pass once the day succeeded")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	t.Parallel()
	deps := service.TripServiceDeps{
		Trips: NewMockTripRepository(),
		Locks: NewMockLockStore(),
		Clock: clock.Fixed{Day: today},
	}
	var logs bytes.Buffer
	scheduler := service.NewScheduler(service.NewReconciler(deps), clock.Fixed{Day: today}, 10*time.Millisecond, log.New(&logs, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected scheduler to stop after cancel")
	}
}
