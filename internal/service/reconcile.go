package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"tripdesk/internal/clock"
	"tripdesk/internal/domain"
	"tripdesk/internal/lifecycle"
	"tripdesk/internal/metrics"
	"tripdesk/internal/redis"
	"tripdesk/internal/repository"
)

// reconcilePassTTL bounds how long a crashed instance can hold the
// reconciliation lock.
const reconcilePassTTL = 5 * time.Minute

// reconcileBatchSize caps how many trip locks one batch holds at once.
const reconcileBatchSize = 25

// ReconcileResult reports one reconciliation pass.
type ReconcileResult struct {
	Today   time.Time          `json:"today"`
	Checked int                `json:"checked"`
	Updated []lifecycle.Change `json:"updated"`
	Skipped int                `json:"skipped"` // Planned changes dropped at write time.
	Failed  int                `json:"failed"`
}

// Reconciler brings stored statuses back in line with trip dates. It is the
// only code path that moves trips between active and completed.
type Reconciler struct {
	tripRepo            repository.TripRepository
	locks               redis.LockStoreInterface
	cache               redis.TripCacheInterface
	clock               clock.Clock
	notificationService *NotificationService
	metrics             *metrics.Metrics
	locker              tripLocker
	audit               auditor
}

// NewReconciler creates a Reconciler from the same collaborators as
// TripService.
func NewReconciler(deps TripServiceDeps) *Reconciler {
	return &Reconciler{
		tripRepo:            deps.Trips,
		locks:               deps.Locks,
		cache:               deps.Cache,
		clock:               deps.Clock,
		notificationService: deps.Notifications,
		metrics:             deps.Metrics,
		locker:              newTripLocker(deps.Locks, deps.Lock),
		audit:               auditor{repo: deps.Audit},
	}
}

// ReconcileAll runs one pass over every non-cancelled trip. Each planned
// change is re-checked against a fresh read under the trip lock before it is
// written, so concurrent user edits win.
func (r *Reconciler) ReconcileAll(ctx context.Context) (ReconcileResult, error) {
	start := time.Now()
	today := r.clock.Today()
	result := ReconcileResult{Today: today, Updated: []lifecycle.Change{}}

	passLock, err := r.locks.AcquireReconcileLock(ctx, reconcilePassTTL)
	if err != nil {
		r.metrics.ObserveReconcile(metrics.ResultError, 0, time.Since(start))
		return result, err
	}
	if passLock == nil {
		r.metrics.ObserveReconcile(metrics.ResultSkipped, 0, time.Since(start))
		return result, ErrReconcileInProgress
	}
	defer r.locker.release(passLock)

	trips, err := r.tripRepo.GetMany(ctx, repository.TripFilter{ExcludeStatus: domain.TripStatusCancelled})
	if err != nil {
		r.metrics.ObserveReconcile(metrics.ResultError, 0, time.Since(start))
		return result, err
	}
	result.Checked = len(trips)

	plan := lifecycle.Plan(trips, today)
	for len(plan) > 0 {
		if err := ctx.Err(); err != nil {
			r.metrics.ObserveReconcile(metrics.ResultError, len(result.Updated), time.Since(start))
			return result, err
		}
		n := min(reconcileBatchSize, len(plan))
		r.applyBatch(ctx, plan[:n], today, &result)
		plan = plan[n:]
	}

	r.notificationService.NotifyReconcileReport(result)
	r.metrics.ObserveReconcile(metrics.ResultSuccess, len(result.Updated), time.Since(start))
	log.Printf("reconcile pass for %s: checked=%d updated=%d skipped=%d failed=%d",
		today.Format(time.DateOnly), result.Checked, len(result.Updated), result.Skipped, result.Failed)

	return result, nil
}

// pendingWrite is a re-checked change waiting to be saved.
type pendingWrite struct {
	change  lifecycle.Change
	working *domain.Trip
}

// applyBatch locks and re-reads every trip in batch, keeps the ones still
// non-cancelled and still mismatched, and writes them with one SaveMany. If
// the batch write fails, each trip is saved on its own so one conflicting
// trip does not hold back the rest.
func (r *Reconciler) applyBatch(ctx context.Context, batch []lifecycle.Change, today time.Time, result *ReconcileResult) {
	var pending []pendingWrite
	for _, change := range batch {
		lock, err := r.locker.acquire(ctx, change.TripID)
		if err != nil {
			log.Printf("reconcile failed for trip %s: %v", change.TripID, err)
			result.Failed++
			continue
		}
		// Held until the batch is written.
		defer r.locker.release(lock)

		w, ok, err := r.recheck(ctx, change.TripID, today)
		switch {
		case err != nil:
			log.Printf("reconcile failed for trip %s: %v", change.TripID, err)
			result.Failed++
		case !ok:
			result.Skipped++
		default:
			pending = append(pending, w)
		}
	}
	if len(pending) == 0 {
		return
	}

	trips := make([]*domain.Trip, len(pending))
	for i, w := range pending {
		trips[i] = w.working
	}
	err := r.tripRepo.SaveMany(ctx, trips)
	if err == nil {
		for _, w := range pending {
			r.written(ctx, w, result)
		}
		return
	}
	log.Printf("reconcile batch save of %d trip(s) failed, saving one by one: %v", len(pending), err)

	for _, w := range pending {
		err := r.tripRepo.Save(ctx, w.working)
		switch {
		case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrNotFound):
			result.Skipped++
		case err != nil:
			log.Printf("reconcile failed for trip %s: %v", w.change.TripID, err)
			result.Failed++
		default:
			r.written(ctx, w, result)
		}
	}
}

// recheck re-reads one trip and returns the write to make if it is still
// non-cancelled and still mismatched. The caller holds the trip lock.
func (r *Reconciler) recheck(ctx context.Context, tripID string, today time.Time) (pendingWrite, bool, error) {
	current, err := r.tripRepo.GetByID(ctx, tripID)
	if errors.Is(err, repository.ErrNotFound) {
		return pendingWrite{}, false, nil
	}
	if err != nil {
		return pendingWrite{}, false, err
	}

	want, ok := lifecycle.NeedsReconcile(current, today)
	if !ok {
		return pendingWrite{}, false, nil
	}

	working := current.Clone()
	working.Status = want
	working.UpdatedAt = time.Now()
	if err := lifecycle.CheckInvariants(working); err != nil {
		return pendingWrite{}, false, err
	}
	return pendingWrite{
		change:  lifecycle.Change{TripID: tripID, From: current.Status, To: want},
		working: working,
	}, true, nil
}

// written runs the follow-ups of a saved reconciliation change.
func (r *Reconciler) written(ctx context.Context, w pendingWrite, result *ReconcileResult) {
	result.Updated = append(result.Updated, w.change)

	refreshCache(ctx, r.cache, w.working)

	r.audit.record(ctx, domain.SystemActor, domain.AuditTripReconcile, w.change.TripID, map[string]any{
		"from": w.change.From,
		"to":   w.change.To,
		"date": w.working.Date.Format(time.DateOnly),
	})
	if w.change.To == domain.TripStatusCompleted {
		r.notificationService.NotifyTripCompleted(w.working)
	}
}

// Scheduler runs a reconciliation pass at start and again whenever the
// reference-timezone day changes.
type Scheduler struct {
	reconciler *Reconciler
	clock      clock.Clock
	interval   time.Duration
	logger     *log.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// NewScheduler constructs a Scheduler. interval is how often the day is
// checked; it defaults to one minute.
func NewScheduler(reconciler *Reconciler, c clock.Clock, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		reconciler: reconciler,
		clock:      c,
		interval:   interval,
		logger:     logger,
	}
}

// Start begins the scheduler loop and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.reconciler == nil {
		return
	}
	s.RunIfDue(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunIfDue(ctx)
		}
	}
}

// RunIfDue runs a pass unless one already succeeded today. A pass that
// left trips failed does not count, so the next tick retries them. It
// reports whether a pass ran successfully.
func (s *Scheduler) RunIfDue(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := clock.CivilDate(s.clock.Today())
	if !s.lastRun.IsZero() && s.lastRun.Equal(today) {
		return false
	}

	result, err := s.reconciler.ReconcileAll(ctx)
	if errors.Is(err, ErrReconcileInProgress) {
		s.logger.Printf("reconcile schedule: another instance is running a pass")
		return false
	}
	if err != nil {
		s.logger.Printf("reconcile schedule error: %v", err)
		return false
	}

	if result.Failed > 0 {
		s.logger.Printf("reconcile schedule: updated %d trip(s), %d failed, retrying next tick", len(result.Updated), result.Failed)
		return false
	}

	s.lastRun = today
	s.logger.Printf("reconcile schedule: updated %d trip(s)", len(result.Updated))
	return true
}
