package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tripdesk/internal/clock"
	"tripdesk/internal/domain"
	"tripdesk/internal/lifecycle"
	"tripdesk/internal/metrics"
	"tripdesk/internal/redis"
	"tripdesk/internal/repository"
)

// TripService handles single-trip operations.
type TripService struct {
	tripRepo            repository.TripRepository
	cache               redis.TripCacheInterface
	clock               clock.Clock
	notificationService *NotificationService
	metrics             *metrics.Metrics
	locker              tripLocker
	audit               auditor
}

// TripServiceDeps groups the collaborators of TripService. Cache,
// Notifications, Audit and Metrics are optional.
type TripServiceDeps struct {
	Trips         repository.TripRepository
	Locks         redis.LockStoreInterface
	Cache         redis.TripCacheInterface
	Clock         clock.Clock
	Audit         repository.AuditRepository
	Notifications *NotificationService
	Metrics       *metrics.Metrics
	Lock          LockConfig
}

// NewTripService creates a new TripService.
func NewTripService(deps TripServiceDeps) *TripService {
	return &TripService{
		tripRepo:            deps.Trips,
		cache:               deps.Cache,
		clock:               deps.Clock,
		notificationService: deps.Notifications,
		metrics:             deps.Metrics,
		locker:              newTripLocker(deps.Locks, deps.Lock),
		audit:               auditor{repo: deps.Audit},
	}
}

// CreateTripRequest contains the parameters for booking a trip.
type CreateTripRequest struct {
	Date            time.Time
	CommercialPrice decimal.Decimal
	TripPrice       decimal.Decimal
	PaidAmount      decimal.Decimal
	Collection      decimal.Decimal
	Commission      decimal.Decimal
	Quantity        int
	CustomerName    string
	SupplierName    string
	Destination     string
	Notes           string
}

// CreateTrip books a new trip. Its status follows its date.
func (s *TripService) CreateTrip(ctx context.Context, actor domain.Actor, req CreateTripRequest) (*domain.Trip, error) {
	now := time.Now()
	trip := &domain.Trip{
		ID:              uuid.New().String(),
		Date:            clock.CivilDate(req.Date),
		CommercialPrice: req.CommercialPrice,
		TripPrice:       req.TripPrice,
		PaidAmount:      req.PaidAmount,
		Collection:      req.Collection,
		Commission:      req.Commission,
		Quantity:        req.Quantity,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		SupplierName:    strings.TrimSpace(req.SupplierName),
		Destination:     strings.TrimSpace(req.Destination),
		Notes:           req.Notes,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Date.IsZero() {
		return nil, invalid("date", "is required")
	}
	if err := validateTrip(trip); err != nil {
		return nil, err
	}

	trip.Status = lifecycle.InitialStatus(trip.Date, s.clock.Today())
	if err := lifecycle.CheckInvariants(trip); err != nil {
		return nil, err
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.audit.record(ctx, actor, domain.AuditTripCreate, trip.ID, map[string]any{
		"date":   trip.Date.Format(time.DateOnly),
		"status": trip.Status,
	})

	return trip, nil
}

// UpdateTripRequest lists editable fields. Nil fields are left untouched.
type UpdateTripRequest struct {
	Date            *time.Time
	CommercialPrice *decimal.Decimal
	TripPrice       *decimal.Decimal
	PaidAmount      *decimal.Decimal
	Collection      *decimal.Decimal
	Commission      *decimal.Decimal
	Quantity        *int
	CustomerName    *string
	SupplierName    *string
	Destination     *string
	Notes           *string
}

// UpdateTrip edits a trip. A non-cancelled trip whose date changes gets its
// status re-derived in the same write, which makes a date edit the one
// manual path that can move a trip between active and completed.
func (s *TripService) UpdateTrip(ctx context.Context, actor domain.Actor, tripID string, req UpdateTripRequest) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	changes := map[string]any{}
	trip, changed, err := s.mutate(ctx, tripID, func(t *domain.Trip) (bool, error) {
		applyUpdate(t, req, changes)
		if len(changes) == 0 {
			return false, nil
		}
		if err := validateTrip(t); err != nil {
			return false, err
		}
		if _, ok := changes["date"]; ok {
			if status := lifecycle.Derive(t.Date, t.Status, s.clock.Today()); status != t.Status {
				changes["status"] = map[string]any{"from": t.Status, "to": status}
				t.Status = status
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.audit.record(ctx, actor, domain.AuditTripUpdate, trip.ID, changes)
	}
	return trip, nil
}

// GetTrip retrieves a trip, reading through the cache when one is configured.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	if s.cache != nil {
		cached, err := s.cache.GetTrip(ctx, tripID)
		if err != nil {
			log.Printf("trip cache read failed: trip=%s err=%v", tripID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetTrip(ctx, trip); err != nil {
			log.Printf("trip cache write failed: trip=%s err=%v", tripID, err)
		}
	}
	return trip, nil
}

// ListTrips returns trips matching filter straight from the store.
func (s *TripService) ListTrips(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, invalid("limit", "limit and offset must be non-negative")
	}
	if !filter.DateFrom.IsZero() && !filter.DateTo.IsZero() && filter.DateTo.Before(filter.DateFrom) {
		return nil, invalid("to", "must not be before from")
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, invalid("status", "unknown status %q", st)
		}
	}
	return s.tripRepo.GetMany(ctx, filter)
}

// Transition moves a trip to status to by hand. A request for the current
// status succeeds without writing.
func (s *TripService) Transition(ctx context.Context, actor domain.Actor, tripID string, to domain.TripStatus) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var tr lifecycle.Transition
	var wasSettled bool
	trip, changed, err := s.mutate(ctx, tripID, func(t *domain.Trip) (bool, error) {
		var err error
		tr, err = lifecycle.CheckTransition(t, to, s.clock.Today())
		if err != nil {
			return false, err
		}
		wasSettled = t.IsSettled
		lifecycle.Apply(t, tr)
		return !tr.NoOp, nil
	})
	if err != nil {
		s.metrics.ObserveTransition(string(to), resultFor(err))
		return nil, err
	}
	if !changed {
		s.metrics.ObserveTransition(string(to), metrics.ResultNoop)
		return trip, nil
	}
	s.metrics.ObserveTransition(string(to), metrics.ResultApplied)

	auditChanges := map[string]any{"from": tr.From, "to": tr.To}
	if trip.IsSettled != wasSettled {
		auditChanges["is_settled"] = map[string]any{"from": wasSettled, "to": trip.IsSettled}
	}
	s.audit.record(ctx, actor, domain.AuditTripTransition, trip.ID, auditChanges)

	switch trip.Status {
	case domain.TripStatusCancelled:
		s.notificationService.NotifyTripCancelled(trip, actor.ID)
	case domain.TripStatusCompleted:
		s.notificationService.NotifyTripCompleted(trip)
	}

	return trip, nil
}

// SetSettled sets the settlement flag. Cancelled trips cannot be unsettled.
func (s *TripService) SetSettled(ctx context.Context, actor domain.Actor, tripID string, settled bool) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, changed, err := s.mutate(ctx, tripID, func(t *domain.Trip) (bool, error) {
		changed, err := lifecycle.CheckSettlement(t, settled)
		if err != nil || !changed {
			return false, err
		}
		t.IsSettled = settled
		return true, nil
	})
	if err != nil {
		s.metrics.ObserveSettlement(resultFor(err))
		return nil, err
	}
	if !changed {
		s.metrics.ObserveSettlement(metrics.ResultNoop)
		return trip, nil
	}
	s.metrics.ObserveSettlement(metrics.ResultApplied)

	s.audit.record(ctx, actor, domain.AuditTripSettlement, trip.ID, map[string]any{
		"is_settled": map[string]any{"from": !settled, "to": settled},
		"settlement": lifecycle.SettlementValue(trip).StringFixed(2),
	})
	return trip, nil
}

// mutate runs a read-modify-write on one trip under its lock. fn works on a
// copy and reports whether it changed anything; nothing is saved when it
// returns false or an error.
func (s *TripService) mutate(ctx context.Context, tripID string, fn func(t *domain.Trip) (bool, error)) (*domain.Trip, bool, error) {
	lock, err := s.locker.acquire(ctx, tripID)
	if err != nil {
		return nil, false, err
	}
	defer s.locker.release(lock)

	current, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, false, err
	}

	working := current.Clone()
	changed, err := fn(working)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return current, false, nil
	}

	if err := lifecycle.CheckInvariants(working); err != nil {
		return nil, false, err
	}
	working.UpdatedAt = time.Now()
	if err := s.tripRepo.Save(ctx, working); err != nil {
		return nil, false, err
	}

	refreshCache(ctx, s.cache, working)
	return working, true, nil
}

// refreshCache writes a just-saved trip through to the cache. Its version
// outranks any copy a concurrent reader loaded before the save. When the
// write fails the entry is dropped instead.
func refreshCache(ctx context.Context, cache redis.TripCacheInterface, trip *domain.Trip) {
	if cache == nil {
		return
	}
	err := cache.SetTrip(ctx, trip)
	if err == nil {
		return
	}
	log.Printf("trip cache refresh failed: trip=%s err=%v", trip.ID, err)
	if err := cache.InvalidateTrip(ctx, trip.ID); err != nil {
		log.Printf("trip cache invalidation failed: trip=%s err=%v", trip.ID, err)
	}
}

func applyUpdate(t *domain.Trip, req UpdateTripRequest, changes map[string]any) {
	if req.Date != nil {
		if d := clock.CivilDate(*req.Date); !d.Equal(t.Date) {
			changes["date"] = map[string]any{"from": t.Date.Format(time.DateOnly), "to": d.Format(time.DateOnly)}
			t.Date = d
		}
	}
	setDecimal := func(name string, dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil && !dst.Equal(*v) {
			changes[name] = map[string]any{"from": dst.String(), "to": v.String()}
			*dst = *v
		}
	}
	setDecimal("commercial_price", &t.CommercialPrice, req.CommercialPrice)
	setDecimal("trip_price", &t.TripPrice, req.TripPrice)
	setDecimal("paid_amount", &t.PaidAmount, req.PaidAmount)
	setDecimal("collection", &t.Collection, req.Collection)
	setDecimal("commission", &t.Commission, req.Commission)

	if req.Quantity != nil && *req.Quantity != t.Quantity {
		changes["quantity"] = map[string]any{"from": t.Quantity, "to": *req.Quantity}
		t.Quantity = *req.Quantity
	}

	setString := func(name string, dst *string, v *string, trim bool) {
		if v == nil {
			return
		}
		val := *v
		if trim {
			val = strings.TrimSpace(val)
		}
		if val != *dst {
			changes[name] = map[string]any{"from": *dst, "to": val}
			*dst = val
		}
	}
	setString("customer_name", &t.CustomerName, req.CustomerName, true)
	setString("supplier_name", &t.SupplierName, req.SupplierName, true)
	setString("destination", &t.Destination, req.Destination, true)
	setString("notes", &t.Notes, req.Notes, false)
}

// validateTrip checks the financial fields of a trip being created or edited.
func validateTrip(t *domain.Trip) error {
	if t.Date.IsZero() {
		return invalid("date", "is required")
	}
	money := []struct {
		field string
		value decimal.Decimal
	}{
		{"commercial_price", t.CommercialPrice},
		{"trip_price", t.TripPrice},
		{"paid_amount", t.PaidAmount},
		{"collection", t.Collection},
		{"commission", t.Commission},
	}
	for _, m := range money {
		if m.value.IsNegative() {
			return invalid(m.field, "must not be negative")
		}
	}
	if t.Quantity < 0 {
		return invalid("quantity", "must not be negative")
	}
	if t.PaidAmount.GreaterThan(t.TripPrice) {
		return invalid("paid_amount", "must not exceed trip_price")
	}
	if !t.TripPrice.GreaterThan(t.CommercialPrice) {
		return invalid("trip_price", "must be greater than commercial_price")
	}
	return nil
}

// resultFor maps a mutation error to a metrics result label.
func resultFor(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrSettlementLocked),
		errors.Is(err, ErrValidation):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
