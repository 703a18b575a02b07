package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"tripdesk/internal/domain"
	"tripdesk/internal/lifecycle"
	"tripdesk/internal/metrics"
	"tripdesk/internal/repository"
)

// DefaultBulkConcurrency bounds parallel item processing when unset.
const DefaultBulkConcurrency = 8

// RejectCode classifies why a bulk item was not applied.
type RejectCode string

const (
	RejectInvalidTransition RejectCode = "invalid_transition"
	RejectSettlementLocked  RejectCode = "settlement_locked"
	RejectNotFound          RejectCode = "not_found"
	RejectBusy              RejectCode = "busy"
	RejectError             RejectCode = "error"
)

// Rejection is one item a bulk operation skipped.
type Rejection struct {
	ID     string     `json:"id"`
	Code   RejectCode `json:"code"`
	Reason string     `json:"reason"`
}

// BulkResult holds per-item outcomes in request order.
type BulkResult struct {
	Applied  []string    `json:"applied"`
	Rejected []Rejection `json:"rejected"`
}

type bulkKind int

const (
	bulkSettlement bulkKind = iota + 1
	bulkTransition
)

// BulkOperation is the change applied to every trip of a bulk request.
type BulkOperation struct {
	kind    bulkKind
	settled bool
	status  domain.TripStatus
}

// SetSettled builds an operation that sets the settlement flag.
func SetSettled(settled bool) BulkOperation {
	return BulkOperation{kind: bulkSettlement, settled: settled}
}

// TransitionTo builds an operation that moves trips to status.
func TransitionTo(status domain.TripStatus) BulkOperation {
	return BulkOperation{kind: bulkTransition, status: status}
}

// Name is used for metrics and audit entries.
func (op BulkOperation) Name() string {
	switch op.kind {
	case bulkSettlement:
		return "settlement"
	case bulkTransition:
		return "transition"
	default:
		return "unknown"
	}
}

func (op BulkOperation) validate() error {
	switch op.kind {
	case bulkSettlement:
		return nil
	case bulkTransition:
		if !op.status.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidBulkOperation, op.status)
		}
		return nil
	default:
		return ErrInvalidBulkOperation
	}
}

func (op BulkOperation) describe() map[string]any {
	if op.kind == bulkSettlement {
		return map[string]any{"operation": op.Name(), "settled": op.settled}
	}
	return map[string]any{"operation": op.Name(), "status": op.status}
}

// BulkService applies one operation to many trips, each independently.
type BulkService struct {
	trips       *TripService
	audit       auditor
	metrics     *metrics.Metrics
	concurrency int
}

// NewBulkService creates a new BulkService.
func NewBulkService(trips *TripService, auditRepo repository.AuditRepository, m *metrics.Metrics, concurrency int) *BulkService {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}
	return &BulkService{
		trips:       trips,
		audit:       auditor{repo: auditRepo},
		metrics:     m,
		concurrency: concurrency,
	}
}

// Apply runs op against every distinct id. Item failures are reported in
// the result and never abort the batch; only an invalid op is an error.
func (s *BulkService) Apply(ctx context.Context, actor domain.Actor, ids []string, op BulkOperation) (*BulkResult, error) {
	if err := op.validate(); err != nil {
		return nil, err
	}

	result := &BulkResult{Applied: []string{}, Rejected: []Rejection{}}
	unique := dedupe(ids)
	if len(unique) == 0 {
		return result, nil
	}

	// Ids are distinct, so no two workers ever touch the same trip.
	outcomes := make([]error, len(unique))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, id := range unique {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = s.applyOne(ctx, actor, id, op)
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range unique {
		err := outcomes[i]
		if err == nil {
			result.Applied = append(result.Applied, id)
			s.metrics.ObserveBulkItem(op.Name(), metrics.ResultApplied)
			continue
		}
		rej := rejectionFor(id, err)
		if rej.Code == RejectError {
			log.Printf("bulk %s failed for trip %s: %v", op.Name(), id, err)
			s.metrics.ObserveBulkItem(op.Name(), metrics.ResultError)
		} else {
			s.metrics.ObserveBulkItem(op.Name(), metrics.ResultRejected)
		}
		result.Rejected = append(result.Rejected, rej)
	}

	summary := op.describe()
	summary["requested"] = len(unique)
	summary["applied"] = result.Applied
	summary["rejected"] = len(result.Rejected)
	s.audit.record(ctx, actor, domain.AuditTripBulk, "", summary)

	return result, nil
}

func (s *BulkService) applyOne(ctx context.Context, actor domain.Actor, id string, op BulkOperation) error {
	var err error
	switch op.kind {
	case bulkSettlement:
		_, err = s.trips.SetSettled(ctx, actor, id, op.settled)
	case bulkTransition:
		_, err = s.trips.Transition(ctx, actor, id, op.status)
	}
	return err
}

func rejectionFor(id string, err error) Rejection {
	rej := Rejection{ID: id, Reason: err.Error()}
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		rej.Code = RejectInvalidTransition
	case errors.Is(err, lifecycle.ErrSettlementLocked):
		rej.Code = RejectSettlementLocked
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrInvalidTripID):
		rej.Code = RejectNotFound
		rej.Reason = "trip not found"
	case errors.Is(err, ErrTripBusy), errors.Is(err, repository.ErrVersionConflict):
		rej.Code = RejectBusy
	default:
		rej.Code = RejectError
		rej.Reason = "internal error"
	}
	return rej
}

// dedupe drops repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
