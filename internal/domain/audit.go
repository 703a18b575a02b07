package domain

import "time"

// AuditAction names an auditable event.
type AuditAction string

const (
	AuditTripCreate     AuditAction = "trip.create"
	AuditTripUpdate     AuditAction = "trip.update"
	AuditTripTransition AuditAction = "trip.transition"
	AuditTripSettlement AuditAction = "trip.settlement"
	AuditTripBulk       AuditAction = "trip.bulk"
	AuditTripReconcile  AuditAction = "trip.reconcile"
)

// AuditEntry records who changed what on which trip.
type AuditEntry struct {
	ID        string
	ActorID   string
	Action    AuditAction
	TargetID  string
	Changes   map[string]any
	CreatedAt time.Time
}
