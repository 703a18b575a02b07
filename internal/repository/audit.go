package repository

import (
	"context"

	"tripdesk/internal/domain"
)

// AuditRepository persists audit entries.
type AuditRepository interface {
	// Record appends an entry to the audit log.
	Record(ctx context.Context, entry *domain.AuditEntry) error
}
