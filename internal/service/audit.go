package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tripdesk/internal/domain"
	"tripdesk/internal/repository"
)

// auditor writes audit entries. The mutation they describe is already
// committed, so failures are logged and dropped.
type auditor struct {
	repo repository.AuditRepository
}

func (a auditor) record(ctx context.Context, actor domain.Actor, action domain.AuditAction, targetID string, changes map[string]any) {
	if a.repo == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:        uuid.New().String(),
		ActorID:   actor.ID,
		Action:    action,
		TargetID:  targetID,
		Changes:   changes,
		CreatedAt: time.Now(),
	}
	if err := a.repo.Record(ctx, entry); err != nil {
		log.Printf("failed to record audit entry: action=%s target=%s actor=%s err=%v", action, targetID, actor.ID, err)
	}
}
