package file

import (
	"context"
	"os"
	"slices"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// AuditLogRepository appends one JSON file per audit entry. Existing entries are never rewritten.
type AuditLogRepository struct {
	p *Persistence
}

func (ar *AuditLogRepository) Append(_ context.Context, entry *models.AuditLogEntry) error {
	ar.p.mu.Lock()
	defer ar.p.mu.Unlock()

	err := validateID(entry.ID)
	if err == nil {
		if _, statErr := os.Stat(ar.p.path(auditDir, entry.ID)); statErr == nil {
			err = os.ErrExist
		}
	}

	if err == nil {
		err = ar.p.writeJSON(auditDir, entry.ID, entry)
	}

	if err != nil {
		return persistence.NewRepositoryError("Append", "audit entry", entry.ID, err)
	}

	return nil
}

func (ar *AuditLogRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]*models.AuditLogEntry, error) {
	ar.p.mu.RLock()
	defer ar.p.mu.RUnlock()

	all, err := readAll[models.AuditLogEntry](ar.p, auditDir)
	if err != nil {
		return nil, err
	}

	entries := slices.DeleteFunc(all, func(e *models.AuditLogEntry) bool {
		return e.EntityType != entityType || e.EntityID != entityID
	})

	slices.SortStableFunc(entries, func(a, b *models.AuditLogEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return entries, nil
}
