// Package audit writes the append-only audit trail of mutating workflow steps.
package audit

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/protocol"
)

var _ protocol.Auditor = (*Recorder)(nil)

// Recorder stamps and appends audit entries. A failed append is logged and never reported
// to the caller, so an audit outage cannot turn a completed mutation into a failure.
type Recorder struct {
	repo   persistence.AuditLogRepository
	logger *slog.Logger
	clock  clock.Clock
}

// NewRecorder creates a recorder on the given repository.
func NewRecorder(repo persistence.AuditLogRepository, logger *slog.Logger, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.New()
	}

	return &Recorder{
		repo:   repo,
		logger: logger.With("module", "audit"),
		clock:  clk,
	}
}

// Record appends entry, filling in its id, timestamp and source when unset.
func (r *Recorder) Record(ctx context.Context, entry models.AuditLogEntry) {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to generate audit entry ID", "error", err)

			return
		}

		entry.ID = id.String()
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.clock.Now().UTC()
	}

	if entry.Source == "" {
		entry.Source = models.AuditSourceWorkflow
	}

	if entry.NewValues == nil {
		entry.NewValues = map[string]any{}
	}

	err := r.repo.Append(ctx, &entry)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to append audit entry",
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"error", err,
		)
	}
}

// List returns the audit trail of one entity in chronological order.
func (r *Recorder) List(ctx context.Context, entityType, entityID string) ([]*models.AuditLogEntry, error) {
	return r.repo.ListByEntity(ctx, entityType, entityID)
}
