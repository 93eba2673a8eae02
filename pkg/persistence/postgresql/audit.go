package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// AuditLogRepository appends audit entries. Rows are never updated.
type AuditLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	oldValues, err := jsonb(entry.OldValues)
	if err != nil {
		return err
	}

	newValues, err := jsonb(entry.NewValues)
	if err != nil {
		return err
	}

	if newValues == nil {
		newValues = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			id, entity_type, entity_id, action, old_values, new_values, actor_id, source, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		oldValues, newValues, entry.ActorID, entry.Source, entry.Timestamp,
	)
	if err != nil {
		return persistence.NewRepositoryError("Append", "audit entry", entry.ID, err)
	}

	return nil
}

func (r *AuditLogRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id
		  , entity_type
		  , entity_id
		  , action
		  , old_values
		  , new_values
		  , COALESCE(actor_id, '')
		  , source
		  , timestamp
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp, id
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	entries := make([]*models.AuditLogEntry, 0)

	for rows.Next() {
		var (
			entry     models.AuditLogEntry
			oldValues []byte
			newValues []byte
		)

		err := rows.Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action,
			&oldValues, &newValues, &entry.ActorID, &entry.Source, &entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		err = fromJSONB(oldValues, &entry.OldValues)
		if err != nil {
			return nil, err
		}

		err = fromJSONB(newValues, &entry.NewValues)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}
