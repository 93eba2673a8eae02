package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// DeferredActionRepository handles deferred action database operations.
type DeferredActionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const selectDeferred = `
	SELECT
		id
	  , entity_type
	  , entity_id
	  , payload
	  , scheduled_for
	  , status
	  , attempts
	  , COALESCE(last_error, '')
	  , created_at
	  , updated_at
	FROM deferred_actions
`

// Save upserts a deferred action.
func (r *DeferredActionRepository) Save(ctx context.Context, action *models.DeferredAction) error {
	payload, err := jsonb(action.Payload)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO deferred_actions (
			id, entity_type, entity_id, payload, execution_id, scheduled_for,
			status, attempts, last_error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			scheduled_for = EXCLUDED.scheduled_for,
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`,
		action.ID, action.EntityType, action.EntityID, payload, action.Payload.ExecutionID,
		action.ScheduledFor, string(action.Status), action.Attempts, action.LastError,
		action.CreatedAt, action.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "deferred action", action.ID, err)
	}

	return nil
}

// GetByID returns a deferred action by id.
func (r *DeferredActionRepository) GetByID(ctx context.Context, id string) (*models.DeferredAction, error) {
	action, err := scanDeferred(r.db.QueryRowContext(ctx, selectDeferred+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetByID", "deferred action", id, persistence.ErrDeferredActionNotFound)
		}

		return nil, fmt.Errorf("failed to scan deferred action: %w", err)
	}

	return action, nil
}

// Due returns PENDING rows whose time has come, oldest first.
func (r *DeferredActionRepository) Due(ctx context.Context, now time.Time, limit int) ([]*models.DeferredAction, error) {
	if limit <= 0 {
		limit = 100
	}

	return r.list(ctx,
		selectDeferred+" WHERE status = 'PENDING' AND scheduled_for <= $1 ORDER BY scheduled_for LIMIT $2",
		now, limit,
	)
}

// Claim flips a PENDING row to PROCESSING. Only one concurrent caller observes an affected row.
func (r *DeferredActionRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE deferred_actions SET status = 'PROCESSING', updated_at = $2 WHERE id = $1 AND status = 'PENDING'",
		id, now,
	)
	if err != nil {
		return false, persistence.NewRepositoryError("Claim", "deferred action", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 1 {
		return true, nil
	}

	_, err = r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	return false, nil
}

// ReleaseStale returns PROCESSING rows untouched since before to PENDING.
func (r *DeferredActionRepository) ReleaseStale(ctx context.Context, before time.Time, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE deferred_actions SET status = 'PENDING', updated_at = $2 WHERE status = 'PROCESSING' AND updated_at < $1",
		before, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale deferred actions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(affected), nil
}

// ListByExecution returns the deferred actions scheduled by one execution.
func (r *DeferredActionRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.DeferredAction, error) {
	return r.list(ctx, selectDeferred+" WHERE execution_id = $1 ORDER BY scheduled_for", executionID)
}

func (r *DeferredActionRepository) list(ctx context.Context, query string, args ...any) ([]*models.DeferredAction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deferred actions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	actions := make([]*models.DeferredAction, 0)

	for rows.Next() {
		action, err := scanDeferred(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deferred action: %w", err)
		}

		actions = append(actions, action)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating deferred actions: %w", err)
	}

	return actions, nil
}

func scanDeferred(row scanner) (*models.DeferredAction, error) {
	var (
		action  models.DeferredAction
		payload []byte
		status  string
	)

	err := row.Scan(
		&action.ID,
		&action.EntityType,
		&action.EntityID,
		&payload,
		&action.ScheduledFor,
		&status,
		&action.Attempts,
		&action.LastError,
		&action.CreatedAt,
		&action.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	action.Status = models.DeferredStatus(status)

	err = fromJSONB(payload, &action.Payload)
	if err != nil {
		return nil, err
	}

	return &action, nil
}
