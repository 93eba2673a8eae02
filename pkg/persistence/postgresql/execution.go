package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const selectExecutions = `
	SELECT
		id
	  , workflow_id
	  , trigger_record_id
	  , trigger_object
	  , trigger_event
	  , trigger_data
	  , COALESCE(actor_id, '')
	  , status
	  , started_at
	  , completed_at
	  , result
	  , COALESCE(error_message, '')
	FROM workflow_executions
`

// Save upserts an execution. Outcomes are stored as one JSONB array.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerData, err := jsonb(execution.TriggerData)
	if err != nil {
		return err
	}

	outcomes := execution.Result
	if outcomes == nil {
		outcomes = []models.ActionOutcome{}
	}

	result, err := jsonb(outcomes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (
			id, workflow_id, trigger_record_id, trigger_object, trigger_event, trigger_data,
			actor_id, status, started_at, completed_at, result, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, NULLIF($12, ''))
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			result = EXCLUDED.result,
			error_message = EXCLUDED.error_message
	`,
		execution.ID, execution.WorkflowID, execution.TriggerRecordID, execution.TriggerObject,
		string(execution.TriggerEvent), triggerData, execution.ActorID, string(execution.Status),
		execution.StartedAt, execution.CompletedAt, result, execution.ErrorMessage,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "execution", execution.ID, err)
	}

	return nil
}

// GetByID returns an execution by id.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	execution, err := scanExecution(r.db.QueryRowContext(ctx, selectExecutions+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, selectExecutions+" WHERE workflow_id = $1 ORDER BY started_at DESC", workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution    models.WorkflowExecution
		triggerEvent string
		status       string
		triggerData  []byte
		result       []byte
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.TriggerRecordID,
		&execution.TriggerObject,
		&triggerEvent,
		&triggerData,
		&execution.ActorID,
		&status,
		&execution.StartedAt,
		&completedAt,
		&result,
		&execution.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	execution.TriggerEvent = models.TriggerEvent(triggerEvent)
	execution.Status = models.ExecutionStatus(status)

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	err = fromJSONB(triggerData, &execution.TriggerData)
	if err != nil {
		return nil, err
	}

	err = fromJSONB(result, &execution.Result)
	if err != nil {
		return nil, err
	}

	return &execution, nil
}
