package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// WorkflowRepository handles workflow definition database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const selectWorkflows = `
	SELECT
		id
	  , name
	  , description
	  , trigger_object
	  , trigger_event
	  , trigger_conditions
	  , is_active
	  , COALESCE(created_by, '')
	  , created_at
	  , updated_at
	FROM workflow_definitions
`

// GetAll returns all workflow definitions ordered by name.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	return r.query(ctx, selectWorkflows+" ORDER BY name")
}

// FindActive returns the active definitions bound to the trigger object and event.
func (r *WorkflowRepository) FindActive(ctx context.Context, triggerObject string, event models.TriggerEvent) ([]*models.WorkflowDefinition, error) {
	return r.query(ctx,
		selectWorkflows+" WHERE is_active AND trigger_object = $1 AND trigger_event = $2 ORDER BY name",
		triggerObject, string(event),
	)
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		workflow.Actions, err = r.loadActions(ctx, workflow.ID)
		if err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

// GetByID returns a workflow definition with its actions.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	row := r.db.QueryRowContext(ctx, selectWorkflows+" WHERE id = $1", id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	workflow.Actions, err = r.loadActions(ctx, id)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Save upserts a workflow definition and replaces its actions in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.WorkflowDefinition) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	conditions, err := jsonb(workflow.TriggerConditions)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_definitions (
			id, name, description, trigger_object, trigger_event, trigger_conditions,
			is_active, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_object = EXCLUDED.trigger_object,
			trigger_event = EXCLUDED.trigger_event,
			trigger_conditions = EXCLUDED.trigger_conditions,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID, workflow.Name, workflow.Description, workflow.TriggerObject, string(workflow.TriggerEvent),
		conditions, workflow.IsActive, workflow.CreatedBy, workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_actions WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to clear workflow actions: %w", err)
	}

	for i := range workflow.Actions {
		action := &workflow.Actions[i]
		action.WorkflowID = workflow.ID

		err = insertAction(ctx, tx, action)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a workflow definition and, by cascade, its actions.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflow_definitions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

func insertAction(ctx context.Context, tx *sql.Tx, action *models.ActionDefinition) error {
	if action.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate action ID: %w", err)
		}

		action.ID = id.String()
	}

	config, err := jsonb(action.Config)
	if err != nil {
		return err
	}

	if config == nil {
		config = []byte("{}")
	}

	conditions, err := jsonb(action.Conditions)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_actions (
			workflow_id, id, action_order, action_type, config, conditions, delay_minutes, stop_on_failure
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		action.WorkflowID, action.ID, action.ActionOrder, string(action.ActionType),
		config, conditions, action.DelayMinutes, action.StopOnFailure,
	)
	if err != nil {
		return fmt.Errorf("failed to save action %s: %w", action.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) loadActions(ctx context.Context, workflowID string) ([]models.ActionDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id
		  , workflow_id
		  , action_order
		  , action_type
		  , config
		  , conditions
		  , delay_minutes
		  , stop_on_failure
		FROM workflow_actions
		WHERE workflow_id = $1
		ORDER BY action_order, id
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow actions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	actions := make([]models.ActionDefinition, 0)

	for rows.Next() {
		var (
			action        models.ActionDefinition
			actionType    string
			config        []byte
			conditions    []byte
			stopOnFailure sql.NullBool
		)

		err := rows.Scan(&action.ID, &action.WorkflowID, &action.ActionOrder, &actionType,
			&config, &conditions, &action.DelayMinutes, &stopOnFailure)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow action: %w", err)
		}

		action.ActionType = models.ActionType(actionType)

		err = fromJSONB(config, &action.Config)
		if err != nil {
			return nil, err
		}

		if len(conditions) > 0 {
			action.Conditions = &models.ConditionTree{}

			err = fromJSONB(conditions, action.Conditions)
			if err != nil {
				return nil, err
			}
		}

		if stopOnFailure.Valid {
			action.StopOnFailure = &stopOnFailure.Bool
		}

		actions = append(actions, action)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow actions: %w", err)
	}

	return actions, nil
}

func scanWorkflow(row scanner) (*models.WorkflowDefinition, error) {
	var (
		workflow     models.WorkflowDefinition
		triggerEvent string
		conditions   []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.TriggerObject,
		&triggerEvent,
		&conditions,
		&workflow.IsActive,
		&workflow.CreatedBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.TriggerEvent = models.TriggerEvent(triggerEvent)

	if len(conditions) > 0 {
		workflow.TriggerConditions = &models.ConditionTree{}

		err = fromJSONB(conditions, workflow.TriggerConditions)
		if err != nil {
			return nil, err
		}
	}

	return &workflow, nil
}
