package file

import (
	"context"
	"errors"
	"os"
	"slices"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// ExecutionRepository stores one JSON file per workflow execution.
type ExecutionRepository struct {
	p *Persistence
}

func (er *ExecutionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	er.p.mu.Lock()
	defer er.p.mu.Unlock()

	err := er.p.writeJSON(executionsDir, execution.ID, execution)
	if err != nil {
		return persistence.NewRepositoryError("Save", "execution", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	er.p.mu.RLock()
	defer er.p.mu.RUnlock()

	var execution models.WorkflowExecution

	err := er.p.readJSON(executionsDir, id, &execution)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewRepositoryError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "execution", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	er.p.mu.RLock()
	defer er.p.mu.RUnlock()

	all, err := readAll[models.WorkflowExecution](er.p, executionsDir)
	if err != nil {
		return nil, err
	}

	executions := slices.DeleteFunc(all, func(e *models.WorkflowExecution) bool {
		return e.WorkflowID != workflowID
	})

	slices.SortFunc(executions, func(a, b *models.WorkflowExecution) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return executions, nil
}
