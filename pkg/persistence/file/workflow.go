package file

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// WorkflowRepository stores one JSON file per workflow definition.
type WorkflowRepository struct {
	p *Persistence
}

// GetAll returns all workflow definitions ordered by name.
func (wr *WorkflowRepository) GetAll(_ context.Context) ([]*models.WorkflowDefinition, error) {
	wr.p.mu.RLock()
	defer wr.p.mu.RUnlock()

	workflows, err := readAll[models.WorkflowDefinition](wr.p, workflowsDir)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(workflows, func(a, b *models.WorkflowDefinition) int {
		return strings.Compare(a.Name, b.Name)
	})

	return workflows, nil
}

// GetByID returns a workflow definition by its id.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	wr.p.mu.RLock()
	defer wr.p.mu.RUnlock()

	var workflow models.WorkflowDefinition

	err := wr.p.readJSON(workflowsDir, id, &workflow)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewRepositoryError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "workflow", id, err)
	}

	return &workflow, nil
}

// FindActive returns active workflows bound to the trigger object and event.
func (wr *WorkflowRepository) FindActive(ctx context.Context, triggerObject string, event models.TriggerEvent) ([]*models.WorkflowDefinition, error) {
	all, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.WorkflowDefinition, 0)

	for _, workflow := range all {
		if workflow.IsActive && workflow.TriggerObject == triggerObject && workflow.TriggerEvent == event {
			matches = append(matches, workflow)
		}
	}

	return matches, nil
}

// Save writes the workflow definition, stamping its timestamps.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.WorkflowDefinition) error {
	wr.p.mu.Lock()
	defer wr.p.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	for i := range workflow.Actions {
		workflow.Actions[i].WorkflowID = workflow.ID
	}

	err := wr.p.writeJSON(workflowsDir, workflow.ID, workflow)
	if err != nil {
		return persistence.NewRepositoryError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow definition. Deleting an unknown id is not an error.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.p.mu.Lock()
	defer wr.p.mu.Unlock()

	return wr.p.remove(workflowsDir, id)
}
