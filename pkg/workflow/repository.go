package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/registry"
)

// Repository manages workflow definitions. Every definition is validated against the
// registry before it is stored, so unknown action types and bad configs never reach the engine.
type Repository struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

// NewRepository returns a Repository that validates definitions against registry before storing them.
func NewRepository(persistence persistence.Persistence, registry *registry.Registry) *Repository {
	return &Repository{
		persistence: persistence,
		registry:    registry,
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := r.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) FetchAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	workflows, err := r.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return make([]*models.WorkflowDefinition, 0), err
	}

	return workflows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	return r.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create validates and stores a new definition, generating ids for it and its actions when absent.
func (r *Repository) Create(ctx context.Context, workflow *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	err := r.prepare(ctx, workflow)
	if err != nil {
		return nil, err
	}

	err = r.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Update replaces the definition stored under id.
func (r *Repository) Update(ctx context.Context, id string, workflow *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	existing, err := r.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = id
	workflow.CreatedAt = existing.CreatedAt

	err = r.prepare(ctx, workflow)
	if err != nil {
		return nil, err
	}

	err = r.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	return r.persistence.WorkflowRepository().Delete(ctx, id)
}

func (r *Repository) prepare(ctx context.Context, workflow *models.WorkflowDefinition) error {
	for i := range workflow.Actions {
		if workflow.Actions[i].ID != "" {
			continue
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate action ID: %w", err)
		}

		workflow.Actions[i].ID = id.String()
	}

	return r.registry.ValidateWorkflow(ctx, workflow)
}
