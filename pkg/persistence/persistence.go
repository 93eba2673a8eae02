// Package persistence provides the storage abstraction for workflow definitions, executions,
// deferred actions, audit entries and document templates.
package persistence

import (
	"context"
	"time"

	"github.com/pandacrm/automation/pkg/models"
)

// Persistence groups the repositories backing the automation engine.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	DeferredActionRepository() DeferredActionRepository
	AuditLogRepository() AuditLogRepository
	DocumentTemplateRepository() DocumentTemplateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error)
	// GetByID returns ErrWorkflowNotFound when no definition has the given id.
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	// FindActive returns active definitions whose trigger object and event match exactly.
	FindActive(ctx context.Context, triggerObject string, event models.TriggerEvent) ([]*models.WorkflowDefinition, error)
	Save(ctx context.Context, workflow *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores workflow executions.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	// GetByID returns ErrExecutionNotFound when no execution has the given id.
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	// ListByWorkflow returns executions of a workflow, newest first.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
}

// DeferredActionRepository stores actions postponed by DELAY steps.
type DeferredActionRepository interface {
	Save(ctx context.Context, action *models.DeferredAction) error
	// GetByID returns ErrDeferredActionNotFound when no row has the given id.
	GetByID(ctx context.Context, id string) (*models.DeferredAction, error)
	// Due returns at most limit PENDING rows scheduled at or before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]*models.DeferredAction, error)
	// Claim moves a PENDING row to PROCESSING. It reports false when another process claimed it first.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	// ReleaseStale moves PROCESSING rows last updated before the given time back to PENDING,
	// so rows held by a runner that died are picked up again. It returns how many were released.
	ReleaseStale(ctx context.Context, before time.Time, now time.Time) (int, error)
	ListByExecution(ctx context.Context, executionID string) ([]*models.DeferredAction, error)
}

// AuditLogRepository is the append-only audit trail.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	// ListByEntity returns entries of one entity in chronological order.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditLogEntry, error)
}

// DocumentTemplateRepository stores merge templates for signature documents.
type DocumentTemplateRepository interface {
	// GetDefault returns ErrDocumentTemplateNotFound when no default exists for the document type.
	GetDefault(ctx context.Context, documentType models.DocumentType) (*models.DocumentTemplate, error)
	Save(ctx context.Context, template *models.DocumentTemplate) error
}

type deferredOverride struct {
	Persistence
	deferred DeferredActionRepository
}

func (d *deferredOverride) DeferredActionRepository() DeferredActionRepository {
	return d.deferred
}

// WithDeferredActions returns p with its deferred action repository replaced by repo,
// e.g. to keep delayed actions in Redis while definitions live in PostgreSQL.
func WithDeferredActions(p Persistence, repo DeferredActionRepository) Persistence {
	return &deferredOverride{Persistence: p, deferred: repo}
}
