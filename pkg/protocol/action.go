// Package protocol defines the contracts between the engine, action handlers and the
// outbound collaborators they delegate to.
package protocol

import (
	"context"
	"log/slog"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/records"
)

// ActionContext is the triggering state handed to an action handler.
type ActionContext struct {
	ExecutionID    string
	WorkflowID     string
	ActionID       string
	TriggerObject  string
	TriggerEvent   models.TriggerEvent
	Record         map[string]any
	PreviousRecord map[string]any
	ActorID        string
}

// RecordID returns the id of the triggering record.
func (c ActionContext) RecordID() string {
	return records.RecordID(c.Record)
}

// Action is a configured handler for one action kind.
type Action interface {
	// Execute performs the side effect and returns a structured result, or an error when the
	// action failed. Handlers are safe to retry; the engine never does.
	Execute(ctx context.Context, actx ActionContext, logger *slog.Logger) (any, error)
}

// ActionFactory creates actions and provides metadata about the action kind.
type ActionFactory interface {
	// Create validates config and returns a ready-to-run action.
	Create(ctx context.Context, config map[string]any) (Action, error)

	// ID returns the action type tag this factory serves.
	ID() string

	// Name returns the human-readable name for this action kind.
	Name() string

	// Description returns a description of what this action does.
	Description() string

	// Schema returns the JSON schema for configuring this action.
	Schema() map[string]any
}

// Auditor appends audit entries for mutating steps. Implementations never fail the caller.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditLogEntry)
}
