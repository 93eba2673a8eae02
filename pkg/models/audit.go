package models

import "time"

// Audit actions written by the engine.
const (
	AuditActionWorkflowTrigger = "WORKFLOW_TRIGGER"
	AuditActionUpdate          = "UPDATE"
	AuditActionCreate          = "CREATE"
	AuditActionStatusChange    = "STATUS_CHANGE"
)

// AuditSourceWorkflow marks audit entries produced by workflow automation.
const AuditSourceWorkflow = "WORKFLOW"

// AuditLogEntry is an immutable record of a mutating step.
type AuditLogEntry struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	OldValues  map[string]any `json:"old_values,omitempty"`
	NewValues  map[string]any `json:"new_values"`
	ActorID    string         `json:"actor_id,omitempty"`
	Source     string         `json:"source"`
	Timestamp  time.Time      `json:"timestamp"`
}
