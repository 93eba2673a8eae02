package web

import "github.com/pandacrm/automation/pkg/models"

// TriggerResponse lists one summary per executed workflow.
type TriggerResponse struct {
	Executions []models.ExecutionSummary `json:"executions"`
}

// ActionTypeResponse describes a registered action kind.
type ActionTypeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// AuditQuery selects the audit trail of one record.
type AuditQuery struct {
	EntityType string `query:"entity_type" validate:"required"`
	EntityID   string `query:"entity_id"   validate:"required"`
}
