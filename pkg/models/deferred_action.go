package models

import "time"

// DeferredStatus is the pickup state of a deferred action.
type DeferredStatus string

const (
	DeferredStatusPending    DeferredStatus = "PENDING"
	DeferredStatusProcessing DeferredStatus = "PROCESSING"
	DeferredStatusCompleted  DeferredStatus = "COMPLETED"
	DeferredStatusFailed     DeferredStatus = "FAILED"
)

// DeferredPayload is the serialized action invocation persisted with a deferred action.
type DeferredPayload struct {
	ActionID    string         `json:"action_id"`
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	ActorID     string         `json:"actor_id,omitempty"`
	Record      map[string]any `json:"record"`
}

// DeferredAction is an action invocation postponed until ScheduledFor.
type DeferredAction struct {
	ID           string          `json:"id"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Payload      DeferredPayload `json:"payload"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	Status       DeferredStatus  `json:"status"`
	Attempts     int             `json:"attempts"`
	LastError    string          `json:"last_error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
