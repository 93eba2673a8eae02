package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
)

// OutcomeStatus is the result of a single action within an execution.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "COMPLETED"
	OutcomeFailed    OutcomeStatus = "FAILED"
	OutcomeSkipped   OutcomeStatus = "SKIPPED"
	OutcomeScheduled OutcomeStatus = "SCHEDULED"
)

// WorkflowExecution is one run of one workflow's actions for one triggering record.
type WorkflowExecution struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	TriggerRecordID string          `json:"trigger_record_id"`
	TriggerObject   string          `json:"trigger_object"`
	TriggerEvent    TriggerEvent    `json:"trigger_event"`
	TriggerData     map[string]any  `json:"trigger_data,omitempty"`
	ActorID         string          `json:"actor_id,omitempty"`
	Status          ExecutionStatus `json:"status"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Result          []ActionOutcome `json:"result"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// ActionOutcome records what happened to one action. Outcomes are appended, never edited.
type ActionOutcome struct {
	ActionID   string        `json:"action_id"`
	ActionType ActionType    `json:"action_type"`
	Status     OutcomeStatus `json:"status"`
	Result     any           `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// ExecutionSummary is returned to the trigger caller for every executed workflow.
type ExecutionSummary struct {
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name"`
	ExecutionID  string          `json:"execution_id"`
	Status       ExecutionStatus `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// IsTerminal reports whether the execution has finished.
func (e *WorkflowExecution) IsTerminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}
