// Package models defines the core domain models for CRM workflow automation.
package models

import (
	"slices"
	"time"
)

// TriggerEvent is the kind of record change that activates a workflow.
type TriggerEvent string

const (
	TriggerEventCreate      TriggerEvent = "CREATE"
	TriggerEventUpdate      TriggerEvent = "UPDATE"
	TriggerEventFieldChange TriggerEvent = "FIELD_CHANGE"
	TriggerEventScheduled   TriggerEvent = "SCHEDULED"
	TriggerEventManual      TriggerEvent = "MANUAL"
)

// TriggerEvents lists every supported trigger event.
var TriggerEvents = []TriggerEvent{
	TriggerEventCreate,
	TriggerEventUpdate,
	TriggerEventFieldChange,
	TriggerEventScheduled,
	TriggerEventManual,
}

// IsValid reports whether e is one of the supported trigger events.
func (e TriggerEvent) IsValid() bool {
	return slices.Contains(TriggerEvents, e)
}

// ActionType tags the kind of side effect an action performs.
type ActionType string

const (
	ActionTypeSendSMS             ActionType = "SEND_SMS"
	ActionTypeSendEmail           ActionType = "SEND_EMAIL"
	ActionTypeUpdateField         ActionType = "UPDATE_FIELD"
	ActionTypeCreateRecord        ActionType = "CREATE_RECORD"
	ActionTypeCreateTask          ActionType = "CREATE_TASK"
	ActionTypeCreateCommission    ActionType = "CREATE_COMMISSION"
	ActionTypeCallWebhook         ActionType = "CALL_WEBHOOK"
	ActionTypeScheduleAppointment ActionType = "SCHEDULE_APPOINTMENT"
	ActionTypeSendAgreement       ActionType = "SEND_AGREEMENT"
	ActionTypeDelay               ActionType = "DELAY"
)

// WorkflowDefinition is an administrator-authored rule: when a record of
// TriggerObject sees TriggerEvent and TriggerConditions hold, run Actions in order.
// The engine never mutates a definition.
type WorkflowDefinition struct {
	ID                string             `json:"id"                           yaml:"id"`
	Name              string             `json:"name"                         yaml:"name"               validate:"required,min=3"`
	Description       string             `json:"description,omitempty"        yaml:"description"`
	TriggerObject     string             `json:"trigger_object"               yaml:"trigger_object"     validate:"required"`
	TriggerEvent      TriggerEvent       `json:"trigger_event"                yaml:"trigger_event"      validate:"required,oneof=CREATE UPDATE FIELD_CHANGE SCHEDULED MANUAL"`
	TriggerConditions *ConditionTree     `json:"trigger_conditions,omitempty" yaml:"trigger_conditions"`
	IsActive          bool               `json:"is_active"                    yaml:"is_active"`
	Actions           []ActionDefinition `json:"actions"                      yaml:"actions"            validate:"dive"`
	CreatedBy         string             `json:"created_by,omitempty"         yaml:"created_by"`
	CreatedAt         time.Time          `json:"created_at"                   yaml:"-"`
	UpdatedAt         time.Time          `json:"updated_at"                   yaml:"-"`
}

// ActionDefinition is one step of a workflow.
type ActionDefinition struct {
	ID            string         `json:"id"                   yaml:"id"`
	WorkflowID    string         `json:"workflow_id"          yaml:"-"`
	ActionOrder   int            `json:"action_order"         yaml:"action_order"`
	ActionType    ActionType     `json:"action_type"          yaml:"action_type"    validate:"required"`
	Config        map[string]any `json:"config,omitempty"     yaml:"config"`
	Conditions    *ConditionTree `json:"conditions,omitempty" yaml:"conditions"`
	DelayMinutes  int            `json:"delay_minutes"        yaml:"delay_minutes"  validate:"min=0"`
	StopOnFailure *bool          `json:"stop_on_failure"      yaml:"stop_on_failure"`
}

// StopsOnFailure reports whether a failure of this action aborts the execution.
// An unset flag means true.
func (a ActionDefinition) StopsOnFailure() bool {
	if a.StopOnFailure == nil {
		return true
	}

	return *a.StopOnFailure
}

// SortedActions returns a copy of the actions ordered by ActionOrder.
// Actions sharing an order keep their declared position.
func (w *WorkflowDefinition) SortedActions() []ActionDefinition {
	sorted := slices.Clone(w.Actions)
	slices.SortStableFunc(sorted, func(a, b ActionDefinition) int {
		return a.ActionOrder - b.ActionOrder
	})

	return sorted
}

// ActionByID finds an action of the definition by its ID.
func (w *WorkflowDefinition) ActionByID(id string) (ActionDefinition, bool) {
	for _, action := range w.Actions {
		if action.ID == id {
			return action, true
		}
	}

	return ActionDefinition{}, false
}

// DelayFollowUp returns the action a DELAY re-enters once it is due, read from
// config.action = {actionType, config}. ok is false for a plain wait.
func (a ActionDefinition) DelayFollowUp() (actionType ActionType, config map[string]any, ok bool) {
	followUp, isMap := a.Config["action"].(map[string]any)
	if !isMap {
		return "", nil, false
	}

	rawType, _ := followUp["actionType"].(string)
	if rawType == "" {
		return "", nil, false
	}

	config, _ = followUp["config"].(map[string]any)
	if config == nil {
		config = map[string]any{}
	}

	return ActionType(rawType), config, true
}
