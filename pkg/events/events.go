// Package events defines the messages exchanged on the event bus: execution lifecycle
// notifications, inbound record changes and outbound collaborator requests.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
)

type EventType string

// Topics.
const (
	ExecutionTopic     = "automation.executions"     // execution lifecycle
	RecordChangesTopic = "automation.record.changes" // inbound record changes from the CRM
	OutboxTopic        = "automation.outbox"         // requests for the messaging and signing services
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow execution lifecycle events.
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	ActionDeferredEvent             EventType = "workflow.action.deferred"

	// Inbound.
	RecordChangedEvent EventType = "record.changed"

	// Outbox.
	MessageRequestedEvent EventType = "message.requested"
	AgreementSentEvent    EventType = "agreement.sent"
)

// TopicFor returns the topic events of the given type are published on.
func TopicFor(eventType EventType) string {
	switch eventType {
	case RecordChangedEvent:
		return RecordChangesTopic
	case MessageRequestedEvent, AgreementSentEvent:
		return OutboxTopic
	default:
		return ExecutionTopic
	}
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Workflow execution lifecycle events

type WorkflowExecutionStarted struct {
	BaseEvent

	ExecutionID   string              `json:"execution_id"`
	WorkflowName  string              `json:"workflow_name"`
	TriggerObject string              `json:"trigger_object"`
	TriggerEvent  models.TriggerEvent `json:"trigger_event"`
	RecordID      string              `json:"record_id"`
	ActorID       string              `json:"actor_id,omitempty"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID string                 `json:"execution_id"`
	Status      models.ExecutionStatus `json:"status"`
	DurationMs  int64                  `json:"duration_ms"`
	Outcomes    []models.ActionOutcome `json:"outcomes"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID    string                 `json:"execution_id"`
	Status         models.ExecutionStatus `json:"status"`
	DurationMs     int64                  `json:"duration_ms"`
	Error          WorkflowError          `json:"error"`
	PartialResults []models.ActionOutcome `json:"partial_results"`
}

type WorkflowError struct {
	ActionID   string            `json:"action_id"`
	ActionType models.ActionType `json:"action_type"`
	Message    string            `json:"message"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type ActionDeferred struct {
	BaseEvent

	ExecutionID      string    `json:"execution_id"`
	ActionID         string    `json:"action_id"`
	DeferredActionID string    `json:"deferred_action_id"`
	ScheduledFor     time.Time `json:"scheduled_for"`
}

func (a ActionDeferred) GetType() EventType {
	return ActionDeferredEvent
}

// RecordChanged is published by the CRM whenever a record is created or updated.
type RecordChanged struct {
	BaseEvent

	ObjectType     string              `json:"object_type"`
	Event          models.TriggerEvent `json:"event"`
	Record         map[string]any      `json:"record"`
	PreviousRecord map[string]any      `json:"previous_record,omitempty"`
	ActorID        string              `json:"actor_id,omitempty"`
}

func (r RecordChanged) GetType() EventType {
	return RecordChangedEvent
}

// MessageRequested asks the messaging service to deliver an SMS or email.
type MessageRequested struct {
	BaseEvent

	Message protocol.Message `json:"message"`
}

func (m MessageRequested) GetType() EventType {
	return MessageRequestedEvent
}

// AgreementSent asks the signing service to notify an agreement recipient.
type AgreementSent struct {
	BaseEvent

	Notification protocol.AgreementNotification `json:"notification"`
}

func (a AgreementSent) GetType() EventType {
	return AgreementSentEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
