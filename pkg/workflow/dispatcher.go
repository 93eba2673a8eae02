package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/events"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/otelhelper"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
	"go.opentelemetry.io/otel/attribute"
)

// ErrInvalidTrigger is returned for malformed trigger requests.
var ErrInvalidTrigger = errors.New("invalid trigger request")

// TriggerRequest describes one record change.
type TriggerRequest struct {
	ObjectType     string              `json:"object_type"               validate:"required"`
	Event          models.TriggerEvent `json:"event"                     validate:"required,oneof=CREATE UPDATE FIELD_CHANGE SCHEDULED MANUAL"`
	Record         map[string]any      `json:"record"                    validate:"required"`
	PreviousRecord map[string]any      `json:"previous_record,omitempty"`
	ActorID        string              `json:"actor_id,omitempty"`
}

// Dispatcher is the entry point for record changes. It finds the active workflows listening
// for the change, filters them by their trigger conditions and runs each on the Engine.
type Dispatcher struct {
	engine   *Engine
	auditor  protocol.Auditor
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher running matched workflows on engine and auditing each trigger.
func NewDispatcher(engine *Engine, auditor protocol.Auditor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:   engine,
		auditor:  auditor,
		validate: validator.New(),
		logger:   logger.With("module", "workflow_dispatcher"),
	}
}

// ProcessTrigger runs every matching workflow and returns one summary per executed workflow.
// A failing workflow is reported in its summary and never stops the others; only a malformed
// request or a failure to load definitions is returned as an error. One WORKFLOW_TRIGGER
// audit entry is written per call, even when nothing ran.
func (d *Dispatcher) ProcessTrigger(ctx context.Context, request TriggerRequest) ([]models.ExecutionSummary, error) {
	err := d.validate.Struct(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrigger, err)
	}

	err = records.ValidateEntityType(request.ObjectType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrigger, err)
	}

	recordID := records.RecordID(request.Record)

	ctx, span := otelhelper.StartSpan(ctx, d.engine.tracer, "workflow.trigger",
		attribute.String(otelhelper.TriggerObjectKey, request.ObjectType),
		attribute.String(otelhelper.TriggerEventKey, string(request.Event)),
		attribute.String(otelhelper.RecordIDKey, recordID),
	)
	defer span.End()

	logger := d.logger.With("object_type", request.ObjectType, "event", request.Event, "record_id", recordID)

	definitions, err := d.engine.persistence.WorkflowRepository().FindActive(ctx, request.ObjectType, request.Event)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}

	summaries := make([]models.ExecutionSummary, 0, len(definitions))

	for _, definition := range definitions {
		if !d.engine.evaluator.Evaluate(definition.TriggerConditions, request.Record, request.PreviousRecord) {
			logger.DebugContext(ctx, "Trigger conditions not met", "workflow_id", definition.ID)

			continue
		}

		summaries = append(summaries, d.run(ctx, definition, request, recordID, logger))
	}

	d.auditor.Record(ctx, models.AuditLogEntry{
		EntityType: request.ObjectType,
		EntityID:   recordID,
		Action:     models.AuditActionWorkflowTrigger,
		NewValues: map[string]any{
			"event":             string(request.Event),
			"workflowsExecuted": len(summaries),
		},
		ActorID: request.ActorID,
	})

	logger.InfoContext(ctx, "Trigger processed", "matched", len(definitions), "executed", len(summaries))

	return summaries, nil
}

func (d *Dispatcher) run(
	ctx context.Context,
	definition *models.WorkflowDefinition,
	request TriggerRequest,
	recordID string,
	logger *slog.Logger,
) models.ExecutionSummary {
	summary := models.ExecutionSummary{WorkflowID: definition.ID, WorkflowName: definition.Name}

	id, err := uuid.NewV7()
	if err != nil {
		summary.Status = models.ExecutionStatusFailed
		summary.ErrorMessage = err.Error()

		return summary
	}

	execution := &models.WorkflowExecution{
		ID:              id.String(),
		WorkflowID:      definition.ID,
		TriggerRecordID: recordID,
		TriggerObject:   request.ObjectType,
		TriggerEvent:    request.Event,
		TriggerData:     request.Record,
		ActorID:         request.ActorID,
		Status:          models.ExecutionStatusRunning,
		StartedAt:       d.engine.clock.Now().UTC(),
		Result:          []models.ActionOutcome{},
	}
	summary.ExecutionID = execution.ID

	err = d.engine.persistence.ExecutionRepository().Save(ctx, execution)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist execution", "workflow_id", definition.ID, "error", err)

		summary.Status = models.ExecutionStatusFailed
		summary.ErrorMessage = fmt.Sprintf("failed to start execution: %v", err)

		return summary
	}

	d.engine.publish(ctx, execution.ID, events.WorkflowExecutionStarted{
		BaseEvent:     d.engine.baseEvent(events.WorkflowExecutionStartedEvent, definition.ID),
		ExecutionID:   execution.ID,
		WorkflowName:  definition.Name,
		TriggerObject: request.ObjectType,
		TriggerEvent:  request.Event,
		RecordID:      recordID,
		ActorID:       request.ActorID,
	})

	err = d.engine.Execute(ctx, execution, definition.Actions, request.Record, request.PreviousRecord, request.ActorID)
	if err != nil {
		logger.ErrorContext(ctx, "Execution could not be finalized", "execution_id", execution.ID, "error", err)
	}

	summary.Status = execution.Status
	summary.ErrorMessage = execution.ErrorMessage

	return summary
}
