// Package workflow runs workflow definitions against changing CRM records: the Dispatcher
// matches triggers to active definitions and the Engine executes their actions in order.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/condition"
	"github.com/pandacrm/automation/pkg/eventbus"
	"github.com/pandacrm/automation/pkg/events"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/otelhelper"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const skippedReason = "action conditions not met"

// ErrActionPanicked wraps a panic raised while building or running an action handler.
var ErrActionPanicked = errors.New("action handler panicked")

// Engine executes the ordered actions of one workflow for one triggering record.
type Engine struct {
	registry    *registry.Registry
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	evaluator   *condition.Evaluator
	tracer      trace.Tracer
	clock       clock.Clock
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for timestamps and DELAY scheduling.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clock = clk }
}

// WithTracer sets the tracer spans are recorded on.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithPublisher sets the bus execution lifecycle events are published on.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithEvaluator replaces the condition evaluator.
func WithEvaluator(evaluator *condition.Evaluator) Option {
	return func(e *Engine) { e.evaluator = evaluator }
}

// NewEngine returns an Engine resolving handlers from reg and storing executions in p.
func NewEngine(reg *registry.Registry, p persistence.Persistence, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		registry:    reg,
		persistence: p,
		logger:      logger.With("module", "workflow_engine"),
	}

	for _, opt := range opts {
		opt(engine)
	}

	if engine.clock == nil {
		engine.clock = clock.New()
	}

	if engine.tracer == nil {
		engine.tracer = otelhelper.NoopTracer()
	}

	if engine.evaluator == nil {
		engine.evaluator = condition.NewEvaluator(condition.WithLogger(logger))
	}

	return engine
}

// Execute runs actions in ascending ActionOrder and finishes execution as COMPLETED or
// FAILED. Action failures are recorded as outcomes, never returned. The returned error
// reports only that the finished execution could not be persisted.
func (e *Engine) Execute(
	ctx context.Context,
	execution *models.WorkflowExecution,
	actions []models.ActionDefinition,
	record, previous map[string]any,
	actorID string,
) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.RecordIDKey, execution.TriggerRecordID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", execution.WorkflowID, "execution_id", execution.ID)
	logger.InfoContext(ctx, "Starting execution", "actions", len(actions))

	if execution.Result == nil {
		execution.Result = []models.ActionOutcome{}
	}

	definition := models.WorkflowDefinition{Actions: actions}
	actx := protocol.ActionContext{
		ExecutionID:    execution.ID,
		WorkflowID:     execution.WorkflowID,
		TriggerObject:  execution.TriggerObject,
		TriggerEvent:   execution.TriggerEvent,
		Record:         record,
		PreviousRecord: previous,
		ActorID:        actorID,
	}

	for _, action := range definition.SortedActions() {
		actx.ActionID = action.ID

		outcome := e.runAction(ctx, execution, action, actx, logger)
		execution.Result = append(execution.Result, outcome)

		if outcome.Status == models.OutcomeFailed && action.StopsOnFailure() {
			execution.ErrorMessage = fmt.Sprintf("action %s (%s) failed: %s", action.ID, action.ActionType, outcome.Error)
			otelhelper.SetError(span, errors.New(execution.ErrorMessage),
				attribute.String(otelhelper.ActionIDKey, action.ID))

			return e.finish(ctx, execution, models.ExecutionStatusFailed, &action, logger)
		}
	}

	return e.finish(ctx, execution, models.ExecutionStatusCompleted, nil, logger)
}

func (e *Engine) runAction(
	ctx context.Context,
	execution *models.WorkflowExecution,
	action models.ActionDefinition,
	actx protocol.ActionContext,
	logger *slog.Logger,
) models.ActionOutcome {
	outcome := models.ActionOutcome{ActionID: action.ID, ActionType: action.ActionType}

	if !e.evaluator.Evaluate(action.Conditions, actx.Record, actx.PreviousRecord) {
		logger.DebugContext(ctx, "Skipping action", "action_id", action.ID)

		outcome.Status = models.OutcomeSkipped
		outcome.Reason = skippedReason

		return outcome
	}

	if action.ActionType == models.ActionTypeDelay {
		deferred, err := e.scheduleDelay(ctx, execution, action, actx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to schedule deferred action", "action_id", action.ID, "error", err)

			outcome.Status = models.OutcomeFailed
			outcome.Error = err.Error()

			return outcome
		}

		outcome.Status = models.OutcomeScheduled
		outcome.Result = map[string]any{
			"deferredActionId": deferred.ID,
			"scheduledFor":     deferred.ScheduledFor.Format(time.RFC3339),
		}

		return outcome
	}

	result, err := e.Dispatch(ctx, string(action.ActionType), action.Config, actx)
	if err != nil {
		logger.WarnContext(ctx, "Action failed", "action_id", action.ID, "action_type", action.ActionType, "error", err)

		outcome.Status = models.OutcomeFailed
		outcome.Error = err.Error()

		return outcome
	}

	outcome.Status = models.OutcomeCompleted
	outcome.Result = result

	return outcome
}

// Dispatch builds the handler for actionType and runs it once.
func (e *Engine) Dispatch(ctx context.Context, actionType string, config map[string]any, actx protocol.ActionContext) (any, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.action",
		attribute.String(otelhelper.ActionIDKey, actx.ActionID),
		attribute.String(otelhelper.ActionTypeKey, actionType),
		attribute.String(otelhelper.ExecutionIDKey, actx.ExecutionID),
	)
	defer span.End()

	logger := e.logger.With("action_id", actx.ActionID, "action_type", actionType, "execution_id", actx.ExecutionID)

	result, err := e.invoke(ctx, actionType, config, actx, logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return result, nil
}

// invoke builds and runs the handler. A panic in either step is returned as ErrActionPanicked.
func (e *Engine) invoke(
	ctx context.Context,
	actionType string,
	config map[string]any,
	actx protocol.ActionContext,
	logger *slog.Logger,
) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "Action handler panicked", "panic", recovered, "stack", string(debug.Stack()))

			result = nil
			err = fmt.Errorf("%w: %v", ErrActionPanicked, recovered)
		}
	}()

	handler, err := e.registry.CreateAction(ctx, actionType, config)
	if err != nil {
		return nil, err
	}

	return handler.Execute(ctx, actx, logger)
}

// scheduleDelay persists a DELAY as a PENDING deferred action carrying the record snapshot.
func (e *Engine) scheduleDelay(
	ctx context.Context,
	execution *models.WorkflowExecution,
	action models.ActionDefinition,
	actx protocol.ActionContext,
) (*models.DeferredAction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate deferred action ID: %w", err)
	}

	now := e.clock.Now().UTC()
	deferred := &models.DeferredAction{
		ID:         id.String(),
		EntityType: execution.TriggerObject,
		EntityID:   execution.TriggerRecordID,
		Payload: models.DeferredPayload{
			ActionID:    action.ID,
			WorkflowID:  execution.WorkflowID,
			ExecutionID: execution.ID,
			ActorID:     actx.ActorID,
			Record:      actx.Record,
		},
		ScheduledFor: now.Add(time.Duration(action.DelayMinutes) * time.Minute),
		Status:       models.DeferredStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = e.persistence.DeferredActionRepository().Save(ctx, deferred)
	if err != nil {
		return nil, fmt.Errorf("failed to save deferred action: %w", err)
	}

	e.publish(ctx, execution.ID, events.ActionDeferred{
		BaseEvent:        e.baseEvent(events.ActionDeferredEvent, execution.WorkflowID),
		ExecutionID:      execution.ID,
		ActionID:         action.ID,
		DeferredActionID: deferred.ID,
		ScheduledFor:     deferred.ScheduledFor,
	})

	return deferred, nil
}

func (e *Engine) finish(
	ctx context.Context,
	execution *models.WorkflowExecution,
	status models.ExecutionStatus,
	failed *models.ActionDefinition,
	logger *slog.Logger,
) error {
	completedAt := e.clock.Now().UTC()
	execution.Status = status
	execution.CompletedAt = &completedAt

	err := e.persistence.ExecutionRepository().Save(ctx, execution)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist execution", "error", err)

		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	durationMs := completedAt.Sub(execution.StartedAt).Milliseconds()

	if failed != nil {
		logger.WarnContext(ctx, "Execution failed", "error", execution.ErrorMessage)

		e.publish(ctx, execution.ID, events.WorkflowExecutionFailed{
			BaseEvent:   e.baseEvent(events.WorkflowExecutionFailedEvent, execution.WorkflowID),
			ExecutionID: execution.ID,
			Status:      status,
			DurationMs:  durationMs,
			Error: events.WorkflowError{
				ActionID:   failed.ID,
				ActionType: failed.ActionType,
				Message:    execution.ErrorMessage,
			},
			PartialResults: execution.Result,
		})

		return nil
	}

	logger.InfoContext(ctx, "Execution completed", "outcomes", len(execution.Result))

	e.publish(ctx, execution.ID, events.WorkflowExecutionCompleted{
		BaseEvent:   e.baseEvent(events.WorkflowExecutionCompletedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Status:      status,
		DurationMs:  durationMs,
		Outcomes:    execution.Result,
	})

	return nil
}

func (e *Engine) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflowID)
	base.Timestamp = e.clock.Now().UTC()

	return base
}

// publish is best effort; a bus outage never changes an execution's outcome.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
