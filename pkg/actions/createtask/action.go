// Package createtask provides the CREATE_TASK action.
package createtask

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pandacrm/automation/pkg/actions"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
	"github.com/pandacrm/automation/pkg/template"
)

const (
	defaultDueInDays = 1
	defaultPriority  = "NORMAL"
	statusOpen       = "OPEN"
)

// Action creates a task related to the triggering record.
type Action struct {
	Subject       string
	Description   string
	DueInDays     int
	Priority      string
	AssigneeField string

	store   records.Store
	auditor protocol.Auditor
	clock   clock.Clock
}

// NewAction creates a CREATE_TASK action from configuration.
func NewAction(config map[string]any, store records.Store, auditor protocol.Auditor, clk clock.Clock) (*Action, error) {
	subject, err := actions.RequireString(config, "subject")
	if err != nil {
		return nil, err
	}

	dueInDays := actions.Int(config, "dueInDays", defaultDueInDays)
	if dueInDays < 0 {
		return nil, fmt.Errorf("'dueInDays' must not be negative, got %d", dueInDays)
	}

	return &Action{
		Subject:       subject,
		Description:   actions.String(config, "description", ""),
		DueInDays:     dueInDays,
		Priority:      actions.String(config, "priority", defaultPriority),
		AssigneeField: actions.String(config, "assigneeField", ""),
		store:         store,
		auditor:       auditor,
		clock:         clk,
	}, nil
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	assignee := actx.ActorID
	if a.AssigneeField != "" {
		if resolved := template.Stringify(template.Resolve(actx.Record, a.AssigneeField)); resolved != "" {
			assignee = resolved
		}
	}

	dueDate := a.clock.Now().UTC().AddDate(0, 0, a.DueInDays)

	task := map[string]any{
		"subject":             template.Interpolate(a.Subject, actx.Record),
		"description":         template.Interpolate(a.Description, actx.Record),
		"dueDate":             dueDate.Format(time.RFC3339),
		"priority":            a.Priority,
		"status":              statusOpen,
		"assignedToId":        assignee,
		"relatedToId":         actx.RecordID(),
		"relatedToType":       actx.TriggerObject,
		"createdById":         actx.ActorID,
		"workflowExecutionId": actx.ExecutionID,
	}

	created, err := a.store.Create(ctx, records.EntityTask, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	taskID := records.RecordID(created)

	a.auditor.Record(ctx, models.AuditLogEntry{
		EntityType: records.EntityTask,
		EntityID:   taskID,
		Action:     models.AuditActionCreate,
		NewValues:  created,
		ActorID:    actx.ActorID,
	})

	logger.InfoContext(ctx, "Task created", "module", "create_task_action", "task_id", taskID)

	return map[string]any{
		"created": true,
		"taskId":  taskID,
	}, nil
}
