package createtask

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
)

// ActionFactory creates CREATE_TASK actions.
type ActionFactory struct {
	store   records.Store
	auditor protocol.Auditor
	clock   clock.Clock
}

// NewActionFactory creates a new ActionFactory.
func NewActionFactory(store records.Store, auditor protocol.Auditor, clk clock.Clock) *ActionFactory {
	if clk == nil {
		clk = clock.New()
	}

	return &ActionFactory{store: store, auditor: auditor, clock: clk}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.store, f.auditor, f.clock)
}

func (f *ActionFactory) ID() string {
	return string(models.ActionTypeCreateTask)
}

func (f *ActionFactory) Name() string {
	return "Create Task"
}

func (f *ActionFactory) Description() string {
	return "Creates a follow-up task related to the triggering record."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{
				"type":        "string",
				"description": "Task subject. Supports placeholders.",
				"examples":    []string{"Call {{name}} about the approved quote"},
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Task description. Supports placeholders.",
			},
			"dueInDays": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"default": defaultDueInDays,
			},
			"priority": map[string]any{
				"type":    "string",
				"default": defaultPriority,
				"enum":    []string{"LOW", "NORMAL", "HIGH", "URGENT"},
			},
			"assigneeField": map[string]any{
				"type":        "string",
				"description": "Path of the assignee id on the triggering record. Defaults to the triggering actor.",
			},
		},
		"required": []string{"subject"},
	}
}
