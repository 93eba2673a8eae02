package updatefield

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
)

// ActionFactory creates UPDATE_FIELD actions.
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
	return string(models.ActionTypeUpdateField)
}

func (f *ActionFactory) Name() string {
	return "Update Field"
}

func (f *ActionFactory) Description() string {
	return "Writes a literal, copied, computed or timestamp value into a field of a record."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"targetObject": map[string]any{
				"type":        "string",
				"description": "Entity type to update. Defaults to the trigger object.",
				"enum":        records.EntityTypes,
			},
			"targetField": map[string]any{
				"type":        "string",
				"description": "Field to write.",
				"minLength":   1,
			},
			"value": map[string]any{
				"description": "Literal value, source field path or formula, depending on valueType.",
				"examples":    []any{"CLOSED_WON", "account.ownerId", "{amount} * 0.15"},
			},
			"valueType": map[string]any{
				"type":    "string",
				"default": "literal",
				"enum":    []string{"literal", "field", "formula", "now"},
			},
			"recordIdField": map[string]any{
				"type":        "string",
				"description": "Path on the triggering record holding the id of the record to update.",
				"default":     "id",
			},
		},
		"required": []string{"targetField"},
	}
}
