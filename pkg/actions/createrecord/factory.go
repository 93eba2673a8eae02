package createrecord

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
)

// ActionFactory creates CREATE_RECORD actions.
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
	return string(models.ActionTypeCreateRecord)
}

func (f *ActionFactory) Name() string {
	return "Create Record"
}

func (f *ActionFactory) Description() string {
	return "Creates a record of any entity type from field mappings evaluated against the triggering record."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"targetObject": map[string]any{
				"type": "string",
				"enum": records.EntityTypes,
			},
			"fieldMappings": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field":     map[string]any{"type": "string", "minLength": 1},
						"value":     map[string]any{},
						"valueType": map[string]any{"type": "string", "enum": []string{"literal", "field", "formula", "now"}},
					},
					"required": []string{"field"},
				},
			},
		},
		"required": []string{"targetObject"},
	}
}
