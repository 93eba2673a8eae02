package commission

import (
	"context"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
)

// ActionFactory creates CREATE_COMMISSION actions.
type ActionFactory struct {
	calculator protocol.CommissionCalculator
}

// NewActionFactory creates a new ActionFactory.
func NewActionFactory(calculator protocol.CommissionCalculator) *ActionFactory {
	return &ActionFactory{calculator: calculator}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.calculator)
}

func (f *ActionFactory) ID() string {
	return string(models.ActionTypeCreateCommission)
}

func (f *ActionFactory) Name() string {
	return "Create Commission"
}

func (f *ActionFactory) Description() string {
	return "Asks the commission service to calculate commissions for a record."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recordType": map[string]any{
				"type":        "string",
				"description": "Entity type the commission is calculated for. Defaults to the trigger object.",
				"enum":        records.EntityTypes,
			},
			"recordIdField": map[string]any{
				"type":        "string",
				"description": "Path of the record id on the triggering record.",
				"default":     records.IDField,
			},
			"triggerEvent": map[string]any{
				"type":        "string",
				"description": "Event reported to the calculator. Defaults to the trigger event.",
				"examples":    []string{"WON", "PAID"},
			},
		},
	}
}
