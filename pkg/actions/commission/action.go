// Package commission provides the CREATE_COMMISSION action.
package commission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pandacrm/automation/pkg/actions"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
	"github.com/pandacrm/automation/pkg/template"
)

// ErrMissingRecordID is returned when the record id cannot be resolved from the triggering record.
var ErrMissingRecordID = errors.New("commission record id could not be resolved")

// Action delegates commission calculation to a CommissionCalculator.
type Action struct {
	RecordType    string
	RecordIDField string
	TriggerEvent  string

	calculator protocol.CommissionCalculator
}

// NewAction creates a CREATE_COMMISSION action from configuration.
func NewAction(config map[string]any, calculator protocol.CommissionCalculator) (*Action, error) {
	recordType := actions.String(config, "recordType", "")
	if recordType != "" {
		err := records.ValidateEntityType(recordType)
		if err != nil {
			return nil, err
		}
	}

	return &Action{
		RecordType:    recordType,
		RecordIDField: actions.String(config, "recordIdField", records.IDField),
		TriggerEvent:  actions.String(config, "triggerEvent", ""),
		calculator:    calculator,
	}, nil
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	request := protocol.CommissionRequest{
		RecordType:   a.RecordType,
		RecordID:     template.Stringify(template.Resolve(actx.Record, a.RecordIDField)),
		TriggerEvent: a.TriggerEvent,
		ActorID:      actx.ActorID,
	}

	if request.RecordType == "" {
		request.RecordType = actx.TriggerObject
	}

	if request.TriggerEvent == "" {
		request.TriggerEvent = string(actx.TriggerEvent)
	}

	if request.RecordID == "" {
		return nil, fmt.Errorf("%w: field '%s'", ErrMissingRecordID, a.RecordIDField)
	}

	result, err := a.calculator.Calculate(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("commission calculation failed: %w", err)
	}

	logger.InfoContext(ctx, "Commission calculated",
		"module", "commission_action",
		"record_type", request.RecordType,
		"record_id", request.RecordID,
	)

	return result, nil
}
