// Package updatefield provides the UPDATE_FIELD action.
package updatefield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/pandacrm/automation/pkg/actions"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
	"github.com/pandacrm/automation/pkg/template"
)

// ErrMissingRecordID is returned when the id of the record to update cannot be resolved.
var ErrMissingRecordID = errors.New("record id could not be resolved")

// Action writes one field of one record and audits the change.
type Action struct {
	TargetObject  string
	TargetField   string
	Value         any
	ValueType     actions.ValueType
	RecordIDField string

	store   records.Store
	auditor protocol.Auditor
	clock   clock.Clock
}

// NewAction creates an UPDATE_FIELD action from configuration.
func NewAction(config map[string]any, store records.Store, auditor protocol.Auditor, clk clock.Clock) (*Action, error) {
	targetField, err := actions.RequireString(config, "targetField")
	if err != nil {
		return nil, err
	}

	targetObject := actions.String(config, "targetObject", "")
	if targetObject != "" {
		err = records.ValidateEntityType(targetObject)
		if err != nil {
			return nil, err
		}
	}

	valueType, err := actions.ParseValueType(actions.String(config, "valueType", ""))
	if err != nil {
		return nil, err
	}

	return &Action{
		TargetObject:  targetObject,
		TargetField:   targetField,
		Value:         config["value"],
		ValueType:     valueType,
		RecordIDField: actions.String(config, "recordIdField", records.IDField),
		store:         store,
		auditor:       auditor,
		clock:         clk,
	}, nil
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	targetObject := a.TargetObject
	if targetObject == "" {
		targetObject = actx.TriggerObject
	}

	recordID := template.Stringify(template.Resolve(actx.Record, a.RecordIDField))
	if recordID == "" {
		return nil, fmt.Errorf("%w: field '%s'", ErrMissingRecordID, a.RecordIDField)
	}

	newValue := actions.ResolveValue(a.ValueType, a.Value, actx.Record, a.clock.Now())

	before, err := a.store.Update(ctx, targetObject, recordID, map[string]any{a.TargetField: newValue})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", targetObject, recordID, err)
	}

	a.auditor.Record(ctx, models.AuditLogEntry{
		EntityType: targetObject,
		EntityID:   recordID,
		Action:     models.AuditActionUpdate,
		OldValues:  map[string]any{a.TargetField: before[a.TargetField]},
		NewValues:  map[string]any{a.TargetField: newValue},
		ActorID:    actx.ActorID,
	})

	logger.InfoContext(ctx, "Field updated",
		"module", "update_field_action",
		"entity_type", targetObject,
		"entity_id", recordID,
		"field", a.TargetField,
	)

	return map[string]any{
		"updated":  true,
		"field":    a.TargetField,
		"newValue": newValue,
	}, nil
}
