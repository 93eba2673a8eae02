// Package createrecord provides the CREATE_RECORD action.
package createrecord

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
)

// ErrReservedField is returned when a field mapping targets the record id, which the store assigns.
var ErrReservedField = errors.New("field is assigned by the record store")

// FieldMapping computes one field of the new record.
type FieldMapping struct {
	Field     string
	Value     any
	ValueType actions.ValueType
}

// Action creates one record and audits it.
type Action struct {
	TargetObject  string
	FieldMappings []FieldMapping

	store   records.Store
	auditor protocol.Auditor
	clock   clock.Clock
}

// NewAction creates a CREATE_RECORD action. An unknown targetObject is a configuration error.
func NewAction(config map[string]any, store records.Store, auditor protocol.Auditor, clk clock.Clock) (*Action, error) {
	targetObject, err := actions.RequireString(config, "targetObject")
	if err != nil {
		return nil, err
	}

	err = records.ValidateEntityType(targetObject)
	if err != nil {
		return nil, err
	}

	mappings, err := parseMappings(config["fieldMappings"])
	if err != nil {
		return nil, err
	}

	return &Action{
		TargetObject:  targetObject,
		FieldMappings: mappings,
		store:         store,
		auditor:       auditor,
		clock:         clk,
	}, nil
}

func parseMappings(raw any) ([]FieldMapping, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: 'fieldMappings' must be a list", actions.ErrMissingConfig)
	}

	mappings := make([]FieldMapping, 0, len(items))

	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("fieldMappings[%d] must be an object", i)
		}

		field, err := actions.RequireString(entry, "field")
		if err != nil {
			return nil, fmt.Errorf("fieldMappings[%d]: %w", i, err)
		}

		if field == records.IDField {
			return nil, fmt.Errorf("fieldMappings[%d]: %w: %q", i, ErrReservedField, field)
		}

		valueType, err := actions.ParseValueType(actions.String(entry, "valueType", ""))
		if err != nil {
			return nil, fmt.Errorf("fieldMappings[%d]: %w", i, err)
		}

		mappings = append(mappings, FieldMapping{Field: field, Value: entry["value"], ValueType: valueType})
	}

	return mappings, nil
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	now := a.clock.Now()

	data := make(map[string]any, len(a.FieldMappings))
	for _, mapping := range a.FieldMappings {
		data[mapping.Field] = actions.ResolveValue(mapping.ValueType, mapping.Value, actx.Record, now)
	}

	created, err := a.store.Create(ctx, a.TargetObject, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", a.TargetObject, err)
	}

	recordID := records.RecordID(created)

	a.auditor.Record(ctx, models.AuditLogEntry{
		EntityType: a.TargetObject,
		EntityID:   recordID,
		Action:     models.AuditActionCreate,
		NewValues:  created,
		ActorID:    actx.ActorID,
	})

	logger.InfoContext(ctx, "Record created",
		"module", "create_record_action",
		"entity_type", a.TargetObject,
		"entity_id", recordID,
	)

	return map[string]any{
		"created":  true,
		"recordId": recordID,
	}, nil
}
