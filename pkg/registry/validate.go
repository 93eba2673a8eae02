package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pandacrm/automation/pkg/condition"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/records"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDelay is returned for DELAY actions without a positive delay.
var ErrInvalidDelay = errors.New("DELAY action requires delay_minutes > 0")

// ValidateConfig checks config against the JSON schema of actionType's factory.
func (r *Registry) ValidateConfig(actionType string, config map[string]any) error {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownActionType, actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", actionType, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, actionType, strings.Join(messages, "; "))
	}

	return nil
}

// ValidateWorkflow rejects a definition the engine could not run as written: failed struct
// validation, unknown trigger objects, malformed condition trees, unknown action types and
// action configs their factory refuses. Nothing is executed.
func (r *Registry) ValidateWorkflow(ctx context.Context, definition *models.WorkflowDefinition) error {
	err := validator.New().Struct(definition)
	if err != nil {
		return fmt.Errorf("invalid workflow definition: %w", err)
	}

	err = records.ValidateEntityType(definition.TriggerObject)
	if err != nil {
		return fmt.Errorf("invalid trigger object: %w", err)
	}

	err = condition.Validate(definition.TriggerConditions)
	if err != nil {
		return fmt.Errorf("invalid trigger conditions: %w", err)
	}

	for i, action := range definition.Actions {
		err = r.validateAction(ctx, action)
		if err != nil {
			return fmt.Errorf("actions[%d] (%s): %w", i, action.ID, err)
		}
	}

	return nil
}

func (r *Registry) validateAction(ctx context.Context, action models.ActionDefinition) error {
	err := condition.Validate(action.Conditions)
	if err != nil {
		return err
	}

	if action.ActionType != models.ActionTypeDelay {
		return r.validateHandler(ctx, string(action.ActionType), action.Config)
	}

	if action.DelayMinutes <= 0 {
		return ErrInvalidDelay
	}

	followUpType, followUpConfig, ok := action.DelayFollowUp()
	if !ok {
		return nil
	}

	if followUpType == models.ActionTypeDelay {
		return fmt.Errorf("%w: a DELAY cannot be followed by another DELAY", ErrInvalidConfig)
	}

	return r.validateHandler(ctx, string(followUpType), followUpConfig)
}

func (r *Registry) validateHandler(ctx context.Context, actionType string, config map[string]any) error {
	err := r.ValidateConfig(actionType, config)
	if err != nil {
		return err
	}

	_, err = r.CreateAction(ctx, actionType, config)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, actionType, err)
	}

	return nil
}
