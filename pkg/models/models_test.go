package models

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestWorkflowDefinition_Validation_Valid(t *testing.T) {
	definition := &WorkflowDefinition{
		Name:          "Approved opportunity follow-up",
		TriggerObject: "Opportunity",
		TriggerEvent:  TriggerEventFieldChange,
		IsActive:      true,
		Actions: []ActionDefinition{
			{ID: "a1", ActionOrder: 1, ActionType: ActionTypeCreateTask},
		},
	}

	validate := validator.New()
	assert.NoError(t, validate.Struct(definition))
}

func TestWorkflowDefinition_Validation_InvalidTriggerEvent(t *testing.T) {
	definition := &WorkflowDefinition{
		Name:          "Bad event",
		TriggerObject: "Lead",
		TriggerEvent:  "DELETE",
	}

	validate := validator.New()
	err := validate.Struct(definition)
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
	assert.Equal(t, "TriggerEvent", validationErrors[0].Field())
	assert.Equal(t, "oneof", validationErrors[0].Tag())
}

func TestWorkflowDefinition_Validation_NegativeDelay(t *testing.T) {
	definition := &WorkflowDefinition{
		Name:          "Negative delay",
		TriggerObject: "Lead",
		TriggerEvent:  TriggerEventCreate,
		Actions: []ActionDefinition{
			{ID: "a1", ActionType: ActionTypeDelay, DelayMinutes: -5},
		},
	}

	validate := validator.New()
	assert.Error(t, validate.Struct(definition))
}

func TestActionDefinition_StopsOnFailure(t *testing.T) {
	assert.True(t, ActionDefinition{}.StopsOnFailure())
	assert.True(t, ActionDefinition{StopOnFailure: boolPtr(true)}.StopsOnFailure())
	assert.False(t, ActionDefinition{StopOnFailure: boolPtr(false)}.StopsOnFailure())
}

func TestWorkflowDefinition_SortedActions(t *testing.T) {
	definition := &WorkflowDefinition{
		Actions: []ActionDefinition{
			{ID: "third", ActionOrder: 3},
			{ID: "first", ActionOrder: 1},
			{ID: "second-a", ActionOrder: 2},
			{ID: "second-b", ActionOrder: 2},
		},
	}

	sorted := definition.SortedActions()

	ids := make([]string, 0, len(sorted))
	for _, action := range sorted {
		ids = append(ids, action.ID)
	}

	assert.Equal(t, []string{"first", "second-a", "second-b", "third"}, ids)
	assert.Equal(t, "third", definition.Actions[0].ID, "definition must not be reordered")
}

func TestWorkflowDefinition_ActionByID(t *testing.T) {
	definition := &WorkflowDefinition{
		Actions: []ActionDefinition{{ID: "a1"}, {ID: "a2", ActionType: ActionTypeDelay}},
	}

	action, ok := definition.ActionByID("a2")
	require.True(t, ok)
	assert.Equal(t, ActionTypeDelay, action.ActionType)

	_, ok = definition.ActionByID("missing")
	assert.False(t, ok)
}

func TestConditionTree_IsEmpty(t *testing.T) {
	var nilTree *ConditionTree
	assert.True(t, nilTree.IsEmpty())
	assert.True(t, (&ConditionTree{Operator: LogicalAnd}).IsEmpty())
	assert.False(t, (&ConditionTree{Rules: []Rule{{Field: "stage", Operator: OperatorIsNotNull}}}).IsEmpty())
	assert.False(t, (&ConditionTree{Groups: []ConditionTree{{}}}).IsEmpty())
}

func TestTriggerEvent_IsValid(t *testing.T) {
	for _, event := range TriggerEvents {
		assert.True(t, event.IsValid())
	}

	assert.False(t, TriggerEvent("DELETE").IsValid())
}

func TestDocumentType_IsValid(t *testing.T) {
	assert.True(t, DocumentTypeWorkOrder.IsValid())
	assert.False(t, DocumentType("receipt").IsValid())
}

func TestActionDefinition_DelayFollowUp(t *testing.T) {
	_, _, ok := ActionDefinition{ActionType: ActionTypeDelay}.DelayFollowUp()
	assert.False(t, ok)

	_, _, ok = ActionDefinition{Config: map[string]any{"action": map[string]any{"config": map[string]any{}}}}.DelayFollowUp()
	assert.False(t, ok)

	actionType, config, ok := ActionDefinition{
		ActionType: ActionTypeDelay,
		Config: map[string]any{
			"action": map[string]any{"actionType": "SEND_SMS"},
		},
	}.DelayFollowUp()
	require.True(t, ok)
	assert.Equal(t, ActionTypeSendSMS, actionType)
	assert.Empty(t, config)
}
