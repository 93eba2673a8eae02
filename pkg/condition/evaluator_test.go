package condition

import (
	"testing"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(field string, op models.RuleOperator, value any) models.Rule {
	return models.Rule{Field: field, Operator: op, Value: value}
}

func TestEvaluator_EmptyTreeIsTrue(t *testing.T) {
	evaluator := NewEvaluator()

	assert.True(t, evaluator.Evaluate(nil, nil, nil))
	assert.True(t, evaluator.Evaluate(&models.ConditionTree{Operator: models.LogicalOr}, nil, nil))
}

func TestEvaluator_Operators(t *testing.T) {
	record := map[string]any{
		"stage":   "APPROVED",
		"amount":  1500.0,
		"count":   3,
		"active":  true,
		"name":    "Smith Roofing",
		"note":    "n/a",
		"empty":   nil,
		"account": map[string]any{"tier": "gold"},
	}

	tests := []struct {
		name     string
		rule     models.Rule
		expected bool
	}{
		{name: "equals string", rule: rule("stage", models.OperatorEquals, "APPROVED"), expected: true},
		{name: "equals number across types", rule: rule("count", models.OperatorEquals, 3.0), expected: true},
		{name: "equals numeric string is strict", rule: rule("amount", models.OperatorEquals, "1500"), expected: false},
		{name: "equals boolean string is strict", rule: rule("active", models.OperatorEquals, "true"), expected: false},
		{name: "equals boolean", rule: rule("active", models.OperatorEquals, true), expected: true},
		{name: "in is strict across kinds", rule: rule("count", models.OperatorIn, []any{"3"}), expected: false},
		{name: "equals nested", rule: rule("account.tier", models.OperatorEquals, "gold"), expected: true},
		{name: "not equals", rule: rule("stage", models.OperatorNotEquals, "PENDING"), expected: true},
		{name: "contains", rule: rule("name", models.OperatorContains, "Roof"), expected: true},
		{name: "contains coerces number", rule: rule("amount", models.OperatorContains, 50), expected: true},
		{name: "starts with", rule: rule("name", models.OperatorStartsWith, "Smith"), expected: true},
		{name: "ends with", rule: rule("name", models.OperatorEndsWith, "Roofing"), expected: true},
		{name: "ends with miss", rule: rule("name", models.OperatorEndsWith, "Inc"), expected: false},
		{name: "greater than", rule: rule("amount", models.OperatorGreaterThan, 1000), expected: true},
		{name: "greater than numeric string", rule: rule("amount", models.OperatorGreaterThan, "1499.99"), expected: true},
		{name: "less than", rule: rule("amount", models.OperatorLessThan, 1000), expected: false},
		{name: "greater or equal", rule: rule("amount", models.OperatorGreaterOrEqual, 1500), expected: true},
		{name: "less or equal", rule: rule("count", models.OperatorLessOrEqual, 3), expected: true},
		{name: "is null nil value", rule: rule("empty", models.OperatorIsNull, nil), expected: true},
		{name: "is null missing field", rule: rule("missing", models.OperatorIsNull, nil), expected: true},
		{name: "is not null", rule: rule("stage", models.OperatorIsNotNull, nil), expected: true},
		{name: "in", rule: rule("stage", models.OperatorIn, []any{"APPROVED", "WON"}), expected: true},
		{name: "in string slice", rule: rule("stage", models.OperatorIn, []string{"LOST"}), expected: false},
		{name: "not in", rule: rule("stage", models.OperatorNotIn, []any{"LOST"}), expected: true},
		{name: "in requires array", rule: rule("stage", models.OperatorIn, "APPROVED"), expected: false},
		{name: "not in requires array", rule: rule("stage", models.OperatorNotIn, "LOST"), expected: false},
		{name: "unknown operator", rule: rule("stage", "matches", ".*"), expected: false},
	}

	evaluator := NewEvaluator()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluator.EvaluateRule(tt.rule, record, nil))
		})
	}
}

func TestEvaluator_NaNNeverSatisfiesOrdering(t *testing.T) {
	record := map[string]any{"note": "n/a", "blank": ""}
	evaluator := NewEvaluator()

	for _, op := range []models.RuleOperator{
		models.OperatorGreaterThan,
		models.OperatorLessThan,
		models.OperatorGreaterOrEqual,
		models.OperatorLessOrEqual,
	} {
		assert.False(t, evaluator.EvaluateRule(rule("note", op, 0), record, nil), "note %s", op)
		assert.False(t, evaluator.EvaluateRule(rule("blank", op, 0), record, nil), "blank %s", op)
		assert.False(t, evaluator.EvaluateRule(rule("missing", op, 0), record, nil), "missing %s", op)
		assert.False(t, evaluator.EvaluateRule(rule("note", op, "abc"), map[string]any{"note": 5}, nil), "value %s", op)
	}
}

func TestEvaluator_Changed(t *testing.T) {
	evaluator := NewEvaluator()
	changed := rule("stage", models.OperatorChanged, nil)

	same := map[string]any{"stage": "PENDING"}
	assert.False(t, evaluator.EvaluateRule(changed, same, map[string]any{"stage": "PENDING"}))

	assert.True(t, evaluator.EvaluateRule(changed, map[string]any{"stage": "APPROVED"}, same))
	assert.True(t, evaluator.EvaluateRule(changed, same, map[string]any{"stage": "APPROVED"}))

	assert.True(t, evaluator.EvaluateRule(changed, same, nil), "undefined previous counts as changed")
	assert.False(t, evaluator.EvaluateRule(changed, map[string]any{}, map[string]any{}), "both undefined")
	assert.False(t, evaluator.EvaluateRule(rule("amount", models.OperatorChanged, nil),
		map[string]any{"amount": 10}, map[string]any{"amount": 10.0}))

	// A value that changes kind has changed even when it reads the same
	assert.True(t, evaluator.EvaluateRule(rule("status", models.OperatorChanged, nil),
		map[string]any{"status": 1.0}, map[string]any{"status": "1"}))
	assert.True(t, evaluator.EvaluateRule(rule("active", models.OperatorChanged, nil),
		map[string]any{"active": true}, map[string]any{"active": "true"}))
}

func TestEvaluator_ChangedToAndFrom(t *testing.T) {
	evaluator := NewEvaluator()
	current := map[string]any{"stage": "APPROVED"}
	previous := map[string]any{"stage": "PENDING"}

	assert.True(t, evaluator.EvaluateRule(rule("stage", models.OperatorChangedTo, "APPROVED"), current, previous))
	assert.False(t, evaluator.EvaluateRule(rule("stage", models.OperatorChangedTo, "APPROVED"), current, current))
	assert.False(t, evaluator.EvaluateRule(rule("stage", models.OperatorChangedTo, "WON"), current, previous))
	assert.True(t, evaluator.EvaluateRule(rule("stage", models.OperatorChangedTo, "APPROVED"), current, nil))

	assert.True(t, evaluator.EvaluateRule(rule("stage", models.OperatorChangedFrom, "PENDING"), current, previous))
	assert.False(t, evaluator.EvaluateRule(rule("stage", models.OperatorChangedFrom, "PENDING"), previous, previous))
	assert.False(t, evaluator.EvaluateRule(rule("stage", models.OperatorChangedFrom, "PENDING"), current, nil))

	// Exact equality to the rule value: no string/number or string/boolean coercion
	assert.False(t, evaluator.EvaluateRule(rule("score", models.OperatorChangedTo, "5"), map[string]any{"score": 5.0}, nil))
	assert.True(t, evaluator.EvaluateRule(rule("score", models.OperatorChangedTo, 5), map[string]any{"score": 5.0}, nil))
	assert.True(t, evaluator.EvaluateRule(rule("score", models.OperatorChangedTo, 1),
		map[string]any{"score": 1.0}, map[string]any{"score": "1"}))
	assert.False(t, evaluator.EvaluateRule(rule("active", models.OperatorChangedFrom, "true"),
		map[string]any{"active": false}, map[string]any{"active": true}))
	assert.True(t, evaluator.EvaluateRule(rule("active", models.OperatorChangedFrom, true),
		map[string]any{"active": false}, map[string]any{"active": true}))
}

func TestEvaluator_CheckPrevious(t *testing.T) {
	evaluator := NewEvaluator()
	r := models.Rule{Field: "stage", Operator: models.OperatorEquals, Value: "PENDING", CheckPrevious: true}

	assert.True(t, evaluator.EvaluateRule(r, map[string]any{"stage": "APPROVED"}, map[string]any{"stage": "PENDING"}))
	assert.False(t, evaluator.EvaluateRule(r, map[string]any{"stage": "PENDING"}, map[string]any{"stage": "APPROVED"}))
}

func TestEvaluator_AndShortCircuits(t *testing.T) {
	var evaluated []string

	evaluator := NewEvaluator(WithProbe(func(r models.Rule) {
		evaluated = append(evaluated, r.Field)
	}))

	tree := &models.ConditionTree{
		Operator: models.LogicalAnd,
		Rules: []models.Rule{
			rule("a", models.OperatorEquals, 1),
			rule("b", models.OperatorEquals, 1),
			rule("c", models.OperatorEquals, 1),
		},
		Groups: []models.ConditionTree{
			{Rules: []models.Rule{rule("d", models.OperatorEquals, 1)}},
		},
	}

	result := evaluator.Evaluate(tree, map[string]any{"a": 1, "b": 2, "c": 1, "d": 1}, nil)

	assert.False(t, result)
	assert.Equal(t, []string{"a", "b"}, evaluated)
}

func TestEvaluator_AndFalseIfAnyRuleFalse(t *testing.T) {
	evaluator := NewEvaluator()
	record := map[string]any{"a": 1, "b": 1, "c": 1}

	for i := range 3 {
		rules := []models.Rule{
			rule("a", models.OperatorEquals, 1),
			rule("b", models.OperatorEquals, 1),
			rule("c", models.OperatorEquals, 1),
		}
		rules[i].Value = 2

		assert.False(t, evaluator.Evaluate(&models.ConditionTree{Operator: models.LogicalAnd, Rules: rules}, record, nil))
	}

	assert.True(t, evaluator.Evaluate(&models.ConditionTree{
		Operator: models.LogicalAnd,
		Rules:    []models.Rule{rule("a", models.OperatorEquals, 1), rule("b", models.OperatorEquals, 1)},
	}, record, nil))
}

func TestEvaluator_OrShortCircuits(t *testing.T) {
	count := 0
	evaluator := NewEvaluator(WithProbe(func(models.Rule) { count++ }))

	tree := &models.ConditionTree{
		Operator: models.LogicalOr,
		Rules: []models.Rule{
			rule("a", models.OperatorEquals, 2),
			rule("b", models.OperatorEquals, 1),
			rule("c", models.OperatorEquals, 1),
		},
	}

	assert.True(t, evaluator.Evaluate(tree, map[string]any{"a": 1, "b": 1, "c": 1}, nil))
	assert.Equal(t, 2, count)

	count = 0
	assert.False(t, evaluator.Evaluate(tree, map[string]any{"a": 1, "b": 0, "c": 0}, nil))
	assert.Equal(t, 3, count)
}

func TestEvaluator_NestedGroups(t *testing.T) {
	evaluator := NewEvaluator()

	tree := &models.ConditionTree{
		Operator: models.LogicalAnd,
		Rules:    []models.Rule{rule("type", models.OperatorEquals, "residential")},
		Groups: []models.ConditionTree{
			{
				Operator: models.LogicalOr,
				Rules: []models.Rule{
					rule("amount", models.OperatorGreaterThan, 10000),
					rule("priority", models.OperatorEquals, "HIGH"),
				},
			},
		},
	}

	assert.True(t, evaluator.Evaluate(tree, map[string]any{"type": "residential", "amount": 500, "priority": "HIGH"}, nil))
	assert.False(t, evaluator.Evaluate(tree, map[string]any{"type": "residential", "amount": 500, "priority": "LOW"}, nil))
	assert.False(t, evaluator.Evaluate(tree, map[string]any{"type": "commercial", "amount": 50000}, nil))
}

func TestEvaluator_UnknownTreeOperatorIsFalse(t *testing.T) {
	evaluator := NewEvaluator()
	tree := &models.ConditionTree{Operator: "XOR", Rules: []models.Rule{rule("a", models.OperatorIsNull, nil)}}

	assert.False(t, evaluator.Evaluate(tree, map[string]any{}, nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tree    *models.ConditionTree
		wantErr bool
	}{
		{name: "nil", tree: nil},
		{name: "valid", tree: &models.ConditionTree{Operator: models.LogicalAnd, Rules: []models.Rule{rule("stage", models.OperatorIn, []any{"A"})}}},
		{name: "bad tree operator", tree: &models.ConditionTree{Operator: "NAND"}, wantErr: true},
		{name: "missing field", tree: &models.ConditionTree{Rules: []models.Rule{rule("", models.OperatorIsNull, nil)}}, wantErr: true},
		{name: "unknown rule operator", tree: &models.ConditionTree{Rules: []models.Rule{rule("a", "like", "x")}}, wantErr: true},
		{name: "in without array", tree: &models.ConditionTree{Rules: []models.Rule{rule("a", models.OperatorNotIn, "x")}}, wantErr: true},
		{
			name:    "invalid nested group",
			tree:    &models.ConditionTree{Groups: []models.ConditionTree{{Rules: []models.Rule{rule("a", "regex", "x")}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tree)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedTree)

				return
			}

			assert.NoError(t, err)
		})
	}
}
