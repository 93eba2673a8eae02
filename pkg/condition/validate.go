package condition

import (
	"errors"
	"fmt"

	"github.com/pandacrm/automation/pkg/models"
)

// ErrMalformedTree is returned for condition trees that cannot be evaluated as written.
var ErrMalformedTree = errors.New("malformed condition tree")

var knownOperators = map[models.RuleOperator]struct{}{
	models.OperatorEquals:         {},
	models.OperatorNotEquals:      {},
	models.OperatorContains:       {},
	models.OperatorStartsWith:     {},
	models.OperatorEndsWith:       {},
	models.OperatorGreaterThan:    {},
	models.OperatorLessThan:       {},
	models.OperatorGreaterOrEqual: {},
	models.OperatorLessOrEqual:    {},
	models.OperatorIsNull:         {},
	models.OperatorIsNotNull:      {},
	models.OperatorChanged:        {},
	models.OperatorChangedTo:      {},
	models.OperatorChangedFrom:    {},
	models.OperatorIn:             {},
	models.OperatorNotIn:          {},
}

// IsKnownOperator reports whether op is a supported rule operator.
func IsKnownOperator(op models.RuleOperator) bool {
	_, ok := knownOperators[op]

	return ok
}

// Validate checks a tree at configuration time. A nil tree is valid.
func Validate(tree *models.ConditionTree) error {
	if tree == nil {
		return nil
	}

	return validate(tree, "conditions")
}

func validate(tree *models.ConditionTree, path string) error {
	switch tree.Operator {
	case models.LogicalAnd, models.LogicalOr, "":
	default:
		return fmt.Errorf("%w: %s: unknown operator %q", ErrMalformedTree, path, tree.Operator)
	}

	for i, rule := range tree.Rules {
		rulePath := fmt.Sprintf("%s.rules[%d]", path, i)

		if rule.Field == "" {
			return fmt.Errorf("%w: %s: field is required", ErrMalformedTree, rulePath)
		}

		if !IsKnownOperator(rule.Operator) {
			return fmt.Errorf("%w: %s: unknown operator %q", ErrMalformedTree, rulePath, rule.Operator)
		}

		if rule.Operator == models.OperatorIn || rule.Operator == models.OperatorNotIn {
			if _, ok := asList(rule.Value); !ok {
				return fmt.Errorf("%w: %s: operator %q requires an array value", ErrMalformedTree, rulePath, rule.Operator)
			}
		}
	}

	for i := range tree.Groups {
		err := validate(&tree.Groups[i], fmt.Sprintf("%s.groups[%d]", path, i))
		if err != nil {
			return err
		}
	}

	return nil
}
