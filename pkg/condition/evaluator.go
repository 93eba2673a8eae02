// Package condition evaluates workflow condition trees against a current/previous record pair.
package condition

import (
	"log/slog"
	"math"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/template"
)

// Evaluator evaluates condition trees. It is safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
	probe  func(models.Rule)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used to report unknown operators.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithProbe registers a callback invoked before every rule evaluation.
func WithProbe(probe func(models.Rule)) Option {
	return func(e *Evaluator) {
		e.probe = probe
	}
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate reports whether tree holds for record, given the previous snapshot.
// A nil or empty tree is true. AND stops at the first false rule and OR at the first
// true rule, so rules after the deciding one are never evaluated.
func (e *Evaluator) Evaluate(tree *models.ConditionTree, record, previous map[string]any) bool {
	if tree.IsEmpty() {
		return true
	}

	switch tree.Operator {
	case models.LogicalAnd, "":
		for _, rule := range tree.Rules {
			if !e.EvaluateRule(rule, record, previous) {
				return false
			}
		}

		for i := range tree.Groups {
			if !e.Evaluate(&tree.Groups[i], record, previous) {
				return false
			}
		}

		return true
	case models.LogicalOr:
		for _, rule := range tree.Rules {
			if e.EvaluateRule(rule, record, previous) {
				return true
			}
		}

		for i := range tree.Groups {
			if e.Evaluate(&tree.Groups[i], record, previous) {
				return true
			}
		}

		return false
	default:
		e.logger.Warn("Unknown condition tree operator, evaluating to false", "operator", tree.Operator)

		return false
	}
}

// EvaluateRule evaluates a single rule.
//
// Ordering operators coerce both sides to numbers. Values that are not numeric become
// NaN and NaN never satisfies an ordering comparison: a rule such as
// {"amount", greater_than, 10} is false when amount is missing or "n/a". Workflows rely
// on this permissive-false behaviour, so it is kept deliberately.
func (e *Evaluator) EvaluateRule(rule models.Rule, record, previous map[string]any) bool {
	if e.probe != nil {
		e.probe(rule)
	}

	current := template.Resolve(record, rule.Field)
	prior := template.Resolve(previous, rule.Field)

	subject := current
	if rule.CheckPrevious {
		subject = prior
	}

	switch rule.Operator {
	case models.OperatorEquals:
		return equal(subject, rule.Value)
	case models.OperatorNotEquals:
		return !equal(subject, rule.Value)
	case models.OperatorContains:
		return containsString(subject, rule.Value)
	case models.OperatorStartsWith:
		return hasPrefix(subject, rule.Value)
	case models.OperatorEndsWith:
		return hasSuffix(subject, rule.Value)
	case models.OperatorGreaterThan:
		return compare(subject, rule.Value, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return compare(subject, rule.Value, func(a, b float64) bool { return a < b })
	case models.OperatorGreaterOrEqual:
		return compare(subject, rule.Value, func(a, b float64) bool { return a >= b })
	case models.OperatorLessOrEqual:
		return compare(subject, rule.Value, func(a, b float64) bool { return a <= b })
	case models.OperatorIsNull:
		return subject == nil
	case models.OperatorIsNotNull:
		return subject != nil
	case models.OperatorChanged:
		return !equal(current, prior)
	case models.OperatorChangedTo:
		return equal(current, rule.Value) && !equal(prior, rule.Value)
	case models.OperatorChangedFrom:
		return equal(prior, rule.Value) && !equal(current, rule.Value)
	case models.OperatorIn:
		values, ok := asList(rule.Value)

		return ok && member(subject, values)
	case models.OperatorNotIn:
		values, ok := asList(rule.Value)

		return ok && !member(subject, values)
	default:
		e.logger.Warn("Unknown condition operator, evaluating to false",
			"operator", rule.Operator,
			"field", rule.Field,
		)

		return false
	}
}

func compare(left, right any, cmp func(a, b float64) bool) bool {
	a, b := toNumber(left), toNumber(right)
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}

	return cmp(a, b)
}
