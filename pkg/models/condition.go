package models

// LogicalOperator joins the rules of a condition tree.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// RuleOperator is the comparison applied by a single rule.
type RuleOperator string

const (
	OperatorEquals         RuleOperator = "equals"
	OperatorNotEquals      RuleOperator = "not_equals"
	OperatorContains       RuleOperator = "contains"
	OperatorStartsWith     RuleOperator = "starts_with"
	OperatorEndsWith       RuleOperator = "ends_with"
	OperatorGreaterThan    RuleOperator = "greater_than"
	OperatorLessThan       RuleOperator = "less_than"
	OperatorGreaterOrEqual RuleOperator = "greater_or_equal"
	OperatorLessOrEqual    RuleOperator = "less_or_equal"
	OperatorIsNull         RuleOperator = "is_null"
	OperatorIsNotNull      RuleOperator = "is_not_null"
	OperatorChanged        RuleOperator = "changed"
	OperatorChangedTo      RuleOperator = "changed_to"
	OperatorChangedFrom    RuleOperator = "changed_from"
	OperatorIn             RuleOperator = "in"
	OperatorNotIn          RuleOperator = "not_in"
)

// ConditionTree is a boolean expression over field comparisons.
// Rules are evaluated first, then nested Groups, with the same short-circuit policy.
// A nil or empty tree is vacuously true.
type ConditionTree struct {
	Operator LogicalOperator `json:"operator"         yaml:"operator"`
	Rules    []Rule          `json:"rules"            yaml:"rules"`
	Groups   []ConditionTree `json:"groups,omitempty" yaml:"groups"`
}

// IsEmpty reports whether the tree has nothing to evaluate.
func (c *ConditionTree) IsEmpty() bool {
	return c == nil || (len(c.Rules) == 0 && len(c.Groups) == 0)
}

// Rule compares one record field against a value.
// CheckPrevious resolves Field against the previous record snapshot instead of the current one.
type Rule struct {
	Field         string       `json:"field"                    yaml:"field"`
	Operator      RuleOperator `json:"operator"                 yaml:"operator"`
	Value         any          `json:"value,omitempty"          yaml:"value"`
	CheckPrevious bool         `json:"check_previous,omitempty" yaml:"check_previous"`
}
