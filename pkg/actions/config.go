// Package actions holds the configuration helpers shared by the action handlers under it.
package actions

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pandacrm/automation/pkg/formula"
	"github.com/pandacrm/automation/pkg/template"
)

var (
	// ErrMissingConfig indicates a required configuration key is absent or empty.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrInvalidValueType indicates a valueType outside literal, field, formula and now.
	ErrInvalidValueType = errors.New("invalid value type")
)

// String reads a string config value, returning def when absent or not a string.
func String(config map[string]any, key, def string) string {
	value, ok := config[key].(string)
	if !ok || value == "" {
		return def
	}

	return value
}

// RequireString reads a non-empty string config value.
func RequireString(config map[string]any, key string) (string, error) {
	value := String(config, key, "")
	if value == "" {
		return "", fmt.Errorf("%w: '%s'", ErrMissingConfig, key)
	}

	return value, nil
}

// Int reads an integer config value. JSON numbers, YAML ints and numeric strings are accepted.
func Int(config map[string]any, key string, def int) int {
	switch value := config[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}

	return def
}

// Bool reads a boolean config value.
func Bool(config map[string]any, key string, def bool) bool {
	switch value := config[key].(type) {
	case bool:
		return value
	case string:
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}

	return def
}

// StringMap reads an object of string values, skipping non-string entries.
func StringMap(config map[string]any, key string) map[string]string {
	out := make(map[string]string)

	switch value := config[key].(type) {
	case map[string]any:
		for k, v := range value {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	case map[string]string:
		for k, v := range value {
			out[k] = v
		}
	}

	return out
}

// ValueType selects how a configured value is turned into the value written to a record.
type ValueType string

const (
	ValueLiteral ValueType = "literal"
	ValueField   ValueType = "field"
	ValueFormula ValueType = "formula"
	ValueNow     ValueType = "now"
)

// ParseValueType validates a valueType, defaulting to literal when empty.
func ParseValueType(raw string) (ValueType, error) {
	switch ValueType(raw) {
	case "":
		return ValueLiteral, nil
	case ValueLiteral, ValueField, ValueFormula, ValueNow:
		return ValueType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidValueType, raw)
	}
}

// ResolveValue computes a dynamic value against the triggering record.
//
// literal returns value unchanged, field resolves value as a dotted path, formula runs the
// restricted arithmetic evaluator and now returns the current time in RFC 3339 UTC.
func ResolveValue(valueType ValueType, value any, record map[string]any, now time.Time) any {
	switch valueType {
	case ValueField:
		path, _ := value.(string)

		return template.Resolve(record, path)
	case ValueFormula:
		expression, ok := value.(string)
		if !ok {
			return value
		}

		return formula.Evaluate(expression, record)
	case ValueNow:
		return now.UTC().Format(time.RFC3339)
	default:
		return value
	}
}
