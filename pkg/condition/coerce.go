package condition

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pandacrm/automation/pkg/template"
)

// toNumber coerces v to float64. nil, booleans, empty and non-numeric strings become NaN.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}

		return f
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return math.NaN()
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}

		return f
	default:
		return math.NaN()
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	default:
		return false
	}
}

// equal compares two resolved values. Numbers compare by value regardless of their Go
// type; values of different kinds (a string and a number, a string and a boolean) never
// compare equal.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if isNumber(a) || isNumber(b) {
		return isNumber(a) && isNumber(b) && toNumber(a) == toNumber(b)
	}

	return reflect.DeepEqual(a, b)
}

func containsString(subject, value any) bool {
	return strings.Contains(template.Stringify(subject), template.Stringify(value))
}

func hasPrefix(subject, value any) bool {
	return strings.HasPrefix(template.Stringify(subject), template.Stringify(value))
}

func hasSuffix(subject, value any) bool {
	return strings.HasSuffix(template.Stringify(subject), template.Stringify(value))
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}

		return out, true
	case []float64:
		out := make([]any, len(list))
		for i, f := range list {
			out[i] = f
		}

		return out, true
	case []int:
		out := make([]any, len(list))
		for i, n := range list {
			out[i] = n
		}

		return out, true
	default:
		return nil, false
	}
}

func member(subject any, values []any) bool {
	for _, v := range values {
		if equal(subject, v) {
			return true
		}
	}

	return false
}
