package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// placeholderPattern matches {{path}} first and then {path}; paths are restricted to
// word characters, dots and dashes so literal JSON braces are never treated as placeholders.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.\-]+)\s*\}\}|\{\s*([\w.\-]+)\s*\}`)

// Interpolate substitutes placeholders in input with values resolved from record.
// Placeholders whose value is missing or nil are left untouched so unresolved fields stay visible.
func Interpolate(input string, record map[string]any) string {
	if input == "" {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)

		path := groups[1]
		if path == "" {
			path = groups[2]
		}

		value, ok := Lookup(record, path)
		if !ok || value == nil {
			return match
		}

		return Stringify(value)
	})
}

// InterpolateValue interpolates every string found in a nested map/slice value.
func InterpolateValue(value any, record map[string]any) any {
	switch v := value.(type) {
	case string:
		return Interpolate(v, record)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = InterpolateValue(item, record)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = InterpolateValue(item, record)
		}

		return out
	default:
		return value
	}
}

// HasPlaceholders reports whether input still contains a placeholder.
func HasPlaceholders(input string) bool {
	return placeholderPattern.MatchString(input)
}

// Stringify renders a resolved value the way it is written into text.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int32, int64, uint, uint32, uint64, bool:
		return fmt.Sprint(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case json.Number:
		return v.String()
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
