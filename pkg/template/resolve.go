// Package template resolves dotted field paths against record snapshots and
// interpolates {field} and {{field}} placeholders.
package template

import (
	"strconv"
	"strings"
)

// Lookup walks a dotted path such as "account.owner.email" through nested maps and
// slices. Slice elements are addressed by numeric segments ("lines.0.amount").
// The boolean is false when any segment is missing.
func Lookup(record map[string]any, path string) (any, bool) {
	if record == nil || path == "" {
		return nil, false
	}

	var current any = record

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = value
		case map[string]string:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		case []map[string]any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

// Resolve returns the value at path, or nil when the path does not resolve.
func Resolve(record map[string]any, path string) any {
	value, _ := Lookup(record, path)

	return value
}
