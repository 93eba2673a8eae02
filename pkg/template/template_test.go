package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() map[string]any {
	return map[string]any{
		"id":     "O1",
		"name":   "Roof replacement",
		"amount": 12500.5,
		"count":  3.0,
		"stage":  nil,
		"account": map[string]any{
			"name": "Acme",
			"owner": map[string]any{
				"email": "owner@acme.test",
			},
		},
		"lines": []any{
			map[string]any{"sku": "SHINGLE", "qty": 40.0},
		},
	}
}

func TestLookup(t *testing.T) {
	record := testRecord()

	tests := []struct {
		name     string
		path     string
		expected any
		found    bool
	}{
		{name: "top level", path: "name", expected: "Roof replacement", found: true},
		{name: "nested", path: "account.owner.email", expected: "owner@acme.test", found: true},
		{name: "slice index", path: "lines.0.sku", expected: "SHINGLE", found: true},
		{name: "nil value", path: "stage", expected: nil, found: true},
		{name: "missing leaf", path: "account.phone", expected: nil, found: false},
		{name: "through scalar", path: "name.first", expected: nil, found: false},
		{name: "index out of range", path: "lines.4.sku", expected: nil, found: false},
		{name: "empty path", path: "", expected: nil, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, found := Lookup(record, tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestLookup_NilRecord(t *testing.T) {
	_, found := Lookup(nil, "id")
	assert.False(t, found)
	assert.Nil(t, Resolve(nil, "id"))
}

func TestInterpolate(t *testing.T) {
	record := testRecord()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single braces", input: "Deal {name}", expected: "Deal Roof replacement"},
		{name: "double braces", input: "Deal {{name}}", expected: "Deal Roof replacement"},
		{name: "double braces with spaces", input: "{{ account.name }}", expected: "Acme"},
		{name: "dotted path", input: "Owner: {account.owner.email}", expected: "Owner: owner@acme.test"},
		{name: "number without trailing zeros", input: "{count} items at {amount}", expected: "3 items at 12500.5"},
		{name: "missing field kept", input: "Hi {first_name}", expected: "Hi {first_name}"},
		{name: "missing double field kept", input: "Hi {{first_name}}", expected: "Hi {{first_name}}"},
		{name: "nil field kept", input: "Stage {stage}", expected: "Stage {stage}"},
		{name: "json braces untouched", input: `{"id": "{id}"}`, expected: `{"id": "O1"}`},
		{name: "no placeholders", input: "plain text", expected: "plain text"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Interpolate(tt.input, record))
		})
	}
}

func TestInterpolateValue(t *testing.T) {
	record := testRecord()

	result := InterpolateValue(map[string]any{
		"title": "{name}",
		"tags":  []any{"{account.name}", 7.0},
		"meta":  map[string]any{"id": "{{id}}"},
	}, record)

	expected := map[string]any{
		"title": "Roof replacement",
		"tags":  []any{"Acme", 7.0},
		"meta":  map[string]any{"id": "O1"},
	}
	assert.Equal(t, expected, result)
}

func TestHasPlaceholders(t *testing.T) {
	assert.True(t, HasPlaceholders("{a}"))
	assert.True(t, HasPlaceholders("x {{a.b}} y"))
	assert.False(t, HasPlaceholders(`{"a": 1}`))
}

func TestStringify(t *testing.T) {
	when := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "42", Stringify(42.0))
	assert.Equal(t, "0.25", Stringify(0.25))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "2026-10-15T09:30:00Z", Stringify(when))

	out := Stringify(map[string]any{"a": 1.0})
	require.JSONEq(t, `{"a":1}`, out)
}
