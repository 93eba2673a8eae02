package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{name: "addition", input: "1 + 2", expected: 3},
		{name: "precedence", input: "2 + 3 * 4", expected: 14},
		{name: "parentheses", input: "(2 + 3) * 4", expected: 20},
		{name: "left associative subtraction", input: "10 - 4 - 3", expected: 3},
		{name: "left associative division", input: "100 / 10 / 5", expected: 2},
		{name: "decimals", input: "12500.5 * 0.1", expected: 1250.05},
		{name: "unary minus", input: "-5 + 2", expected: -3},
		{name: "double unary", input: "--5", expected: 5},
		{name: "nested", input: "((1 + 1) * (2 + 2)) / 4", expected: 2},
		{name: "whitespace", input: "\t7 *\n6 ", expected: 42},
		{name: "leading dot", input: ".5 + .5", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Compute(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, value, 1e-9)
		})
	}
}

func TestCompute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrDisallowedCharacter},
		{name: "letters", input: "1 + a", wantErr: ErrDisallowedCharacter},
		{name: "function call", input: "alert(1)", wantErr: ErrDisallowedCharacter},
		{name: "exponent operator", input: "2 ** 3", wantErr: ErrSyntax},
		{name: "dangling operator", input: "1 +", wantErr: ErrSyntax},
		{name: "unbalanced parenthesis", input: "(1 + 2", wantErr: ErrSyntax},
		{name: "extra closing parenthesis", input: "1 + 2)", wantErr: ErrSyntax},
		{name: "two dots", input: "1.2.3", wantErr: ErrSyntax},
		{name: "division by zero", input: "4 / (2 - 2)", wantErr: ErrDivisionByZero},
		{name: "only spaces", input: "   ", wantErr: ErrSyntax},
		{name: "too deep", input: strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100), wantErr: ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEvaluate_InterpolatesFields(t *testing.T) {
	record := map[string]any{"amount": 200.0, "rate": 0.05, "qty": "3"}

	assert.Equal(t, 10.0, Evaluate("{amount} * {rate}", record))
	assert.Equal(t, 603.0, Evaluate("{{amount}} * {qty} + 3", record))
}

func TestEvaluate_ReturnsInterpolatedStringOutsideAllowList(t *testing.T) {
	record := map[string]any{
		"amount":  100.0,
		"payload": "process.exit(1)",
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "code injection through field", input: "{payload}", expected: "process.exit(1)"},
		{name: "identifier", input: "Math.max(1, 2)", expected: "Math.max(1, 2)"},
		{name: "unresolved placeholder", input: "{missing} + 1", expected: "{missing} + 1"},
		{name: "comparison", input: "{amount} > 5", expected: "100 > 5"},
		{name: "modulo", input: "{amount} % 7", expected: "100 % 7"},
		{name: "semicolon", input: "1; 2", expected: "1; 2"},
		{name: "division by zero", input: "{amount} / 0", expected: "100 / 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(tt.input, record)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsArithmetic(t *testing.T) {
	assert.True(t, IsArithmetic("(1 + 2) * 3.5 / 4 - 1"))
	assert.False(t, IsArithmetic("1 + x"))
	assert.False(t, IsArithmetic("1,000"))
	assert.False(t, IsArithmetic(""))
}
