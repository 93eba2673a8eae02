// Package formula evaluates restricted arithmetic formulas used by workflow actions.
//
// A formula is first interpolated against the record snapshot. The interpolated text is
// only computed when every character belongs to the arithmetic allow-list (digits,
// whitespace, '.', '+', '-', '*', '/', '(' and ')'); anything else is returned verbatim.
// The allow-list is a security boundary and the parser never evaluates anything else.
package formula

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pandacrm/automation/pkg/template"
)

var (
	// ErrDisallowedCharacter is returned when an expression leaves the arithmetic allow-list.
	ErrDisallowedCharacter = errors.New("expression contains disallowed characters")

	// ErrSyntax is returned for malformed arithmetic.
	ErrSyntax = errors.New("invalid arithmetic expression")

	// ErrDivisionByZero is returned when a divisor evaluates to zero.
	ErrDivisionByZero = errors.New("division by zero")
)

var allowList = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)

// IsArithmetic reports whether expression only uses allow-listed characters.
func IsArithmetic(expression string) bool {
	return allowList.MatchString(expression)
}

// Evaluate interpolates expression against record and computes it.
// It returns a float64 when the interpolated text is valid arithmetic and the
// interpolated string otherwise.
func Evaluate(expression string, record map[string]any) any {
	interpolated := template.Interpolate(expression, record)

	value, err := Compute(interpolated)
	if err != nil {
		return interpolated
	}

	return value
}

// Compute parses and evaluates an arithmetic expression without interpolation.
func Compute(expression string) (float64, error) {
	if !IsArithmetic(expression) {
		return 0, ErrDisallowedCharacter
	}

	p := &parser{input: expression}

	value, err := p.parseExpression()
	if err != nil {
		return 0, err
	}

	p.skipSpaces()

	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, p.input[p.pos], p.pos)
	}

	return value, nil
}

// parser is a recursive-descent parser for:
//
//	expression = term { ("+" | "-") term }
//	term       = factor { ("*" | "/") factor }
//	factor     = [ "+" | "-" ] ( number | "(" expression ")" )
type parser struct {
	input string
	pos   int
	depth int
}

const maxDepth = 64

func (p *parser) parseExpression() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()

		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}

		p.pos++

		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}

		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()

		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return left, nil
		}

		p.pos++

		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}

		if op == '*' {
			left *= right

			continue
		}

		if right == 0 {
			return 0, ErrDivisionByZero
		}

		left /= right
	}
}

func (p *parser) parseFactor() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > maxDepth {
		return 0, fmt.Errorf("%w: nesting too deep", ErrSyntax)
	}

	p.skipSpaces()

	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}

	switch {
	case c == '-' || c == '+':
		p.pos++

		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}

		if c == '-' {
			return -value, nil
		}

		return value, nil
	case c == '(':
		p.pos++

		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}

		p.skipSpaces()

		if closing, ok := p.peek(); !ok || closing != ')' {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}

		p.pos++

		return value, nil
	case c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return 0, fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, c, p.pos)
	}
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos

	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c != '.' && (c < '0' || c > '9') {
			break
		}

		p.pos++
	}

	literal := p.input[start:p.pos]
	if strings.Count(literal, ".") > 1 {
		return 0, fmt.Errorf("%w: malformed number %q", ErrSyntax, literal)
	}

	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed number %q", ErrSyntax, literal)
	}

	return value, nil
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}

	return p.input[p.pos], true
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}
