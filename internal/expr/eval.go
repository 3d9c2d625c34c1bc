// Package expr evaluates the rollup formula DSL.
//
// The language is deliberately small and decidable: arithmetic, chainable
// comparisons, a handful of built-in functions, and a closed set of
// aggregate variables. There are no loops, no assignment, and no
// user-defined functions.
//
// Evaluate is a total function. Any input string — empty, malformed,
// unbalanced, or full of unknown identifiers — produces a finite number.
// Unknown tokens contribute 0, division by zero yields 0, and a missing
// closing paren simply ends the sub-expression at end of input. A formula
// written by an admin must never take the metric pipeline down.
package expr

import (
	"math"
	"strings"
)

// Epsilon is the tolerance for == and != comparisons, absorbing ordinary
// floating-point error so that 0.1 + 0.2 == 0.3 holds.
const Epsilon = 1e-10

// Evaluate computes the value of expression against the given variables.
// Variable lookup is case-insensitive. The result is always finite.
func Evaluate(expression string, vars map[string]float64) (result float64) {
	// The parser is written not to panic, but the total-function contract
	// is worth a second line of defense.
	defer func() {
		if recover() != nil {
			result = 0
		}
	}()

	toks := tokenize(expression)
	if len(toks) == 0 {
		return 0
	}
	v, _ := parseComparison(toks, 0, vars)
	return finite(v)
}

// Each parse function takes the immutable token slice and a cursor, and
// returns the parsed value plus the cursor position after it. Precedence,
// lowest to highest: comparison, add/sub, mul/div, unary minus, atom.

func parseComparison(toks []token, pos int, vars map[string]float64) (float64, int) {
	left, pos := parseAddSub(toks, pos, vars)
	for pos < len(toks) && toks[pos].kind == tokOp && isComparisonOp(toks[pos].text) {
		op := toks[pos].text
		var right float64
		right, pos = parseAddSub(toks, pos+1, vars)
		// Left-associative: each comparison folds into the running
		// 0/1 result, so chains like 1 < 2 < 3 compose numerically.
		left = compare(left, op, right)
	}
	return left, pos
}

func parseAddSub(toks []token, pos int, vars map[string]float64) (float64, int) {
	left, pos := parseMulDiv(toks, pos, vars)
	for pos < len(toks) && toks[pos].kind == tokOp && (toks[pos].text == "+" || toks[pos].text == "-") {
		op := toks[pos].text
		var right float64
		right, pos = parseMulDiv(toks, pos+1, vars)
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
	return left, pos
}

func parseMulDiv(toks []token, pos int, vars map[string]float64) (float64, int) {
	left, pos := parseUnary(toks, pos, vars)
	for pos < len(toks) && toks[pos].kind == tokOp && (toks[pos].text == "*" || toks[pos].text == "/") {
		op := toks[pos].text
		var right float64
		right, pos = parseUnary(toks, pos+1, vars)
		if op == "*" {
			left *= right
		} else if right == 0 {
			// Division by zero is 0, not an error and not Inf.
			left = 0
		} else {
			left /= right
		}
	}
	return left, pos
}

func parseUnary(toks []token, pos int, vars map[string]float64) (float64, int) {
	if pos < len(toks) && toks[pos].kind == tokOp && toks[pos].text == "-" {
		v, next := parseUnary(toks, pos+1, vars)
		return -v, next
	}
	return parseAtom(toks, pos, vars)
}

func parseAtom(toks []token, pos int, vars map[string]float64) (float64, int) {
	if pos >= len(toks) {
		return 0, pos
	}
	t := toks[pos]
	switch t.kind {
	case tokNumber:
		return t.num, pos + 1

	case tokLParen:
		v, next := parseComparison(toks, pos+1, vars)
		if next < len(toks) && toks[next].kind == tokRParen {
			next++
		}
		// Missing close paren: keep whatever was parsed up to here.
		return v, next

	case tokIdent:
		if pos+1 < len(toks) && toks[pos+1].kind == tokLParen {
			return parseCall(toks, pos, vars)
		}
		return lookupVar(vars, t.text), pos + 1

	default:
		// A stray ')' is left unconsumed so an enclosing group can still
		// close over it; anything else here yields 0 and lets the caller's
		// operator loops move the cursor forward.
		return 0, pos
	}
}

// parseCall parses name '(' args ')' starting at the function identifier.
func parseCall(toks []token, pos int, vars map[string]float64) (float64, int) {
	name := toks[pos].text
	pos += 2 // identifier and opening paren

	var args []float64
	for pos < len(toks) && toks[pos].kind != tokRParen {
		start := pos
		var v float64
		v, pos = parseComparison(toks, pos, vars)
		args = append(args, v)
		if pos < len(toks) && toks[pos].kind == tokComma {
			pos++
			continue
		}
		if pos == start {
			// No rule consumed the token; skip it so the loop terminates.
			pos++
		}
	}
	if pos < len(toks) {
		pos++ // closing paren
	}
	return applyFunc(name, args), pos
}

// applyFunc dispatches a built-in function by case-insensitive name.
// Unknown functions and missing arguments yield 0.
func applyFunc(name string, args []float64) float64 {
	arg := func(i int) float64 {
		if i < len(args) {
			return args[i]
		}
		return 0
	}

	switch strings.ToLower(name) {
	case "round":
		return math.Round(arg(0))
	case "abs":
		return math.Abs(arg(0))
	case "min":
		if len(args) == 0 {
			return 0
		}
		m := args[0]
		for _, v := range args[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case "max":
		if len(args) == 0 {
			return 0
		}
		m := args[0]
		for _, v := range args[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case "if":
		if arg(0) > 0 {
			return arg(1)
		}
		return arg(2)
	default:
		return 0
	}
}

func isComparisonOp(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "==", "!=":
		return true
	}
	return false
}

// compare evaluates a comparison and yields exactly 1 or 0, never a
// boolean, so comparisons compose arithmetically: (cond) * 10.
func compare(left float64, op string, right float64) float64 {
	var ok bool
	switch op {
	case ">":
		ok = left > right
	case "<":
		ok = left < right
	case ">=":
		ok = left >= right
	case "<=":
		ok = left <= right
	case "==":
		ok = math.Abs(left-right) < Epsilon
	case "!=":
		ok = math.Abs(left-right) >= Epsilon
	}
	if ok {
		return 1
	}
	return 0
}

// lookupVar resolves a variable case-insensitively. Unknown names are 0.
func lookupVar(vars map[string]float64, name string) float64 {
	if v, ok := vars[name]; ok {
		return v
	}
	for k, v := range vars {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return 0
}

// finite clamps NaN and Inf (e.g. from overflow) to 0, preserving the
// total-function contract at the boundary.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
