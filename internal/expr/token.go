package expr

import (
	"strconv"
	"strings"
	"unicode"
)

// tokenKind categorizes a lexed token.
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

// token is one element of the immutable token sequence the parser walks.
type token struct {
	kind tokenKind
	text string
	num  float64
}

// operators that may appear in an expression, longest first so that ">="
// is never lexed as ">" followed by "=".
var operators = []string{">=", "<=", "==", "!=", "+", "-", "*", "/", ">", "<"}

// tokenize converts an expression string into a token slice. Characters
// that start no known token are dropped: lexing never fails, it just
// produces fewer tokens.
func tokenize(expression string) []token {
	var toks []token
	i := 0
	for i < len(expression) {
		c := expression[i]

		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}

		if c == '(' {
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
			continue
		}
		if c == ')' {
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
			continue
		}
		if c == ',' {
			toks = append(toks, token{kind: tokComma, text: ","})
			i++
			continue
		}

		if op := matchOperator(expression[i:]); op != "" {
			toks = append(toks, token{kind: tokOp, text: op})
			i += len(op)
			continue
		}

		if isDigit(c) || (c == '.' && i+1 < len(expression) && isDigit(expression[i+1])) {
			j := i
			for j < len(expression) && (isDigit(expression[j]) || expression[j] == '.') {
				j++
			}
			text := expression[i:j]
			n, err := strconv.ParseFloat(text, 64)
			if err == nil {
				toks = append(toks, token{kind: tokNumber, text: text, num: n})
			}
			i = j
			continue
		}

		if isIdentStart(rune(c)) {
			j := i
			for j < len(expression) && isIdentPart(rune(expression[j])) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: expression[i:j]})
			i = j
			continue
		}

		// Unrecognized character: drop it and move on.
		i++
	}
	return toks
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
