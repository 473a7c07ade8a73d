package parser

import (
	"fmt"
	"strconv"
	"strings"

	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/source"
	"rill/internal/value"
)

// binaryOps in scan order: two-character operators first so `<=` does
// not tokenize as `<`.
var binaryOps = []struct {
	text string
	op   engine.BinOp
}{
	{"==", engine.OpEq},
	{"!=", engine.OpNe},
	{"<=", engine.OpLe},
	{">=", engine.OpGe},
	{"<", engine.OpLt},
	{">", engine.OpGt},
	{"+", engine.OpAdd},
	{"-", engine.OpSub},
	{"*", engine.OpMul},
	{"/", engine.OpDiv},
}

// parseExpr parses `term [op term]` with variables resolved against
// scope. Spans are line-granular; the body is one expression.
func parseExpr(body string, span source.Span, scope map[string]id.Var) (*engine.Expression, error) {
	lhsText, op, rhsText, found := splitBinary(body)
	if !found {
		return parseTerm(body, span, scope)
	}
	lhs, err := parseTerm(lhsText, span, scope)
	if err != nil {
		return nil, err
	}
	rhs, err := parseTerm(rhsText, span, scope)
	if err != nil {
		return nil, err
	}
	return &engine.Expression{
		Expr: &engine.ExprBinary{Op: op, LHS: lhs, RHS: rhs},
		Span: span,
	}, nil
}

// splitBinary finds the first top-level operator outside a string
// literal.
func splitBinary(body string) (lhs string, op engine.BinOp, rhs string, found bool) {
	inString := false
	for i := 0; i < len(body); i++ {
		if body[i] == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		for _, cand := range binaryOps {
			if strings.HasPrefix(body[i:], cand.text) {
				// A minus glued to a digit is a negative literal, not
				// an operator, when nothing precedes it.
				if cand.text == "-" && strings.TrimSpace(body[:i]) == "" {
					break
				}
				return strings.TrimSpace(body[:i]), cand.op,
					strings.TrimSpace(body[i+len(cand.text):]), true
			}
		}
	}
	return "", 0, "", false
}

func parseTerm(text string, span source.Span, scope map[string]id.Var) (*engine.Expression, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, fmt.Errorf("missing expression")

	case text == "true" || text == "false":
		return literal(value.Bool(text == "true", span), span), nil

	case strings.HasPrefix(text, "\""):
		if len(text) < 2 || !strings.HasSuffix(text, "\"") {
			return nil, fmt.Errorf("unterminated string %s", text)
		}
		return literal(value.String(text[1:len(text)-1], span), span), nil

	case strings.HasPrefix(text, "$env."):
		name := text[len("$env."):]
		if name == "" {
			return nil, fmt.Errorf("missing environment variable name")
		}
		return &engine.Expression{Expr: &engine.ExprEnvGet{Name: name}, Span: span}, nil

	case strings.HasPrefix(text, "$"):
		name := text[1:]
		varID, ok := scope[name]
		if !ok {
			return nil, fmt.Errorf("variable $%s not in scope", name)
		}
		return &engine.Expression{Expr: &engine.ExprVar{Var: varID}, Span: span}, nil

	default:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return literal(value.Int(n, span), span), nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return literal(value.Float(f, span), span), nil
		}
		return nil, fmt.Errorf("cannot parse term %q", text)
	}
}

func literal(v value.Value, span source.Span) *engine.Expression {
	return &engine.Expression{Expr: &engine.ExprLiteral{Val: v}, Span: span}
}
