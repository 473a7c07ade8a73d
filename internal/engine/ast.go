package engine

import (
	"rill/internal/id"
	"rill/internal/source"
	"rill/internal/value"
)

// Block is a parsed executable body: a sequence of pipelines. Blocks are
// owned by the catalog once merged and referenced by id from decls and
// closures, never duplicated.
type Block struct {
	Signature *Signature // parameter declarations for closures and decls
	Captures  []id.Var   // variables a closure over this block snapshots
	Pipelines []Pipeline
	Span      source.Span
}

// Pipeline is one chain of elements; data flows left to right.
type Pipeline struct {
	Elements []*Expression
}

// Expression pairs an expression node with its source span.
type Expression struct {
	Expr Expr
	Span source.Span
}

// Expr is an expression node. The variant set is the minimum the
// evaluator needs; the full surface grammar lives with the parser
// collaborator.
type Expr interface{ exprNode() }

// ExprLiteral yields a constant value.
type ExprLiteral struct {
	Val value.Value
}

// ExprVar reads a variable binding.
type ExprVar struct {
	Var id.Var
}

// ExprEnvGet reads an ambient environment variable.
type ExprEnvGet struct {
	Name string
}

// ExprEnvSet writes an ambient environment variable and yields nothing.
type ExprEnvSet struct {
	Name  string
	Value *Expression
}

// ExprBinary applies a binary operator.
type ExprBinary struct {
	Op  BinOp
	LHS *Expression
	RHS *Expression
}

// ExprList builds a list from element expressions.
type ExprList struct {
	Items []*Expression
}

// ExprClosure yields a closure value over Block, snapshotting the
// block's declared captures from the current stack.
type ExprClosure struct {
	Block id.Block
}

// ExprCall invokes a command.
type ExprCall struct {
	Call *Call
}

func (*ExprLiteral) exprNode() {}
func (*ExprVar) exprNode()     {}
func (*ExprEnvGet) exprNode()  {}
func (*ExprEnvSet) exprNode()  {}
func (*ExprBinary) exprNode()  {}
func (*ExprList) exprNode()    {}
func (*ExprClosure) exprNode() {}
func (*ExprCall) exprNode()    {}

// BinOp enumerates binary operators.
type BinOp uint8

const (
	OpEq BinOp = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
)

func (op BinOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// Call is one resolved command invocation. The decl id was fixed at
// parse time; rebinding the decl later changes what the call does
// without touching the call itself.
type Call struct {
	Decl           id.Decl
	Head           source.Span
	Positional     []*Expression
	RedirectStdout bool
	RedirectStderr bool
}

// PositionalNth returns the i-th positional argument expression.
func (c *Call) PositionalNth(i int) (*Expression, bool) {
	if i < 0 || i >= len(c.Positional) {
		return nil, false
	}
	return c.Positional[i], true
}

// PositionalLast returns the final positional argument expression.
func (c *Call) PositionalLast() (*Expression, bool) {
	if len(c.Positional) == 0 {
		return nil, false
	}
	return c.Positional[len(c.Positional)-1], true
}

// ReqValue evaluates the i-th positional argument.
func (c *Call) ReqValue(es *EngineState, stack *Stack, i int) (value.Value, error) {
	expr, ok := c.PositionalNth(i)
	if !ok {
		return value.Value{}, &InternalError{
			Msg:  "missing required argument",
			Help: "parser should have rejected the call",
			Span: c.Head,
		}
	}
	return EvalExpression(es, stack, expr)
}

// ReqString evaluates the i-th positional argument as a string.
func (c *Call) ReqString(es *EngineState, stack *Stack, i int) (string, error) {
	v, err := c.ReqValue(es, stack, i)
	if err != nil {
		return "", err
	}
	return v.AsString()
}

// ReqSpannedString is ReqString keeping the argument's span.
func (c *Call) ReqSpannedString(es *EngineState, stack *Stack, i int) (source.Spanned[string], error) {
	expr, ok := c.PositionalNth(i)
	if !ok {
		return source.Spanned[string]{}, &InternalError{
			Msg:  "missing required argument",
			Help: "parser should have rejected the call",
			Span: c.Head,
		}
	}
	v, err := EvalExpression(es, stack, expr)
	if err != nil {
		return source.Spanned[string]{}, err
	}
	s, err := v.AsString()
	if err != nil {
		return source.Spanned[string]{}, err
	}
	return source.WithSpan(s, expr.Span), nil
}
