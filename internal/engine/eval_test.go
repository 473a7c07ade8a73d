package engine

import (
	"errors"
	"testing"

	"rill/internal/id"
	"rill/internal/pipeline"
	"rill/internal/source"
	"rill/internal/value"
)

func lit(v value.Value) *Expression {
	return &Expression{Expr: &ExprLiteral{Val: v}}
}

func intLit(n int64) *Expression {
	return lit(value.Int(n, source.Unknown()))
}

func binary(op BinOp, lhs, rhs *Expression) *Expression {
	return &Expression{Expr: &ExprBinary{Op: op, LHS: lhs, RHS: rhs}}
}

func TestEvalExpression_Binary(t *testing.T) {
	es := NewEngineState()
	stack := NewStack()

	tests := []struct {
		name string
		expr *Expression
		want value.Value
	}{
		{name: "int gt true", expr: binary(OpGt, intLit(3), intLit(2)), want: value.Bool(true, source.Unknown())},
		{name: "int gt false", expr: binary(OpGt, intLit(1), intLit(2)), want: value.Bool(false, source.Unknown())},
		{name: "int eq", expr: binary(OpEq, intLit(5), intLit(5)), want: value.Bool(true, source.Unknown())},
		{name: "ne across kinds is true", expr: binary(OpNe, intLit(5), lit(value.String("5", source.Unknown()))), want: value.Bool(true, source.Unknown())},
		{name: "int arithmetic", expr: binary(OpMul, intLit(6), intLit(7)), want: value.Int(42, source.Unknown())},
		{name: "string concat", expr: binary(OpAdd, lit(value.String("a", source.Unknown())), lit(value.String("b", source.Unknown()))), want: value.String("ab", source.Unknown())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalExpression(es, stack, tt.expr)
			if err != nil {
				t.Fatalf("EvalExpression: %v", err)
			}
			if got.Kind != tt.want.Kind || got.Bool != tt.want.Bool || got.Int != tt.want.Int || got.Str != tt.want.Str {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalExpression_Errors(t *testing.T) {
	es := NewEngineState()
	stack := NewStack()

	tests := []struct {
		name string
		expr *Expression
	}{
		{name: "undefined variable", expr: &Expression{Expr: &ExprVar{Var: 42}}},
		{name: "division by zero", expr: binary(OpDiv, intLit(1), intLit(0))},
		{name: "ordering across kinds", expr: binary(OpLt, intLit(1), lit(value.String("x", source.Unknown())))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EvalExpression(es, stack, tt.expr); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEvalExpression_EnvRoundTrip(t *testing.T) {
	es := NewEngineState()
	stack := NewStack()

	set := &Expression{Expr: &ExprEnvSet{Name: "FOO", Value: lit(value.String("bar", source.Unknown()))}}
	if _, err := EvalExpression(es, stack, set); err != nil {
		t.Fatalf("env set: %v", err)
	}
	get := &Expression{Expr: &ExprEnvGet{Name: "FOO"}}
	v, err := EvalExpression(es, stack, get)
	if err != nil {
		t.Fatalf("env get: %v", err)
	}
	if v.Str != "bar" {
		t.Errorf("FOO = %v, want bar", v)
	}

	missing, err := EvalExpression(es, stack, &Expression{Expr: &ExprEnvGet{Name: "NOPE"}})
	if err != nil || !missing.IsNothing() {
		t.Errorf("missing env var should read as nothing, got %v, %v", missing, err)
	}
}

func TestEvalBlock_CallBindsParamsAndRuns(t *testing.T) {
	es := NewEngineState()
	ws := NewWorkingSet(es)

	// def double [x] { $x * 2 }
	x := ws.AddVariable("x", source.Unknown())
	sig := BuildSignature("double")
	sig.Positional = []Param{{Name: "x", Shape: ShapeAny, Var: x}}
	body := &Block{
		Signature: sig,
		Pipelines: []Pipeline{{Elements: []*Expression{
			binary(OpMul, &Expression{Expr: &ExprVar{Var: x}}, intLit(2)),
		}}},
	}
	blockID := ws.AddBlock(body)
	declID := ws.AddDecl(sig.IntoBlockCommand(blockID))
	delta, err := ws.TakeDelta()
	if err != nil {
		t.Fatalf("TakeDelta: %v", err)
	}
	if err := es.MergeDelta(delta); err != nil {
		t.Fatalf("MergeDelta: %v", err)
	}

	call := &Call{Decl: declID, Positional: []*Expression{intLit(21)}}
	out, err := es.GetDecl(declID).Run(es, NewStack(), call, pipeline.Empty())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v := out.IntoValue(source.Unknown()); v.Int != 42 {
		t.Errorf("double 21 = %v, want 42", v)
	}
}

func TestEvalBlock_ClosureCapturesSnapshot(t *testing.T) {
	es := NewEngineState()
	ws := NewWorkingSet(es)

	captured := ws.AddVariable("n", source.Unknown())
	block := &Block{
		Signature: BuildSignature(""),
		Captures:  []id.Var{captured},
		Pipelines: []Pipeline{{Elements: []*Expression{
			&Expression{Expr: &ExprVar{Var: captured}},
		}}},
	}
	blockID := ws.AddBlock(block)
	delta, _ := ws.TakeDelta()
	if err := es.MergeDelta(delta); err != nil {
		t.Fatalf("MergeDelta: %v", err)
	}

	stack := NewStack()
	stack.AddVar(captured, value.Int(7, source.Unknown()))

	cv, err := EvalExpression(es, stack, &Expression{Expr: &ExprClosure{Block: blockID}})
	if err != nil {
		t.Fatalf("closure eval: %v", err)
	}
	closure, err := cv.AsClosure()
	if err != nil {
		t.Fatalf("AsClosure: %v", err)
	}

	// Mutate the variable after capture; the closure must keep the
	// snapshot.
	stack.AddVar(captured, value.Int(100, source.Unknown()))
	frame := stack.CapturesToStack(closure.Captures)
	out, err := EvalBlock(es, frame, es.GetBlock(closure.Block), pipeline.Empty(), false, false)
	if err != nil {
		t.Fatalf("EvalBlock: %v", err)
	}
	if v := out.IntoValue(source.Unknown()); v.Int != 7 {
		t.Errorf("captured value = %v, want 7", v)
	}
}

func TestEvalCall_UnknownDeclIsInternalError(t *testing.T) {
	es := NewEngineState()
	expr := &Expression{Expr: &ExprCall{Call: &Call{Decl: 500}}}
	_, err := EvalExpression(es, NewStack(), expr)
	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Errorf("expected InternalError, got %v", err)
	}
}
