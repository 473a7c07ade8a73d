package engine

import (
	"rill/internal/pipeline"
	"rill/internal/source"
	"rill/internal/value"
)

// EvalExpression evaluates a single expression against the committed
// catalog and the given stack.
func EvalExpression(es *EngineState, stack *Stack, expr *Expression) (value.Value, error) {
	switch e := expr.Expr.(type) {
	case *ExprLiteral:
		v := e.Val
		if v.Span.Empty() {
			v.Span = expr.Span
		}
		return v, nil

	case *ExprVar:
		v, ok := stack.GetVar(e.Var)
		if !ok {
			name := "?"
			if vr := es.GetVar(e.Var); vr != nil {
				name = vr.Name
			}
			return value.Value{}, evalErrorf(expr.Span, "variable $%s not found", name)
		}
		return v, nil

	case *ExprEnvGet:
		v, ok := stack.GetEnv(e.Name)
		if !ok {
			return value.Nothing(expr.Span), nil
		}
		return v, nil

	case *ExprEnvSet:
		v, err := EvalExpression(es, stack, e.Value)
		if err != nil {
			return value.Value{}, err
		}
		stack.SetEnv(e.Name, v)
		return value.Nothing(expr.Span), nil

	case *ExprBinary:
		lhs, err := EvalExpression(es, stack, e.LHS)
		if err != nil {
			return value.Value{}, err
		}
		rhs, err := EvalExpression(es, stack, e.RHS)
		if err != nil {
			return value.Value{}, err
		}
		return applyBinary(e.Op, lhs, rhs, expr.Span)

	case *ExprList:
		vals := make([]value.Value, 0, len(e.Items))
		for _, item := range e.Items {
			v, err := EvalExpression(es, stack, item)
			if err != nil {
				return value.Value{}, err
			}
			vals = append(vals, v)
		}
		return value.List(vals, expr.Span), nil

	case *ExprClosure:
		block := es.GetBlock(e.Block)
		if block == nil {
			return value.Value{}, &InternalError{Msg: "closure over missing block", Span: expr.Span}
		}
		captures := make([]value.Capture, 0, len(block.Captures))
		for _, v := range block.Captures {
			val, ok := stack.GetVar(v)
			if !ok {
				return value.Value{}, evalErrorf(expr.Span, "closure captures undefined variable")
			}
			captures = append(captures, value.Capture{Var: v, Value: val})
		}
		return value.ClosureValue(&value.Closure{Block: e.Block, Captures: captures}, expr.Span), nil

	case *ExprCall:
		data, err := evalCall(es, stack, e.Call, pipeline.Empty())
		if err != nil {
			return value.Value{}, err
		}
		return data.IntoValue(e.Call.Head), nil

	default:
		return value.Value{}, &InternalError{Msg: "unknown expression node", Span: expr.Span}
	}
}

func evalCall(es *EngineState, stack *Stack, call *Call, input pipeline.Data) (pipeline.Data, error) {
	decl := es.GetDecl(call.Decl)
	if decl == nil {
		return pipeline.Empty(), &InternalError{
			Msg:  "call references unknown decl",
			Help: "parse-time resolution and the catalog disagree",
			Span: call.Head,
		}
	}
	return decl.Run(es, stack, call, input)
}

// EvalBlock evaluates a block's pipelines in order. Within a pipeline
// each element receives the previous element's output as input; the
// last pipeline's output is the block's result.
func EvalBlock(es *EngineState, stack *Stack, block *Block, input pipeline.Data, redirectStdout, redirectStderr bool) (pipeline.Data, error) {
	data := input
	for pi, pl := range block.Pipelines {
		if pi > 0 {
			data = pipeline.Empty()
		}
		for _, el := range pl.Elements {
			switch e := el.Expr.(type) {
			case *ExprCall:
				call := *e.Call
				call.RedirectStdout = redirectStdout
				call.RedirectStderr = redirectStderr
				out, err := evalCall(es, stack, &call, data)
				if err != nil {
					return pipeline.Empty(), err
				}
				data = out
			default:
				v, err := EvalExpression(es, stack, el)
				if err != nil {
					return pipeline.Empty(), err
				}
				data = pipeline.FromValue(v, data.Metadata())
			}
		}
	}
	return data, nil
}

func applyBinary(op BinOp, lhs, rhs value.Value, span source.Span) (value.Value, error) {
	switch op {
	case OpEq, OpNe:
		eq, err := valuesEqual(lhs, rhs, span)
		if err != nil {
			return value.Value{}, err
		}
		if op == OpNe {
			eq = !eq
		}
		return value.Bool(eq, span), nil

	case OpLt, OpGt, OpLe, OpGe:
		cmp, err := compareValues(lhs, rhs, span)
		if err != nil {
			return value.Value{}, err
		}
		var res bool
		switch op {
		case OpLt:
			res = cmp < 0
		case OpGt:
			res = cmp > 0
		case OpLe:
			res = cmp <= 0
		default:
			res = cmp >= 0
		}
		return value.Bool(res, span), nil

	case OpAdd, OpSub, OpMul, OpDiv:
		return arith(op, lhs, rhs, span)

	default:
		return value.Value{}, evalErrorf(span, "unsupported operator %s", op)
	}
}

func valuesEqual(lhs, rhs value.Value, span source.Span) (bool, error) {
	switch {
	case lhs.Kind == value.KindInt && rhs.Kind == value.KindInt:
		return lhs.Int == rhs.Int, nil
	case lhs.Kind == value.KindString && rhs.Kind == value.KindString:
		return lhs.Str == rhs.Str, nil
	case lhs.Kind == value.KindBool && rhs.Kind == value.KindBool:
		return lhs.Bool == rhs.Bool, nil
	case lhs.Kind == value.KindFloat && rhs.Kind == value.KindFloat:
		return lhs.Float == rhs.Float, nil
	case lhs.Kind == value.KindNothing && rhs.Kind == value.KindNothing:
		return true, nil
	case lhs.Kind != rhs.Kind:
		return false, nil
	default:
		return false, evalErrorf(span, "cannot compare %s with %s", lhs.Kind, rhs.Kind)
	}
}

func compareValues(lhs, rhs value.Value, span source.Span) (int, error) {
	switch {
	case lhs.Kind == value.KindInt && rhs.Kind == value.KindInt:
		switch {
		case lhs.Int < rhs.Int:
			return -1, nil
		case lhs.Int > rhs.Int:
			return 1, nil
		}
		return 0, nil
	case lhs.Kind == value.KindFloat && rhs.Kind == value.KindFloat:
		switch {
		case lhs.Float < rhs.Float:
			return -1, nil
		case lhs.Float > rhs.Float:
			return 1, nil
		}
		return 0, nil
	case lhs.Kind == value.KindString && rhs.Kind == value.KindString:
		switch {
		case lhs.Str < rhs.Str:
			return -1, nil
		case lhs.Str > rhs.Str:
			return 1, nil
		}
		return 0, nil
	default:
		return 0, evalErrorf(span, "cannot order %s against %s", lhs.Kind, rhs.Kind)
	}
}

func arith(op BinOp, lhs, rhs value.Value, span source.Span) (value.Value, error) {
	if lhs.Kind == value.KindInt && rhs.Kind == value.KindInt {
		switch op {
		case OpAdd:
			return value.Int(lhs.Int+rhs.Int, span), nil
		case OpSub:
			return value.Int(lhs.Int-rhs.Int, span), nil
		case OpMul:
			return value.Int(lhs.Int*rhs.Int, span), nil
		case OpDiv:
			if rhs.Int == 0 {
				return value.Value{}, evalErrorf(span, "division by zero")
			}
			return value.Int(lhs.Int/rhs.Int, span), nil
		}
	}
	if lhs.Kind == value.KindFloat && rhs.Kind == value.KindFloat {
		switch op {
		case OpAdd:
			return value.Float(lhs.Float+rhs.Float, span), nil
		case OpSub:
			return value.Float(lhs.Float-rhs.Float, span), nil
		case OpMul:
			return value.Float(lhs.Float*rhs.Float, span), nil
		case OpDiv:
			if rhs.Float == 0 {
				return value.Value{}, evalErrorf(span, "division by zero")
			}
			return value.Float(lhs.Float/rhs.Float, span), nil
		}
	}
	if op == OpAdd && lhs.Kind == value.KindString && rhs.Kind == value.KindString {
		return value.String(lhs.Str+rhs.Str, span), nil
	}
	return value.Value{}, evalErrorf(span, "unsupported operands for %s: %s and %s", op, lhs.Kind, rhs.Kind)
}
