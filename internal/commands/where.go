package commands

import (
	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/pipeline"
	"rill/internal/value"
)

// Where filters pipeline elements through a row-condition closure. The
// closure may be written inline or passed as a variable bound to a
// previously stored closure.
type Where struct{}

func (Where) Name() string { return "where" }

func (Where) Usage() string { return "Filter values based on a condition." }

func (Where) Signature() *engine.Signature {
	return engine.BuildSignature("where").
		InputOutput(engine.TypeList, engine.TypeList).
		InputOutput(engine.TypeTable, engine.TypeTable).
		Rest("row_condition", engine.ShapeAny, "Filter condition").
		WithCategory(engine.CategoryFilters)
}

func (Where) SearchTerms() []string {
	return []string{"filter", "find", "search", "condition"}
}

func (Where) CanLink() bool { return false }

func (Where) BlockID() (id.Block, bool) { return 0, false }

func (Where) Run(es *engine.EngineState, stack *engine.Stack, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	condExpr, ok := call.PositionalLast()
	if !ok {
		return pipeline.Empty(), &engine.InternalError{
			Msg:  "missing row condition block",
			Help: "parser failed to add a block",
			Span: call.Head,
		}
	}
	condValue, err := engine.EvalExpression(es, stack, condExpr)
	if err != nil {
		return pipeline.Empty(), err
	}
	closure, err := condValue.AsClosure()
	if err != nil {
		return pipeline.Empty(), err
	}
	block := es.GetBlock(closure.Block)
	if block == nil {
		return pipeline.Empty(), &engine.InternalError{
			Msg:  "row condition references missing block",
			Span: call.Head,
		}
	}

	headSpan := call.Head
	meta := input.Metadata()
	frame := stack.CapturesToStack(closure.Captures)
	origEnvVars, origEnvHidden := frame.SnapshotEnv()
	redirectStdout := call.RedirectStdout
	redirectStderr := call.RedirectStderr

	iter := input.IntoIter()
	idx := -1
	next := func() (value.Value, bool) {
		for {
			elem, ok := iter.Next()
			if !ok {
				return value.Value{}, false
			}
			idx++

			// Each element evaluates against a clean copy of the
			// ambient environment: predicate mutations must not leak
			// into the next element.
			frame.WithEnv(origEnvVars, origEnvHidden)

			if param, ok := block.Signature.GetPositional(0); ok && param.Var != 0 {
				frame.AddVar(param.Var, elem)
			}
			// Optional index argument.
			if param, ok := block.Signature.GetPositional(1); ok && param.Var != 0 {
				frame.AddVar(param.Var, value.Int(int64(idx), headSpan))
			}

			result, err := engine.EvalBlock(es, frame, block,
				pipeline.FromValue(elem, nil), redirectStdout, redirectStderr)
			if err != nil {
				// A failing predicate does not abort the stream; the
				// error flows downstream in the element's place.
				return value.Error(err, elem.Span), true
			}
			if result.IntoValue(headSpan).IsTrue() {
				return elem, true
			}
		}
	}

	// Preserve the input's representational shape: empty stays empty, a
	// single non-list value filters eagerly to itself or nothing, and
	// everything else stays a lazy cancellable stream.
	if input.IsEmpty() {
		return pipeline.Empty().WithMetadata(meta), nil
	}
	if _, single := input.SingleValue(); single {
		out, ok := next()
		if !ok {
			return pipeline.Empty().WithMetadata(meta), nil
		}
		return pipeline.FromValue(out, meta), nil
	}

	stream := pipeline.FromFunc(next, es.Ctrlc, headSpan)
	return pipeline.FromStream(stream, meta), nil
}
