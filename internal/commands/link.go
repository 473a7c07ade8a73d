package commands

import (
	"fmt"
	"io"
	"os"

	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/pipeline"
)

// Link is the linking command: `link <module> <signatures>`. The body
// is a stub that reports the received arguments; the actual load and
// re-link run at the evaluator integration point (linker.EvalBlockMut),
// which intercepts calls to decls flagged CanLink before evaluation.
type Link struct {
	// Out receives the stub report; defaults to stdout.
	Out io.Writer
}

func (Link) Name() string { return "link" }

func (Link) Usage() string { return "Parse a module at runtime." }

func (Link) Signature() *engine.Signature {
	return engine.BuildSignature("link").
		InputOutput(engine.TypeNothing, engine.TypeNothing).
		Required("module", engine.ShapeString, "module file or directory").
		Required("signatures", engine.ShapeSignature, "signatures of module's commands").
		WithCategory(engine.CategoryCore)
}

func (Link) SearchTerms() []string { return []string{"module", "reload", "relink"} }

func (Link) CanLink() bool { return true }

func (Link) BlockID() (id.Block, bool) { return 0, false }

func (l Link) Run(es *engine.EngineState, stack *engine.Stack, call *engine.Call, _ pipeline.Data) (pipeline.Data, error) {
	file, err := call.ReqString(es, stack, 0)
	if err != nil {
		return pipeline.Empty(), err
	}
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	sigs, _ := call.PositionalNth(1)
	fmt.Fprintf(out, "File: %s, Signatures: %v\n", file, sigs)
	return pipeline.Empty(), nil
}
