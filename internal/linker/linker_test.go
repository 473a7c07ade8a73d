package linker

import (
	"errors"
	"sort"
	"testing"

	"rill/internal/diag"
	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/pipeline"
	"rill/internal/source"
	"rill/internal/value"
)

// moduleSpec describes what a fake parse of one path should stage:
// exported command name -> the multiplier its body applies.
type moduleSpec struct {
	exports  map[string]int64
	fail     bool // record a parse error
	noResult bool // return no module and no diagnostic
}

type fakeParser struct {
	specs map[string]moduleSpec
}

func (p fakeParser) ParseModuleFileOrDir(ws *engine.StateWorkingSet, path []byte, span source.Span, parent *id.Module) (id.Module, bool) {
	spec, ok := p.specs[string(path)]
	if !ok {
		ws.Error(diag.Error(span, "unknown module %q", string(path)))
		return 0, false
	}
	if spec.noResult {
		return 0, false
	}
	if spec.fail {
		ws.Error(diag.Error(span, "syntax error"))
		return 0, false
	}

	module := engine.NewModule(ModuleStem(string(path)), span)
	names := make([]string, 0, len(spec.exports))
	for name := range spec.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		x := ws.AddVariable("x", span)
		sig := &engine.Signature{
			Name:       name,
			Positional: []engine.Param{{Name: "x", Shape: engine.ShapeAny, Var: x}},
		}
		block := &engine.Block{
			Signature: sig,
			Pipelines: []engine.Pipeline{{Elements: []*engine.Expression{{
				Expr: &engine.ExprBinary{
					Op:  engine.OpMul,
					LHS: &engine.Expression{Expr: &engine.ExprVar{Var: x}},
					RHS: &engine.Expression{Expr: &engine.ExprLiteral{Val: value.Int(spec.exports[name], span)}},
				},
				Span: span,
			}}}},
			Span: span,
		}
		declID := ws.AddDecl(sig.IntoBlockCommand(ws.AddBlock(block)))
		module.AddDecl(name, declID)
	}
	return ws.AddModule(module), true
}

// invoke runs a decl with one int argument and returns the int result.
func invoke(t *testing.T, es *engine.EngineState, decl id.Decl, arg int64) int64 {
	t.Helper()
	cmd := es.GetDecl(decl)
	if cmd == nil {
		t.Fatalf("decl %d not found", decl)
	}
	call := &engine.Call{
		Decl: decl,
		Positional: []*engine.Expression{{
			Expr: &engine.ExprLiteral{Val: value.Int(arg, source.Unknown())},
		}},
	}
	out, err := cmd.Run(es, engine.NewStack(), call, pipeline.Empty())
	if err != nil {
		t.Fatalf("invoke decl %d: %v", decl, err)
	}
	return out.IntoValue(source.Unknown()).Int
}

func pathArg(p string) source.Spanned[string] {
	return source.WithSpan(p, source.New(0, 0))
}

func TestLoad_FirstLinkMergesOnce(t *testing.T) {
	es := engine.NewEngineState()
	p := fakeParser{specs: map[string]moduleSpec{
		"mods/math.rill": {exports: map[string]int64{"double": 2}},
	}}

	declsBefore := es.NumDecls()
	moduleID, err := Load(es, p, pathArg("mods/math.rill"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if es.NumDecls() != declsBefore+1 {
		t.Errorf("first link should add exactly one decl, got %d new", es.NumDecls()-declsBefore)
	}
	if got, ok := es.FindModule("math"); !ok || got != moduleID {
		t.Errorf("FindModule(math) = %d, %v; want %d", got, ok, moduleID)
	}
	declID, ok := es.FindDecl("double")
	if !ok {
		t.Fatal("double not visible after link")
	}
	if got := invoke(t, es, declID, 21); got != 42 {
		t.Errorf("double 21 = %d, want 42", got)
	}
}

func TestLoad_RelinkPreservesCallSites(t *testing.T) {
	es := engine.NewEngineState()
	p := fakeParser{specs: map[string]moduleSpec{
		"v1/math.rill": {exports: map[string]int64{"double": 2}},
		"v2/math.rill": {exports: map[string]int64{"double": 3}},
	}}

	if _, err := Load(es, p, pathArg("v1/math.rill")); err != nil {
		t.Fatalf("first link: %v", err)
	}
	oldDecl, ok := es.FindDecl("double")
	if !ok {
		t.Fatal("double missing after first link")
	}
	if got := invoke(t, es, oldDecl, 10); got != 20 {
		t.Fatalf("v1 behavior = %d, want 20", got)
	}

	if _, err := Load(es, p, pathArg("v2/math.rill")); err != nil {
		t.Fatalf("re-link: %v", err)
	}

	// The id every existing call site captured still works, and now
	// runs the new implementation.
	if got := invoke(t, es, oldDecl, 10); got != 30 {
		t.Errorf("v2 behavior through old id = %d, want 30", got)
	}
	resolved, ok := es.FindDecl("double")
	if !ok || resolved != oldDecl {
		t.Errorf("double should still resolve to the original id %d, got %d", oldDecl, resolved)
	}
}

func TestLoad_RebindPublishesUnderVisibleName(t *testing.T) {
	es := engine.NewEngineState()
	p := fakeParser{specs: map[string]moduleSpec{
		"v1/math.rill": {exports: map[string]int64{"double": 2}},
		"v2/math.rill": {exports: map[string]int64{"double": 3}},
	}}

	if _, err := Load(es, p, pathArg("v1/math.rill")); err != nil {
		t.Fatalf("first link: %v", err)
	}
	declID, _ := es.FindDecl("double")

	// An aliasing use renames the export: the externally visible name
	// is now dbl.
	ws := engine.NewWorkingSet(es)
	ws.UseDecl("dbl", declID)
	delta, err := ws.TakeDelta()
	if err != nil {
		t.Fatalf("TakeDelta: %v", err)
	}
	if err := es.MergeDelta(delta); err != nil {
		t.Fatalf("MergeDelta: %v", err)
	}

	if _, err := Load(es, p, pathArg("v2/math.rill")); err != nil {
		t.Fatalf("re-link: %v", err)
	}

	if name, _ := es.FindDeclName(declID); name != "dbl" {
		t.Errorf("visible name after re-link = %q, want dbl", name)
	}
	resolved, ok := es.FindDecl("dbl")
	if !ok || resolved != declID {
		t.Errorf("dbl should resolve to id %d, got %d (%v)", declID, resolved, ok)
	}
	if got := invoke(t, es, declID, 10); got != 30 {
		t.Errorf("behavior under renamed export = %d, want 30", got)
	}
}

func TestLoad_NoPartialMergeOnParseError(t *testing.T) {
	es := engine.NewEngineState()
	p := fakeParser{specs: map[string]moduleSpec{
		"v1/math.rill": {exports: map[string]int64{"double": 2}},
		"v2/math.rill": {fail: true},
	}}

	if _, err := Load(es, p, pathArg("v1/math.rill")); err != nil {
		t.Fatalf("first link: %v", err)
	}
	oldDecl, _ := es.FindDecl("double")
	decls, blocks, modules := es.NumDecls(), es.NumBlocks(), es.NumModules()

	span := source.New(7, 19)
	_, err := Load(es, p, source.WithSpan("v2/math.rill", span))
	var parseErr *engine.ParseFailedError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseFailedError, got %v", err)
	}
	if parseErr.Span != span {
		t.Errorf("error span = %v, want the path's span %v", parseErr.Span, span)
	}

	if es.NumDecls() != decls || es.NumBlocks() != blocks || es.NumModules() != modules {
		t.Error("catalog must be unchanged after a failed parse")
	}
	if got := invoke(t, es, oldDecl, 10); got != 20 {
		t.Errorf("old behavior must survive a failed re-link, got %d", got)
	}
}

func TestLoad_MissingParseResultIsRecoverable(t *testing.T) {
	es := engine.NewEngineState()
	p := fakeParser{specs: map[string]moduleSpec{
		"m.rill": {noResult: true},
	}}

	_, err := Load(es, p, pathArg("m.rill"))
	var parseErr *engine.ParseFailedError
	if !errors.As(err, &parseErr) {
		t.Fatalf("parser returning nothing must be a structured failure, got %v", err)
	}
	if es.NumModules() != 1 {
		t.Error("catalog must be unchanged")
	}
}

func TestLoad_StaleExportsSurviveBestEffortRelink(t *testing.T) {
	es := engine.NewEngineState()
	p := fakeParser{specs: map[string]moduleSpec{
		"v1/math.rill": {exports: map[string]int64{"double": 2, "triple": 3}},
		"v2/math.rill": {exports: map[string]int64{"double": 5}},
	}}

	if _, err := Load(es, p, pathArg("v1/math.rill")); err != nil {
		t.Fatalf("first link: %v", err)
	}
	doubleID, _ := es.FindDecl("double")
	tripleID, _ := es.FindDecl("triple")

	if _, err := Load(es, p, pathArg("v2/math.rill")); err != nil {
		t.Fatalf("re-link: %v", err)
	}

	if got := invoke(t, es, doubleID, 10); got != 50 {
		t.Errorf("double should run the new implementation, got %d", got)
	}
	// triple is absent from v2: best-effort re-link leaves it bound to
	// the old implementation rather than removing it.
	if got := invoke(t, es, tripleID, 10); got != 30 {
		t.Errorf("stale export should keep its old behavior, got %d", got)
	}
}

func TestModuleStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "mods/math.rill", want: "math"},
		{path: "math.rill", want: "math"},
		{path: "mods/math/", want: "math"},
		{path: "mods/math", want: "math"},
	}
	for _, tt := range tests {
		if got := ModuleStem(tt.path); got != tt.want {
			t.Errorf("ModuleStem(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
