package parser

import (
	"os"
	"path/filepath"
	"testing"

	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/pipeline"
	"rill/internal/source"
	"rill/internal/value"
)

func writeModule(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write module: %v", err)
	}
	return path
}

// parseAndMerge parses one module path into a fresh engine and commits
// the staged delta.
func parseAndMerge(t *testing.T, path string) (*engine.EngineState, *engine.Module) {
	t.Helper()
	es := engine.NewEngineState()
	ws := engine.NewWorkingSet(es)

	moduleID, ok := ScriptParser{}.ParseModuleFileOrDir(ws, []byte(path), source.Unknown(), nil)
	if !ok || ws.HasParseErrors() {
		d, _ := ws.ParseErrors.First()
		t.Fatalf("parse failed: %s", d.Message)
	}
	module := ws.GetModule(moduleID)
	if module == nil {
		t.Fatal("staged module not readable through the working set")
	}

	delta, err := ws.TakeDelta()
	if err != nil {
		t.Fatalf("TakeDelta: %v", err)
	}
	if err := es.MergeDelta(delta); err != nil {
		t.Fatalf("MergeDelta: %v", err)
	}
	return es, module
}

func call1(t *testing.T, es *engine.EngineState, decl id.Decl, arg value.Value) value.Value {
	t.Helper()
	cmd := es.GetDecl(decl)
	if cmd == nil {
		t.Fatalf("decl %d not found", decl)
	}
	call := &engine.Call{
		Decl: decl,
		Positional: []*engine.Expression{
			{Expr: &engine.ExprLiteral{Val: arg}},
		},
	}
	out, err := cmd.Run(es, engine.NewStack(), call, pipeline.Empty())
	if err != nil {
		t.Fatalf("call decl %d: %v", decl, err)
	}
	return out.IntoValue(source.Unknown())
}

func TestParse_ExportsAndScope(t *testing.T) {
	path := writeModule(t, "math.rill", `
# doubling and friends
export def double [x] { $x * 2 }
def half [x] { $x / 2 }
alias dbl = double
`)
	es, module := parseAndMerge(t, path)

	if module.Name != "math" {
		t.Errorf("module name = %q, want math", module.Name)
	}

	// Only the export def is an exported decl; the alias is exported as
	// an alias entry.
	if _, ok := module.Decls["double"]; !ok {
		t.Error("double should be an exported decl")
	}
	if _, ok := module.Decls["half"]; ok {
		t.Error("plain def must not be exported")
	}
	if _, ok := module.Aliases["dbl"]; !ok {
		t.Error("alias should be recorded on the module")
	}

	// All three names are visible in scope after the merge.
	doubleID, ok := es.FindDecl("double")
	if !ok {
		t.Fatal("double not in scope")
	}
	halfID, ok := es.FindDecl("half")
	if !ok {
		t.Fatal("half not in scope")
	}
	dblID, ok := es.FindDecl("dbl")
	if !ok {
		t.Fatal("alias name not in scope")
	}
	if dblID != doubleID {
		t.Errorf("alias resolves to %d, want the target decl %d", dblID, doubleID)
	}

	if v := call1(t, es, doubleID, value.Int(21, source.Unknown())); v.Int != 42 {
		t.Errorf("double 21 = %v, want 42", v)
	}
	if v := call1(t, es, halfID, value.Int(10, source.Unknown())); v.Int != 5 {
		t.Errorf("half 10 = %v, want 5", v)
	}
}

func TestParse_BodyForms(t *testing.T) {
	path := writeModule(t, "forms.rill", `
export def big [x] { $x > 100 }
export def greet [who] { "hello " + $who }
export def istrue [x] { $x == true }
export def home [x] { $env.HOME }
export def neg [x] { -3 }
export def typed [x: int] { $x + 1 }
`)
	es, _ := parseAndMerge(t, path)

	big, _ := es.FindDecl("big")
	if v := call1(t, es, big, value.Int(200, source.Unknown())); !v.IsTrue() {
		t.Errorf("big 200 = %v, want true", v)
	}

	greet, _ := es.FindDecl("greet")
	if v := call1(t, es, greet, value.String("world", source.Unknown())); v.Str != "hello world" {
		t.Errorf("greet world = %v", v)
	}

	istrue, _ := es.FindDecl("istrue")
	if v := call1(t, es, istrue, value.Bool(true, source.Unknown())); !v.IsTrue() {
		t.Errorf("istrue true = %v, want true", v)
	}

	neg, _ := es.FindDecl("neg")
	if v := call1(t, es, neg, value.Int(0, source.Unknown())); v.Int != -3 {
		t.Errorf("neg = %v, want -3", v)
	}

	typed, _ := es.FindDecl("typed")
	if n := len(es.GetDecl(typed).Signature().Positional); n != 1 {
		t.Errorf("typed should declare one parameter, got %d", n)
	}
	if v := call1(t, es, typed, value.Int(4, source.Unknown())); v.Int != 5 {
		t.Errorf("typed 4 = %v, want 5 (type annotation should be dropped)", v)
	}
}

func TestParse_ErrorsHaveFileSpans(t *testing.T) {
	path := writeModule(t, "bad.rill", `export def ok [x] { $x }
not a definition
`)
	es := engine.NewEngineState()
	ws := engine.NewWorkingSet(es)

	_, ok := ScriptParser{}.ParseModuleFileOrDir(ws, []byte(path), source.Unknown(), nil)
	if !ok {
		t.Fatal("a readable file should still produce a module")
	}
	if !ws.HasParseErrors() {
		t.Fatal("bad line should be a parse error")
	}

	d, found := ws.ParseErrors.First()
	if !found {
		t.Fatal("error bag should hold the diagnostic")
	}
	file, haveFile := es.Files.Find(path)
	if !haveFile {
		t.Fatal("parsed file should be registered")
	}
	if !file.Span.ContainsSpan(d.Primary) {
		t.Errorf("diagnostic span %v should sit inside the file span %v", d.Primary, file.Span)
	}

	// Errors block the delta from committing.
	if _, err := ws.TakeDelta(); err == nil {
		t.Error("TakeDelta must refuse a working set with parse errors")
	}
}

func TestParse_DirectoryModule(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shapes")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"area.rill":      "export def area [x] { $x * $x }\n",
		"perimeter.rill": "export def perimeter [x] { $x * 4 }\n",
		"notes.txt":      "ignored\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	es, module := parseAndMerge(t, dir)
	if module.Name != "shapes" {
		t.Errorf("module name = %q, want shapes", module.Name)
	}

	exports := module.Exports()
	if len(exports) != 2 {
		t.Fatalf("exports = %d, want 2 (non-module files ignored)", len(exports))
	}
	if exports[0].Name != "area" || exports[1].Name != "perimeter" {
		t.Errorf("exports sorted by name, got %q, %q", exports[0].Name, exports[1].Name)
	}

	area, _ := es.FindDecl("area")
	if v := call1(t, es, area, value.Int(6, source.Unknown())); v.Int != 36 {
		t.Errorf("area 6 = %v, want 36", v)
	}
}

func TestParse_MissingPathIsRecoverable(t *testing.T) {
	es := engine.NewEngineState()
	ws := engine.NewWorkingSet(es)

	_, ok := ScriptParser{}.ParseModuleFileOrDir(ws, []byte("/no/such/module.rill"), source.Unknown(), nil)
	if ok {
		t.Error("missing path must not produce a module")
	}
	if !ws.HasParseErrors() {
		t.Error("missing path must record a diagnostic")
	}
}

func TestModuleStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "mods/math.rill", want: "math"},
		{path: "math.rill", want: "math"},
		{path: "mods/shapes", want: "shapes"},
	}
	for _, tt := range tests {
		if got := moduleStem(tt.path); got != tt.want {
			t.Errorf("moduleStem(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
