// Package linker loads modules at runtime and re-binds the exports of
// an already-linked module of the same logical name onto freshly parsed
// implementations, keeping every previously resolved decl id working.
package linker

import (
	"path/filepath"
	"sort"
	"strings"

	"rill/internal/diag"
	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/pipeline"
	"rill/internal/source"
)

// Parser is the collaborator that turns module text into staged catalog
// entries. Implementations parse the file or directory at path into ws
// and return the staged module id; on failure they populate the working
// set's parse errors and return ok=false.
type Parser interface {
	ParseModuleFileOrDir(ws *engine.StateWorkingSet, path []byte, span source.Span, parent *id.Module) (id.Module, bool)
}

// rebind records one pending decl rewrite: the externally visible name
// to publish under, the committed decl to overwrite, and the newly
// parsed block to attach.
type rebind struct {
	visibleName string
	decl        id.Decl
	block       id.Block
}

// ModuleStem derives a module's logical name from its path: the file
// stem for file-form modules, the directory name for directory-form.
func ModuleStem(path string) string {
	base := filepath.Base(filepath.Clean(path))
	if ext := filepath.Ext(base); ext != "" && !strings.HasPrefix(base, ".") {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Load parses the module at path and merges it into the catalog.
//
// First-time load: the staged delta merges and that is all. Re-link: if
// a module of the same logical name is already committed, every export
// name it shares with the new version is rebound — the existing decl is
// overwritten in place with the new block, published under its current
// externally visible name. Call sites that resolved to the old decl id
// observe the new behavior transparently.
//
// Re-link is best effort: names the old module exported but the new one
// does not stay bound to their old blocks. Parse failures surface as a
// *engine.ParseFailedError carrying the path's span; the catalog is
// untouched in that case.
func Load(es *engine.EngineState, p Parser, path source.Spanned[string]) (id.Module, error) {
	ws := engine.NewWorkingSet(es)

	moduleID, ok := p.ParseModuleFileOrDir(ws, []byte(path.Item), path.Span, nil)
	if !ok || ws.HasParseErrors() {
		first, found := ws.ParseErrors.First()
		if !found {
			// The parser reported no module and no diagnostic.
			// Synthesize one so the failure stays recoverable.
			first = diag.Error(path.Span, "parser returned no module for %q", path.Item)
		}
		return 0, &engine.ParseFailedError{Path: path.Item, Span: path.Span, Diag: first}
	}

	rebinds := collectRebinds(es, ws, moduleID, ModuleStem(path.Item))

	delta, err := ws.TakeDelta()
	if err != nil {
		return 0, err
	}
	if err := es.MergeDelta(delta); err != nil {
		return 0, err
	}

	for _, r := range rebinds {
		decl := es.GetDecl(r.decl)
		if decl == nil {
			continue
		}
		sig := *decl.Signature()
		sig.Name = r.visibleName
		if err := es.UpdateDecl(r.decl, sig.IntoBlockCommand(r.block)); err != nil {
			return 0, err
		}
	}
	return moduleID, nil
}

// collectRebinds compares the committed module of the same logical name
// (if any) against the freshly parsed one and records the decl rewrites
// to apply after the merge. Runs against the pre-merge view, so the
// existing module is the committed one, not the staged one.
func collectRebinds(es *engine.EngineState, ws *engine.StateWorkingSet, newModule id.Module, stem string) []rebind {
	existingID, found := es.FindModule(stem)
	if !found {
		return nil
	}
	existing := es.GetModule(existingID)
	parsed := ws.GetModule(newModule)
	if existing == nil || parsed == nil {
		return nil
	}

	names := make([]string, 0, len(existing.Decls))
	for name := range existing.Decls {
		names = append(names, name)
	}
	sort.Strings(names)

	var rebinds []rebind
	for _, exportName := range names {
		existingDecl := existing.Decls[exportName]
		// The externally visible name may differ from the export name
		// when the binding came through an aliasing use; publish under
		// whatever is visible now.
		visible, ok := ws.FindDeclName(existingDecl)
		if !ok {
			continue
		}
		newDecl, ok := parsed.Decls[exportName]
		if !ok {
			continue
		}
		cmd := ws.GetDecl(newDecl)
		if cmd == nil {
			continue
		}
		blockID, ok := cmd.BlockID()
		if !ok {
			continue
		}
		rebinds = append(rebinds, rebind{visibleName: visible, decl: existingDecl, block: blockID})
	}
	return rebinds
}

// EvalBlockMut evaluates a block, intercepting linking commands first:
// any pipeline whose head is a call to a decl with CanLink triggers a
// module load/re-link before the block itself runs. This is the
// evaluator integration point; the `link` command body itself is a
// stub.
func EvalBlockMut(es *engine.EngineState, stack *engine.Stack, p Parser, block *engine.Block, input pipeline.Data, redirectStdout, redirectStderr bool) (pipeline.Data, error) {
	for _, pl := range block.Pipelines {
		if len(pl.Elements) == 0 {
			continue
		}
		callExpr, ok := pl.Elements[0].Expr.(*engine.ExprCall)
		if !ok {
			continue
		}
		decl := es.GetDecl(callExpr.Call.Decl)
		if decl == nil || !decl.CanLink() {
			continue
		}
		path, err := callExpr.Call.ReqSpannedString(es, stack, 0)
		if err != nil {
			return pipeline.Empty(), err
		}
		if _, err := Load(es, p, path); err != nil {
			return pipeline.Empty(), err
		}
	}
	return engine.EvalBlock(es, stack, block, input, redirectStdout, redirectStderr)
}
