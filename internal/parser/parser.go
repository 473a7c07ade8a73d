// Package parser is the grammar collaborator for module loading: it
// turns module source text into staged catalog entries on a working
// set. The surface grammar is line oriented:
//
//	# comment
//	export def <name> [<params>] { <expr> }
//	def <name> [<params>] { <expr> }
//	alias <name> = <target>
//
// Only `export def` entries become module exports; plain defs and
// aliases stay visible in scope without being exported.
package parser

import (
	"fmt"
	"os"
	"strings"

	"rill/internal/diag"
	"rill/internal/driver"
	"rill/internal/engine"
	"rill/internal/id"
	"rill/internal/source"
)

// ScriptParser parses module files and directories into a working set.
type ScriptParser struct{}

// ParseModuleFileOrDir loads the module at path (file or directory
// form) and stages its declarations. Parse problems land in the working
// set's error list; the returned ok is false only when the path could
// not be read at all.
func (ScriptParser) ParseModuleFileOrDir(ws *engine.StateWorkingSet, path []byte, span source.Span, parent *id.Module) (id.Module, bool) {
	pathStr := string(path)
	info, err := os.Stat(pathStr)
	if err != nil {
		ws.Error(diag.Error(span, "cannot open module %q: %v", pathStr, err))
		return 0, false
	}

	var files []driver.FileContent
	if info.IsDir() {
		files, err = driver.ReadModuleDir(pathStr)
	} else {
		var fc driver.FileContent
		fc, err = driver.ReadModuleFile(pathStr)
		files = []driver.FileContent{fc}
	}
	if err != nil {
		ws.Error(diag.Error(span, "cannot read module %q: %v", pathStr, err))
		return 0, false
	}
	if len(files) == 0 {
		ws.Error(diag.Error(span, "module directory %q contains no %s files", pathStr, driver.ModuleExt))
		return 0, false
	}

	module := engine.NewModule(moduleStem(pathStr), span)
	var spans []source.Span
	for _, fc := range files {
		file := ws.Engine.Files.Add(fc.Path, fc.Content)
		spans = append(spans, file.Span)
		parseFile(ws, module, file)
	}
	module.Span = source.Cover(spans)

	moduleID := ws.AddModule(module)
	if parent != nil {
		if parentMod := ws.GetModule(*parent); parentMod != nil {
			parentMod.AddSubmodule(module.Name, moduleID)
		}
	}
	return moduleID, true
}

func moduleStem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, driver.ModuleExt)
	return strings.TrimSuffix(base, "/")
}

// parseFile walks a registered file line by line, staging decls and
// aliases into the module.
func parseFile(ws *engine.StateWorkingSet, module *engine.Module, file *source.File) {
	content := string(file.Content)
	offset := uint32(0)
	for _, line := range strings.SplitAfter(content, "\n") {
		lineStart := file.Span.Start + offset
		offset += uint32(len(line))

		trimmed := strings.TrimSuffix(line, "\n")
		text := strings.TrimSpace(trimmed)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		indent := uint32(strings.Index(trimmed, text))
		lineSpan := source.New(lineStart+indent, lineStart+indent+uint32(len(text)))

		switch {
		case strings.HasPrefix(text, "export def "):
			parseDef(ws, module, strings.TrimPrefix(text, "export def "), lineSpan, true)
		case strings.HasPrefix(text, "def "):
			parseDef(ws, module, strings.TrimPrefix(text, "def "), lineSpan, false)
		case strings.HasPrefix(text, "alias "):
			parseAlias(ws, module, strings.TrimPrefix(text, "alias "), lineSpan)
		default:
			ws.Error(diag.Error(lineSpan, "expected `def`, `export def`, or `alias`"))
		}
	}
}

// parseDef handles `<name> [<params>] { <expr> }`.
func parseDef(ws *engine.StateWorkingSet, module *engine.Module, rest string, span source.Span, exported bool) {
	name, rest, ok := cutToken(rest)
	if !ok || name == "" {
		ws.Error(diag.Error(span.Past(), "missing command name in def"))
		return
	}

	params, body, err := splitDef(rest)
	if err != nil {
		ws.Error(diag.Error(span, "in def %s: %v", name, err))
		return
	}

	sig := engine.BuildSignature(name)
	scope := make(map[string]id.Var)
	for _, p := range splitParams(params) {
		pname := p
		if i := strings.IndexByte(pname, ':'); i >= 0 {
			pname = strings.TrimSpace(pname[:i]) // drop the type annotation
		}
		if pname == "" {
			ws.Error(diag.Error(span, "in def %s: empty parameter", name))
			return
		}
		varID := ws.AddVariable(pname, span)
		sig.Positional = append(sig.Positional, engine.Param{
			Name:  pname,
			Shape: engine.ShapeAny,
			Var:   varID,
		})
		scope[pname] = varID
	}

	expr, err := parseExpr(body, span, scope)
	if err != nil {
		ws.Error(diag.Error(span, "in def %s: %v", name, err))
		return
	}

	block := &engine.Block{
		Signature: sig,
		Pipelines: []engine.Pipeline{{Elements: []*engine.Expression{expr}}},
		Span:      span,
	}
	blockID := ws.AddBlock(block)
	declID := ws.AddDecl(sig.IntoBlockCommand(blockID))
	if exported {
		module.AddDecl(name, declID)
	}
}

// parseAlias handles `<name> = <target>`.
func parseAlias(ws *engine.StateWorkingSet, module *engine.Module, rest string, span source.Span) {
	name, target, ok := strings.Cut(rest, "=")
	if !ok {
		ws.Error(diag.Error(span, "alias is missing `=`"))
		return
	}
	name = strings.TrimSpace(name)
	target = strings.TrimSpace(target)
	targetDecl, found := ws.FindDecl(target)
	if !found {
		ws.Error(diag.Error(span, "alias target %q not found", target))
		return
	}
	aliasID := ws.AddAlias(&engine.Alias{Name: name, Target: targetDecl, Span: span})
	module.AddAlias(name, aliasID)
	ws.UseDecl(name, targetDecl)
}

// splitDef separates `[params] { body }`.
func splitDef(rest string) (params, body string, err error) {
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "[") {
		return "", "", fmt.Errorf("expected `[` starting the parameter list")
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", "", fmt.Errorf("unclosed parameter list")
	}
	params = rest[1:end]
	rest = strings.TrimSpace(rest[end+1:])
	if !strings.HasPrefix(rest, "{") || !strings.HasSuffix(rest, "}") {
		return "", "", fmt.Errorf("expected `{ ... }` body")
	}
	body = strings.TrimSpace(rest[1 : len(rest)-1])
	if body == "" {
		return "", "", fmt.Errorf("empty body")
	}
	return params, body, nil
}

// splitParams separates parameter declarations. A token ending in `:`
// carries a space-separated type annotation; the following token belongs
// to it, not to a new parameter.
func splitParams(params string) []string {
	var out []string
	pending := ""
	for _, p := range strings.FieldsFunc(params, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		if p == "" {
			continue
		}
		if pending != "" {
			out = append(out, pending+p)
			pending = ""
			continue
		}
		if strings.HasSuffix(p, ":") {
			pending = p
			continue
		}
		out = append(out, p)
	}
	if pending != "" {
		out = append(out, pending)
	}
	return out
}

func cutToken(s string) (token, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", true
	}
	return s[:i], strings.TrimSpace(s[i:]), true
}
