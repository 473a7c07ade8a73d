package engine

import (
	"sort"

	"rill/internal/id"
	"rill/internal/source"
)

// Module maps exported names to decl, alias, and sub-module ids. Two
// modules may share a logical name during a re-link; only their ids
// tell them apart until the linker reconciles them.
type Module struct {
	Name       string
	Decls      map[string]id.Decl
	Aliases    map[string]id.Alias
	Submodules map[string]id.Module
	Span       source.Span
}

func NewModule(name string, span source.Span) *Module {
	return &Module{
		Name:       name,
		Decls:      make(map[string]id.Decl),
		Aliases:    make(map[string]id.Alias),
		Submodules: make(map[string]id.Module),
		Span:       span,
	}
}

func (m *Module) AddDecl(name string, decl id.Decl) {
	m.Decls[name] = decl
}

func (m *Module) AddAlias(name string, alias id.Alias) {
	m.Aliases[name] = alias
}

func (m *Module) AddSubmodule(name string, sub id.Module) {
	m.Submodules[name] = sub
}

// ExportableKind tags an export entry.
type ExportableKind uint8

const (
	ExportDecl ExportableKind = iota
	ExportAlias
	ExportModule
)

// Exportable is one named export: a decl, alias, or sub-module.
type Exportable struct {
	Kind   ExportableKind
	Name   string
	Decl   id.Decl
	Alias  id.Alias
	Module id.Module
}

// Exports lists the module's exports sorted by name for deterministic
// iteration.
func (m *Module) Exports() []Exportable {
	out := make([]Exportable, 0, len(m.Decls)+len(m.Aliases)+len(m.Submodules))
	for name, d := range m.Decls {
		out = append(out, Exportable{Kind: ExportDecl, Name: name, Decl: d})
	}
	for name, a := range m.Aliases {
		out = append(out, Exportable{Kind: ExportAlias, Name: name, Alias: a})
	}
	for name, s := range m.Submodules {
		out = append(out, Exportable{Kind: ExportModule, Name: name, Module: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Alias binds a name to an existing decl.
type Alias struct {
	Name   string
	Target id.Decl
	Span   source.Span
}

// Variable is one declared binding slot.
type Variable struct {
	Name string
	Span source.Span
}
