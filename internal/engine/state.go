package engine

import (
	"fmt"
	"sync/atomic"

	"fortio.org/safecast"

	"rill/internal/id"
	"rill/internal/source"
)

// EngineState is the committed catalog: the process-wide store of
// decls, blocks, modules, aliases, and variables. Ids index dense
// arenas with slot 0 reserved as a sentinel; they are unique for the
// process lifetime and never reused. Mutation happens only through
// MergeDelta and UpdateDecl; concurrent link attempts must be
// serialized by the caller.
type EngineState struct {
	decls   []Command
	blocks  []*Block
	modules []*Module
	aliases []*Alias
	vars    []Variable

	// scope maps externally visible command names to decl ids; a later
	// registration of the same name shadows the earlier one.
	// visibleName is its reverse, tracking the current externally
	// visible name of each decl.
	scope       map[string]id.Decl
	visibleName map[id.Decl]string
	moduleIndex map[string]id.Module

	// Files owns all loaded source text; append-only, shared with
	// working sets so spans stay valid across merges.
	Files *source.FileSet

	// Ctrlc is the shared cancellation flag polled between pipeline
	// element pulls.
	Ctrlc *atomic.Bool
}

func NewEngineState() *EngineState {
	return &EngineState{
		decls:       make([]Command, 1), // index 0 reserved
		blocks:      make([]*Block, 1),
		modules:     make([]*Module, 1),
		aliases:     make([]*Alias, 1),
		vars:        make([]Variable, 1),
		scope:       make(map[string]id.Decl),
		visibleName: make(map[id.Decl]string),
		moduleIndex: make(map[string]id.Module),
		Files:       source.NewFileSet(),
		Ctrlc:       &atomic.Bool{},
	}
}

// NumDecls reports the committed decl arena length, sentinel included.
// Working-set ids for staged decls start here.
func (es *EngineState) NumDecls() uint32   { return arenaLen(len(es.decls)) }
func (es *EngineState) NumBlocks() uint32  { return arenaLen(len(es.blocks)) }
func (es *EngineState) NumModules() uint32 { return arenaLen(len(es.modules)) }
func (es *EngineState) NumAliases() uint32 { return arenaLen(len(es.aliases)) }
func (es *EngineState) NumVars() uint32    { return arenaLen(len(es.vars)) }

func arenaLen(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("catalog arena overflow: %w", err))
	}
	return v
}

// GetDecl returns the command for a committed decl id, or nil.
func (es *EngineState) GetDecl(d id.Decl) Command {
	if d == 0 || uint32(d) >= es.NumDecls() {
		return nil
	}
	return es.decls[d]
}

func (es *EngineState) GetBlock(b id.Block) *Block {
	if b == 0 || uint32(b) >= es.NumBlocks() {
		return nil
	}
	return es.blocks[b]
}

func (es *EngineState) GetModule(m id.Module) *Module {
	if m == 0 || uint32(m) >= es.NumModules() {
		return nil
	}
	return es.modules[m]
}

func (es *EngineState) GetAlias(a id.Alias) *Alias {
	if a == 0 || uint32(a) >= es.NumAliases() {
		return nil
	}
	return es.aliases[a]
}

func (es *EngineState) GetVar(v id.Var) *Variable {
	if v == 0 || uint32(v) >= es.NumVars() {
		return nil
	}
	return &es.vars[v]
}

// FindDecl resolves an externally visible command name.
func (es *EngineState) FindDecl(name string) (id.Decl, bool) {
	d, ok := es.scope[name]
	return d, ok
}

// FindDeclName reports the current externally visible name of a decl.
// Names may have been rebound by prior links; the latest registration
// wins.
func (es *EngineState) FindDeclName(d id.Decl) (string, bool) {
	name, ok := es.visibleName[d]
	return name, ok
}

// FindModule resolves a logical module name to its latest committed id.
func (es *EngineState) FindModule(name string) (id.Module, bool) {
	m, ok := es.moduleIndex[name]
	return m, ok
}

// AddBaseDecl registers a native command directly into the catalog,
// bypassing the working set. Intended for interpreter startup, before
// any user parsing runs.
func (es *EngineState) AddBaseDecl(cmd Command) id.Decl {
	d := id.Decl(es.NumDecls())
	es.decls = append(es.decls, cmd)
	es.bindName(cmd.Name(), d)
	return d
}

func (es *EngineState) bindName(name string, d id.Decl) {
	es.scope[name] = d
	es.visibleName[d] = name
}

// UpdateDecl overwrites a committed decl in place, keeping its id. Call
// sites that already resolved to the id observe the new behavior
// transparently; that is the whole point of stable decl ids.
func (es *EngineState) UpdateDecl(d id.Decl, cmd Command) error {
	if es.GetDecl(d) == nil {
		return fmt.Errorf("update of unknown decl id %d", d)
	}
	es.decls[d] = cmd
	es.bindName(cmd.Name(), d)
	return nil
}

// MergeDelta commits a working set's staged entries into the catalog as
// one unit. The caller is responsible for refusing to merge a delta
// whose working set recorded parse errors.
func (es *EngineState) MergeDelta(delta *StateDelta) error {
	if delta == nil {
		return fmt.Errorf("merge of nil delta")
	}
	es.decls = append(es.decls, delta.decls...)
	es.blocks = append(es.blocks, delta.blocks...)
	es.modules = append(es.modules, delta.modules...)
	es.aliases = append(es.aliases, delta.aliases...)
	es.vars = append(es.vars, delta.vars...)
	for _, entry := range delta.scope {
		es.bindName(entry.name, entry.decl)
	}
	for _, entry := range delta.moduleNames {
		es.moduleIndex[entry.name] = entry.module
	}
	return nil
}
