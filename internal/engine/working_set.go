package engine

import (
	"fmt"

	"rill/internal/diag"
	"rill/internal/id"
	"rill/internal/source"
)

type scopeEntry struct {
	name string
	decl id.Decl
}

type moduleEntry struct {
	name   string
	module id.Module
}

// StateDelta is the set of staged entries a working set accumulated:
// everything parsing produced but the catalog has not committed yet.
type StateDelta struct {
	decls   []Command
	blocks  []*Block
	modules []*Module
	aliases []*Alias
	vars    []Variable

	scope       []scopeEntry
	moduleNames []moduleEntry
}

// NumDecls reports how many decls the delta stages.
func (d *StateDelta) NumDecls() int { return len(d.decls) }

// NumModules reports how many modules the delta stages.
func (d *StateDelta) NumModules() int { return len(d.modules) }

// StateWorkingSet is the isolated staging area all parsing runs
// against: a read view of the committed catalog plus a delta of new,
// uncommitted entries. Staged ids continue the catalog's numbering, so
// they become valid catalog ids the moment the delta merges — and are
// meaningless if the working set is dropped instead.
//
// Lookups check the delta first and fall through to the catalog, so
// uncommitted definitions shadow committed ones during the same parse.
type StateWorkingSet struct {
	Engine *EngineState
	Delta  StateDelta

	// ParseErrors accumulates diagnostics hit while staging. A delta
	// with pending errors must never be merged.
	ParseErrors *diag.Bag

	consumed bool
}

func NewWorkingSet(es *EngineState) *StateWorkingSet {
	return &StateWorkingSet{
		Engine:      es,
		ParseErrors: diag.NewBag(100),
	}
}

// Error records a parse diagnostic.
func (ws *StateWorkingSet) Error(d diag.Diagnostic) {
	ws.ParseErrors.Add(d)
}

// HasParseErrors reports whether staging hit any error.
func (ws *StateWorkingSet) HasParseErrors() bool {
	return ws.ParseErrors.HasErrors()
}

// AddDecl stages a command and returns the id it will hold after merge.
func (ws *StateWorkingSet) AddDecl(cmd Command) id.Decl {
	d := id.Decl(ws.Engine.NumDecls() + arenaLen(len(ws.Delta.decls)))
	ws.Delta.decls = append(ws.Delta.decls, cmd)
	ws.UseDecl(cmd.Name(), d)
	return d
}

// UseDecl registers an externally visible name for a decl, shadowing
// any committed binding of the same name. This is also how aliased
// `use` imports publish a decl under a different name.
func (ws *StateWorkingSet) UseDecl(name string, d id.Decl) {
	ws.Delta.scope = append(ws.Delta.scope, scopeEntry{name: name, decl: d})
}

// AddBlock stages a block.
func (ws *StateWorkingSet) AddBlock(b *Block) id.Block {
	blk := id.Block(ws.Engine.NumBlocks() + arenaLen(len(ws.Delta.blocks)))
	ws.Delta.blocks = append(ws.Delta.blocks, b)
	return blk
}

// AddModule stages a module and indexes it under its logical name.
func (ws *StateWorkingSet) AddModule(m *Module) id.Module {
	mod := id.Module(ws.Engine.NumModules() + arenaLen(len(ws.Delta.modules)))
	ws.Delta.modules = append(ws.Delta.modules, m)
	ws.Delta.moduleNames = append(ws.Delta.moduleNames, moduleEntry{name: m.Name, module: mod})
	return mod
}

// AddAlias stages an alias.
func (ws *StateWorkingSet) AddAlias(a *Alias) id.Alias {
	al := id.Alias(ws.Engine.NumAliases() + arenaLen(len(ws.Delta.aliases)))
	ws.Delta.aliases = append(ws.Delta.aliases, a)
	return al
}

// AddVariable stages a variable binding slot.
func (ws *StateWorkingSet) AddVariable(name string, span source.Span) id.Var {
	v := id.Var(ws.Engine.NumVars() + arenaLen(len(ws.Delta.vars)))
	ws.Delta.vars = append(ws.Delta.vars, Variable{Name: name, Span: span})
	return v
}

// GetDecl resolves a decl id against the delta first, then the catalog.
func (ws *StateWorkingSet) GetDecl(d id.Decl) Command {
	base := ws.Engine.NumDecls()
	if uint32(d) >= base {
		i := uint32(d) - base
		if int(i) < len(ws.Delta.decls) {
			return ws.Delta.decls[i]
		}
		return nil
	}
	return ws.Engine.GetDecl(d)
}

func (ws *StateWorkingSet) GetBlock(b id.Block) *Block {
	base := ws.Engine.NumBlocks()
	if uint32(b) >= base {
		i := uint32(b) - base
		if int(i) < len(ws.Delta.blocks) {
			return ws.Delta.blocks[i]
		}
		return nil
	}
	return ws.Engine.GetBlock(b)
}

func (ws *StateWorkingSet) GetModule(m id.Module) *Module {
	base := ws.Engine.NumModules()
	if uint32(m) >= base {
		i := uint32(m) - base
		if int(i) < len(ws.Delta.modules) {
			return ws.Delta.modules[i]
		}
		return nil
	}
	return ws.Engine.GetModule(m)
}

// FindDecl resolves a visible name, delta bindings shadowing committed
// ones. Within the delta the latest registration wins.
func (ws *StateWorkingSet) FindDecl(name string) (id.Decl, bool) {
	for i := len(ws.Delta.scope) - 1; i >= 0; i-- {
		if ws.Delta.scope[i].name == name {
			return ws.Delta.scope[i].decl, true
		}
	}
	return ws.Engine.FindDecl(name)
}

// FindDeclName reports the decl's current externally visible name,
// preferring uncommitted registrations.
func (ws *StateWorkingSet) FindDeclName(d id.Decl) (string, bool) {
	for i := len(ws.Delta.scope) - 1; i >= 0; i-- {
		if ws.Delta.scope[i].decl == d {
			return ws.Delta.scope[i].name, true
		}
	}
	return ws.Engine.FindDeclName(d)
}

// FindModule resolves a logical module name, delta first.
func (ws *StateWorkingSet) FindModule(name string) (id.Module, bool) {
	for i := len(ws.Delta.moduleNames) - 1; i >= 0; i-- {
		if ws.Delta.moduleNames[i].name == name {
			return ws.Delta.moduleNames[i].module, true
		}
	}
	return ws.Engine.FindModule(name)
}

// TakeDelta hands the delta off for merging and consumes the working
// set. It refuses when parse errors are pending (a partial merge must
// never happen) or when the working set was already consumed.
func (ws *StateWorkingSet) TakeDelta() (*StateDelta, error) {
	if ws.consumed {
		return nil, fmt.Errorf("working set already consumed")
	}
	if ws.HasParseErrors() {
		first, _ := ws.ParseErrors.First()
		return nil, fmt.Errorf("refusing to take delta with pending parse errors: %s", first)
	}
	ws.consumed = true
	delta := ws.Delta
	ws.Delta = StateDelta{}
	return &delta, nil
}
