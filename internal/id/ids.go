// Package id defines the arena identifiers shared by the catalog, the
// working set, and runtime values. Ids are dense indexes into per-kind
// arenas; they are unique for the process lifetime and never reused.
package id

// Decl identifies an executable command unit in the catalog.
type Decl uint32

// Block identifies a parsed executable body.
type Block uint32

// Module identifies a named export collection.
type Module uint32

// Alias identifies an alias entry.
type Alias uint32

// Var identifies a variable binding slot.
type Var uint32
