package engine

import (
	"rill/internal/id"
	"rill/internal/value"
)

// Stack is a mutable binding environment: variable slots plus the
// ambient environment variables and their hidden set. Environment maps
// support snapshot-and-restore so each pipeline element can evaluate
// against a clean copy instead of inheriting mutations from prior
// elements.
type Stack struct {
	vars map[id.Var]value.Value

	EnvVars   map[string]value.Value
	EnvHidden map[string]bool
}

func NewStack() *Stack {
	return &Stack{
		vars:      make(map[id.Var]value.Value),
		EnvVars:   make(map[string]value.Value),
		EnvHidden: make(map[string]bool),
	}
}

func (s *Stack) AddVar(v id.Var, val value.Value) {
	s.vars[v] = val
}

func (s *Stack) GetVar(v id.Var) (value.Value, bool) {
	val, ok := s.vars[v]
	return val, ok
}

// CapturesToStack derives a fresh stack holding only the closure's
// captured variables, with the ambient environment copied from the
// parent.
func (s *Stack) CapturesToStack(captures []value.Capture) *Stack {
	derived := NewStack()
	for _, c := range captures {
		derived.vars[c.Var] = c.Value
	}
	derived.EnvVars = cloneEnv(s.EnvVars)
	derived.EnvHidden = cloneHidden(s.EnvHidden)
	return derived
}

// SnapshotEnv copies the current environment state for a later WithEnv.
func (s *Stack) SnapshotEnv() (map[string]value.Value, map[string]bool) {
	return cloneEnv(s.EnvVars), cloneHidden(s.EnvHidden)
}

// WithEnv resets the environment to fresh copies of the given
// snapshot, discarding every mutation made since it was taken.
func (s *Stack) WithEnv(envVars map[string]value.Value, envHidden map[string]bool) {
	s.EnvVars = cloneEnv(envVars)
	s.EnvHidden = cloneHidden(envHidden)
}

// GetEnv reads an environment variable, honoring the hidden set.
func (s *Stack) GetEnv(name string) (value.Value, bool) {
	if s.EnvHidden[name] {
		return value.Value{}, false
	}
	v, ok := s.EnvVars[name]
	return v, ok
}

func (s *Stack) SetEnv(name string, v value.Value) {
	s.EnvVars[name] = v
	delete(s.EnvHidden, name)
}

func (s *Stack) HideEnv(name string) {
	s.EnvHidden[name] = true
}

func cloneEnv(src map[string]value.Value) map[string]value.Value {
	dst := make(map[string]value.Value, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneHidden(src map[string]bool) map[string]bool {
	dst := make(map[string]bool, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
