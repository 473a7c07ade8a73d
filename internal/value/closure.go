package value

import "rill/internal/id"

// Capture is one variable snapshot carried by a closure.
type Capture struct {
	Var   id.Var
	Value Value
}

// Closure pairs a block with the variable snapshot taken where the
// closure literal was written. Evaluation binds the captures into a
// fresh stack frame and runs the block.
type Closure struct {
	Block    id.Block
	Captures []Capture
}
