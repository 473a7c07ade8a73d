package engine

import (
	"rill/internal/id"
	"rill/internal/pipeline"
)

// Type describes a pipeline input or output shape for a signature.
type Type uint8

const (
	TypeAny Type = iota
	TypeNothing
	TypeBool
	TypeInt
	TypeString
	TypeList
	TypeTable
)

// SyntaxShape describes what the parser accepts for a parameter.
type SyntaxShape uint8

const (
	ShapeAny SyntaxShape = iota
	ShapeString
	ShapeInt
	ShapeClosure
	ShapeSignature
	ShapeList
)

// Category groups commands for help output.
type Category uint8

const (
	CategoryDefault Category = iota
	CategoryCore
	CategoryFilters
)

// Param is one declared parameter. Var is the binding slot the
// evaluator fills at call time; zero means the parameter is unbound.
type Param struct {
	Name  string
	Shape SyntaxShape
	Desc  string
	Var   id.Var
}

// InOutType is a declared input/output type pair.
type InOutType struct {
	In  Type
	Out Type
}

// Signature declares a command's calling convention. The name is
// mutable independent of the decl id carrying it, which is what makes
// live rebinding possible.
type Signature struct {
	Name             string
	Category         Category
	Positional       []Param
	RestPositional   *Param
	InputOutputTypes []InOutType
}

// BuildSignature starts a signature for name.
func BuildSignature(name string) *Signature {
	return &Signature{Name: name}
}

// Required appends a required positional parameter.
func (sig *Signature) Required(name string, shape SyntaxShape, desc string) *Signature {
	sig.Positional = append(sig.Positional, Param{Name: name, Shape: shape, Desc: desc})
	return sig
}

// Rest declares a trailing rest parameter.
func (sig *Signature) Rest(name string, shape SyntaxShape, desc string) *Signature {
	sig.RestPositional = &Param{Name: name, Shape: shape, Desc: desc}
	return sig
}

// InputOutput appends a declared input/output type pair.
func (sig *Signature) InputOutput(in, out Type) *Signature {
	sig.InputOutputTypes = append(sig.InputOutputTypes, InOutType{In: in, Out: out})
	return sig
}

// WithCategory sets the category.
func (sig *Signature) WithCategory(c Category) *Signature {
	sig.Category = c
	return sig
}

// GetPositional returns the i-th declared positional parameter.
func (sig *Signature) GetPositional(i int) (*Param, bool) {
	if i < 0 || i >= len(sig.Positional) {
		return nil, false
	}
	return &sig.Positional[i], true
}

// Command is any executable unit: native operation or block-backed decl.
// Invocation is uniform; capability differences surface through CanLink
// and BlockID rather than concrete types.
type Command interface {
	Name() string
	Usage() string
	Signature() *Signature
	SearchTerms() []string

	// CanLink marks linking operations, which the block evaluator
	// intercepts before normal evaluation.
	CanLink() bool

	// BlockID returns the backing block for block-backed decls.
	BlockID() (id.Block, bool)

	Run(es *EngineState, stack *Stack, call *Call, input pipeline.Data) (pipeline.Data, error)
}

// blockCommand is a decl backed by a parsed block.
type blockCommand struct {
	sig   *Signature
	block id.Block
}

// IntoBlockCommand builds a block-backed command from the signature.
func (sig *Signature) IntoBlockCommand(block id.Block) Command {
	return &blockCommand{sig: sig, block: block}
}

func (bc *blockCommand) Name() string          { return bc.sig.Name }
func (bc *blockCommand) Usage() string         { return "" }
func (bc *blockCommand) Signature() *Signature { return bc.sig }
func (bc *blockCommand) SearchTerms() []string { return nil }
func (bc *blockCommand) CanLink() bool         { return false }

func (bc *blockCommand) BlockID() (id.Block, bool) { return bc.block, true }

// Run binds declared positional parameters from the call arguments and
// evaluates the backing block.
func (bc *blockCommand) Run(es *EngineState, stack *Stack, call *Call, input pipeline.Data) (pipeline.Data, error) {
	block := es.GetBlock(bc.block)
	if block == nil {
		return pipeline.Empty(), &InternalError{
			Msg:  "block-backed decl points at missing block",
			Span: call.Head,
		}
	}
	for i := range bc.sig.Positional {
		param := &bc.sig.Positional[i]
		if param.Var == 0 {
			continue
		}
		expr, ok := call.PositionalNth(i)
		if !ok {
			break
		}
		v, err := EvalExpression(es, stack, expr)
		if err != nil {
			return pipeline.Empty(), err
		}
		stack.AddVar(param.Var, v)
	}
	return EvalBlock(es, stack, block, input, call.RedirectStdout, call.RedirectStderr)
}
