package bytecode

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/deepnoodle-ai/scriptc/op"
)

// Function represents one compiled function body. It is immutable after
// creation.
type Function struct {
	name         string
	nameID       uint32
	paramCount   int
	frameSize    int
	freeCount    int
	instructions []op.Code
	constants    []Constant
	locations    []SourceLocation
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	Name         string
	NameID       uint32 // string table id of Name
	ParamCount   int
	FrameSize    int // number of local slots, parameters included
	FreeCount    int // number of captured variables
	Instructions []op.Code
	Constants    []Constant
	Locations    []SourceLocation // one per instruction word, or none
}

// NewFunction creates a new immutable Function from the given parameters.
// Input slices are copied to ensure immutability.
func NewFunction(params FunctionParams) *Function {
	return &Function{
		name:         params.Name,
		nameID:       params.NameID,
		paramCount:   params.ParamCount,
		frameSize:    params.FrameSize,
		freeCount:    params.FreeCount,
		instructions: slices.Clone(params.Instructions),
		constants:    slices.Clone(params.Constants),
		locations:    slices.Clone(params.Locations),
	}
}

// Name returns the function name, or empty string for anonymous functions.
func (f *Function) Name() string {
	return f.name
}

// NameID returns the string table id of the function name.
func (f *Function) NameID() uint32 {
	return f.nameID
}

// ParamCount returns the number of declared parameters.
func (f *Function) ParamCount() int {
	return f.paramCount
}

// FrameSize returns the number of local slots.
func (f *Function) FrameSize() int {
	return f.frameSize
}

// FreeCount returns the number of captured variables.
func (f *Function) FreeCount() int {
	return f.freeCount
}

// InstructionCount returns the number of instruction words.
func (f *Function) InstructionCount() int {
	return len(f.instructions)
}

// InstructionAt returns the instruction word at the given index.
func (f *Function) InstructionAt(index int) op.Code {
	return f.instructions[index]
}

// ConstantCount returns the number of constants.
func (f *Function) ConstantCount() int {
	return len(f.constants)
}

// ConstantAt returns the constant at the given index.
func (f *Function) ConstantAt(index int) Constant {
	return f.constants[index]
}

// LocationCount returns the number of recorded source locations.
func (f *Function) LocationCount() int {
	return len(f.locations)
}

// LocationAt returns the source location for the instruction word at the
// given index.
func (f *Function) LocationAt(ip int) SourceLocation {
	if ip < 0 || ip >= len(f.locations) {
		return SourceLocation{}
	}
	return f.locations[ip]
}

// String returns a short description of the function.
func (f *Function) String() string {
	var out bytes.Buffer
	out.WriteString("function")
	if f.name != "" {
		out.WriteString(" " + f.name)
	}
	fmt.Fprintf(&out, "(params=%d, frame=%d, free=%d, words=%d)",
		f.paramCount, f.frameSize, f.freeCount, len(f.instructions))
	return out.String()
}
