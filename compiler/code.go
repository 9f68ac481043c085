package compiler

import (
	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/op"
)

type loop struct {
	code *Code
	// continueTarget is the instruction a continue jumps back to, or -1
	// when the target follows the body and continues are patched later.
	continueTarget int
	continuePos    []int
	breakPos       []int
}

func (l *loop) end() {
	code := l.code
	code.loops = code.loops[:len(code.loops)-1]
}

// Code is a function being compiled. It is converted to an immutable
// bytecode.Function once compilation finishes.
type Code struct {
	index        int
	name         string
	nameID       uint32
	parent       *Code
	symbols      *SymbolTable
	paramCount   int
	instructions []op.Code
	constants    []bytecode.Constant
	constIndex   map[bytecode.Constant]uint16
	locations    []bytecode.SourceLocation

	// Used during compilation only
	loops []*loop
}

// Index returns the position of the function in the module function table.
func (c *Code) Index() int {
	return c.index
}

// CodeName returns the function name, empty for anonymous functions.
func (c *Code) CodeName() string {
	return c.name
}

// Parent returns the code of the enclosing function, nil for global code.
func (c *Code) Parent() *Code {
	return c.parent
}

// InstructionCount returns the number of instruction words emitted so far.
func (c *Code) InstructionCount() int {
	return len(c.instructions)
}

func (c *Code) newLoop(continueTarget int) *loop {
	l := &loop{code: c, continueTarget: continueTarget}
	c.loops = append(c.loops, l)
	return l
}

func (c *Code) currentLoop() *loop {
	if len(c.loops) == 0 {
		return nil
	}
	return c.loops[len(c.loops)-1]
}

func (c *Code) function(debugInfo bool) *bytecode.Function {
	params := bytecode.FunctionParams{
		Name:         c.name,
		NameID:       c.nameID,
		ParamCount:   c.paramCount,
		FrameSize:    int(c.symbols.Count()),
		FreeCount:    int(c.symbols.FreeCount()),
		Instructions: c.instructions,
		Constants:    c.constants,
	}
	if debugInfo {
		params.Locations = c.locations
	}
	return bytecode.NewFunction(params)
}
