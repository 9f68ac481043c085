package compiler

import (
	"errors"
	"fmt"
	"math"
)

// Scope describes where a resolved symbol lives relative to the code that
// references it.
type Scope string

const (
	// Global symbols are properties of the global object, addressed by name.
	Global Scope = "global"
	// Local symbols occupy a slot in the current function's frame.
	Local Scope = "local"
	// Free symbols are captured from an enclosing function.
	Free Scope = "free"
)

// Symbol is a declared name.
type Symbol struct {
	name       string
	index      uint16
	isConstant bool
	isGlobal   bool
}

// Name returns the declared name.
func (s *Symbol) Name() string {
	return s.name
}

// Index returns the frame slot of a local symbol. Globals have no slot.
func (s *Symbol) Index() uint16 {
	return s.index
}

// IsConstant returns true for const bindings.
func (s *Symbol) IsConstant() bool {
	return s.isConstant
}

// IsGlobal returns true for symbols declared in the root table.
func (s *Symbol) IsGlobal() bool {
	return s.isGlobal
}

// Resolution is the result of resolving a name from a given table.
type Resolution struct {
	symbol    *Symbol
	scope     Scope
	depth     int
	freeIndex int
}

// Symbol returns the resolved symbol.
func (r *Resolution) Symbol() *Symbol {
	return r.symbol
}

// Scope returns where the symbol lives relative to the resolving code.
func (r *Resolution) Scope() Scope {
	return r.scope
}

// Depth returns the number of function boundaries crossed to reach a free
// symbol.
func (r *Resolution) Depth() int {
	return r.depth
}

// FreeIndex returns the index of a free symbol in the capturing function.
func (r *Resolution) FreeIndex() int {
	return r.freeIndex
}

// SymbolTable tracks which symbols are defined and referenced in a given scope.
// These tables may have a parent table, which indicates that they represent a
// nested scope. If "isBlock" is set to true, this table represents a block
// within a function (like inside an if { ... }), rather than a function itself.
//
// Names declared directly in the root table are globals and take no slot.
// Blocks nested in the root allocate slots in the root frame, the same way
// blocks in a function allocate slots in that function's frame.
type SymbolTable struct {
	id            string
	parent        *SymbolTable
	children      []*SymbolTable
	symbolsByName map[string]*Symbol
	freeByName    map[string]*Resolution
	symbols       []*Symbol
	free          []*Resolution
	isBlock       bool
}

// NewSymbolTable returns a new root symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		id:            "root",
		symbolsByName: map[string]*Symbol{},
		freeByName:    map[string]*Resolution{},
	}
}

// NewChild creates a new symbol table that is a child of the current table.
// The child represents a function.
func (t *SymbolTable) NewChild() *SymbolTable {
	child := &SymbolTable{
		id:            fmt.Sprintf("%s.%d", t.id, len(t.children)),
		parent:        t,
		symbolsByName: map[string]*Symbol{},
		freeByName:    map[string]*Resolution{},
	}
	t.children = append(t.children, child)
	return child
}

// NewBlock creates a new symbol table that is a child of the current table,
// and represents a block within a function. Blocks allocate symbol indexes
// from the enclosing function's symbol table.
func (t *SymbolTable) NewBlock() *SymbolTable {
	child := t.NewChild()
	child.isBlock = true
	return child
}

// ID returns a dotted path identifying the table within its tree.
func (t *SymbolTable) ID() string {
	return t.id
}

func (t *SymbolTable) claimIndex(s *Symbol) error {
	if t.isBlock {
		return t.parent.claimIndex(s)
	}
	idx := len(t.symbols)
	if idx >= math.MaxUint16 {
		return errors.New("too many local variables")
	}
	s.index = uint16(idx)
	t.symbols = append(t.symbols, s)
	return nil
}

// IsRoot returns true if this table is the root table itself. Blocks nested
// in the root are not the root.
func (t *SymbolTable) IsRoot() bool {
	return t.parent == nil
}

// FunctionDepth returns the number of functions enclosing this table.
func (t *SymbolTable) FunctionDepth() int {
	if t.parent == nil {
		return 0
	}
	if t.isBlock {
		return t.parent.FunctionDepth()
	}
	return 1 + t.parent.FunctionDepth()
}

// InsertVariable adds a new variable into this symbol table. Outside the
// root table the symbol is assigned the next free slot of the enclosing
// function.
func (t *SymbolTable) InsertVariable(name string) (*Symbol, error) {
	if _, ok := t.symbolsByName[name]; ok {
		return nil, fmt.Errorf("variable %q already exists", name)
	}
	s := &Symbol{name: name}
	if t.IsRoot() {
		s.isGlobal = true
	} else if err := t.claimIndex(s); err != nil {
		return nil, err
	}
	t.symbolsByName[name] = s
	return s, nil
}

// InsertParameter claims the next slot for a function parameter. A
// repeated parameter name is rebound to the later slot.
func (t *SymbolTable) InsertParameter(name string) (*Symbol, error) {
	s := &Symbol{name: name}
	if err := t.claimIndex(s); err != nil {
		return nil, err
	}
	t.symbolsByName[name] = s
	return s, nil
}

// InsertConstant adds a new constant into this symbol table.
func (t *SymbolTable) InsertConstant(name string) (*Symbol, error) {
	sym, err := t.InsertVariable(name)
	if err != nil {
		return nil, err
	}
	sym.isConstant = true
	return sym, nil
}

// Declare returns the symbol already defined with this name in this table,
// or inserts a new one.
func (t *SymbolTable) Declare(name string, constant bool) (*Symbol, error) {
	if s, ok := t.symbolsByName[name]; ok {
		return s, nil
	}
	if constant {
		return t.InsertConstant(name)
	}
	return t.InsertVariable(name)
}

// IsDefined returns true if the specified symbol is defined in this table.
// Does not check any parent tables.
func (t *SymbolTable) IsDefined(name string) bool {
	_, ok := t.symbolsByName[name]
	return ok
}

// Get returns the symbol with the specified name and a boolean indicating
// whether the symbol was found. Does not check any parent tables.
func (t *SymbolTable) Get(name string) (*Symbol, bool) {
	s, ok := t.symbolsByName[name]
	return s, ok
}

// Resolve the specified symbol in this table or any parent tables, returning
// a Resolution if the symbol is found. The Resolution indicates the symbol's
// relative scope and depth. If the symbol is found to be a "free" variable,
// it will be added to the free list of the enclosing function.
func (t *SymbolTable) Resolve(name string) (*Resolution, bool) {
	activeFunc := t.LocalTable()
	for table := t; ; table = table.parent {
		if sym, ok := table.symbolsByName[name]; ok {
			if table.IsRoot() {
				return &Resolution{symbol: sym, scope: Global}, true
			}
			return &Resolution{symbol: sym, scope: Local}, true
		}
		if table == activeFunc {
			break
		}
	}
	// Check if the symbol was previously found to be a "free" variable
	if rs, ok := activeFunc.freeByName[name]; ok {
		return rs, true
	}
	for ancestor := activeFunc.parent; ancestor != nil; ancestor = ancestor.parent {
		sym, ok := ancestor.symbolsByName[name]
		if !ok {
			continue
		}
		if ancestor.IsRoot() {
			return &Resolution{symbol: sym, scope: Global}, true
		}
		depth := t.FunctionDepth() - ancestor.FunctionDepth()
		rs := &Resolution{symbol: sym, scope: Free, depth: depth, freeIndex: len(activeFunc.free)}
		activeFunc.freeByName[name] = rs
		activeFunc.free = append(activeFunc.free, rs)
		return rs, true
	}
	return nil, false
}

// Parent returns the parent table of this table, if any.
func (t *SymbolTable) Parent() *SymbolTable {
	return t.parent
}

// Root returns the outermost table that encloses this table.
func (t *SymbolTable) Root() *SymbolTable {
	current := t
	for current.parent != nil {
		current = current.parent
	}
	return current
}

// LocalTable returns the table that defines the local variables for this table.
// This is useful to find the enclosing function when in a block.
func (t *SymbolTable) LocalTable() *SymbolTable {
	current := t
	for current.isBlock {
		current = current.parent
	}
	return current
}

// Count returns the number of frame slots claimed in this table.
func (t *SymbolTable) Count() uint16 {
	return uint16(len(t.symbols))
}

// Symbol returns the Symbol located at the specified slot.
func (t *SymbolTable) Symbol(index uint16) *Symbol {
	return t.symbols[index]
}

// FreeCount returns the number of free variables defined in this table.
func (t *SymbolTable) FreeCount() uint16 {
	return uint16(len(t.free))
}

// Free returns the free variable Resolution located at the specified index.
func (t *SymbolTable) Free(index uint16) *Resolution {
	return t.free[index]
}
