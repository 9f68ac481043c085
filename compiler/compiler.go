// Package compiler generates a bytecode.Module from a validated program.
package compiler

import (
	"fmt"
	"math"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/internal/token"
	"github.com/deepnoodle-ai/scriptc/op"
	"github.com/deepnoodle-ai/scriptc/sourcemap"
)

const (
	// MaxArgs is the maximum number of arguments a function can have.
	MaxArgs = 255

	// Placeholder is a temporary value written during compilation, which is
	// always replaced before compilation is complete.
	Placeholder = uint16(math.MaxUint16)

	// GlobalName is the name given to the global code function.
	GlobalName = "global"
)

// Flags control code generation.
type Flags struct {
	// DebugInfo records a source location for every instruction word.
	DebugInfo bool
	// Optimize folds constant numeric expressions.
	Optimize bool
}

// Option is a configuration function for a Compiler.
type Option func(*Compiler)

// WithFlags sets the code generation flags.
func WithFlags(flags Flags) Option {
	return func(c *Compiler) {
		c.flags = flags
	}
}

// WithSourceMap attaches a source map. Its metadata is embedded in the
// module and debug locations are translated to original positions.
func WithSourceMap(sm *sourcemap.SourceMap) Option {
	return func(c *Compiler) {
		c.sourceMap = sm
	}
}

// WithFilename sets the display URL recorded as file 0 of the module. It
// defaults to the program URL.
func WithFilename(filename string) Option {
	return func(c *Compiler) {
		c.filename = filename
		c.filenameSet = true
	}
}

// Error is a code generation failure at a source position.
type Error struct {
	Message string
	Pos     token.Position
}

func (e *Error) Error() string {
	file := e.Pos.File
	if file == "" {
		file = "unknown"
	}
	return fmt.Sprintf("compile error: %s\n\nlocation: %s:%d:%d",
		e.Message, file, e.Pos.LineNumber(), e.Pos.ColumnNumber())
}

// Compiler is used to compile a program into its corresponding bytecode.
// A Compiler compiles one program.
type Compiler struct {
	flags       Flags
	sourceMap   *sourcemap.SourceMap
	filename    string
	filenameSet bool

	strings   *bytecode.StringTable
	files     []string
	fileIndex map[string]int
	codes     []*Code

	// The current code we are compiling into. This changes as we enter
	// and leave functions.
	current *Code

	// Current AST node being compiled (used for debug locations)
	node    ast.Node
	locNode ast.Node
	loc     bytecode.SourceLocation

	// Memoized constant folding results, keyed by operator node
	folded map[ast.Expr]foldResult

	// Set on a compilation error
	failure error
}

// New creates and returns a new Compiler.
func New(options ...Option) *Compiler {
	c := &Compiler{
		strings:   bytecode.NewStringTable(),
		fileIndex: map[string]int{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Generate compiles a program with a new Compiler.
func Generate(program *ast.Program, options ...Option) (*bytecode.Module, error) {
	return New(options...).Compile(program)
}

// Compile generates the module for a program. Function 0 of the module is
// the global code; the remaining functions follow in source order.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Module, error) {
	if c.codes != nil {
		return nil, fmt.Errorf("compile error: compiler already used")
	}
	if !c.filenameSet {
		c.filename = program.URL
	}
	c.fileID(c.filename)
	c.node = program

	main := c.newCode(GlobalName, NewSymbolTable())
	c.current = main
	if err := c.compileBody(program.Stmts); err != nil {
		return nil, err
	}
	c.emitImplicitReturn(program.Stmts)
	if c.failure != nil {
		return nil, c.failure
	}

	functions := make([]*bytecode.Function, len(c.codes))
	for i, code := range c.codes {
		functions[i] = code.function(c.flags.DebugInfo)
	}
	params := bytecode.ModuleParams{
		Functions: functions,
		Strings:   c.strings.Strings(),
		Files:     c.files,
		DebugInfo: c.flags.DebugInfo,
	}
	if sm := c.sourceMap; sm != nil {
		params.SourceMap = &bytecode.SourceMapInfo{
			File:           sm.File,
			SourceRoot:     sm.SourceRoot,
			Sources:        sm.Sources,
			SourcesContent: sm.SourcesContent,
		}
	}
	return bytecode.NewModule(params), nil
}

func (c *Compiler) newCode(name string, symbols *SymbolTable) *Code {
	code := &Code{
		index:      len(c.codes),
		name:       name,
		nameID:     c.intern(name),
		parent:     c.current,
		symbols:    symbols,
		constIndex: map[bytecode.Constant]uint16{},
	}
	c.codes = append(c.codes, code)
	return code
}

// compileBody compiles the statements of a function body or the program,
// after hoisting var declarations into the function scope.
func (c *Compiler) compileBody(stmts []ast.Stmt) error {
	if err := c.hoistVars(stmts); err != nil {
		return err
	}
	return c.compileStatements(stmts)
}

// compileStatements declares the lexical bindings and functions of a
// statement list, emits the function declarations and then the remaining
// statements in order.
func (c *Compiler) compileStatements(stmts []ast.Stmt) error {
	symbols := c.current.symbols
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VarDecl:
			if err := c.declareLexical(s); err != nil {
				return err
			}
		case *ast.FuncDecl:
			if _, err := symbols.Declare(s.Func.Name.Name, false); err != nil {
				return c.errorAt(s, err.Error())
			}
		}
	}
	for _, stmt := range stmts {
		if decl, ok := stmt.(*ast.FuncDecl); ok {
			if err := c.compileStmt(decl); err != nil {
				return err
			}
		}
	}
	for _, stmt := range stmts {
		if _, ok := stmt.(*ast.FuncDecl); ok {
			continue
		}
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
		if c.failure != nil {
			return c.failure
		}
	}
	return nil
}

func (c *Compiler) declareLexical(decl *ast.VarDecl) error {
	if !decl.Kind.IsLexical() {
		return nil
	}
	for _, d := range decl.Decls {
		if _, err := c.current.symbols.Declare(d.Name.Name, decl.Kind == ast.DeclConst); err != nil {
			return c.errorAt(d.Name, err.Error())
		}
	}
	return nil
}

// hoistVars declares every var name in a function body in the function
// scope. Nested functions are not entered.
func (c *Compiler) hoistVars(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := c.hoistStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) hoistStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		if s.Kind.IsLexical() {
			return nil
		}
		table := c.current.symbols.LocalTable()
		for _, d := range s.Decls {
			if _, err := table.Declare(d.Name.Name, false); err != nil {
				return c.errorAt(d.Name, err.Error())
			}
		}
	case *ast.Block:
		return c.hoistVars(s.Stmts)
	case *ast.If:
		if err := c.hoistStmt(s.Consequence); err != nil {
			return err
		}
		if s.Alternative != nil {
			return c.hoistStmt(s.Alternative)
		}
	case *ast.While:
		return c.hoistStmt(s.Body)
	case *ast.DoWhile:
		return c.hoistStmt(s.Body)
	case *ast.For:
		if s.Init != nil {
			if err := c.hoistStmt(s.Init); err != nil {
				return err
			}
		}
		return c.hoistStmt(s.Body)
	}
	return nil
}

func (c *Compiler) enterBlock() {
	c.current.symbols = c.current.symbols.NewBlock()
}

func (c *Compiler) leaveBlock() {
	c.current.symbols = c.current.symbols.Parent()
}

// emitImplicitReturn ends a function with "return undefined" unless its
// last statement already leaves it.
func (c *Compiler) emitImplicitReturn(stmts []ast.Stmt) {
	if n := len(stmts); n > 0 {
		switch stmts[n-1].(type) {
		case *ast.Return, *ast.Throw:
			return
		}
	}
	c.emit(op.Undefined)
	c.emit(op.ReturnValue)
}

func (c *Compiler) compileStmt(node ast.Stmt) error {
	prev := c.node
	c.node = node
	err := c.stmt(node)
	c.node = prev
	return err
}

func (c *Compiler) stmt(node ast.Stmt) error {
	switch node := node.(type) {
	case *ast.ExprStmt:
		return c.compileValue(node.X, false)
	case *ast.VarDecl:
		return c.compileVarDecl(node)
	case *ast.FuncDecl:
		return c.compileFuncDecl(node)
	case *ast.Return:
		return c.compileReturn(node)
	case *ast.If:
		return c.compileIf(node)
	case *ast.While:
		return c.compileWhile(node)
	case *ast.DoWhile:
		return c.compileDoWhile(node)
	case *ast.For:
		return c.compileFor(node)
	case *ast.Break:
		return c.compileBreak(node)
	case *ast.Continue:
		return c.compileContinue(node)
	case *ast.Throw:
		if err := c.compileExpr(node.Value); err != nil {
			return err
		}
		c.emit(op.Throw)
	case *ast.Block:
		c.enterBlock()
		err := c.compileStatements(node.Stmts)
		c.leaveBlock()
		return err
	case *ast.Empty:
	default:
		return c.errorAt(node, fmt.Sprintf("unsupported statement %s", node))
	}
	return nil
}

func (c *Compiler) compileVarDecl(node *ast.VarDecl) error {
	for _, d := range node.Decls {
		if d.Value != nil {
			if err := c.compileExpr(d.Value); err != nil {
				return err
			}
		} else if node.Kind == ast.DeclLet {
			c.emit(op.Undefined)
		} else {
			continue
		}
		c.storeName(d.Name)
	}
	return nil
}

func (c *Compiler) compileFuncDecl(node *ast.FuncDecl) error {
	if err := c.compileFunc(node.Func); err != nil {
		return err
	}
	c.storeName(node.Func.Name)
	return nil
}

func (c *Compiler) compileReturn(node *ast.Return) error {
	if c.current.parent == nil {
		return c.errorAt(node, "invalid return statement outside of a function")
	}
	if node.Value == nil {
		c.emit(op.Undefined)
	} else if err := c.compileExpr(node.Value); err != nil {
		return err
	}
	c.emit(op.ReturnValue)
	return nil
}

func (c *Compiler) compileIf(node *ast.If) error {
	if err := c.compileExpr(node.Cond); err != nil {
		return err
	}
	jumpIfFalsePos := c.emit(op.PopJumpForwardIfFalse, Placeholder)
	if err := c.compileStmt(node.Consequence); err != nil {
		return err
	}
	if node.Alternative == nil {
		return c.patchJump(jumpIfFalsePos)
	}
	// Jump forward to skip the alternative when the consequence ran
	jumpForwardPos := c.emit(op.JumpForward, Placeholder)
	if err := c.patchJump(jumpIfFalsePos); err != nil {
		return err
	}
	if err := c.compileStmt(node.Alternative); err != nil {
		return err
	}
	return c.patchJump(jumpForwardPos)
}

func (c *Compiler) compileWhile(node *ast.While) error {
	start := c.position()
	if err := c.compileExpr(node.Cond); err != nil {
		return err
	}
	exitPos := c.emit(op.PopJumpForwardIfFalse, Placeholder)
	l := c.current.newLoop(start)
	if err := c.compileStmt(node.Body); err != nil {
		return err
	}
	l.end()
	if err := c.jumpBackward(start); err != nil {
		return err
	}
	if err := c.patchJump(exitPos); err != nil {
		return err
	}
	return c.patchJumps(l.breakPos)
}

func (c *Compiler) compileDoWhile(node *ast.DoWhile) error {
	start := c.position()
	l := c.current.newLoop(-1)
	if err := c.compileStmt(node.Body); err != nil {
		return err
	}
	l.end()
	if err := c.patchJumps(l.continuePos); err != nil {
		return err
	}
	if err := c.compileExpr(node.Cond); err != nil {
		return err
	}
	exitPos := c.emit(op.PopJumpForwardIfFalse, Placeholder)
	if err := c.jumpBackward(start); err != nil {
		return err
	}
	if err := c.patchJump(exitPos); err != nil {
		return err
	}
	return c.patchJumps(l.breakPos)
}

func (c *Compiler) compileFor(node *ast.For) error {
	// Bindings declared in the initializer are scoped to the loop
	c.enterBlock()
	defer c.leaveBlock()
	if node.Init != nil {
		if decl, ok := node.Init.(*ast.VarDecl); ok {
			if err := c.declareLexical(decl); err != nil {
				return err
			}
		}
		if err := c.compileStmt(node.Init); err != nil {
			return err
		}
	}
	start := c.position()
	exitPos := -1
	if node.Cond != nil {
		if err := c.compileExpr(node.Cond); err != nil {
			return err
		}
		exitPos = c.emit(op.PopJumpForwardIfFalse, Placeholder)
	}
	l := c.current.newLoop(-1)
	if err := c.compileStmt(node.Body); err != nil {
		return err
	}
	l.end()
	if err := c.patchJumps(l.continuePos); err != nil {
		return err
	}
	if node.Post != nil {
		if err := c.compileValue(node.Post, false); err != nil {
			return err
		}
	}
	if err := c.jumpBackward(start); err != nil {
		return err
	}
	if exitPos >= 0 {
		if err := c.patchJump(exitPos); err != nil {
			return err
		}
	}
	return c.patchJumps(l.breakPos)
}

func (c *Compiler) compileBreak(node *ast.Break) error {
	l := c.current.currentLoop()
	if l == nil {
		return c.errorAt(node, "break statement outside of loop")
	}
	l.breakPos = append(l.breakPos, c.emit(op.JumpForward, Placeholder))
	return nil
}

func (c *Compiler) compileContinue(node *ast.Continue) error {
	l := c.current.currentLoop()
	if l == nil {
		return c.errorAt(node, "continue statement outside of loop")
	}
	if l.continueTarget >= 0 {
		return c.jumpBackward(l.continueTarget)
	}
	l.continuePos = append(l.continuePos, c.emit(op.JumpForward, Placeholder))
	return nil
}

// compileFunc compiles a function and leaves the function object on the
// stack.
func (c *Compiler) compileFunc(node *ast.Func) error {
	if len(node.Params) > MaxArgs {
		return c.errorAt(node, fmt.Sprintf("function exceeded parameter limit of %d", MaxArgs))
	}
	code := c.newCode(node.DisplayName(), c.current.symbols.NewChild())
	code.paramCount = len(node.Params)

	// Setting current here means subsequent calls to compile will add to this
	// code object instead of the parent.
	c.current = code
	for _, p := range node.Params {
		if _, err := code.symbols.InsertParameter(p.Name); err != nil {
			return c.errorAt(p, err.Error())
		}
	}
	if err := c.compileBody(node.Body.Stmts); err != nil {
		return err
	}
	c.emitImplicitReturn(node.Body.Stmts)

	// We're done compiling the function, so switch back to compiling the parent
	c.current = code.parent

	// Emit the code to load the function object onto the stack. If there are
	// free variables, we use LoadClosure, otherwise we use LoadConst.
	constIndex := c.constant(bytecode.FunctionConstant(code.index))
	freeCount := code.symbols.FreeCount()
	if freeCount > 0 {
		for i := uint16(0); i < freeCount; i++ {
			resolution := code.symbols.Free(i)
			c.emit(op.MakeCell, resolution.symbol.Index(), uint16(resolution.depth-1))
		}
		c.emit(op.LoadClosure, constIndex, freeCount)
	} else {
		c.emit(op.LoadConst, constIndex)
	}
	return nil
}

// compileFuncExpr compiles a function expression. A named function
// expression sees its own name through a binding in a scope of its own.
func (c *Compiler) compileFuncExpr(node *ast.Func) error {
	if node.Name == nil {
		return c.compileFunc(node)
	}
	c.enterBlock()
	defer c.leaveBlock()
	if _, err := c.current.symbols.InsertConstant(node.Name.Name); err != nil {
		return c.errorAt(node.Name, err.Error())
	}
	if err := c.compileFunc(node); err != nil {
		return err
	}
	c.emit(op.Copy, 0)
	c.storeName(node.Name)
	return nil
}

func (c *Compiler) position() int {
	return len(c.current.instructions)
}

func (c *Compiler) calculateDelta(pos int) (uint16, error) {
	instrCount := len(c.current.instructions)
	delta := instrCount - pos
	if delta > math.MaxUint16 {
		return 0, c.errorAt(c.node, "jump destination is too far away")
	}
	return uint16(delta), nil
}

func (c *Compiler) changeOperand(instructionIndex int, operand uint16) {
	c.current.instructions[instructionIndex+1] = op.Code(operand)
}

// patchJump points the forward jump at pos to the next instruction.
func (c *Compiler) patchJump(pos int) error {
	delta, err := c.calculateDelta(pos)
	if err != nil {
		return err
	}
	c.changeOperand(pos, delta)
	return nil
}

func (c *Compiler) patchJumps(positions []int) error {
	for _, pos := range positions {
		if err := c.patchJump(pos); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) jumpBackward(target int) error {
	delta := c.position() - target
	if delta > math.MaxUint16 {
		return c.errorAt(c.node, "jump destination is too far away")
	}
	c.emit(op.JumpBackward, uint16(delta))
	return nil
}

func (c *Compiler) constant(value bytecode.Constant) uint16 {
	code := c.current
	if idx, ok := code.constIndex[value]; ok && value.Kind != bytecode.ConstFunction {
		return idx
	}
	if len(code.constants) >= math.MaxUint16 {
		c.fail("number of constants exceeded limits")
		return 0
	}
	idx := uint16(len(code.constants))
	code.constants = append(code.constants, value)
	code.constIndex[value] = idx
	return idx
}

func (c *Compiler) intern(s string) uint32 {
	id, err := c.strings.Intern(s)
	if err != nil {
		c.fail(err.Error())
		return 0
	}
	return id
}

// nameID returns the string id of a name used as an instruction operand.
func (c *Compiler) nameID(name string) uint16 {
	return uint16(c.intern(name))
}

func (c *Compiler) fileID(name string) int {
	if idx, ok := c.fileIndex[name]; ok {
		return idx
	}
	idx := len(c.files)
	c.files = append(c.files, name)
	c.fileIndex[name] = idx
	return idx
}

func (c *Compiler) emit(opcode op.Code, operands ...uint16) int {
	inst := makeInstruction(opcode, operands...)
	code := c.current
	pos := len(code.instructions)
	code.instructions = append(code.instructions, inst...)
	if c.flags.DebugInfo {
		loc := c.location()
		for range inst {
			code.locations = append(code.locations, loc)
		}
	}
	return pos
}

// emitLoad emits the appropriate load instruction based on the variable's scope.
func (c *Compiler) emitLoad(resolution *Resolution) {
	switch resolution.scope {
	case Global:
		c.emit(op.LoadGlobal, c.nameID(resolution.symbol.name))
	case Local:
		c.emit(op.LoadFast, resolution.symbol.Index())
	case Free:
		c.emit(op.LoadFree, uint16(resolution.freeIndex))
	}
}

// emitStore emits the appropriate store instruction based on the variable's scope.
func (c *Compiler) emitStore(resolution *Resolution) {
	switch resolution.scope {
	case Global:
		c.emit(op.StoreGlobal, c.nameID(resolution.symbol.name))
	case Local:
		c.emit(op.StoreFast, resolution.symbol.Index())
	case Free:
		c.emit(op.StoreFree, uint16(resolution.freeIndex))
	}
}

// loadName pushes the value of an identifier. Undeclared names are read
// from the global object.
func (c *Compiler) loadName(ident *ast.Ident) {
	resolution, ok := c.current.symbols.Resolve(ident.Name)
	if !ok {
		if ident.Name == "undefined" {
			c.emit(op.Undefined)
			return
		}
		c.emit(op.LoadGlobal, c.nameID(ident.Name))
		return
	}
	c.emitLoad(resolution)
}

// storeName pops the top of the stack into an identifier. Assignments to
// undeclared names create global properties.
func (c *Compiler) storeName(ident *ast.Ident) {
	resolution, ok := c.current.symbols.Resolve(ident.Name)
	if !ok {
		c.emit(op.StoreGlobal, c.nameID(ident.Name))
		return
	}
	c.emitStore(resolution)
}

// location returns the debug location of the current AST node.
func (c *Compiler) location() bytecode.SourceLocation {
	if c.node == nil {
		return bytecode.SourceLocation{}
	}
	if c.node == c.locNode {
		return c.loc
	}
	pos := c.node.Pos()
	loc := bytecode.SourceLocation{
		Line:   pos.LineNumber(),
		Column: pos.ColumnNumber(),
	}
	if c.sourceMap != nil {
		if orig, ok := c.sourceMap.Lookup(loc.Line, loc.Column); ok {
			loc = bytecode.SourceLocation{
				File:   c.fileID(orig.Source),
				Line:   orig.Line,
				Column: orig.Column,
			}
		}
	}
	c.locNode, c.loc = c.node, loc
	return loc
}

func (c *Compiler) errorAt(node ast.Node, msg string) error {
	var pos token.Position
	if node != nil {
		pos = node.Pos()
	}
	return &Error{Message: msg, Pos: pos}
}

// fail records an error that is difficult to propagate directly. It is
// returned once the current statement finishes.
func (c *Compiler) fail(msg string) {
	if c.failure == nil {
		c.failure = c.errorAt(c.node, msg)
	}
}

func makeInstruction(opcode op.Code, operands ...uint16) []op.Code {
	opInfo := op.GetInfo(opcode)
	if len(operands) != opInfo.OperandCount {
		panic(fmt.Sprintf("compile error: wrong operand count for %s", opInfo.Name))
	}
	instruction := make([]op.Code, 1+opInfo.OperandCount)
	instruction[0] = opcode
	for i, o := range operands {
		instruction[i+1] = op.Code(o)
	}
	return instruction
}
