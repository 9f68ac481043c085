package compiler

import (
	"fmt"
	"math"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/op"
)

var binaryOps = map[string]op.BinaryOpType{
	"+":   op.Add,
	"-":   op.Subtract,
	"*":   op.Multiply,
	"/":   op.Divide,
	"%":   op.Modulo,
	"**":  op.Power,
	"<<":  op.LShift,
	">>":  op.RShift,
	">>>": op.URShift,
	"&":   op.BitwiseAnd,
	"|":   op.BitwiseOr,
	"^":   op.Xor,
}

var compareOps = map[string]op.CompareOpType{
	"<":   op.LessThan,
	"<=":  op.LessThanOrEqual,
	"==":  op.Equal,
	"!=":  op.NotEqual,
	">":   op.GreaterThan,
	">=":  op.GreaterThanOrEqual,
	"===": op.StrictEqual,
	"!==": op.StrictNotEqual,
}

// compileExpr compiles an expression, leaving its value on the stack.
func (c *Compiler) compileExpr(node ast.Expr) error {
	return c.compileValue(node, true)
}

// compileValue compiles an expression. When keep is false the value is
// discarded; assignments and updates then skip producing it at all.
func (c *Compiler) compileValue(node ast.Expr, keep bool) error {
	prev := c.node
	c.node = node
	err := c.expr(node, keep)
	c.node = prev
	return err
}

func (c *Compiler) expr(node ast.Expr, keep bool) error {
	switch node := node.(type) {
	case *ast.Assign:
		return c.compileAssign(node, keep)
	case *ast.Update:
		return c.compileUpdate(node, keep)
	}
	if err := c.value(node); err != nil {
		return err
	}
	if !keep {
		c.emit(op.PopTop)
	}
	return nil
}

func (c *Compiler) value(node ast.Expr) error {
	switch node := node.(type) {
	case *ast.Number:
		c.emit(op.LoadConst, c.constant(bytecode.NumberConstant(node.Value)))
	case *ast.String:
		c.emit(op.LoadConst, c.constant(bytecode.StringConstant(c.intern(node.Value))))
	case *ast.Bool:
		if node.Value {
			c.emit(op.True)
		} else {
			c.emit(op.False)
		}
	case *ast.Null:
		c.emit(op.Null)
	case *ast.Ident:
		c.loadName(node)
	case *ast.Prefix:
		return c.compilePrefix(node)
	case *ast.Infix:
		return c.compileInfix(node)
	case *ast.Ternary:
		return c.compileTernary(node)
	case *ast.Member:
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		c.emit(op.LoadAttr, c.nameID(node.Name.Name))
	case *ast.Index:
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		if err := c.compileExpr(node.Index); err != nil {
			return err
		}
		c.emit(op.BinarySubscr)
	case *ast.Call:
		return c.compileCall(node)
	case *ast.New:
		return c.compileNew(node)
	case *ast.List:
		return c.compileList(node)
	case *ast.Object:
		return c.compileObject(node)
	case *ast.Func:
		return c.compileFuncExpr(node)
	default:
		return c.errorAt(node, fmt.Sprintf("unsupported expression %s", node))
	}
	return nil
}

func (c *Compiler) compilePrefix(node *ast.Prefix) error {
	if c.flags.Optimize {
		if v, ok := c.foldNumber(node); ok {
			c.emit(op.LoadConst, c.constant(bytecode.NumberConstant(v)))
			return nil
		}
	}
	if node.Op == "typeof" {
		if ident, ok := node.X.(*ast.Ident); ok {
			// typeof of an undeclared name must not throw
			if res, found := c.current.symbols.Resolve(ident.Name); !found || res.scope == Global {
				c.emit(op.TypeOfGlobal, c.nameID(ident.Name))
				return nil
			}
		}
	}
	if err := c.compileExpr(node.X); err != nil {
		return err
	}
	switch node.Op {
	case "!":
		c.emit(op.UnaryNot)
	case "-":
		c.emit(op.UnaryNegative)
	case "+":
		c.emit(op.UnaryPlus)
	case "~":
		c.emit(op.UnaryBitNot)
	case "typeof":
		c.emit(op.TypeOf)
	default:
		return c.errorAt(node, fmt.Sprintf("unknown operator %q", node.Op))
	}
	return nil
}

func (c *Compiler) compileInfix(node *ast.Infix) error {
	switch node.Op {
	case "&&":
		return c.compileShortCircuit(node, op.PopJumpForwardIfFalse)
	case "||":
		return c.compileShortCircuit(node, op.PopJumpForwardIfTrue)
	case "??":
		return c.compileShortCircuit(node, op.PopJumpForwardIfNotNil)
	}
	if c.flags.Optimize {
		if v, ok := c.foldNumber(node); ok {
			c.emit(op.LoadConst, c.constant(bytecode.NumberConstant(v)))
			return nil
		}
	}
	if err := c.compileExpr(node.X); err != nil {
		return err
	}
	if err := c.compileExpr(node.Y); err != nil {
		return err
	}
	if bop, ok := binaryOps[node.Op]; ok {
		c.emit(op.BinaryOp, uint16(bop))
		return nil
	}
	if cop, ok := compareOps[node.Op]; ok {
		c.emit(op.CompareOp, uint16(cop))
		return nil
	}
	return c.errorAt(node, fmt.Sprintf("unknown operator %q", node.Op))
}

// compileShortCircuit compiles "&&", "||" and "??". The left value is the
// result when the jump is taken; otherwise it is popped and the right
// operand is evaluated.
func (c *Compiler) compileShortCircuit(node *ast.Infix, jump op.Code) error {
	if err := c.compileExpr(node.X); err != nil {
		return err
	}
	c.emit(op.Copy, 0) // Duplicate LHS
	jumpPos := c.emit(jump, Placeholder)
	c.emit(op.PopTop)
	if err := c.compileExpr(node.Y); err != nil {
		return err
	}
	return c.patchJump(jumpPos)
}

func (c *Compiler) compileTernary(node *ast.Ternary) error {
	if err := c.compileExpr(node.Cond); err != nil {
		return err
	}
	jumpIfFalsePos := c.emit(op.PopJumpForwardIfFalse, Placeholder)
	if err := c.compileExpr(node.IfTrue); err != nil {
		return err
	}
	jumpForwardPos := c.emit(op.JumpForward, Placeholder)
	if err := c.patchJump(jumpIfFalsePos); err != nil {
		return err
	}
	if err := c.compileExpr(node.IfFalse); err != nil {
		return err
	}
	return c.patchJump(jumpForwardPos)
}

func (c *Compiler) compileArgs(node ast.Node, args []ast.Expr) error {
	if len(args) > MaxArgs {
		return c.errorAt(node, fmt.Sprintf("max args limit of %d exceeded (got %d)", MaxArgs, len(args)))
	}
	for _, arg := range args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	return nil
}

// compileCall compiles a call. Calls through a property access pass the
// object as the receiver.
func (c *Compiler) compileCall(node *ast.Call) error {
	switch fun := node.Fun.(type) {
	case *ast.Member:
		if err := c.compileExpr(fun.X); err != nil {
			return err
		}
		c.emit(op.LoadMethod, c.nameID(fun.Name.Name))
	case *ast.Index:
		if err := c.compileExpr(fun.X); err != nil {
			return err
		}
		c.emit(op.Copy, 0)
		if err := c.compileExpr(fun.Index); err != nil {
			return err
		}
		c.emit(op.BinarySubscr)
	default:
		if err := c.compileExpr(node.Fun); err != nil {
			return err
		}
		if err := c.compileArgs(node, node.Args); err != nil {
			return err
		}
		c.emit(op.Call, uint16(len(node.Args)))
		return nil
	}
	if err := c.compileArgs(node, node.Args); err != nil {
		return err
	}
	c.emit(op.CallMethod, uint16(len(node.Args)))
	return nil
}

func (c *Compiler) compileNew(node *ast.New) error {
	if err := c.compileExpr(node.Fun); err != nil {
		return err
	}
	if err := c.compileArgs(node, node.Args); err != nil {
		return err
	}
	c.emit(op.New, uint16(len(node.Args)))
	return nil
}

func (c *Compiler) compileList(node *ast.List) error {
	count := len(node.Items)
	if count > math.MaxUint16 {
		return c.errorAt(node, fmt.Sprintf("list literal exceeded max size of %d", math.MaxUint16))
	}
	for _, item := range node.Items {
		if err := c.compileExpr(item); err != nil {
			return err
		}
	}
	c.emit(op.BuildList, uint16(count))
	return nil
}

func (c *Compiler) compileObject(node *ast.Object) error {
	count := len(node.Props)
	if count > math.MaxUint16 {
		return c.errorAt(node, fmt.Sprintf("object literal exceeded max size of %d", math.MaxUint16))
	}
	for _, prop := range node.Props {
		c.emit(op.LoadConst, c.constant(bytecode.StringConstant(c.intern(prop.Key))))
		if err := c.compileExpr(prop.Value); err != nil {
			return err
		}
	}
	c.emit(op.BuildObject, uint16(count))
	return nil
}

// compileAssign compiles plain and compound assignment. Identifier stores
// pop the value, so it is copied first when the result is used. Property
// stores leave the assigned value on the stack.
func (c *Compiler) compileAssign(node *ast.Assign, keep bool) error {
	var bop op.BinaryOpType
	compound := node.Op != "="
	if compound {
		var ok bool
		if bop, ok = binaryOps[node.Op[:len(node.Op)-1]]; !ok {
			return c.errorAt(node, fmt.Sprintf("unknown operator %q", node.Op))
		}
	}
	switch target := node.Target.(type) {
	case *ast.Ident:
		if compound {
			c.loadName(target)
		}
		if err := c.compileExpr(node.Value); err != nil {
			return err
		}
		if compound {
			c.emit(op.BinaryOp, uint16(bop))
		}
		if keep {
			c.emit(op.Copy, 0)
		}
		c.storeName(target)
		return nil

	case *ast.Member:
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		name := c.nameID(target.Name.Name)
		if compound {
			c.emit(op.Copy, 0)
			c.emit(op.LoadAttr, name)
		}
		if err := c.compileExpr(node.Value); err != nil {
			return err
		}
		if compound {
			c.emit(op.BinaryOp, uint16(bop))
		}
		c.emit(op.StoreAttr, name)

	case *ast.Index:
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		if compound {
			c.emit(op.Copy, 1)
			c.emit(op.Copy, 1)
			c.emit(op.BinarySubscr)
		}
		if err := c.compileExpr(node.Value); err != nil {
			return err
		}
		if compound {
			c.emit(op.BinaryOp, uint16(bop))
		}
		c.emit(op.StoreSubscr)

	default:
		return c.errorAt(node, "invalid assignment target")
	}
	if !keep {
		c.emit(op.PopTop)
	}
	return nil
}

// compileUpdate compiles "++" and "--". The operand is converted to a
// number first; a used postfix update yields that converted old value.
func (c *Compiler) compileUpdate(node *ast.Update, keep bool) error {
	bop := op.Add
	if node.Op == "--" {
		bop = op.Subtract
	}
	one := c.constant(bytecode.NumberConstant(1))
	postfix := keep && !node.Prefix

	switch target := node.X.(type) {
	case *ast.Ident:
		c.loadName(target)
		c.emit(op.UnaryPlus)
		if postfix {
			c.emit(op.Copy, 0)
		}
		c.emit(op.LoadConst, one)
		c.emit(op.BinaryOp, uint16(bop))
		if keep && node.Prefix {
			c.emit(op.Copy, 0)
		}
		c.storeName(target)
		return nil

	case *ast.Member:
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		name := c.nameID(target.Name.Name)
		c.emit(op.Copy, 0)
		c.emit(op.LoadAttr, name)
		c.emit(op.UnaryPlus)
		if postfix {
			// [obj old] -> [old obj old]
			c.emit(op.Copy, 0)
			c.emit(op.Swap, 2)
			c.emit(op.Swap, 1)
		}
		c.emit(op.LoadConst, one)
		c.emit(op.BinaryOp, uint16(bop))
		c.emit(op.StoreAttr, name)

	case *ast.Index:
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		c.emit(op.Copy, 1)
		c.emit(op.Copy, 1)
		c.emit(op.BinarySubscr)
		c.emit(op.UnaryPlus)
		if postfix {
			// [obj key old] -> [old obj key old]
			c.emit(op.Copy, 0)
			c.emit(op.Swap, 3)
			c.emit(op.Swap, 2)
			c.emit(op.Swap, 1)
		}
		c.emit(op.LoadConst, one)
		c.emit(op.BinaryOp, uint16(bop))
		c.emit(op.StoreSubscr)

	default:
		return c.errorAt(node, "invalid update target")
	}
	// The store left the new value; drop it unless it is the result
	if !keep || postfix {
		c.emit(op.PopTop)
	}
	return nil
}

type foldResult struct {
	value float64
	ok    bool
}

// foldNumber evaluates arithmetic over number literals. Results for
// operator nodes are memoized so nested operands are visited once.
func (c *Compiler) foldNumber(node ast.Expr) (float64, bool) {
	switch node.(type) {
	case *ast.Prefix, *ast.Infix:
	default:
		return foldLeaf(node)
	}
	if r, ok := c.folded[node]; ok {
		return r.value, r.ok
	}
	v, ok := c.foldOperator(node)
	if c.folded == nil {
		c.folded = map[ast.Expr]foldResult{}
	}
	c.folded[node] = foldResult{value: v, ok: ok}
	return v, ok
}

func foldLeaf(node ast.Expr) (float64, bool) {
	if n, ok := node.(*ast.Number); ok {
		return n.Value, true
	}
	return 0, false
}

func (c *Compiler) foldOperator(node ast.Expr) (float64, bool) {
	switch node := node.(type) {
	case *ast.Prefix:
		v, ok := c.foldNumber(node.X)
		if !ok {
			return 0, false
		}
		switch node.Op {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	case *ast.Infix:
		x, ok := c.foldNumber(node.X)
		if !ok {
			return 0, false
		}
		y, ok := c.foldNumber(node.Y)
		if !ok {
			return 0, false
		}
		switch node.Op {
		case "+":
			return x + y, true
		case "-":
			return x - y, true
		case "*":
			return x * y, true
		case "/":
			return x / y, true
		case "%":
			return math.Mod(x, y), true
		}
	}
	return 0, false
}
