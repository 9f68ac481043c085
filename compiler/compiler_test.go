package compiler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/internal/diag"
	"github.com/deepnoodle-ai/scriptc/op"
	"github.com/deepnoodle-ai/scriptc/parser"
	"github.com/deepnoodle-ai/scriptc/sourcemap"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, input string, options ...Option) *bytecode.Module {
	t.Helper()
	program, err := parser.Parse(context.Background(), input, parser.WithFilename("main.js"))
	require.Nil(t, err)
	module, err := Generate(program, options...)
	require.Nil(t, err)
	return module
}

func instructions(fn *bytecode.Function) []op.Code {
	out := make([]op.Code, fn.InstructionCount())
	for i := range out {
		out[i] = fn.InstructionAt(i)
	}
	return out
}

func code(instrs ...[]op.Code) []op.Code {
	var out []op.Code
	for _, instr := range instrs {
		out = append(out, instr...)
	}
	return out
}

func ins(opcode op.Code, operands ...uint16) []op.Code {
	return makeInstruction(opcode, operands...)
}

var implicitReturn = code(ins(op.Undefined), ins(op.ReturnValue))

func TestGlobalCode(t *testing.T) {
	module := compileSource(t, "var x = 1 + 2;")
	require.Equal(t, 1, module.FunctionCount())
	global := module.FunctionAt(module.GlobalCodeIndex())
	require.Equal(t, GlobalName, global.Name())
	require.Equal(t, code(
		ins(op.LoadConst, 0),
		ins(op.LoadConst, 1),
		ins(op.BinaryOp, uint16(op.Add)),
		ins(op.StoreGlobal, 1),
		implicitReturn,
	), instructions(global))
	require.Equal(t, 2, global.ConstantCount())
	require.Equal(t, 2.0, global.ConstantAt(1).Number())
	require.Equal(t, "x", module.StringAt(1))
	require.Equal(t, 1, module.FileCount())
	require.Equal(t, "main.js", module.FileAt(0))
	require.False(t, module.HasDebugInfo())
	require.Equal(t, 0, global.LocationCount())
}

func TestConstantFolding(t *testing.T) {
	module := compileSource(t, "var x = 1 + 2 * -3;", WithFlags(Flags{Optimize: true}))
	global := module.FunctionAt(0)
	require.Equal(t, code(
		ins(op.LoadConst, 0),
		ins(op.StoreGlobal, 1),
		implicitReturn,
	), instructions(global))
	require.Equal(t, -5.0, global.ConstantAt(0).Number())
}

func TestConstantsAreShared(t *testing.T) {
	module := compileSource(t, `a = "s"; b = "s"; c = 1; d = 1`)
	global := module.FunctionAt(0)
	require.Equal(t, 2, global.ConstantCount())
}

func TestFunctionDeclaration(t *testing.T) {
	module := compileSource(t, "add(1, 2);\nfunction add(a, b) { return a + b }")
	require.Equal(t, 2, module.FunctionCount())

	add := module.FunctionAt(1)
	require.Equal(t, "add", add.Name())
	require.Equal(t, 2, add.ParamCount())
	require.Equal(t, 2, add.FrameSize())
	require.Equal(t, code(
		ins(op.LoadFast, 0),
		ins(op.LoadFast, 1),
		ins(op.BinaryOp, uint16(op.Add)),
		ins(op.ReturnValue),
	), instructions(add))

	// Declarations are hoisted ahead of the statements that use them
	global := module.FunctionAt(0)
	require.Equal(t, code(
		ins(op.LoadConst, 0),
		ins(op.StoreGlobal, 1),
		ins(op.LoadGlobal, 1),
		ins(op.LoadConst, 1),
		ins(op.LoadConst, 2),
		ins(op.Call, 2),
		ins(op.PopTop),
		implicitReturn,
	), instructions(global))
	require.Equal(t, bytecode.FunctionConstant(1), global.ConstantAt(0))
	require.Equal(t, uint32(1), add.NameID())
}

func TestClosure(t *testing.T) {
	module := compileSource(t, "function outer() { let x = 1; return function() { return x } }")
	require.Equal(t, 3, module.FunctionCount())

	outer := module.FunctionAt(1)
	require.Equal(t, code(
		ins(op.LoadConst, 0),
		ins(op.StoreFast, 0),
		ins(op.MakeCell, 0, 0),
		ins(op.LoadClosure, 1, 1),
		ins(op.ReturnValue),
	), instructions(outer))
	require.Equal(t, bytecode.FunctionConstant(2), outer.ConstantAt(1))

	inner := module.FunctionAt(2)
	require.Equal(t, "", inner.Name())
	require.Equal(t, 1, inner.FreeCount())
	require.Equal(t, code(
		ins(op.LoadFree, 0),
		ins(op.ReturnValue),
	), instructions(inner))
}

func TestNamedFunctionExpression(t *testing.T) {
	module := compileSource(t, "var f = function g() { return g }")
	global := module.FunctionAt(0)
	require.Equal(t, 1, global.FrameSize())
	require.Equal(t, code(
		ins(op.MakeCell, 0, 0),
		ins(op.LoadClosure, 0, 1),
		ins(op.Copy, 0),
		ins(op.StoreFast, 0),
		ins(op.StoreGlobal, 2),
		implicitReturn,
	), instructions(global))
	require.Equal(t, code(ins(op.LoadFree, 0), ins(op.ReturnValue)), instructions(module.FunctionAt(1)))
}

func TestWhileBreakContinue(t *testing.T) {
	module := compileSource(t, "while (x) { if (y) break; else continue }")
	require.Equal(t, code(
		ins(op.LoadGlobal, 1),
		ins(op.PopJumpForwardIfFalse, 14),
		ins(op.LoadGlobal, 2),
		ins(op.PopJumpForwardIfFalse, 6),
		ins(op.JumpForward, 8),
		ins(op.JumpForward, 4),
		ins(op.JumpBackward, 12),
		ins(op.JumpBackward, 14),
		implicitReturn,
	), instructions(module.FunctionAt(0)))
}

func TestForLoop(t *testing.T) {
	module := compileSource(t, "for (let i = 0; i < 3; i++) {}")
	global := module.FunctionAt(0)
	require.Equal(t, 1, global.FrameSize())
	require.Equal(t, code(
		ins(op.LoadConst, 0),
		ins(op.StoreFast, 0),
		ins(op.LoadFast, 0),
		ins(op.LoadConst, 1),
		ins(op.CompareOp, uint16(op.LessThan)),
		ins(op.PopJumpForwardIfFalse, 13),
		ins(op.LoadFast, 0),
		ins(op.UnaryPlus),
		ins(op.LoadConst, 2),
		ins(op.BinaryOp, uint16(op.Add)),
		ins(op.StoreFast, 0),
		ins(op.JumpBackward, 17),
		implicitReturn,
	), instructions(global))
}

func TestDoWhileContinue(t *testing.T) {
	module := compileSource(t, "do { continue } while (x)")
	require.Equal(t, code(
		ins(op.JumpForward, 2),
		ins(op.LoadGlobal, 1),
		ins(op.PopJumpForwardIfFalse, 4),
		ins(op.JumpBackward, 6),
		implicitReturn,
	), instructions(module.FunctionAt(0)))
}

func TestPostfixValue(t *testing.T) {
	module := compileSource(t, "y = x++")
	require.Equal(t, code(
		ins(op.LoadGlobal, 1),
		ins(op.UnaryPlus),
		ins(op.Copy, 0),
		ins(op.LoadConst, 0),
		ins(op.BinaryOp, uint16(op.Add)),
		ins(op.StoreGlobal, 1),
		ins(op.StoreGlobal, 2),
		implicitReturn,
	), instructions(module.FunctionAt(0)))
}

func TestPropertyAssignment(t *testing.T) {
	module := compileSource(t, "o.n += 1; o[k] = 2")
	require.Equal(t, code(
		ins(op.LoadGlobal, 1),
		ins(op.Copy, 0),
		ins(op.LoadAttr, 2),
		ins(op.LoadConst, 0),
		ins(op.BinaryOp, uint16(op.Add)),
		ins(op.StoreAttr, 2),
		ins(op.PopTop),
		ins(op.LoadGlobal, 1),
		ins(op.LoadGlobal, 3),
		ins(op.LoadConst, 1),
		ins(op.StoreSubscr),
		ins(op.PopTop),
		implicitReturn,
	), instructions(module.FunctionAt(0)))
}

func TestMethodCallAndOperators(t *testing.T) {
	module := compileSource(t, "o.f(1); a && b; typeof z; new C(); [1, {k: 2}]")
	require.Equal(t, code(
		ins(op.LoadGlobal, 1),
		ins(op.LoadMethod, 2),
		ins(op.LoadConst, 0),
		ins(op.CallMethod, 1),
		ins(op.PopTop),
		ins(op.LoadGlobal, 3),
		ins(op.Copy, 0),
		ins(op.PopJumpForwardIfFalse, 5),
		ins(op.PopTop),
		ins(op.LoadGlobal, 4),
		ins(op.PopTop),
		ins(op.TypeOfGlobal, 5),
		ins(op.PopTop),
		ins(op.LoadGlobal, 6),
		ins(op.New, 0),
		ins(op.PopTop),
		ins(op.LoadConst, 0),
		ins(op.LoadConst, 1),
		ins(op.LoadConst, 2),
		ins(op.BuildObject, 1),
		ins(op.BuildList, 2),
		ins(op.PopTop),
		implicitReturn,
	), instructions(module.FunctionAt(0)))
	require.Equal(t, "k", module.StringAt(7))
}

func TestDebugLocations(t *testing.T) {
	module := compileSource(t, "x = 1;\ny = 2", WithFlags(Flags{DebugInfo: true}))
	require.True(t, module.HasDebugInfo())
	global := module.FunctionAt(0)
	require.Equal(t, global.InstructionCount(), global.LocationCount())
	require.Equal(t, bytecode.SourceLocation{File: 0, Line: 1, Column: 5}, global.LocationAt(0))
	require.Equal(t, bytecode.SourceLocation{File: 0, Line: 1, Column: 1}, global.LocationAt(2))
	require.Equal(t, bytecode.SourceLocation{File: 0, Line: 2, Column: 5}, global.LocationAt(4))
}

func TestSourceMapLocations(t *testing.T) {
	sm, err := sourcemap.Parse([]byte(`{"version":3,"sources":["a.ts"],"sourcesContent":["x"],"mappings":"AASE"}`), diag.NewSink(""))
	require.Nil(t, err)
	module := compileSource(t, "x = 1", WithFlags(Flags{DebugInfo: true}), WithSourceMap(sm))
	require.Equal(t, 2, module.FileCount())
	require.Equal(t, "main.js", module.FileAt(0))
	require.Equal(t, "a.ts", module.FileAt(1))
	global := module.FunctionAt(0)
	require.Equal(t, bytecode.SourceLocation{File: 1, Line: 10, Column: 3}, global.LocationAt(0))

	info := module.SourceMap()
	require.NotNil(t, info)
	require.Equal(t, []string{"a.ts"}, info.Sources)
	require.Equal(t, []string{"x"}, info.SourcesContent)
}

func TestFilenameOption(t *testing.T) {
	module := compileSource(t, "1", WithFilename("shown.js"))
	require.Equal(t, "shown.js", module.FileAt(0))
}

func TestTooManyArgs(t *testing.T) {
	program, err := parser.Parse(context.Background(), "f("+strings.Repeat("1,", MaxArgs)+"1)")
	require.Nil(t, err)
	_, err = Generate(program)
	require.NotNil(t, err)
	var compileErr *Error
	require.True(t, errors.As(err, &compileErr))
	require.Equal(t, "max args limit of 255 exceeded (got 256)", compileErr.Message)
	require.Equal(t, 1, compileErr.Pos.LineNumber())
	require.Equal(t, "compile error: max args limit of 255 exceeded (got 256)\n\nlocation: unknown:1:1", err.Error())
}

func TestCompilerSingleUse(t *testing.T) {
	program, err := parser.Parse(context.Background(), "1")
	require.Nil(t, err)
	c := New()
	_, err = c.Compile(program)
	require.Nil(t, err)
	_, err = c.Compile(program)
	require.NotNil(t, err)
}

func TestDeterministic(t *testing.T) {
	input := `
var total = 0;
function sum(list) {
	let s = 0;
	for (let i = 0; i < list.length; i++) { s += list[i] }
	return s
}
const obj = {a: 1, b: "two", c: [3]};
total = sum([1, 2, 3]) + obj.a;
`
	a := compileSource(t, input, WithFlags(Flags{DebugInfo: true}))
	b := compileSource(t, input, WithFlags(Flags{DebugInfo: true}))
	require.Equal(t, a, b)
	require.Equal(t, []string{"global", "sum"}, a.FunctionNames())
}

func TestLongChains(t *testing.T) {
	const n = 50000
	tests := []struct {
		name  string
		input string
		flags Flags
	}{
		{"addition", "var x = 1" + strings.Repeat("+1", n), Flags{DebugInfo: true}},
		{"folded addition", "var x = 1" + strings.Repeat("+1", n), Flags{DebugInfo: true, Optimize: true}},
		{"partly folded addition", "var x = y" + strings.Repeat("+1", n), Flags{DebugInfo: true, Optimize: true}},
		{"members", "var x = a" + strings.Repeat(".b", n), Flags{DebugInfo: true}},
		{"calls", "var x = f" + strings.Repeat("()", n), Flags{DebugInfo: true}},
		{"indexes", "var x = a" + strings.Repeat("[0]", n), Flags{DebugInfo: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			module := compileSource(t, tt.input, WithFlags(tt.flags))
			require.Less(t, time.Since(start), 5*time.Second)
			global := module.FunctionAt(0)
			require.Equal(t, global.InstructionCount(), global.LocationCount())
		})
	}

	module := compileSource(t, "var x = 1"+strings.Repeat("+1", n), WithFlags(Flags{Optimize: true}))
	require.Equal(t, float64(n+1), module.FunctionAt(0).ConstantAt(0).Number())
}
