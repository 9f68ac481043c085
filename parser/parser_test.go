package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/stretchr/testify/require"
)

func TestTokenLineCol(t *testing.T) {
	code := `
let x = 5;
let y = 10;
	`
	program, err := Parse(context.Background(), code)
	require.Nil(t, err)
	require.Len(t, program.Stmts, 2)

	stmt1 := program.Stmts[0].(*ast.VarDecl)
	stmt2 := program.Stmts[1].(*ast.VarDecl)

	require.Equal(t, 2, stmt1.Pos().LineNumber())
	require.Equal(t, 1, stmt1.Pos().ColumnNumber())
	require.Equal(t, 2, stmt1.End().LineNumber())
	require.Equal(t, 10, stmt1.End().ColumnNumber())

	require.Equal(t, 3, stmt2.Pos().LineNumber())
	require.Equal(t, 1, stmt2.Pos().ColumnNumber())
	require.Equal(t, 11, stmt2.End().ColumnNumber())
}

func TestStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"var x = 1; print(x);", "var x = 1\nprint(x)"},
		{"let a = 1, b", "let a = 1, b"},
		{"const c = 'k'", `const c = "k"`},
		{"a = b = c", "a = b = c"},
		{"x += 2", "x += 2"},
		{"if (a) b; else { c }", "if (a) b else { c; }"},
		{"if (a) { b }", "if (a) { b; }"},
		{"for (var i = 0; i < 3; i++) { continue }", "for (var i = 0; (i < 3); (i++)) { continue; }"},
		{"for (;;) break", "for (; ; ) break"},
		{"for (i = 0; ; ) {}", "for (i = 0; ; ) { }"},
		{"do x++; while (x < 3)", "do (x++) while ((x < 3))"},
		{"while (true) {}", "while (true) { }"},
		{"throw new Error('x')", `throw new Error("x")`},
		{"function add(a, b) { return a + b }", "function add(a, b) { return (a + b); }"},
		{";", ";"},
		{"{ let x = 1 }", "{ let x = 1; }"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program, err := Parse(context.Background(), tt.input)
			require.Nil(t, err)
			require.Equal(t, tt.expected, program.String())
		})
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"-a * b", "((-a) * b)"},
		{"!a && b || c", "(((!a) && b) || c)"},
		{"a ?? b || c", "(a ?? (b || c))"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"x || y ? 1 : 2", "((x || y) ? 1 : 2)"},
		{"x.y[z](1, 2)", "(x.y[z])(1, 2)"},
		{"new Foo.Bar(1).baz", "new Foo.Bar(1).baz"},
		{"new Foo", "new Foo()"},
		{"typeof x === 'undefined'", `((typeof x) === "undefined")`},
		{"i++ + ++j", "((i++) + (++j))"},
		{"-a++", "(-(a++))"},
		{"a << 1 | b & c ^ d", "((a << 1) | ((b & c) ^ d))"},
		{"a >>> 2 >= b >> 1", "((a >>> 2) >= (b >> 1))"},
		{"a == b != c === d", "(((a == b) != c) === d)"},
		{"~x % 3", "((~x) % 3)"},
		{"o.default = 1", "o.default = 1"},
		{"[1, 2, [3],]", "[1, 2, [3]]"},
		{"f()", "f()"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program, err := Parse(context.Background(), tt.input)
			require.Nil(t, err)
			require.Len(t, program.Stmts, 1)
			require.Equal(t, tt.expected, program.Stmts[0].String())
		})
	}
}

func TestObjectLiteral(t *testing.T) {
	program, err := Parse(context.Background(), "({a: 1, 'b c': [1, 2], 3: x, d, if: 0.5})")
	require.Nil(t, err)
	stmt := program.Stmts[0].(*ast.ExprStmt)
	obj, ok := stmt.X.(*ast.Object)
	require.True(t, ok)
	require.Len(t, obj.Props, 5)
	require.Equal(t, `{"a": 1, "b c": [1, 2], "3": x, "d": d, "if": 0.5}`, obj.String())
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"42", 42},
		{"0x1F", 31},
		{"0o17", 15},
		{"0b101", 5},
		{"1.5e3", 1500},
		{".5", 0.5},
		{"0xFFFFFFFFFFFFFFFFFF", 4.722366482869645e+21},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program, err := Parse(context.Background(), tt.input)
			require.Nil(t, err)
			num := program.Stmts[0].(*ast.ExprStmt).X.(*ast.Number)
			require.Equal(t, tt.expected, num.Value)
			require.Equal(t, tt.input, num.Literal)
		})
	}
}

func TestAutomaticSemicolonInsertion(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"var x = 1\nvar y = 2", []string{"var x = 1", "var y = 2"}},
		{"a\n++b", []string{"a", "(++b)"}},
		{"a\n(b)", []string{"a(b)"}},
		{"x = 1 +\n2", []string{"x = (1 + 2)"}},
		{"function f() { return\n1 }", []string{"function f() { return; 1; }"}},
		{"{ a } b", []string{"{ a; }", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program, err := Parse(context.Background(), tt.input)
			require.Nil(t, err)
			var got []string
			for _, stmt := range program.Stmts {
				got = append(got, stmt.String())
			}
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		line    int
		column  int
	}{
		{"var x = 1 + ;", "unexpected ';'", 1, 13},
		{"var x = 1 var y", "unexpected 'var' following statement", 1, 11},
		{"throw\nx", "illegal newline after throw", 1, 1},
		{"function () {}", "function declaration requires a name", 1, 1},
		{"class A {}", `unsupported keyword "class"`, 1, 1},
		{"var = 1", "unexpected '=' while parsing var statement (expected identifier)", 1, 5},
		{"{ a", "unterminated block (expected '}')", 1, 4},
		{"f(1, 2", "unexpected end of file while parsing call arguments (expected ')')", 1, 7},
		{"x.+", "unexpected '+' while parsing member expression (expected identifier)", 1, 3},
		{"a ? b", "unexpected end of file while parsing ternary expression (expected ':')", 1, 6},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(context.Background(), tt.input)
			require.NotNil(t, err)
			var perrs *Errors
			require.True(t, errors.As(err, &perrs))
			first := perrs.First()
			require.Equal(t, tt.message, first.Message())
			require.Equal(t, "parse error", first.Type())
			require.Equal(t, tt.line, first.StartPosition().LineNumber())
			require.Equal(t, tt.column, first.StartPosition().ColumnNumber())
		})
	}
}

func TestUnterminatedBlock(t *testing.T) {
	_, err := Parse(context.Background(), "if (x) {\n  y = 1\n")
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "unterminated block")
}

func TestMultipleErrors(t *testing.T) {
	input := "var = 1;\nvar y = ;\nlet ok = 1"
	program, err := Parse(context.Background(), input)
	require.NotNil(t, err)
	perrs := err.(*Errors)
	require.Equal(t, 2, perrs.Count())
	require.Len(t, program.Stmts, 1)
	require.Equal(t, "let ok = 1", program.Stmts[0].String())
	require.Contains(t, err.Error(), "(and 1 more errors)")
}

func TestRecoveryAcrossBlocks(t *testing.T) {
	input := "function f() {\n  var = 1;\n  return 2\n}\nvar after = 3"
	program, err := Parse(context.Background(), input)
	require.NotNil(t, err)
	require.Equal(t, 1, err.(*Errors).Count())
	require.Len(t, program.Stmts, 1)
	require.Equal(t, "var after = 3", program.Stmts[0].String())
}

func TestLexerErrors(t *testing.T) {
	_, err := Parse(context.Background(), "var s = 'abc", WithFilename("s.js"))
	require.NotNil(t, err)
	first := err.(*Errors).First()
	require.Equal(t, "syntax error", first.Type())
	require.Equal(t, "unterminated string literal", first.Message())
	require.Equal(t, "s.js", first.File())
	require.Equal(t, "syntax error: unterminated string literal", first.Error())
}

func TestFilenameInErrors(t *testing.T) {
	_, err := Parse(context.Background(), `@@@`, WithFilename("test.js"))
	require.NotNil(t, err)
	pe := err.(*Errors).First()
	require.Equal(t, "test.js", pe.File())

	program, err := Parse(context.Background(), "1", WithFilename("ok.js"))
	require.Nil(t, err)
	require.Equal(t, "ok.js", program.URL)
}

func TestFriendlyErrorMessage(t *testing.T) {
	_, err := Parse(context.Background(), "var x = 1 + ;", WithFilename("main.js"))
	require.NotNil(t, err)
	msg := err.(*Errors).FriendlyErrorMessage()
	require.Contains(t, msg, "location: main.js:1:13")
	require.Contains(t, msg, " 1 | var x = 1 + ;")
	require.Contains(t, msg, "|             ^")
}

func TestMaxDepth(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 600; i++ {
		sb.WriteString("(")
	}
	sb.WriteString("1")
	for i := 0; i < 600; i++ {
		sb.WriteString(")")
	}
	_, err := Parse(context.Background(), sb.String())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "maximum nesting depth exceeded")

	_, err = Parse(context.Background(), "((((1))))", WithMaxDepth(3))
	require.NotNil(t, err)

	_, err = Parse(context.Background(), "((((1))))", WithMaxDepth(10))
	require.Nil(t, err)
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, "var x = 1")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestEmptyProgram(t *testing.T) {
	program, err := Parse(context.Background(), "  // nothing here\n")
	require.Nil(t, err)
	require.Len(t, program.Stmts, 0)
}

func TestExpressionStartPositions(t *testing.T) {
	program, err := Parse(context.Background(), "x = a.b[c](d) + e++ ? 1 : 2")
	require.Nil(t, err)
	assign := program.Stmts[0].(*ast.ExprStmt).X.(*ast.Assign)
	ternary := assign.Value.(*ast.Ternary)
	infix := ternary.Cond.(*ast.Infix)
	call := infix.X.(*ast.Call)
	index := call.Fun.(*ast.Index)
	member := index.X.(*ast.Member)
	update := infix.Y.(*ast.Update)

	require.Equal(t, 1, assign.Pos().ColumnNumber())
	for _, node := range []ast.Node{ternary, infix, call, index, member} {
		require.Equal(t, 5, node.Pos().ColumnNumber(), node.String())
	}
	require.Equal(t, 17, update.Pos().ColumnNumber())
}

func TestLexerErrorReportedOnce(t *testing.T) {
	_, err := Parse(context.Background(), "var x = 1;\x00var y = 2;")
	require.NotNil(t, err)
	errs := err.(*Errors).Errors()
	require.Len(t, errs, 1)
	require.Equal(t, "unexpected character: '\\x00'", errs[0].Message())
	require.Equal(t, 11, errs[0].StartPosition().ColumnNumber())
}
