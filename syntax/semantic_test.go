package syntax

import (
	"context"
	"errors"
	"testing"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/internal/diag"
	"github.com/deepnoodle-ai/scriptc/parser"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := parser.Parse(context.Background(), input)
	require.Nil(t, err)
	return program
}

func messages(errs []ValidationError) []string {
	var out []string
	for _, err := range errs {
		out = append(out, err.Message)
	}
	return out
}

func TestValidPrograms(t *testing.T) {
	inputs := []string{
		"var x = 1; print(x);",
		"var a = 1; var a = 2",
		"let a = 1; { let a = 2 }",
		"const c = 1; function f() { let c = 2; c = 3; return c }",
		"for (let i = 0; i < 3; i++) { if (i) continue; break }",
		"for (let i = 0; ; ) {} for (let i = 0; ; ) {}",
		"while (x) { do { break } while (y) }",
		"function f(a) { var a = 1; return a }",
		"o.x = 1; o[k] += 2; o.n++",
		"function f() {} function f() {}",
		"var f = function g() { return g }",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			require.Empty(t, Validate(parse(t, input)))
		})
	}
}

func TestInvalidPrograms(t *testing.T) {
	tests := []struct {
		input   string
		message string
		line    int
		column  int
	}{
		{"let a = 1; let a = 2", `identifier "a" has already been declared`, 1, 16},
		{"let a = 1, a = 2", `identifier "a" has already been declared`, 1, 12},
		{"var a; let a", `identifier "a" has already been declared`, 1, 5},
		{"{ let a; var a }", `identifier "a" has already been declared`, 1, 14},
		{"function f() {} const f = 1", `identifier "f" has already been declared`, 1, 23},
		{"const c", `missing initializer in const declaration "c"`, 1, 7},
		{"const c = 1; c = 2", `assignment to constant variable "c"`, 1, 14},
		{"const c = 1; c++", `assignment to constant variable "c"`, 1, 14},
		{"const c = 1; function f() { c += 1 }", `assignment to constant variable "c"`, 1, 29},
		{"function f() { k = 1 } const k = 0", `assignment to constant variable "k"`, 1, 16},
		{"1 = 2", "invalid assignment target", 1, 1},
		{"f() = 2", "invalid assignment target", 1, 1},
		{"(a + b)++", "invalid update target", 1, 2},
		{"return 1", "return statement outside of function", 1, 1},
		{"break", "break statement outside of loop", 1, 1},
		{"if (x) { continue }", "continue statement outside of loop", 1, 10},
		{"while (x) { function f() { break } }", "break statement outside of loop", 1, 28},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			errs := Validate(parse(t, tt.input))
			require.Len(t, errs, 1, "got %v", messages(errs))
			require.Equal(t, tt.message, errs[0].Message)
			require.Equal(t, tt.line, errs[0].Position.LineNumber())
			require.Equal(t, tt.column, errs[0].Position.ColumnNumber())
		})
	}
}

func TestMultipleViolations(t *testing.T) {
	errs := Validate(parse(t, "break\nconst a\nreturn"))
	require.Equal(t, []string{
		"break statement outside of loop",
		`missing initializer in const declaration "a"`,
		"return statement outside of function",
	}, messages(errs))

	err := NewValidationErrors(errs)
	require.Contains(t, err.Error(), "3 validation errors:")
	var first *ValidationError
	require.True(t, errors.As(err, &first))
	require.Equal(t, "break statement outside of loop", first.Message)
}

func TestValidatorReuse(t *testing.T) {
	v := NewSemanticValidator()
	require.Len(t, v.Validate(parse(t, "break")), 1)
	require.Empty(t, v.Validate(parse(t, "while (1) break")))
}

func TestValidationErrorFormat(t *testing.T) {
	program, err := parser.Parse(context.Background(), "\n  return", parser.WithFilename("main.js"))
	require.Nil(t, err)
	errs := Validate(program)
	require.Len(t, errs, 1)
	require.Equal(t, "return statement outside of function at main.js:2:3", errs[0].Error())

	anon := ValidationError{Message: "bad", Position: errs[0].Position}
	anon.Position.File = ""
	require.Equal(t, "bad at line 2, column 3", anon.Error())

	require.Nil(t, NewValidationErrors(nil))
}

func TestCheckReportsToSink(t *testing.T) {
	program, err := parser.Parse(context.Background(), "const a\nbreak", parser.WithFilename("x.js"))
	require.Nil(t, err)

	custom := ValidatorFunc(func(p *ast.Program) []ValidationError {
		return []ValidationError{{Message: "custom", Node: p, Position: p.Pos()}}
	})
	sink := diag.NewSink("x.js")
	require.False(t, Check(program, sink, custom))
	require.Equal(t, 3, sink.ErrorCount())
	require.Equal(t,
		"x.js:1:7: error: missing initializer in const declaration \"a\"\n"+
			"x.js:2:1: error: break statement outside of loop\n"+
			"x.js:1:1: error: custom",
		sink.Summary())

	clean := diag.NewSink("")
	require.True(t, Check(parse(t, "let a = 1"), clean))
	require.False(t, clean.HasErrors())
}
