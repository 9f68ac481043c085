package scriptc

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/hbc"
	"github.com/deepnoodle-ai/scriptc/syntax"
)

func zt(s string) []byte {
	return append([]byte(s), 0)
}

const validMap = `{"version":3,"file":"out.js","sources":["a.ts"],"sourcesContent":["let x: number = 1"],"names":["x"],"mappings":"AAAA,IAAIA"}`

func TestCompileSuccess(t *testing.T) {
	res := Compile(Request{Source: zt("var x = 1; print(x);")})
	defer res.Free()

	require.Nil(t, res.Err())
	_, failed := res.ErrorMessage()
	require.False(t, failed)
	require.Equal(t, NoError, res.Kind())
	require.Greater(t, res.Size(), 0)

	data := res.Bytecode()
	d := hbc.Descriptor()
	require.Equal(t, d.MagicLow, binary.LittleEndian.Uint32(data[0:]))
	require.Equal(t, d.MagicHigh, binary.LittleEndian.Uint32(data[4:]))
	require.Equal(t, d.Version, binary.LittleEndian.Uint32(data[8:]))
	require.Equal(t, uint32(res.Size()), binary.LittleEndian.Uint32(data[d.LengthFieldOffset:]))
}

func TestCompileSyntaxError(t *testing.T) {
	res := Compile(Request{Source: zt("var x = 1 + ;"), SourceURL: "test.js"})
	defer res.Free()

	require.NotNil(t, res.Err())
	require.Equal(t, CompilationError, res.Kind())
	require.True(t, errors.Is(res.Err(), ErrCompilation))
	require.Equal(t, 0, res.Size())
	require.Nil(t, res.Bytecode())
	msg, ok := res.ErrorMessage()
	require.True(t, ok)
	require.True(t, strings.HasPrefix(msg, "test.js:1:"), msg)
	require.Contains(t, msg, ": error: ")
}

func TestCompileSemanticError(t *testing.T) {
	res := Compile(Request{Source: zt("const a = 1;\nbreak;\na = 2;")})
	defer res.Free()

	msg, ok := res.ErrorMessage()
	require.True(t, ok)
	require.Equal(t,
		"2:1: error: break statement outside of loop\n3:1: error: assignment to constant variable \"a\"",
		msg)
}

func TestCompileGeneratorError(t *testing.T) {
	src := "f(" + strings.Repeat("0,", 255) + "0)"
	res := Compile(Request{Source: zt(src), SourceURL: "big.js"})
	defer res.Free()

	msg, ok := res.ErrorMessage()
	require.True(t, ok)
	require.Equal(t, "big.js:1:1: error: max args limit of 255 exceeded (got 256)", msg)
	require.Equal(t, CompilationError, res.Kind())
}

func TestInvalidSource(t *testing.T) {
	tests := []struct {
		name   string
		source []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"unterminated", []byte("var x = 1;")},
		{"terminator not last", []byte("var x\x00 = 1;")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compile(Request{Source: tt.source})
			defer res.Free()
			require.Equal(t, InvalidInput, res.Kind())
			require.True(t, errors.Is(res.Err(), ErrInvalidInput))
			require.Contains(t, res.Err().Error(), "zero-terminated")
			require.Equal(t, "Input source must be zero-terminated", res.Err().Error())
			require.Equal(t, 0, res.Size())
			require.Nil(t, res.Bytecode())
		})
	}
}

func TestUnterminatedSourceMap(t *testing.T) {
	var called bool
	spy := syntax.ValidatorFunc(func(*ast.Program) []syntax.ValidationError {
		called = true
		return nil
	})
	c := New(WithValidators(spy))

	res := c.Compile(context.Background(), Request{
		Source:    zt("var x = 1;"),
		SourceMap: []byte(validMap),
	})
	defer res.Free()
	require.Equal(t, "Input sourcemap must be zero-terminated", res.Err().Error())
	require.True(t, errors.Is(res.Err(), ErrInvalidInput))
	require.Equal(t, 0, res.Size())
	require.False(t, called)

	// The same compiler runs the front end for a terminated map
	ok := c.Compile(context.Background(), Request{
		Source:    zt("var x = 1;"),
		SourceMap: zt(validMap),
	})
	defer ok.Free()
	require.Nil(t, ok.Err())
	require.True(t, called)
}

func TestMalformedSourceMap(t *testing.T) {
	res := Compile(Request{
		Source:    zt("var x = 1;"),
		SourceMap: zt("{ malformed json"),
	})
	defer res.Free()

	msg, ok := res.ErrorMessage()
	require.True(t, ok)
	require.True(t, strings.HasPrefix(msg, "Failed to parse source map:"), msg)
	require.Equal(t, SourceMapError, res.Kind())
	require.True(t, errors.Is(res.Err(), ErrSourceMap))
	require.False(t, errors.Is(res.Err(), ErrCompilation))
	require.Equal(t, 0, res.Size())
}

func TestInvalidSourceMapVersion(t *testing.T) {
	res := Compile(Request{
		Source:    zt("var x = 1;"),
		SourceMap: zt(`{"version":2,"sources":[],"mappings":""}`),
	})
	defer res.Free()
	msg, _ := res.ErrorMessage()
	require.True(t, strings.HasPrefix(msg, "Failed to parse source map:error: "), msg)
}

func TestAbsentSourceMap(t *testing.T) {
	for _, sm := range [][]byte{nil, {}, {0}, []byte("\x00ignored")} {
		res := Compile(Request{Source: zt("var x = 1;"), SourceMap: sm})
		require.Nil(t, res.Err(), "source map %q", sm)
		f, err := hbc.Read(res.Bytecode())
		require.Nil(t, err)
		require.False(t, f.Header.HasSourceMap())
		res.Free()
	}
}

func TestSourceMapDebugInfo(t *testing.T) {
	res := Compile(Request{
		Source:    zt("var x = 1;"),
		SourceURL: "out.js",
		SourceMap: zt(validMap),
	})
	defer res.Free()
	require.Nil(t, res.Err())

	f, err := hbc.Read(res.Bytecode())
	require.Nil(t, err)
	require.True(t, f.Header.HasDebugInfo())
	require.True(t, f.Header.HasSourceMap())
	require.Equal(t, sha1.Sum([]byte("var x = 1;")), f.Header.SourceHash)

	m := f.Module
	require.Equal(t, "out.js", m.FileAt(0))
	require.Equal(t, "a.ts", m.FileAt(1))
	require.Equal(t, []string{"let x: number = 1"}, m.SourceMap().SourcesContent)
	// The initializer at column 9 falls in the second mapping segment
	loc := m.FunctionAt(0).LocationAt(0)
	require.Equal(t, 1, loc.File)
	require.Equal(t, 1, loc.Line)
}

func TestDeterministic(t *testing.T) {
	req := Request{
		Source:    zt("function f(a) { return a * 2 }\nvar y = f(21);"),
		SourceURL: "det.js",
		SourceMap: zt(validMap),
	}
	a := Compile(req)
	defer a.Free()
	b := Compile(req)
	defer b.Free()
	require.Nil(t, a.Err())
	require.True(t, bytes.Equal(a.Bytecode(), b.Bytecode()))
}

func TestConcurrentCompiles(t *testing.T) {
	c := New(WithoutBufferPool())
	expected := make([][]byte, 8)
	for i := range expected {
		res := c.Compile(context.Background(), Request{Source: zt(fmt.Sprintf("var v%d = %d;", i, i))})
		require.Nil(t, res.Err())
		expected[i] = res.Bytecode()
	}

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Compile(Request{Source: zt(fmt.Sprintf("var v%d = %d;", i, i))})
		}(i)
	}
	wg.Wait()
	for i, res := range results {
		require.Equal(t, expected[i], res.Bytecode())
		res.Free()
	}
}

func TestResultFree(t *testing.T) {
	res := Compile(Request{Source: zt("1")})
	require.Greater(t, res.Size(), 0)
	res.Free()
	require.Nil(t, res.Bytecode())
	require.Equal(t, 0, res.Size())
	require.NotPanics(t, res.Free)

	failed := Compile(Request{Source: zt("(")})
	failed.Free()
	failed.Free()
	require.NotNil(t, failed.Err())
}

func TestNilResult(t *testing.T) {
	var res *Result
	require.Nil(t, res.Err())
	msg, ok := res.ErrorMessage()
	require.False(t, ok)
	require.Equal(t, "", msg)
	require.Nil(t, res.Bytecode())
	require.Equal(t, 0, res.Size())
	require.Equal(t, NoError, res.Kind())
	require.NotPanics(t, res.Free)
}

func TestPanicRecovered(t *testing.T) {
	boom := syntax.ValidatorFunc(func(*ast.Program) []syntax.ValidationError {
		panic("boom")
	})
	res := New(WithValidators(boom)).Compile(context.Background(), Request{Source: zt("1")})
	require.NotNil(t, res)
	require.Equal(t, CompilationError, res.Kind())
	require.Equal(t, "internal compiler error: boom", res.Err().Error())
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	c := New(WithLogger(logger))

	res := c.Compile(context.Background(), Request{Source: zt("var a = 1;"), SourceURL: "log.js"})
	res.Free()
	out := buf.String()
	require.Contains(t, out, `"compile_id"`)
	require.Contains(t, out, `"url":"log.js"`)
	require.Contains(t, out, "compilation succeeded")

	buf.Reset()
	res = c.Compile(context.Background(), Request{Source: []byte("x")})
	res.Free()
	require.Contains(t, buf.String(), `"kind":"invalid input"`)
}

func TestLongChainCompiles(t *testing.T) {
	src := "var x = 1" + strings.Repeat("+1", 50000) + ";"
	start := time.Now()
	res := Compile(Request{Source: zt(src), SourceURL: "chain.js"})
	defer res.Free()
	require.Less(t, time.Since(start), 5*time.Second)
	require.Nil(t, res.Err())

	f, err := hbc.Read(res.Bytecode())
	require.Nil(t, err)
	global := f.Module.FunctionAt(0)
	require.Equal(t, global.InstructionCount(), global.LocationCount())
}

func TestEmbeddedNulReportedOnce(t *testing.T) {
	res := Compile(Request{Source: zt("var x = 1;\x00var y = 2;")})
	defer res.Free()
	msg, ok := res.ErrorMessage()
	require.True(t, ok)
	require.Equal(t, CompilationError, res.Kind())
	require.Equal(t, "1:11: error: unexpected character: '\\x00'", msg)
}
