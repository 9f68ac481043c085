package scriptc

import (
	"errors"

	"github.com/bytedance/gopkg/lang/mcache"
)

// ErrorKind classifies a failed compilation.
type ErrorKind int

const (
	// NoError is the kind of a successful result.
	NoError ErrorKind = iota
	// InvalidInput means the request buffers are malformed, e.g. missing
	// their zero terminator. No stage ran.
	InvalidInput
	// SourceMapError means the supplied source map could not be parsed.
	// The front end did not run.
	SourceMapError
	// CompilationError means the script failed to parse, validate or
	// generate. No bytecode was produced.
	CompilationError
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "none"
	case InvalidInput:
		return "invalid input"
	case SourceMapError:
		return "source map error"
	case CompilationError:
		return "compilation error"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by errors.Is against an *Error of the same kind.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrSourceMap    = errors.New("source map error")
	ErrCompilation  = errors.New("compilation error")
)

// Error is the failure carried by a Result.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the sentinel for the error kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case InvalidInput:
		return target == ErrInvalidInput
	case SourceMapError:
		return target == ErrSourceMap
	case CompilationError:
		return target == ErrCompilation
	}
	return false
}

// Result holds either the serialized bytecode or the error of one
// compilation. Every compile call returns exactly one non-nil Result, owned
// by the caller until Free is called. All methods accept a nil receiver.
type Result struct {
	err    *Error
	data   []byte
	pooled bool
	freed  bool
}

func failure(kind ErrorKind, message string) *Result {
	return &Result{err: &Error{Kind: kind, Message: message}}
}

func success(data []byte, pooled bool) *Result {
	return &Result{data: data, pooled: pooled}
}

// Err returns the compilation error, or nil on success.
func (r *Result) Err() error {
	if r == nil || r.err == nil {
		return nil
	}
	return r.err
}

// ErrorMessage returns the error message and true if the compilation
// failed.
func (r *Result) ErrorMessage() (string, bool) {
	if r == nil || r.err == nil {
		return "", false
	}
	return r.err.Message, true
}

// Kind returns the error kind, NoError on success.
func (r *Result) Kind() ErrorKind {
	if r == nil || r.err == nil {
		return NoError
	}
	return r.err.Kind
}

// Bytecode returns the serialized bytecode, or nil if there is none. The
// slice is only valid until Free is called.
func (r *Result) Bytecode() []byte {
	if r == nil || r.freed {
		return nil
	}
	return r.data
}

// Size returns the length of the serialized bytecode, 0 if there is none.
func (r *Result) Size() int {
	return len(r.Bytecode())
}

// Free releases the bytecode buffer. Calling Free more than once is a
// no-op.
func (r *Result) Free() {
	if r == nil || r.freed {
		return
	}
	r.freed = true
	if r.pooled && r.data != nil {
		mcache.Free(r.data)
	}
	r.data = nil
}
