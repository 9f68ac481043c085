// Command libscriptc builds the compiler as a C library:
//
//	go build -buildmode=c-shared -o libscriptc.so ./cmd/libscriptc
//
// The generated header declares the scriptc_* functions. Results are
// returned as opaque handles that must be released with
// scriptc_result_free. Set SCRIPTC_LOG to a zerolog level (e.g. "debug")
// to log compilations to stderr.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef uintptr_t scriptc_result;
*/
import "C"

import (
	"context"
	"os"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/scriptc"
	"github.com/deepnoodle-ai/scriptc/hbc"
	"github.com/deepnoodle-ai/scriptc/internal/handle"
)

// result is the C-side copy of a compilation result. Both pointers are
// allocated with malloc and owned by the handle entry.
type result struct {
	err  *C.char
	data unsafe.Pointer
	size C.size_t
}

var (
	results = handle.New[*result]()

	compilerOnce sync.Once
	compiler     *scriptc.Compiler

	propertiesOnce sync.Once
	properties     *C.char
)

func getCompiler() *scriptc.Compiler {
	compilerOnce.Do(func() {
		var opts []scriptc.Option
		if level := os.Getenv("SCRIPTC_LOG"); level != "" {
			lvl, err := zerolog.ParseLevel(level)
			if err != nil {
				lvl = zerolog.DebugLevel
			}
			logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("lib", "scriptc").Logger()
			opts = append(opts, scriptc.WithLogger(logger))
		}
		compiler = scriptc.New(opts...)
	})
	return compiler
}

// borrow views C memory as a Go slice without copying. It is only valid
// for the duration of the call.
func borrow(p *C.char, n C.size_t) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

//export scriptc_compile_to_bytecode
func scriptc_compile_to_bytecode(source *C.char, sourceSize C.size_t, sourceURL *C.char, sourceMapData *C.char, sourceMapSize C.size_t) C.scriptc_result {
	req := scriptc.Request{
		Source:    borrow(source, sourceSize),
		SourceMap: borrow(sourceMapData, sourceMapSize),
	}
	if sourceURL != nil {
		req.SourceURL = C.GoString(sourceURL)
	}
	res := getCompiler().Compile(context.Background(), req)
	defer res.Free()

	out := &result{}
	if msg, failed := res.ErrorMessage(); failed {
		out.err = C.CString(msg)
	} else if data := res.Bytecode(); len(data) > 0 {
		out.data = C.malloc(C.size_t(len(data)))
		copy(unsafe.Slice((*byte)(out.data), len(data)), data)
		out.size = C.size_t(len(data))
	}
	return C.scriptc_result(results.Put(out))
}

//export scriptc_result_get_error
func scriptc_result_get_error(h C.scriptc_result) *C.char {
	if r, ok := results.Get(handle.Handle(h)); ok {
		return r.err
	}
	return nil
}

//export scriptc_result_get_bytecode_addr
func scriptc_result_get_bytecode_addr(h C.scriptc_result) *C.char {
	if r, ok := results.Get(handle.Handle(h)); ok {
		return (*C.char)(r.data)
	}
	return nil
}

//export scriptc_result_get_bytecode_size
func scriptc_result_get_bytecode_size(h C.scriptc_result) C.size_t {
	if r, ok := results.Get(handle.Handle(h)); ok {
		return r.size
	}
	return 0
}

//export scriptc_result_free
func scriptc_result_free(h C.scriptc_result) {
	r, ok := results.Delete(handle.Handle(h))
	if !ok {
		return
	}
	if r.err != nil {
		C.free(unsafe.Pointer(r.err))
	}
	if r.data != nil {
		C.free(r.data)
	}
}

// scriptc_get_properties returns the format descriptor JSON. The string is
// owned by the library and must not be freed.
//
//export scriptc_get_properties
func scriptc_get_properties() *C.char {
	propertiesOnce.Do(func() {
		properties = C.CString(hbc.Properties())
	})
	return properties
}

func main() {}
