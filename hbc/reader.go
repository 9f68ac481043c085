package hbc

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/op"
)

// FormatError reports a malformed bytecode file.
type FormatError struct {
	Offset  int
	Message string
}

func (e *FormatError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("invalid bytecode file: %s (offset %d)", e.Message, e.Offset)
	}
	return fmt.Sprintf("invalid bytecode file: %s", e.Message)
}

// File is a decoded bytecode file.
type File struct {
	Header    FileHeader
	Functions []FunctionEntry

	// Module is rebuilt from the file. Closure free-variable counts are not
	// stored and read back as zero.
	Module *bytecode.Module
}

// Read decodes and verifies a bytecode file. The magic, version, declared
// length and footer digest must all match.
func Read(data []byte) (*File, error) {
	if len(data) < HeaderSize+HashSize {
		return nil, &FormatError{Message: fmt.Sprintf("file too short (%d bytes)", len(data))}
	}
	f := &File{}
	h := &f.Header
	h.decode(data)
	if h.Magic != Magic {
		return nil, &FormatError{Message: fmt.Sprintf("bad magic %#x", h.Magic)}
	}
	if h.Version != Version {
		return nil, &FormatError{Offset: 8, Message: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	if h.Alignment != Alignment {
		return nil, &FormatError{Offset: 12, Message: fmt.Sprintf("unsupported alignment %d", h.Alignment)}
	}
	if int(h.FileLength) != len(data) {
		return nil, &FormatError{Offset: 36, Message: fmt.Sprintf("length %d does not match file size %d", h.FileLength, len(data))}
	}
	footer := len(data) - HashSize
	sum := sha1.Sum(data[:footer])
	if !bytes.Equal(sum[:], data[footer:]) {
		return nil, &FormatError{Offset: footer, Message: "footer digest mismatch"}
	}

	r := &reader{data: data[:footer]}
	f.Functions = make([]FunctionEntry, 0, r.count(h.FunctionCount, FunctionEntrySize))
	r.pos = HeaderSize
	for i := uint32(0); i < h.FunctionCount && r.err == nil; i++ {
		if b := r.next(FunctionEntrySize); b != nil {
			var e FunctionEntry
			e.decode(b)
			f.Functions = append(f.Functions, e)
		}
	}
	strings := r.strings(h.StringCount, h.StringStorageSize)

	var files []string
	var locations []location
	var sourceMap *bytecode.SourceMapInfo
	if h.DebugInfoOffset != 0 {
		r.pos = int(h.DebugInfoOffset)
		n := r.u32()
		for i := uint32(0); i < n && r.err == nil; i++ {
			files = append(files, r.str())
		}
		n = r.u32()
		locations = make([]location, 0, r.count(n, LocationEntrySize))
		for i := uint32(0); i < n && r.err == nil; i++ {
			ip := r.u32()
			loc := bytecode.SourceLocation{File: int(r.u32()), Line: int(r.u32()), Column: int(r.u32())}
			locations = append(locations, location{ip: int(ip), loc: loc})
		}
		if h.HasSourceMap() {
			sourceMap = &bytecode.SourceMapInfo{File: r.str(), SourceRoot: r.str()}
			n = r.u32()
			for i := uint32(0); i < n && r.err == nil; i++ {
				sourceMap.Sources = append(sourceMap.Sources, r.str())
				sourceMap.SourcesContent = append(sourceMap.SourcesContent, r.str())
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	functions := make([]*bytecode.Function, len(f.Functions))
	for i, e := range f.Functions {
		fn, err := r.function(e, strings, locations, f.Functions, i, h.HasDebugInfo())
		if err != nil {
			return nil, err
		}
		functions[i] = fn
	}
	f.Module = bytecode.NewModule(bytecode.ModuleParams{
		Functions: functions,
		Strings:   strings,
		Files:     files,
		SourceMap: sourceMap,
		DebugInfo: h.HasDebugInfo(),
	})
	return f, nil
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(msg string) {
	if r.err == nil {
		r.err = &FormatError{Offset: r.pos, Message: msg}
	}
}

// next returns the following n bytes, or nil past the end of the body.
func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos < 0 || r.pos+n > len(r.data) {
		r.fail("section extends past end of file")
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// count bounds a declared element count by the bytes left in the file.
func (r *reader) count(n uint32, size int) int {
	if limit := len(r.data) / size; int(n) > limit || int(n) < 0 {
		return limit
	}
	return int(n)
}

func (r *reader) u16() uint16 {
	if b := r.next(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.next(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.next(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) str() string {
	n := int(r.u32())
	b := r.next(n)
	if b == nil {
		return ""
	}
	r.pos = align(r.pos)
	return string(b)
}

func (r *reader) strings(count, storageSize uint32) []string {
	entries := r.next(r.count(count, StringEntrySize) * StringEntrySize)
	if r.err == nil && int(count)*StringEntrySize != len(entries) {
		r.fail("string table extends past end of file")
	}
	storage := r.next(int(storageSize))
	if r.err != nil {
		return nil
	}
	out := make([]string, count)
	for i := range out {
		off := binary.LittleEndian.Uint32(entries[i*StringEntrySize:])
		n := binary.LittleEndian.Uint32(entries[i*StringEntrySize+4:])
		if uint64(off)+uint64(n) > uint64(len(storage)) {
			r.fail(fmt.Sprintf("string %d out of range", i))
			return nil
		}
		out[i] = string(storage[off : off+n])
	}
	return out
}

func (r *reader) function(e FunctionEntry, strings []string, locations []location, entries []FunctionEntry, index int, debugInfo bool) (*bytecode.Function, error) {
	if int(e.NameID) >= len(strings) {
		return nil, &FormatError{Offset: HeaderSize + index*FunctionEntrySize, Message: fmt.Sprintf("function %d name id %d out of range", index, e.NameID)}
	}
	r.pos = int(e.ConstantsOffset)
	constants := make([]bytecode.Constant, 0, r.count(e.ConstantCount, ConstantEntrySize))
	for i := uint32(0); i < e.ConstantCount && r.err == nil; i++ {
		kind := bytecode.ConstantKind(r.u32())
		constants = append(constants, bytecode.Constant{Kind: kind, Payload: r.u64()})
	}
	r.pos = int(e.Offset)
	words := make([]op.Code, 0, r.count(e.WordCount, 2))
	for i := uint32(0); i < e.WordCount && r.err == nil; i++ {
		words = append(words, op.Code(r.u16()))
	}
	if r.err != nil {
		return nil, r.err
	}
	params := bytecode.FunctionParams{
		Name:         strings[e.NameID],
		NameID:       e.NameID,
		ParamCount:   int(e.ParamCount),
		FrameSize:    int(e.FrameSize),
		Instructions: words,
		Constants:    constants,
	}
	if debugInfo {
		end := len(locations)
		if index+1 < len(entries) {
			end = int(entries[index+1].DebugIndex)
		}
		start := int(e.DebugIndex)
		if start > end || end > len(locations) {
			return nil, &FormatError{Message: fmt.Sprintf("function %d debug entries out of range", index)}
		}
		params.Locations = expandLocations(locations[start:end], len(words))
	}
	return bytecode.NewFunction(params), nil
}

// expandLocations turns change points back into one location per word.
func expandLocations(points []location, words int) []bytecode.SourceLocation {
	if len(points) == 0 {
		return nil
	}
	out := make([]bytecode.SourceLocation, words)
	for i, p := range points {
		end := words
		if i+1 < len(points) {
			end = points[i+1].ip
		}
		for ip := p.ip; ip < end && ip < words; ip++ {
			out[ip] = p.loc
		}
	}
	return out
}
