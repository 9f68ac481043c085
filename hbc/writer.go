package hbc

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/deepnoodle-ai/scriptc/bytecode"
)

// Option configures serialization.
type Option func(*writeOptions)

type writeOptions struct {
	alloc func(size int) []byte
}

// WithAlloc sets the allocator for the output buffer. The returned slice
// must have at least size bytes; its contents need not be zeroed.
func WithAlloc(alloc func(size int) []byte) Option {
	return func(o *writeOptions) {
		o.alloc = alloc
	}
}

// funcLayout holds the section offsets of one function.
type funcLayout struct {
	code       int
	constants  int
	debugIndex int
	locations  []location
}

// location is a debug location change point: the location applies from
// word ip until the next change point.
type location struct {
	ip  int
	loc bytecode.SourceLocation
}

type layout struct {
	functions   []funcLayout
	strings     int
	storage     int
	storageSize int
	debug       int
	footer      int
	size        int
}

// Serialize encodes a module. The source hash is the SHA-1 digest of the
// source text the module was compiled from.
func Serialize(m *bytecode.Module, sourceHash [HashSize]byte, options ...Option) ([]byte, error) {
	opts := writeOptions{alloc: func(size int) []byte { return make([]byte, size) }}
	for _, opt := range options {
		opt(&opts)
	}
	if m.FunctionCount() == 0 {
		return nil, &FormatError{Message: "module has no functions"}
	}
	l, err := computeLayout(m)
	if err != nil {
		return nil, err
	}
	buf := opts.alloc(l.size)
	if len(buf) < l.size {
		return nil, fmt.Errorf("hbc: allocator returned %d bytes, need %d", len(buf), l.size)
	}
	buf = buf[:l.size]
	clear(buf)

	header := FileHeader{
		Magic:             Magic,
		Version:           Version,
		Alignment:         Alignment,
		SourceHash:        sourceHash,
		FileLength:        uint32(l.size),
		GlobalCodeIndex:   uint32(m.GlobalCodeIndex()),
		FunctionCount:     uint32(m.FunctionCount()),
		StringCount:       uint32(m.StringCount()),
		StringStorageSize: uint32(l.storageSize),
		DebugInfoOffset:   uint32(l.debug),
	}
	if m.HasDebugInfo() {
		header.Options |= OptionDebugInfo
	}
	if m.SourceMap() != nil {
		header.Options |= OptionSourceMap
	}
	header.encode(buf)

	w := &writer{buf: buf}
	writeFunctions(w, m, l)
	writeStrings(w, m, l)
	for i := 0; i < m.FunctionCount(); i++ {
		fn := m.FunctionAt(i)
		w.pos = l.functions[i].constants
		for j := 0; j < fn.ConstantCount(); j++ {
			c := fn.ConstantAt(j)
			w.u32(uint32(c.Kind))
			w.u64(c.Payload)
		}
		w.pos = l.functions[i].code
		for j := 0; j < fn.InstructionCount(); j++ {
			w.u16(uint16(fn.InstructionAt(j)))
		}
	}
	if l.debug != 0 {
		w.pos = l.debug
		writeDebugInfo(w, m, l)
	}

	sum := sha1.Sum(buf[:l.footer])
	copy(buf[l.footer:], sum[:])
	return buf, nil
}

// computeLayout assigns an offset to every section. The writer fills the
// buffer at these offsets, so the two must agree.
func computeLayout(m *bytecode.Module) (*layout, error) {
	l := &layout{functions: make([]funcLayout, m.FunctionCount())}
	pos := HeaderSize + m.FunctionCount()*FunctionEntrySize
	l.strings = pos
	pos += m.StringCount() * StringEntrySize
	l.storage = pos
	for i := 0; i < m.StringCount(); i++ {
		l.storageSize += len(m.StringAt(i))
	}
	pos = align(pos + l.storageSize)

	for i := range l.functions {
		l.functions[i].constants = pos
		pos += m.FunctionAt(i).ConstantCount() * ConstantEntrySize
	}
	for i := range l.functions {
		l.functions[i].code = pos
		pos = align(pos + m.FunctionAt(i).InstructionCount()*2)
	}

	if m.HasDebugInfo() || m.SourceMap() != nil {
		l.debug = pos
		pos += debugSize(m, l)
	}
	l.footer = pos
	l.size = pos + HashSize
	if uint64(l.size) > math.MaxUint32 {
		return nil, &FormatError{Message: fmt.Sprintf("file size %d exceeds format limit", l.size)}
	}
	return l, nil
}

// debugSize computes the change points of every function and returns the
// size of the debug section.
func debugSize(m *bytecode.Module, l *layout) int {
	size := 4
	for i := 0; i < m.FileCount(); i++ {
		size += stringSize(m.FileAt(i))
	}
	size += 4
	count := 0
	if m.HasDebugInfo() {
		for i := range l.functions {
			fn := m.FunctionAt(i)
			l.functions[i].debugIndex = count
			l.functions[i].locations = changePoints(fn)
			count += len(l.functions[i].locations)
		}
	}
	size += count * LocationEntrySize
	if sm := m.SourceMap(); sm != nil {
		size += stringSize(sm.File) + stringSize(sm.SourceRoot) + 4
		for i, src := range sm.Sources {
			size += stringSize(src) + stringSize(sourceContent(sm, i))
		}
	}
	return size
}

func changePoints(fn *bytecode.Function) []location {
	var out []location
	for ip := 0; ip < fn.LocationCount(); ip++ {
		loc := fn.LocationAt(ip)
		if len(out) > 0 && out[len(out)-1].loc == loc {
			continue
		}
		out = append(out, location{ip: ip, loc: loc})
	}
	return out
}

func sourceContent(sm *bytecode.SourceMapInfo, i int) string {
	if i < len(sm.SourcesContent) {
		return sm.SourcesContent[i]
	}
	return ""
}

// stringSize is the encoded size of a length-prefixed debug string.
func stringSize(s string) int {
	return 4 + align(len(s))
}

func writeFunctions(w *writer, m *bytecode.Module, l *layout) {
	for i := 0; i < m.FunctionCount(); i++ {
		fn := m.FunctionAt(i)
		fl := l.functions[i]
		entry := FunctionEntry{
			Offset:          uint32(fl.code),
			WordCount:       uint32(fn.InstructionCount()),
			ParamCount:      uint32(fn.ParamCount()),
			FrameSize:       uint32(fn.FrameSize()),
			NameID:          fn.NameID(),
			ConstantsOffset: uint32(fl.constants),
			ConstantCount:   uint32(fn.ConstantCount()),
			DebugIndex:      uint32(fl.debugIndex),
		}
		entry.encode(w.buf[HeaderSize+i*FunctionEntrySize:])
	}
}

func writeStrings(w *writer, m *bytecode.Module, l *layout) {
	w.pos = l.strings
	offset := 0
	for i := 0; i < m.StringCount(); i++ {
		s := m.StringAt(i)
		w.u32(uint32(offset))
		w.u32(uint32(len(s)))
		offset += len(s)
	}
	for i := 0; i < m.StringCount(); i++ {
		w.raw(m.StringAt(i))
	}
}

func writeDebugInfo(w *writer, m *bytecode.Module, l *layout) {
	w.u32(uint32(m.FileCount()))
	for i := 0; i < m.FileCount(); i++ {
		w.str(m.FileAt(i))
	}
	count := 0
	for _, fl := range l.functions {
		count += len(fl.locations)
	}
	w.u32(uint32(count))
	for _, fl := range l.functions {
		for _, cp := range fl.locations {
			w.u32(uint32(cp.ip))
			w.u32(uint32(cp.loc.File))
			w.u32(uint32(cp.loc.Line))
			w.u32(uint32(cp.loc.Column))
		}
	}
	if sm := m.SourceMap(); sm != nil {
		w.str(sm.File)
		w.str(sm.SourceRoot)
		w.u32(uint32(len(sm.Sources)))
		for i, src := range sm.Sources {
			w.str(src)
			w.str(sourceContent(sm, i))
		}
	}
}

type writer struct {
	buf []byte
	pos int
}

func (w *writer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}

func (w *writer) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}

func (w *writer) raw(s string) {
	w.pos += copy(w.buf[w.pos:], s)
}

// str writes a length-prefixed string padded to the alignment.
func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.raw(s)
	w.pos = align(w.pos)
}
