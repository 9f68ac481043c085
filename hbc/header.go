package hbc

import (
	"encoding/binary"
)

const (
	// Magic identifies a bytecode file. Its little-endian bytes spell
	// "SCRIPTBC".
	Magic uint64 = 0x4342545049524353

	// Version is the format version written into every file.
	Version uint32 = 1

	// Alignment is the byte alignment of every body section.
	Alignment = 4

	// HashSize is the size of the source hash and of the file footer.
	HashSize = 20

	// HeaderSize is the encoded size of a FileHeader.
	HeaderSize = 64

	// FunctionEntrySize is the encoded size of one function table entry.
	FunctionEntrySize = 32

	// StringEntrySize is the encoded size of one string table entry.
	StringEntrySize = 8

	// ConstantEntrySize is the encoded size of one constant pool entry.
	ConstantEntrySize = 12

	// LocationEntrySize is the encoded size of one debug location entry.
	LocationEntrySize = 16
)

// Header option bits.
const (
	OptionDebugInfo uint32 = 1 << 0
	OptionSourceMap uint32 = 1 << 1
)

// FileHeader is the fixed header at the start of every bytecode file. The
// field order and sizes are the on-disk layout.
type FileHeader struct {
	Magic             uint64
	Version           uint32
	Alignment         uint32
	SourceHash        [HashSize]byte
	FileLength        uint32
	GlobalCodeIndex   uint32
	FunctionCount     uint32
	StringCount       uint32
	StringStorageSize uint32
	DebugInfoOffset   uint32
	Options           uint32
}

// HasDebugInfo reports whether the file carries debug locations.
func (h *FileHeader) HasDebugInfo() bool {
	return h.Options&OptionDebugInfo != 0
}

// HasSourceMap reports whether the file embeds source-map sources.
func (h *FileHeader) HasSourceMap() bool {
	return h.Options&OptionSourceMap != 0
}

func (h *FileHeader) encode(b []byte) {
	le := binary.LittleEndian
	le.PutUint64(b[0:], h.Magic)
	le.PutUint32(b[8:], h.Version)
	le.PutUint32(b[12:], h.Alignment)
	copy(b[16:16+HashSize], h.SourceHash[:])
	le.PutUint32(b[36:], h.FileLength)
	le.PutUint32(b[40:], h.GlobalCodeIndex)
	le.PutUint32(b[44:], h.FunctionCount)
	le.PutUint32(b[48:], h.StringCount)
	le.PutUint32(b[52:], h.StringStorageSize)
	le.PutUint32(b[56:], h.DebugInfoOffset)
	le.PutUint32(b[60:], h.Options)
}

func (h *FileHeader) decode(b []byte) {
	le := binary.LittleEndian
	h.Magic = le.Uint64(b[0:])
	h.Version = le.Uint32(b[8:])
	h.Alignment = le.Uint32(b[12:])
	copy(h.SourceHash[:], b[16:16+HashSize])
	h.FileLength = le.Uint32(b[36:])
	h.GlobalCodeIndex = le.Uint32(b[40:])
	h.FunctionCount = le.Uint32(b[44:])
	h.StringCount = le.Uint32(b[48:])
	h.StringStorageSize = le.Uint32(b[52:])
	h.DebugInfoOffset = le.Uint32(b[56:])
	h.Options = le.Uint32(b[60:])
}

// FunctionEntry is one function table record.
type FunctionEntry struct {
	Offset          uint32 // file offset of the instruction stream
	WordCount       uint32
	ParamCount      uint32
	FrameSize       uint32
	NameID          uint32
	ConstantsOffset uint32 // file offset of the constant pool
	ConstantCount   uint32
	DebugIndex      uint32 // first entry in the location table
}

func (e *FunctionEntry) encode(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:], e.Offset)
	le.PutUint32(b[4:], e.WordCount)
	le.PutUint32(b[8:], e.ParamCount)
	le.PutUint32(b[12:], e.FrameSize)
	le.PutUint32(b[16:], e.NameID)
	le.PutUint32(b[20:], e.ConstantsOffset)
	le.PutUint32(b[24:], e.ConstantCount)
	le.PutUint32(b[28:], e.DebugIndex)
}

func (e *FunctionEntry) decode(b []byte) {
	le := binary.LittleEndian
	e.Offset = le.Uint32(b[0:])
	e.WordCount = le.Uint32(b[4:])
	e.ParamCount = le.Uint32(b[8:])
	e.FrameSize = le.Uint32(b[12:])
	e.NameID = le.Uint32(b[16:])
	e.ConstantsOffset = le.Uint32(b[20:])
	e.ConstantCount = le.Uint32(b[24:])
	e.DebugIndex = le.Uint32(b[28:])
}

func align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}
