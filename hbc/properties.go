package hbc

import (
	"encoding/json"
	"math"
	"sync"
	"sync/atomic"
	"unsafe"
)

// FormatDescriptor describes the constants a loader needs to recognize a
// bytecode file.
type FormatDescriptor struct {
	Alignment         uint32
	HeaderSize        uint32
	Version           uint32
	MagicLow          uint32
	MagicHigh         uint32
	LengthFieldOffset uint32
}

// properties is the JSON form of a FormatDescriptor. Field order is the
// order of the rendered document.
type properties struct {
	Alignment    uint32    `json:"BYTECODE_ALIGNMENT"`
	HeaderSize   uint32    `json:"HEADER_SIZE"`
	Version      uint32    `json:"VERSION"`
	Magic        [2]uint32 `json:"MAGIC"`
	LengthOffset uint32    `json:"LENGTH_OFFSET"`
}

var (
	descriptorOnce sync.Once
	descriptor     FormatDescriptor
	propertiesJSON string
	buildCount     atomic.Int32
)

func buildDescriptor() {
	buildCount.Add(1)
	var h FileHeader
	descriptor = FormatDescriptor{
		Alignment:         Alignment,
		HeaderSize:        uint32(unsafe.Sizeof(h)),
		Version:           Version,
		MagicLow:          uint32(Magic & math.MaxUint32),
		MagicHigh:         uint32(Magic >> 32),
		LengthFieldOffset: uint32(unsafe.Offsetof(h.FileLength)),
	}
	data, err := json.Marshal(properties{
		Alignment:    descriptor.Alignment,
		HeaderSize:   descriptor.HeaderSize,
		Version:      descriptor.Version,
		Magic:        [2]uint32{descriptor.MagicLow, descriptor.MagicHigh},
		LengthOffset: descriptor.LengthFieldOffset,
	})
	if err != nil {
		panic(err)
	}
	propertiesJSON = string(data)
}

// Descriptor returns the format descriptor. It is built on first use and
// shared for the life of the process.
func Descriptor() FormatDescriptor {
	descriptorOnce.Do(buildDescriptor)
	return descriptor
}

// Properties returns the format descriptor as a JSON object, e.g.
//
//	{"BYTECODE_ALIGNMENT":4,"HEADER_SIZE":64,"VERSION":1,"MAGIC":[1230127955,1128420432],"LENGTH_OFFSET":36}
//
// The string is built once; every call returns the same value.
func Properties() string {
	descriptorOnce.Do(buildDescriptor)
	return propertiesJSON
}
