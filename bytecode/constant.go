package bytecode

import (
	"fmt"
	"math"
	"strconv"
)

// ConstantKind identifies the type of a constant pool entry. The values are
// part of the serialized format.
type ConstantKind uint32

const (
	ConstNumber   ConstantKind = 1 // payload holds IEEE-754 bits
	ConstString   ConstantKind = 2 // payload holds a string table id
	ConstFunction ConstantKind = 3 // payload holds a function index
)

func (k ConstantKind) String() string {
	switch k {
	case ConstNumber:
		return "number"
	case ConstString:
		return "string"
	case ConstFunction:
		return "function"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Constant is a constant pool entry. Its payload is interpreted according
// to its kind.
type Constant struct {
	Kind    ConstantKind
	Payload uint64
}

// NumberConstant returns a constant holding a double.
func NumberConstant(v float64) Constant {
	return Constant{Kind: ConstNumber, Payload: math.Float64bits(v)}
}

// StringConstant returns a constant referring to a string table entry.
func StringConstant(id uint32) Constant {
	return Constant{Kind: ConstString, Payload: uint64(id)}
}

// FunctionConstant returns a constant referring to a function by index.
func FunctionConstant(index int) Constant {
	return Constant{Kind: ConstFunction, Payload: uint64(index)}
}

// Number returns the value of a number constant.
func (c Constant) Number() float64 {
	return math.Float64frombits(c.Payload)
}

// Index returns the string id or function index of a reference constant.
func (c Constant) Index() int {
	return int(c.Payload)
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstNumber:
		return strconv.FormatFloat(c.Number(), 'g', -1, 64)
	case ConstString:
		return fmt.Sprintf("string#%d", c.Payload)
	case ConstFunction:
		return fmt.Sprintf("function#%d", c.Payload)
	default:
		return fmt.Sprintf("%s:%#x", c.Kind, c.Payload)
	}
}
