// Package op defines the opcodes emitted by the compiler and stored in
// serialized bytecode. Each instruction is one opcode word followed by
// zero or more uint16 operand words.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Execution
	Nop         Code = 1
	Call        Code = 3
	ReturnValue Code = 4
	New         Code = 5 // Construct with argc arguments
	CallMethod  Code = 6 // Call with receiver below the callee

	// Jump
	JumpBackward           Code = 10
	JumpForward            Code = 11
	PopJumpForwardIfFalse  Code = 12
	PopJumpForwardIfTrue   Code = 13
	PopJumpForwardIfNotNil Code = 14 // Jump unless TOS is null or undefined
	PopJumpForwardIfNil    Code = 15

	// Load
	LoadAttr   Code = 20
	LoadFast   Code = 21
	LoadFree   Code = 22
	LoadGlobal Code = 23 // Load a property of the global object by name
	LoadConst  Code = 24
	LoadMethod Code = 25 // Push receiver and the named property

	// Store
	StoreAttr   Code = 30
	StoreFast   Code = 31
	StoreFree   Code = 32
	StoreGlobal Code = 33

	// Operations
	BinaryOp      Code = 40
	CompareOp     Code = 41
	UnaryNegative Code = 42
	UnaryNot      Code = 43
	UnaryPlus     Code = 44
	UnaryBitNot   Code = 45
	TypeOf        Code = 46
	TypeOfGlobal  Code = 47 // typeof of a global that may not exist

	// Build
	BuildList   Code = 50
	BuildObject Code = 51 // Operand is the number of key/value pairs

	// Containers
	BinarySubscr Code = 60
	StoreSubscr  Code = 61

	// Stack
	Swap   Code = 70
	Copy   Code = 71
	PopTop Code = 72

	// Push constants
	Null      Code = 80
	False     Code = 81
	True      Code = 82
	Undefined Code = 83

	// Closures
	LoadClosure Code = 120
	MakeCell    Code = 121

	// Exceptions
	Throw Code = 142
)

// BinaryOpType describes a type of binary operation, as in an operation that
// takes two operands. For example, addition, subtraction, multiplication, etc.
type BinaryOpType uint16

const (
	Add        BinaryOpType = 1
	Subtract   BinaryOpType = 2
	Multiply   BinaryOpType = 3
	Divide     BinaryOpType = 4
	Modulo     BinaryOpType = 5
	Xor        BinaryOpType = 8
	Power      BinaryOpType = 9
	LShift     BinaryOpType = 10
	RShift     BinaryOpType = 11
	BitwiseAnd BinaryOpType = 12
	BitwiseOr  BinaryOpType = 13
	URShift    BinaryOpType = 14
)

// String returns a string representation of the binary operation.
// For example "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Modulo:
		return "%"
	case Xor:
		return "^"
	case Power:
		return "**"
	case LShift:
		return "<<"
	case RShift:
		return ">>"
	case URShift:
		return ">>>"
	case BitwiseAnd:
		return "&"
	case BitwiseOr:
		return "|"
	default:
		return ""
	}
}

// CompareOpType describes a type of comparison operation. For example, less
// than, greater than, equal, etc.
type CompareOpType uint16

const (
	LessThan           CompareOpType = 1
	LessThanOrEqual    CompareOpType = 2
	Equal              CompareOpType = 3
	NotEqual           CompareOpType = 4
	GreaterThan        CompareOpType = 5
	GreaterThanOrEqual CompareOpType = 6
	StrictEqual        CompareOpType = 7
	StrictNotEqual     CompareOpType = 8
)

// String returns a string representation of the comparison operation.
// For example "<" for less than.
func (cop CompareOpType) String() string {
	switch cop {
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case StrictEqual:
		return "==="
	case StrictNotEqual:
		return "!=="
	default:
		return ""
	}
}

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

// Width returns the number of words the instruction occupies.
func (i Info) Width() int {
	return 1 + i.OperandCount
}

// Valid returns true if the opcode is defined.
func (i Info) Valid() bool {
	return i.Name != ""
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{BinaryOp, "BINARY_OP", 1},
		{BinarySubscr, "BINARY_SUBSCR", 0},
		{BuildList, "BUILD_LIST", 1},
		{BuildObject, "BUILD_OBJECT", 1},
		{Call, "CALL", 1},
		{CallMethod, "CALL_METHOD", 1},
		{CompareOp, "COMPARE_OP", 1},
		{Copy, "COPY", 1},
		{False, "FALSE", 0},
		{JumpBackward, "JUMP_BACKWARD", 1},
		{JumpForward, "JUMP_FORWARD", 1},
		{LoadAttr, "LOAD_ATTR", 1},
		{LoadClosure, "LOAD_CLOSURE", 2},
		{LoadConst, "LOAD_CONST", 1},
		{LoadFast, "LOAD_FAST", 1},
		{LoadFree, "LOAD_FREE", 1},
		{LoadGlobal, "LOAD_GLOBAL", 1},
		{LoadMethod, "LOAD_METHOD", 1},
		{MakeCell, "MAKE_CELL", 2},
		{New, "NEW", 1},
		{Nop, "NOP", 0},
		{Null, "NULL", 0},
		{PopJumpForwardIfFalse, "POP_JUMP_FORWARD_IF_FALSE", 1},
		{PopJumpForwardIfNil, "POP_JUMP_FORWARD_IF_NIL", 1},
		{PopJumpForwardIfNotNil, "POP_JUMP_FORWARD_IF_NOT_NIL", 1},
		{PopJumpForwardIfTrue, "POP_JUMP_FORWARD_IF_TRUE", 1},
		{PopTop, "POP_TOP", 0},
		{ReturnValue, "RETURN_VALUE", 0},
		{StoreAttr, "STORE_ATTR", 1},
		{StoreFast, "STORE_FAST", 1},
		{StoreFree, "STORE_FREE", 1},
		{StoreGlobal, "STORE_GLOBAL", 1},
		{StoreSubscr, "STORE_SUBSCR", 0},
		{Swap, "SWAP", 1},
		{Throw, "THROW", 0},
		{True, "TRUE", 0},
		{TypeOf, "TYPEOF", 0},
		{TypeOfGlobal, "TYPEOF_GLOBAL", 1},
		{UnaryBitNot, "UNARY_BIT_NOT", 0},
		{UnaryNegative, "UNARY_NEGATIVE", 0},
		{UnaryNot, "UNARY_NOT", 0},
		{UnaryPlus, "UNARY_PLUS", 0},
		{Undefined, "UNDEFINED", 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
	}
}

// GetInfo returns information about the given opcode. Opcodes outside the
// table yield a zero Info.
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{}
	}
	return infos[op]
}
