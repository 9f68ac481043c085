package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(LoadClosure)
	require.Equal(t, "LOAD_CLOSURE", info.Name)
	require.Equal(t, 2, info.OperandCount)
	require.Equal(t, LoadClosure, info.Code)
	require.Equal(t, 3, info.Width())
	require.True(t, info.Valid())
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
	}{
		{Nop, "NOP", 0},
		{Call, "CALL", 1},
		{CallMethod, "CALL_METHOD", 1},
		{New, "NEW", 1},
		{ReturnValue, "RETURN_VALUE", 0},
		{JumpBackward, "JUMP_BACKWARD", 1},
		{JumpForward, "JUMP_FORWARD", 1},
		{PopJumpForwardIfFalse, "POP_JUMP_FORWARD_IF_FALSE", 1},
		{PopJumpForwardIfTrue, "POP_JUMP_FORWARD_IF_TRUE", 1},
		{PopJumpForwardIfNotNil, "POP_JUMP_FORWARD_IF_NOT_NIL", 1},
		{PopJumpForwardIfNil, "POP_JUMP_FORWARD_IF_NIL", 1},
		{LoadAttr, "LOAD_ATTR", 1},
		{LoadFast, "LOAD_FAST", 1},
		{LoadFree, "LOAD_FREE", 1},
		{LoadGlobal, "LOAD_GLOBAL", 1},
		{LoadConst, "LOAD_CONST", 1},
		{LoadMethod, "LOAD_METHOD", 1},
		{StoreAttr, "STORE_ATTR", 1},
		{StoreFast, "STORE_FAST", 1},
		{StoreFree, "STORE_FREE", 1},
		{StoreGlobal, "STORE_GLOBAL", 1},
		{BinaryOp, "BINARY_OP", 1},
		{CompareOp, "COMPARE_OP", 1},
		{UnaryNegative, "UNARY_NEGATIVE", 0},
		{UnaryNot, "UNARY_NOT", 0},
		{UnaryPlus, "UNARY_PLUS", 0},
		{UnaryBitNot, "UNARY_BIT_NOT", 0},
		{TypeOf, "TYPEOF", 0},
		{TypeOfGlobal, "TYPEOF_GLOBAL", 1},
		{BuildList, "BUILD_LIST", 1},
		{BuildObject, "BUILD_OBJECT", 1},
		{BinarySubscr, "BINARY_SUBSCR", 0},
		{StoreSubscr, "STORE_SUBSCR", 0},
		{Swap, "SWAP", 1},
		{Copy, "COPY", 1},
		{PopTop, "POP_TOP", 0},
		{Null, "NULL", 0},
		{Undefined, "UNDEFINED", 0},
		{False, "FALSE", 0},
		{True, "TRUE", 0},
		{LoadClosure, "LOAD_CLOSURE", 2},
		{MakeCell, "MAKE_CELL", 2},
		{Throw, "THROW", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.code, info.Code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
		})
	}
}

func TestGetInfoInvalid(t *testing.T) {
	info := GetInfo(Invalid)
	require.Equal(t, Code(0), info.Code)
	require.Equal(t, "", info.Name)
	require.False(t, info.Valid())

	require.False(t, GetInfo(Code(9999)).Valid())
}

func TestBinaryOpTypeString(t *testing.T) {
	tests := []struct {
		op   BinaryOpType
		want string
	}{
		{Add, "+"},
		{Subtract, "-"},
		{Multiply, "*"},
		{Divide, "/"},
		{Modulo, "%"},
		{Xor, "^"},
		{Power, "**"},
		{LShift, "<<"},
		{RShift, ">>"},
		{URShift, ">>>"},
		{BitwiseAnd, "&"},
		{BitwiseOr, "|"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.op.String())
		})
	}
	require.Equal(t, "", BinaryOpType(255).String())
}

func TestCompareOpTypeString(t *testing.T) {
	tests := []struct {
		op   CompareOpType
		want string
	}{
		{LessThan, "<"},
		{LessThanOrEqual, "<="},
		{Equal, "=="},
		{NotEqual, "!="},
		{GreaterThan, ">"},
		{GreaterThanOrEqual, ">="},
		{StrictEqual, "==="},
		{StrictNotEqual, "!=="},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.op.String())
		})
	}
	require.Equal(t, "", CompareOpType(255).String())
}

// Opcode values are part of the serialized format and must not change.
func TestOpcodeConstants(t *testing.T) {
	require.Equal(t, Code(0), Invalid)
	require.Equal(t, Code(1), Nop)
	require.Equal(t, Code(3), Call)
	require.Equal(t, Code(4), ReturnValue)
	require.Equal(t, Code(10), JumpBackward)
	require.Equal(t, Code(20), LoadAttr)
	require.Equal(t, Code(30), StoreAttr)
	require.Equal(t, Code(40), BinaryOp)
	require.Equal(t, Code(50), BuildList)
	require.Equal(t, Code(60), BinarySubscr)
	require.Equal(t, Code(70), Swap)
	require.Equal(t, Code(80), Null)
	require.Equal(t, Code(120), LoadClosure)
	require.Equal(t, Code(142), Throw)
}
