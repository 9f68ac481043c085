// Package dis disassembles compiled modules into readable instruction
// listings.
package dis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/op"
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operands   []op.Code
	Annotation string
	Constant   *bytecode.Constant
	Location   bytecode.SourceLocation
}

// Disassemble decodes the instruction stream of fn. The module resolves
// string ids and function references in operands.
func Disassemble(m *bytecode.Module, fn *bytecode.Function) ([]Instruction, error) {
	var instructions []Instruction
	count := fn.InstructionCount()
	for offset := 0; offset < count; {
		code := fn.InstructionAt(offset)
		info := op.GetInfo(code)
		if !info.Valid() {
			return nil, fmt.Errorf("invalid opcode %d at offset %d", code, offset)
		}
		if offset+info.Width() > count {
			return nil, fmt.Errorf("truncated %s instruction at offset %d", info.Name, offset)
		}
		operands := make([]op.Code, info.OperandCount)
		for i := range operands {
			operands[i] = fn.InstructionAt(offset + 1 + i)
		}
		instr := Instruction{
			Offset:   offset,
			Name:     info.Name,
			Opcode:   code,
			Operands: operands,
			Location: fn.LocationAt(offset),
		}
		if err := annotate(m, fn, &instr); err != nil {
			return nil, err
		}
		instructions = append(instructions, instr)
		offset += info.Width()
	}
	return instructions, nil
}

func annotate(m *bytecode.Module, fn *bytecode.Function, instr *Instruction) error {
	switch instr.Opcode {
	case op.LoadFast, op.StoreFast:
		index := int(instr.Operands[0])
		if index >= fn.FrameSize() {
			return fmt.Errorf("local variable index out of range: %d", index)
		}
		instr.Annotation = fmt.Sprintf("local_%d", index)
	case op.LoadGlobal, op.StoreGlobal, op.LoadAttr, op.StoreAttr, op.LoadMethod, op.TypeOfGlobal:
		id := int(instr.Operands[0])
		if id >= m.StringCount() {
			return fmt.Errorf("string id out of range: %d", id)
		}
		instr.Annotation = m.StringAt(id)
	case op.BinaryOp:
		instr.Annotation = op.BinaryOpType(instr.Operands[0]).String()
	case op.CompareOp:
		instr.Annotation = op.CompareOpType(instr.Operands[0]).String()
	case op.JumpForward, op.PopJumpForwardIfFalse, op.PopJumpForwardIfTrue,
		op.PopJumpForwardIfNil, op.PopJumpForwardIfNotNil:
		instr.Annotation = fmt.Sprintf("to %d", instr.Offset+int(instr.Operands[0]))
	case op.JumpBackward:
		instr.Annotation = fmt.Sprintf("to %d", instr.Offset-int(instr.Operands[0]))
	case op.LoadConst, op.LoadClosure:
		index := int(instr.Operands[0])
		if index >= fn.ConstantCount() {
			return fmt.Errorf("constant index out of range: %d", index)
		}
		c := fn.ConstantAt(index)
		instr.Constant = &c
		instr.Annotation = constantString(m, c)
	}
	return nil
}

func constantString(m *bytecode.Module, c bytecode.Constant) string {
	switch c.Kind {
	case bytecode.ConstString:
		s := m.StringAt(c.Index())
		if len(s) > 80 {
			s = s[:77] + "..."
		}
		return strconv.Quote(s)
	case bytecode.ConstFunction:
		name := "<anonymous>"
		if c.Index() < m.FunctionCount() {
			if n := m.FunctionAt(c.Index()).Name(); n != "" {
				name = n
			}
		}
		return "func:" + name
	default:
		return c.String()
	}
}

var (
	opcodeColor   = color.New(color.Bold)
	numberColor   = color.New(color.FgYellow)
	stringColor   = color.New(color.FgGreen)
	functionColor = color.New(color.FgMagenta)
	infoColor     = color.New(color.FgHiCyan)
)

// Print writes the instructions as a table. Colors follow color.NoColor.
func Print(instructions []Instruction, writer io.Writer) error {
	data := pterm.TableData{{"OFFSET", "OPCODE", "OPERANDS", "INFO"}}
	for _, instr := range instructions {
		data = append(data, []string{
			strconv.Itoa(instr.Offset),
			opcodeColor.Sprint(instr.Name),
			formatOperands(instr.Operands),
			formatInfo(instr),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = io.WriteString(writer, out+"\n")
	return err
}

func formatInfo(instr Instruction) string {
	if instr.Annotation == "" {
		return ""
	}
	if instr.Constant == nil {
		return infoColor.Sprint(instr.Annotation)
	}
	switch instr.Constant.Kind {
	case bytecode.ConstNumber:
		return numberColor.Sprint(instr.Annotation)
	case bytecode.ConstString:
		return stringColor.Sprint(instr.Annotation)
	default:
		return functionColor.Sprint(instr.Annotation)
	}
}

func formatOperands(ops []op.Code) string {
	var sb strings.Builder
	for i, operand := range ops {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(operand)))
	}
	return sb.String()
}

// Module disassembles and prints every function of m.
func Module(m *bytecode.Module, writer io.Writer) error {
	for i := 0; i < m.FunctionCount(); i++ {
		fn := m.FunctionAt(i)
		name := fn.Name()
		if i == m.GlobalCodeIndex() {
			name = "<global>"
		} else if name == "" {
			name = "<anonymous>"
		}
		if _, err := fmt.Fprintf(writer, "function %d %s (params=%d, frame=%d, constants=%d)\n",
			i, name, fn.ParamCount(), fn.FrameSize(), fn.ConstantCount()); err != nil {
			return err
		}
		instructions, err := Disassemble(m, fn)
		if err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
		if err := Print(instructions, writer); err != nil {
			return err
		}
	}
	return nil
}
