// Package bytecode provides the immutable in-memory representation of a
// compiled script module.
//
// This package defines the output of code generation: a flat list of
// functions (the global code first), a module-wide string table kept in
// first-use order, per-function constant pools and per-instruction debug
// locations. The types are built once by the compiler and consumed by the
// hbc serializer and the disassembler.
//
// # Key Types
//
//   - [Module]: the compiled program with its string and file tables
//   - [Function]: one compiled function body
//   - [Constant]: a constant pool entry (value type)
//   - [SourceLocation]: maps an instruction back to a source position (value type)
//
// # Immutability Guarantees
//
// All types in this package are immutable after construction:
//
//   - No mutation methods exist on Module or Function
//   - All fields are unexported
//   - Constructors copy input slices to prevent caller mutation
//
// Index-based access is used for all collections:
//
//	module.FunctionAt(0)
//	fn.InstructionAt(i)
//	fn.ConstantAt(j)
//
// # Usage
//
//	module, err := compiler.Generate(program)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Functions: %d\n", module.FunctionCount())
//	fmt.Printf("Strings: %d\n", module.StringCount())
package bytecode
