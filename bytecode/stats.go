package bytecode

// Stats contains statistics about a compiled module.
type Stats struct {
	// FunctionCount is the number of functions, including the global code.
	FunctionCount int

	// InstructionWords is the total number of instruction words across all
	// functions.
	InstructionWords int

	// ConstantCount is the total number of constant pool entries.
	ConstantCount int

	// StringCount is the number of entries in the string table.
	StringCount int

	// LocationCount is the number of recorded debug locations.
	LocationCount int
}
