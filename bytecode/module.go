package bytecode

import "slices"

// SourceMapInfo is source-map metadata embedded in a module as debug
// information.
type SourceMapInfo struct {
	File           string
	SourceRoot     string
	Sources        []string
	SourcesContent []string // parallel to Sources; "" when absent
}

func (s *SourceMapInfo) clone() *SourceMapInfo {
	if s == nil {
		return nil
	}
	return &SourceMapInfo{
		File:           s.File,
		SourceRoot:     s.SourceRoot,
		Sources:        slices.Clone(s.Sources),
		SourcesContent: slices.Clone(s.SourcesContent),
	}
}

// Module is a compiled program. Function 0 is the global code. It is
// immutable after creation and safe for concurrent use.
type Module struct {
	functions []*Function
	strings   []string
	files     []string
	sourceMap *SourceMapInfo
	debugInfo bool
}

// ModuleParams contains parameters for creating a new Module.
type ModuleParams struct {
	Functions []*Function
	Strings   []string
	Files     []string // file table referenced by SourceLocation.File
	SourceMap *SourceMapInfo
	DebugInfo bool
}

// NewModule creates a new immutable Module from the given parameters.
// Input slices are copied to ensure immutability.
func NewModule(params ModuleParams) *Module {
	var functions []*Function
	if len(params.Functions) > 0 {
		functions = make([]*Function, len(params.Functions))
		copy(functions, params.Functions)
	}
	return &Module{
		functions: functions,
		strings:   slices.Clone(params.Strings),
		files:     slices.Clone(params.Files),
		sourceMap: params.SourceMap.clone(),
		debugInfo: params.DebugInfo,
	}
}

// FunctionCount returns the number of functions, including the global code.
func (m *Module) FunctionCount() int {
	return len(m.functions)
}

// FunctionAt returns the function at the given index.
func (m *Module) FunctionAt(index int) *Function {
	return m.functions[index]
}

// GlobalCodeIndex returns the index of the function holding the top-level
// code.
func (m *Module) GlobalCodeIndex() int {
	return 0
}

// StringCount returns the number of entries in the string table.
func (m *Module) StringCount() int {
	return len(m.strings)
}

// StringAt returns the string with the given id. Returns an empty string if
// the id is out of range.
func (m *Module) StringAt(id int) string {
	if id < 0 || id >= len(m.strings) {
		return ""
	}
	return m.strings[id]
}

// FileCount returns the number of entries in the file table.
func (m *Module) FileCount() int {
	return len(m.files)
}

// FileAt returns the file name at the given index. Returns an empty string
// if the index is out of range.
func (m *Module) FileAt(index int) string {
	if index < 0 || index >= len(m.files) {
		return ""
	}
	return m.files[index]
}

// HasDebugInfo returns true if functions carry source locations.
func (m *Module) HasDebugInfo() bool {
	return m.debugInfo
}

// SourceMap returns a copy of the embedded source-map metadata, or nil.
func (m *Module) SourceMap() *SourceMapInfo {
	return m.sourceMap.clone()
}

// FunctionNames returns the names of all named functions in index order.
func (m *Module) FunctionNames() []string {
	var names []string
	for _, fn := range m.functions {
		if name := fn.Name(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Stats returns statistics about this module.
func (m *Module) Stats() Stats {
	stats := Stats{
		FunctionCount: len(m.functions),
		StringCount:   len(m.strings),
	}
	for _, fn := range m.functions {
		stats.InstructionWords += fn.InstructionCount()
		stats.ConstantCount += fn.ConstantCount()
		stats.LocationCount += fn.LocationCount()
	}
	return stats
}
