package bytecode

import (
	"errors"
	"math"
	"slices"
)

// ErrTooManyStrings is returned when a module needs more strings than an
// operand can address.
var ErrTooManyStrings = errors.New("too many strings")

// StringTable interns strings in first-use order. The resulting order is
// deterministic for a given sequence of Intern calls.
type StringTable struct {
	ids     map[string]uint32
	strings []string
}

// NewStringTable returns an empty table.
func NewStringTable() *StringTable {
	return &StringTable{ids: map[string]uint32{}}
}

// Intern returns the id of s, adding it if not yet present.
func (t *StringTable) Intern(s string) (uint32, error) {
	if id, ok := t.ids[s]; ok {
		return id, nil
	}
	if len(t.strings) >= math.MaxUint16 {
		return 0, ErrTooManyStrings
	}
	id := uint32(len(t.strings))
	t.ids[s] = id
	t.strings = append(t.strings, s)
	return id, nil
}

// Lookup returns the id of s if it has been interned.
func (t *StringTable) Lookup(s string) (uint32, bool) {
	id, ok := t.ids[s]
	return id, ok
}

// Len returns the number of interned strings.
func (t *StringTable) Len() int {
	return len(t.strings)
}

// Strings returns a copy of the interned strings in id order.
func (t *StringTable) Strings() []string {
	return slices.Clone(t.strings)
}
