package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test looking up values succeeds, then fails
func TestLookup(t *testing.T) {
	for key, val := range keywords {
		require.Equal(t, val, LookupIdentifier(key), "lookup of %s", key)

		// Once the keywords are uppercase they'll no longer
		// match - so we find them as identifiers.
		require.Equal(t, IDENT, LookupIdentifier(strings.ToUpper(key)), "lookup of %s", key)
	}
}

func TestReservedWords(t *testing.T) {
	require.Equal(t, UNSUPPORTED_RESERVED, LookupIdentifier("class"))
	require.Equal(t, UNSUPPORTED_RESERVED, LookupIdentifier("switch"))
	require.Equal(t, IDENT, LookupIdentifier("print"))
}

func TestPosition(t *testing.T) {
	tok := Token{
		Type:    IDENT,
		Literal: "foo",
		StartPosition: Position{
			Line:   2,
			Column: 0,
		},
	}
	// Switches to 1-indexed
	require.Equal(t, 3, tok.StartPosition.LineNumber())
	require.Equal(t, 1, tok.StartPosition.ColumnNumber())
	require.True(t, tok.StartPosition.IsValid())
	require.False(t, NoPos.IsValid())

	adv := tok.StartPosition.Advance(3)
	require.Equal(t, 2, adv.Line)
	require.Equal(t, 3, adv.Column)
	require.Equal(t, 3, adv.Char)
}
