package diag

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func TestEmptySink(t *testing.T) {
	s := NewSink("main.js")
	require.False(t, s.HasErrors())
	require.Nil(t, s.Err())
	require.Equal(t, "", s.Summary())
	require.Equal(t, 0, s.Len())
}

func TestSummaryOrder(t *testing.T) {
	s := NewSink("main.js")
	s.Errorf(1, 13, "unexpected token %q", ";")
	s.Warnf(2, 1, "unused variable")
	s.Errorf(3, 5, "missing )")

	require.True(t, s.HasErrors())
	require.Equal(t, 2, s.ErrorCount())
	require.Equal(t, 3, s.Len())
	require.Equal(t,
		"main.js:1:13: error: unexpected token \";\"\nmain.js:3:5: error: missing )",
		s.Summary())

	var merr *multierror.Error
	require.True(t, errors.As(s.Err(), &merr))
	require.Len(t, merr.Errors, 2)

	var d *Diagnostic
	require.True(t, errors.As(merr.Errors[0], &d))
	require.Equal(t, 13, d.Column)
}

func TestWarningsOnly(t *testing.T) {
	s := NewSink("")
	s.Warnf(1, 1, "hmm")
	require.False(t, s.HasErrors())
	require.Nil(t, s.Err())
	require.Len(t, s.Diagnostics(), 1)
}

func TestDiagnosticFormat(t *testing.T) {
	tests := []struct {
		diag     Diagnostic
		expected string
	}{
		{Diagnostic{Message: "boom"}, "error: boom"},
		{Diagnostic{URL: "a.js", Message: "boom"}, "a.js: error: boom"},
		{Diagnostic{Line: 2, Column: 7, Message: "boom"}, "2:7: error: boom"},
		{Diagnostic{URL: "a.js", Line: 2, Column: 7, Severity: SeverityWarning, Message: "boom"}, "a.js:2:7: warning: boom"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, tt.diag.Error())
	}
}

func TestReportKeepsExplicitURL(t *testing.T) {
	s := NewSink("default.js")
	s.Report(Diagnostic{URL: "other.js", Line: 1, Column: 1, Message: "x"})
	s.Errorf(1, 1, "y")
	diags := s.Diagnostics()
	require.Equal(t, "other.js", diags[0].URL)
	require.Equal(t, "default.js", diags[1].URL)
}
