// Package diag collects positioned diagnostics produced while compiling a
// single source file.
package diag

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Severity indicates how serious a diagnostic is.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic is a single message attached to a source position. Line and
// Column are 1-based; zero means the position is unknown.
type Diagnostic struct {
	Severity Severity
	URL      string
	Line     int
	Column   int
	Message  string
}

// Error formats the diagnostic as "url:line:col: severity: message",
// omitting position components that are unknown.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	if d.URL != "" {
		b.WriteString(d.URL)
		b.WriteString(":")
	}
	if d.Line > 0 {
		fmt.Fprintf(&b, "%d:%d:", d.Line, d.Column)
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(d.Severity.String())
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Sink accumulates diagnostics in the order they are reported. A Sink is
// not safe for concurrent use; each compilation owns its own.
type Sink struct {
	url    string
	diags  []*Diagnostic
	errors int
}

// NewSink returns an empty Sink. The url is attached to diagnostics that
// do not carry their own.
func NewSink(url string) *Sink {
	return &Sink{url: url}
}

// URL returns the default URL attached to reported diagnostics.
func (s *Sink) URL() string {
	return s.url
}

// Report adds a diagnostic to the sink.
func (s *Sink) Report(d Diagnostic) {
	if d.URL == "" {
		d.URL = s.url
	}
	if d.Severity == SeverityError {
		s.errors++
	}
	s.diags = append(s.diags, &d)
}

// Errorf reports an error at the given 1-based position.
func (s *Sink) Errorf(line, column int, format string, args ...interface{}) {
	s.Report(Diagnostic{
		Severity: SeverityError,
		Line:     line,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Warnf reports a warning at the given 1-based position.
func (s *Sink) Warnf(line, column int, format string, args ...interface{}) {
	s.Report(Diagnostic{
		Severity: SeverityWarning,
		Line:     line,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors returns true if at least one error-severity diagnostic was
// reported.
func (s *Sink) HasErrors() bool {
	return s.errors > 0
}

// ErrorCount returns the number of error-severity diagnostics.
func (s *Sink) ErrorCount() int {
	return s.errors
}

// Len returns the number of diagnostics of any severity.
func (s *Sink) Len() int {
	return len(s.diags)
}

// Diagnostics returns a copy of the reported diagnostics in order.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, 0, len(s.diags))
	for _, d := range s.diags {
		out = append(out, *d)
	}
	return out
}

// Err returns the error diagnostics aggregated into a single error, or nil
// if no errors were reported.
func (s *Sink) Err() error {
	var result *multierror.Error
	for _, d := range s.diags {
		if d.Severity != SeverityError {
			continue
		}
		result = multierror.Append(result, d)
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = joinLines
	return result.ErrorOrNil()
}

// Summary returns all error diagnostics, one per line. The result is empty
// when no errors were reported.
func (s *Sink) Summary() string {
	err := s.Err()
	if err == nil {
		return ""
	}
	return err.Error()
}

func joinLines(errs []error) string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}
