package scriptc

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/scriptc/internal/diag"
	"github.com/deepnoodle-ai/scriptc/sourcemap"
)

// Diagnostic is one message reported while checking a script. Line and
// Column are 1-based and zero when unknown.
type Diagnostic struct {
	Severity string
	URL      string
	Line     int
	Column   int
	Message  string
}

func (d Diagnostic) String() string {
	dd := diag.Diagnostic{URL: d.URL, Line: d.Line, Column: d.Column, Message: d.Message}
	switch d.Severity {
	case "warning":
		dd.Severity = diag.SeverityWarning
	case "note":
		dd.Severity = diag.SeverityNote
	}
	return dd.Error()
}

// Check runs the front end without serializing and returns every
// diagnostic it reported. The error is non-nil only when the request
// itself is rejected: bad terminators or an unparseable source map.
func (c *Compiler) Check(ctx context.Context, req Request) (diagnostics []Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			diagnostics = nil
			err = &Error{Kind: CompilationError, Message: fmt.Sprintf("internal compiler error: %v", r)}
		}
	}()
	if e := validateSource(req.Source); e != nil {
		return nil, e
	}
	var sm *sourcemap.SourceMap
	if req.hasSourceMap() {
		if e := validateSourceMap(req.SourceMap); e != nil {
			return nil, e
		}
		var errResult *Result
		if sm, errResult = ingestSourceMap(req.SourceMap[:len(req.SourceMap)-1]); errResult != nil {
			return nil, errResult.err
		}
	}
	sink := diag.NewSink(req.SourceURL)
	if _, feErr := c.frontEnd(ctx, req.Source[:len(req.Source)-1], req.SourceURL, sm, sink); feErr != nil && sink.Len() == 0 {
		return nil, &Error{Kind: CompilationError, Message: feErr.Error()}
	}
	for _, d := range sink.Diagnostics() {
		diagnostics = append(diagnostics, Diagnostic{
			Severity: d.Severity.String(),
			URL:      d.URL,
			Line:     d.Line,
			Column:   d.Column,
			Message:  d.Message,
		})
	}
	return diagnostics, nil
}
