package syntax

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/internal/diag"
	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// ValidationError represents a semantic rule violation.
type ValidationError struct {
	Message  string         // description of the violation
	Node     ast.Node       // the offending node
	Position token.Position // source location
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	pos := e.Position
	if pos.File != "" {
		return fmt.Sprintf("%s at %s:%d:%d", e.Message, pos.File, pos.LineNumber(), pos.ColumnNumber())
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Message, pos.LineNumber(), pos.ColumnNumber())
}

// ValidationErrors wraps multiple validation errors.
type ValidationErrors struct {
	Errors []ValidationError
}

// NewValidationErrors creates a ValidationErrors from a slice of errors.
// It returns nil when the slice is empty.
func NewValidationErrors(errs []ValidationError) *ValidationErrors {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationErrors{Errors: errs}
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Errors[0].Error()
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
		for _, err := range e.Errors {
			fmt.Fprintf(&b, "  - %s\n", err.Error())
		}
		return b.String()
	}
}

// Unwrap returns the first error for errors.Is/As compatibility.
func (e *ValidationErrors) Unwrap() error {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}
	return nil
}

// Validator inspects an AST and returns validation errors.
// Validators should not modify the AST.
type Validator interface {
	// Validate checks the AST and returns any validation errors.
	// Multiple errors may be returned to show all violations at once.
	Validate(program *ast.Program) []ValidationError
}

// ValidatorFunc is an adapter to use a function as a Validator.
type ValidatorFunc func(*ast.Program) []ValidationError

// Validate implements the Validator interface.
func (f ValidatorFunc) Validate(p *ast.Program) []ValidationError {
	return f(p)
}

// Check runs the semantic validator followed by any extra validators and
// reports every violation to the sink. It returns false if anything was
// reported.
func Check(program *ast.Program, sink *diag.Sink, extra ...Validator) bool {
	validators := append([]Validator{NewSemanticValidator()}, extra...)
	ok := true
	for _, v := range validators {
		errs := v.Validate(program)
		if len(errs) > 0 {
			ok = false
		}
		Report(sink, errs)
	}
	return ok
}

// Report copies validation errors into a diagnostic sink.
func Report(sink *diag.Sink, errs []ValidationError) {
	for _, err := range errs {
		sink.Report(diag.Diagnostic{
			Severity: diag.SeverityError,
			URL:      err.Position.File,
			Line:     err.Position.LineNumber(),
			Column:   err.Position.ColumnNumber(),
			Message:  err.Message,
		})
	}
}
