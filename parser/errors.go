package parser

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// ErrorOpts is a struct that holds a variety of error data.
// All fields are optional, although one of `Cause` or `Message`
// are recommended. If `Message` is empty, the text of `Cause` is used.
type ErrorOpts struct {
	ErrType       string
	Message       string
	Cause         error
	File          string
	StartPosition token.Position
	EndPosition   token.Position
	SourceCode    string
}

// NewParserError returns a new BaseParserError populated with
// the given error data.
func NewParserError(opts ErrorOpts) *BaseParserError {
	message := opts.Message
	if message == "" && opts.Cause != nil {
		message = opts.Cause.Error()
	}
	return &BaseParserError{
		errType:       opts.ErrType,
		message:       message,
		cause:         opts.Cause,
		file:          opts.File,
		startPosition: opts.StartPosition,
		endPosition:   opts.EndPosition,
		sourceCode:    opts.SourceCode,
	}
}

// ParserError is an interface that all parser errors implement.
type ParserError interface {
	Type() string
	Message() string
	Cause() error
	File() string
	StartPosition() token.Position
	EndPosition() token.Position
	SourceCode() string
	Error() string
	FriendlyErrorMessage() string
}

// BaseParserError is the simplest implementation of ParserError.
type BaseParserError struct {
	// Type of the error, e.g. "syntax error"
	errType string
	// The error message
	message string
	// The wrapped error
	cause error
	// File where the error occurred
	file string
	// Start position of the error in the input string
	startPosition token.Position
	// End position of the error in the input string
	endPosition token.Position
	// Relevant line of source code text
	sourceCode string
}

func (e *BaseParserError) Error() string {
	if e.errType != "" {
		return fmt.Sprintf("%s: %s", e.errType, e.message)
	}
	return e.message
}

// FriendlyErrorMessage renders the error with its location and the
// offending source line underlined.
func (e *BaseParserError) FriendlyErrorMessage() string {
	var b strings.Builder
	b.WriteString(e.Error())
	start := e.startPosition
	b.WriteString("\n\nlocation: ")
	if e.file != "" {
		b.WriteString(e.file)
		b.WriteString(":")
	}
	fmt.Fprintf(&b, "%d:%d", start.LineNumber(), start.ColumnNumber())
	if e.sourceCode == "" {
		return b.String()
	}
	width := e.endPosition.Column - start.Column + 1
	if width < 1 || e.endPosition.Line != start.Line {
		width = 1
	}
	gutter := fmt.Sprintf(" %d | ", start.LineNumber())
	b.WriteString("\n\n")
	b.WriteString(gutter)
	b.WriteString(e.sourceCode)
	b.WriteString("\n")
	b.WriteString(strings.Repeat(" ", len(gutter)-2))
	b.WriteString("| ")
	b.WriteString(strings.Repeat(" ", start.Column))
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}

func (e *BaseParserError) Cause() error {
	return e.cause
}

func (e *BaseParserError) Message() string {
	return e.message
}

func (e *BaseParserError) StartPosition() token.Position {
	return e.startPosition
}

func (e *BaseParserError) EndPosition() token.Position {
	return e.endPosition
}

func (e *BaseParserError) File() string {
	return e.file
}

func (e *BaseParserError) SourceCode() string {
	return e.sourceCode
}

func (e *BaseParserError) Unwrap() error {
	return e.cause
}

func (e *BaseParserError) Type() string {
	return e.errType
}

// NewSyntaxError returns a new SyntaxError populated with the given error data
func NewSyntaxError(opts ErrorOpts) *SyntaxError {
	opts.ErrType = "syntax error"
	return &SyntaxError{BaseParserError: NewParserError(opts)}
}

// SyntaxError is raised when the lexer rejects the input.
type SyntaxError struct {
	*BaseParserError
}

func tokenTypeDescription(t token.Type) string {
	switch t {
	case token.EOF:
		return "end of file"
	case token.IDENT:
		return "identifier"
	default:
		return "'" + string(t) + "'"
	}
}

func tokenDescription(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of file"
	case token.STRING:
		return fmt.Sprintf("string %q", t.Literal)
	default:
		if t.Literal == "" {
			return string(t.Type)
		}
		return "'" + t.Literal + "'"
	}
}

// Errors wraps multiple parser errors for multi-error reporting.
// It implements the error interface so it can be returned from Parse().
type Errors struct {
	errs []ParserError
}

// NewErrors creates an Errors from a slice of ParserError.
func NewErrors(errs []ParserError) *Errors {
	if len(errs) == 0 {
		return nil
	}
	return &Errors{errs: errs}
}

// Error implements the error interface. Returns the first error message.
func (e *Errors) Error() string {
	if len(e.errs) == 0 {
		return ""
	}
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.errs[0].Error(), len(e.errs)-1)
}

// Errors returns the underlying slice of parser errors.
func (e *Errors) Errors() []ParserError {
	return e.errs
}

// Count returns the number of errors.
func (e *Errors) Count() int {
	return len(e.errs)
}

// First returns the first error, or nil if empty.
func (e *Errors) First() ParserError {
	if len(e.errs) == 0 {
		return nil
	}
	return e.errs[0]
}

// FriendlyErrorMessage returns a formatted message showing all errors.
func (e *Errors) FriendlyErrorMessage() string {
	parts := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		parts = append(parts, err.FriendlyErrorMessage())
	}
	return strings.Join(parts, "\n\n")
}

// Unwrap returns the underlying errors for use with errors.Is/As.
func (e *Errors) Unwrap() []error {
	result := make([]error, len(e.errs))
	for i, err := range e.errs {
		result[i] = err
	}
	return result
}
