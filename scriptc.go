// Package scriptc compiles script source text into serialized bytecode.
//
// A compilation validates the request buffers, parses the optional source
// map, parses and validates the script, generates a bytecode module and
// serializes it. The outcome is always a single *Result holding either the
// bytecode or an error message:
//
//	res := scriptc.Compile(scriptc.Request{Source: []byte("var x = 1;\x00")})
//	defer res.Free()
//	if err := res.Err(); err != nil {
//		return err
//	}
//	os.WriteFile("out.hbc", res.Bytecode(), 0o644)
package scriptc

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/compiler"
	"github.com/deepnoodle-ai/scriptc/hbc"
	"github.com/deepnoodle-ai/scriptc/internal/diag"
	"github.com/deepnoodle-ai/scriptc/parser"
	"github.com/deepnoodle-ai/scriptc/sourcemap"
	"github.com/deepnoodle-ai/scriptc/syntax"
)

const (
	msgSourceMapFailed = "Failed to parse source map:"
	msgUnknown         = "Unknown compilation error"
)

// Option configures a Compiler.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	pooled     bool
	validators []syntax.Validator
}

func collectOptions(opts ...Option) *options {
	o := &options{logger: zerolog.Nop(), pooled: true}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithLogger sets the logger that receives per-compilation debug events.
// By default nothing is logged.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithoutBufferPool allocates result buffers with make instead of taking
// them from the shared buffer pool. Free is then optional.
func WithoutBufferPool() Option {
	return func(o *options) {
		o.pooled = false
	}
}

// WithValidators adds validators that run after the built-in semantic
// checks.
func WithValidators(validators ...syntax.Validator) Option {
	return func(o *options) {
		o.validators = append(o.validators, validators...)
	}
}

// Compiler runs compilations. It holds no per-call state and is safe for
// concurrent use.
type Compiler struct {
	opts *options
}

// New returns a Compiler configured with the given options.
func New(opts ...Option) *Compiler {
	return &Compiler{opts: collectOptions(opts...)}
}

var defaultCompiler = New()

// Compile compiles a request with the default Compiler.
func Compile(req Request) *Result {
	return defaultCompiler.Compile(context.Background(), req)
}

// Compile runs every stage of a compilation in order and stops at the
// first failure. It never returns nil and never panics; a panic in a stage
// is converted into a CompilationError.
func (c *Compiler) Compile(ctx context.Context, req Request) (result *Result) {
	log := c.opts.logger.With().Str("compile_id", newCompileID()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("compilation panicked")
			result = failure(CompilationError, fmt.Sprintf("internal compiler error: %v", r))
		}
		if err := result.err; err != nil {
			log.Debug().Stringer("kind", err.Kind).Str("error", err.Message).Msg("compilation failed")
		} else {
			log.Debug().Int("size", result.Size()).Msg("compilation succeeded")
		}
	}()

	log.Debug().Str("url", req.SourceURL).Int("source_size", len(req.Source)).Msg("validating request")
	if err := validateSource(req.Source); err != nil {
		return &Result{err: err}
	}
	var sm *sourcemap.SourceMap
	if req.hasSourceMap() {
		if err := validateSourceMap(req.SourceMap); err != nil {
			return &Result{err: err}
		}
		log.Debug().Int("sourcemap_size", len(req.SourceMap)).Msg("parsing source map")
		var errResult *Result
		if sm, errResult = ingestSourceMap(req.SourceMap[:len(req.SourceMap)-1]); errResult != nil {
			return errResult
		}
	}

	source := req.Source[:len(req.Source)-1]
	sink := diag.NewSink(req.SourceURL)
	log.Debug().Msg("parsing source")
	module, err := c.frontEnd(ctx, source, req.SourceURL, sm, sink)
	if err != nil {
		return failure(CompilationError, err.Error())
	}

	log.Debug().Int("functions", module.FunctionCount()).Msg("serializing module")
	var serializeOpts []hbc.Option
	if c.opts.pooled {
		serializeOpts = append(serializeOpts, hbc.WithAlloc(func(size int) []byte {
			return mcache.Malloc(size)
		}))
	}
	data, err := hbc.Serialize(module, sha1.Sum(source), serializeOpts...)
	if err != nil {
		return failure(CompilationError, err.Error())
	}
	return success(data, c.opts.pooled)
}

// ingestSourceMap parses a source map under a sink of its own.
func ingestSourceMap(text []byte) (*sourcemap.SourceMap, *Result) {
	sink := diag.NewSink("")
	sm, err := sourcemap.Parse(text, sink)
	if err != nil {
		summary := sink.Summary()
		if summary == "" {
			summary = err.Error()
		}
		return nil, failure(SourceMapError, msgSourceMapFailed+summary)
	}
	return sm, nil
}

// frontEnd parses, validates and generates a module. Diagnostics are
// collected in the sink and returned as a single error.
func (c *Compiler) frontEnd(ctx context.Context, source []byte, url string, sm *sourcemap.SourceMap, sink *diag.Sink) (*bytecode.Module, error) {
	program, err := parser.Parse(ctx, string(source), parser.WithFilename(url))
	if err != nil {
		reportParseError(sink, err)
		return nil, summarize(sink)
	}
	if !syntax.Check(program, sink, c.opts.validators...) {
		return nil, summarize(sink)
	}
	compilerOpts := []compiler.Option{
		compiler.WithFlags(compiler.Flags{DebugInfo: true, Optimize: false}),
		compiler.WithFilename(url),
	}
	if sm != nil {
		compilerOpts = append(compilerOpts, compiler.WithSourceMap(sm))
	}
	module, err := compiler.Generate(program, compilerOpts...)
	if err != nil {
		var compileErr *compiler.Error
		if errors.As(err, &compileErr) {
			sink.Report(diag.Diagnostic{
				Severity: diag.SeverityError,
				URL:      compileErr.Pos.File,
				Line:     compileErr.Pos.LineNumber(),
				Column:   compileErr.Pos.ColumnNumber(),
				Message:  compileErr.Message,
			})
			return nil, summarize(sink)
		}
		return nil, err
	}
	return module, nil
}

func reportParseError(sink *diag.Sink, err error) {
	var errs *parser.Errors
	if errors.As(err, &errs) {
		for _, pe := range errs.Errors() {
			pos := pe.StartPosition()
			sink.Report(diag.Diagnostic{
				Severity: diag.SeverityError,
				URL:      pe.File(),
				Line:     pos.LineNumber(),
				Column:   pos.ColumnNumber(),
				Message:  pe.Message(),
			})
		}
		return
	}
	var pe parser.ParserError
	if errors.As(err, &pe) {
		pos := pe.StartPosition()
		sink.Errorf(pos.LineNumber(), pos.ColumnNumber(), "%s", pe.Message())
		return
	}
	sink.Errorf(0, 0, "%s", err.Error())
}

// summarize turns the sink contents into the error of a failed front end.
func summarize(sink *diag.Sink) error {
	if summary := sink.Summary(); summary != "" {
		return errors.New(summary)
	}
	return errors.New(msgUnknown)
}

func newCompileID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}
