// Package parser is used to generate the abstract syntax tree (AST) for a program.
//
// A parser is created by calling New() with a lexer as input. The parser should
// then be used only once, by calling parser.Parse() to produce the AST.
package parser

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/internal/lexer"
	"github.com/deepnoodle-ai/scriptc/internal/token"
)

type (
	prefixParseFn func() (ast.Expr, bool)
	infixParseFn  func(ast.Expr) (ast.Expr, bool)
)

// Parse the provided input as script source code and return the AST. This is
// shorthand way to create a Lexer and Parser and then call Parse on that.
func Parse(ctx context.Context, input string, options ...Option) (*ast.Program, error) {
	// Extract filename from options before creating the parser, so that lexer
	// errors in the first tokens have proper location context.
	var probe Parser
	for _, opt := range options {
		opt(&probe)
	}
	l := lexer.New(input, lexer.WithFile(probe.filename))
	p := New(l, options...)
	return p.Parse(ctx)
}

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the file name reported in positions and errors.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// WithMaxDepth sets the maximum nesting depth for the parser.
// This prevents stack overflow on deeply nested input.
// The default is 500.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 500

// MaxErrors is the maximum number of errors to collect before stopping.
const MaxErrors = 10

// Parser object
type Parser struct {
	// the Context supplied in the Parse() call
	ctx context.Context

	// l is our lexer
	l *lexer.Lexer

	// prevToken holds the previous token, which we already processed.
	prevToken token.Token

	// curToken holds the current token from the lexer.
	curToken token.Token

	// peekToken holds the next token from the lexer.
	peekToken token.Token

	// parsing errors collected during parsing
	errors []ParserError

	// stmtErrorCount tracks error count at start of the current top-level
	// statement.
	stmtErrorCount int

	// lexFailed is set once the lexer reports an error. Parsing stops at
	// the end of the current statement.
	lexFailed bool

	// braceDepth counts "{" tokens seen as curToken that are not yet closed.
	braceDepth int

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	// The filename of the input
	filename string

	// Current recursion depth
	depth int

	// Maximum allowed recursion depth
	maxDepth int
}

// New returns a Parser for the program provided by the given Lexer.
func New(l *lexer.Lexer, options ...Option) *Parser {
	p := &Parser{
		l:              l,
		prefixParseFns: map[token.Type]prefixParseFn{},
		infixParseFns:  map[token.Type]infixParseFn{},
		maxDepth:       DefaultMaxDepth,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.filename != "" && l.Filename() == "" {
		l.SetFilename(p.filename)
	}
	if p.filename == "" {
		p.filename = l.Filename()
	}

	// Prime the token pump
	p.nextToken() // makes curToken=<empty>, peekToken=token[0]
	p.nextToken() // makes curToken=token[0], peekToken=token[1]

	// Register prefix-functions
	p.registerPrefix(token.BANG, p.parsePrefixExpr)
	p.registerPrefix(token.EOF, p.illegalToken)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.FUNCTION, p.parseFunc)
	p.registerPrefix(token.IDENT, p.parseIdent)
	p.registerPrefix(token.ILLEGAL, p.illegalToken)
	p.registerPrefix(token.LBRACE, p.parseObject)
	p.registerPrefix(token.LBRACKET, p.parseList)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(token.MINUS, p.parsePrefixExpr)
	p.registerPrefix(token.MINUS_MINUS, p.parsePrefixUpdate)
	p.registerPrefix(token.NEW, p.parseNew)
	p.registerPrefix(token.NULL, p.parseNull)
	p.registerPrefix(token.NUMBER, p.parseNumber)
	p.registerPrefix(token.PLUS, p.parsePrefixExpr)
	p.registerPrefix(token.PLUS_PLUS, p.parsePrefixUpdate)
	p.registerPrefix(token.STRING, p.parseString)
	p.registerPrefix(token.TILDE, p.parsePrefixExpr)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.TYPEOF, p.parsePrefixExpr)
	p.registerPrefix(token.UNSUPPORTED_RESERVED, p.parseReserved)

	// Register infix functions
	for _, t := range []token.Type{
		token.AND, token.ASTERISK, token.BITAND, token.BITOR, token.CARET,
		token.EQ, token.GT, token.GT_EQUALS, token.GT_GT, token.GT_GT_GT,
		token.LT, token.LT_EQUALS, token.LT_LT, token.MINUS, token.MOD,
		token.NOT_EQ, token.NULLISH, token.OR, token.PLUS, token.POW,
		token.SLASH, token.STRICT_EQ, token.STRICT_NOT_EQ,
	} {
		p.registerInfix(t, p.parseInfixExpr)
	}
	for _, t := range []token.Type{
		token.ASSIGN, token.ASTERISK_EQUALS, token.MINUS_EQUALS,
		token.MOD_EQUALS, token.PLUS_EQUALS, token.SLASH_EQUALS,
	} {
		p.registerInfix(t, p.parseAssign)
	}
	p.registerInfix(token.LBRACKET, p.parseIndex)
	p.registerInfix(token.LPAREN, p.parseCall)
	p.registerInfix(token.MINUS_MINUS, p.parsePostfix)
	p.registerInfix(token.PERIOD, p.parseMember)
	p.registerInfix(token.PLUS_PLUS, p.parsePostfix)
	p.registerInfix(token.QUESTION, p.parseTernary)

	return p
}

// advanceToken moves to the next token from the lexer without error checking.
// Used internally by synchronize() during error recovery.
func (p *Parser) advanceToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.trackBraces()
	p.peekToken, _ = p.l.Next()
}

// nextToken moves to the next token from the lexer, updating all of
// prevToken, curToken, and peekToken.
func (p *Parser) nextToken() error {
	var err error
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.trackBraces()
	p.peekToken, err = p.l.Next()
	if err == nil {
		return nil // success
	}
	// The lexer encountered an error. We consider all lexer errors
	// "syntax errors" and parsing will now be considered broken. Only the
	// first one is reported.
	if p.lexFailed {
		return err
	}
	p.lexFailed = true
	p.addError(NewSyntaxError(ErrorOpts{
		Cause:         err,
		File:          p.filename,
		StartPosition: p.peekToken.StartPosition,
		EndPosition:   p.peekToken.EndPosition,
		SourceCode:    p.l.GetLineText(p.peekToken),
	}))
	return err
}

func (p *Parser) trackBraces() {
	switch p.curToken.Type {
	case token.LBRACE:
		p.braceDepth++
	case token.RBRACE:
		if p.braceDepth > 0 {
			p.braceDepth--
		}
	}
}

// Parse the program that is provided via the lexer.
// Returns the AST and any errors encountered. If there are errors, the AST
// may be partial (containing only successfully parsed statements).
func (p *Parser) Parse(ctx context.Context) (*ast.Program, error) {
	p.ctx = ctx
	// It's possible for errors to already exist because we read tokens from
	// the lexer in the constructor.
	if p.hasErrors() {
		return nil, NewErrors(p.errors)
	}
	var statements []ast.Stmt
	for p.curToken.Type != token.EOF {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if p.tooManyErrors() || p.lexFailed {
			break
		}
		p.stmtErrorCount = len(p.errors)
		stmt := p.parseStatementStrict()
		if stmt != nil && !p.hadNewError() {
			statements = append(statements, stmt)
		} else if p.hadNewError() {
			p.synchronize()
		}
		p.nextToken()
	}
	program := &ast.Program{URL: p.filename, Stmts: statements}
	if p.hasErrors() {
		return program, NewErrors(p.errors)
	}
	return program, nil
}

// registerPrefix registers a function for handling a prefix-based expression.
func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

// registerInfix registers a function for handling an infix-based expression.
func (p *Parser) registerInfix(tokenType token.Type, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) addError(err ParserError) {
	p.errors = append(p.errors, err)
}

func (p *Parser) hasErrors() bool {
	return len(p.errors) > 0
}

func (p *Parser) tooManyErrors() bool {
	return len(p.errors) >= MaxErrors
}

// hadNewError returns true if an error was added during the current statement.
func (p *Parser) hadNewError() bool {
	return len(p.errors) > p.stmtErrorCount
}

// synchronize skips tokens until a top-level statement boundary is reached.
// On return curToken is the last token of the broken statement.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.EOF) && !p.peekTokenIs(token.EOF) {
		if p.braceDepth == 0 {
			if p.curTokenIs(token.SEMICOLON) || p.curTokenIs(token.RBRACE) {
				return
			}
			if p.peekToken.NewlineBefore {
				return
			}
			switch p.peekToken.Type {
			case token.VAR, token.LET, token.CONST, token.FUNCTION,
				token.IF, token.WHILE, token.DO, token.FOR, token.RETURN, token.THROW:
				return
			}
		}
		prevPos := p.curToken.StartPosition
		p.advanceToken()
		// Safety: if we didn't advance (lexer stuck), bail out
		if p.curToken.StartPosition == prevPos {
			return
		}
	}
}

func (p *Parser) noPrefixParseFnError(t token.Token) {
	p.setTokenError(t, "unexpected %s", tokenDescription(t))
}

// peekError raises an error if the next token is not the expected type.
func (p *Parser) peekError(context string, expected token.Type, got token.Token) {
	p.setTokenError(got, "unexpected %s while parsing %s (expected %s)",
		tokenDescription(got), context, tokenTypeDescription(expected))
}

// cancelled checks if the parsing context has been cancelled.
func (p *Parser) cancelled() bool {
	if p.ctx == nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		p.addError(NewParserError(ErrorOpts{
			ErrType: "context error",
			Message: p.ctx.Err().Error(),
		}))
		return true
	default:
		return false
	}
}

func (p *Parser) enter() bool {
	p.depth++
	if p.depth > p.maxDepth {
		p.setTokenError(p.curToken, "maximum nesting depth exceeded")
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) parseNode(precedence int) ast.Expr {
	if p.hadNewError() {
		return nil
	}
	defer p.leave()
	if !p.enter() {
		return nil
	}
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp, ok := prefix()
	if !ok || leftExp == nil {
		return nil
	}
	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		// Postfix operators must be on the same line as their operand.
		if (p.peekTokenIs(token.PLUS_PLUS) || p.peekTokenIs(token.MINUS_MINUS)) && p.peekToken.NewlineBefore {
			return leftExp
		}
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		if err := p.nextToken(); err != nil {
			return nil
		}
		leftExp, ok = infix(leftExp)
		if !ok || leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseExpression(precedence int) ast.Expr {
	return p.parseNode(precedence)
}

func (p *Parser) illegalToken() (ast.Expr, bool) {
	if p.curTokenIs(token.EOF) {
		p.setTokenError(p.curToken, "unexpected end of file")
		return nil, false
	}
	if p.lexFailed {
		// Already reported by nextToken.
		return nil, false
	}
	p.setTokenError(p.curToken, "illegal token %s", p.curToken.Literal)
	return nil, false
}

func (p *Parser) parseReserved() (ast.Expr, bool) {
	p.setTokenError(p.curToken, "unsupported keyword %q", p.curToken.Literal)
	return nil, false
}

func (p *Parser) setTokenError(t token.Token, msg string, args ...interface{}) {
	p.addError(NewParserError(ErrorOpts{
		ErrType:       "parse error",
		Message:       fmt.Sprintf(msg, args...),
		File:          p.filename,
		StartPosition: t.StartPosition,
		EndPosition:   t.EndPosition,
		SourceCode:    p.l.GetLineText(t),
	}))
}

// newIdent creates a new Ident node from a token.
func (p *Parser) newIdent(tok token.Token) *ast.Ident {
	return &ast.Ident{NamePos: tok.StartPosition, Name: tok.Literal}
}

// curTokenIs returns true if the current token has the given type.
func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

// peekTokenIs returns true if the next token has the given type.
func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

// expectPeek validates if the next token is of the given type, and advances if
// it is. If it's a different type, then an error is stored.
func (p *Parser) expectPeek(context string, t token.Type) bool {
	if p.peekTokenIs(t) {
		return p.nextToken() == nil
	}
	p.peekError(context, t, p.peekToken)
	return false
}

// peekPrecedence returns the precedence of the next token.
func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

// currentPrecedence returns the precedence of the current token.
func (p *Parser) currentPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

// isPropertyName reports whether the token can name a property after "."
// or as an object literal key. Keywords are allowed there.
func isPropertyName(t token.Token) bool {
	if t.Type == token.IDENT {
		return true
	}
	return t.Literal != "" && token.LookupIdentifier(t.Literal) != token.IDENT
}
