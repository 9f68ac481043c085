package parser

import (
	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// Statement parsing methods for the Parser. On entry curToken is the first
// token of the statement; on success curToken is its last token.

// parseStatementStrict parses one statement and enforces that it is
// properly terminated. A statement that does not end in a block must be
// followed by ";", "}", the end of input, or a line break.
func (p *Parser) parseStatementStrict() ast.Stmt {
	stmt := p.parseStatement()
	if stmt == nil {
		return nil
	}
	switch stmt.(type) {
	case *ast.VarDecl, *ast.Return, *ast.Break, *ast.Continue, *ast.Throw, *ast.ExprStmt:
		if !p.consumeTerminator() {
			return nil
		}
	case *ast.DoWhile:
		if p.peekTokenIs(token.SEMICOLON) {
			if err := p.nextToken(); err != nil {
				return nil
			}
		}
	}
	return stmt
}

func (p *Parser) consumeTerminator() bool {
	if p.peekTokenIs(token.SEMICOLON) {
		return p.nextToken() == nil
	}
	if p.peekTokenIs(token.RBRACE) || p.peekTokenIs(token.EOF) || p.peekToken.NewlineBefore {
		return true
	}
	p.setTokenError(p.peekToken, "unexpected %s following statement", tokenDescription(p.peekToken))
	return false
}

func (p *Parser) parseStatement() ast.Stmt {
	if p.cancelled() {
		return nil
	}
	defer p.leave()
	if !p.enter() {
		return nil
	}
	switch p.curToken.Type {
	case token.VAR, token.LET, token.CONST:
		if decl := p.parseVarDecl(); decl != nil {
			return decl
		}
		return nil
	case token.FUNCTION:
		if !p.peekTokenIs(token.IDENT) {
			p.setTokenError(p.curToken, "function declaration requires a name")
			return nil
		}
		fn, ok := p.parseFunc()
		if !ok {
			return nil
		}
		return &ast.FuncDecl{Func: fn.(*ast.Func)}
	case token.RETURN:
		return p.parseReturn()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.BREAK:
		return &ast.Break{BreakPos: p.curToken.StartPosition}
	case token.CONTINUE:
		return &ast.Continue{ContinuePos: p.curToken.StartPosition}
	case token.THROW:
		return p.parseThrow()
	case token.LBRACE:
		if block := p.parseBlock(); block != nil {
			return block
		}
		return nil
	case token.SEMICOLON:
		return &ast.Empty{Semicolon: p.curToken.StartPosition}
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseExpressionStatement() ast.Stmt {
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{X: expr}
}

// parseVarDecl parses "var a = 1, b" and the let/const equivalents.
func (p *Parser) parseVarDecl() *ast.VarDecl {
	decl := &ast.VarDecl{
		DeclPos: p.curToken.StartPosition,
		Kind:    ast.DeclKind(p.curToken.Literal),
	}
	context := p.curToken.Literal + " statement"
	for {
		if !p.expectPeek(context, token.IDENT) {
			return nil
		}
		d := &ast.Declarator{Name: p.newIdent(p.curToken)}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			d.Value = p.parseExpression(LOWEST)
			if d.Value == nil {
				return nil
			}
		}
		decl.Decls = append(decl.Decls, d)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return decl
}

func (p *Parser) parseReturn() ast.Stmt {
	stmt := &ast.Return{ReturnPos: p.curToken.StartPosition}
	if p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.RBRACE) ||
		p.peekTokenIs(token.EOF) || p.peekToken.NewlineBefore {
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseThrow() ast.Stmt {
	throwPos := p.curToken.StartPosition
	if p.peekToken.NewlineBefore || p.peekTokenIs(token.EOF) {
		p.setTokenError(p.curToken, "illegal newline after throw")
		return nil
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	return &ast.Throw{ThrowPos: throwPos, Value: value}
}

// parseCondition parses "(expr)" following a keyword.
func (p *Parser) parseCondition(context string) ast.Expr {
	if !p.expectPeek(context, token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil {
		return nil
	}
	if !p.expectPeek(context, token.RPAREN) {
		return nil
	}
	return cond
}

// parseBody parses the statement following a control-flow header.
func (p *Parser) parseBody() ast.Stmt {
	if err := p.nextToken(); err != nil {
		return nil
	}
	return p.parseStatementStrict()
}

func (p *Parser) parseIf() ast.Stmt {
	stmt := &ast.If{IfPos: p.curToken.StartPosition}
	if stmt.Cond = p.parseCondition("if statement"); stmt.Cond == nil {
		return nil
	}
	if stmt.Consequence = p.parseBody(); stmt.Consequence == nil {
		return nil
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if stmt.Alternative = p.parseBody(); stmt.Alternative == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	stmt := &ast.While{WhilePos: p.curToken.StartPosition}
	if stmt.Cond = p.parseCondition("while statement"); stmt.Cond == nil {
		return nil
	}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoWhile() ast.Stmt {
	stmt := &ast.DoWhile{DoPos: p.curToken.StartPosition}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	if !p.expectPeek("do statement", token.WHILE) {
		return nil
	}
	if stmt.Cond = p.parseCondition("do statement"); stmt.Cond == nil {
		return nil
	}
	stmt.Rparen = p.curToken.StartPosition
	return stmt
}

func (p *Parser) parseFor() ast.Stmt {
	const context = "for statement"
	stmt := &ast.For{ForPos: p.curToken.StartPosition}
	if !p.expectPeek(context, token.LPAREN) {
		return nil
	}
	p.nextToken()

	// Init clause
	switch p.curToken.Type {
	case token.SEMICOLON:
	case token.VAR, token.LET, token.CONST:
		decl := p.parseVarDecl()
		if decl == nil {
			return nil
		}
		stmt.Init = decl
		if !p.expectPeek(context, token.SEMICOLON) {
			return nil
		}
	default:
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil
		}
		stmt.Init = &ast.ExprStmt{X: expr}
		if !p.expectPeek(context, token.SEMICOLON) {
			return nil
		}
	}

	// Condition clause
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	} else {
		p.nextToken()
		if stmt.Cond = p.parseExpression(LOWEST); stmt.Cond == nil {
			return nil
		}
		if !p.expectPeek(context, token.SEMICOLON) {
			return nil
		}
	}

	// Post clause
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
	} else {
		p.nextToken()
		if stmt.Post = p.parseExpression(LOWEST); stmt.Post == nil {
			return nil
		}
		if !p.expectPeek(context, token.RPAREN) {
			return nil
		}
	}

	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseBlock parses "{ ... }". On entry curToken is "{"; on success it is
// the matching "}".
func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Lbrace: p.curToken.StartPosition}
	if err := p.nextToken(); err != nil {
		return nil
	}
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.setTokenError(p.curToken, "unterminated block (expected '}')")
			return nil
		}
		stmt := p.parseStatementStrict()
		if stmt == nil {
			return nil
		}
		block.Stmts = append(block.Stmts, stmt)
		if err := p.nextToken(); err != nil {
			return nil
		}
	}
	block.Rbrace = p.curToken.StartPosition
	return block
}
