package parser

import (
	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/internal/token"
)

func (p *Parser) parseIdent() (ast.Expr, bool) {
	if p.curToken.Literal == "" {
		p.setTokenError(p.curToken, "invalid identifier")
		return nil, false
	}
	return p.newIdent(p.curToken), true
}

func (p *Parser) parsePrefixExpr() (ast.Expr, bool) {
	opPos := p.curToken.StartPosition
	op := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	right := p.parseExpression(PREFIX)
	if right == nil {
		return nil, false
	}
	return &ast.Prefix{OpPos: opPos, Op: op, X: right}, true
}

func (p *Parser) parsePrefixUpdate() (ast.Expr, bool) {
	opPos := p.curToken.StartPosition
	op := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil, false
	}
	return &ast.Update{Start: opPos, OpPos: opPos, Op: op, Prefix: true, X: operand}, true
}

func (p *Parser) parsePostfix(operand ast.Expr) (ast.Expr, bool) {
	return &ast.Update{
		Start: operand.Pos(),
		OpPos: p.curToken.StartPosition,
		Op:    p.curToken.Literal,
		X:     operand,
	}, true
}

func (p *Parser) parseInfixExpr(left ast.Expr) (ast.Expr, bool) {
	opPos := p.curToken.StartPosition
	op := p.curToken.Literal
	precedence := p.currentPrecedence()
	// Power operator ** is right-associative: 2**2**3 = 2**(2**3)
	if p.curTokenIs(token.POW) {
		precedence--
	}
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	right := p.parseExpression(precedence)
	if right == nil {
		return nil, false
	}
	return &ast.Infix{Start: left.Pos(), X: left, OpPos: opPos, Op: op, Y: right}, true
}

// parseAssign parses the right-hand side of "=" and the compound forms.
// Assignment is right-associative. Target validity is checked later by the
// syntax validator so that all such errors are reported uniformly.
func (p *Parser) parseAssign(target ast.Expr) (ast.Expr, bool) {
	opPos := p.curToken.StartPosition
	op := p.curToken.Literal
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil, false
	}
	return &ast.Assign{Start: target.Pos(), Target: target, OpPos: opPos, Op: op, Value: value}, true
}

func (p *Parser) parseTernary(cond ast.Expr) (ast.Expr, bool) {
	question := p.curToken.StartPosition
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	ifTrue := p.parseExpression(LOWEST)
	if ifTrue == nil {
		return nil, false
	}
	if !p.expectPeek("ternary expression", token.COLON) {
		return nil, false
	}
	colon := p.curToken.StartPosition
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	ifFalse := p.parseExpression(LOWEST)
	if ifFalse == nil {
		return nil, false
	}
	return &ast.Ternary{
		Start:    cond.Pos(),
		Cond:     cond,
		Question: question,
		IfTrue:   ifTrue,
		Colon:    colon,
		IfFalse:  ifFalse,
	}, true
}

func (p *Parser) parseGroupedExpr() (ast.Expr, bool) {
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil, false
	}
	if !p.expectPeek("parenthesized expression", token.RPAREN) {
		return nil, false
	}
	return expr, true
}

func (p *Parser) parseMember(object ast.Expr) (ast.Expr, bool) {
	period := p.curToken.StartPosition
	if !isPropertyName(p.peekToken) {
		p.peekError("member expression", token.IDENT, p.peekToken)
		return nil, false
	}
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	return &ast.Member{Start: object.Pos(), X: object, Period: period, Name: p.newIdent(p.curToken)}, true
}

func (p *Parser) parseIndex(object ast.Expr) (ast.Expr, bool) {
	lbrack := p.curToken.StartPosition
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	index := p.parseExpression(LOWEST)
	if index == nil {
		return nil, false
	}
	if !p.expectPeek("index expression", token.RBRACKET) {
		return nil, false
	}
	return &ast.Index{Start: object.Pos(), X: object, Lbrack: lbrack, Index: index, Rbrack: p.curToken.StartPosition}, true
}

func (p *Parser) parseCall(fn ast.Expr) (ast.Expr, bool) {
	lparen := p.curToken.StartPosition
	args, ok := p.parseExprList("call arguments", token.RPAREN)
	if !ok {
		return nil, false
	}
	return &ast.Call{Start: fn.Pos(), Fun: fn, Lparen: lparen, Args: args, Rparen: p.curToken.StartPosition}, true
}

// parseNew parses "new Ctor(args)". The constructor expression may include
// member and index accesses but not calls; the argument list is optional.
func (p *Parser) parseNew() (ast.Expr, bool) {
	newPos := p.curToken.StartPosition
	if err := p.nextToken(); err != nil {
		return nil, false
	}
	ctor := p.parseExpression(CALL)
	if ctor == nil {
		return nil, false
	}
	expr := &ast.New{NewPos: newPos, Fun: ctor}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		args, ok := p.parseExprList("new expression", token.RPAREN)
		if !ok {
			return nil, false
		}
		expr.Args = args
		expr.Rparen = p.curToken.StartPosition
	}
	return expr, true
}

// parseExprList parses a comma-separated list of expressions until the end
// token. On entry curToken is the opening delimiter; on success it is the
// end token. A trailing comma is allowed.
func (p *Parser) parseExprList(context string, end token.Type) ([]ast.Expr, bool) {
	list := make([]ast.Expr, 0)
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}
	for {
		if err := p.nextToken(); err != nil {
			return nil, false
		}
		item := p.parseExpression(LOWEST)
		if item == nil {
			return nil, false
		}
		list = append(list, item)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if p.peekTokenIs(end) {
			break
		}
	}
	if !p.expectPeek(context, end) {
		return nil, false
	}
	return list, true
}
