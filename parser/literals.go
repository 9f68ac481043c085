package parser

import (
	"math"
	"math/big"
	"strconv"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// Literal parsing methods for the Parser: numbers, strings, booleans, null,
// array and object literals and function literals.

func (p *Parser) parseNumber() (ast.Expr, bool) {
	tok, lit := p.curToken, p.curToken.Literal
	value, err := parseNumericLiteral(lit)
	if err != nil {
		p.setTokenError(tok, "invalid number: %s", lit)
		return nil, false
	}
	return &ast.Number{ValuePos: tok.StartPosition, Literal: lit, Value: value}, true
}

// parseNumericLiteral decodes decimal, hexadecimal, octal (0o) and binary
// (0b) literals into a double. Integers too large for 64 bits are rounded
// to the nearest representable double.
func parseNumericLiteral(lit string) (float64, error) {
	if len(lit) > 2 && lit[0] == '0' {
		base := 0
		switch lit[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if v, err := strconv.ParseUint(lit[2:], base, 64); err == nil {
				return float64(v), nil
			}
			n, ok := new(big.Int).SetString(lit[2:], base)
			if !ok {
				return 0, strconv.ErrSyntax
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f, nil
		}
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil && !math.IsInf(v, 0) {
		return 0, err
	}
	return v, nil
}

func (p *Parser) parseBoolean() (ast.Expr, bool) {
	return &ast.Bool{
		ValuePos: p.curToken.StartPosition,
		Value:    p.curTokenIs(token.TRUE),
	}, true
}

func (p *Parser) parseNull() (ast.Expr, bool) {
	return &ast.Null{NullPos: p.curToken.StartPosition}, true
}

func (p *Parser) parseString() (ast.Expr, bool) {
	return &ast.String{
		ValuePos: p.curToken.StartPosition,
		EndPos:   p.curToken.EndPosition,
		Value:    p.curToken.Literal,
	}, true
}

func (p *Parser) parseList() (ast.Expr, bool) {
	lbrack := p.curToken.StartPosition
	items, ok := p.parseExprList("array literal", token.RBRACKET)
	if !ok {
		return nil, false
	}
	return &ast.List{Lbrack: lbrack, Items: items, Rbrack: p.curToken.StartPosition}, true
}

// parseObject parses "{key: value, ...}". Keys may be identifiers,
// keywords, strings or numbers. "{name}" is shorthand for "{name: name}".
func (p *Parser) parseObject() (ast.Expr, bool) {
	obj := &ast.Object{Lbrace: p.curToken.StartPosition}
	for !p.peekTokenIs(token.RBRACE) {
		if err := p.nextToken(); err != nil {
			return nil, false
		}
		prop := p.parseProperty()
		if prop == nil {
			return nil, false
		}
		obj.Props = append(obj.Props, prop)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek("object literal", token.RBRACE) {
		return nil, false
	}
	obj.Rbrace = p.curToken.StartPosition
	return obj, true
}

func (p *Parser) parseProperty() *ast.Property {
	keyTok := p.curToken
	prop := &ast.Property{KeyPos: keyTok.StartPosition}
	switch {
	case keyTok.Type == token.STRING:
		prop.Key = keyTok.Literal
	case keyTok.Type == token.NUMBER:
		value, err := parseNumericLiteral(keyTok.Literal)
		if err != nil {
			p.setTokenError(keyTok, "invalid number: %s", keyTok.Literal)
			return nil
		}
		prop.Key = formatPropertyNumber(value)
	case isPropertyName(keyTok):
		prop.Key = keyTok.Literal
	default:
		p.setTokenError(keyTok, "unexpected %s in object literal (expected property name)", tokenDescription(keyTok))
		return nil
	}
	if keyTok.Type == token.IDENT && (p.peekTokenIs(token.COMMA) || p.peekTokenIs(token.RBRACE)) {
		prop.Value = p.newIdent(keyTok)
		return prop
	}
	if !p.expectPeek("object literal", token.COLON) {
		return nil
	}
	if err := p.nextToken(); err != nil {
		return nil
	}
	if prop.Value = p.parseExpression(LOWEST); prop.Value == nil {
		return nil
	}
	return prop
}

// formatPropertyNumber renders a numeric key the way it is converted to a
// property name at runtime.
func formatPropertyNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseFunc parses a function literal or declaration:
// "function [name](params) { body }".
func (p *Parser) parseFunc() (ast.Expr, bool) {
	fn := &ast.Func{FuncPos: p.curToken.StartPosition}
	if p.peekTokenIs(token.IDENT) {
		p.nextToken()
		fn.Name = p.newIdent(p.curToken)
	}
	if !p.expectPeek("function", token.LPAREN) {
		return nil, false
	}
	params, ok := p.parseFuncParams()
	if !ok {
		return nil, false
	}
	fn.Params = params
	if !p.expectPeek("function", token.LBRACE) {
		return nil, false
	}
	body := p.parseBlock()
	if body == nil {
		return nil, false
	}
	fn.Body = body
	return fn, true
}

func (p *Parser) parseFuncParams() ([]*ast.Ident, bool) {
	params := make([]*ast.Ident, 0)
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params, true
	}
	for {
		if !p.expectPeek("function parameters", token.IDENT) {
			return nil, false
		}
		params = append(params, p.newIdent(p.curToken))
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek("function parameters", token.RPAREN) {
		return nil, false
	}
	return params, true
}
