// Package ast defines the abstract syntax tree for the script language
// accepted by the compiler.
package ast

import (
	"strings"

	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// Node is any syntax tree node. Pos is the first character of the node and
// End the first character after it; String renders source-like text.
type Node interface {
	Pos() token.Position
	End() token.Position
	String() string
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value
// and may be embedded within other expressions.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node of a parsed source file.
type Program struct {
	URL   string // display URL of the source, possibly empty
	Stmts []Stmt // top-level statements
}

func (p *Program) Pos() token.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[0].Pos()
	}
	return token.NoPos
}

func (p *Program) End() token.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[len(p.Stmts)-1].End()
	}
	return token.NoPos
}

// String renders one statement per line.
func (p *Program) String() string {
	lines := make([]string, len(p.Stmts))
	for i, stmt := range p.Stmts {
		lines[i] = stmt.String()
	}
	return strings.Join(lines, "\n")
}
