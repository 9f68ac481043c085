package ast

import (
	"bytes"
	"strings"

	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// DeclKind is the keyword that introduced a variable declaration.
type DeclKind string

const (
	DeclVar   DeclKind = "var"
	DeclLet   DeclKind = "let"
	DeclConst DeclKind = "const"
)

// IsLexical returns true for block-scoped declarations.
func (k DeclKind) IsLexical() bool {
	return k == DeclLet || k == DeclConst
}

// Declarator binds one name within a variable declaration.
type Declarator struct {
	Name  *Ident // declared name
	Value Expr   // initializer; nil if absent
}

// VarDecl declares one or more variables, e.g. "let a = 1, b".
type VarDecl struct {
	DeclPos token.Position // position of the keyword
	Kind    DeclKind
	Decls   []*Declarator
}

func (s *VarDecl) stmtNode() {}

func (s *VarDecl) Pos() token.Position { return s.DeclPos }
func (s *VarDecl) End() token.Position {
	if len(s.Decls) == 0 {
		return s.DeclPos.Advance(len(s.Kind))
	}
	last := s.Decls[len(s.Decls)-1]
	if last.Value != nil {
		return last.Value.End()
	}
	return last.Name.End()
}

func (s *VarDecl) String() string {
	parts := make([]string, 0, len(s.Decls))
	for _, d := range s.Decls {
		if d.Value != nil {
			parts = append(parts, d.Name.Name+" = "+d.Value.String())
		} else {
			parts = append(parts, d.Name.Name)
		}
	}
	return string(s.Kind) + " " + strings.Join(parts, ", ")
}

// FuncDecl is a named function declaration statement.
type FuncDecl struct {
	Func *Func // function definition; Func.Name is never nil
}

func (s *FuncDecl) stmtNode() {}

func (s *FuncDecl) Pos() token.Position { return s.Func.Pos() }
func (s *FuncDecl) End() token.Position { return s.Func.End() }
func (s *FuncDecl) String() string      { return s.Func.String() }

// Return exits the current function, optionally with a value.
type Return struct {
	ReturnPos token.Position // position of "return"
	Value     Expr           // result; nil for a bare return
}

func (s *Return) stmtNode() {}

func (s *Return) Pos() token.Position { return s.ReturnPos }
func (s *Return) End() token.Position {
	if s.Value != nil {
		return s.Value.End()
	}
	return s.ReturnPos.Advance(6)
}

func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// If is a conditional statement.
type If struct {
	IfPos       token.Position // position of "if"
	Cond        Expr           // condition
	Consequence Stmt           // then branch
	Alternative Stmt           // else branch; nil if absent
}

func (s *If) stmtNode() {}

func (s *If) Pos() token.Position { return s.IfPos }
func (s *If) End() token.Position {
	if s.Alternative != nil {
		return s.Alternative.End()
	}
	return s.Consequence.End()
}

func (s *If) String() string {
	var out bytes.Buffer
	out.WriteString("if (")
	out.WriteString(s.Cond.String())
	out.WriteString(") ")
	out.WriteString(s.Consequence.String())
	if s.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(s.Alternative.String())
	}
	return out.String()
}

// While is a pre-tested loop.
type While struct {
	WhilePos token.Position
	Cond     Expr
	Body     Stmt
}

func (s *While) stmtNode() {}

func (s *While) Pos() token.Position { return s.WhilePos }
func (s *While) End() token.Position { return s.Body.End() }

func (s *While) String() string {
	return "while (" + s.Cond.String() + ") " + s.Body.String()
}

// DoWhile is a post-tested loop.
type DoWhile struct {
	DoPos  token.Position
	Body   Stmt
	Cond   Expr
	Rparen token.Position // position of the closing ")"
}

func (s *DoWhile) stmtNode() {}

func (s *DoWhile) Pos() token.Position { return s.DoPos }
func (s *DoWhile) End() token.Position { return s.Rparen.Advance(1) }

func (s *DoWhile) String() string {
	return "do " + s.Body.String() + " while (" + s.Cond.String() + ")"
}

// For is a C-style "for (init; cond; post)" loop. Any clause may be nil.
type For struct {
	ForPos token.Position
	Init   Stmt // *VarDecl or *ExprStmt
	Cond   Expr
	Post   Expr
	Body   Stmt
}

func (s *For) stmtNode() {}

func (s *For) Pos() token.Position { return s.ForPos }
func (s *For) End() token.Position { return s.Body.End() }

func (s *For) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	if s.Init != nil {
		out.WriteString(s.Init.String())
	}
	out.WriteString("; ")
	if s.Cond != nil {
		out.WriteString(s.Cond.String())
	}
	out.WriteString("; ")
	if s.Post != nil {
		out.WriteString(s.Post.String())
	}
	out.WriteString(") ")
	out.WriteString(s.Body.String())
	return out.String()
}

// Break exits the innermost loop.
type Break struct {
	BreakPos token.Position
}

func (s *Break) stmtNode() {}

func (s *Break) Pos() token.Position { return s.BreakPos }
func (s *Break) End() token.Position { return s.BreakPos.Advance(5) }
func (s *Break) String() string      { return "break" }

// Continue starts the next iteration of the innermost loop.
type Continue struct {
	ContinuePos token.Position
}

func (s *Continue) stmtNode() {}

func (s *Continue) Pos() token.Position { return s.ContinuePos }
func (s *Continue) End() token.Position { return s.ContinuePos.Advance(8) }
func (s *Continue) String() string      { return "continue" }

// Throw raises an exception value.
type Throw struct {
	ThrowPos token.Position
	Value    Expr
}

func (s *Throw) stmtNode() {}

func (s *Throw) Pos() token.Position { return s.ThrowPos }
func (s *Throw) End() token.Position { return s.Value.End() }
func (s *Throw) String() string      { return "throw " + s.Value.String() }

// Block is a braced list of statements that opens a lexical scope.
type Block struct {
	Lbrace token.Position // position of "{"
	Stmts  []Stmt
	Rbrace token.Position // position of "}"
}

func (s *Block) stmtNode() {}

func (s *Block) Pos() token.Position { return s.Lbrace }
func (s *Block) End() token.Position { return s.Rbrace.Advance(1) }

func (s *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	for _, stmt := range s.Stmts {
		out.WriteString(" ")
		out.WriteString(stmt.String())
		out.WriteString(";")
	}
	out.WriteString(" }")
	return out.String()
}

// Empty is a lone semicolon.
type Empty struct {
	Semicolon token.Position
}

func (s *Empty) stmtNode() {}

func (s *Empty) Pos() token.Position { return s.Semicolon }
func (s *Empty) End() token.Position { return s.Semicolon.Advance(1) }
func (s *Empty) String() string      { return ";" }

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) stmtNode() {}

func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }
func (s *ExprStmt) End() token.Position { return s.X.End() }
func (s *ExprStmt) String() string      { return s.X.String() }
