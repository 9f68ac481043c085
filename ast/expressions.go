package ast

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// Ident is an expression node that refers to a variable by name.
type Ident struct {
	NamePos token.Position // position of identifier
	Name    string         // identifier name
}

func (x *Ident) exprNode() {}

func (x *Ident) Pos() token.Position { return x.NamePos }
func (x *Ident) End() token.Position { return x.NamePos.Advance(utf8.RuneCountInString(x.Name)) }

func (x *Ident) String() string { return x.Name }

// Prefix is an operator expression where the operator precedes the operand.
// Examples include "!x", "-x" and "typeof x".
type Prefix struct {
	OpPos token.Position // position of operator
	Op    string         // operator: "!", "-", "+", "~", "typeof"
	X     Expr           // operand
}

func (x *Prefix) exprNode() {}

func (x *Prefix) Pos() token.Position { return x.OpPos }
func (x *Prefix) End() token.Position { return x.X.End() }

func (x *Prefix) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(x.Op)
	if x.Op == "typeof" {
		out.WriteString(" ")
	}
	out.WriteString(x.X.String())
	out.WriteString(")")
	return out.String()
}

// Update is an increment or decrement, either prefix ("++x") or postfix
// ("x++").
type Update struct {
	Start  token.Position // position of first token
	OpPos  token.Position // position of operator
	Op     string         // "++" or "--"
	Prefix bool           // true for "++x"
	X      Expr           // target
}

func (x *Update) exprNode() {}

func (x *Update) Pos() token.Position { return x.Start }

func (x *Update) End() token.Position {
	if x.Prefix {
		return x.X.End()
	}
	return x.OpPos.Advance(2)
}

func (x *Update) String() string {
	if x.Prefix {
		return "(" + x.Op + x.X.String() + ")"
	}
	return "(" + x.X.String() + x.Op + ")"
}

// Infix is an operator expression where the operator is between the operands.
// Examples include "x + y", "a && b" and "a ?? b".
type Infix struct {
	Start token.Position // position of first token
	X     Expr           // left operand
	OpPos token.Position // position of operator
	Op    string         // operator: "+", "-", "*", "/", etc.
	Y     Expr           // right operand
}

func (x *Infix) exprNode() {}

func (x *Infix) Pos() token.Position { return x.Start }
func (x *Infix) End() token.Position { return x.Y.End() }

func (x *Infix) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(x.X.String())
	out.WriteString(" " + x.Op + " ")
	out.WriteString(x.Y.String())
	out.WriteString(")")
	return out.String()
}

// Ternary is an expression node that defines a ternary expression and evaluates
// to one of two values based on a condition.
type Ternary struct {
	Start    token.Position // position of first token
	Cond     Expr           // condition
	Question token.Position // position of "?"
	IfTrue   Expr           // value if condition is true
	Colon    token.Position // position of ":"
	IfFalse  Expr           // value if condition is false
}

func (x *Ternary) exprNode() {}

func (x *Ternary) Pos() token.Position { return x.Start }
func (x *Ternary) End() token.Position { return x.IfFalse.End() }

func (x *Ternary) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(x.Cond.String())
	out.WriteString(" ? ")
	out.WriteString(x.IfTrue.String())
	out.WriteString(" : ")
	out.WriteString(x.IfFalse.String())
	out.WriteString(")")
	return out.String()
}

// Assign stores a value into a target, e.g. "x = 1" or "o.count += 2".
type Assign struct {
	Start  token.Position // position of first token
	Target Expr           // *Ident, *Member or *Index after validation
	OpPos  token.Position // position of operator
	Op     string         // "=", "+=", "-=", "*=", "/=", "%="
	Value  Expr
}

func (x *Assign) exprNode() {}

func (x *Assign) Pos() token.Position { return x.Start }
func (x *Assign) End() token.Position { return x.Value.End() }

func (x *Assign) String() string {
	return x.Target.String() + " " + x.Op + " " + x.Value.String()
}

// Member is a property access with dot notation, e.g. "obj.name".
type Member struct {
	Start  token.Position // position of first token
	X      Expr           // object expression
	Period token.Position // position of "."
	Name   *Ident         // property name
}

func (x *Member) exprNode() {}

func (x *Member) Pos() token.Position { return x.Start }
func (x *Member) End() token.Position { return x.Name.End() }

func (x *Member) String() string {
	return x.X.String() + "." + x.Name.Name
}

// Index is a computed property access, e.g. "arr[i]".
type Index struct {
	Start  token.Position // position of first token
	X      Expr           // object expression
	Lbrack token.Position // position of "["
	Index  Expr           // key expression
	Rbrack token.Position // position of "]"
}

func (x *Index) exprNode() {}

func (x *Index) Pos() token.Position { return x.Start }
func (x *Index) End() token.Position { return x.Rbrack.Advance(1) }

func (x *Index) String() string {
	return "(" + x.X.String() + "[" + x.Index.String() + "])"
}

// Call is an expression node that describes the invocation of a function.
type Call struct {
	Start  token.Position // position of first token
	Fun    Expr           // function expression
	Lparen token.Position // position of "("
	Args   []Expr         // function arguments
	Rparen token.Position // position of ")"
}

func (x *Call) exprNode() {}

func (x *Call) Pos() token.Position { return x.Start }
func (x *Call) End() token.Position { return x.Rparen.Advance(1) }

func (x *Call) String() string {
	return x.Fun.String() + "(" + joinExprs(x.Args) + ")"
}

// New is a constructor invocation, e.g. "new Error(msg)".
type New struct {
	NewPos token.Position // position of "new"
	Fun    Expr           // constructor expression
	Args   []Expr         // arguments; empty when the parentheses are omitted
	Rparen token.Position // position of ")"; invalid when omitted
}

func (x *New) exprNode() {}

func (x *New) Pos() token.Position { return x.NewPos }
func (x *New) End() token.Position {
	if x.Rparen.IsValid() {
		return x.Rparen.Advance(1)
	}
	return x.Fun.End()
}

func (x *New) String() string {
	return "new " + x.Fun.String() + "(" + joinExprs(x.Args) + ")"
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}
