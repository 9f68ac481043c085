package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// Number is a numeric literal. All numbers are IEEE-754 doubles.
type Number struct {
	ValuePos token.Position // literal position
	Literal  string         // literal text as written
	Value    float64        // decoded value
}

func (x *Number) exprNode() {}

func (x *Number) Pos() token.Position { return x.ValuePos }
func (x *Number) End() token.Position { return x.ValuePos.Advance(len(x.Literal)) }
func (x *Number) String() string      { return x.Literal }

// String is a string literal.
type String struct {
	ValuePos token.Position // position of the opening quote
	EndPos   token.Position // position of the closing quote
	Value    string         // decoded value
}

func (x *String) exprNode() {}

func (x *String) Pos() token.Position { return x.ValuePos }
func (x *String) End() token.Position { return x.EndPos.Advance(1) }
func (x *String) String() string      { return strconv.Quote(x.Value) }

// Bool is a boolean literal.
type Bool struct {
	ValuePos token.Position // literal position
	Value    bool           // literal value
}

func (x *Bool) exprNode() {}

func (x *Bool) Pos() token.Position { return x.ValuePos }
func (x *Bool) End() token.Position {
	if x.Value {
		return x.ValuePos.Advance(4)
	}
	return x.ValuePos.Advance(5)
}

func (x *Bool) String() string {
	if x.Value {
		return "true"
	}
	return "false"
}

// Null is the null literal.
type Null struct {
	NullPos token.Position
}

func (x *Null) exprNode() {}

func (x *Null) Pos() token.Position { return x.NullPos }
func (x *Null) End() token.Position { return x.NullPos.Advance(4) }
func (x *Null) String() string      { return "null" }

// List is an array literal, e.g. "[1, 2, 3]".
type List struct {
	Lbrack token.Position // position of "["
	Items  []Expr         // elements
	Rbrack token.Position // position of "]"
}

func (x *List) exprNode() {}

func (x *List) Pos() token.Position { return x.Lbrack }
func (x *List) End() token.Position { return x.Rbrack.Advance(1) }
func (x *List) String() string      { return "[" + joinExprs(x.Items) + "]" }

// Property is one "key: value" entry of an object literal.
type Property struct {
	KeyPos token.Position // position of the key
	Key    string         // property name; identifiers, strings and numbers are normalized to text
	Value  Expr
}

// Object is an object literal, e.g. "{a: 1, 'b': 2}".
type Object struct {
	Lbrace token.Position // position of "{"
	Props  []*Property
	Rbrace token.Position // position of "}"
}

func (x *Object) exprNode() {}

func (x *Object) Pos() token.Position { return x.Lbrace }
func (x *Object) End() token.Position { return x.Rbrace.Advance(1) }

func (x *Object) String() string {
	parts := make([]string, 0, len(x.Props))
	for _, p := range x.Props {
		parts = append(parts, strconv.Quote(p.Key)+": "+p.Value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Func is a function literal. Declarations wrap it in a FuncDecl.
type Func struct {
	FuncPos token.Position // position of "function"
	Name    *Ident         // function name; nil for anonymous expressions
	Params  []*Ident       // parameter names
	Body    *Block         // function body
}

func (x *Func) exprNode() {}

func (x *Func) Pos() token.Position { return x.FuncPos }
func (x *Func) End() token.Position { return x.Body.End() }

func (x *Func) String() string {
	var out bytes.Buffer
	out.WriteString("function")
	if x.Name != nil {
		out.WriteString(" ")
		out.WriteString(x.Name.Name)
	}
	params := make([]string, 0, len(x.Params))
	for _, p := range x.Params {
		params = append(params, p.Name)
	}
	out.WriteString("(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(x.Body.String())
	return out.String()
}

// DisplayName returns the function name, or "" for anonymous functions.
func (x *Func) DisplayName() string {
	if x.Name == nil {
		return ""
	}
	return x.Name.Name
}
