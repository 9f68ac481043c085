package ast

// Visitor defines the interface for AST traversal. If Visit returns nil,
// children of the node are not visited. Otherwise, the returned Visitor
// is used to visit children.
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order. It starts by calling
// v.Visit(node); if the returned visitor w is not nil, Walk is invoked
// recursively with visitor w for each of the non-nil children of node.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		walkStmts(v, n.Stmts)

	// Statements
	case *VarDecl:
		for _, d := range n.Decls {
			Walk(v, d.Name)
			if d.Value != nil {
				Walk(v, d.Value)
			}
		}
	case *FuncDecl:
		Walk(v, n.Func)
	case *Return:
		if n.Value != nil {
			Walk(v, n.Value)
		}
	case *If:
		Walk(v, n.Cond)
		Walk(v, n.Consequence)
		if n.Alternative != nil {
			Walk(v, n.Alternative)
		}
	case *While:
		Walk(v, n.Cond)
		Walk(v, n.Body)
	case *DoWhile:
		Walk(v, n.Body)
		Walk(v, n.Cond)
	case *For:
		if n.Init != nil {
			Walk(v, n.Init)
		}
		if n.Cond != nil {
			Walk(v, n.Cond)
		}
		if n.Post != nil {
			Walk(v, n.Post)
		}
		Walk(v, n.Body)
	case *Throw:
		Walk(v, n.Value)
	case *Block:
		walkStmts(v, n.Stmts)
	case *ExprStmt:
		Walk(v, n.X)
	case *Break, *Continue, *Empty:
		// No children

	// Expressions
	case *Prefix:
		Walk(v, n.X)
	case *Update:
		Walk(v, n.X)
	case *Infix:
		Walk(v, n.X)
		Walk(v, n.Y)
	case *Ternary:
		Walk(v, n.Cond)
		Walk(v, n.IfTrue)
		Walk(v, n.IfFalse)
	case *Assign:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *Member:
		Walk(v, n.X)
		Walk(v, n.Name)
	case *Index:
		Walk(v, n.X)
		Walk(v, n.Index)
	case *Call:
		Walk(v, n.Fun)
		walkExprs(v, n.Args)
	case *New:
		Walk(v, n.Fun)
		walkExprs(v, n.Args)
	case *List:
		walkExprs(v, n.Items)
	case *Object:
		for _, p := range n.Props {
			Walk(v, p.Value)
		}
	case *Func:
		if n.Name != nil {
			Walk(v, n.Name)
		}
		for _, p := range n.Params {
			Walk(v, p)
		}
		Walk(v, n.Body)
	case *Ident, *Number, *String, *Bool, *Null:
		// Leaf nodes
	}

	v.Visit(nil)
}

func walkStmts(v Visitor, stmts []Stmt) {
	for _, s := range stmts {
		Walk(v, s)
	}
}

func walkExprs(v Visitor, exprs []Expr) {
	for _, e := range exprs {
		Walk(v, e)
	}
}

// Inspect traverses an AST in depth-first order. It calls f(node) for each
// node; if f returns true, Inspect invokes f recursively for each of the
// non-nil children of node.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if node == nil {
		return nil
	}
	if f(node) {
		return f
	}
	return nil
}
