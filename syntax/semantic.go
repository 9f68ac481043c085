package syntax

import (
	"fmt"

	"github.com/deepnoodle-ai/scriptc/ast"
	"github.com/oleiade/lane"
)

type bindingKind int

const (
	bindVar bindingKind = iota
	bindLet
	bindConst
	bindFunc
	bindParam
)

func (k bindingKind) lexical() bool {
	return k == bindLet || k == bindConst
}

func kindOf(d ast.DeclKind) bindingKind {
	switch d {
	case ast.DeclLet:
		return bindLet
	case ast.DeclConst:
		return bindConst
	default:
		return bindVar
	}
}

type scope struct {
	parent   *scope
	names    map[string]bindingKind
	function bool
}

func newScope(parent *scope, function bool) *scope {
	return &scope{parent: parent, names: map[string]bindingKind{}, function: function}
}

func (s *scope) lookup(name string) (bindingKind, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if kind, ok := cur.names[name]; ok {
			return kind, true
		}
	}
	return 0, false
}

// frame records what a visited node changed so that it can be undone when
// the walk leaves the node.
type frame struct {
	pushedScope bool
	loop        bool
	function    bool
	savedLoops  int
}

// SemanticValidator enforces the scoping and control-flow rules that the
// grammar alone cannot express:
//
//   - let/const names are unique within their scope
//   - const declarations have an initializer
//   - const bindings are never assigned or updated
//   - assignment and update targets are identifiers or property accesses
//   - return appears only inside a function
//   - break and continue appear only inside a loop
type SemanticValidator struct {
	scope  *scope
	frames *lane.Stack
	loops  int
	funcs  int
	body   *ast.Block
	errs   []ValidationError
}

// NewSemanticValidator returns a validator ready for use. A validator may
// be reused across programs but not concurrently.
func NewSemanticValidator() *SemanticValidator {
	return &SemanticValidator{}
}

// Validate implements Validator.
func (v *SemanticValidator) Validate(program *ast.Program) []ValidationError {
	v.scope = nil
	v.frames = lane.NewStack()
	v.loops, v.funcs = 0, 0
	v.body = nil
	v.errs = nil
	ast.Walk(v, program)
	return v.errs
}

// Visit implements ast.Visitor. Every non-nil node pushes a frame which is
// popped by the matching Visit(nil) after its children are walked.
func (v *SemanticValidator) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		v.leave(v.frames.Pop().(*frame))
		return nil
	}
	f := &frame{}
	v.frames.Push(f)

	switch n := node.(type) {
	case *ast.Program:
		v.scope = newScope(nil, true)
		f.pushedScope = true
		v.hoist(n.Stmts)

	case *ast.Block:
		if n == v.body {
			// Function bodies share the scope holding the parameters.
			v.body = nil
		} else {
			v.scope = newScope(v.scope, false)
			f.pushedScope = true
		}
		v.hoist(n.Stmts)

	case *ast.Func:
		v.scope = newScope(v.scope, true)
		f.pushedScope = true
		f.function = true
		f.savedLoops = v.loops
		v.loops = 0
		v.funcs++
		if n.Name != nil {
			v.scope.names[n.Name.Name] = bindFunc
		}
		for _, p := range n.Params {
			v.scope.names[p.Name] = bindParam
		}
		v.body = n.Body

	case *ast.For:
		v.scope = newScope(v.scope, false)
		f.pushedScope = true
		f.loop = true
		v.loops++
		if decl, ok := n.Init.(*ast.VarDecl); ok && decl.Kind.IsLexical() {
			v.declareLexical(decl)
		}

	case *ast.While, *ast.DoWhile:
		f.loop = true
		v.loops++

	case *ast.VarDecl:
		v.checkVarDecl(n)

	case *ast.Assign:
		v.checkTarget(n.Target, "assignment")

	case *ast.Update:
		v.checkTarget(n.X, "update")

	case *ast.Return:
		if v.funcs == 0 {
			v.errorf(n, "return statement outside of function")
		}

	case *ast.Break:
		if v.loops == 0 {
			v.errorf(n, "break statement outside of loop")
		}

	case *ast.Continue:
		if v.loops == 0 {
			v.errorf(n, "continue statement outside of loop")
		}
	}
	return v
}

func (v *SemanticValidator) leave(f *frame) {
	if f.pushedScope {
		v.scope = v.scope.parent
	}
	if f.loop {
		v.loops--
	}
	if f.function {
		v.loops = f.savedLoops
		v.funcs--
	}
}

// hoist declares the lexical bindings and function declarations that appear
// directly in a statement list, so references earlier in the list resolve
// to them.
func (v *SemanticValidator) hoist(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VarDecl:
			if s.Kind.IsLexical() {
				v.declareLexical(s)
			}
		case *ast.FuncDecl:
			v.declare(v.scope, s.Func.Name, bindFunc)
		}
	}
}

func (v *SemanticValidator) declareLexical(decl *ast.VarDecl) {
	kind := kindOf(decl.Kind)
	for _, d := range decl.Decls {
		v.declare(v.scope, d.Name, kind)
	}
}

func (v *SemanticValidator) declare(s *scope, name *ast.Ident, kind bindingKind) {
	if existing, ok := s.names[name.Name]; ok && (kind.lexical() || existing.lexical()) {
		v.errorf(name, "identifier %q has already been declared", name.Name)
		return
	}
	if existing, ok := s.names[name.Name]; ok && existing != bindVar && kind == bindVar {
		return
	}
	s.names[name.Name] = kind
}

func (v *SemanticValidator) checkVarDecl(decl *ast.VarDecl) {
	for _, d := range decl.Decls {
		if decl.Kind == ast.DeclConst && d.Value == nil {
			v.errorf(d.Name, "missing initializer in const declaration %q", d.Name.Name)
		}
	}
	if decl.Kind.IsLexical() {
		return
	}
	// var is function scoped: it conflicts with any lexical binding of the
	// same name between here and the enclosing function.
	for _, d := range decl.Decls {
		s := v.scope
		conflict := false
		for ; !s.function; s = s.parent {
			if kind, ok := s.names[d.Name.Name]; ok && kind.lexical() {
				conflict = true
				break
			}
		}
		if conflict {
			v.errorf(d.Name, "identifier %q has already been declared", d.Name.Name)
			continue
		}
		v.declare(s, d.Name, bindVar)
	}
}

func (v *SemanticValidator) checkTarget(target ast.Expr, what string) {
	switch t := target.(type) {
	case *ast.Ident:
		if kind, ok := v.scope.lookup(t.Name); ok && kind == bindConst {
			v.errorf(t, "assignment to constant variable %q", t.Name)
		}
	case *ast.Member, *ast.Index:
	default:
		v.errorf(target, "invalid %s target", what)
	}
}

func (v *SemanticValidator) errorf(node ast.Node, format string, args ...interface{}) {
	v.errs = append(v.errs, ValidationError{
		Message:  fmt.Sprintf(format, args...),
		Node:     node,
		Position: node.Pos(),
	})
}

// Validate runs the semantic validator over a program.
func Validate(program *ast.Program) []ValidationError {
	return NewSemanticValidator().Validate(program)
}
