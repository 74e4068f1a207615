// Package ast defines the surface syntax tree consumed by the elaborator.
// Parsing itself lives outside this module; callers construct (or decode
// from a fixture) a *Program value and hand it to internal/elaborate.
package ast

import "fmt"

// Pos is a source position, attached to every node and echoed verbatim in
// diagnostics.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a range in source code, used by diagnostics that want to
// underline more than a single point.
type Span struct {
	Start Pos
	End   Pos
}

// Node is the base interface implemented by every AST node.
type Node interface {
	Position() Pos
}

// Program is a parsed source file: a sequence of top-level declarations in
// source order.
type Program struct {
	Decls []Decl
}

// Decl is a top-level declaration: a type declaration, a constant
// declaration, or a node declaration.
type Decl interface {
	Node
	declNode()
}

// TypeDecl declares a type alias or a free (abstract) type.
//
//	type T = { a: int; b: bool };
//	type Color = Red | Green | Blue;   -- enum, represented as EnumTypeExpr
//	type Opaque;                        -- free type, Definition == nil
type TypeDecl struct {
	Name       string
	Definition TypeExpr // nil for a free (abstract) type
	Pos        Pos
}

func (t *TypeDecl) Position() Pos { return t.Pos }
func (t *TypeDecl) declNode()     {}

// ConstDecl declares a named constant, optionally typed.
//
//	const Max: int = 10;
//	const Pi = 3;          -- untyped, type inferred from the value
//	const N: int;          -- free/external constant, Value == nil
type ConstDecl struct {
	Name  string
	Type  TypeExpr // optional declared type, nil if untyped
	Value Expr     // nil for an external/free constant
	Pos   Pos
}

func (c *ConstDecl) Position() Pos { return c.Pos }
func (c *ConstDecl) declNode()     {}

// NodeDecl declares a node (the Lustre unit of computation).
type NodeDecl struct {
	Name     string
	Params   []string // always empty: parametric nodes are rejected
	Inputs   []*VarDecl
	Outputs  []*VarDecl
	Locals   []*VarDecl
	Requires []Expr // contract assumptions
	Ensures  []Expr // contract guarantees
	Body     []Stmt
	IsMain   bool
	Pos      Pos
}

func (n *NodeDecl) Position() Pos { return n.Pos }
func (n *NodeDecl) declNode()     {}

// VarDecl is a single input/output/local declaration.
type VarDecl struct {
	Name    string
	Type    TypeExpr
	Clocked bool // true if the variable carries an explicit clock; rejected
	Const   bool // true for "const" inputs/locals
	Pos     Pos
}

func (v *VarDecl) Position() Pos { return v.Pos }

// Stmt is a node-body statement.
type Stmt interface {
	Node
	stmtNode()
}

// Equation is `lhs = expr`, where lhs may bind several identifiers at once
// (e.g. the outputs of a node call).
type Equation struct {
	LHS []string
	RHS Expr
	Pos Pos
}

func (e *Equation) Position() Pos { return e.Pos }
func (e *Equation) stmtNode()     {}

// Assert is an `assert expr` statement.
type Assert struct {
	Expr Expr
	Pos  Pos
}

func (a *Assert) Position() Pos { return a.Pos }
func (a *Assert) stmtNode()     {}

// PropertyAnnotation records a `--%PROPERTY` style annotation.
type PropertyAnnotation struct {
	Name string
	Expr Expr
	Pos  Pos
}

func (p *PropertyAnnotation) Position() Pos { return p.Pos }
func (p *PropertyAnnotation) stmtNode()     {}
