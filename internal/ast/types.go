package ast

// TypeExpr is a source-level type expression, as written by the user.
// It is closed over the forms the type expander (internal/elaborate)
// knows how to fold down to the closed types package algebra.
type TypeExpr interface {
	Node
	typeExprNode()
}

// SimpleTypeExpr names one of the three scalar base types.
type SimpleTypeExpr struct {
	Name string // "bool" | "int" | "real"
	Pos  Pos
}

func (s *SimpleTypeExpr) Position() Pos  { return s.Pos }
func (s *SimpleTypeExpr) typeExprNode() {}

// IntRangeTypeExpr is `subrange[lo, hi] of int`; the bounds are arbitrary
// expressions that must fold to integer constants.
type IntRangeTypeExpr struct {
	Lo, Hi Expr
	Pos    Pos
}

func (r *IntRangeTypeExpr) Position() Pos  { return r.Pos }
func (r *IntRangeTypeExpr) typeExprNode() {}

// EnumTypeExpr is `Red | Green | Blue`.
type EnumTypeExpr struct {
	Constructors []string
	Pos          Pos
}

func (e *EnumTypeExpr) Position() Pos  { return e.Pos }
func (e *EnumTypeExpr) typeExprNode() {}

// UserTypeExpr references a previously declared type by name (an alias or
// a free type).
type UserTypeExpr struct {
	Name string
	Pos  Pos
}

func (u *UserTypeExpr) Position() Pos  { return u.Pos }
func (u *UserTypeExpr) typeExprNode() {}

// RecordTypeExpr is `{ a: T1; b: T2; ... }`.
type RecordTypeExpr struct {
	Fields []RecordTypeField
	Pos    Pos
}

type RecordTypeField struct {
	Name string
	Type TypeExpr
}

func (r *RecordTypeExpr) Position() Pos  { return r.Pos }
func (r *RecordTypeExpr) typeExprNode() {}

// TupleTypeExpr is `(T1, T2, ...)`.
type TupleTypeExpr struct {
	Elems []TypeExpr
	Pos   Pos
}

func (t *TupleTypeExpr) Position() Pos  { return t.Pos }
func (t *TupleTypeExpr) typeExprNode() {}

// ArrayTypeExpr is `T ^ n`.
type ArrayTypeExpr struct {
	Elem TypeExpr
	Size Expr
	Pos  Pos
}

func (a *ArrayTypeExpr) Position() Pos  { return a.Pos }
func (a *ArrayTypeExpr) typeExprNode() {}
