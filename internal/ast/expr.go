package ast

// Expr is the closed set of surface expression forms. Forms this
// elaborator does not support (When, Current, Fby, ArraySlice,
// ArrayConcat, OneHot, With) still have AST nodes here
// so the evaluator can recognize and reject them with a precise
// diagnostic, rather than never being representable at all.
type Expr interface {
	Node
	exprNode()
}

// Ident is a bare identifier reference (variable, constant, or enum
// constructor — disambiguated by the typing context at evaluation time).
type Ident struct {
	Name string
	Pos  Pos
}

func (i *Ident) Position() Pos { return i.Pos }
func (i *Ident) exprNode()     {}

// IntLit, BoolLit, RealLit are scalar literals. Integer literals carry
// their text so the evaluator can parse them with math/big: fixed-width
// integers are insufficient for industrial subrange bounds.
type IntLit struct {
	Text string
	Pos  Pos
}

func (l *IntLit) Position() Pos { return l.Pos }
func (l *IntLit) exprNode()     {}

type RealLit struct {
	Text string
	Pos  Pos
}

func (l *RealLit) Position() Pos { return l.Pos }
func (l *RealLit) exprNode()     {}

type BoolLit struct {
	Value bool
	Pos   Pos
}

func (l *BoolLit) Position() Pos { return l.Pos }
func (l *BoolLit) exprNode()     {}

// FieldAccess is `e.field`.
type FieldAccess struct {
	Record Expr
	Field  string
	Pos    Pos
}

func (f *FieldAccess) Position() Pos { return f.Pos }
func (f *FieldAccess) exprNode()     {}

// IndexAccess is `e[idx]`, used for both tuple and array projection; idx
// must fold to a compile-time integer constant.
type IndexAccess struct {
	Base  Expr
	Index Expr
	Pos   Pos
}

func (i *IndexAccess) Position() Pos { return i.Pos }
func (i *IndexAccess) exprNode()     {}

// ExprList is a bare comma-separated expression list, flattened and
// treated as a tuple by the evaluator.
type ExprList struct {
	Elems []Expr
	Pos   Pos
}

func (e *ExprList) Position() Pos { return e.Pos }
func (e *ExprList) exprNode()     {}

// TupleExpr is `(e1, e2, ...)`.
type TupleExpr struct {
	Elems []Expr
	Pos   Pos
}

func (t *TupleExpr) Position() Pos { return t.Pos }
func (t *TupleExpr) exprNode()     {}

// ArrayExpr is `[e ; n]`, replicating e across n integer indices.
type ArrayExpr struct {
	Elem Expr
	Size Expr
	Pos  Pos
}

func (a *ArrayExpr) Position() Pos { return a.Pos }
func (a *ArrayExpr) exprNode()     {}

// RecordExpr is `Name { field: e, ... }`.
type RecordExpr struct {
	TypeName string
	Fields   []RecordFieldExpr
	Pos      Pos
}

type RecordFieldExpr struct {
	Name  string
	Value Expr
}

func (r *RecordExpr) Position() Pos { return r.Pos }
func (r *RecordExpr) exprNode()     {}

// UnaryExpr covers `not e`, `- e`, `to_int e`, `to_real e`.
type UnaryExpr struct {
	Op   string // "not" | "neg" | "to_int" | "to_real"
	Expr Expr
	Pos  Pos
}

func (u *UnaryExpr) Position() Pos { return u.Pos }
func (u *UnaryExpr) exprNode()     {}

// BinaryExpr covers the arithmetic, relational, and Boolean-connective
// operators (+, -, *, /, mod, <, <=, >, >=, =, <>, and, or, xor, implies).
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Pos   Pos
}

func (b *BinaryExpr) Position() Pos { return b.Pos }
func (b *BinaryExpr) exprNode()     {}

// IfExpr is `if c then t else e`.
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  Pos
}

func (i *IfExpr) Position() Pos { return i.Pos }
func (i *IfExpr) exprNode()     {}

// PreExpr is `pre e`.
type PreExpr struct {
	Expr Expr
	Pos  Pos
}

func (p *PreExpr) Position() Pos { return p.Pos }
func (p *PreExpr) exprNode()     {}

// ArrowExpr is `a -> b`.
type ArrowExpr struct {
	Init Expr
	Step Expr
	Pos  Pos
}

func (a *ArrowExpr) Position() Pos { return a.Pos }
func (a *ArrowExpr) exprNode()     {}

// CallExpr is a plain node call `f(args)`.
type CallExpr struct {
	Callee string
	Args   []Expr
	Pos    Pos
}

func (c *CallExpr) Position() Pos { return c.Pos }
func (c *CallExpr) exprNode()     {}

// CondactExpr is `condact(cond, f(args), defaults)`.
type CondactExpr struct {
	Cond     Expr
	Callee   string
	Args     []Expr
	Defaults []Expr
	Pos      Pos
}

func (c *CondactExpr) Position() Pos { return c.Pos }
func (c *CondactExpr) exprNode()     {}

// Unsupported forms — represented so they can be detected and rejected
// with a precise diagnostic instead of failing to parse at all.

type FbyExpr struct {
	N       int
	Init    Expr
	Step    Expr
	Pos     Pos
}

func (f *FbyExpr) Position() Pos { return f.Pos }
func (f *FbyExpr) exprNode()     {}

type WhenExpr struct {
	Expr  Expr
	Clock string
	Pos   Pos
}

func (w *WhenExpr) Position() Pos { return w.Pos }
func (w *WhenExpr) exprNode()     {}

type CurrentExpr struct {
	Expr Expr
	Pos  Pos
}

func (c *CurrentExpr) Position() Pos { return c.Pos }
func (c *CurrentExpr) exprNode()     {}

type ArraySliceExpr struct {
	Base     Expr
	Lo, Hi   Expr
	Pos      Pos
}

func (a *ArraySliceExpr) Position() Pos { return a.Pos }
func (a *ArraySliceExpr) exprNode()     {}

type ArrayConcatExpr struct {
	Left, Right Expr
	Pos         Pos
}

func (a *ArrayConcatExpr) Position() Pos { return a.Pos }
func (a *ArrayConcatExpr) exprNode()     {}

type OneHotExpr struct {
	Elems []Expr
	Pos   Pos
}

func (o *OneHotExpr) Position() Pos { return o.Pos }
func (o *OneHotExpr) exprNode()     {}

type WithExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  Pos
}

func (w *WithExpr) Position() Pos { return w.Pos }
func (w *WithExpr) exprNode()     {}
