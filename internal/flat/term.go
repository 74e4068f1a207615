// Package flat implements the flat-expression layer: a scalar-typed
// expression decomposed into an explicit ⟨initial-instant, step-instant⟩
// pair of terms, built exclusively through smart constructors that fold
// constants and enforce the operator typing rules as they go.
package flat

import (
	"fmt"
	"math/big"

	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/types"
)

// Term is the closed set of primitive term shapes a single instant of a
// flat expression can take.
type Term interface {
	fmt.Stringer
	termNode()
}

// Var is a reference to a scalar variable on the base clock.
type Var struct {
	ID ident.Ident
}

func (Var) termNode()        {}
func (v Var) String() string { return v.ID.String() }

// BoolConst, IntConst, RealConst are scalar literals.
type BoolConst struct{ Value bool }
type IntConst struct{ Value *big.Int }
type RealConst struct{ Value *big.Float }

func (BoolConst) termNode() {}
func (IntConst) termNode()  {}
func (RealConst) termNode() {}

func (c BoolConst) String() string { return fmt.Sprintf("%t", c.Value) }
func (c IntConst) String() string  { return c.Value.String() }
func (c RealConst) String() string { return c.Value.Text('g', -1) }

// Undefined marks the initial-instant value of a `pre` whose argument has
// no guarding arrow on this syntactic path. It must never reach the step
// term, and reading it as a constant is a programming error in the
// elaborator, not a user-facing failure.
type Undefined struct{}

func (Undefined) termNode()      {}
func (Undefined) String() string { return "<undefined>" }

// UnaryOp, BinaryOp name the primitive operators the smart constructors
// recognize.
type UnaryOp string

const (
	OpNot UnaryOp = "not"
	OpNeg UnaryOp = "neg"
)

type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "mod"

	OpLt BinaryOp = "<"
	OpLe BinaryOp = "<="
	OpGt BinaryOp = ">"
	OpGe BinaryOp = ">="
	OpEq BinaryOp = "="
	OpNe BinaryOp = "<>"

	OpAnd      BinaryOp = "and"
	OpOr       BinaryOp = "or"
	OpXor      BinaryOp = "xor"
	OpImplies  BinaryOp = "implies"
)

// Unary and Binary are the non-literal, non-variable term shapes.
type Unary struct {
	Op UnaryOp
	X  Term
}

type Binary struct {
	Op   BinaryOp
	X, Y Term
}

func (Unary) termNode()  {}
func (Binary) termNode() {}

func (u Unary) String() string  { return fmt.Sprintf("%s(%s)", u.Op, u.X) }
func (b Binary) String() string { return fmt.Sprintf("(%s %s %s)", b.X, b.Op, b.Y) }

// Ite is a conditional term; Cond is always Bool-typed.
type Ite struct {
	Cond, Then, Else Term
}

func (Ite) termNode() {}
func (i Ite) String() string {
	return fmt.Sprintf("ite(%s, %s, %s)", i.Cond, i.Then, i.Else)
}

// Pre reads the previous-tick value of a variable. Its argument is always
// a Var — the evaluator is responsible for introducing the auxiliary
// equation that makes this true for arbitrary sub-expressions.
type Pre struct {
	Var Var
}

func (Pre) termNode()        {}
func (p Pre) String() string { return fmt.Sprintf("pre(%s)", p.Var) }

// ToInt, ToReal are the explicit numeric conversions.
type ToInt struct{ X Term }
type ToReal struct{ X Term }

func (ToInt) termNode()  {}
func (ToReal) termNode() {}

func (c ToInt) String() string  { return fmt.Sprintf("to_int(%s)", c.X) }
func (c ToReal) String() string { return fmt.Sprintf("to_real(%s)", c.X) }

// Expr is a flat, scalar-typed expression: a type, the pair of terms for
// the initial and subsequent instants, and the set of state variables it
// reads transitively through a pre.
type Expr struct {
	Type    types.Type
	Init    Term
	Step    Term
	PreVars map[string]bool
}

// HasUndefinedInit reports whether e's initial-instant term is the
// placeholder left by an unguarded pre — the caller must emit an
// "unguarded pre" warning (not a fatal error) when this is true.
func (e Expr) HasUndefinedInit() bool {
	_, ok := e.Init.(Undefined)
	return ok
}

func mergePreVars(sets ...map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

// IsLiteral reports whether t is one of the literal term shapes.
func IsLiteral(t Term) bool {
	switch t.(type) {
	case BoolConst, IntConst, RealConst:
		return true
	default:
		return false
	}
}

// IsConstExpr reports whether e's init and step terms are identical
// literal constants, the closure property required of every smart
// constructor applied to already-constant operands.
func IsConstExpr(e Expr) bool {
	if !IsLiteral(e.Init) || !IsLiteral(e.Step) {
		return false
	}
	return literalEqual(e.Init, e.Step)
}

func literalEqual(a, b Term) bool {
	switch av := a.(type) {
	case BoolConst:
		bv, ok := b.(BoolConst)
		return ok && av.Value == bv.Value
	case IntConst:
		bv, ok := b.(IntConst)
		return ok && av.Value.Cmp(bv.Value) == 0
	case RealConst:
		bv, ok := b.(RealConst)
		return ok && av.Value.Cmp(bv.Value) == 0
	default:
		return false
	}
}
