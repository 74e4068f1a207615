package flat

import (
	"math/big"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/types"
)

// Variable builds a base-clock reference to id of type t. Init and step
// coincide, as for any non-pre leaf.
func Variable(id ident.Ident, t types.Type) Expr {
	v := Var{ID: id}
	return Expr{Type: t, Init: v, Step: v, PreVars: map[string]bool{}}
}

// ConstBool, ConstInt, ConstReal build literal flat expressions. A literal
// has init == step by definition.
func ConstBool(b bool) Expr {
	c := BoolConst{Value: b}
	return Expr{Type: types.Bool, Init: c, Step: c, PreVars: map[string]bool{}}
}

func ConstInt(v *big.Int) Expr {
	c := IntConst{Value: v}
	return Expr{Type: types.Int, Init: c, Step: c, PreVars: map[string]bool{}}
}

func ConstReal(v *big.Float) Expr {
	c := RealConst{Value: v}
	return Expr{Type: types.Real, Init: c, Step: c, PreVars: map[string]bool{}}
}

// foldUnary applies a per-term transform to each instant of x, folding
// literal operands immediately via lit (which receives the literal Term
// and must itself return a literal Term), and otherwise wrapping with
// build.
func foldUnary(x Expr, lit func(Term) (Term, bool), build func(Term) Term) (Term, Term) {
	initTerm := x.Init
	stepTerm := x.Step
	if v, ok := tryFold(lit, initTerm); ok {
		initTerm = v
	} else {
		initTerm = build(initTerm)
	}
	if v, ok := tryFold(lit, stepTerm); ok {
		stepTerm = v
	} else {
		stepTerm = build(stepTerm)
	}
	return initTerm, stepTerm
}

func tryFold(lit func(Term) (Term, bool), t Term) (Term, bool) {
	if !IsLiteral(t) {
		return nil, false
	}
	return lit(t)
}

// Not implements Boolean negation, folding double-negation and constants.
func Not(pos ast.Pos, x Expr) (Expr, error) {
	if !types.IsBool(x.Type) {
		return Expr{}, diag.TypeMismatch(pos, x.Type, types.Bool)
	}
	initT, stepT := foldUnary(x,
		func(t Term) (Term, bool) {
			b, ok := t.(BoolConst)
			if !ok {
				return nil, false
			}
			return BoolConst{Value: !b.Value}, true
		},
		func(t Term) Term {
			if u, ok := t.(Unary); ok && u.Op == OpNot {
				return u.X // not(not(e)) == e
			}
			return Unary{Op: OpNot, X: t}
		})
	return Expr{Type: types.Bool, Init: initT, Step: stepT, PreVars: x.PreVars}, nil
}

// Neg implements arithmetic negation over Int or Real.
func Neg(pos ast.Pos, x Expr) (Expr, error) {
	if !types.IsNumeric(x.Type) {
		return Expr{}, diag.TypeMismatch(pos, x.Type, types.Int)
	}
	resultType := widenNumeric(x.Type)
	initT, stepT := foldUnary(x,
		func(t Term) (Term, bool) {
			switch v := t.(type) {
			case IntConst:
				return IntConst{Value: new(big.Int).Neg(v.Value)}, true
			case RealConst:
				return RealConst{Value: new(big.Float).Neg(v.Value)}, true
			default:
				return nil, false
			}
		},
		func(t Term) Term { return Unary{Op: OpNeg, X: t} })
	return Expr{Type: resultType, Init: initT, Step: stepT, PreVars: x.PreVars}, nil
}

func widenNumeric(t types.Type) types.Type {
	if _, ok := t.(*types.IntRange); ok {
		return types.Int
	}
	return t
}

// ToIntOf, ToRealOf implement the explicit numeric conversions.
func ToIntOf(pos ast.Pos, x Expr) (Expr, error) {
	if !types.IsNumeric(x.Type) {
		return Expr{}, diag.TypeMismatch(pos, x.Type, types.Real)
	}
	initT, stepT := foldUnary(x,
		func(t Term) (Term, bool) {
			r, ok := t.(RealConst)
			if !ok {
				return nil, false
			}
			i, _ := r.Value.Int(nil)
			return IntConst{Value: i}, true
		},
		func(t Term) Term { return ToInt{X: t} })
	return Expr{Type: types.Int, Init: initT, Step: stepT, PreVars: x.PreVars}, nil
}

func ToRealOf(pos ast.Pos, x Expr) (Expr, error) {
	if !types.IsNumeric(x.Type) {
		return Expr{}, diag.TypeMismatch(pos, x.Type, types.Int)
	}
	initT, stepT := foldUnary(x,
		func(t Term) (Term, bool) {
			i, ok := t.(IntConst)
			if !ok {
				return nil, false
			}
			return RealConst{Value: new(big.Float).SetInt(i.Value)}, true
		},
		func(t Term) Term { return ToReal{X: t} })
	return Expr{Type: types.Real, Init: initT, Step: stepT, PreVars: x.PreVars}, nil
}

// foldBinary is the Binary counterpart of foldUnary: applies lit
// pointwise to corresponding instants when both are literal, otherwise
// wraps with build.
func foldBinary(x, y Expr, lit func(a, b Term) (Term, bool), build func(a, b Term) Term) (Term, Term) {
	combine := func(a, b Term) Term {
		if IsLiteral(a) && IsLiteral(b) {
			if v, ok := lit(a, b); ok {
				return v
			}
		}
		return build(a, b)
	}
	return combine(x.Init, y.Init), combine(x.Step, y.Step)
}

func foldIntOp(f func(a, b *big.Int) *big.Int) func(a, b Term) (Term, bool) {
	return func(a, b Term) (Term, bool) {
		ai, ok1 := a.(IntConst)
		bi, ok2 := b.(IntConst)
		if !ok1 || !ok2 {
			return nil, false
		}
		return IntConst{Value: f(ai.Value, bi.Value)}, true
	}
}

func foldRealOp(f func(a, b *big.Float) *big.Float) func(a, b Term) (Term, bool) {
	return func(a, b Term) (Term, bool) {
		ar, ok1 := a.(RealConst)
		br, ok2 := b.(RealConst)
		if !ok1 || !ok2 {
			return nil, false
		}
		return RealConst{Value: f(ar.Value, br.Value)}, true
	}
}

// Arith implements the binary arithmetic operators (+, -, *, /, mod),
// requiring both operands to have the same numeric kind (Int-family or
// Real).
func Arith(pos ast.Pos, op BinaryOp, x, y Expr) (Expr, error) {
	if !types.IsNumeric(x.Type) || !types.IsNumeric(y.Type) {
		return Expr{}, diag.TypeMismatch(pos, x.Type, y.Type)
	}
	xReal, yReal := types.IsReal(x.Type), types.IsReal(y.Type)
	if xReal != yReal {
		return Expr{}, diag.TypeMismatch(pos, x.Type, y.Type)
	}

	var litFn func(a, b Term) (Term, bool)
	if xReal {
		switch op {
		case OpAdd:
			litFn = foldRealOp(func(a, b *big.Float) *big.Float { return new(big.Float).Add(a, b) })
		case OpSub:
			litFn = foldRealOp(func(a, b *big.Float) *big.Float { return new(big.Float).Sub(a, b) })
		case OpMul:
			litFn = foldRealOp(func(a, b *big.Float) *big.Float { return new(big.Float).Mul(a, b) })
		case OpDiv:
			litFn = foldRealOp(func(a, b *big.Float) *big.Float { return new(big.Float).Quo(a, b) })
		default:
			return Expr{}, diag.Unsupported(pos, "real "+string(op))
		}
	} else {
		switch op {
		case OpAdd:
			litFn = foldIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) })
		case OpSub:
			litFn = foldIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) })
		case OpMul:
			litFn = foldIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) })
		case OpDiv:
			litFn = foldIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Quo(a, b) })
		case OpMod:
			litFn = foldIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Mod(a, b) })
		default:
			return Expr{}, diag.Unsupported(pos, "int "+string(op))
		}
	}

	initT, stepT := foldBinary(x, y, litFn, func(a, b Term) Term { return Binary{Op: op, X: a, Y: b} })
	resultType := types.Real
	if !xReal {
		resultType = types.Int
	}
	return Expr{Type: resultType, Init: initT, Step: stepT, PreVars: mergePreVars(x.PreVars, y.PreVars)}, nil
}

// Relational implements <, <=, >, >=, =, <> over any two numeric or
// matching scalar operands, always yielding Bool.
func Relational(pos ast.Pos, op BinaryOp, x, y Expr) (Expr, error) {
	numeric := types.IsNumeric(x.Type) && types.IsNumeric(y.Type)
	comparable := numeric || x.Type.Equal(y.Type)
	if !comparable {
		return Expr{}, diag.TypeMismatch(pos, x.Type, y.Type)
	}

	var litFn func(a, b Term) (Term, bool)
	switch op {
	case OpEq:
		litFn = func(a, b Term) (Term, bool) { return BoolConst{Value: literalEqual(a, b)}, true }
	case OpNe:
		litFn = func(a, b Term) (Term, bool) { return BoolConst{Value: !literalEqual(a, b)}, true }
	case OpLt, OpLe, OpGt, OpGe:
		if !numeric {
			return Expr{}, diag.TypeMismatch(pos, x.Type, y.Type)
		}
		litFn = func(a, b Term) (Term, bool) {
			cmp, ok := compareLiterals(a, b)
			if !ok {
				return nil, false
			}
			switch op {
			case OpLt:
				return BoolConst{Value: cmp < 0}, true
			case OpLe:
				return BoolConst{Value: cmp <= 0}, true
			case OpGt:
				return BoolConst{Value: cmp > 0}, true
			default:
				return BoolConst{Value: cmp >= 0}, true
			}
		}
	default:
		return Expr{}, diag.Unsupported(pos, "relational "+string(op))
	}

	initT, stepT := foldBinary(x, y, litFn, func(a, b Term) Term { return Binary{Op: op, X: a, Y: b} })
	return Expr{Type: types.Bool, Init: initT, Step: stepT, PreVars: mergePreVars(x.PreVars, y.PreVars)}, nil
}

func compareLiterals(a, b Term) (int, bool) {
	switch av := a.(type) {
	case IntConst:
		bv, ok := b.(IntConst)
		if !ok {
			return 0, false
		}
		return av.Value.Cmp(bv.Value), true
	case RealConst:
		bv, ok := b.(RealConst)
		if !ok {
			return 0, false
		}
		return av.Value.Cmp(bv.Value), true
	default:
		return 0, false
	}
}

// boolConnective builds And/Or/Xor/Implies, each requiring both operands
// Bool and folding constant operands via identity.
func boolConnective(pos ast.Pos, op BinaryOp, x, y Expr, identity func(a, b bool) bool) (Expr, error) {
	if !types.IsBool(x.Type) || !types.IsBool(y.Type) {
		return Expr{}, diag.TypeMismatch(pos, x.Type, y.Type)
	}
	litFn := func(a, b Term) (Term, bool) {
		av, ok1 := a.(BoolConst)
		bv, ok2 := b.(BoolConst)
		if !ok1 || !ok2 {
			return nil, false
		}
		return BoolConst{Value: identity(av.Value, bv.Value)}, true
	}
	build := func(a, b Term) Term { return Binary{Op: op, X: a, Y: b} }
	initT, stepT := foldBinary(x, y, litFn, build)
	return Expr{Type: types.Bool, Init: initT, Step: stepT, PreVars: mergePreVars(x.PreVars, y.PreVars)}, nil
}

func And(pos ast.Pos, x, y Expr) (Expr, error) {
	return boolConnective(pos, OpAnd, x, y, func(a, b bool) bool { return a && b })
}

func Or(pos ast.Pos, x, y Expr) (Expr, error) {
	return boolConnective(pos, OpOr, x, y, func(a, b bool) bool { return a || b })
}

func Xor(pos ast.Pos, x, y Expr) (Expr, error) {
	return boolConnective(pos, OpXor, x, y, func(a, b bool) bool { return a != b })
}

func Implies(pos ast.Pos, x, y Expr) (Expr, error) {
	return boolConnective(pos, OpImplies, x, y, func(a, b bool) bool { return !a || b })
}

// IteOf builds a scalar conditional. cond must be Bool; then/else must
// share a type related by the subtype lattice (the wider of the two,
// preferring Int over IntRange, is the result type).
func IteOf(pos ast.Pos, cond, then, els Expr) (Expr, error) {
	if !types.IsBool(cond.Type) {
		return Expr{}, diag.TypeMismatch(pos, cond.Type, types.Bool)
	}
	resultType := then.Type
	switch {
	case then.Type.Equal(els.Type):
		// already resultType
	case types.CheckType(then.Type, els.Type):
		resultType = els.Type
	case types.CheckType(els.Type, then.Type):
		resultType = then.Type
	default:
		return Expr{}, diag.TypeMismatch(pos, els.Type, then.Type)
	}

	combine := func(c, t, e Term) Term {
		if cc, ok := c.(BoolConst); ok {
			if cc.Value {
				return t
			}
			return e
		}
		return Ite{Cond: c, Then: t, Else: e}
	}
	initT := combine(cond.Init, then.Init, els.Init)
	stepT := combine(cond.Step, then.Step, els.Step)
	return Expr{
		Type:    resultType,
		Init:    initT,
		Step:    stepT,
		PreVars: mergePreVars(cond.PreVars, then.PreVars, els.PreVars),
	}, nil
}

// PreOf builds `pre v`. Per the flat-expression layer's contract, v must
// already be a bare variable reference on both instants; the evaluator is
// responsible for binding an auxiliary equation first when the argument
// is not already a variable.
func PreOf(pos ast.Pos, v Expr) (Expr, error) {
	vr, ok := v.Init.(Var)
	if !ok {
		return Expr{}, diag.Unsupported(pos, "pre of a non-variable expression")
	}
	if sv, ok := v.Step.(Var); !ok || !sv.ID.Equal(vr.ID) {
		return Expr{}, diag.Unsupported(pos, "pre of a non-variable expression")
	}
	preVars := mergePreVars(v.PreVars)
	preVars[vr.ID.String()] = true
	return Expr{
		Type:    v.Type,
		Init:    Undefined{},
		Step:    Pre{Var: vr},
		PreVars: preVars,
	}, nil
}

// ArrowOf builds `a -> b`, taking a's initial instant and b's step
// instant — the elaborator's only combinator that mixes instants from two
// different operands.
func ArrowOf(pos ast.Pos, a, b Expr) (Expr, error) {
	if !types.CheckType(a.Type, b.Type) && !types.CheckType(b.Type, a.Type) {
		return Expr{}, diag.TypeMismatch(pos, b.Type, a.Type)
	}
	resultType := b.Type
	if types.CheckType(b.Type, a.Type) {
		resultType = a.Type
	}
	return Expr{
		Type:    resultType,
		Init:    a.Init,
		Step:    b.Step,
		PreVars: mergePreVars(a.PreVars, b.PreVars),
	}, nil
}
