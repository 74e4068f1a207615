package elaborate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/flat"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/typectx"
	"github.com/sunholo/lustrecheck/internal/types"
)

func evalPos(line int) ast.Pos { return ast.Pos{File: "eval_test.lus", Line: line, Column: 1} }

// TestEvalPreOnCompoundExprIntroducesAuxiliaryVariable covers `pre` applied
// to a non-variable expression: the flat-expression layer's PreOf can only
// wrap a bare variable, so the evaluator must first bind the compound
// expression to a fresh `__abs.k` local and apply pre to that instead.
func TestEvalPreOnCompoundExprIntroducesAuxiliaryVariable(t *testing.T) {
	ctx := typectx.New()
	ctx, err := ctx.WithValue(evalPos(1), ident.New("x"), types.Int)
	require.NoError(t, err)

	env := &Env{Ctx: ctx, Aux: ident.NewAuxGen()}
	defs := NewDefs()
	expr := &ast.PreExpr{
		Expr: &ast.BinaryExpr{Op: "+", Left: ident_("x"), Right: intLit(1), Pos: evalPos(1)},
		Pos:  evalPos(1),
	}

	out, err := EvalExprIn(env, defs, expr)
	require.NoError(t, err)
	require.Len(t, out, 1)

	require.Len(t, defs.Vars, 1, "the compound operand must be bound to a fresh local")
	aux := defs.Vars[0]
	assert.True(t, ident.IsReserved(aux.ID), "the fresh local must be in the reserved __abs namespace")
	assert.True(t, types.IsInt(aux.Type))
	// the auxiliary equation itself carries the original x + 1, not a pre.
	_, auxIsPre := aux.Expr.Step.(flat.Pre)
	assert.False(t, auxIsPre)

	// the result of the pre expression reads back that same fresh variable.
	preStep, ok := out[0].Expr.Step.(flat.Pre)
	require.True(t, ok, "pre e should produce a flat.Pre step term")
	assert.Equal(t, aux.ID.String(), preStep.Var.ID.String())
	assert.Contains(t, out[0].Expr.PreVars, aux.ID.String())
}

// TestEvalPreOnBareVariableIntroducesNoAuxiliary contrasts the compound
// case: pre applied directly to a variable needs no fresh local.
func TestEvalPreOnBareVariableIntroducesNoAuxiliary(t *testing.T) {
	ctx := typectx.New()
	ctx, err := ctx.WithValue(evalPos(1), ident.New("x"), types.Int)
	require.NoError(t, err)

	env := &Env{Ctx: ctx, Aux: ident.NewAuxGen()}
	defs := NewDefs()
	expr := &ast.PreExpr{Expr: ident_("x"), Pos: evalPos(1)}

	out, err := EvalExprIn(env, defs, expr)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, defs.Vars)

	preStep, ok := out[0].Expr.Step.(flat.Pre)
	require.True(t, ok)
	assert.Equal(t, "x", preStep.Var.ID.String())
}

// TestEvalPreOnCompoundExprRejectedInConstantContext covers the guard that
// forbids introducing abstraction residue while folding a constant.
func TestEvalPreOnCompoundExprRejectedInConstantContext(t *testing.T) {
	ctx := typectx.New()
	ctx, err := ctx.WithValue(evalPos(1), ident.New("x"), types.Int)
	require.NoError(t, err)

	env := &Env{Ctx: ctx}
	expr := &ast.PreExpr{
		Expr: &ast.BinaryExpr{Op: "+", Left: ident_("x"), Right: intLit(1), Pos: evalPos(1)},
		Pos:  evalPos(1),
	}
	_, err = EvalExprIn(env, NewConstDefs(), expr)
	require.Error(t, err)
}

func TestEvalArrayExprFlattensElements(t *testing.T) {
	ctx := typectx.New()
	expr := &ast.ArrayExpr{
		Elem: intLit(7),
		Size: intLit(3),
		Pos:  evalPos(1),
	}
	out, err := EvalExpr(ctx, NewDefs(), expr)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, item := range out {
		require.Len(t, item.Index, 1)
		assert.Equal(t, i, item.Index[0].Position)
		assert.True(t, types.IsInt(item.Expr.Type))
	}
}

func TestEvalTupleExprFlattensElements(t *testing.T) {
	ctx := typectx.New()
	expr := &ast.TupleExpr{Elems: []ast.Expr{intLit(1), &ast.BoolLit{Value: true}}, Pos: evalPos(1)}
	out, err := EvalExpr(ctx, NewDefs(), expr)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, types.IsInt(out[0].Expr.Type))
	assert.True(t, types.IsBool(out[1].Expr.Type))
}

func TestEvalRecordExprFlattensFields(t *testing.T) {
	ctx := typectx.New()
	var err error
	ctx, err = ctx.WithBasicType(evalPos(1), ident.New("Point").PushField("x"), types.Int)
	require.NoError(t, err)
	ctx, err = ctx.WithBasicType(evalPos(1), ident.New("Point").PushField("y"), types.Int)
	require.NoError(t, err)

	expr := &ast.RecordExpr{
		TypeName: "Point",
		Fields: []ast.RecordFieldExpr{
			{Name: "x", Value: intLit(1)},
			{Name: "y", Value: intLit(2)},
		},
		Pos: evalPos(1),
	}
	out, err := EvalExpr(ctx, NewDefs(), expr)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, item := range out {
		require.Len(t, item.Index, 1)
		assert.Equal(t, ident.FieldStep, item.Index[0].Kind)
		assert.True(t, types.IsInt(item.Expr.Type))
	}
}

func TestEvalRecordExprRejectsWrongShape(t *testing.T) {
	ctx := typectx.New()
	var err error
	ctx, err = ctx.WithBasicType(evalPos(1), ident.New("Point").PushField("x"), types.Int)
	require.NoError(t, err)
	ctx, err = ctx.WithBasicType(evalPos(1), ident.New("Point").PushField("y"), types.Int)
	require.NoError(t, err)

	expr := &ast.RecordExpr{
		TypeName: "Point",
		Fields:   []ast.RecordFieldExpr{{Name: "x", Value: intLit(1)}},
		Pos:      evalPos(1),
	}
	_, err = EvalExpr(ctx, NewDefs(), expr)
	require.Error(t, err)
}

func TestEvalToIntConvertsRealToInt(t *testing.T) {
	ctx := typectx.New()
	expr := &ast.UnaryExpr{Op: "to_int", Expr: &ast.RealLit{Text: "3.5"}, Pos: evalPos(1)}
	out, err := EvalExpr(ctx, NewDefs(), expr)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, types.IsInt(out[0].Expr.Type))
}

func TestEvalToRealConvertsIntToReal(t *testing.T) {
	ctx := typectx.New()
	expr := &ast.UnaryExpr{Op: "to_real", Expr: intLit(3), Pos: evalPos(1)}
	out, err := EvalExpr(ctx, NewDefs(), expr)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, types.IsReal(out[0].Expr.Type))
}

func TestEvalToIntRejectsNonNumeric(t *testing.T) {
	ctx := typectx.New()
	expr := &ast.UnaryExpr{Op: "to_int", Expr: &ast.BoolLit{Value: true}, Pos: evalPos(1)}
	_, err := EvalExpr(ctx, NewDefs(), expr)
	require.Error(t, err)
}
