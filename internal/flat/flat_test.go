package flat

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/types"
)

var pos = ast.Pos{File: "t.lus", Line: 1, Column: 1}

func bi(n int64) *big.Int { return big.NewInt(n) }

func TestConstantFoldingClosure(t *testing.T) {
	x := ConstInt(bi(2))
	y := ConstInt(bi(3))
	sum, err := Arith(pos, OpAdd, x, y)
	require.NoError(t, err)
	assert.True(t, IsConstExpr(sum))
	assert.Equal(t, "5", sum.Init.(IntConst).Value.String())
}

func TestNotDoubleNegationCancels(t *testing.T) {
	v := Variable(ident.New("b"), types.Bool)
	n1, err := Not(pos, v)
	require.NoError(t, err)
	n2, err := Not(pos, n1)
	require.NoError(t, err)
	assert.Equal(t, v.Init, n2.Init)
}

func TestArithTypeMismatch(t *testing.T) {
	x := ConstInt(bi(1))
	y := ConstBool(true)
	_, err := Arith(pos, OpAdd, x, y)
	require.Error(t, err)
}

func TestArrowTakesInitFromFirstStepFromSecond(t *testing.T) {
	a := ConstInt(bi(0))
	b := Variable(ident.New("x"), types.Int)
	e, err := ArrowOf(pos, a, b)
	require.NoError(t, err)
	assert.Equal(t, a.Init, e.Init)
	assert.Equal(t, b.Step, e.Step)
}

func TestPreOfVariableTracksPreVars(t *testing.T) {
	v := Variable(ident.New("x"), types.Int)
	e, err := PreOf(pos, v)
	require.NoError(t, err)
	assert.True(t, e.HasUndefinedInit())
	assert.True(t, e.PreVars["x"])
	assert.Equal(t, Pre{Var: Var{ID: ident.New("x")}}, e.Step)
}

func TestPreOfNonVariableRejected(t *testing.T) {
	x := ConstInt(bi(1))
	y := Variable(ident.New("y"), types.Int)
	sum, err := Arith(pos, OpAdd, x, y)
	require.NoError(t, err)
	_, err = PreOf(pos, sum)
	require.Error(t, err)
}

func TestIteFoldsOnConstantCondition(t *testing.T) {
	then := Variable(ident.New("a"), types.Int)
	els := Variable(ident.New("b"), types.Int)
	e, err := IteOf(pos, ConstBool(true), then, els)
	require.NoError(t, err)
	assert.Equal(t, then.Init, e.Init)
}

func TestRelationalConstantFolding(t *testing.T) {
	lt, err := Relational(pos, OpLt, ConstInt(bi(1)), ConstInt(bi(2)))
	require.NoError(t, err)
	assert.True(t, IsConstExpr(lt))
	assert.True(t, lt.Init.(BoolConst).Value)
}

func TestIntRangeWidensUnderArith(t *testing.T) {
	r, err := types.NewIntRange(bi(0), bi(10))
	require.NoError(t, err)
	v := Expr{Type: r, Init: Var{ID: ident.New("x")}, Step: Var{ID: ident.New("x")}, PreVars: map[string]bool{}}
	sum, err := Arith(pos, OpAdd, v, ConstInt(bi(1)))
	require.NoError(t, err)
	assert.True(t, types.IsInt(sum.Type))
}
