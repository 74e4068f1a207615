package elaborate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/typectx"
	"github.com/sunholo/lustrecheck/internal/types"
)

func nodePos(line int) ast.Pos { return ast.Pos{File: "node_test.lus", Line: line, Column: 1} }

func intType() ast.TypeExpr  { return &ast.SimpleTypeExpr{Name: "int"} }
func boolType() ast.TypeExpr { return &ast.SimpleTypeExpr{Name: "bool"} }

func ident_(name string) ast.Expr { return &ast.Ident{Name: name} }

func intLit(v int64) ast.Expr {
	return &ast.IntLit{Text: big.NewInt(v).String()}
}

// a scalar pass-through node: `node Id(x: int) returns (y: int); let y = x; tel`
func idNodeDecl() *ast.NodeDecl {
	return &ast.NodeDecl{
		Name:    "Id",
		Inputs:  []*ast.VarDecl{{Name: "x", Type: intType()}},
		Outputs: []*ast.VarDecl{{Name: "y", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"y"}, RHS: ident_("x"), Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
}

func TestAssembleNodeScalarPassThrough(t *testing.T) {
	ctx := typectx.New()
	reg := newMapRegistry()
	node, err := AssembleNode(ctx, reg, idNodeDecl())
	require.NoError(t, err)

	require.Len(t, node.Inputs, 1)
	require.Len(t, node.Outputs, 1)
	assert.Equal(t, "x", node.Inputs[0].Base)
	assert.Equal(t, "y", node.Outputs[0].Base)

	expr, ok := node.Equations["y"]
	require.True(t, ok)
	assert.True(t, types.IsInt(expr.Type))

	require.Len(t, node.Signature.OutputInputDep, 1)
	assert.Equal(t, []int{0}, node.Signature.OutputInputDep[0])
}

func TestAssembleNodeIDIsStableAndDistinguishesDeclarations(t *testing.T) {
	ctx := typectx.New()
	reg := newMapRegistry()

	nodeA, err := AssembleNode(ctx, reg, idNodeDecl())
	require.NoError(t, err)
	nodeAAgain, err := AssembleNode(ctx, reg, idNodeDecl())
	require.NoError(t, err)
	assert.Equal(t, nodeA.ID, nodeAAgain.ID)
	assert.NotEmpty(t, nodeA.ID)

	renamed := idNodeDecl()
	renamed.Name = "Id2"
	nodeB, err := AssembleNode(ctx, reg, renamed)
	require.NoError(t, err)
	assert.NotEqual(t, nodeA.ID, nodeB.ID)
}

func TestAssembleNodeTwoScalarInputsStayDistinct(t *testing.T) {
	// node Add(a: int; b: int) returns (s: int); let s = a + b; tel
	decl := &ast.NodeDecl{
		Name: "Add",
		Inputs: []*ast.VarDecl{
			{Name: "a", Type: intType()},
			{Name: "b", Type: intType()},
		},
		Outputs: []*ast.VarDecl{{Name: "s", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"s"}, RHS: &ast.BinaryExpr{Op: "+", Left: ident_("a"), Right: ident_("b")}, Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	ctx := typectx.New()
	reg := newMapRegistry()
	node, err := AssembleNode(ctx, reg, decl)
	require.NoError(t, err)

	require.Len(t, node.Inputs, 2)
	assert.Equal(t, "a", node.Inputs[0].Base)
	assert.Equal(t, "b", node.Inputs[1].Base)

	// s depends on both a and b.
	require.Len(t, node.Signature.OutputInputDep, 1)
	assert.ElementsMatch(t, []int{0, 1}, node.Signature.OutputInputDep[0])
}

func TestAssembleNodeRejectsParametricNode(t *testing.T) {
	decl := idNodeDecl()
	decl.Params = []string{"T"}
	_, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.Error(t, err)
}

func TestAssembleNodeAssertAndProperty(t *testing.T) {
	decl := idNodeDecl()
	decl.Body = append(decl.Body,
		&ast.Assert{Expr: &ast.BinaryExpr{Op: ">=", Left: ident_("x"), Right: intLit(0)}, Pos: nodePos(2)},
		&ast.PropertyAnnotation{Name: "NonNegative", Expr: &ast.BinaryExpr{Op: ">=", Left: ident_("y"), Right: intLit(0)}, Pos: nodePos(3)},
	)
	ctx := typectx.New()
	node, err := AssembleNode(ctx, newMapRegistry(), decl)
	require.NoError(t, err)
	require.Len(t, node.Asserts, 1)
	require.Contains(t, node.Properties, "NonNegative")
}

func TestAssembleNodeRejectsNonBoolAssert(t *testing.T) {
	decl := idNodeDecl()
	decl.Body = append(decl.Body, &ast.Assert{Expr: ident_("x"), Pos: nodePos(2)})
	_, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.Error(t, err)
}

func TestAssembleNodeDetectsSelfReferentialCycle(t *testing.T) {
	// node Bad(x: int) returns (y: int); let y = y + x; tel
	decl := idNodeDecl()
	decl.Body = []ast.Stmt{
		&ast.Equation{LHS: []string{"y"}, RHS: &ast.BinaryExpr{Op: "+", Left: ident_("y"), Right: ident_("x")}, Pos: nodePos(1)},
	}
	_, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.Error(t, err)
}

func TestAssembleNodePreBreaksCycle(t *testing.T) {
	// node Counter() returns (y: int); let y = 0 -> pre y + 1; tel
	decl := &ast.NodeDecl{
		Name:    "Counter",
		Outputs: []*ast.VarDecl{{Name: "y", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{
				LHS: []string{"y"},
				RHS: &ast.ArrowExpr{
					Init: intLit(0),
					Step: &ast.BinaryExpr{Op: "+", Left: &ast.PreExpr{Expr: ident_("y")}, Right: intLit(1)},
				},
				Pos: nodePos(1),
			},
		},
		Pos: nodePos(1),
	}
	node, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.NoError(t, err)
	assert.Contains(t, node.Order, "y")
	assert.Empty(t, node.Warnings)
}

func TestAssembleNodeBarePreWithoutArrowWarns(t *testing.T) {
	// node Delay(x: int) returns (y: int); let y = pre x; tel
	decl := &ast.NodeDecl{
		Name:    "Delay",
		Inputs:  []*ast.VarDecl{{Name: "x", Type: intType()}},
		Outputs: []*ast.VarDecl{{Name: "y", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"y"}, RHS: &ast.PreExpr{Expr: ident_("x")}, Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	node, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.NoError(t, err)
	require.Len(t, node.Warnings, 1)
	assert.Equal(t, diag.ELB_UNGUARDED_PRE, node.Warnings[0].Code)
}

func registerIdNode(t *testing.T) (typectx.Context, *mapRegistry) {
	t.Helper()
	ctx := typectx.New()
	reg := newMapRegistry()
	idNode, err := AssembleNode(ctx, reg, idNodeDecl())
	require.NoError(t, err)
	reg.add(idNode.Signature)
	return ctx, reg
}

func TestAssembleNodeSingleOutputCall(t *testing.T) {
	ctx, reg := registerIdNode(t)
	// node Wrap(x: int) returns (y: int); let y = Id(x); tel
	decl := &ast.NodeDecl{
		Name:    "Wrap",
		Inputs:  []*ast.VarDecl{{Name: "x", Type: intType()}},
		Outputs: []*ast.VarDecl{{Name: "y", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"y"}, RHS: &ast.CallExpr{Callee: "Id", Args: []ast.Expr{ident_("x")}}, Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	node, err := AssembleNode(ctx, reg, decl)
	require.NoError(t, err)
	require.Len(t, node.Calls, 1)
	_, ok := node.Equations["y"]
	require.True(t, ok)
	require.Len(t, node.Signature.OutputInputDep, 1)
	assert.Equal(t, []int{0}, node.Signature.OutputInputDep[0])
}

func TestAssembleNodeMultiOutputCallDestructures(t *testing.T) {
	// node Pair(x: int) returns (a: int; b: int); let a = x; b = x + 1; tel
	pairDecl := &ast.NodeDecl{
		Name:   "Pair",
		Inputs: []*ast.VarDecl{{Name: "x", Type: intType()}},
		Outputs: []*ast.VarDecl{
			{Name: "a", Type: intType()},
			{Name: "b", Type: intType()},
		},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"a"}, RHS: ident_("x"), Pos: nodePos(1)},
			&ast.Equation{LHS: []string{"b"}, RHS: &ast.BinaryExpr{Op: "+", Left: ident_("x"), Right: intLit(1)}, Pos: nodePos(2)},
		},
		Pos: nodePos(1),
	}
	ctx := typectx.New()
	reg := newMapRegistry()
	pairNode, err := AssembleNode(ctx, reg, pairDecl)
	require.NoError(t, err)
	reg.add(pairNode.Signature)
	require.Equal(t, []int{1, 1}, pairNode.Signature.OutputVarLeafCounts)

	// node UsePair(x: int) returns (p: int; q: int); let p, q = Pair(x); tel
	useDecl := &ast.NodeDecl{
		Name:   "UsePair",
		Inputs: []*ast.VarDecl{{Name: "x", Type: intType()}},
		Outputs: []*ast.VarDecl{
			{Name: "p", Type: intType()},
			{Name: "q", Type: intType()},
		},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"p", "q"}, RHS: &ast.CallExpr{Callee: "Pair", Args: []ast.Expr{ident_("x")}}, Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	useNode, err := AssembleNode(ctx, reg, useDecl)
	require.NoError(t, err)
	require.Len(t, useNode.Calls, 1)
	_, pOK := useNode.Equations["p"]
	_, qOK := useNode.Equations["q"]
	assert.True(t, pOK)
	assert.True(t, qOK)

	// both p and q are routed through the call's activation/argument deps.
	require.Len(t, useNode.Signature.OutputInputDep, 2)
	assert.Equal(t, []int{0}, useNode.Signature.OutputInputDep[0])
	assert.Equal(t, []int{0}, useNode.Signature.OutputInputDep[1])
}

func TestAssembleNodeCallArityMismatch(t *testing.T) {
	ctx, reg := registerIdNode(t)
	decl := &ast.NodeDecl{
		Name:    "BadCall",
		Outputs: []*ast.VarDecl{{Name: "y", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"y"}, RHS: &ast.CallExpr{Callee: "Id", Args: []ast.Expr{intLit(1), intLit(2)}}, Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	_, err := AssembleNode(ctx, reg, decl)
	require.Error(t, err)
}

func TestAssembleNodeCondact(t *testing.T) {
	ctx, reg := registerIdNode(t)
	decl := &ast.NodeDecl{
		Name:    "Gate",
		Inputs:  []*ast.VarDecl{{Name: "x", Type: intType()}, {Name: "c", Type: boolType()}},
		Outputs: []*ast.VarDecl{{Name: "y", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{
				LHS: []string{"y"},
				RHS: &ast.CondactExpr{
					Cond:     ident_("c"),
					Callee:   "Id",
					Args:     []ast.Expr{ident_("x")},
					Defaults: []ast.Expr{intLit(0)},
				},
				Pos: nodePos(1),
			},
		},
		Pos: nodePos(1),
	}
	node, err := AssembleNode(ctx, reg, decl)
	require.NoError(t, err)
	require.Len(t, node.Calls, 1)
	assert.NotNil(t, node.CallDeps[node.Calls[0].BoundOutputs[0].String()])
}

func TestBindLeavesRejectsWrongArity(t *testing.T) {
	// node Bad() returns (y: int; z: int); let y, z = 1; tel -- single value for two names
	decl := &ast.NodeDecl{
		Name: "Bad",
		Outputs: []*ast.VarDecl{
			{Name: "y", Type: intType()},
			{Name: "z", Type: intType()},
		},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"y", "z"}, RHS: intLit(1), Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	_, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.Error(t, err)
}

func TestLeafKeyMatchesEquationKeyForScalar(t *testing.T) {
	p := ParamLeaf{Base: "y", Path: nil, Type: types.Int}
	assert.Equal(t, ident.New("y").String(), leafKey(p))
}

func subrangeType(lo, hi int64) ast.TypeExpr {
	return &ast.IntRangeTypeExpr{Lo: intLit(lo), Hi: intLit(hi)}
}

func TestAssembleNodeRelaxesIntToIntRangeOutput(t *testing.T) {
	// node Widen(x: int) returns (o: subrange[0,10] of int); let o = x + 1; tel
	decl := &ast.NodeDecl{
		Name:    "Widen",
		Inputs:  []*ast.VarDecl{{Name: "x", Type: intType()}},
		Outputs: []*ast.VarDecl{{Name: "o", Type: subrangeType(0, 10)}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"o"}, RHS: &ast.BinaryExpr{Op: "+", Left: ident_("x"), Right: intLit(1)}, Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	node, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.NoError(t, err)

	require.Len(t, node.Outputs, 1)
	assert.True(t, types.IsInt(node.Outputs[0].Type), "output should be widened to Int, got %v", node.Outputs[0].Type)
	assert.True(t, types.IsInt(node.Signature.OutputLeaves[0].Type))

	prop, ok := node.Properties["o"]
	require.True(t, ok, "expected a range property injected for o")
	assert.True(t, types.IsBool(prop.Type))

	_, ok = node.Equations["o"]
	require.True(t, ok, "equation should still be accepted")
}

func TestAssembleNodeRejectsRealAssignedToIntRange(t *testing.T) {
	// real -> subrange is not covered by the Int -> IntRange relaxation.
	decl := &ast.NodeDecl{
		Name:    "BadWiden",
		Inputs:  []*ast.VarDecl{{Name: "x", Type: &ast.SimpleTypeExpr{Name: "real"}}},
		Outputs: []*ast.VarDecl{{Name: "o", Type: subrangeType(0, 10)}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"o"}, RHS: ident_("x"), Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	_, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.Error(t, err)
}

func TestAssembleNodeThreadsConstOnInputLeaves(t *testing.T) {
	// node UseConst(const k: int; x: int) returns (y: int); let y = x + k; tel
	decl := &ast.NodeDecl{
		Name: "UseConst",
		Inputs: []*ast.VarDecl{
			{Name: "k", Type: intType(), Const: true},
			{Name: "x", Type: intType()},
		},
		Outputs: []*ast.VarDecl{{Name: "y", Type: intType()}},
		Body: []ast.Stmt{
			&ast.Equation{LHS: []string{"y"}, RHS: &ast.BinaryExpr{Op: "+", Left: ident_("x"), Right: ident_("k")}, Pos: nodePos(1)},
		},
		Pos: nodePos(1),
	}
	node, err := AssembleNode(typectx.New(), newMapRegistry(), decl)
	require.NoError(t, err)

	require.Len(t, node.Inputs, 2)
	assert.True(t, node.Inputs[0].Const, "k is declared const")
	assert.False(t, node.Inputs[1].Const, "x is not const")

	require.Len(t, node.Outputs, 1)
	assert.False(t, node.Outputs[0].Const, "output leaves are never const")
}
