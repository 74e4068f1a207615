package elaborate

import (
	"math/big"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/flat"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/typectx"
	"github.com/sunholo/lustrecheck/internal/types"
)

// Leaf is one ⟨index, scalar type⟩ pair produced by folding a source
// type expression.
type Leaf struct {
	Path []ident.Step
	Type types.Type
}

// FoldType walks a source type expression and returns the list of scalar
// leaves it expands to, each with the index path relative to the type's
// own root (callers prefix that path onto whatever identifier the type
// is attached to). Aggregates are walked structurally; IntRange bounds
// and Array sizes are evaluated as constants via the expression
// evaluator in abstraction-suppressing mode.
func FoldType(ctx typectx.Context, texpr ast.TypeExpr) ([]Leaf, error) {
	return foldTypeAt(ctx, texpr, nil)
}

func foldTypeAt(ctx typectx.Context, texpr ast.TypeExpr, prefix []ident.Step) ([]Leaf, error) {
	switch t := texpr.(type) {
	case *ast.SimpleTypeExpr:
		return foldScalar(t, prefix)
	case *ast.IntRangeTypeExpr:
		lo, hi, err := evalRangeBounds(ctx, t)
		if err != nil {
			return nil, err
		}
		rng, err := types.NewIntRange(lo, hi)
		if err != nil {
			return nil, diag.Unsupported(t.Position(), err.Error())
		}
		return []Leaf{{Path: clonePath(prefix), Type: rng}}, nil
	case *ast.EnumTypeExpr:
		e := &types.Enum{Constructors: append([]string{}, t.Constructors...)}
		return []Leaf{{Path: clonePath(prefix), Type: e}}, nil
	case *ast.UserTypeExpr:
		return foldUserType(ctx, t, prefix)
	case *ast.RecordTypeExpr:
		var out []Leaf
		for _, f := range t.Fields {
			sub, err := foldTypeAt(ctx, f.Type, append(clonePath(prefix), ident.Field(f.Name)))
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case *ast.TupleTypeExpr:
		var out []Leaf
		for i, elem := range t.Elems {
			sub, err := foldTypeAt(ctx, elem, append(clonePath(prefix), ident.Position(i)))
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case *ast.ArrayTypeExpr:
		size, err := evalPositiveConstInt(ctx, t.Size)
		if err != nil {
			return nil, err
		}
		var out []Leaf
		for i := 0; i < size; i++ {
			sub, err := foldTypeAt(ctx, t.Elem, append(clonePath(prefix), ident.Position(i)))
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	default:
		return nil, diag.Unsupported(texpr.Position(), "type expression")
	}
}

func clonePath(p []ident.Step) []ident.Step {
	out := make([]ident.Step, len(p))
	copy(out, p)
	return out
}

func foldScalar(t *ast.SimpleTypeExpr, prefix []ident.Step) ([]Leaf, error) {
	var scalar types.Type
	switch t.Name {
	case "bool":
		scalar = types.Bool
	case "int":
		scalar = types.Int
	case "real":
		scalar = types.Real
	default:
		return nil, diag.Unsupported(t.Position(), "type "+t.Name)
	}
	return []Leaf{{Path: clonePath(prefix), Type: scalar}}, nil
}

func foldUserType(ctx typectx.Context, t *ast.UserTypeExpr, prefix []ident.Step) ([]Leaf, error) {
	if scalar, ok := ctx.ScalarAlias(t.Name); ok {
		return []Leaf{{Path: clonePath(prefix), Type: scalar}}, nil
	}
	if entries, ok := ctx.IndexedAlias(t.Name); ok {
		var out []Leaf
		for _, e := range entries {
			out = append(out, Leaf{Path: append(clonePath(prefix), e.Suffix...), Type: e.Scalar})
		}
		return out, nil
	}
	if ctx.IsFreeType(t.Name) {
		return []Leaf{{Path: clonePath(prefix), Type: &types.FreeType{Name: t.Name}}}, nil
	}
	return nil, diag.Undeclared(diag.ELB_UNDECLARED_TYPE, t.Position(), t.Name)
}

// evalRangeBounds evaluates the two bound expressions of an int-range
// type in constant-only mode.
func evalRangeBounds(ctx typectx.Context, t *ast.IntRangeTypeExpr) (*big.Int, *big.Int, error) {
	lo, err := evalConstInt(ctx, t.Lo)
	if err != nil {
		return nil, nil, err
	}
	hi, err := evalConstInt(ctx, t.Hi)
	if err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}

// evalConstInt evaluates e in abstraction-suppressing mode and requires a
// single scalar Int flat expression with identical init/step literals.
func evalConstInt(ctx typectx.Context, e ast.Expr) (*big.Int, error) {
	results, err := EvalExpr(ctx, NewConstDefs(), e)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, diag.ConstantRequired(e.Position(), "expected a single scalar value")
	}
	fe := results[0].Expr
	if !types.IsInt(fe.Type) && !isIntRange(fe.Type) {
		return nil, diag.ConstantRequired(e.Position(), "expected an integer constant")
	}
	if len(fe.PreVars) != 0 || !flat.IsConstExpr(fe) {
		return nil, diag.ConstantRequired(e.Position(), "expected a literal integer constant")
	}
	lit, ok := fe.Init.(flat.IntConst)
	if !ok {
		return nil, diag.ConstantRequired(e.Position(), "expected a literal integer constant")
	}
	return lit.Value, nil
}

func isIntRange(t types.Type) bool {
	_, ok := t.(*types.IntRange)
	return ok
}

func evalPositiveConstInt(ctx typectx.Context, e ast.Expr) (int, error) {
	v, err := evalConstInt(ctx, e)
	if err != nil {
		return 0, err
	}
	if v.Sign() <= 0 {
		return 0, diag.ConstantRequired(e.Position(), "expected a positive integer constant")
	}
	if !v.IsInt64() || v.Int64() > (1<<31) {
		return 0, diag.ConstantRequired(e.Position(), "array size too large")
	}
	return int(v.Int64()), nil
}
