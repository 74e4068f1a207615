package elaborate

import (
	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/flat"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/typectx"
	"github.com/sunholo/lustrecheck/internal/types"
)

// mapRegistry is the Registry eval.go consults for node-call resolution:
// signatures of nodes already elaborated earlier in the declaration
// list.
type mapRegistry struct {
	sigs map[string]NodeSignature
}

func newMapRegistry() *mapRegistry {
	return &mapRegistry{sigs: map[string]NodeSignature{}}
}

func (r *mapRegistry) Lookup(name string) (NodeSignature, bool) {
	sig, ok := r.sigs[name]
	return sig, ok
}

func (r *mapRegistry) add(sig NodeSignature) {
	r.sigs[sig.Name] = sig
}

// Program is the elaborated form of a whole source file: every type and
// constant declaration folded into the typing context, and every node
// fully assembled in declaration order.
type Program struct {
	Nodes []*Node
	Main  *Node
}

// Elaborate processes a parsed program's top-level declarations in
// order, maintaining the accumulating typing context and node registry.
// A call to a node declared later in the file surfaces as
// *diag.ForwardReferenceError from the evaluator; this loop resolves it
// to the precise diagnostic — "forward reference" if the callee is
// declared somewhere in the file, "undefined node" if it never is.
func Elaborate(prog *ast.Program) (*Program, error) {
	ctx := typectx.New()
	reg := newMapRegistry()
	declaredNodes := map[string]bool{}
	for _, d := range prog.Decls {
		if n, ok := d.(*ast.NodeDecl); ok {
			declaredNodes[n.Name] = true
		}
	}

	out := &Program{}
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.TypeDecl:
			var err error
			ctx, err = elaborateTypeDecl(ctx, decl)
			if err != nil {
				return nil, err
			}
		case *ast.ConstDecl:
			var err error
			ctx, err = elaborateConstDecl(ctx, decl)
			if err != nil {
				return nil, err
			}
		case *ast.NodeDecl:
			node, err := AssembleNode(ctx, reg, decl)
			if err != nil {
				if fwd, ok := err.(*diag.ForwardReferenceError); ok {
					if declaredNodes[fwd.Callee] {
						return nil, diag.Wrap(diag.New(diag.ELB_FORWARD_REF, fwd.Pos, "%q is declared later in this file; nodes may only call nodes declared earlier", fwd.Callee))
					}
					return nil, diag.Wrap(diag.New(diag.ELB_UNDEFINED_NODE, fwd.Pos, "node %q is never declared", fwd.Callee))
				}
				return nil, err
			}
			reg.add(node.Signature)
			out.Nodes = append(out.Nodes, node)
			if node.IsMain {
				out.Main = node
			}
		}
	}
	return out, nil
}

func elaborateTypeDecl(ctx typectx.Context, decl *ast.TypeDecl) (typectx.Context, error) {
	if decl.Definition == nil {
		return ctx.WithFreeType(decl.Pos, decl.Name)
	}
	leaves, err := FoldType(ctx, decl.Definition)
	if err != nil {
		return ctx, err
	}
	next := ctx
	for _, l := range leaves {
		id := ident.Ident{Base: decl.Name, Path: l.Path}
		next, err = next.WithBasicType(decl.Pos, id, l.Type)
		if err != nil {
			return ctx, err
		}
	}
	if len(leaves) == 1 && len(leaves[0].Path) == 0 {
		if next, err = typectx.AddEnumToContext(decl.Pos, next, leaves[0].Type); err != nil {
			return ctx, err
		}
	}
	return next, nil
}

func elaborateConstDecl(ctx typectx.Context, decl *ast.ConstDecl) (typectx.Context, error) {
	if decl.Value == nil {
		if decl.Type == nil {
			return ctx, diag.Unsupported(decl.Pos, "untyped external constant")
		}
		leaves, err := FoldType(ctx, decl.Type)
		if err != nil {
			return ctx, err
		}
		if len(leaves) != 1 {
			return ctx, diag.Unsupported(decl.Pos, "aggregate external constant")
		}
		return ctx.WithValue(decl.Pos, ident.New(decl.Name), leaves[0].Type)
	}
	results, err := EvalExpr(ctx, NewConstDefs(), decl.Value)
	if err != nil {
		return ctx, err
	}
	if len(results) != 1 {
		return ctx, diag.Unsupported(decl.Pos, "aggregate constant declaration")
	}
	value := results[0].Expr
	if decl.Type != nil {
		value, err = checkConstDeclType(ctx, decl, value)
		if err != nil {
			return ctx, err
		}
	}
	return ctx.WithConst(decl.Pos, ident.New(decl.Name), value)
}

// checkConstDeclType enforces a typed constant declaration's declared type
// against its evaluated value, the same way bindLeaves/relaxToIntRange
// enforce an equation's declared type against its right-hand side: a
// non-subtype value is fatal, except that an Int value assigned to an
// IntRange-declared constant is accepted with the constant's recorded type
// widened to Int, since there is no node here to attach a range property
// to.
func checkConstDeclType(ctx typectx.Context, decl *ast.ConstDecl, value flat.Expr) (flat.Expr, error) {
	leaves, err := FoldType(ctx, decl.Type)
	if err != nil {
		return flat.Expr{}, err
	}
	if len(leaves) != 1 {
		return flat.Expr{}, diag.Unsupported(decl.Pos, "aggregate constant declaration")
	}
	want := leaves[0].Type
	if types.CheckType(value.Type, want) {
		return value, nil
	}
	if _, ok := want.(*types.IntRange); ok && types.IsInt(value.Type) {
		return flat.Expr{Type: types.Int, Init: value.Init, Step: value.Step, PreVars: value.PreVars}, nil
	}
	return flat.Expr{}, diag.TypeMismatch(decl.Pos, value.Type, want)
}
