package elaborate

import (
	"math/big"
	"sort"
	"strings"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/flat"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/typectx"
	"github.com/sunholo/lustrecheck/internal/types"
)

// ParamLeaf names one flattened leaf of a node's input or output
// signature: the declared parameter/output variable it belongs to, its
// suffix path relative to that variable, and its scalar type. Base lets
// callers reconstruct the same identifier the node body uses for this
// leaf (Base+Path), which is how the dependency analyzer correlates a
// signature leaf with the equation that defines it.
type ParamLeaf struct {
	Base string
	Path []ident.Step
	Type types.Type
	// Const is true when this leaf belongs to a `const` input — a value
	// a downstream consumer (e.g. an SMT encoder) must treat as
	// unconstrained-but-fixed rather than as a free stream variable.
	// Always false for output leaves.
	Const bool
}

// NodeSignature is everything a caller needs to elaborate a call to a
// node without re-reading its body: its flattened parameter shapes and,
// once the callee itself has been fully elaborated, the dependency
// vector callers need to avoid cycles through calls.
type NodeSignature struct {
	Name           string
	InputLeaves    []ParamLeaf
	OutputLeaves   []ParamLeaf
	OutputInputDep [][]int // per output leaf, the input leaf indices it depends on

	// OutputVarLeafCounts holds, in the node's own output-declaration
	// order, how many of OutputLeaves belong to each output variable —
	// the boundary a caller destructuring `a, b = f(x)` needs to split
	// the call's flattened result across its own LHS names.
	OutputVarLeafCounts []int
}

// Registry resolves callee names to their signatures. Looking up a name
// that will be declared later in the program, but has not yet been
// elaborated, must return ok == false so the evaluator can raise
// ForwardReference — the registry itself does not need to know which
// case it is; the top-level driver in program.go does.
type Registry interface {
	Lookup(name string) (NodeSignature, bool)
}

// Env bundles everything eval_expr needs beyond the typing context: the
// per-node fresh-identifier generators (threaded explicitly, never
// global) and the node-call registry.
type Env struct {
	Ctx      typectx.Context
	Aux      *ident.AuxGen
	Calls    *ident.CallGen
	Registry Registry
}

// IndexedExpr pairs a scalar flat expression with the index path it
// occupies within the aggregate shape of the surface expression that
// produced it.
type IndexedExpr struct {
	Index []ident.Step
	Expr  flat.Expr
}

func sortIndexed(items []IndexedExpr) {
	sort.Slice(items, func(i, j int) bool {
		return ident.Ident{Path: items[i].Index}.Compare(ident.Ident{Path: items[j].Index}) < 0
	})
}

func prefixed(prefix []ident.Step, items []IndexedExpr) []IndexedExpr {
	out := make([]IndexedExpr, len(items))
	for i, it := range items {
		p := make([]ident.Step, 0, len(prefix)+len(it.Index))
		p = append(p, prefix...)
		p = append(p, it.Index...)
		out[i] = IndexedExpr{Index: p, Expr: it.Expr}
	}
	return out
}

// EvalExpr is the main recursive traversal: it consumes a surface
// expression and produces its indexed flat-expression encoding, plus
// whatever abstraction residue it had to introduce along the way
// (recorded into defs, not returned — the caller folds it into the
// node's locals/calls once the enclosing statement is done).
func EvalExpr(ctx typectx.Context, defs *Defs, e ast.Expr) ([]IndexedExpr, error) {
	return evalWithEnv(&Env{Ctx: ctx}, defs, e)
}

// EvalExprIn is EvalExpr with a full Env (generators + call registry)
// available — the form the node assembler uses for non-constant bodies.
func EvalExprIn(env *Env, defs *Defs, e ast.Expr) ([]IndexedExpr, error) {
	return evalWithEnv(env, defs, e)
}

func evalWithEnv(env *Env, defs *Defs, e ast.Expr) ([]IndexedExpr, error) {
	switch x := e.(type) {
	case *ast.Ident:
		return evalIdent(env, x)
	case *ast.BoolLit:
		return []IndexedExpr{{Expr: flat.ConstBool(x.Value)}}, nil
	case *ast.IntLit:
		v, ok := new(big.Int).SetString(x.Text, 10)
		if !ok {
			return nil, diag.Unsupported(x.Position(), "malformed integer literal "+x.Text)
		}
		return []IndexedExpr{{Expr: flat.ConstInt(v)}}, nil
	case *ast.RealLit:
		v, ok := new(big.Float).SetString(x.Text)
		if !ok {
			return nil, diag.Unsupported(x.Position(), "malformed real literal "+x.Text)
		}
		return []IndexedExpr{{Expr: flat.ConstReal(v)}}, nil
	case *ast.FieldAccess:
		return evalFieldAccess(env, defs, x)
	case *ast.IndexAccess:
		return evalIndexAccess(env, defs, x)
	case *ast.ExprList:
		return evalExprList(env, defs, x)
	case *ast.TupleExpr:
		return evalTupleLike(env, defs, x.Elems)
	case *ast.ArrayExpr:
		return evalArrayExpr(env, defs, x)
	case *ast.RecordExpr:
		return evalRecordExpr(env, defs, x)
	case *ast.UnaryExpr:
		return evalUnary(env, defs, x)
	case *ast.BinaryExpr:
		return evalBinary(env, defs, x)
	case *ast.IfExpr:
		return evalIte(env, defs, x)
	case *ast.PreExpr:
		return evalPre(env, defs, x)
	case *ast.ArrowExpr:
		return evalArrow(env, defs, x)
	case *ast.CallExpr:
		return evalCall(env, defs, x)
	case *ast.CondactExpr:
		return evalCondact(env, defs, x)
	case *ast.FbyExpr:
		return nil, diag.Unsupported(x.Position(), "fby")
	case *ast.WhenExpr:
		return nil, diag.Unsupported(x.Position(), "when")
	case *ast.CurrentExpr:
		return nil, diag.Unsupported(x.Position(), "current")
	case *ast.ArraySliceExpr:
		return nil, diag.Unsupported(x.Position(), "array slice")
	case *ast.ArrayConcatExpr:
		return nil, diag.Unsupported(x.Position(), "array concatenation")
	case *ast.OneHotExpr:
		return nil, diag.Unsupported(x.Position(), "one-hot")
	case *ast.WithExpr:
		return nil, diag.Unsupported(x.Position(), "with")
	default:
		return nil, diag.Unsupported(e.Position(), "expression form")
	}
}

func evalIdent(env *Env, x *ast.Ident) ([]IndexedExpr, error) {
	id := ident.New(x.Name)
	if v, ok := env.Ctx.ConstValue(id); ok {
		return []IndexedExpr{{Expr: v}}, nil
	}
	if t, ok := env.Ctx.ValueType(id); ok {
		return []IndexedExpr{{Expr: flat.Variable(id, t)}}, nil
	}
	if entries, ok := env.Ctx.ValueDescendants(id); ok {
		var out []IndexedExpr
		for _, entry := range entries {
			leafID := ident.Ident{Base: id.Base, Path: append(append([]ident.Step{}, id.Path...), entry.Suffix...)}
			out = append(out, IndexedExpr{Index: entry.Suffix, Expr: flat.Variable(leafID, entry.Scalar)})
		}
		sortIndexed(out)
		return out, nil
	}
	return nil, diag.Undeclared(diag.ELB_UNDECLARED_ID, x.Position(), x.Name)
}

func evalFieldAccess(env *Env, defs *Defs, x *ast.FieldAccess) ([]IndexedExpr, error) {
	base, err := evalWithEnv(env, defs, x.Record)
	if err != nil {
		return nil, err
	}
	var out []IndexedExpr
	for _, item := range base {
		if len(item.Index) > 0 && item.Index[0].Kind == ident.FieldStep && item.Index[0].Name == x.Field {
			out = append(out, IndexedExpr{Index: item.Index[1:], Expr: item.Expr})
		}
	}
	if len(out) == 0 {
		return nil, diag.Undeclared(diag.ELB_UNDECLARED_ID, x.Position(), x.Field)
	}
	sortIndexed(out)
	return out, nil
}

func evalIndexAccess(env *Env, defs *Defs, x *ast.IndexAccess) ([]IndexedExpr, error) {
	idx, err := evalConstIntEnv(env, x.Index)
	if err != nil {
		return nil, err
	}
	base, err := evalWithEnv(env, defs, x.Base)
	if err != nil {
		return nil, err
	}
	n := int(idx.Int64())
	var out []IndexedExpr
	for _, item := range base {
		if len(item.Index) > 0 && item.Index[0].Kind == ident.PositionStep && item.Index[0].Position == n {
			out = append(out, IndexedExpr{Index: item.Index[1:], Expr: item.Expr})
		}
	}
	if len(out) == 0 {
		return nil, diag.Undeclared(diag.ELB_UNDECLARED_ID, x.Position(), "index")
	}
	sortIndexed(out)
	return out, nil
}

func evalConstIntEnv(env *Env, e ast.Expr) (*big.Int, error) {
	constDefs := NewConstDefs()
	results, err := evalWithEnv(&Env{Ctx: env.Ctx}, constDefs, e)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 || !flat.IsConstExpr(results[0].Expr) {
		return nil, diag.ConstantRequired(e.Position(), "expected a literal integer constant")
	}
	lit, ok := results[0].Expr.Init.(flat.IntConst)
	if !ok {
		return nil, diag.ConstantRequired(e.Position(), "expected a literal integer constant")
	}
	return lit.Value, nil
}

func evalExprList(env *Env, defs *Defs, x *ast.ExprList) ([]IndexedExpr, error) {
	return evalTupleLike(env, defs, x.Elems)
}

func evalTupleLike(env *Env, defs *Defs, elems []ast.Expr) ([]IndexedExpr, error) {
	var out []IndexedExpr
	for i, sub := range elems {
		results, err := evalWithEnv(env, defs, sub)
		if err != nil {
			return nil, err
		}
		out = append(out, prefixed([]ident.Step{ident.Position(i)}, results)...)
	}
	sortIndexed(out)
	return out, nil
}

func evalArrayExpr(env *Env, defs *Defs, x *ast.ArrayExpr) ([]IndexedExpr, error) {
	n, err := evalConstIntEnv(env, x.Size)
	if err != nil {
		return nil, err
	}
	elem, err := evalWithEnv(env, defs, x.Elem)
	if err != nil {
		return nil, err
	}
	var out []IndexedExpr
	for i := 0; i < int(n.Int64()); i++ {
		out = append(out, prefixed([]ident.Step{ident.Position(i)}, elem)...)
	}
	sortIndexed(out)
	return out, nil
}

func evalRecordExpr(env *Env, defs *Defs, x *ast.RecordExpr) ([]IndexedExpr, error) {
	entries, ok := env.Ctx.IndexedAlias(x.TypeName)
	if !ok {
		if _, scalar := env.Ctx.ScalarAlias(x.TypeName); scalar {
			return nil, diag.Unsupported(x.Position(), "record constructor names scalar type "+x.TypeName+", not a record type")
		}
		return nil, diag.Undeclared(diag.ELB_UNDECLARED_TYPE, x.Position(), x.TypeName)
	}
	want := make(map[string]types.Type)
	for _, e := range entries {
		want[pathKey(e.Suffix)] = e.Scalar
	}

	var got []IndexedExpr
	for _, f := range x.Fields {
		vals, err := evalWithEnv(env, defs, f.Value)
		if err != nil {
			return nil, err
		}
		got = append(got, prefixed([]ident.Step{ident.Field(f.Name)}, vals)...)
	}
	sortIndexed(got)

	if len(got) != len(want) {
		return nil, diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, x.Position(), "record literal for %s has the wrong shape", x.TypeName))
	}
	for _, g := range got {
		wantType, ok := want[pathKey(g.Index)]
		if !ok {
			return nil, diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, x.Position(), "record literal for %s has an unexpected field", x.TypeName))
		}
		if !types.CheckType(g.Expr.Type, wantType) {
			return nil, diag.TypeMismatch(x.Position(), g.Expr.Type, wantType)
		}
	}
	return got, nil
}

func pathKey(p []ident.Step) string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, "")
}

func evalUnary(env *Env, defs *Defs, x *ast.UnaryExpr) ([]IndexedExpr, error) {
	operand, err := evalWithEnv(env, defs, x.Expr)
	if err != nil {
		return nil, err
	}
	var out []IndexedExpr
	for _, item := range operand {
		var r flat.Expr
		var err error
		switch x.Op {
		case "not":
			r, err = flat.Not(x.Position(), item.Expr)
		case "neg":
			r, err = flat.Neg(x.Position(), item.Expr)
		case "to_int":
			r, err = flat.ToIntOf(x.Position(), item.Expr)
		case "to_real":
			r, err = flat.ToRealOf(x.Position(), item.Expr)
		default:
			return nil, diag.Unsupported(x.Position(), "unary operator "+x.Op)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, IndexedExpr{Index: item.Index, Expr: r})
	}
	return out, nil
}

var binaryOps = map[string]flat.BinaryOp{
	"+": flat.OpAdd, "-": flat.OpSub, "*": flat.OpMul, "/": flat.OpDiv, "mod": flat.OpMod,
	"<": flat.OpLt, "<=": flat.OpLe, ">": flat.OpGt, ">=": flat.OpGe, "=": flat.OpEq, "<>": flat.OpNe,
}

func evalBinary(env *Env, defs *Defs, x *ast.BinaryExpr) ([]IndexedExpr, error) {
	left, err := evalWithEnv(env, defs, x.Left)
	if err != nil {
		return nil, err
	}
	right, err := evalWithEnv(env, defs, x.Right)
	if err != nil {
		return nil, err
	}
	if len(left) != len(right) {
		return nil, diag.TypeMismatch(x.Position(), left[0].Expr.Type, right[0].Expr.Type)
	}
	sortIndexed(left)
	sortIndexed(right)

	var out []IndexedExpr
	for i := range left {
		l, r := left[i], right[i]
		if !pathEqual(l.Index, r.Index) {
			return nil, diag.TypeMismatch(x.Position(), l.Expr.Type, r.Expr.Type)
		}
		res, err := applyBinaryOp(x.Position(), x.Op, l.Expr, r.Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, IndexedExpr{Index: l.Index, Expr: res})
	}
	return out, nil
}

func applyBinaryOp(pos ast.Pos, op string, l, r flat.Expr) (flat.Expr, error) {
	switch op {
	case "and":
		return flat.And(pos, l, r)
	case "or":
		return flat.Or(pos, l, r)
	case "xor":
		return flat.Xor(pos, l, r)
	case "implies":
		return flat.Implies(pos, l, r)
	case "<", "<=", ">", ">=", "=", "<>":
		return flat.Relational(pos, binaryOps[op], l, r)
	case "+", "-", "*", "/", "mod":
		return flat.Arith(pos, binaryOps[op], l, r)
	default:
		return flat.Expr{}, diag.Unsupported(pos, "binary operator "+op)
	}
}

func pathEqual(a, b []ident.Step) bool {
	return ident.Ident{Path: a}.Equal(ident.Ident{Path: b})
}

func evalIte(env *Env, defs *Defs, x *ast.IfExpr) ([]IndexedExpr, error) {
	cond, err := evalWithEnv(env, defs, x.Cond)
	if err != nil {
		return nil, err
	}
	if len(cond) != 1 || !types.IsBool(cond[0].Expr.Type) {
		return nil, diag.Wrap(diag.New(diag.ELB_NON_BOOL, x.Position(), "if condition must be bool"))
	}
	then, err := evalWithEnv(env, defs, x.Then)
	if err != nil {
		return nil, err
	}
	els, err := evalWithEnv(env, defs, x.Else)
	if err != nil {
		return nil, err
	}
	if len(then) != len(els) {
		return nil, diag.TypeMismatch(x.Position(), then[0].Expr.Type, els[0].Expr.Type)
	}
	sortIndexed(then)
	sortIndexed(els)

	var out []IndexedExpr
	for i := range then {
		r, err := flat.IteOf(x.Position(), cond[0].Expr, then[i].Expr, els[i].Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, IndexedExpr{Index: then[i].Index, Expr: r})
	}
	return out, nil
}

// evalPre implements `pre e`: for each scalar leaf of e, bind an
// auxiliary equation if it is not already a bare variable, then build
// `pre` over that variable.
func evalPre(env *Env, defs *Defs, x *ast.PreExpr) ([]IndexedExpr, error) {
	operand, err := evalWithEnv(env, defs, x.Expr)
	if err != nil {
		return nil, err
	}
	var out []IndexedExpr
	for _, item := range operand {
		v := item.Expr
		if _, isVar := v.Init.(flat.Var); !isVar {
			if defs.constOnly {
				return nil, diag.ConstantRequired(x.Position(), "cannot introduce an auxiliary variable here")
			}
			if env.Aux == nil {
				return nil, diag.Unsupported(x.Position(), "pre of a non-variable expression outside a node body")
			}
			fresh := env.Aux.Next()
			defs.addVar(NewVar{ID: fresh, Type: v.Type, Expr: v})
			v = flat.Variable(fresh, v.Type)
		}
		r, err := flat.PreOf(x.Position(), v)
		if err != nil {
			return nil, err
		}
		out = append(out, IndexedExpr{Index: item.Index, Expr: r})
	}
	return out, nil
}

func evalArrow(env *Env, defs *Defs, x *ast.ArrowExpr) ([]IndexedExpr, error) {
	init, err := evalWithEnv(env, defs, x.Init)
	if err != nil {
		return nil, err
	}
	step, err := evalWithEnv(env, defs, x.Step)
	if err != nil {
		return nil, err
	}
	if len(init) != len(step) {
		return nil, diag.TypeMismatch(x.Position(), init[0].Expr.Type, step[0].Expr.Type)
	}
	sortIndexed(init)
	sortIndexed(step)
	var out []IndexedExpr
	for i := range init {
		r, err := flat.ArrowOf(x.Position(), init[i].Expr, step[i].Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, IndexedExpr{Index: init[i].Index, Expr: r})
	}
	return out, nil
}

func evalCall(env *Env, defs *Defs, x *ast.CallExpr) ([]IndexedExpr, error) {
	return elaborateCall(env, defs, x.Position(), x.Callee, x.Args, nil, nil)
}

func evalCondact(env *Env, defs *Defs, x *ast.CondactExpr) ([]IndexedExpr, error) {
	cond, err := evalWithEnv(env, defs, x.Cond)
	if err != nil {
		return nil, err
	}
	if len(cond) != 1 || !types.IsBool(cond[0].Expr.Type) {
		return nil, diag.Wrap(diag.New(diag.ELB_NON_BOOL, x.Position(), "condact activation must be bool"))
	}
	return elaborateCall(env, defs, x.Position(), x.Callee, x.Args, &cond[0].Expr, x.Defaults)
}

// elaborateCall implements node-call elaboration shared by plain calls
// and condact: resolve the callee, check argument types positionally,
// allocate a fresh call identifier, and record the call residue.
func elaborateCall(env *Env, defs *Defs, pos ast.Pos, callee string, argExprs []ast.Expr, activation *flat.Expr, defaultExprs []ast.Expr) ([]IndexedExpr, error) {
	if defs.constOnly {
		return nil, diag.ConstantRequired(pos, "a node call cannot appear in a constant expression")
	}
	if env.Registry == nil {
		return nil, diag.Unsupported(pos, "node calls are not available in this context")
	}
	sig, ok := env.Registry.Lookup(callee)
	if !ok {
		return nil, &diag.ForwardReferenceError{Callee: callee, Pos: pos}
	}

	// Each argExpr's own flattening is already canonically ordered for its
	// type (the same order FoldType produced for the matching parameter),
	// so arguments are concatenated in declaration order rather than
	// sorted globally — a global sort would scramble the correspondence
	// between two same-shaped (e.g. both scalar) arguments.
	var args []IndexedExpr
	for _, a := range argExprs {
		res, err := evalWithEnv(env, defs, a)
		if err != nil {
			return nil, err
		}
		args = append(args, res...)
	}
	if len(args) != len(sig.InputLeaves) {
		return nil, diag.Wrap(diag.New(diag.ELB_TYPE_MISMATCH, pos, "%s expects %d scalar inputs, got %d", callee, len(sig.InputLeaves), len(args)))
	}
	flatArgs := make([]flat.Expr, len(args))
	for i, a := range args {
		if !types.CheckType(a.Expr.Type, sig.InputLeaves[i].Type) {
			return nil, diag.TypeMismatch(pos, a.Expr.Type, sig.InputLeaves[i].Type)
		}
		flatArgs[i] = a.Expr
	}

	var defaults []flat.Expr
	if defaultExprs != nil {
		var defItems []IndexedExpr
		for _, d := range defaultExprs {
			res, err := evalWithEnv(env, defs, d)
			if err != nil {
				return nil, err
			}
			defItems = append(defItems, res...)
		}
		sortIndexed(defItems)
		if len(defItems) != len(sig.OutputLeaves) {
			return nil, diag.Wrap(diag.New(diag.ELB_TYPE_MISMATCH, pos, "%s condact defaults have the wrong shape", callee))
		}
		defaults = make([]flat.Expr, len(defItems))
		for i, d := range defItems {
			if !types.CheckType(d.Expr.Type, sig.OutputLeaves[i].Type) {
				return nil, diag.TypeMismatch(pos, d.Expr.Type, sig.OutputLeaves[i].Type)
			}
			defaults[i] = d.Expr
		}
	}

	if env.Calls == nil {
		return nil, diag.Unsupported(pos, "node calls are not available in this context")
	}
	callID := env.Calls.Next(callee)

	act := flat.ConstBool(true)
	if activation != nil {
		act = *activation
	}

	boundOutputs := make([]ident.Ident, len(sig.OutputLeaves))
	result := make([]IndexedExpr, len(sig.OutputLeaves))
	for i, out := range sig.OutputLeaves {
		// out.Base disambiguates between the callee's own output
		// variables (several may flatten to an empty suffix each), so it
		// has to be part of the path that makes this call's bound
		// identifier unique, even though it plays no role in the
		// callee's own equation keys.
		path := append([]ident.Step{}, callID.Path...)
		path = append(path, ident.Field(out.Base))
		path = append(path, out.Path...)
		boundID := ident.Ident{Base: callID.Base, Path: path}
		boundOutputs[i] = boundID
		result[i] = IndexedExpr{Index: out.Path, Expr: flat.Variable(boundID, out.Type)}
	}
	defs.addCall(NewCall{
		BoundOutputs: boundOutputs,
		Callee:       callee,
		Activation:   act,
		Args:         flatArgs,
		InitDefaults: defaults,
	})
	// Deliberately not sorted: a multi-output call is only ever legal as
	// the entire RHS of an equation, and the node assembler splits this
	// slice across its LHS names in the callee's own output-declaration
	// order, not index order.
	return result, nil
}
