package elaborate

import (
	"sort"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/flat"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/sid"
	"github.com/sunholo/lustrecheck/internal/typectx"
	"github.com/sunholo/lustrecheck/internal/types"
)

// Node is the fully elaborated form of a node declaration: every local
// and output bound to a flat equation, every call site recorded with
// its fresh identifier, and the equations ordered so each is emitted
// after everything it reads at the same instant.
type Node struct {
	// ID is a stable hash of this node's declaration site, unchanged
	// across re-elaborations of the same source as long as the
	// declaration itself doesn't move or get renamed.
	ID       sid.SID
	Name     string
	Inputs   []ParamLeaf
	Outputs  []ParamLeaf
	Equations map[string]flat.Expr // keyed by leaf identifier string, excludes call bound-outputs
	Order    []string              // topologically sorted leaf identifiers (locals, outputs, call outputs)
	Calls    []NewCall
	// CallDeps maps each call bound-output identifier string to the
	// variable identifiers it depends on — the callee's own activation
	// plus whichever of its arguments the callee's signature says that
	// output actually reads. Tracked separately from Equations because a
	// call output has no flat.Expr of its own on the caller's side.
	CallDeps   map[string][]string
	Requires   []flat.Expr
	Ensures    []flat.Expr
	Asserts    []flat.Expr
	Properties map[string]flat.Expr
	IsMain     bool
	Signature  NodeSignature
	// Warnings collects non-fatal diagnostics raised while assembling
	// this node — currently only "unguarded pre" reports. Promoting
	// these to errors is a tool-level policy (see internal/config),
	// not something AssembleNode decides on its own.
	Warnings []*diag.Report
}

// varLeaves folds decl's type and registers each leaf in ctx as a value
// identifier rooted at decl.Name.
func varLeaves(ctx typectx.Context, decl *ast.VarDecl) (typectx.Context, []Leaf, error) {
	if decl.Clocked {
		return ctx, nil, diag.Unsupported(decl.Pos, "clocked declarations")
	}
	leaves, err := FoldType(ctx, decl.Type)
	if err != nil {
		return ctx, nil, err
	}
	next := ctx
	for _, l := range leaves {
		id := ident.Ident{Base: decl.Name, Path: l.Path}
		next, err = next.WithValue(decl.Pos, id, l.Type)
		if err != nil {
			return ctx, nil, err
		}
	}
	return next, leaves, nil
}

func toParamLeaves(base string, leaves []Leaf, isConst bool) []ParamLeaf {
	out := make([]ParamLeaf, len(leaves))
	for i, l := range leaves {
		out[i] = ParamLeaf{Base: base, Path: l.Path, Type: l.Type, Const: isConst}
	}
	return out
}

// AssembleNode elaborates a single node declaration against a typing
// context that already has every earlier program-level declaration (and
// every already-elaborated node's signature, via reg) in scope.
func AssembleNode(ctx typectx.Context, reg *mapRegistry, decl *ast.NodeDecl) (*Node, error) {
	if len(decl.Params) != 0 {
		return nil, diag.Unsupported(decl.Pos, "parametric nodes")
	}

	local := ctx
	var err error
	var inputs, outputs []ParamLeaf
	var outputCounts []int

	for _, in := range decl.Inputs {
		var leaves []Leaf
		local, leaves, err = varLeaves(local, in)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, toParamLeaves(in.Name, leaves, in.Const)...)
	}
	for _, out := range decl.Outputs {
		var leaves []Leaf
		local, leaves, err = varLeaves(local, out)
		if err != nil {
			return nil, err
		}
		outputCounts = append(outputCounts, len(leaves))
		outputs = append(outputs, toParamLeaves(out.Name, leaves, false)...)
	}
	for _, loc := range decl.Locals {
		if local, _, err = varLeaves(local, loc); err != nil {
			return nil, err
		}
	}

	env := &Env{Ctx: local, Aux: ident.NewAuxGen(), Calls: ident.NewCallGen(), Registry: reg}

	node := &Node{
		ID:         sid.NewSID(decl.Pos.File, decl.Pos.Line, decl.Pos.Column, "NodeDecl", decl.Name),
		Name:       decl.Name,
		Inputs:     inputs,
		Outputs:    outputs,
		Equations:  map[string]flat.Expr{},
		CallDeps:   map[string][]string{},
		Properties: map[string]flat.Expr{},
		IsMain:     decl.IsMain,
	}

	for _, r := range decl.Requires {
		fe, err := evalBoolContract(env, r)
		if err != nil {
			return nil, err
		}
		node.Requires = append(node.Requires, fe)
	}
	for _, e := range decl.Ensures {
		fe, err := evalBoolContract(env, e)
		if err != nil {
			return nil, err
		}
		node.Ensures = append(node.Ensures, fe)
	}

	for _, stmt := range decl.Body {
		if err := elaborateStmt(env, node, stmt); err != nil {
			return nil, err
		}
	}

	if err := sortEquations(node); err != nil {
		return nil, err
	}

	node.Signature = NodeSignature{
		Name:                decl.Name,
		InputLeaves:         node.Inputs,
		OutputLeaves:        node.Outputs,
		OutputVarLeafCounts: outputCounts,
	}
	node.Signature.OutputInputDep = computeOutputInputDep(node)
	return node, nil
}

func evalBoolContract(env *Env, e ast.Expr) (flat.Expr, error) {
	results, err := EvalExprIn(env, NewDefs(), e)
	if err != nil {
		return flat.Expr{}, err
	}
	if len(results) != 1 || !types.IsBool(results[0].Expr.Type) {
		return flat.Expr{}, diag.Wrap(diag.New(diag.ELB_NON_BOOL, e.Position(), "contract clause must be bool"))
	}
	return results[0].Expr, nil
}

func elaborateStmt(env *Env, node *Node, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Equation:
		return elaborateEquation(env, node, s)
	case *ast.Assert:
		fe, err := evalBoolContract(env, s.Expr)
		if err != nil {
			return err
		}
		node.Asserts = append(node.Asserts, fe)
		return nil
	case *ast.PropertyAnnotation:
		fe, err := evalBoolContract(env, s.Expr)
		if err != nil {
			return err
		}
		node.Properties[s.Name] = fe
		return nil
	default:
		return diag.Unsupported(stmt.Position(), "statement form")
	}
}

func elaborateEquation(env *Env, node *Node, eq *ast.Equation) error {
	defs := NewDefs()
	results, err := EvalExprIn(env, defs, eq.RHS)
	if err != nil {
		return err
	}

	if len(eq.LHS) == 1 {
		if err := bindLeaves(env.Ctx, node, eq.Pos, eq.LHS[0], results); err != nil {
			return err
		}
	} else {
		if err := bindMultiLHS(env, node, eq, results); err != nil {
			return err
		}
	}

	for _, v := range defs.Vars {
		node.Equations[v.ID.String()] = v.Expr
		checkUnguardedPre(node, eq.Pos, v.ID.String(), v.Expr)
	}
	node.Calls = append(node.Calls, defs.Calls...)
	for _, c := range defs.Calls {
		if err := recordCallDeps(env, node, c); err != nil {
			return err
		}
	}
	return nil
}

// recordCallDeps registers, for each of a call's bound outputs, the
// variables it depends on: the activation condition's variables (the
// call may not fire at all), plus the variables of whichever arguments
// the callee's own signature says that output actually reads.
func recordCallDeps(env *Env, node *Node, c NewCall) error {
	sig, ok := env.Registry.Lookup(c.Callee)
	if !ok {
		return diag.Unsupported(ast.Pos{}, "call to an unregistered node "+c.Callee)
	}
	actVars := collectVars(c.Activation.Step, true)
	for i, out := range c.BoundOutputs {
		seen := map[string]bool{}
		for v := range actVars {
			seen[v] = true
		}
		if i < len(sig.OutputInputDep) {
			for _, argIdx := range sig.OutputInputDep[i] {
				if argIdx < len(c.Args) {
					for v := range collectVars(c.Args[argIdx].Step, true) {
						seen[v] = true
					}
				}
			}
		}
		var deps []string
		for v := range seen {
			deps = append(deps, v)
		}
		sort.Strings(deps)
		node.CallDeps[out.String()] = deps
	}
	return nil
}

// bindLeaves zips the sorted flattened RHS results against the sorted
// flattened descendants of a single LHS name.
func bindLeaves(ctx typectx.Context, node *Node, pos ast.Pos, name string, results []IndexedExpr) error {
	id := ident.New(name)
	if t, ok := ctx.ValueType(id); ok {
		if len(results) != 1 {
			return diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, pos, "%s expects a single scalar value", name))
		}
		if !types.CheckType(results[0].Expr.Type, t) {
			relaxed, err := relaxToIntRange(node, pos, id, results[0].Expr, t)
			if err != nil {
				return err
			}
			if !relaxed {
				return diag.TypeMismatch(pos, results[0].Expr.Type, t)
			}
		}
		node.Equations[id.String()] = results[0].Expr
		checkUnguardedPre(node, pos, id.String(), results[0].Expr)
		return nil
	}
	entries, ok := ctx.ValueDescendants(id)
	if !ok {
		return diag.Undeclared(diag.ELB_UNDECLARED_ID, pos, name)
	}
	sortIndexed(results)
	want := append([]typectx.LeafEntry{}, entries...)
	sort.Slice(want, func(i, j int) bool {
		return ident.Ident{Path: want[i].Suffix}.Compare(ident.Ident{Path: want[j].Suffix}) < 0
	})
	if len(results) != len(want) {
		return diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, pos, "%s has the wrong number of values", name))
	}
	for i, r := range results {
		if !pathEqual(r.Index, want[i].Suffix) {
			return diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, pos, "%s has mismatched shape", name))
		}
		leafID := ident.Ident{Base: name, Path: want[i].Suffix}
		if !types.CheckType(r.Expr.Type, want[i].Scalar) {
			relaxed, err := relaxToIntRange(node, pos, leafID, r.Expr, want[i].Scalar)
			if err != nil {
				return err
			}
			if !relaxed {
				return diag.TypeMismatch(pos, r.Expr.Type, want[i].Scalar)
			}
		}
		node.Equations[leafID.String()] = r.Expr
		checkUnguardedPre(node, pos, leafID.String(), r.Expr)
	}
	return nil
}

// relaxToIntRange implements the one documented exception to the subtype
// check: an Int-typed expression assigned to an IntRange-typed leaf is
// accepted instead of rejected, by widening that leaf's recorded type to
// Int and recording a separate range property `lo <= expr && expr <= hi`
// in the node's property list. Reports false, nil when have/want is any
// other shape, leaving the caller to raise its own TypeMismatch.
func relaxToIntRange(node *Node, pos ast.Pos, leafID ident.Ident, fe flat.Expr, want types.Type) (bool, error) {
	wantRange, ok := want.(*types.IntRange)
	if !ok || !types.IsInt(fe.Type) {
		return false, nil
	}
	lowerBound, err := flat.Relational(pos, flat.OpLe, flat.ConstInt(wantRange.Lo), fe)
	if err != nil {
		return false, err
	}
	upperBound, err := flat.Relational(pos, flat.OpLe, fe, flat.ConstInt(wantRange.Hi))
	if err != nil {
		return false, err
	}
	rangeProperty, err := flat.And(pos, lowerBound, upperBound)
	if err != nil {
		return false, err
	}
	node.Properties[leafID.String()] = rangeProperty
	relaxOutputLeafType(node, leafID)
	return true, nil
}

// relaxOutputLeafType widens the recorded type of the output leaf
// matching leafID to Int, if leafID names an output rather than a local.
// Locals have no type record of their own outside the typing context
// that produced them, so there is nothing further to widen for those.
func relaxOutputLeafType(node *Node, leafID ident.Ident) {
	for i, out := range node.Outputs {
		if out.Base == leafID.Base && pathEqual(out.Path, leafID.Path) {
			node.Outputs[i].Type = types.Int
			return
		}
	}
}

// checkUnguardedPre appends a non-fatal warning to node if fe's initial
// value was never pinned down by an arrow on every syntactic path.
func checkUnguardedPre(node *Node, pos ast.Pos, name string, fe flat.Expr) {
	if fe.HasUndefinedInit() {
		node.Warnings = append(node.Warnings, diag.UnguardedPre(pos, name))
	}
}

// bindMultiLHS handles `a, b = f(x);`: the RHS must be exactly a call,
// whose flattened result (already evaluated by the caller) is split
// across LHS names using the callee's own output-variable boundaries.
func bindMultiLHS(env *Env, node *Node, eq *ast.Equation, results []IndexedExpr) error {
	callee := ""
	switch r := eq.RHS.(type) {
	case *ast.CallExpr:
		callee = r.Callee
	case *ast.CondactExpr:
		callee = r.Callee
	default:
		return diag.Unsupported(eq.Pos, "multiple assignment from a non-call expression")
	}
	sig, ok := env.Registry.Lookup(callee)
	if !ok {
		return &diag.ForwardReferenceError{Callee: callee, Pos: eq.Pos}
	}
	if len(sig.OutputVarLeafCounts) != len(eq.LHS) {
		return diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, eq.Pos, "%s returns %d values, %d bound", callee, len(sig.OutputVarLeafCounts), len(eq.LHS)))
	}

	idx := 0
	for i, name := range eq.LHS {
		count := sig.OutputVarLeafCounts[i]
		group := results[idx : idx+count]
		idx += count
		boundID := ident.New(name)
		entries, ok := env.Ctx.ValueDescendants(boundID)
		if !ok {
			if t, ok := env.Ctx.ValueType(boundID); ok && len(group) == 1 {
				if !types.CheckType(group[0].Expr.Type, t) {
					relaxed, err := relaxToIntRange(node, eq.Pos, boundID, group[0].Expr, t)
					if err != nil {
						return err
					}
					if !relaxed {
						return diag.TypeMismatch(eq.Pos, group[0].Expr.Type, t)
					}
				}
				node.Equations[boundID.String()] = group[0].Expr
				checkUnguardedPre(node, eq.Pos, boundID.String(), group[0].Expr)
				continue
			}
			return diag.Undeclared(diag.ELB_UNDECLARED_ID, eq.Pos, name)
		}
		// Copy before sorting: entries aliases the context's own stored
		// slice for this identifier, shared across Context values by
		// value-threading, so sorting it in place would corrupt lookups
		// elsewhere.
		destEntries := append([]typectx.LeafEntry{}, entries...)
		sort.Slice(destEntries, func(a, b int) bool {
			return ident.Ident{Path: destEntries[a].Suffix}.Compare(ident.Ident{Path: destEntries[b].Suffix}) < 0
		})
		sortIndexed(group)
		if len(group) != len(destEntries) {
			return diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, eq.Pos, "%s has the wrong shape", name))
		}
		for j, g := range group {
			if !pathEqual(g.Index, destEntries[j].Suffix) {
				return diag.Wrap(diag.New(diag.ELB_RECORD_SHAPE, eq.Pos, "%s has mismatched shape", name))
			}
			leafID := ident.Ident{Base: name, Path: destEntries[j].Suffix}
			if !types.CheckType(g.Expr.Type, destEntries[j].Scalar) {
				relaxed, err := relaxToIntRange(node, eq.Pos, leafID, g.Expr, destEntries[j].Scalar)
				if err != nil {
					return err
				}
				if !relaxed {
					return diag.TypeMismatch(eq.Pos, g.Expr.Type, destEntries[j].Scalar)
				}
			}
			node.Equations[leafID.String()] = g.Expr
			checkUnguardedPre(node, eq.Pos, leafID.String(), g.Expr)
		}
	}
	return nil
}

// sortEquations builds the intra-node dependency graph over every
// equation this node defines (locals, outputs, call bound-outputs) and
// orders them so each is emitted after everything its step-instant term
// reads combinationally (i.e. not only through a pre).
func sortEquations(node *Node) error {
	g := newDepGraph()
	names := make([]string, 0, len(node.Equations)+len(node.CallDeps))
	for k := range node.Equations {
		names = append(names, k)
	}
	for k := range node.CallDeps {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		g.addNode(k)
	}
	for k, e := range node.Equations {
		for dep := range collectVars(e.Step, false) {
			if isDefined(node, dep) {
				g.addEdge(k, dep)
			}
		}
	}
	// A call's activation/argument dependencies are treated as
	// combinational here even when the callee only reads them through an
	// internal pre: the signature does not expose that distinction, so
	// this conservatively forbids some feedback loops a more precise
	// analysis would allow.
	for k, deps := range node.CallDeps {
		for _, dep := range deps {
			if isDefined(node, dep) {
				g.addEdge(k, dep)
			}
		}
	}
	order, err := g.topoSort(func(members []string) error {
		return diag.Cyclic(ast.Pos{}, members)
	})
	if err != nil {
		return err
	}
	node.Order = order
	return nil
}

func isDefined(node *Node, key string) bool {
	if _, ok := node.Equations[key]; ok {
		return true
	}
	_, ok := node.CallDeps[key]
	return ok
}

// computeOutputInputDep reports, for each flattened output leaf, which
// flattened input leaf indices it transitively reads (combinationally
// or through any number of pre delays).
func computeOutputInputDep(node *Node) [][]int {
	g := newDepGraph()
	for k := range node.Equations {
		g.addNode(k)
	}
	for k := range node.CallDeps {
		g.addNode(k)
	}
	for _, in := range node.Inputs {
		g.addNode(leafKey(in))
	}
	for k, e := range node.Equations {
		for dep := range collectVars(e.Step, true) {
			g.addNode(dep)
			g.addEdge(k, dep)
		}
	}
	for k, deps := range node.CallDeps {
		for _, dep := range deps {
			g.addNode(dep)
			g.addEdge(k, dep)
		}
	}
	closure := g.transitiveClosure()

	inputIndex := make(map[string]int, len(node.Inputs))
	for i, in := range node.Inputs {
		inputIndex[leafKey(in)] = i
	}

	deps := make([][]int, len(node.Outputs))
	for i, out := range node.Outputs {
		seen := map[int]bool{}
		key := leafKey(out)
		if idx, ok := inputIndex[key]; ok {
			seen[idx] = true
		}
		for reached := range closure[key] {
			if idx, ok := inputIndex[reached]; ok {
				seen[idx] = true
			}
		}
		var list []int
		for idx := range seen {
			list = append(list, idx)
		}
		sort.Ints(list)
		deps[i] = list
	}
	return deps
}

func leafKey(p ParamLeaf) string {
	return (ident.Ident{Base: p.Base, Path: p.Path}).String()
}

func collectVars(t flat.Term, includePre bool) map[string]bool {
	out := map[string]bool{}
	var walk func(flat.Term)
	walk = func(t flat.Term) {
		switch v := t.(type) {
		case flat.Var:
			out[v.ID.String()] = true
		case flat.Unary:
			walk(v.X)
		case flat.Binary:
			walk(v.X)
			walk(v.Y)
		case flat.Ite:
			walk(v.Cond)
			walk(v.Then)
			walk(v.Else)
		case flat.Pre:
			if includePre {
				out[v.Var.ID.String()] = true
			}
		case flat.ToInt:
			walk(v.X)
		case flat.ToReal:
			walk(v.X)
		}
	}
	walk(t)
	return out
}
