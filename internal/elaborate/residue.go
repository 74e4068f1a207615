package elaborate

import (
	"github.com/sunholo/lustrecheck/internal/flat"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/types"
)

// NewVar is one entry of the evaluator's abstraction residue: a fresh
// auxiliary the node assembler binds with an equation in Node.Equations.
type NewVar struct {
	ID   ident.Ident
	Type types.Type
	Expr flat.Expr
}

// NewCall is the other residue kind: a node-call site the assembler
// records on the node (Node.Calls), tracking each bound output's
// dependencies in Node.CallDeps.
type NewCall struct {
	BoundOutputs []ident.Ident
	Callee       string
	Activation   flat.Expr
	Args         []flat.Expr
	InitDefaults []flat.Expr
}

// Defs accumulates the residue produced while evaluating a single
// top-level statement. The evaluator never observes its own residue —
// the node assembler folds it into the node's equations/calls once the
// statement's evaluation returns, per statement, not mid-expression.
type Defs struct {
	Vars  []NewVar
	Calls []NewCall

	// constOnly, when set, makes the evaluator reject any attempt to add
	// to Vars or Calls with a "constant required" error instead of
	// recording the residue — used for array sizes, range bounds, and
	// projection indices, which must reduce to a literal without any
	// abstraction.
	constOnly bool
}

// NewDefs returns an accumulator that allows abstraction residue.
func NewDefs() *Defs { return &Defs{} }

// NewConstDefs returns an accumulator that forbids any abstraction —
// used by constant evaluation contexts.
func NewConstDefs() *Defs { return &Defs{constOnly: true} }

func (d *Defs) addVar(v NewVar) { d.Vars = append(d.Vars, v) }
func (d *Defs) addCall(c NewCall) { d.Calls = append(d.Calls, c) }
