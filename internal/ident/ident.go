// Package ident implements the identifier and index algebra used
// throughout elaboration: a path-structured name (a base symbol plus an
// ordered list of index steps), a total order over such names, and the
// two fresh-identifier generators the elaborator needs.
package ident

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Reserved base prefixes. User declarations naming these are fatal:
// identifiers reserved for elaborator-generated variables are never
// user-declarable.
const (
	AuxBase     = "__abs"
	ReturnsStep = "__returns"
)

// StepKind distinguishes the three forms an index step can take. Kept as
// a closed tag so a switch over it can be checked for exhaustiveness by a
// linter.
type StepKind int

const (
	FieldStep StepKind = iota
	PositionStep
	EmbeddedStep
)

// Step is one element of an identifier's index path.
type Step struct {
	Kind     StepKind
	Name     string // valid when Kind == FieldStep
	Position int    // valid when Kind == PositionStep
	Embedded Ident  // valid when Kind == EmbeddedStep
}

func Field(name string) Step   { return Step{Kind: FieldStep, Name: name} }
func Position(n int) Step      { return Step{Kind: PositionStep, Position: n} }
func Embed(id Ident) Step      { return Step{Kind: EmbeddedStep, Embedded: id} }

func (s Step) String() string {
	switch s.Kind {
	case FieldStep:
		return "." + s.Name
	case PositionStep:
		return fmt.Sprintf("[%d]", s.Position)
	case EmbeddedStep:
		return "{" + s.Embedded.String() + "}"
	default:
		return "?"
	}
}

// compare gives a stable total order: field steps sort before position
// steps, which sort before embedded steps; ties within a kind compare by
// payload.
func (s Step) compare(o Step) int {
	if s.Kind != o.Kind {
		if s.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch s.Kind {
	case FieldStep:
		return strings.Compare(s.Name, o.Name)
	case PositionStep:
		switch {
		case s.Position < o.Position:
			return -1
		case s.Position > o.Position:
			return 1
		default:
			return 0
		}
	case EmbeddedStep:
		return s.Embedded.Compare(o.Embedded)
	default:
		return 0
	}
}

func (s Step) equal(o Step) bool { return s.compare(o) == 0 }

// Ident is a base name plus an ordered index path. Identifiers are value
// objects: there is no mutation, only construction of new values.
type Ident struct {
	Base string
	Path []Step
}

// New builds a bare base identifier, NFC-normalizing the name so two
// spellings of the same Unicode identifier always compare equal.
func New(base string) Ident {
	return Ident{Base: normalizeName(base)}
}

func normalizeName(s string) string {
	b := []byte(s)
	if norm.NFC.IsNormal(b) {
		return s
	}
	return string(norm.NFC.Bytes(b))
}

// Push appends a single step to the back of the path, returning a new
// identifier (the receiver is left untouched).
func (id Ident) Push(step Step) Ident {
	path := make([]Step, len(id.Path)+1)
	copy(path, id.Path)
	path[len(id.Path)] = step
	return Ident{Base: id.Base, Path: path}
}

// PushField and PushIndex are convenience wrappers around Push.
func (id Ident) PushField(name string) Ident { return id.Push(Field(name)) }
func (id Ident) PushIndex(n int) Ident        { return id.Push(Position(n)) }

// Split returns the identifier's base and its index path.
func (id Ident) Split() (string, []Step) { return id.Base, id.Path }

// Equal reports whether two identifiers have the same base and the same
// index path, element-wise.
func (id Ident) Equal(o Ident) bool {
	if id.Base != o.Base || len(id.Path) != len(o.Path) {
		return false
	}
	for i := range id.Path {
		if !id.Path[i].equal(o.Path[i]) {
			return false
		}
	}
	return true
}

// Compare imposes the total order used to sort equations, leaf lists, and
// evaluator results deterministically.
func (id Ident) Compare(o Ident) int {
	if c := strings.Compare(id.Base, o.Base); c != 0 {
		return c
	}
	n := len(id.Path)
	if len(o.Path) < n {
		n = len(o.Path)
	}
	for i := 0; i < n; i++ {
		if c := id.Path[i].compare(o.Path[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(id.Path) < len(o.Path):
		return -1
	case len(id.Path) > len(o.Path):
		return 1
	default:
		return 0
	}
}

func (id Ident) String() string {
	var b strings.Builder
	b.WriteString(id.Base)
	for _, s := range id.Path {
		b.WriteString(s.String())
	}
	return b.String()
}

// IsReserved reports whether id's base falls in the namespace the
// elaborator reserves for its own generated variables: the auxiliary
// prefix "__abs", or a node-call return prefix "callee.__returns...".
// A user declaration of such a name is a fatal redeclaration.
func IsReserved(id Ident) bool {
	if id.Base == AuxBase {
		return true
	}
	for _, s := range id.Path {
		if s.Kind == FieldStep && s.Name == ReturnsStep {
			return true
		}
	}
	return false
}

// AuxGen manufactures fresh auxiliary-variable identifiers `__abs.k`. It
// is a monotonic counter, reset per node; the node assembler owns one
// instance and threads it explicitly rather than exposing a
// package-level mutable.
type AuxGen struct {
	next int
}

// NewAuxGen returns a generator starting at zero.
func NewAuxGen() *AuxGen { return &AuxGen{} }

// Next returns a fresh `__abs.k` identifier; successive calls always
// differ.
func (g *AuxGen) Next() Ident {
	id := New(AuxBase).PushIndex(g.next)
	g.next++
	return id
}

// CallGen manufactures fresh call-site identifiers `callee.__returns.k`,
// keyed by callee name so that repeated calls into the same node receive
// increasing indices.
type CallGen struct {
	counters map[string]int
}

// NewCallGen returns a generator with no calls recorded yet.
func NewCallGen() *CallGen {
	return &CallGen{counters: make(map[string]int)}
}

// Next returns the next `callee.__returns.k` identifier for callee.
func (g *CallGen) Next(callee string) Ident {
	k := g.counters[callee]
	g.counters[callee] = k + 1
	return New(callee).PushField(ReturnsStep).PushIndex(k)
}
