// Package types implements the closed type algebra of the elaborated
// language: Bool, Int, Real, IntRange, Enum, FreeType, and the aggregate
// representation types Record, Tuple, Array. Aggregates are
// representation-only — the type expander (internal/elaborate) always
// folds them away before an equation is emitted, so no flat expression
// ever carries one. Every type is written explicitly in source; there is
// no inference, so the algebra here is deliberately just a closed
// variant set plus a subtype check, not a unifier.
package types

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Type is the closed variant set.
type Type interface {
	fmt.Stringer
	Equal(Type) bool
	typeNode()
}

// Bool, Int, Real are the scalar base types; there is exactly one value
// of each, so they can be compared with ==.
type boolType struct{}
type intType struct{}
type realType struct{}

func (boolType) typeNode() {}
func (intType) typeNode()  {}
func (realType) typeNode() {}

func (boolType) String() string { return "bool" }
func (intType) String() string  { return "int" }
func (realType) String() string { return "real" }

func (boolType) Equal(o Type) bool { _, ok := o.(boolType); return ok }
func (intType) Equal(o Type) bool  { _, ok := o.(intType); return ok }
func (realType) Equal(o Type) bool { _, ok := o.(realType); return ok }

var (
	Bool Type = boolType{}
	Int  Type = intType{}
	Real Type = realType{}
)

// IsBool, IsInt, IsReal are convenience predicates used throughout the
// evaluator's operator typing rules.
func IsBool(t Type) bool { _, ok := t.(boolType); return ok }
func IsInt(t Type) bool  { _, ok := t.(intType); return ok }
func IsReal(t Type) bool { _, ok := t.(realType); return ok }

// IsNumeric reports whether t is Int, Real, or an IntRange.
func IsNumeric(t Type) bool {
	if IsInt(t) || IsReal(t) {
		return true
	}
	_, ok := t.(*IntRange)
	return ok
}

// IntRange is `lo..hi`, an inclusive bound pair over arbitrary-precision
// integers.
type IntRange struct {
	Lo, Hi *big.Int
}

func (r *IntRange) typeNode() {}

func (r *IntRange) String() string {
	return fmt.Sprintf("int[%s,%s]", r.Lo.String(), r.Hi.String())
}

func (r *IntRange) Equal(o Type) bool {
	other, ok := o.(*IntRange)
	if !ok {
		return false
	}
	return r.Lo.Cmp(other.Lo) == 0 && r.Hi.Cmp(other.Hi) == 0
}

// NewIntRange validates lo <= hi and returns the range type.
func NewIntRange(lo, hi *big.Int) (*IntRange, error) {
	if lo.Cmp(hi) > 0 {
		return nil, fmt.Errorf("invalid subrange: lo %s > hi %s", lo, hi)
	}
	return &IntRange{Lo: lo, Hi: hi}, nil
}

// Enum is a closed set of distinct nullary constructors.
type Enum struct {
	Name         string // the declared alias name, for error messages
	Constructors []string
}

func (e *Enum) typeNode() {}

func (e *Enum) String() string {
	if e.Name != "" {
		return e.Name
	}
	return "enum(" + strings.Join(e.Constructors, "|") + ")"
}

func (e *Enum) Equal(o Type) bool {
	other, ok := o.(*Enum)
	if !ok || len(e.Constructors) != len(other.Constructors) {
		return false
	}
	for i, c := range e.Constructors {
		if other.Constructors[i] != c {
			return false
		}
	}
	return true
}

// Has reports whether name is one of e's constructors.
func (e *Enum) Has(name string) bool {
	for _, c := range e.Constructors {
		if c == name {
			return true
		}
	}
	return false
}

// FreeType is an abstract type: declared but given no definition.
type FreeType struct {
	Name string
}

func (f *FreeType) typeNode()      {}
func (f *FreeType) String() string { return f.Name }
func (f *FreeType) Equal(o Type) bool {
	other, ok := o.(*FreeType)
	return ok && other.Name == f.Name
}

// Record, Tuple, Array are the aggregate, representation-only types: the
// elaborator's type expander (internal/elaborate) always flattens them to
// scalar leaves before they reach an equation, so every flat expression
// stored on a node has scalar type.

type Record struct {
	Fields map[string]Type
}

func (r *Record) typeNode() {}

func (r *Record) String() string {
	names := make([]string, 0, len(r.Fields))
	for n := range r.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s: %s", n, r.Fields[n])
	}
	return "{" + strings.Join(parts, "; ") + "}"
}

func (r *Record) Equal(o Type) bool {
	other, ok := o.(*Record)
	if !ok || len(r.Fields) != len(other.Fields) {
		return false
	}
	for n, t := range r.Fields {
		ot, ok := other.Fields[n]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}

type Tuple struct {
	Elems []Type
}

func (t *Tuple) typeNode() {}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Tuple) Equal(o Type) bool {
	other, ok := o.(*Tuple)
	if !ok || len(t.Elems) != len(other.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(other.Elems[i]) {
			return false
		}
	}
	return true
}

type Array struct {
	Elem Type
	Size int
}

func (a *Array) typeNode() {}

func (a *Array) String() string { return fmt.Sprintf("%s^%d", a.Elem, a.Size) }

func (a *Array) Equal(o Type) bool {
	other, ok := o.(*Array)
	return ok && a.Size == other.Size && a.Elem.Equal(other.Elem)
}

// CheckType implements the elaborator's subtype relation: reflexive;
// IntRange(a,b) <= Int; IntRange(a,b) <= IntRange(c,d) iff c <= a && b <=
// d; no other non-trivial cases.
func CheckType(have, want Type) bool {
	if have.Equal(want) {
		return true
	}
	if hr, ok := have.(*IntRange); ok {
		if IsInt(want) {
			return true
		}
		if wr, ok := want.(*IntRange); ok {
			return wr.Lo.Cmp(hr.Lo) <= 0 && hr.Hi.Cmp(wr.Hi) <= 0
		}
	}
	return false
}
