// Package typectx implements the typing context: the six tables
// describing what is currently in scope while a program is elaborated.
// Context is a plain value aggregate threaded explicitly through the
// pipeline — every With* method returns a new Context, copy-on-write over
// its maps, and never mutates the receiver. This keeps elaboration
// deterministic and makes partial reuse across nodes trivial.
package typectx

import (
	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/flat"
	"github.com/sunholo/lustrecheck/internal/ident"
	"github.com/sunholo/lustrecheck/internal/types"
)

// LeafEntry is one row of a prefix map: the index path remaining below
// some prefix, and the scalar type found there.
type LeafEntry struct {
	Suffix []ident.Step
	Scalar types.Type
}

// Context is the immutable typing context.
type Context struct {
	basicTypes   map[string]types.Type
	indexedTypes map[string][]LeafEntry
	freeTypes    map[string]bool
	typeCtx      map[string]types.Type
	indexCtx     map[string][]LeafEntry
	consts       map[string]flat.Expr
}

// New returns an empty typing context.
func New() Context {
	return Context{
		basicTypes:   map[string]types.Type{},
		indexedTypes: map[string][]LeafEntry{},
		freeTypes:    map[string]bool{},
		typeCtx:      map[string]types.Type{},
		indexCtx:     map[string][]LeafEntry{},
		consts:       map[string]flat.Expr{},
	}
}

func cloneTypeMap(m map[string]types.Type) map[string]types.Type {
	out := make(map[string]types.Type, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneLeafMap(m map[string][]LeafEntry) map[string][]LeafEntry {
	out := make(map[string][]LeafEntry, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneConstMap(m map[string]flat.Expr) map[string]flat.Expr {
	out := make(map[string]flat.Expr, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// addToPrefixMap registers every proper prefix of leaf's path (excluding
// the full path itself) as a key mapped to the list of suffixes-with-
// values seen at that prefix so far. Used to materialize both
// indexed_types and index_ctx from a stream of WithBasicType/WithValue
// calls.
func addToPrefixMap(m map[string][]LeafEntry, leaf ident.Ident, scalar types.Type) map[string][]LeafEntry {
	out := cloneLeafMap(m)
	base, path := leaf.Split()
	for i := 0; i < len(path); i++ {
		prefix := ident.Ident{Base: base, Path: path[:i]}
		key := prefix.String()
		suffix := make([]ident.Step, len(path)-i)
		copy(suffix, path[i:])
		out[key] = append(append([]LeafEntry{}, out[key]...), LeafEntry{Suffix: suffix, Scalar: scalar})
	}
	return out
}

// WithBasicType registers a type-declaration leaf: id is the fully
// qualified leaf path produced by the type expander for some alias, t its
// scalar type. Populates both basic_types (exact leaf) and indexed_types
// (every proper prefix of id, including the bare alias name).
func (c Context) WithBasicType(pos ast.Pos, id ident.Ident, t types.Type) (Context, error) {
	key := id.String()
	if _, exists := c.basicTypes[key]; exists {
		return c, diag.Redeclared(diag.ELB_REDECL_TYPE, pos, key)
	}
	next := c
	next.basicTypes = cloneTypeMap(c.basicTypes)
	next.basicTypes[key] = t
	next.indexedTypes = addToPrefixMap(c.indexedTypes, id, t)
	return next, nil
}

// WithFreeType declares an abstract type with no definition.
func (c Context) WithFreeType(pos ast.Pos, name string) (Context, error) {
	if c.TypeInContext(name) {
		return c, diag.Redeclared(diag.ELB_REDECL_TYPE, pos, name)
	}
	next := c
	next.freeTypes = cloneBoolMap(c.freeTypes)
	next.freeTypes[name] = true
	return next, nil
}

// TypeInContext reports whether name is a known alias (scalar or
// indexed) or a declared free type.
func (c Context) TypeInContext(name string) bool {
	if _, ok := c.basicTypes[name]; ok {
		return true
	}
	if _, ok := c.indexedTypes[name]; ok {
		return true
	}
	return c.freeTypes[name]
}

// ScalarAlias looks up a bare (no-path) type alias bound directly to a
// scalar type.
func (c Context) ScalarAlias(name string) (types.Type, bool) {
	t, ok := c.basicTypes[name]
	return t, ok
}

// IndexedAlias looks up an aggregate type alias's flattened leaves.
func (c Context) IndexedAlias(name string) ([]LeafEntry, bool) {
	entries, ok := c.indexedTypes[name]
	return entries, ok
}

// IsFreeType reports whether name was declared free (abstract).
func (c Context) IsFreeType(name string) bool {
	return c.freeTypes[name]
}

// WithValue registers a scalar value identifier (signal or enum
// constant) of type t. Rejects redeclaration and any attempt to declare
// an elaborator-reserved name.
func (c Context) WithValue(pos ast.Pos, id ident.Ident, t types.Type) (Context, error) {
	if ident.IsReserved(id) {
		return c, diag.Redeclared(diag.ELB_REDECL_RESERVED, pos, id.String())
	}
	key := id.String()
	if _, exists := c.typeCtx[key]; exists {
		return c, diag.Redeclared(diag.ELB_REDECL_IDENT, pos, key)
	}
	next := c
	next.typeCtx = cloneTypeMap(c.typeCtx)
	next.typeCtx[key] = t
	next.indexCtx = addToPrefixMap(c.indexCtx, id, t)
	return next, nil
}

// WithConst registers a constant identifier: both its scalar type (via
// WithValue) and its flat-expression value.
func (c Context) WithConst(pos ast.Pos, id ident.Ident, value flat.Expr) (Context, error) {
	next, err := c.WithValue(pos, id, value.Type)
	if err != nil {
		return c, err
	}
	next.consts = cloneConstMap(c.consts)
	next.consts[id.String()] = value
	return next, nil
}

// AddEnumToContext binds each constructor of an Enum type into the
// typing context, erroring on conflicting re-binding (the same
// constructor bound to a different enum). Non-enum types are returned
// unchanged.
func AddEnumToContext(pos ast.Pos, c Context, t types.Type) (Context, error) {
	e, ok := t.(*types.Enum)
	if !ok {
		return c, nil
	}
	next := c
	for _, ctor := range e.Constructors {
		id := ident.New(ctor)
		if existing, bound := next.ValueType(id); bound {
			if !existing.Equal(e) {
				return c, diag.Redeclared(diag.ELB_REDECL_ENUM, pos, ctor)
			}
			continue
		}
		var err error
		next, err = next.WithValue(pos, id, e)
		if err != nil {
			return c, err
		}
	}
	return next, nil
}

// IdentInContext reports whether id is bound as a scalar value or has
// scalar descendants reachable through indexCtx.
func (c Context) IdentInContext(id ident.Ident) bool {
	key := id.String()
	if _, ok := c.typeCtx[key]; ok {
		return true
	}
	_, ok := c.indexCtx[key]
	return ok
}

// ValueType looks up the scalar type of a bound value identifier.
func (c Context) ValueType(id ident.Ident) (types.Type, bool) {
	t, ok := c.typeCtx[id.String()]
	return t, ok
}

// ValueDescendants looks up the in-scope suffixes below a value
// identifier prefix (the projection of type_ctx to the prefix
// structure).
func (c Context) ValueDescendants(id ident.Ident) ([]LeafEntry, bool) {
	entries, ok := c.indexCtx[id.String()]
	return entries, ok
}

// ConstValue looks up the flat-expression value of a constant
// identifier.
func (c Context) ConstValue(id ident.Ident) (flat.Expr, bool) {
	e, ok := c.consts[id.String()]
	return e, ok
}
