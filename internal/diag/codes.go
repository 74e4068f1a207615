// Package diag provides the closed diagnostic taxonomy raised by the
// elaborator and a structured, JSON-serializable report type for
// presenting it to callers and tools.
package diag

// Kind is the closed error taxonomy. Every fatal condition the
// elaborator raises carries exactly one Kind.
type Kind string

const (
	// KindRedeclaration: identifier, type, enum-constant, or
	// reserved-prefix conflict.
	KindRedeclaration Kind = "Redeclaration"
	// KindUndeclared: identifier or type not in context.
	KindUndeclared Kind = "Undeclared"
	// KindTypeMismatch: record-field shape mismatch, operator arity
	// mismatch, non-Boolean guard/assert/property, non-subtype
	// assignment (outside the documented Int->IntRange relaxation).
	KindTypeMismatch Kind = "TypeMismatch"
	// KindConstantRequired: a context demanded a compile-time integer
	// constant and got a non-constant.
	KindConstantRequired Kind = "ConstantRequired"
	// KindUnsupported: fby, when, current, slices, concatenation,
	// clocked I/O, parametric nodes, recursive with, functions.
	KindUnsupported Kind = "Unsupported"
	// KindForwardReference: a callee not yet elaborated.
	KindForwardReference Kind = "ForwardReference"
	// KindCyclicDependency: dependency graph contains a cycle outside
	// pre.
	KindCyclicDependency Kind = "CyclicDependency"
	// KindUnguardedPre: a pre's initial-instant value is never defined
	// by an enclosing arrow on every syntactic path. Unlike the other
	// kinds this one does not halt elaboration by default; it is
	// reported as a warning and only becomes fatal under the
	// strict-unguarded-pre-as-error tool option.
	KindUnguardedPre Kind = "UnguardedPre"
)

// Code is a stable, documentation-friendly identifier for one specific
// diagnostic site.
type Code string

const (
	ELB_REDECL_IDENT    Code = "ELB001" // identifier already declared
	ELB_REDECL_TYPE     Code = "ELB002" // type name already declared
	ELB_REDECL_ENUM     Code = "ELB003" // enum constant re-bound to a different type
	ELB_REDECL_RESERVED Code = "ELB004" // user name collides with a reserved prefix
	ELB_UNDECLARED_ID   Code = "ELB010" // identifier not in scope
	ELB_UNDECLARED_TYPE Code = "ELB011" // type name not in scope
	ELB_TYPE_MISMATCH   Code = "ELB020" // general type mismatch
	ELB_RECORD_SHAPE    Code = "ELB021" // record literal field shape mismatch
	ELB_NON_BOOL        Code = "ELB022" // guard/assert/property is not bool
	ELB_CONST_REQUIRED  Code = "ELB030" // compile-time integer constant required
	ELB_UNSUPPORTED     Code = "ELB040" // fby/when/current/slice/concat/onehot/with/param
	ELB_FORWARD_REF     Code = "ELB050" // callee not yet elaborated
	ELB_UNDEFINED_NODE  Code = "ELB051" // callee never declared
	ELB_CYCLE           Code = "ELB060" // dependency cycle outside pre
	ELB_UNGUARDED_PRE   Code = "ELB070" // pre has no defined initial value on some path
)

// Info describes one Code for documentation/registry purposes.
type Info struct {
	Code        Code
	Kind        Kind
	Description string
}

// Registry maps every Code to its Info, kept centralized so diagnostics
// and their documentation cannot drift apart.
var Registry = map[Code]Info{
	ELB_REDECL_IDENT:    {ELB_REDECL_IDENT, KindRedeclaration, "identifier already declared in this scope"},
	ELB_REDECL_TYPE:     {ELB_REDECL_TYPE, KindRedeclaration, "type name already declared"},
	ELB_REDECL_ENUM:     {ELB_REDECL_ENUM, KindRedeclaration, "enum constant re-bound to a different type"},
	ELB_REDECL_RESERVED: {ELB_REDECL_RESERVED, KindRedeclaration, "name collides with an elaborator-reserved prefix"},
	ELB_UNDECLARED_ID:   {ELB_UNDECLARED_ID, KindUndeclared, "identifier not in scope"},
	ELB_UNDECLARED_TYPE: {ELB_UNDECLARED_TYPE, KindUndeclared, "type name not in scope"},
	ELB_TYPE_MISMATCH:   {ELB_TYPE_MISMATCH, KindTypeMismatch, "expression type is not a subtype of its target"},
	ELB_RECORD_SHAPE:    {ELB_RECORD_SHAPE, KindTypeMismatch, "record literal does not match its declared shape"},
	ELB_NON_BOOL:        {ELB_NON_BOOL, KindTypeMismatch, "expression must have type bool"},
	ELB_CONST_REQUIRED:  {ELB_CONST_REQUIRED, KindConstantRequired, "a compile-time integer constant is required here"},
	ELB_UNSUPPORTED:     {ELB_UNSUPPORTED, KindUnsupported, "construct is not supported by this elaborator"},
	ELB_FORWARD_REF:     {ELB_FORWARD_REF, KindForwardReference, "node is declared later in the file"},
	ELB_UNDEFINED_NODE:  {ELB_UNDEFINED_NODE, KindUndeclared, "node is never declared"},
	ELB_CYCLE:           {ELB_CYCLE, KindCyclicDependency, "dependency cycle outside of pre"},
	ELB_UNGUARDED_PRE:   {ELB_UNGUARDED_PRE, KindUnguardedPre, "pre has no defined value at the first instant on some path"},
}

// GetInfo returns the registry entry for a code, if any.
func GetInfo(code Code) (Info, bool) {
	info, ok := Registry[code]
	return info, ok
}
