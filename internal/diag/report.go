package diag

import (
	"errors"
	"fmt"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/schema"
)

// Report is the canonical structured diagnostic: schema-versioned,
// deterministically encodable, with free-form structured data attached.
type Report struct {
	Schema  string         `json:"schema"`
	Code    Code           `json:"code"`
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Pos     ast.Pos        `json:"pos"`
	Data    map[string]any `json:"data,omitempty"`
}

// New builds a Report for code at pos with a formatted message.
func New(code Code, pos ast.Pos, format string, args ...any) *Report {
	info, _ := GetInfo(code)
	return &Report{
		Schema:  schema.ErrorV1,
		Code:    code,
		Kind:    info.Kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// WithData attaches structured context to the report (sorted on encode by
// schema.MarshalDeterministic) and returns the same report for chaining.
func (r *Report) WithData(data map[string]any) *Report {
	r.Data = data
	return r
}

// ToJSON renders the report as deterministic JSON: indented, or on one
// line when schema.CompactMode is set.
func (r *Report) ToJSON() ([]byte, error) {
	data, err := schema.MarshalDeterministic(r)
	if err != nil {
		return nil, err
	}
	return schema.FormatJSON(data)
}

// ReportError wraps a *Report as a Go error, so it can flow through
// ordinary error-returning APIs while still being recoverable via As.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown elaboration error"
	}
	return fmt.Sprintf("%s: %s: %s", e.Rep.Pos, e.Rep.Code, e.Rep.Message)
}

// Wrap turns a *Report into an error. Returns nil for a nil report.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// As extracts the *Report from an error chain, if present.
func As(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// ForwardReferenceError is its own carrier type: the top-level
// declaration loop in internal/elaborate catches it specifically to
// decide between "forward reference" and "node not defined".
type ForwardReferenceError struct {
	Callee string
	Pos    ast.Pos
}

func (e *ForwardReferenceError) Error() string {
	return fmt.Sprintf("%s: reference to node %q not yet elaborated", e.Pos, e.Callee)
}

// Errorf-style helpers for the most common report shapes, each tagged
// with the right Kind via its Code.

func Redeclared(code Code, pos ast.Pos, name string) error {
	return Wrap(New(code, pos, "%q is already declared", name).WithData(map[string]any{"name": name}))
}

func Undeclared(code Code, pos ast.Pos, name string) error {
	return Wrap(New(code, pos, "%q is not declared", name).WithData(map[string]any{"name": name}))
}

func TypeMismatch(pos ast.Pos, have, want fmt.Stringer) error {
	return Wrap(New(ELB_TYPE_MISMATCH, pos, "type mismatch: have %s, want %s", have, want).
		WithData(map[string]any{"have": have.String(), "want": want.String()}))
}

func ConstantRequired(pos ast.Pos, why string) error {
	return Wrap(New(ELB_CONST_REQUIRED, pos, "expression must be a constant integer: %s", why))
}

func Unsupported(pos ast.Pos, construct string) error {
	return Wrap(New(ELB_UNSUPPORTED, pos, "%s is not supported", construct).
		WithData(map[string]any{"construct": construct}))
}

func Cyclic(pos ast.Pos, cycle []string) error {
	return Wrap(New(ELB_CYCLE, pos, "cyclic dependency: %v", cycle).
		WithData(map[string]any{"cycle": cycle}))
}

// UnguardedPre builds the non-fatal "unguarded pre" report for the
// equation bound to name at pos. Callers collect these on the Report
// itself rather than wrapping them as an error; whether they halt
// elaboration is a tool-level policy decision, not the elaborator's.
func UnguardedPre(pos ast.Pos, name string) *Report {
	return New(ELB_UNGUARDED_PRE, pos, "%q uses pre without a guarding -> on every path", name).
		WithData(map[string]any{"name": name})
}
