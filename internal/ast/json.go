package ast

import (
	"encoding/json"
	"fmt"
)

// This file decodes a Program from the JSON fixture format cmd/lustrecheck's
// manifest and the test harness use: each node (decl/stmt/expr/type-expr) is
// a JSON object carrying a "kind" discriminator and a "pos", with the rest
// of its fields named after the corresponding Go struct field
// (snake_case). It mirrors the ast tree one-to-one — no operator precedence,
// no tokenizing — so it isn't the surface-language parser this module
// deliberately excludes.

type jsonFields map[string]json.RawMessage

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func decodeEnvelope(raw json.RawMessage) (kind string, pos Pos, fields jsonFields, err error) {
	if err = json.Unmarshal(raw, &fields); err != nil {
		return "", Pos{}, nil, err
	}
	if k, ok := fields["kind"]; ok {
		if err = json.Unmarshal(k, &kind); err != nil {
			return "", Pos{}, nil, err
		}
	}
	if p, ok := fields["pos"]; ok {
		if err = json.Unmarshal(p, &pos); err != nil {
			return "", Pos{}, nil, err
		}
	}
	return kind, pos, fields, nil
}

func decodeField[T any](fields jsonFields, key string) (T, error) {
	var v T
	raw, ok := fields[key]
	if !ok {
		return v, nil
	}
	return v, json.Unmarshal(raw, &v)
}

func rawItems(raw json.RawMessage) ([]json.RawMessage, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	return items, json.Unmarshal(raw, &items)
}

// UnmarshalJSON decodes a fixture program: a flat JSON object with a
// "decls" array of Decl envelopes.
func (p *Program) UnmarshalJSON(data []byte) error {
	var raw struct {
		Decls []json.RawMessage `json:"decls"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decls := make([]Decl, len(raw.Decls))
	for i, d := range raw.Decls {
		decl, err := decodeDecl(d)
		if err != nil {
			return err
		}
		decls[i] = decl
	}
	p.Decls = decls
	return nil
}

func decodeDecl(raw json.RawMessage) (Decl, error) {
	kind, pos, f, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "TypeDecl":
		name, err := decodeField[string](f, "name")
		if err != nil {
			return nil, err
		}
		def, err := decodeTypeExpr(f["definition"])
		if err != nil {
			return nil, err
		}
		return &TypeDecl{Name: name, Definition: def, Pos: pos}, nil
	case "ConstDecl":
		name, err := decodeField[string](f, "name")
		if err != nil {
			return nil, err
		}
		typ, err := decodeTypeExpr(f["type"])
		if err != nil {
			return nil, err
		}
		val, err := decodeExpr(f["value"])
		if err != nil {
			return nil, err
		}
		return &ConstDecl{Name: name, Type: typ, Value: val, Pos: pos}, nil
	case "NodeDecl":
		return decodeNodeDecl(pos, f)
	default:
		return nil, fmt.Errorf("%s: unknown declaration kind %q", pos, kind)
	}
}

func decodeNodeDecl(pos Pos, f jsonFields) (Decl, error) {
	name, err := decodeField[string](f, "name")
	if err != nil {
		return nil, err
	}
	inputs, err := decodeVarDeclList(f["inputs"])
	if err != nil {
		return nil, err
	}
	outputs, err := decodeVarDeclList(f["outputs"])
	if err != nil {
		return nil, err
	}
	locals, err := decodeVarDeclList(f["locals"])
	if err != nil {
		return nil, err
	}
	requires, err := decodeExprList(f["requires"])
	if err != nil {
		return nil, err
	}
	ensures, err := decodeExprList(f["ensures"])
	if err != nil {
		return nil, err
	}
	body, err := decodeStmtList(f["body"])
	if err != nil {
		return nil, err
	}
	isMain, err := decodeField[bool](f, "is_main")
	if err != nil {
		return nil, err
	}
	return &NodeDecl{
		Name: name, Inputs: inputs, Outputs: outputs, Locals: locals,
		Requires: requires, Ensures: ensures, Body: body, IsMain: isMain, Pos: pos,
	}, nil
}

func decodeVarDecl(raw json.RawMessage) (*VarDecl, error) {
	_, pos, f, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	name, err := decodeField[string](f, "name")
	if err != nil {
		return nil, err
	}
	typ, err := decodeTypeExpr(f["type"])
	if err != nil {
		return nil, err
	}
	clocked, err := decodeField[bool](f, "clocked")
	if err != nil {
		return nil, err
	}
	constFlag, err := decodeField[bool](f, "const")
	if err != nil {
		return nil, err
	}
	return &VarDecl{Name: name, Type: typ, Clocked: clocked, Const: constFlag, Pos: pos}, nil
}

func decodeVarDeclList(raw json.RawMessage) ([]*VarDecl, error) {
	items, err := rawItems(raw)
	if err != nil {
		return nil, err
	}
	out := make([]*VarDecl, len(items))
	for i, it := range items {
		v, err := decodeVarDecl(it)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeStmt(raw json.RawMessage) (Stmt, error) {
	kind, pos, f, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "Equation":
		lhs, err := decodeField[[]string](f, "lhs")
		if err != nil {
			return nil, err
		}
		rhs, err := decodeExpr(f["rhs"])
		if err != nil {
			return nil, err
		}
		return &Equation{LHS: lhs, RHS: rhs, Pos: pos}, nil
	case "Assert":
		x, err := decodeExpr(f["expr"])
		if err != nil {
			return nil, err
		}
		return &Assert{Expr: x, Pos: pos}, nil
	case "PropertyAnnotation":
		name, err := decodeField[string](f, "name")
		if err != nil {
			return nil, err
		}
		x, err := decodeExpr(f["expr"])
		if err != nil {
			return nil, err
		}
		return &PropertyAnnotation{Name: name, Expr: x, Pos: pos}, nil
	default:
		return nil, fmt.Errorf("%s: unknown statement kind %q", pos, kind)
	}
}

func decodeStmtList(raw json.RawMessage) ([]Stmt, error) {
	items, err := rawItems(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Stmt, len(items))
	for i, it := range items {
		s, err := decodeStmt(it)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	kind, pos, f, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "Ident":
		name, err := decodeField[string](f, "name")
		return &Ident{Name: name, Pos: pos}, err
	case "IntLit":
		text, err := decodeField[string](f, "text")
		return &IntLit{Text: text, Pos: pos}, err
	case "RealLit":
		text, err := decodeField[string](f, "text")
		return &RealLit{Text: text, Pos: pos}, err
	case "BoolLit":
		v, err := decodeField[bool](f, "value")
		return &BoolLit{Value: v, Pos: pos}, err
	case "FieldAccess":
		rec, err := decodeExpr(f["record"])
		if err != nil {
			return nil, err
		}
		field, err := decodeField[string](f, "field")
		return &FieldAccess{Record: rec, Field: field, Pos: pos}, err
	case "IndexAccess":
		base, err := decodeExpr(f["base"])
		if err != nil {
			return nil, err
		}
		idx, err := decodeExpr(f["index"])
		return &IndexAccess{Base: base, Index: idx, Pos: pos}, err
	case "ExprList":
		elems, err := decodeExprList(f["elems"])
		return &ExprList{Elems: elems, Pos: pos}, err
	case "TupleExpr":
		elems, err := decodeExprList(f["elems"])
		return &TupleExpr{Elems: elems, Pos: pos}, err
	case "ArrayExpr":
		elem, err := decodeExpr(f["elem"])
		if err != nil {
			return nil, err
		}
		size, err := decodeExpr(f["size"])
		return &ArrayExpr{Elem: elem, Size: size, Pos: pos}, err
	case "RecordExpr":
		return decodeRecordExpr(pos, f)
	case "UnaryExpr":
		op, err := decodeField[string](f, "op")
		if err != nil {
			return nil, err
		}
		x, err := decodeExpr(f["expr"])
		return &UnaryExpr{Op: op, Expr: x, Pos: pos}, err
	case "BinaryExpr":
		op, err := decodeField[string](f, "op")
		if err != nil {
			return nil, err
		}
		left, err := decodeExpr(f["left"])
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(f["right"])
		return &BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}, err
	case "IfExpr":
		cond, err := decodeExpr(f["cond"])
		if err != nil {
			return nil, err
		}
		then, err := decodeExpr(f["then"])
		if err != nil {
			return nil, err
		}
		els, err := decodeExpr(f["else"])
		return &IfExpr{Cond: cond, Then: then, Else: els, Pos: pos}, err
	case "PreExpr":
		x, err := decodeExpr(f["expr"])
		return &PreExpr{Expr: x, Pos: pos}, err
	case "ArrowExpr":
		init, err := decodeExpr(f["init"])
		if err != nil {
			return nil, err
		}
		step, err := decodeExpr(f["step"])
		return &ArrowExpr{Init: init, Step: step, Pos: pos}, err
	case "CallExpr":
		callee, err := decodeField[string](f, "callee")
		if err != nil {
			return nil, err
		}
		args, err := decodeExprList(f["args"])
		return &CallExpr{Callee: callee, Args: args, Pos: pos}, err
	case "CondactExpr":
		cond, err := decodeExpr(f["cond"])
		if err != nil {
			return nil, err
		}
		callee, err := decodeField[string](f, "callee")
		if err != nil {
			return nil, err
		}
		args, err := decodeExprList(f["args"])
		if err != nil {
			return nil, err
		}
		defaults, err := decodeExprList(f["defaults"])
		return &CondactExpr{Cond: cond, Callee: callee, Args: args, Defaults: defaults, Pos: pos}, err
	case "FbyExpr":
		n, err := decodeField[int](f, "n")
		if err != nil {
			return nil, err
		}
		init, err := decodeExpr(f["init"])
		if err != nil {
			return nil, err
		}
		step, err := decodeExpr(f["step"])
		return &FbyExpr{N: n, Init: init, Step: step, Pos: pos}, err
	case "WhenExpr":
		clock, err := decodeField[string](f, "clock")
		if err != nil {
			return nil, err
		}
		x, err := decodeExpr(f["expr"])
		return &WhenExpr{Expr: x, Clock: clock, Pos: pos}, err
	case "CurrentExpr":
		x, err := decodeExpr(f["expr"])
		return &CurrentExpr{Expr: x, Pos: pos}, err
	case "ArraySliceExpr":
		base, err := decodeExpr(f["base"])
		if err != nil {
			return nil, err
		}
		lo, err := decodeExpr(f["lo"])
		if err != nil {
			return nil, err
		}
		hi, err := decodeExpr(f["hi"])
		return &ArraySliceExpr{Base: base, Lo: lo, Hi: hi, Pos: pos}, err
	case "ArrayConcatExpr":
		left, err := decodeExpr(f["left"])
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(f["right"])
		return &ArrayConcatExpr{Left: left, Right: right, Pos: pos}, err
	case "OneHotExpr":
		elems, err := decodeExprList(f["elems"])
		return &OneHotExpr{Elems: elems, Pos: pos}, err
	case "WithExpr":
		cond, err := decodeExpr(f["cond"])
		if err != nil {
			return nil, err
		}
		then, err := decodeExpr(f["then"])
		if err != nil {
			return nil, err
		}
		els, err := decodeExpr(f["else"])
		return &WithExpr{Cond: cond, Then: then, Else: els, Pos: pos}, err
	default:
		return nil, fmt.Errorf("%s: unknown expression kind %q", pos, kind)
	}
}

func decodeExprList(raw json.RawMessage) ([]Expr, error) {
	items, err := rawItems(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Expr, len(items))
	for i, it := range items {
		e, err := decodeExpr(it)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeRecordExpr(pos Pos, f jsonFields) (Expr, error) {
	typeName, err := decodeField[string](f, "type_name")
	if err != nil {
		return nil, err
	}
	var rawFields []struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if raw, ok := f["fields"]; ok {
		if err := json.Unmarshal(raw, &rawFields); err != nil {
			return nil, err
		}
	}
	fields := make([]RecordFieldExpr, len(rawFields))
	for i, rf := range rawFields {
		v, err := decodeExpr(rf.Value)
		if err != nil {
			return nil, err
		}
		fields[i] = RecordFieldExpr{Name: rf.Name, Value: v}
	}
	return &RecordExpr{TypeName: typeName, Fields: fields, Pos: pos}, nil
}

func decodeTypeExpr(raw json.RawMessage) (TypeExpr, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	kind, pos, f, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "SimpleTypeExpr":
		name, err := decodeField[string](f, "name")
		return &SimpleTypeExpr{Name: name, Pos: pos}, err
	case "IntRangeTypeExpr":
		lo, err := decodeExpr(f["lo"])
		if err != nil {
			return nil, err
		}
		hi, err := decodeExpr(f["hi"])
		return &IntRangeTypeExpr{Lo: lo, Hi: hi, Pos: pos}, err
	case "EnumTypeExpr":
		ctors, err := decodeField[[]string](f, "constructors")
		return &EnumTypeExpr{Constructors: ctors, Pos: pos}, err
	case "UserTypeExpr":
		name, err := decodeField[string](f, "name")
		return &UserTypeExpr{Name: name, Pos: pos}, err
	case "RecordTypeExpr":
		return decodeRecordTypeExpr(pos, f)
	case "TupleTypeExpr":
		items, err := rawItems(f["elems"])
		if err != nil {
			return nil, err
		}
		elems := make([]TypeExpr, len(items))
		for i, it := range items {
			t, err := decodeTypeExpr(it)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return &TupleTypeExpr{Elems: elems, Pos: pos}, nil
	case "ArrayTypeExpr":
		elem, err := decodeTypeExpr(f["elem"])
		if err != nil {
			return nil, err
		}
		size, err := decodeExpr(f["size"])
		return &ArrayTypeExpr{Elem: elem, Size: size, Pos: pos}, err
	default:
		return nil, fmt.Errorf("%s: unknown type-expression kind %q", pos, kind)
	}
}

func decodeRecordTypeExpr(pos Pos, f jsonFields) (TypeExpr, error) {
	var rawFields []struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	}
	if raw, ok := f["fields"]; ok {
		if err := json.Unmarshal(raw, &rawFields); err != nil {
			return nil, err
		}
	}
	fields := make([]RecordTypeField, len(rawFields))
	for i, rf := range rawFields {
		t, err := decodeTypeExpr(rf.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = RecordTypeField{Name: rf.Name, Type: t}
	}
	return &RecordTypeExpr{Fields: fields, Pos: pos}, nil
}
