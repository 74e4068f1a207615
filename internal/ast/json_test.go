package ast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalProgramDecodesNodeWithBinaryEquation(t *testing.T) {
	data := []byte(`{
		"decls": [
			{
				"kind": "NodeDecl",
				"pos": {"file": "f.lus", "line": 1, "column": 1},
				"name": "Add",
				"inputs": [
					{"kind": "VarDecl", "name": "a", "type": {"kind": "SimpleTypeExpr", "name": "int"}},
					{"kind": "VarDecl", "name": "b", "type": {"kind": "SimpleTypeExpr", "name": "int"}}
				],
				"outputs": [
					{"kind": "VarDecl", "name": "y", "type": {"kind": "SimpleTypeExpr", "name": "int"}}
				],
				"body": [
					{
						"kind": "Equation",
						"lhs": ["y"],
						"rhs": {
							"kind": "BinaryExpr",
							"op": "+",
							"left": {"kind": "Ident", "name": "a"},
							"right": {"kind": "Ident", "name": "b"}
						}
					}
				],
				"is_main": true
			}
		]
	}`)

	var prog Program
	require.NoError(t, json.Unmarshal(data, &prog))
	require.Len(t, prog.Decls, 1)

	node, ok := prog.Decls[0].(*NodeDecl)
	require.True(t, ok)
	assert.Equal(t, "Add", node.Name)
	assert.True(t, node.IsMain)
	require.Len(t, node.Inputs, 2)
	assert.Equal(t, "a", node.Inputs[0].Name)
	require.IsType(t, &SimpleTypeExpr{}, node.Inputs[0].Type)

	require.Len(t, node.Body, 1)
	eq, ok := node.Body[0].(*Equation)
	require.True(t, ok)
	assert.Equal(t, []string{"y"}, eq.LHS)

	bin, ok := eq.RHS.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, "a", bin.Left.(*Ident).Name)
	assert.Equal(t, "b", bin.Right.(*Ident).Name)
}

func TestUnmarshalProgramDecodesFreeTypeAndRecordLiteral(t *testing.T) {
	data := []byte(`{
		"decls": [
			{
				"kind": "TypeDecl",
				"name": "Point",
				"definition": {
					"kind": "RecordTypeExpr",
					"fields": [
						{"name": "x", "type": {"kind": "SimpleTypeExpr", "name": "int"}},
						{"name": "y", "type": {"kind": "SimpleTypeExpr", "name": "int"}}
					]
				}
			},
			{
				"kind": "NodeDecl",
				"name": "Origin",
				"outputs": [
					{"kind": "VarDecl", "name": "p", "type": {"kind": "UserTypeExpr", "name": "Point"}}
				],
				"body": [
					{
						"kind": "Equation",
						"lhs": ["p"],
						"rhs": {
							"kind": "RecordExpr",
							"type_name": "Point",
							"fields": [
								{"name": "x", "value": {"kind": "IntLit", "text": "0"}},
								{"name": "y", "value": {"kind": "IntLit", "text": "0"}}
							]
						}
					}
				]
			}
		]
	}`)

	var prog Program
	require.NoError(t, json.Unmarshal(data, &prog))
	require.Len(t, prog.Decls, 2)

	typeDecl, ok := prog.Decls[0].(*TypeDecl)
	require.True(t, ok)
	rec, ok := typeDecl.Definition.(*RecordTypeExpr)
	require.True(t, ok)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "x", rec.Fields[0].Name)

	node := prog.Decls[1].(*NodeDecl)
	eq := node.Body[0].(*Equation)
	recExpr, ok := eq.RHS.(*RecordExpr)
	require.True(t, ok)
	assert.Equal(t, "Point", recExpr.TypeName)
	require.Len(t, recExpr.Fields, 2)
	assert.Equal(t, "0", recExpr.Fields[0].Value.(*IntLit).Text)
}

func TestUnmarshalProgramRejectsUnknownExprKind(t *testing.T) {
	data := []byte(`{
		"decls": [
			{
				"kind": "ConstDecl",
				"name": "N",
				"value": {"kind": "Mystery"}
			}
		]
	}`)
	var prog Program
	err := json.Unmarshal(data, &prog)
	require.Error(t, err)
}

func TestUnmarshalProgramLeavesFreeTypeDefinitionNil(t *testing.T) {
	data := []byte(`{"decls": [{"kind": "TypeDecl", "name": "Opaque"}]}`)
	var prog Program
	require.NoError(t, json.Unmarshal(data, &prog))
	typeDecl := prog.Decls[0].(*TypeDecl)
	assert.Nil(t, typeDecl.Definition)
}
