package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/config"
	"github.com/sunholo/lustrecheck/internal/elaborate"
	"github.com/sunholo/lustrecheck/internal/schema"
)

func TestManifestDecodesNamedPrograms(t *testing.T) {
	data := []byte(`{
		"programs": {
			"Id": {
				"decls": [
					{
						"kind": "NodeDecl",
						"name": "Id",
						"inputs": [{"kind": "VarDecl", "name": "x", "type": {"kind": "SimpleTypeExpr", "name": "int"}}],
						"outputs": [{"kind": "VarDecl", "name": "y", "type": {"kind": "SimpleTypeExpr", "name": "int"}}],
						"body": [{"kind": "Equation", "lhs": ["y"], "rhs": {"kind": "Ident", "name": "x"}}],
						"is_main": true
					}
				]
			}
		}
	}`)

	var m manifest
	require.NoError(t, json.Unmarshal(data, &m))
	require.Contains(t, m.Programs, "Id")

	prog := m.Programs["Id"]
	require.Len(t, prog.Decls, 1)
	node, ok := prog.Decls[0].(*ast.NodeDecl)
	require.True(t, ok)
	assert.Equal(t, "Id", node.Name)
	assert.True(t, node.IsMain)
}

func TestManifestSchemaFieldGatesCompatibility(t *testing.T) {
	var m manifest
	require.NoError(t, json.Unmarshal([]byte(`{"schema": "lustrecheck.program/v1.3", "programs": {}}`), &m))
	assert.True(t, schema.Accepts(m.Schema, schema.ProgramV1))

	require.NoError(t, json.Unmarshal([]byte(`{"schema": "lustrecheck.program/v2", "programs": {}}`), &m))
	assert.False(t, schema.Accepts(m.Schema, schema.ProgramV1))

	require.NoError(t, json.Unmarshal([]byte(`{"programs": {}}`), &m))
	assert.Empty(t, m.Schema, "schema field is optional on older manifests")
}

func TestRunCheckSucceedsOnWellFormedManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	content := `{
		"programs": {
			"Id": {
				"decls": [
					{
						"kind": "NodeDecl",
						"name": "Id",
						"inputs": [{"kind": "VarDecl", "name": "x", "type": {"kind": "SimpleTypeExpr", "name": "int"}}],
						"outputs": [{"kind": "VarDecl", "name": "y", "type": {"kind": "SimpleTypeExpr", "name": "int"}}],
						"body": [{"kind": "Equation", "lhs": ["y"], "rhs": {"kind": "Ident", "name": "x"}}],
						"is_main": true
					}
				]
			}
		}
	}`
	require.NoError(t, os.WriteFile(manifestPath, []byte(content), 0o644))

	var m manifest
	raw, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &m))

	prog := m.Programs["Id"]
	out, err := elaborate.Elaborate(&prog)
	require.NoError(t, err)
	require.NoError(t, config.Apply(out, config.Default()))
	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "Id", out.Nodes[0].Name)
	assert.Empty(t, out.Nodes[0].Warnings)
}

func TestNodeDumpCarriesWarningMessages(t *testing.T) {
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.NodeDecl{
				Name:    "Delay",
				Inputs:  []*ast.VarDecl{{Name: "x", Type: &ast.SimpleTypeExpr{Name: "int"}}},
				Outputs: []*ast.VarDecl{{Name: "y", Type: &ast.SimpleTypeExpr{Name: "int"}}},
				Body: []ast.Stmt{
					&ast.Equation{LHS: []string{"y"}, RHS: &ast.PreExpr{Expr: &ast.Ident{Name: "x"}}},
				},
			},
		},
	}
	out, err := elaborate.Elaborate(prog)
	require.NoError(t, err)
	require.Len(t, out.Nodes, 1)
	require.Len(t, out.Nodes[0].Warnings, 1)

	dumps := make([]nodeDump, 0, len(out.Nodes))
	for _, n := range out.Nodes {
		var warnings []string
		for _, w := range n.Warnings {
			warnings = append(warnings, w.Message)
		}
		dumps = append(dumps, nodeDump{ID: string(n.ID), Name: n.Name, Main: out.Main == n, Order: n.Order, Warnings: warnings})
	}
	require.Len(t, dumps, 1)
	assert.Len(t, dumps[0].Warnings, 1)
	assert.False(t, dumps[0].Main)
	assert.NotEmpty(t, dumps[0].ID)
}
