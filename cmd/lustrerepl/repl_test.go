package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/lustrecheck/internal/config"
)

func TestElaborateAndPrintReportsEquationsInOrder(t *testing.T) {
	s := New()
	var buf bytes.Buffer

	input := `{"decls":[{"kind":"NodeDecl","name":"Id",
		"inputs":[{"kind":"VarDecl","name":"x","type":{"kind":"SimpleTypeExpr","name":"int"}}],
		"outputs":[{"kind":"VarDecl","name":"y","type":{"kind":"SimpleTypeExpr","name":"int"}}],
		"body":[{"kind":"Equation","lhs":["y"],"rhs":{"kind":"Ident","name":"x"}}],
		"is_main":true}]}`

	s.elaborateAndPrint(input, &buf)
	out := buf.String()
	assert.Contains(t, out, "node Id (main)")
	assert.Contains(t, out, "y = (init:")
}

func TestElaborateAndPrintReportsUnguardedPreWarning(t *testing.T) {
	s := New()
	var buf bytes.Buffer

	input := `{"decls":[{"kind":"NodeDecl","name":"Delay",
		"inputs":[{"kind":"VarDecl","name":"x","type":{"kind":"SimpleTypeExpr","name":"int"}}],
		"outputs":[{"kind":"VarDecl","name":"y","type":{"kind":"SimpleTypeExpr","name":"int"}}],
		"body":[{"kind":"Equation","lhs":["y"],"rhs":{"kind":"PreExpr","expr":{"kind":"Ident","name":"x"}}}]}]}`

	s.elaborateAndPrint(input, &buf)
	out := buf.String()
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "ELB070")
}

func TestElaborateAndPrintReportsMalformedJSON(t *testing.T) {
	s := New()
	var buf bytes.Buffer

	s.elaborateAndPrint(`{"decls": [`, &buf)
	assert.Contains(t, buf.String(), "error")
}

func TestHandleCommandHistoryAndClear(t *testing.T) {
	s := New()
	var buf bytes.Buffer

	s.history = []string{"one", "two"}
	stop := s.handleCommand(":history", &buf)
	require.False(t, stop)
	assert.Contains(t, buf.String(), "one")
	assert.Contains(t, buf.String(), "two")

	stop = s.handleCommand(":clear", &buf)
	require.False(t, stop)
	assert.Empty(t, s.history)
}

func TestHandleCommandQuitStopsSession(t *testing.T) {
	s := New()
	var buf bytes.Buffer
	stop := s.handleCommand(":quit", &buf)
	assert.True(t, stop)
	assert.Contains(t, buf.String(), "goodbye")
}

func TestHandleCommandOptionsReflectsConfig(t *testing.T) {
	s := New()
	s.opts = config.Options{EntryPoint: "Delay", StrictUnguardedPre: true, OutputFormat: config.OutputJSON}
	var buf bytes.Buffer
	s.handleCommand(":options", &buf)
	out := buf.String()
	assert.Contains(t, out, `entry_point="Delay"`)
	assert.Contains(t, out, "strict_unguarded_pre=true")
}
