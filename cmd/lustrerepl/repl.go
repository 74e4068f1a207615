// Package main implements lustrerepl, an interactive line-editor loop that
// elaborates one node declaration at a time (as JSON, since this module's
// scope stops short of a surface-language parser) and prints its flattened
// equations, evaluation order, and any warnings.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/config"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/elaborate"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// Session holds the REPL's running configuration and input history.
type Session struct {
	opts    config.Options
	history []string
}

// New creates a REPL session using the default elaboration options.
func New() *Session {
	return &Session{opts: config.Default()}
}

const historyFileName = ".lustrecheck_repl_history"

// Start runs the read-eval-print loop, reading lines from the terminal
// through liner and writing results to out, until the user quits or sends
// EOF.
func (s *Session) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	historyFile := filepath.Join(os.TempDir(), historyFileName)
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(input string) (c []string) {
		if !strings.HasPrefix(input, ":") {
			return nil
		}
		for _, cmd := range []string{":help", ":quit", ":options", ":history", ":clear"} {
			if strings.HasPrefix(cmd, input) {
				c = append(c, cmd)
			}
		}
		return c
	})

	fmt.Fprintf(out, "%s %s\n", bold("lustrecheck"), dim("interactive node elaborator"))
	fmt.Fprintln(out, dim("Paste a one-node program as JSON, or type :help"))

	for {
		input, err := line.Prompt("lustre> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("goodbye"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)
		s.history = append(s.history, input)

		if strings.HasPrefix(input, ":") {
			if s.handleCommand(input, out) {
				break
			}
			continue
		}

		s.elaborateAndPrint(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// handleCommand runs a colon-command. It reports whether the session
// should stop.
func (s *Session) handleCommand(input string, out io.Writer) bool {
	switch {
	case input == ":quit" || input == ":q" || input == ":exit":
		fmt.Fprintln(out, green("goodbye"))
		return true
	case input == ":help":
		s.printHelp(out)
	case input == ":history":
		for i, h := range s.history {
			fmt.Fprintf(out, "%4d  %s\n", i+1, h)
		}
	case input == ":clear":
		s.history = nil
	case strings.HasPrefix(input, ":options"):
		fmt.Fprintf(out, "entry_point=%q strict_unguarded_pre=%v output_format=%s\n",
			s.opts.EntryPoint, s.opts.StrictUnguardedPre, s.opts.OutputFormat)
	default:
		fmt.Fprintf(out, "%s: unknown command %q\n", yellow("warning"), input)
	}
	return false
}

func (s *Session) printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  :help      show this message")
	fmt.Fprintln(out, "  :options   show current elaboration options")
	fmt.Fprintln(out, "  :history   show input history")
	fmt.Fprintln(out, "  :clear     clear input history")
	fmt.Fprintln(out, "  :quit      exit")
	fmt.Fprintln(out, "Anything else is parsed as a one-node program, e.g.:")
	fmt.Fprintln(out, `  {"decls":[{"kind":"NodeDecl","name":"Id","inputs":[...],"outputs":[...],"body":[...]}]}`)
}

func (s *Session) elaborateAndPrint(input string, out io.Writer) {
	var prog ast.Program
	if err := json.Unmarshal([]byte(input), &prog); err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}

	result, err := elaborate.Elaborate(&prog)
	if err == nil {
		err = config.Apply(result, s.opts)
	}
	if err != nil {
		if rep, ok := diag.As(err); ok {
			fmt.Fprintf(out, "%s %s: %s\n", red("error"), rep.Code, rep.Message)
		} else {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		}
		return
	}

	for _, n := range result.Nodes {
		label := n.Name
		if result.Main == n {
			label += " (main)"
		}
		fmt.Fprintf(out, "%s %s\n", cyan("node"), label)
		for _, id := range n.Order {
			eq := n.Equations[id]
			fmt.Fprintf(out, "  %s = (init: %s, step: %s)\n", id, eq.Init, eq.Step)
		}
		for _, w := range n.Warnings {
			fmt.Fprintf(out, "  %s %s: %s\n", yellow("warning"), w.Code, w.Message)
		}
	}
}

func main() {
	color.NoColor = false
	New().Start(os.Stdout)
}
