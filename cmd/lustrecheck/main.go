// Command lustrecheck elaborates a manifest of already-parsed Lustre-family
// node declarations (JSON fixtures — this module does not parse the surface
// language) and prints the result of each, colored by outcome.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/sunholo/lustrecheck/internal/ast"
	"github.com/sunholo/lustrecheck/internal/config"
	"github.com/sunholo/lustrecheck/internal/diag"
	"github.com/sunholo/lustrecheck/internal/elaborate"
	"github.com/sunholo/lustrecheck/internal/schema"
)

// Version is set by ldflags during build.
var Version = "dev"

func main() {
	var (
		versionFlag = flag.Bool("version", false, "print version information")
		helpFlag    = flag.Bool("help", false, "show help")
		optionsPath = flag.String("options", "", "path to a YAML elaboration-options file")
		compactFlag = flag.Bool("compact", false, "emit single-line JSON instead of indented")
	)
	flag.Parse()
	schema.SetCompactMode(*compactFlag)

	if *versionFlag {
		fmt.Printf("lustrecheck %s\n", Version)
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	switch command := flag.Arg(0); command {
	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "usage: lustrecheck check <manifest.json>")
			os.Exit(1)
		}
		runCheck(flag.Arg(1), *optionsPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("lustrecheck - elaborate node declarations from a JSON fixture manifest")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lustrecheck [-options file.yaml] [-compact] check <manifest.json>")
	fmt.Println("  lustrecheck -version")
}

// manifest is the fixture format: a name to already-structured Program
// fixture, decoded by internal/ast's json.go.
type manifest struct {
	Schema   string                 `json:"schema,omitempty"`
	Programs map[string]ast.Program `json:"programs"`
}

func runCheck(path, optionsPath string) {
	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

	opts := config.Default()
	if optionsPath != "" {
		var err error
		opts, err = config.Load(optionsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("error"), err)
			os.Exit(1)
		}
	}
	if !opts.Color {
		color.NoColor = true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read manifest %s: %v\n", color.RedString("error"), path, err)
		os.Exit(1)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot parse manifest: %v\n", color.RedString("error"), err)
		os.Exit(1)
	}
	if m.Schema != "" && !schema.Accepts(m.Schema, schema.ProgramV1) {
		fmt.Fprintf(os.Stderr, "%s: manifest schema %q is incompatible with %s\n", color.RedString("error"), m.Schema, schema.ProgramV1)
		os.Exit(1)
	}

	names := make([]string, 0, len(m.Programs))
	for name := range m.Programs {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := 0
	for _, name := range names {
		prog := m.Programs[name]
		fmt.Printf("%s %s\n", color.CyanString("-->"), name)
		out, err := elaborate.Elaborate(&prog)
		if err == nil {
			err = config.Apply(out, opts)
		}
		if err != nil {
			failures++
			printDiagnostic(err, opts)
			continue
		}
		printResult(out, opts)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func printDiagnostic(err error, opts config.Options) {
	rep, ok := diag.As(err)
	if !ok {
		fmt.Printf("  %s %v\n", color.RedString("error"), err)
		return
	}
	if opts.OutputFormat == config.OutputJSON {
		if data, jerr := rep.ToJSON(); jerr == nil {
			fmt.Println(string(data))
			return
		}
	}
	fmt.Printf("  %s %s: %s\n", color.RedString("error"), rep.Code, rep.Message)
}

func printResult(prog *elaborate.Program, opts config.Options) {
	if opts.OutputFormat == config.OutputJSON {
		printResultJSON(prog)
		return
	}
	for _, n := range prog.Nodes {
		label := n.Name
		if prog.Main == n {
			label += " (main)"
		}
		fmt.Printf("  %s node %s: %d equation(s), order %v\n", color.GreenString("ok"), label, len(n.Equations), n.Order)
		for _, w := range n.Warnings {
			fmt.Printf("    %s %s: %s\n", color.YellowString("warning"), w.Code, w.Message)
		}
	}
}

// nodeDump is the stable JSON rendering of one elaborated node, deliberately
// narrower than elaborate.Node: callers of the CLI see names, evaluation
// order, and warnings, not the internal flat-expression representation.
type nodeDump struct {
	Schema   string   `json:"schema"`
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Main     bool     `json:"main"`
	Order    []string `json:"order"`
	Warnings []string `json:"warnings,omitempty"`
}

func printResultJSON(prog *elaborate.Program) {
	dumps := make([]nodeDump, 0, len(prog.Nodes))
	for _, n := range prog.Nodes {
		var warnings []string
		for _, w := range n.Warnings {
			warnings = append(warnings, w.Message)
		}
		dumps = append(dumps, nodeDump{
			Schema:   schema.ProgramV1,
			ID:       string(n.ID),
			Name:     n.Name,
			Main:     prog.Main == n,
			Order:    n.Order,
			Warnings: warnings,
		})
	}
	data, err := schema.MarshalDeterministic(dumps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("error"), err)
		return
	}
	pretty, err := schema.FormatJSON(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("error"), err)
		return
	}
	fmt.Println(string(pretty))
}
