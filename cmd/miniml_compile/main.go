package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"minivm.dev/miniml/pkg/debruijn"
	"minivm.dev/miniml/pkg/parser"
	"minivm.dev/miniml/pkg/rename"
	"minivm.dev/miniml/pkg/secd"
)

var Description = strings.ReplaceAll(`
The MiniML Compiler takes a program written in the MiniML language and runs it through
parsing, alpha-renaming, de Bruijn resolution and code generation, producing a flat SECD
instruction stream that 'miniml_run' can execute.
`, "\n", " ")

var MiniMLCompiler = cli.New(Description).
	WithArg(cli.NewArg("input", "The source (.ml) file to be compiled")).
	WithArg(cli.NewArg("output", "The compiled instruction stream output (.secd)")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	input, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	output, err := os.Create(args[1])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Instantiate a parser for the MiniML program
	p := parser.NewParser(bytes.NewReader(input))
	// Parses the input file content and extracts an AST (as an 'ast.Prog') from it.
	prog, err := p.Parse()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}

	// Renames every binder to a globally-unique name, in place.
	if err := rename.Rename(prog); err != nil {
		fmt.Printf("ERROR: Unable to complete 'renaming' pass: %s\n", err)
		return -1
	}

	// Resolves every VarRef to a de Bruijn (depth, focus) index.
	table := debruijn.Resolve(prog.Main)

	// Generates the flat SECD instruction stream from the resolved program.
	compiled := secd.Generate(prog, table)

	output.WriteString(secd.FormatProgram(compiled))
	output.WriteString("\n")

	return 0
}

func main() { os.Exit(MiniMLCompiler.Run(os.Args, os.Stdout)) }
