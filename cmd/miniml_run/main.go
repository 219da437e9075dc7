package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teris-io/cli"

	"minivm.dev/miniml/pkg/debruijn"
	"minivm.dev/miniml/pkg/parser"
	"minivm.dev/miniml/pkg/rename"
	"minivm.dev/miniml/pkg/secd"
)

var Description = strings.ReplaceAll(`
The MiniML Runner executes a MiniML program on the SECD abstract machine. It accepts
either a '.ml' source file (run through the full parse/rename/resolve/codegen pipeline
first) or an already-compiled '.secd' instruction stream, and prints every 'println'
effect the program produces, in order, followed by the value left on the stack.
`, "\n", " ")

const defaultMaxSteps = 1_000_000

var MiniMLRunner = cli.New(Description).
	WithArg(cli.NewArg("input", "The program to run ('.ml' source or a compiled '.secd' stream)")).
	WithOption(cli.NewOption("max-steps", "Caps the number of machine steps before aborting (default 1000000)")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	content, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	var program []secd.Instr
	if filepath.Ext(args[0]) == ".secd" {
		dec := secd.NewDecoder(bytes.NewReader(content))
		program, err = dec.Decode()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'decoding' pass: %s\n", err)
			return -1
		}
	} else {
		program, err = compile(content)
		if err != nil {
			fmt.Printf("%s\n", err)
			return -1
		}
	}

	maxSteps := defaultMaxSteps
	if raw, ok := options["max-steps"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Printf("ERROR: Invalid --max-steps value: %s\n", err)
			return -1
		}
		maxSteps = n
	}

	machine, err := secd.New(program)
	if err != nil {
		fmt.Printf("ERROR: Unable to load instruction stream: %s\n", err)
		return -1
	}

	result, err := machine.Run(maxSteps)
	for _, effect := range machine.Log {
		if p, ok := effect.(secd.PrintlnEffect); ok {
			fmt.Println(p.Text)
		}
	}
	if err != nil {
		fmt.Printf("ERROR: Machine aborted: %s\n", err)
		return -1
	}

	fmt.Println(secd.FormatVal(result))
	return 0
}

func compile(content []byte) ([]secd.Instr, error) {
	p := parser.NewParser(bytes.NewReader(content))
	prog, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("ERROR: Unable to complete 'parsing' pass: %w", err)
	}

	if err := rename.Rename(prog); err != nil {
		return nil, fmt.Errorf("ERROR: Unable to complete 'renaming' pass: %w", err)
	}

	table := debruijn.Resolve(prog.Main)
	return secd.Generate(prog, table), nil
}

func main() { os.Exit(MiniMLRunner.Run(os.Args, os.Stdout)) }
