package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"isagen.dev/isagen/pkg/instruction"
	"isagen.dev/isagen/pkg/isa"
	"isagen.dev/isagen/pkg/isareg"
	"isagen.dev/isagen/pkg/tablegen"
)

var Description = strings.ReplaceAll(`
isagen reads a TableGen record dump, filters it against a named ISA
configuration, and reports whether the resulting instruction descriptor
decodes unambiguously. It writes a Make-style .d file recording the input
as a build dependency, so an incremental build re-runs when it changes.
`, "\n", " ")

var IsaGen = cli.New(Description).
	WithArg(cli.NewArg("input", "The TableGen record dump to filter")).
	WithArg(cli.NewArg("isa", "The registered ISA name to filter against")).
	WithOption(cli.NewOption("depfile", "Path to write a Make-style .d dependency file to").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	isaCfg, ok := isareg.Lookup(args[1])
	if !ok {
		fmt.Printf("ERROR: Unknown ISA %q, known ISAs: %s\n", args[1], strings.Join(isareg.Names(), ", "))
		return -1
	}

	input, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	// Instantiate a parser for the TableGen dump
	parser := tablegen.NewParser(bytes.NewReader(input))
	// Parses the input file content and extracts an AST (as a 'tablegen.Records') from it.
	records, err := parser.Parse()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}

	// Filters the records against the chosen ISA configuration.
	descriptor, err := isa.NewFilter(isaCfg).Build(records)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'filter' pass: %s\n", err)
		return -1
	}
	for _, derr := range descriptor.Errors {
		fmt.Printf("WARNING: %s.%s: %s\n", derr.Mnemonic, derr.Operand, derr.Reason)
	}

	// Building a Disassembler compiles the descriptor's masks into a byte
	// trie, surfacing any ambiguous instruction encoding as a fatal error.
	if _, err := instruction.NewDisassembler(descriptor, isaCfg); err != nil {
		fmt.Printf("ERROR: Descriptor does not decode unambiguously: %s\n", err)
		return -1
	}

	if options["depfile"] != "" {
		if err := writeDepfile(options["depfile"], args[0]); err != nil {
			fmt.Printf("ERROR: Unable to write dependency file: %s\n", err)
			return -1
		}
	}

	fmt.Printf("OK: %d instructions, %d registers, %d register classes\n",
		len(descriptor.Instructions), len(descriptor.Registers), len(descriptor.RegisterClasses))
	return 0
}

// writeDepfile records 'input' as a build dependency of 'target' in
// Make-rule syntax, so a downstream incremental build re-runs when the
// TableGen source changes.
func writeDepfile(target string, input string) error {
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s: %s\n", target, input)
	return err
}

func main() { os.Exit(IsaGen.Run(os.Args, os.Stdout)) }
