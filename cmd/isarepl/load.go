package main

import (
	"bytes"
	"fmt"
	"os"

	"isagen.dev/isagen/pkg/instruction"
	"isagen.dev/isagen/pkg/isa"
	"isagen.dev/isagen/pkg/isareg"
	"isagen.dev/isagen/pkg/tablegen"
)

// session bundles everything a decode/encode REPL loop needs once an ISA and
// a TableGen dump have been filtered into a descriptor: the trio of
// contracts §6 hands to a consumer.
type session struct {
	descriptor isa.ISADescriptor
	isaCfg     isa.ISA
	disasm     *instruction.Disassembler
	asm        *instruction.Assembler
	pp         instruction.PrettyPrinter
}

// loadSession reads the TableGen dump at 'input', filters it against the
// named ISA, and compiles a byte-trie for it. It is shared by decodeCmd and
// encodeCmd so both subcommands see exactly the same descriptor.
func loadSession(isaName, input string) (*session, error) {
	isaCfg, ok := isareg.Lookup(isaName)
	if !ok {
		return nil, fmt.Errorf("isarepl: unknown ISA %q (try one of: %v)", isaName, isareg.Names())
	}

	raw, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("isarepl: unable to read %q: %w", input, err)
	}

	parser := tablegen.NewParser(bytes.NewReader(raw))
	records, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("isarepl: unable to parse %q: %w", input, err)
	}

	descriptor, err := isa.NewFilter(isaCfg).Build(records)
	if err != nil {
		return nil, fmt.Errorf("isarepl: unable to filter %q against %q: %w", input, isaName, err)
	}

	disasm, err := instruction.NewDisassembler(descriptor, isaCfg)
	if err != nil {
		return nil, fmt.Errorf("isarepl: descriptor does not decode unambiguously: %w", err)
	}
	asm, err := instruction.NewAssembler(descriptor, isaCfg)
	if err != nil {
		return nil, fmt.Errorf("isarepl: unable to build assembler: %w", err)
	}

	return &session{
		descriptor: descriptor,
		isaCfg:     isaCfg,
		disasm:     disasm,
		asm:        asm,
		pp:         instruction.NewPrettyPrinter(descriptor),
	}, nil
}
