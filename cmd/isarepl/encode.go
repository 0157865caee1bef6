package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"isagen.dev/isagen/pkg/instruction"
	"isagen.dev/isagen/pkg/isa"
)

// encodeCmd implements the 'encode' subcommand: a REPL loop that reads a
// mnemonic followed by 'name=value' operand assignments per line and prints
// the assembled hex bytes.
type encodeCmd struct {
	isaName string
	input   string
}

func (*encodeCmd) Name() string     { return "encode" }
func (*encodeCmd) Synopsis() string { return "Assemble mnemonic + operand lines against a built ISA" }
func (*encodeCmd) Usage() string {
	return `encode -isa <name> -input <tablegen-dump>:
  Read 'MNEMONIC name=value ...' lines from stdin and print the assembled
  hex bytes, until EOF or a line reading 'exit'. A value is parsed as an
  unsigned integer (accepts a '0x' prefix) unless the operand's type has a
  registered payload, in which case it is taken as a literal string (e.g.
  a register name).
`
}

func (c *encodeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.isaName, "isa", "toy32", "registered ISA name")
	f.StringVar(&c.input, "input", "", "TableGen dump to filter against the ISA")
}

func (c *encodeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	sess, err := loadSession(c.isaName, c.input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	encodeLoop(os.Stdin, os.Stdout, sess)
	return subcommands.ExitSuccess
}

func encodeLoop(in io.Reader, out io.Writer, sess *session) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "encode> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" {
			return
		}
		if line == "" {
			continue
		}

		inst, err := parseInstructionLine(sess, line)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}

		wire, err := sess.asm.Assemble(inst)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n", hex.EncodeToString(wire))
	}
}

// parseInstructionLine turns 'MNEMONIC name=value ...' into an
// instruction.Instruction, consulting the descriptor to learn each
// operand's declared type and the ISA's payload registration for it.
func parseInstructionLine(sess *session, line string) (instruction.Instruction, error) {
	fields := strings.Fields(line)
	mnemonic := fields[0]

	descriptor, ok := sess.descriptor.FindInstruction(mnemonic)
	if !ok {
		return instruction.Instruction{}, fmt.Errorf("unknown mnemonic %q", mnemonic)
	}

	operands := make([]instruction.OperandValue, 0, len(fields)-1)
	for _, assignment := range fields[1:] {
		name, rawValue, found := strings.Cut(assignment, "=")
		if !found {
			return instruction.Instruction{}, fmt.Errorf("malformed operand assignment %q, want name=value", assignment)
		}

		op, ok := findOperand(descriptor.Operands(), name)
		if !ok {
			return instruction.Instruction{}, fmt.Errorf("%s has no operand named %q", mnemonic, name)
		}

		value := instruction.OperandValue{Name: name, Type: op.Type}
		if _, hasPayload := sess.isaCfg.OperandPayloadTypes[op.Type]; hasPayload {
			value.Value = rawValue
		} else {
			n, err := strconv.ParseUint(rawValue, 0, 64)
			if err != nil {
				return instruction.Instruction{}, fmt.Errorf("operand %q value %q is not an integer: %w", name, rawValue, err)
			}
			value.Raw = n
		}
		operands = append(operands, value)
	}

	return instruction.Instruction{Mnemonic: mnemonic, Operands: operands}, nil
}

func findOperand(operands []isa.OperandDescriptor, name string) (isa.OperandDescriptor, bool) {
	for _, op := range operands {
		if op.Name == name {
			return op, true
		}
	}
	return isa.OperandDescriptor{}, false
}
