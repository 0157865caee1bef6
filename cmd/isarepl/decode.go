package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
)

// decodeCmd implements the 'decode' subcommand: a REPL loop that reads a
// hex byte string per line and prints the decoded Instruction.
type decodeCmd struct {
	isaName string
	input   string
}

func (*decodeCmd) Name() string     { return "decode" }
func (*decodeCmd) Synopsis() string { return "Decode hex byte strings against a built ISA" }
func (*decodeCmd) Usage() string {
	return `decode -isa <name> -input <tablegen-dump>:
  Read a hex byte string per line from stdin and print the decoded
  instruction, until EOF or a line reading 'exit'.
`
}

func (c *decodeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.isaName, "isa", "toy32", "registered ISA name")
	f.StringVar(&c.input, "input", "", "TableGen dump to filter against the ISA")
}

func (c *decodeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	sess, err := loadSession(c.isaName, c.input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	decodeLoop(os.Stdin, os.Stdout, sess)
	return subcommands.ExitSuccess
}

func decodeLoop(in io.Reader, out io.Writer, sess *session) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "decode> ")
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

		data, err := hex.DecodeString(strings.ReplaceAll(line, " ", ""))
		if err != nil {
			fmt.Fprintf(out, "error: %s is not a valid hex byte string: %s\n", line, err)
			continue
		}

		consumed, inst, err := sess.disasm.Disassemble(data)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		if inst == nil {
			fmt.Fprintf(out, "no match\n")
			continue
		}

		text, err := sess.pp.Format(*inst)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		fmt.Fprintf(out, "%s (%d bytes consumed)\n", text, consumed)
	}
}
