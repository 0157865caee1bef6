// Command isarepl is an interactive decode/encode shell over a built ISA:
// 'decode' reads hex byte strings and prints decoded instructions, 'encode'
// reads mnemonic + operand lines and prints assembled bytes. Each subcommand
// is its own struct, dispatched with github.com/google/subcommands.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&decodeCmd{}, "")
	subcommands.Register(&encodeCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
