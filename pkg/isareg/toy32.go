package isareg

import (
	"fmt"
	"strings"

	"isagen.dev/isagen/pkg/isa"
	"isagen.dev/isagen/pkg/tablegen"
)

// ----------------------------------------------------------------------------
// General information

// This section is the small named-ISA registry the core's own "ISA instances
// are consumed by name" design calls for: a map from a short name to an
// isa.ISA configuration, plus one fully worked-out entry ('toy32') exercised
// by cmd/isagen, cmd/isarepl, and the cross-package integration tests.
//
// toy32 is a fixed-width 32-bit hypothetical ISA matching the concrete
// scenarios used throughout this codebase's own tests: a no-operand ADD, a
// two-operand MOV with a simple 4-bit register field and a 16-bit immediate,
// and a split-chunk register field to exercise the coalescing edge case.

var registry = map[string]isa.ISA{
	"toy32": Toy32(),
}

// Lookup returns the named ISA configuration, if the registry carries one.
func Lookup(name string) (isa.ISA, bool) {
	cfg, ok := registry[name]
	return cfg, ok
}

// Names returns every ISA name the registry knows, for CLI usage text.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Toy32 builds the 'toy32' ISA configuration. It is exported (rather than
// registry-private) so tests can build an isa.Filter against it directly
// without a name lookup.
func Toy32() isa.ISA {
	return isa.ISA{
		Name:              "toy32",
		InsnWidthBits:     32,
		FilterInstruction: func(d tablegen.Def) bool { _, ok := d.Decl("Inst"); return ok },
		IsPseudo:          isPseudo,
		IsRegisterClass:   isRegisterClass,
		IsRegister:        isRegister,
		OperandPayloadTypes: map[string]isa.OperandPayloadType{
			"GPR": {
				TargetType:   "string",
				DecodeWrap:   func(v uint64) (any, error) { return fmt.Sprintf("R%d", v), nil },
				EncodeUnwrap: decodeRegisterName,
			},
		},
		InsnWordFromBytes: isa.BigEndianWord(4),
		InsnWordToBytes:   isa.BigEndianBytes,
	}
}

func isPseudo(d tablegen.Def) bool {
	decl, ok := d.Decl("IsPseudo")
	return ok && decl.Item.Int != nil && *decl.Item.Int != 0
}

// isRegisterClass identifies a register-class Def by its 'Members' list,
// excluding anything that also declares 'Inst' (an instruction never doubles
// as a register class in this scheme).
func isRegisterClass(d tablegen.Def) bool {
	if _, isInst := d.Decl("Inst"); isInst {
		return false
	}
	_, ok := d.Decl("Members")
	return ok
}

// isRegister identifies an individual register Def by its 'Num' encoding.
func isRegister(d tablegen.Def) bool {
	if _, isInst := d.Decl("Inst"); isInst {
		return false
	}
	_, ok := d.Decl("Num")
	return ok
}

func decodeRegisterName(v any) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("isareg: GPR operand value %v is not a string", v)
	}
	var n uint64
	if _, err := fmt.Sscanf(strings.TrimPrefix(s, "R"), "%d", &n); err != nil {
		return 0, fmt.Errorf("isareg: malformed register name %q: %w", s, err)
	}
	return n, nil
}
