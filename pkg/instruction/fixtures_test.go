package instruction_test

import (
	"fmt"
	"strings"

	"isagen.dev/isagen/pkg/isa"
)

// patternFromString builds an isa.Pattern from a string of '0'/'1'/'?'
// characters, MSB-first, the same convention InstructionDescriptor.Mask uses.
func patternFromString(s string) isa.Pattern {
	p := make(isa.Pattern, len(s))
	for i, c := range s {
		switch c {
		case '0':
			p[i] = isa.Zero
		case '1':
			p[i] = isa.One
		default:
			p[i] = isa.Any
		}
	}
	return p
}

// toyDescriptor is a hand-built 16-bit ISADescriptor with one no-operand
// instruction (ADD) and one two-operand instruction (MOV rD, #imm), used
// across the Disassembler/Assembler/PrettyPrinter tests.
func toyDescriptor() isa.ISADescriptor {
	add := isa.InstructionDescriptor{
		Mnemonic: "ADD",
		Mask:     patternFromString("0110000000000000"),
		AsmString: "add",
	}
	mov := isa.InstructionDescriptor{
		Mnemonic: "MOV",
		Mask:     patternFromString("1000????????????"),
		OutputOps: []isa.OperandDescriptor{
			{Name: "rD", Type: "GPR", Chunks: []isa.OperandChunk{{BitInInstruction: 4, BitInOperand: 0, Length: 4}}},
		},
		InputOps: []isa.OperandDescriptor{
			{Name: "imm", Type: "i8imm", Chunks: []isa.OperandChunk{{BitInInstruction: 8, BitInOperand: 0, Length: 8}}},
		},
		AsmString: "mov $rD, $imm",
	}
	return isa.ISADescriptor{Instructions: []isa.InstructionDescriptor{add, mov}}
}

// toyISAConfig wires a register-printing payload type for 'GPR' (decodes an
// index into "R<n>" and back) and leaves 'i8imm' as a bare raw integer.
func toyISAConfig() isa.ISA {
	return isa.ISA{
		Name:          "toy16",
		InsnWidthBits: 16,
		OperandPayloadTypes: map[string]isa.OperandPayloadType{
			"GPR": {
				TargetType: "string",
				DecodeWrap: func(v uint64) (any, error) { return fmt.Sprintf("R%d", v), nil },
				EncodeUnwrap: func(v any) (uint64, error) {
					s, ok := v.(string)
					if !ok {
						return 0, fmt.Errorf("GPR operand value is not a string: %v", v)
					}
					var n uint64
					_, err := fmt.Sscanf(strings.TrimPrefix(s, "R"), "%d", &n)
					return n, err
				},
			},
		},
	}
}
