package instruction

import (
	"fmt"

	"isagen.dev/isagen/pkg/bitfield"
	"isagen.dev/isagen/pkg/isa"
)

// ----------------------------------------------------------------------------
// Assembler

// Assembler is Disassembler's inverse: it looks a mnemonic up by name in the
// descriptor, and packs its operand values into a wire byte sequence. Like
// Disassembler, it works entirely in Mask-space and is unaware of the ISA's
// own endian adapter beyond the width it implies.
type Assembler struct {
	descriptor isa.ISADescriptor
	isa        isa.ISA
	width      int // bytes
}

// NewAssembler returns a ready-to-use Assembler over 'd'.
func NewAssembler(d isa.ISADescriptor, i isa.ISA) (*Assembler, error) {
	if i.InsnWidthBits == 0 || i.InsnWidthBits%8 != 0 {
		return nil, fmt.Errorf("instruction: ISA %q has an invalid InsnWidthBits=%d", i.Name, i.InsnWidthBits)
	}
	return &Assembler{descriptor: d, isa: i, width: i.InsnWidthBits / 8}, nil
}

// Assemble packs 'inst' into its wire byte sequence. It is total: an operand
// value wider than its chunk coverage is silently truncated to its low bits
// (spec's "Boundary behaviors"), and a missing operand is treated as zero.
func (as *Assembler) Assemble(inst Instruction) ([]byte, error) {
	descriptor, ok := as.descriptor.FindInstruction(inst.Mnemonic)
	if !ok {
		return nil, fmt.Errorf("instruction: unknown mnemonic %q", inst.Mnemonic)
	}

	base := maskToBaseWord(descriptor.Mask)

	assemblies := make([]bitfield.OperandAssembly, 0, len(descriptor.Operands()))
	for _, op := range descriptor.Operands() {
		raw, err := as.resolveOperand(inst, descriptor.Mnemonic, op)
		if err != nil {
			return nil, err
		}
		assemblies = append(assemblies, bitfield.OperandAssembly{Value: raw, Chunks: op.Chunks})
	}

	word := bitfield.AssembleBits(base, as.isa.InsnWidthBits, assemblies)
	return isa.BigEndianBytes(word, as.width), nil
}

// resolveOperand picks the raw bit value to pack for 'op': an operand type
// with an EncodeUnwrap adapter converts OperandValue.Value through it,
// otherwise the caller-supplied Raw field is used directly.
func (as *Assembler) resolveOperand(inst Instruction, mnemonic string, op isa.OperandDescriptor) (uint64, error) {
	value, found := inst.Operand(op.Name)
	if !found {
		return 0, nil
	}

	payloadType, ok := as.isa.OperandPayloadTypes[op.Type]
	if ok && payloadType.EncodeUnwrap != nil && value.Value != nil {
		raw, err := payloadType.EncodeUnwrap(value.Value)
		if err != nil {
			return 0, fmt.Errorf("instruction: encoding operand %q of %q: %w", op.Name, mnemonic, err)
		}
		return raw, nil
	}
	return value.Raw, nil
}

// maskToBaseWord reads a Pattern's fixed bits (Zero/One) into the base
// instruction word AssembleBits starts from; Any bits are left zero, to be
// filled in by the operand chunks.
func maskToBaseWord(mask isa.Pattern) uint64 {
	width := len(mask)
	var word uint64
	for i, bit := range mask {
		if bit == isa.One {
			word |= 1 << (width - 1 - i)
		}
	}
	return word
}
