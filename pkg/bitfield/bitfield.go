package bitfield

import "isagen.dev/isagen/pkg/isa"

// ----------------------------------------------------------------------------
// General information

// This section contains the bit-packing engine shared by the decode and
// encode paths: the same chunk list built once by pkg/isa.Filter is walked
// forwards by FieldFromWord (instruction word -> operand value) and backwards
// by AssembleBits (operand value -> instruction word), the same shift-and-OR
// idiom the Hack code generator used to pack Comp/Dest/Jump opcodes into a
// single uint16, generalized to an arbitrary list of chunks per operand and
// an arbitrary instruction width.
//
// Bit 0 of an instruction word is its most significant bit (spec's "Bit
// order convention"); bit 0 of an operand value is its least significant
// bit, the ordinary numbering. A chunk's BitInInstruction is therefore
// converted to a from-LSB shift using the instruction's bit width, while its
// BitInOperand is already a from-LSB shift and needs no conversion.

// FieldFromWord extracts an operand's value out of an instruction word by
// walking 'chunks' in order, pulling each chunk's bits out of 'word' and
// depositing them at the chunk's operand-relative position. Operand bits not
// covered by any chunk are left zero.
func FieldFromWord(word uint64, width int, chunks []isa.OperandChunk) uint64 {
	var value uint64
	for _, c := range chunks {
		shift := width - c.BitInInstruction - c.Length
		mask := chunkMask(c.Length)
		bits := (word >> shift) & mask
		value |= bits << c.BitInOperand
	}
	return value
}

// OperandAssembly pairs a decoded operand value with the chunk list that
// locates it within the instruction word, the unit AssembleBits consumes.
type OperandAssembly struct {
	Value  uint64
	Chunks []isa.OperandChunk
}

// AssembleBits packs every operand in 'operands' into 'base' — the
// instruction word with all fixed bits already set and every operand bit
// zeroed — and returns the completed word. Chunks belonging to different
// operands, and the fixed bits of 'base', are assumed not to overlap; this
// is validated once at descriptor-build time (pkg/isa.Filter), not here.
func AssembleBits(base uint64, width int, operands []OperandAssembly) uint64 {
	word := base
	for _, op := range operands {
		for _, c := range op.Chunks {
			mask := chunkMask(c.Length)
			bits := (op.Value >> c.BitInOperand) & mask
			shift := width - c.BitInInstruction - c.Length
			word |= bits << shift
		}
	}
	return word
}

func chunkMask(length int) uint64 {
	if length >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(length) - 1
}
