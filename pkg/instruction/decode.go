package instruction

import (
	"fmt"

	"isagen.dev/isagen/pkg/bitfield"
	"isagen.dev/isagen/pkg/bittrie"
	"isagen.dev/isagen/pkg/isa"
)

// ----------------------------------------------------------------------------
// Disassembler

// Disassembler turns a wire byte stream into Instruction values: walk a
// cursor forward, dispatch on a lookup table, advance by however many bytes
// matched, with the lookup table built once from an ISADescriptor instead of
// hand-written per opcode.
//
// Internally, decoding always walks the instruction word byte-by-byte in the
// same order InstructionDescriptor.Mask already uses (the ISA's endian
// adapter is consumed exactly once, by isa.Filter, to produce that mask
// order); the trie and the bit engine therefore never re-consult
// isa.ISA.InsnWordFromBytes.
type Disassembler struct {
	descriptor isa.ISADescriptor
	isa        isa.ISA
	trie       *bittrie.ByteTrie
	width      int // bytes
}

// NewDisassembler compiles 'd' into a byte-trie and returns a ready-to-use
// Disassembler. It fails if the descriptor's instruction masks are ambiguous.
func NewDisassembler(d isa.ISADescriptor, i isa.ISA) (*Disassembler, error) {
	if i.InsnWidthBits == 0 || i.InsnWidthBits%8 != 0 {
		return nil, fmt.Errorf("instruction: ISA %q has an invalid InsnWidthBits=%d", i.Name, i.InsnWidthBits)
	}
	width := i.InsnWidthBits / 8

	entries := make([]bittrie.Entry, len(d.Instructions))
	for idx, inst := range d.Instructions {
		required, value := maskToBytes(inst.Mask)
		entries[idx] = bittrie.Entry{Tag: inst.Mnemonic, RequiredMask: required, ValueMask: value, Payload: idx}
	}

	trie, err := bittrie.Build(entries, width)
	if err != nil {
		return nil, err
	}

	return &Disassembler{descriptor: d, isa: i, trie: trie, width: width}, nil
}

// Disassemble decodes at most one instruction from the start of 'data'. A
// return of (0, nil, nil) means no descriptor pattern matches any prefix of
// 'data' — a decode miss is not an error (§7 kind 4).
func (ds *Disassembler) Disassemble(data []byte) (consumed int, inst *Instruction, err error) {
	consumed, payload, ok := ds.trie.Decode(data)
	if !ok {
		return 0, nil, nil
	}

	descriptor := ds.descriptor.Instructions[payload]
	word, err := isa.BigEndianWord(ds.width)(data[:consumed])
	if err != nil {
		return 0, nil, err
	}

	operands := make([]OperandValue, 0, len(descriptor.Operands()))
	for _, op := range descriptor.Operands() {
		raw := bitfield.FieldFromWord(word, ds.isa.InsnWidthBits, op.Chunks)
		value := OperandValue{Name: op.Name, Type: op.Type, Raw: raw}
		if payloadType, ok := ds.isa.OperandPayloadTypes[op.Type]; ok && payloadType.DecodeWrap != nil {
			wrapped, err := payloadType.DecodeWrap(raw)
			if err != nil {
				return 0, nil, fmt.Errorf("instruction: decoding operand %q of %q: %w", op.Name, descriptor.Mnemonic, err)
			}
			value.Value = wrapped
		}
		operands = append(operands, value)
	}

	return consumed, &Instruction{Mnemonic: descriptor.Mnemonic, Operands: operands}, nil
}

// maskToBytes converts a Pattern (MSB-indexed Any/Zero/One) into the
// RequiredMask/ValueMask byte pair bittrie.Entry expects, one bit per
// position packed MSB-first per byte to match Mask's own convention.
func maskToBytes(mask isa.Pattern) (required, value []byte) {
	width := (len(mask) + 7) / 8
	required = make([]byte, width)
	value = make([]byte, width)

	for i, bit := range mask {
		byteIdx, bitIdx := i/8, 7-(i%8)
		if bit == isa.Any {
			continue
		}
		required[byteIdx] |= 1 << bitIdx
		if bit == isa.One {
			value[byteIdx] |= 1 << bitIdx
		}
	}
	return required, value
}
