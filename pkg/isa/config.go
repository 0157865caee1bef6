package isa

import (
	"encoding/binary"
	"fmt"

	"isagen.dev/isagen/pkg/tablegen"
)

// ----------------------------------------------------------------------------
// General information

// This section declares the configuration a caller supplies to a Filter: which
// defs count as instructions for this architecture, how each operand type's
// raw bit value maps to (and back from) a higher-level Go value, and how bytes
// on the wire map to (and back from) an instruction word.
//
// None of this is hardcoded per-architecture logic; ISA instances are meant to
// be consumed by name (pkg/isareg holds one worked example, 'toy32').

// ISA bundles everything a Filter needs to turn tablegen.Records into an
// ISADescriptor for one concrete architecture.
type ISA struct {
	Name string

	// FilterInstruction selects which Defs represent real instructions.
	FilterInstruction func(tablegen.Def) bool
	// IsPseudo marks instructions that exist for record-keeping only (e.g.
	// aliases); they're still filtered, but flagged IsPseudo on the descriptor.
	IsPseudo func(tablegen.Def) bool

	// IsRegisterClass/IsRegister select the Defs, if any, that declare the
	// register universe an operand type can resolve to. Both are optional;
	// an ISA with no register operands (or one that ships its own fixed
	// RegisterClass/Register tables instead of deriving them from the dump)
	// leaves them nil and gets an empty ISADescriptor.Registers.
	IsRegisterClass func(tablegen.Def) bool
	IsRegister      func(tablegen.Def) bool

	// OperandPayloadTypes maps an OperandType name to its decode/encode adapters.
	OperandPayloadTypes map[string]OperandPayloadType

	// InsnWidthBits is the fixed bit width of this ISA's instruction word.
	InsnWidthBits int
	// InsnWordFromBytes/InsnWordToBytes are the endian adapters converting
	// between a byte sequence and the instruction word integer.
	InsnWordFromBytes func([]byte) (uint64, error)
	InsnWordToBytes   func(uint64, int) []byte
}

// OperandPayloadType names one operand class (e.g. "GPR32", "i16imm") and its
// bijective conversion between the raw chunk-extracted integer and whatever Go
// value the caller wants an instruction's decoded operand to carry.
//
// Per spec's Open Question on operand wrapper semantics: DecodeWrap/EncodeUnwrap
// are expected to be inverses of one another (DecodeWrap(EncodeUnwrap(v)) == v
// and vice versa) so that Disassemble/Assemble compose into a round trip; a
// payload type with no wrapper just passes the raw uint64 through unchanged.
type OperandPayloadType struct {
	TargetType   string
	DecodeWrap   func(uint64) (any, error)
	EncodeUnwrap func(any) (uint64, error)
}

// BigEndianWord/BigEndianBytes and LittleEndianWord/LittleEndianBytes are the
// two endian adapters most TableGen-described ISAs need; an ISA is free to
// supply its own when neither fits (e.g. mixed-endian instruction encodings).

// BigEndianWord reads the first 'width' bytes of 'b' as a big-endian instruction word.
func BigEndianWord(widthBytes int) func([]byte) (uint64, error) {
	return func(b []byte) (uint64, error) {
		if len(b) < widthBytes {
			return 0, fmt.Errorf("isa: need %d bytes, got %d", widthBytes, len(b))
		}
		var word uint64
		for i := 0; i < widthBytes; i++ {
			word = word<<8 | uint64(b[i])
		}
		return word, nil
	}
}

// BigEndianBytes writes 'word' as a big-endian byte sequence of 'widthBytes' bytes.
func BigEndianBytes(word uint64, widthBytes int) []byte {
	out := make([]byte, widthBytes)
	for i := widthBytes - 1; i >= 0; i-- {
		out[i] = byte(word)
		word >>= 8
	}
	return out
}

// LittleEndianWord reads the first 'width' bytes of 'b' as a little-endian instruction word.
func LittleEndianWord(widthBytes int) func([]byte) (uint64, error) {
	return func(b []byte) (uint64, error) {
		if len(b) < widthBytes {
			return 0, fmt.Errorf("isa: need %d bytes, got %d", widthBytes, len(b))
		}
		switch widthBytes {
		case 2:
			return uint64(binary.LittleEndian.Uint16(b)), nil
		case 4:
			return uint64(binary.LittleEndian.Uint32(b)), nil
		case 8:
			return binary.LittleEndian.Uint64(b), nil
		default:
			var word uint64
			for i := widthBytes - 1; i >= 0; i-- {
				word = word<<8 | uint64(b[i])
			}
			return word, nil
		}
	}
}

// LittleEndianBytes writes 'word' as a little-endian byte sequence of 'widthBytes' bytes.
func LittleEndianBytes(word uint64, widthBytes int) []byte {
	out := make([]byte, widthBytes)
	switch widthBytes {
	case 2:
		binary.LittleEndian.PutUint16(out, uint16(word))
	case 4:
		binary.LittleEndian.PutUint32(out, uint32(word))
	case 8:
		binary.LittleEndian.PutUint64(out, word)
	default:
		for i := 0; i < widthBytes; i++ {
			out[i] = byte(word)
			word >>= 8
		}
	}
	return out
}
