package instruction

import (
	"fmt"
	"regexp"

	"isagen.dev/isagen/pkg/isa"
)

// ----------------------------------------------------------------------------
// Pretty printer

// PrettyPrinter renders an Instruction back to the textual form its
// InstructionDescriptor.AsmString describes, substituting every '$name'
// placeholder with that operand's printed value.
type PrettyPrinter struct {
	descriptor isa.ISADescriptor
}

// NewPrettyPrinter returns a PrettyPrinter formatting instructions against 'd'.
func NewPrettyPrinter(d isa.ISADescriptor) PrettyPrinter {
	return PrettyPrinter{descriptor: d}
}

var placeholder = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*`)

// Format substitutes every '$name' token in the instruction's AsmString with
// the matching operand's printed value, and returns the resulting text.
func (pp PrettyPrinter) Format(inst Instruction) (string, error) {
	descriptor, ok := pp.descriptor.FindInstruction(inst.Mnemonic)
	if !ok {
		return "", fmt.Errorf("instruction: unknown mnemonic %q", inst.Mnemonic)
	}

	var missing error
	out := placeholder.ReplaceAllStringFunc(descriptor.AsmString, func(token string) string {
		name := token[1:]
		op, found := inst.Operand(name)
		if !found {
			missing = fmt.Errorf("instruction: %q has no operand named %q", inst.Mnemonic, name)
			return token
		}
		return formatOperand(op)
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

// formatOperand prints an operand's resolved Value when its payload type
// supplied one, falling back to the raw chunk-extracted integer otherwise.
func formatOperand(op OperandValue) string {
	if op.Value != nil {
		return fmt.Sprintf("%v", op.Value)
	}
	return fmt.Sprintf("%d", op.Raw)
}
