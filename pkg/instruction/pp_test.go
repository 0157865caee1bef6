package instruction_test

import (
	"testing"

	"isagen.dev/isagen/pkg/instruction"
)

func TestFormatNoOperandInstruction(t *testing.T) {
	pp := instruction.NewPrettyPrinter(toyDescriptor())

	got, err := pp.Format(instruction.Instruction{Mnemonic: "ADD"})
	if err != nil {
		t.Fatalf("Format returned an error: %v", err)
	}
	if got != "add" {
		t.Fatalf("Format(ADD) = %q, want %q", got, "add")
	}
}

func TestFormatSubstitutesOperands(t *testing.T) {
	pp := instruction.NewPrettyPrinter(toyDescriptor())

	inst := instruction.Instruction{
		Mnemonic: "MOV",
		Operands: []instruction.OperandValue{
			{Name: "rD", Type: "GPR", Value: "R1"},
			{Name: "imm", Type: "i8imm", Raw: 42},
		},
	}
	got, err := pp.Format(inst)
	if err != nil {
		t.Fatalf("Format returned an error: %v", err)
	}
	if want := "mov R1, 42"; got != want {
		t.Fatalf("Format(MOV) = %q, want %q", got, want)
	}
}

func TestFormatUnknownMnemonic(t *testing.T) {
	pp := instruction.NewPrettyPrinter(toyDescriptor())
	if _, err := pp.Format(instruction.Instruction{Mnemonic: "NOPE"}); err == nil {
		t.Fatalf("expected an error for an unknown mnemonic")
	}
}

func TestFormatMissingOperand(t *testing.T) {
	pp := instruction.NewPrettyPrinter(toyDescriptor())
	if _, err := pp.Format(instruction.Instruction{Mnemonic: "MOV"}); err == nil {
		t.Fatalf("expected an error when a referenced operand is missing")
	}
}
