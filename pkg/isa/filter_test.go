package isa_test

import (
	"testing"

	"isagen.dev/isagen/pkg/isa"
	"isagen.dev/isagen/pkg/tablegen"
)

func strPtr(s string) *string { return &s }

// bitVecAuto builds a run of FieldVarRef elements ('Name', auto-numbered 0, 1, 2, ...
// in declaration order) the way resolveInst assigns indices to bare references.
func bitVecAuto(name string, count int) []tablegen.BitVecElem {
	elems := make([]tablegen.BitVecElem, count)
	for i := range elems {
		elems[i] = tablegen.BitVecElem{Kind: tablegen.FieldVarRefElem, Name: name}
	}
	return elems
}

func bitVecFixed(bits ...int) []tablegen.BitVecElem {
	elems := make([]tablegen.BitVecElem, len(bits))
	for i, b := range bits {
		if b == 0 {
			elems[i] = tablegen.BitVecElem{Kind: tablegen.ZeroElem}
		} else {
			elems[i] = tablegen.BitVecElem{Kind: tablegen.OneElem}
		}
	}
	return elems
}

func dagDecl(name string, args ...tablegen.DagArg) tablegen.NamedDecl {
	return tablegen.NamedDecl{
		Type: tablegen.DeclType{Kind: tablegen.DagType}, Name: name,
		Item: tablegen.DeclItem{Dag: &tablegen.DagItem{Operator: "ops", Args: args}},
	}
}

func movDef() tablegen.Def {
	var inst []tablegen.BitVecElem
	inst = append(inst, bitVecFixed(0, 0, 0, 0, 0, 0, 0, 1)...) // opcode byte, bits 0-7
	inst = append(inst, bitVecAuto("rD", 4)...)                 // bits 8-11, increasing index
	inst = append(inst, bitVecAuto("imm", 4)...)                // bits 12-15, increasing index

	return tablegen.Def{
		Name: "MOV",
		Decls: []tablegen.NamedDecl{
			{Type: tablegen.DeclType{Kind: tablegen.BitsType, BitWidth: 16}, Name: "Inst",
				Item: tablegen.DeclItem{BitVector: inst}},
			dagDecl("OutOperandList", tablegen.DagArg{Value: tablegen.DeclItem{Reference: strPtr("GPR")}, BoundName: "rD"}),
			dagDecl("InOperandList", tablegen.DagArg{Value: tablegen.DeclItem{Reference: strPtr("i4imm")}, BoundName: "imm"}),
			{Type: tablegen.DeclType{Kind: tablegen.StringType}, Name: "AsmString",
				Item: tablegen.DeclItem{Str: strPtr("mov $rD, $imm")}},
		},
	}
}

func toyISA() isa.ISA {
	return isa.ISA{
		Name:              "filtertest16",
		InsnWidthBits:     16,
		FilterInstruction: func(d tablegen.Def) bool { _, ok := d.Decl("Inst"); return ok },
		OperandPayloadTypes: map[string]isa.OperandPayloadType{
			"GPR":   {TargetType: "uint8"},
			"i4imm": {TargetType: "uint8"},
		},
	}
}

func TestFilterBuildMov(t *testing.T) {
	records := tablegen.Records{Defs: []tablegen.Def{movDef()}}
	descriptor, err := isa.NewFilter(toyISA()).Build(records)
	if err != nil {
		t.Fatalf("Build returned an error: %v", err)
	}
	if len(descriptor.Errors) != 0 {
		t.Fatalf("expected no descriptor errors, got %+v", descriptor.Errors)
	}
	if len(descriptor.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(descriptor.Instructions))
	}

	mov := descriptor.Instructions[0]
	if mov.Mnemonic != "MOV" {
		t.Fatalf("expected mnemonic MOV, got %s", mov.Mnemonic)
	}
	if mov.AsmString != "mov $rD, $imm" {
		t.Fatalf("unexpected AsmString %q", mov.AsmString)
	}

	if len(mov.OutputOps) != 1 || mov.OutputOps[0].Name != "rD" {
		t.Fatalf("expected a single output operand 'rD', got %+v", mov.OutputOps)
	}
	wantRD := []isa.OperandChunk{{BitInInstruction: 8, BitInOperand: 0, Length: 4}}
	if got := mov.OutputOps[0].Chunks; !chunksEqual(got, wantRD) {
		t.Fatalf("rD chunks = %+v, want %+v", got, wantRD)
	}

	if len(mov.InputOps) != 1 || mov.InputOps[0].Name != "imm" {
		t.Fatalf("expected a single input operand 'imm', got %+v", mov.InputOps)
	}
	wantImm := []isa.OperandChunk{{BitInInstruction: 12, BitInOperand: 0, Length: 4}}
	if got := mov.InputOps[0].Chunks; !chunksEqual(got, wantImm) {
		t.Fatalf("imm chunks = %+v, want %+v", got, wantImm)
	}

	ops := mov.Operands()
	if len(ops) != 2 || ops[0].Name != "rD" || ops[1].Name != "imm" {
		t.Fatalf("expected canonical order [rD, imm], got %+v", ops)
	}
}

func TestFilterBuildReportsUnmappedOperand(t *testing.T) {
	def := movDef()
	// Drop the InOperandList entry for 'imm' entirely: its chunks now belong to
	// no declared operand, so the filter should flag a descriptor error rather
	// than silently drop the instruction.
	var kept []tablegen.NamedDecl
	for _, d := range def.Decls {
		if d.Name == "InOperandList" {
			continue
		}
		kept = append(kept, d)
	}
	def.Decls = kept

	records := tablegen.Records{Defs: []tablegen.Def{def}}
	descriptor, err := isa.NewFilter(toyISA()).Build(records)
	if err != nil {
		t.Fatalf("Build returned an error: %v", err)
	}
	if len(descriptor.Instructions) != 1 {
		t.Fatalf("expected the instruction to still be emitted, got %d", len(descriptor.Instructions))
	}
	if len(descriptor.Instructions[0].InputOps) != 0 {
		t.Fatalf("expected no input operands once InOperandList is dropped, got %+v", descriptor.Instructions[0].InputOps)
	}
	if len(descriptor.Errors) == 0 {
		t.Fatalf("expected a descriptor error for the now-undeclared 'imm' bit-vector field")
	}
}

func chunksEqual(a, b []isa.OperandChunk) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
