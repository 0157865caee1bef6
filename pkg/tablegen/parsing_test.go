package tablegen_test

import (
	"strings"
	"testing"

	"isagen.dev/isagen/pkg/tablegen"
)

const toyDump = `------- Classes -------
class Instruction<int size> {
	bits<32> Inst = ?;
	string AsmString = "";
}
------- Defs -------
def ADD {
	bits<32> Inst = { 0, 1, 1, 0, 0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0 };
	string AsmString = "add";
}
def MOV {
	bits<32> Inst = { 1, 0, 0, 0, rD, rD, rD, rD, 0,0,0,0,0,0,0,0, imm{15}, imm{14} };
	dag OutOperandList = (ops GPR:$rD);
	dag InOperandList = (ops i16imm:$imm);
	string AsmString = "mov $rD, $imm";
}
`

func TestParseClassesAndDefs(t *testing.T) {
	parser := tablegen.NewParser(strings.NewReader(toyDump))
	records, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}

	if len(records.Classes) != 1 || records.Classes[0].Name != "Instruction" {
		t.Fatalf("Classes = %+v, want one class named Instruction", records.Classes)
	}
	if len(records.Defs) != 2 {
		t.Fatalf("Defs = %+v, want 2 defs", records.Defs)
	}

	add, ok := records.FindDef("ADD")
	if !ok {
		t.Fatalf("expected a def named ADD")
	}
	inst, ok := add.Decl("Inst")
	if !ok || len(inst.Item.BitVector) != 32 {
		t.Fatalf("ADD.Inst = %+v, want a 32-element bit-vector", inst)
	}
	if inst.Item.BitVector[0].Kind != tablegen.ZeroElem || inst.Item.BitVector[1].Kind != tablegen.OneElem {
		t.Fatalf("ADD.Inst[0:2] = %+v, want {Zero, One}", inst.Item.BitVector[:2])
	}
}

func TestParseBareFieldVarRefElems(t *testing.T) {
	parser := tablegen.NewParser(strings.NewReader(toyDump))
	records, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}

	mov, ok := records.FindDef("MOV")
	if !ok {
		t.Fatalf("expected a def named MOV")
	}
	inst, _ := mov.Decl("Inst")
	for i := 4; i < 8; i++ {
		elem := inst.Item.BitVector[i]
		if elem.Kind != tablegen.FieldVarRefElem || elem.Name != "rD" {
			t.Fatalf("MOV.Inst[%d] = %+v, want a bare rD reference", i, elem)
		}
	}
}

func TestParseFieldBitElem(t *testing.T) {
	parser := tablegen.NewParser(strings.NewReader(toyDump))
	records, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}

	mov, _ := records.FindDef("MOV")
	inst, _ := mov.Decl("Inst")
	last := inst.Item.BitVector[len(inst.Item.BitVector)-1]
	if last.Kind != tablegen.FieldBitElem || last.Name != "imm" || last.Index != 14 {
		t.Fatalf("last Inst elem = %+v, want imm{14}", last)
	}
}

func TestParseDagOperandList(t *testing.T) {
	parser := tablegen.NewParser(strings.NewReader(toyDump))
	records, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}

	mov, _ := records.FindDef("MOV")
	outOps, ok := mov.Decl("OutOperandList")
	if !ok || outOps.Item.Dag == nil {
		t.Fatalf("expected MOV.OutOperandList to be a dag")
	}
	if len(outOps.Item.Dag.Args) != 1 || outOps.Item.Dag.Args[0].BoundName != "rD" {
		t.Fatalf("OutOperandList.Args = %+v, want one arg bound to $rD", outOps.Item.Dag.Args)
	}
}

func TestParseDagColonBoundNameSyntax(t *testing.T) {
	parser := tablegen.NewParser(strings.NewReader(toyDump))
	records, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}

	mov, _ := records.FindDef("MOV")
	outOps, _ := mov.Decl("OutOperandList")
	arg := outOps.Item.Dag.Args[0]
	if arg.Value.Reference == nil || *arg.Value.Reference != "GPR" || arg.BoundName != "rD" {
		t.Fatalf("OutOperandList.Args[0] = %+v, want GPR:$rD", arg)
	}

	inOps, _ := mov.Decl("InOperandList")
	arg = inOps.Item.Dag.Args[0]
	if arg.Value.Reference == nil || *arg.Value.Reference != "i16imm" || arg.BoundName != "imm" {
		t.Fatalf("InOperandList.Args[0] = %+v, want i16imm:$imm", arg)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	parser := tablegen.NewParser(strings.NewReader("not a tablegen dump at all"))
	if _, err := parser.Parse(); err == nil {
		t.Fatalf("expected a syntax error for malformed input")
	} else if _, ok := err.(*tablegen.SyntaxError); !ok {
		t.Fatalf("error = %T, want *tablegen.SyntaxError", err)
	}
}

func TestParseEmptyDumpStillHasBothSections(t *testing.T) {
	parser := tablegen.NewParser(strings.NewReader("------- Classes -------\n------- Defs -------\n"))
	records, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}
	if len(records.Classes) != 0 || len(records.Defs) != 0 {
		t.Fatalf("records = %+v, want no classes or defs", records)
	}
}
