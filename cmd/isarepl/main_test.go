package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const toy32Dump = `------- Classes -------
------- Defs -------
def ADD {
bits<32> Inst = { 0,1,1,0, 0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0 };
string AsmString = "add";
}
def MOV {
bits<32> Inst = { 1,0,0,0, rD,rD,rD,rD, 0,0,0,0,0,0,0,0, imm,imm,imm,imm,imm,imm,imm,imm,imm,imm,imm,imm,imm,imm,imm,imm };
dag OutOperandList = (ops GPR:$rD);
dag InOperandList = (ops i16imm:$imm);
string AsmString = "mov $rD, $imm";
}
`

func loadTestSession(t *testing.T) *session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toy32.tdjson")
	if err := os.WriteFile(path, []byte(toy32Dump), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	sess, err := loadSession("toy32", path)
	if err != nil {
		t.Fatalf("loadSession returned an error: %v", err)
	}
	return sess
}

func TestDecodeLoopPrintsMatch(t *testing.T) {
	sess := loadTestSession(t)
	var out bytes.Buffer

	decodeLoop(strings.NewReader("60000000\nexit\n"), &out, sess)

	if got := out.String(); !strings.Contains(got, "add") {
		t.Fatalf("decodeLoop output = %q, want it to contain %q", got, "add")
	}
}

func TestDecodeLoopReportsNoMatch(t *testing.T) {
	sess := loadTestSession(t)
	var out bytes.Buffer

	decodeLoop(strings.NewReader("FFFFFFFF\nexit\n"), &out, sess)

	if got := out.String(); !strings.Contains(got, "no match") {
		t.Fatalf("decodeLoop output = %q, want it to contain %q", got, "no match")
	}
}

func TestDecodeLoopRejectsMalformedHex(t *testing.T) {
	sess := loadTestSession(t)
	var out bytes.Buffer

	decodeLoop(strings.NewReader("zz\nexit\n"), &out, sess)

	if got := out.String(); !strings.Contains(got, "error") {
		t.Fatalf("decodeLoop output = %q, want it to contain an error", got)
	}
}

func TestEncodeLoopAssemblesInstruction(t *testing.T) {
	sess := loadTestSession(t)
	var out bytes.Buffer

	encodeLoop(strings.NewReader("MOV rD=R2 imm=0x1234\nexit\n"), &out, sess)

	if got := out.String(); !strings.Contains(got, "82001234") {
		t.Fatalf("encodeLoop output = %q, want it to contain %q", got, "82001234")
	}
}

func TestEncodeLoopRejectsUnknownMnemonic(t *testing.T) {
	sess := loadTestSession(t)
	var out bytes.Buffer

	encodeLoop(strings.NewReader("NOPE\nexit\n"), &out, sess)

	if got := out.String(); !strings.Contains(got, "error") {
		t.Fatalf("encodeLoop output = %q, want it to contain an error", got)
	}
}
