package main

import (
	"os"
	"path/filepath"
	"testing"
)

const toyDump = `------- Classes -------
------- Defs -------
def ADD {
bits<32> Inst = { 0,1,1,0, 0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0 };
string AsmString = "add";
}
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp fixture: %v", err)
	}
	return path
}

func TestHandlerReportsSuccessAndWritesDepfile(t *testing.T) {
	input := writeTemp(t, "toy.tdjson", toyDump)
	depfile := filepath.Join(t.TempDir(), "toy.d")

	status := Handler([]string{input, "toy32"}, map[string]string{"depfile": depfile})
	if status != 0 {
		t.Fatalf("Handler returned exit status %d, want 0", status)
	}

	contents, err := os.ReadFile(depfile)
	if err != nil {
		t.Fatalf("depfile was not written: %v", err)
	}
	want := depfile + ": " + input + "\n"
	if string(contents) != want {
		t.Fatalf("depfile contents = %q, want %q", contents, want)
	}
}

func TestHandlerUnknownISA(t *testing.T) {
	input := writeTemp(t, "toy.tdjson", toyDump)
	status := Handler([]string{input, "does-not-exist"}, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a non-zero exit status for an unknown ISA")
	}
}

func TestHandlerMissingInputFile(t *testing.T) {
	status := Handler([]string{filepath.Join(t.TempDir(), "missing.tdjson"), "toy32"}, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a non-zero exit status for a missing input file")
	}
}
