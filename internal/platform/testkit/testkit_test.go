package testkit

import (
	"path/filepath"
	"testing"
)

func TestMustPanicAndNotPanic(t *testing.T) {
	MustPanic(t, func() { panic("boom") })
	MustNotPanic(t, func() {})
}

func TestWriteFileAndReadLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "rows.txt")
	WriteFile(t, p, "a|b\nc|d\n")

	lines := ReadLines(t, p)
	if len(lines) != 2 || lines[0] != "a|b" || lines[1] != "c|d" {
		t.Fatalf("ReadLines = %v", lines)
	}
}

func TestReadLinesEmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.txt")
	WriteFile(t, p, "")
	if lines := ReadLines(t, p); lines != nil {
		t.Fatalf("empty file should yield nil, got %v", lines)
	}
}

func TestMustContain(t *testing.T) {
	MustContain(t, "partition complete", "complete")
}
