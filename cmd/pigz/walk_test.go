package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestWalkFilesNonRecursiveSkipsDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	plain := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	files, skipped := walkFiles([]string{plain, sub}, false)
	if len(files) != 1 || files[0] != plain {
		t.Errorf("files = %v, want [%s]", files, plain)
	}
	if len(skipped) != 1 || skipped[0] != sub {
		t.Errorf("skipped = %v, want [%s]", skipped, sub)
	}
}

func TestWalkFilesRecursiveDescendsDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(sub, "b.txt")
	os.WriteFile(a, []byte("a"), 0o644)
	os.WriteFile(b, []byte("b"), 0o644)

	files, skipped := walkFiles([]string{dir}, true)
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
	sort.Strings(files)
	want := []string{a, b}
	sort.Strings(want)
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestWalkFilesPassesDashThrough(t *testing.T) {
	files, skipped := walkFiles([]string{"-"}, true)
	if len(files) != 1 || files[0] != "-" {
		t.Errorf("files = %v, want [-]", files)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
}

func TestWalkFilesMissingPathPassedThrough(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	files, _ := walkFiles([]string{missing}, false)
	if len(files) != 1 || files[0] != missing {
		t.Errorf("files = %v, want [%s] (let the opener report the error)", files, missing)
	}
}
