package vaultadapter

import (
	"testing"
)

func TestWriteReadBinary_RoundTrip(t *testing.T) {
	a, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.WriteBinary("notes/a.md", []byte("hello")); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	data, err := a.ReadBinary("notes/a.md")
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want %q", data, "hello")
	}
}

func TestListFiles_ExcludesReservedAndIgnored(t *testing.T) {
	root := t.TempDir()
	a, err := New(root, []string{"*.tmp"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mustWrite(t, a, "notes/a.md", "a")
	mustWrite(t, a, "scratch.tmp", "x")
	if err := a.WriteBinary(".obsidian-r2-sync/manifest.json", []byte("{}")); err == nil {
		t.Fatal("expected write under reserved prefix to be rejected")
	}

	files, err := a.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	seen := map[string]bool{}
	for _, f := range files {
		seen[f.Path] = true
	}
	if !seen["notes/a.md"] {
		t.Fatal("expected notes/a.md to be listed")
	}
	if seen["scratch.tmp"] {
		t.Fatal("expected scratch.tmp to be excluded")
	}
}

func TestDelete_AbsentPathIsNotAnError(t *testing.T) {
	a, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Delete("never/existed.md"); err != nil {
		t.Fatalf("expected no error deleting absent path, got %v", err)
	}
}

func TestHash_IsStableForSameContent(t *testing.T) {
	a, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mustWrite(t, a, "a.md", "same content")
	mustWrite(t, a, "b.md", "same content")

	h1, err := a.Hash("a.md")
	if err != nil {
		t.Fatalf("Hash a.md: %v", err)
	}
	h2, err := a.Hash("b.md")
	if err != nil {
		t.Fatalf("Hash b.md: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hashes for identical content, got %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64-char hex hash, got %d chars", len(h1))
	}
}

func mustWrite(t *testing.T, a *Adapter, path, text string) {
	t.Helper()
	if err := a.WriteText(path, text); err != nil {
		t.Fatalf("WriteText(%s): %v", path, err)
	}
}
