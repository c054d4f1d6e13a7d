package vaultservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/objectstore"
)

func TestGetManifest_EmptyWhenAbsent(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)

	m, etag, err := svc.GetManifest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if etag != nil {
		t.Fatalf("expected nil etag, got %v", *etag)
	}
	if len(m.Files) != 0 {
		t.Fatalf("expected empty manifest, got %d files", len(m.Files))
	}
}

func TestPutManifest_FirstWriteUnconditional(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)

	m := manifest.NewManifest()
	m.Files["a.md"] = manifest.FileEntry{Path: "a.md", Hash: sampleHash('a')}

	etag, err := svc.PutManifest(context.Background(), m, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if etag == "" {
		t.Fatal("expected non-empty etag")
	}
}

func TestPutManifest_SecondWriteWithoutIfMatchRequiresPrecondition(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)
	m := manifest.NewManifest()

	if _, err := svc.PutManifest(context.Background(), m, ""); err != nil {
		t.Fatalf("unexpected error on first write: %v", err)
	}

	_, err := svc.PutManifest(context.Background(), m, "")
	if !errors.Is(err, objectstore.ErrPreconditionRequired) {
		t.Fatalf("got %v, want ErrPreconditionRequired", err)
	}
}

func TestPutManifest_StaleIfMatchFails(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)
	m := manifest.NewManifest()

	if _, err := svc.PutManifest(context.Background(), m, ""); err != nil {
		t.Fatalf("unexpected error on first write: %v", err)
	}

	_, err := svc.PutManifest(context.Background(), m, "stale")
	if !errors.Is(err, objectstore.ErrPreconditionFailed) {
		t.Fatalf("got %v, want ErrPreconditionFailed", err)
	}
}

func TestPutManifest_RejectsInvalidEntry(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)
	m := manifest.NewManifest()
	m.Files["../escape"] = manifest.FileEntry{Path: "../escape", Hash: sampleHash('a')}

	if _, err := svc.PutManifest(context.Background(), m, ""); err == nil {
		t.Fatal("expected validation error for traversal path")
	}
}

func TestIssueUploadURL_RejectsTraversal(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)

	_, _, err := svc.IssueUploadURL(context.Background(), "../secrets", sampleHash('a'))
	if !errors.Is(err, manifest.ErrPathTraversal) {
		t.Fatalf("got %v, want ErrPathTraversal", err)
	}
}

func TestIssueUploadURL_RejectsReservedPath(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)

	_, _, err := svc.IssueUploadURL(context.Background(), manifest.ReservedPrefix+"/manifest.json", sampleHash('a'))
	if !errors.Is(err, manifest.ErrReservedPath) {
		t.Fatalf("got %v, want ErrReservedPath", err)
	}
}

func TestIssueUploadURL_AcceptsValidPath(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)

	url, expiresAt, err := svc.IssueUploadURL(context.Background(), "notes/2024.md", sampleHash('a'))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url == "" {
		t.Fatal("expected non-empty url")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expected expiresAt in the future")
	}
}

func TestDeleteFiles_RoundTrip(t *testing.T) {
	store := objectstore.NewMemoryStore()
	svc := New(store, time.Minute)

	if _, err := store.Put(context.Background(), fileKey("a.md"), strings.NewReader("hi"), 2); err != nil {
		t.Fatalf("seed put failed: %v", err)
	}

	deleted, err := svc.DeleteFiles(context.Background(), []string{"a.md", "b.md"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "a.md" {
		t.Fatalf("expected only a.md deleted, got %v", deleted)
	}
}

func TestDeleteFiles_RejectsInvalidPath(t *testing.T) {
	svc := New(objectstore.NewMemoryStore(), time.Minute)

	_, err := svc.DeleteFiles(context.Background(), []string{"ok.md", "/abs"})
	if !errors.Is(err, manifest.ErrAbsolutePath) {
		t.Fatalf("got %v, want ErrAbsolutePath", err)
	}
}

func sampleHash(fill byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = fill
	}
	return string(b)
}
