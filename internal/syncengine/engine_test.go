package syncengine

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/openmined/syftbox/internal/clientconfig"
	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/objectstore"
	"github.com/openmined/syftbox/internal/server/vaultservice"
	"github.com/openmined/syftbox/internal/vaultadapter"
)

// memoryRemote adapts vaultservice.Service (backed by an in-memory object
// store) to the RemoteClient interface, so the engine can be exercised
// end to end without a real HTTP server. The presigned "URLs" are just the
// memory store's own keys, resolved directly instead of over the wire.
type memoryRemote struct {
	svc   *vaultservice.Service
	store objectstore.Store
}

func newMemoryRemote() *memoryRemote {
	store := objectstore.NewMemoryStore()
	return &memoryRemote{svc: vaultservice.New(store, time.Minute), store: store}
}

func (r *memoryRemote) GetManifest(ctx context.Context) (*manifest.SyncManifest, *string, error) {
	return r.svc.GetManifest(ctx)
}

func (r *memoryRemote) PutManifest(ctx context.Context, m *manifest.SyncManifest, ifMatch string) (string, error) {
	return r.svc.PutManifest(ctx, m, ifMatch)
}

func (r *memoryRemote) RequestUploadURL(ctx context.Context, path, hash string) (string, time.Time, error) {
	return r.svc.IssueUploadURL(ctx, path, hash)
}

func (r *memoryRemote) RequestDownloadURL(ctx context.Context, path string) (string, time.Time, error) {
	return r.svc.IssueDownloadURL(ctx, path)
}

func (r *memoryRemote) DeleteFiles(ctx context.Context, paths []string) ([]string, error) {
	return r.svc.DeleteFiles(ctx, paths)
}

func (r *memoryRemote) UploadPresigned(ctx context.Context, url string, data []byte) error {
	key := strings.TrimPrefix(url, "memstore://")
	_, err := r.store.Put(ctx, key, newByteReader(data), int64(len(data)))
	return err
}

func (r *memoryRemote) DownloadPresigned(ctx context.Context, url string) ([]byte, error) {
	key := strings.TrimPrefix(url, "memstore://")
	obj, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}

func newByteReader(b []byte) *strings.Reader {
	return strings.NewReader(string(b))
}

func newTestEngine(t *testing.T, vaultDir string) (*Engine, *memoryRemote) {
	t.Helper()
	adapter, err := vaultadapter.New(vaultDir, nil)
	if err != nil {
		t.Fatalf("vaultadapter.New: %v", err)
	}
	remote := newMemoryRemote()
	cfg := &clientconfig.Config{
		VaultDir:         vaultDir,
		Endpoint:         "https://vault.example.com",
		DeviceID:         "device-a",
		ConflictStrategy: clientconfig.ConflictThreeWay,
	}
	e := New(context.Background(), adapter, remote, cfg, nil)
	t.Cleanup(e.Close)
	return e, remote
}

func TestSync_FreshUploadThenFreshDownload(t *testing.T) {
	dirA := t.TempDir()
	engineA, remote := newTestEngine(t, dirA)

	if err := writeFile(dirA, "notes/a.md", "hello from a"); err != nil {
		t.Fatal(err)
	}

	if err := engineA.Sync(context.Background(), false); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	dirB := t.TempDir()
	adapterB, err := vaultadapter.New(dirB, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfgB := &clientconfig.Config{VaultDir: dirB, Endpoint: "https://vault.example.com", DeviceID: "device-b", ConflictStrategy: clientconfig.ConflictThreeWay}
	engineB := New(context.Background(), adapterB, remote, cfgB, nil)
	defer engineB.Close()

	if err := engineB.Sync(context.Background(), false); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	data, err := adapterB.ReadBinary("notes/a.md")
	if err != nil {
		t.Fatalf("expected notes/a.md to be downloaded: %v", err)
	}
	if string(data) != "hello from a" {
		t.Fatalf("got %q", data)
	}
}

func TestSync_NonConflictingConcurrentEditsBothSurvive(t *testing.T) {
	dirA := t.TempDir()
	engineA, remote := newTestEngine(t, dirA)
	if err := writeFile(dirA, "a.md", "a1"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(dirA, "b.md", "b1"); err != nil {
		t.Fatal(err)
	}
	if err := engineA.Sync(context.Background(), false); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	dirB := t.TempDir()
	adapterB, _ := vaultadapter.New(dirB, nil)
	cfgB := &clientconfig.Config{VaultDir: dirB, Endpoint: "https://vault.example.com", DeviceID: "device-b", ConflictStrategy: clientconfig.ConflictThreeWay}
	engineB := New(context.Background(), adapterB, remote, cfgB, nil)
	defer engineB.Close()
	if err := engineB.Sync(context.Background(), false); err != nil {
		t.Fatalf("device b pull: %v", err)
	}

	if err := writeFile(dirA, "a.md", "a2 from device a"); err != nil {
		t.Fatal(err)
	}
	if err := engineA.Sync(context.Background(), false); err != nil {
		t.Fatalf("device a edit sync: %v", err)
	}

	if err := writeFile(dirB, "b.md", "b2 from device b"); err != nil {
		t.Fatal(err)
	}
	if err := engineB.Sync(context.Background(), false); err != nil {
		t.Fatalf("device b edit sync: %v", err)
	}

	dataA, err := adapterB.ReadBinary("a.md")
	if err != nil || string(dataA) != "a2 from device a" {
		t.Fatalf("device b should have pulled device a's edit, got %q err=%v", dataA, err)
	}

	if err := engineA.Sync(context.Background(), false); err != nil {
		t.Fatalf("device a final sync: %v", err)
	}
	dataB, err := vaultRead(dirA, "b.md")
	if err != nil || dataB != "b2 from device b" {
		t.Fatalf("device a should have pulled device b's edit, got %q err=%v", dataB, err)
	}
}

func TestSync_ConcurrentEditConflictMergesCleanly(t *testing.T) {
	dirA := t.TempDir()
	engineA, remote := newTestEngine(t, dirA)
	if err := writeFile(dirA, "shared.md", "line1\nline2\nline3\n"); err != nil {
		t.Fatal(err)
	}
	if err := engineA.Sync(context.Background(), false); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	dirB := t.TempDir()
	adapterB, _ := vaultadapter.New(dirB, nil)
	cfgB := &clientconfig.Config{VaultDir: dirB, Endpoint: "https://vault.example.com", DeviceID: "device-b", ConflictStrategy: clientconfig.ConflictThreeWay}
	engineB := New(context.Background(), adapterB, remote, cfgB, nil)
	defer engineB.Close()
	if err := engineB.Sync(context.Background(), false); err != nil {
		t.Fatalf("device b pull: %v", err)
	}

	if err := writeFile(dirA, "shared.md", "LOCAL\nline2\nline3\n"); err != nil {
		t.Fatal(err)
	}
	if err := engineA.Sync(context.Background(), false); err != nil {
		t.Fatalf("device a edit sync: %v", err)
	}

	if err := writeFile(dirB, "shared.md", "line1\nline2\nREMOTE\n"); err != nil {
		t.Fatal(err)
	}
	if err := engineB.Sync(context.Background(), false); err != nil {
		t.Fatalf("device b merge sync: %v", err)
	}

	merged, err := vaultRead(dirB, "shared.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(merged, "LOCAL") {
		t.Fatalf("expected merged text to contain device a's edit, got %q", merged)
	}
}

func TestSync_OverlappingCallIsRejected(t *testing.T) {
	dir := t.TempDir()
	engine, _ := newTestEngine(t, dir)

	engine.mu.Lock()
	engine.isSyncing = true
	engine.mu.Unlock()

	err := engine.Sync(context.Background(), false)
	if err != ErrAlreadySyncing {
		t.Fatalf("got %v, want ErrAlreadySyncing", err)
	}
}

func writeFile(dir, path, content string) error {
	a, err := vaultadapter.New(dir, nil)
	if err != nil {
		return err
	}
	return a.WriteText(path, content)
}

func vaultRead(dir, path string) (string, error) {
	a, err := vaultadapter.New(dir, nil)
	if err != nil {
		return "", err
	}
	return a.ReadText(path)
}
