// Package syncengine drives one sync cycle end to end: build the local
// manifest, fetch the remote one, diff both against the last agreed-upon
// base, resolve conflicts, execute transfers, and commit the result back to
// the manifest service under optimistic concurrency.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openmined/syftbox/internal/clientconfig"
	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/queue"
	"github.com/openmined/syftbox/internal/vaultsdk"
)

// maxManifestRetries bounds the number of attempts (the first included) a
// cycle makes at fetching, diffing and committing the manifest when it keeps
// losing the optimistic-concurrency race on the commit.
const maxManifestRetries = 3

// ErrAlreadySyncing is returned by Sync when another cycle is already
// running against the same Engine; overlapping calls are skipped, not
// queued.
var ErrAlreadySyncing = errors.New("syncengine: a sync is already running")

// Engine drives one vault's sync cycle end to end.
type Engine struct {
	adapter VaultAdapter
	client  RemoteClient
	cfg     *clientconfig.Config
	prompt  Prompter
	log     *slog.Logger

	transfers *queue.TransferQueue
	baseCache *baseContentCache
	status    *statusTracker

	mu        sync.Mutex
	isSyncing bool
}

// New builds an Engine. prompt may be nil, in which case a dismissed-prompt
// default (AutoKeepLocalPrompter) is used for the "ask" strategy.
func New(ctx context.Context, adapter VaultAdapter, client RemoteClient, cfg *clientconfig.Config, prompt Prompter) *Engine {
	if prompt == nil {
		prompt = AutoKeepLocalPrompter{}
	}
	return &Engine{
		adapter:   adapter,
		client:    client,
		cfg:       cfg,
		prompt:    prompt,
		log:       slog.Default().With("component", "syncengine", "device", cfg.DeviceID),
		transfers: queue.NewTransferQueue(ctx, queue.MaxConcurrentTransfers),
		baseCache: newBaseContentCache(),
		status:    newStatusTracker(),
	}
}

// Close shuts down the engine's transfer queue. Call once the engine is no
// longer needed (process shutdown, or a daemon reconfiguring the vault).
func (e *Engine) Close() {
	e.transfers.Close()
}

// Status reports the engine's current/most recent cycle state.
func (e *Engine) Status() Status {
	return e.status.Get()
}

// Sync runs one full cycle. forceFullSync discards any persisted base
// manifest, treating every path as if it were being seen for the first time
// (used after a vault move or a corrupted local-state file).
func (e *Engine) Sync(ctx context.Context, forceFullSync bool) error {
	e.mu.Lock()
	if e.isSyncing {
		e.mu.Unlock()
		return ErrAlreadySyncing
	}
	e.isSyncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.isSyncing = false
		e.mu.Unlock()
	}()

	// Cross-process exclusion is the caller's job: whoever holds the engine
	// for the length of a session (one CLI invocation, or a long-running
	// watch loop) acquires the vault's flock once for that whole session,
	// not once per cycle — acquiring/releasing here would let a second
	// process slip in between two cycles of the same watch loop.
	e.status.setSyncing()

	n, err := e.runCycle(ctx, forceFullSync)
	if err != nil {
		e.status.setFailed(err)
		e.log.Error("sync cycle failed", "error", err)
		return err
	}

	e.status.setCompleted(n)
	return nil
}

func (e *Engine) runCycle(ctx context.Context, forceFullSync bool) (int, error) {
	st, err := loadLocalState(e.cfg.VaultDir)
	if err != nil {
		return 0, fmt.Errorf("load local state: %w", err)
	}
	if forceFullSync {
		st = &localState{}
	}

	for attempt := 1; attempt <= maxManifestRetries; attempt++ {
		local, err := e.buildLocalManifest()
		if err != nil {
			return 0, fmt.Errorf("build local manifest: %w", err)
		}

		remote, etag, err := e.client.GetManifest(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetch remote manifest: %w", err)
		}
		if remote == nil {
			remote = manifest.NewManifest()
		}

		base := st.BaseManifest

		diff := manifest.Diff(local, remote, base)

		uploaded, downloaded, err := e.executeTransfers(ctx, diff)
		if err != nil {
			return 0, err
		}

		resolved, unresolvedConflicts, err := e.executeConflicts(ctx, diff.Conflicts)
		if err != nil {
			return 0, err
		}
		if unresolvedConflicts > 0 {
			e.status.setAskConflictPending(unresolvedConflicts)
		}

		deletedRemote, err := e.deleteRemote(ctx, diff.ToDeleteRemote)
		if err != nil {
			return 0, err
		}
		e.deleteLocal(diff.ToDeleteLocal)

		next := manifest.ApplyDiffToManifest(remote, uploaded, downloaded, resolved, deletedRemote, diff.ToDeleteLocal)
		next.Touch(e.cfg.DeviceID, time.Now())

		ifMatch := ""
		if etag != nil {
			ifMatch = *etag
		}

		newETag, err := e.client.PutManifest(ctx, next, ifMatch)
		if err != nil {
			if errors.Is(err, vaultsdk.ErrPreconditionFailed) {
				e.log.Warn("manifest commit lost the etag race, retrying", "attempt", attempt)
				continue
			}
			return 0, fmt.Errorf("commit manifest: %w", err)
		}

		if err := saveLocalState(e.cfg.VaultDir, &localState{BaseManifest: next, LastETag: &newETag}); err != nil {
			return 0, fmt.Errorf("save local state: %w", err)
		}

		n := len(uploaded) + len(downloaded) + len(resolved) + len(deletedRemote) + len(diff.ToDeleteLocal)
		return n, nil
	}

	return 0, fmt.Errorf("commit manifest: exhausted %d attempts against a moving etag", maxManifestRetries)
}

// buildLocalManifest walks the vault and hashes every tracked file into a
// fresh manifest.
func (e *Engine) buildLocalManifest() (*manifest.SyncManifest, error) {
	files, err := e.adapter.ListFiles()
	if err != nil {
		return nil, err
	}

	m := manifest.NewManifest()
	for _, f := range files {
		hash, err := e.adapter.Hash(f.Path)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", f.Path, err)
		}
		m.Files[f.Path] = manifest.FileEntry{
			Path:           f.Path,
			Hash:           hash,
			Mtime:          f.Mtime,
			Size:           f.Size,
			LastModifiedBy: e.cfg.DeviceID,
		}
	}
	return m, nil
}

// executeTransfers enqueues every upload/download onto the bounded transfer
// queue and waits for all of them, returning the entries that actually
// completed.
func (e *Engine) executeTransfers(ctx context.Context, diff *manifest.DiffResult) ([]manifest.FileEntry, []manifest.FileEntry, error) {
	type job struct {
		entry manifest.FileEntry
		fut   <-chan error
	}

	var uploadJobs, downloadJobs []job

	for _, entry := range diff.ToUpload {
		entry := entry
		fut := e.transfers.Enqueue(func(ctx context.Context) error {
			return e.uploadOne(ctx, entry)
		})
		uploadJobs = append(uploadJobs, job{entry: entry, fut: fut})
	}
	for _, entry := range diff.ToDownload {
		entry := entry
		fut := e.transfers.Enqueue(func(ctx context.Context) error {
			return e.downloadOne(ctx, entry)
		})
		downloadJobs = append(downloadJobs, job{entry: entry, fut: fut})
	}

	var uploaded, downloaded []manifest.FileEntry
	var firstErr error

	for _, j := range uploadJobs {
		if err := <-j.fut; err != nil {
			e.log.Error("upload failed", "path", j.entry.Path, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("upload %s: %w", j.entry.Path, err)
			}
			continue
		}
		uploaded = append(uploaded, j.entry)
	}
	for _, j := range downloadJobs {
		if err := <-j.fut; err != nil {
			e.log.Error("download failed", "path", j.entry.Path, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("download %s: %w", j.entry.Path, err)
			}
			continue
		}
		downloaded = append(downloaded, j.entry)
	}

	if firstErr != nil {
		return uploaded, downloaded, firstErr
	}

	return uploaded, downloaded, nil
}

func (e *Engine) uploadOne(ctx context.Context, entry manifest.FileEntry) error {
	data, err := e.adapter.ReadBinary(entry.Path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	url, _, err := e.client.RequestUploadURL(ctx, entry.Path, entry.Hash)
	if err != nil {
		return fmt.Errorf("request upload url: %w", err)
	}
	if err := e.client.UploadPresigned(ctx, url, data); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if isMergeable(entry.Path) {
		if text, err := e.adapter.ReadText(entry.Path); err == nil {
			e.baseCache.put(entry.Path, entry.Hash, text)
		}
	}
	return nil
}

func (e *Engine) downloadOne(ctx context.Context, entry manifest.FileEntry) error {
	url, _, err := e.client.RequestDownloadURL(ctx, entry.Path)
	if err != nil {
		return fmt.Errorf("request download url: %w", err)
	}
	data, err := e.client.DownloadPresigned(ctx, url)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if err := e.adapter.WriteBinary(entry.Path, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if isMergeable(entry.Path) {
		e.baseCache.put(entry.Path, entry.Hash, string(data))
	}
	return nil
}

// executeConflicts resolves every conflicting path per the configured
// strategy, returning the entries to fold into the next
// manifest and a count of conflicts the "ask" strategy left pending.
func (e *Engine) executeConflicts(ctx context.Context, conflicts []manifest.ConflictEntry) ([]manifest.FileEntry, int, error) {
	var resolved []manifest.FileEntry
	pending := 0

	for _, c := range conflicts {
		outcome, err := e.resolveConflict(ctx, c)
		if err != nil {
			e.log.Error("conflict resolution failed", "path", c.Path, "error", err)
			continue
		}
		if outcome.askDismissed {
			pending++
		}
		if outcome.entry.Path != "" {
			resolved = append(resolved, outcome.entry)
		}
		if len(outcome.uploadBytes) > 0 {
			if err := e.pushResolvedUpload(ctx, outcome.entry, outcome.uploadBytes); err != nil {
				e.log.Error("failed to push resolved conflict upstream", "path", c.Path, "error", err)
			}
		}
	}

	return resolved, pending, nil
}

func (e *Engine) pushResolvedUpload(ctx context.Context, entry manifest.FileEntry, data []byte) error {
	url, _, err := e.client.RequestUploadURL(ctx, entry.Path, entry.Hash)
	if err != nil {
		return err
	}
	return e.client.UploadPresigned(ctx, url, data)
}

// deleteRemote bulk-deletes the server's copies of locally-removed files,
// returning the subset the server actually removed.
func (e *Engine) deleteRemote(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	deleted, err := e.client.DeleteFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("delete remote files: %w", err)
	}
	return deleted, nil
}

// deleteLocal removes files the remote no longer has. Best-effort: a file
// already gone locally is not an error.
func (e *Engine) deleteLocal(paths []string) {
	for _, p := range paths {
		if err := e.adapter.Delete(p); err != nil {
			e.log.Error("failed to delete local file", "path", p, "error", err)
		}
	}
}
