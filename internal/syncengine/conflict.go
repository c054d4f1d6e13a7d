package syncengine

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openmined/syftbox/internal/clientconfig"
	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/merge"
)

// baseCacheCapacity bounds the in-process base-content cache. A vault with
// thousands of markdown notes churning through conflicts in one cycle
// shouldn't hold every base version in memory at once.
const baseCacheCapacity = 512

// baseContentCache is a best-effort, in-process cache of base-version file
// contents keyed by (path, hash). The persisted local state only keeps base
// *hashes*, so a three-way merge can only use base text this Engine itself
// uploaded or downloaded for a markdown file earlier in its lifetime (in any
// cycle); there is no guarantee of a hit, and when it isn't found ThreeWay
// gets an empty base and marks the whole file as one conflict.
type baseContentCache struct {
	lru *lru.Cache[string, string]
}

func newBaseContentCache() *baseContentCache {
	c, err := lru.New[string, string](baseCacheCapacity)
	if err != nil {
		// only errors on a non-positive size, which baseCacheCapacity never is.
		panic(err)
	}
	return &baseContentCache{lru: c}
}

func (c *baseContentCache) put(path, hash, text string) {
	if hash == "" {
		return
	}
	c.lru.Add(path+"@"+hash, text)
}

func (c *baseContentCache) get(path, hash string) (string, bool) {
	return c.lru.Get(path + "@" + hash)
}

// isMergeable reports whether a conflicting path is eligible for three-way
// text merging. Only markdown notes get merged; anything else always falls
// back to keep-remote.
func isMergeable(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".md")
}

// conflictOutcome is what a resolved conflict contributes back to the next
// manifest and, when it rewrote local text, the content that must be
// uploaded afterward.
type conflictOutcome struct {
	entry       manifest.FileEntry
	uploadBytes []byte
	wroteLocal  bool
	wroteRemote bool

	// stillUnclean marks a three-way merge that left conflict markers in the
	// written text. This is a normal automatic outcome, not a pending
	// decision, so it never feeds the "ask" amber status.
	stillUnclean bool

	// askDismissed marks a resolveAsk path that fell back to keep-local
	// without the user making a choice — the only case that should raise
	// the amber "conflicts detected" status.
	askDismissed bool
}

// resolveConflict decides one conflicting path per the client's configured
// strategy, falling back to the prompter for "ask".
func (e *Engine) resolveConflict(ctx context.Context, c manifest.ConflictEntry) (conflictOutcome, error) {
	strategy := e.cfg.ConflictStrategy

	switch strategy {
	case clientconfig.ConflictKeepLocal:
		return e.resolveKeepLocal(c)
	case clientconfig.ConflictKeepRemote:
		return e.resolveKeepRemote(c)
	case clientconfig.ConflictThreeWay:
		return e.resolveMergeOrKeepRemote(ctx, c)
	case clientconfig.ConflictAsk:
		return e.resolveAsk(ctx, c)
	default:
		return e.resolveKeepLocal(c)
	}
}

func (e *Engine) resolveKeepLocal(c manifest.ConflictEntry) (conflictOutcome, error) {
	if c.Local == nil || !e.adapter.Exists(c.Path) {
		// local deleted: nothing to upload, path goes away.
		return conflictOutcome{}, nil
	}
	data, err := e.adapter.ReadBinary(c.Path)
	if err != nil {
		return conflictOutcome{}, fmt.Errorf("read local %s: %w", c.Path, err)
	}
	return conflictOutcome{entry: *c.Local, uploadBytes: data, wroteRemote: true}, nil
}

func (e *Engine) resolveKeepRemote(c manifest.ConflictEntry) (conflictOutcome, error) {
	if c.Remote == nil {
		// remote deleted, local kept on disk only by losing the race: delete it.
		if err := e.adapter.Delete(c.Path); err != nil {
			return conflictOutcome{}, fmt.Errorf("delete local %s: %w", c.Path, err)
		}
		return conflictOutcome{}, nil
	}
	return e.downloadRemoteEntry(c)
}

// downloadRemoteEntry pulls a conflict's remote content down and writes it
// to disk, split out so resolveAsk/resolveMergeOrKeepRemote can share it.
func (e *Engine) downloadRemoteEntry(c manifest.ConflictEntry) (conflictOutcome, error) {
	url, _, err := e.client.RequestDownloadURL(context.Background(), c.Path)
	if err != nil {
		return conflictOutcome{}, fmt.Errorf("request download url for %s: %w", c.Path, err)
	}
	data, err := e.client.DownloadPresigned(context.Background(), url)
	if err != nil {
		return conflictOutcome{}, fmt.Errorf("download %s: %w", c.Path, err)
	}
	if err := e.adapter.WriteBinary(c.Path, data); err != nil {
		return conflictOutcome{}, fmt.Errorf("write %s: %w", c.Path, err)
	}
	return conflictOutcome{entry: *c.Remote, wroteLocal: true}, nil
}

func (e *Engine) resolveMergeOrKeepRemote(ctx context.Context, c manifest.ConflictEntry) (conflictOutcome, error) {
	if !isMergeable(c.Path) || c.Local == nil || c.Remote == nil || !e.adapter.Exists(c.Path) {
		return e.resolveKeepRemote(c)
	}
	return e.threeWayMerge(ctx, c)
}

func (e *Engine) resolveAsk(ctx context.Context, c manifest.ConflictEntry) (conflictOutcome, error) {
	if c.Local == nil || c.Remote == nil || !e.adapter.Exists(c.Path) {
		// no textual choice to present for a delete/modify conflict: it's
		// dismissed to keep-local without the user ever choosing.
		return e.dismissToKeepLocal(c)
	}

	localText, err := e.adapter.ReadText(c.Path)
	if err != nil {
		return conflictOutcome{}, fmt.Errorf("read local %s: %w", c.Path, err)
	}
	remoteBytes, remoteURL, err := e.fetchRemoteText(c.Path)
	if err != nil {
		return conflictOutcome{}, err
	}
	_ = remoteURL

	resolution, err := e.prompt.AskConflict(ctx, c.Path, localText, string(remoteBytes))
	if err != nil {
		resolution = ResolveKeepLocal
	}

	switch resolution {
	case ResolveKeepRemote:
		if err := e.adapter.WriteBinary(c.Path, remoteBytes); err != nil {
			return conflictOutcome{}, err
		}
		return conflictOutcome{entry: *c.Remote, wroteLocal: true}, nil
	case ResolveMerge:
		return e.mergeTexts(c, localText, string(remoteBytes))
	default:
		return e.dismissToKeepLocal(c)
	}
}

// dismissToKeepLocal is resolveAsk's fallback when the prompt is dismissed
// without a choice: it keeps local, same as resolveKeepLocal, but also flags
// the outcome so executeConflicts counts it toward the amber "conflicts
// detected" status.
func (e *Engine) dismissToKeepLocal(c manifest.ConflictEntry) (conflictOutcome, error) {
	outcome, err := e.resolveKeepLocal(c)
	if err != nil {
		return outcome, err
	}
	outcome.askDismissed = true
	return outcome, nil
}

func (e *Engine) threeWayMerge(ctx context.Context, c manifest.ConflictEntry) (conflictOutcome, error) {
	localText, err := e.adapter.ReadText(c.Path)
	if err != nil {
		return conflictOutcome{}, fmt.Errorf("read local %s: %w", c.Path, err)
	}
	remoteBytes, _, err := e.fetchRemoteText(c.Path)
	if err != nil {
		return conflictOutcome{}, err
	}
	return e.mergeTexts(c, localText, string(remoteBytes))
}

func (e *Engine) mergeTexts(c manifest.ConflictEntry, localText, remoteText string) (conflictOutcome, error) {
	baseText, _ := e.baseCache.get(c.Path, c.BaseHash)

	result := merge.ThreeWay(baseText, localText, remoteText)

	if err := e.adapter.WriteText(c.Path, result.Text); err != nil {
		return conflictOutcome{}, fmt.Errorf("write merged %s: %w", c.Path, err)
	}
	hash, err := e.adapter.Hash(c.Path)
	if err != nil {
		return conflictOutcome{}, fmt.Errorf("hash merged %s: %w", c.Path, err)
	}

	entry := manifest.FileEntry{
		Path:           c.Path,
		Hash:           hash,
		LastModifiedBy: e.cfg.DeviceID,
	}
	if st, statErr := e.adapter.Stat(c.Path); statErr == nil {
		entry.Mtime = st.Mtime
		entry.Size = st.Size
	}

	return conflictOutcome{
		entry:        entry,
		uploadBytes:  []byte(result.Text),
		wroteLocal:   true,
		wroteRemote:  true,
		stillUnclean: result.HadConflict,
	}, nil
}

// fetchRemoteText downloads a conflicting path's current remote bytes
// without writing them to disk, for previewing in a merge/ask.
func (e *Engine) fetchRemoteText(path string) ([]byte, string, error) {
	url, _, err := e.client.RequestDownloadURL(context.Background(), path)
	if err != nil {
		return nil, "", fmt.Errorf("request download url for %s: %w", path, err)
	}
	data, err := e.client.DownloadPresigned(context.Background(), url)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", path, err)
	}
	return data, url, nil
}
