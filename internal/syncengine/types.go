package syncengine

import (
	"context"
	"time"

	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/vaultadapter"
)

// VaultAdapter is the host-integration surface the engine is specified
// against: file enumeration, byte/text I/O, existence, and
// deletion. vaultadapter.Adapter is the local-disk implementation; the
// engine tests run it against temporary directories.
type VaultAdapter interface {
	ListFiles() ([]vaultadapter.FileStat, error)
	ReadBinary(path string) ([]byte, error)
	ReadText(path string) (string, error)
	WriteBinary(path string, data []byte) error
	WriteText(path string, text string) error
	Exists(path string) bool
	Delete(path string) error
	Hash(path string) (string, error)
	Stat(path string) (vaultadapter.FileStat, error)
}

// RemoteClient is the manifest-service surface the engine drives (spec
// §4.2/§6): conditional manifest GET/PUT, presigned transfer URLs, bulk
// delete, and the raw presigned PUT/GET themselves. vaultsdk.Client is the
// HTTP implementation; tests substitute a fake that never leaves the
// process.
type RemoteClient interface {
	GetManifest(ctx context.Context) (*manifest.SyncManifest, *string, error)
	PutManifest(ctx context.Context, m *manifest.SyncManifest, ifMatch string) (string, error)
	RequestUploadURL(ctx context.Context, path, hash string) (string, time.Time, error)
	RequestDownloadURL(ctx context.Context, path string) (string, time.Time, error)
	DeleteFiles(ctx context.Context, paths []string) ([]string, error)
	UploadPresigned(ctx context.Context, url string, data []byte) error
	DownloadPresigned(ctx context.Context, url string) ([]byte, error)
}

// Resolution is the outcome a Prompter (or an automatic strategy) picks for
// a conflicting path.
type Resolution string

const (
	ResolveKeepLocal  Resolution = "keep-local"
	ResolveKeepRemote Resolution = "keep-remote"
	ResolveMerge      Resolution = "merge"
)

// Prompter asks a human to resolve a conflict when the client's strategy is
// "ask". A dismissed/cancelled prompt must return ResolveKeepLocal.
type Prompter interface {
	AskConflict(ctx context.Context, path, localText, remoteText string) (Resolution, error)
}

// AutoKeepLocalPrompter is a Prompter that never actually asks: every
// conflict resolves as if the user dismissed the prompt. Useful for
// non-interactive contexts (daemon mode without a UI attached).
type AutoKeepLocalPrompter struct{}

func (AutoKeepLocalPrompter) AskConflict(_ context.Context, _, _, _ string) (Resolution, error) {
	return ResolveKeepLocal, nil
}
