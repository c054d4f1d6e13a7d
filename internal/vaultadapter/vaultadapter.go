// Package vaultadapter implements the local filesystem side of the vault
// adapter interface the sync engine consumes: enumerate tracked
// files, read/write their bytes, compute the content hash the manifest
// stores, and hold a session-scoped advisory lock on the vault directory.
package vaultadapter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/openmined/syftbox/internal/ignore"
	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/utils"
)

const lockFileName = ".obsidian-r2-sync.lock"

// ErrVaultLocked is returned by Lock when another process already holds the
// vault's lock file.
var ErrVaultLocked = errors.New("vault locked by another process")

// FileStat is one entry returned by ListFiles: a tracked path plus the
// filesystem metadata needed to decide whether it changed.
type FileStat struct {
	Path  string
	Mtime int64
	Size  int64
}

// Adapter is the local-disk implementation of the vault adapter interface
// consumed by the sync engine.
type Adapter struct {
	root    string
	exclude *ignore.List
	flock   *flock.Flock
}

// New builds an Adapter rooted at root, excluding paths matched by
// excludePatterns (gitignore-style globs).
func New(root string, excludePatterns []string) (*Adapter, error) {
	resolved, err := utils.ResolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root %s: %w", root, err)
	}
	if err := utils.EnsureDir(resolved); err != nil {
		return nil, fmt.Errorf("create vault root %s: %w", resolved, err)
	}

	return &Adapter{
		root:    resolved,
		exclude: ignore.Compile(excludePatterns),
		flock:   flock.New(filepath.Join(resolved, lockFileName)),
	}, nil
}

// Lock acquires the vault's local lock file, preventing a second sync
// engine instance from running against the same vault concurrently.
func (a *Adapter) Lock() error {
	locked, err := a.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock vault: %w", err)
	}
	if !locked {
		return ErrVaultLocked
	}
	return nil
}

func (a *Adapter) Unlock() error {
	if !a.flock.Locked() {
		return nil
	}
	if err := a.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock vault: %w", err)
	}
	return os.Remove(a.flock.Path())
}

// ListFiles walks the vault root and returns every non-excluded, non-reserved
// tracked file.
func (a *Adapter) ListFiles() ([]FileStat, error) {
	var out []FileStat

	err := filepath.WalkDir(a.root, func(absPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if absPath == a.root {
			return nil
		}

		rel, relErr := filepath.Rel(a.root, absPath)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == manifest.ReservedPrefix || a.exclude.ShouldIgnore(rel) {
				return fs.SkipDir
			}
			return nil
		}

		if rel == lockFileName || strings.HasPrefix(rel, manifest.ReservedPrefix+"/") {
			return nil
		}
		if a.exclude.ShouldIgnore(rel) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}

		out = append(out, FileStat{
			Path:  rel,
			Mtime: info.ModTime().UnixMilli(),
			Size:  info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vault files: %w", err)
	}
	return out, nil
}

func (a *Adapter) absPath(path string) (string, error) {
	if err := manifest.ValidatePath(path); err != nil {
		return "", err
	}
	return filepath.Join(a.root, filepath.FromSlash(path)), nil
}

// ReadBinary returns the raw bytes of a tracked file.
func (a *Adapter) ReadBinary(path string) ([]byte, error) {
	abs, err := a.absPath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// ReadText returns a tracked file's contents as UTF-8 text.
func (a *Adapter) ReadText(path string) (string, error) {
	data, err := a.ReadBinary(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteBinary writes raw bytes to a tracked path, creating parent
// directories as needed.
func (a *Adapter) WriteBinary(path string, data []byte) error {
	abs, err := a.absPath(path)
	if err != nil {
		return err
	}
	if err := utils.EnsureParent(abs); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	return os.WriteFile(abs, data, 0o644)
}

// WriteText writes UTF-8 text to a tracked path, creating parent
// directories as needed.
func (a *Adapter) WriteText(path string, text string) error {
	return a.WriteBinary(path, []byte(text))
}

// Exists reports whether a tracked path exists in the vault.
func (a *Adapter) Exists(path string) bool {
	abs, err := a.absPath(path)
	if err != nil {
		return false
	}
	return utils.FileExists(abs)
}

// Delete removes a tracked path. Deleting an absent path is not an error,
// matching the engine's tolerance for already-drifted local state.
func (a *Adapter) Delete(path string) error {
	abs, err := a.absPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Hash computes the content hash the manifest stores for a tracked file
// (sha256, matching manifest.ValidateHash's 64-lowercase-hex format).
func (a *Adapter) Hash(path string) (string, error) {
	abs, err := a.absPath(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Stat returns mtime/size for a single tracked path, used when the engine
// needs to refresh one entry without a full ListFiles walk.
func (a *Adapter) Stat(path string) (FileStat, error) {
	abs, err := a.absPath(path)
	if err != nil {
		return FileStat{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileStat{}, err
	}
	return FileStat{Path: path, Mtime: info.ModTime().UnixMilli(), Size: info.Size()}, nil
}
