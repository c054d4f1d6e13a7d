// Package vaultservice is the manifest service's business logic: reading
// and conditionally writing the canonical manifest, issuing presigned
// transfer URLs, and bulk-deleting files. It sits between the HTTP handlers
// and the object store, and owns the storage layout (reserved manifest key,
// vault/<path> file keys).
package vaultservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/objectstore"
)

const (
	manifestKey = manifest.ReservedPrefix + "/manifest.json"
	filePrefix  = "vault/"

	DefaultPresignExpiry = 15 * time.Minute
)

func fileKey(path string) string {
	return filePrefix + path
}

func pathFromFileKey(key string) string {
	return strings.TrimPrefix(key, filePrefix)
}

// Service implements the manifest service on top of any objectstore.Store.
type Service struct {
	store         objectstore.Store
	presignExpiry time.Duration
}

func New(store objectstore.Store, presignExpiry time.Duration) *Service {
	if presignExpiry <= 0 {
		presignExpiry = DefaultPresignExpiry
	}
	return &Service{store: store, presignExpiry: presignExpiry}
}

// GetManifest returns the current canonical manifest and its ETag. If no
// manifest has ever been written, it returns an empty manifest and a nil
// ETag (GET /manifest: "returns empty manifest and etag: null if absent").
func (s *Service) GetManifest(ctx context.Context) (*manifest.SyncManifest, *string, error) {
	obj, err := s.store.Get(ctx, manifestKey)
	if err != nil {
		if err == objectstore.ErrNotFound {
			return manifest.NewManifest(), nil, nil
		}
		return nil, nil, fmt.Errorf("get manifest: %w", err)
	}
	defer obj.Body.Close()

	var m manifest.SyncManifest
	if err := json.NewDecoder(obj.Body).Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	etag := obj.ETag
	return &m, &etag, nil
}

// PutManifest commits a new manifest conditioned on ifMatch. An empty
// ifMatch means "only if no manifest exists yet". Returns the new ETag, or
// objectstore.ErrPreconditionFailed / ErrPreconditionRequired on conflict.
func (s *Service) PutManifest(ctx context.Context, m *manifest.SyncManifest, ifMatch string) (string, error) {
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("invalid manifest: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	res, err := s.store.PutConditional(ctx, manifestKey, bytes.NewReader(data), int64(len(data)), ifMatch)
	if err != nil {
		return "", err
	}
	return res.ETag, nil
}

// IssueUploadURL returns a presigned URL the caller can PUT file contents
// to for the given vault path, after validating the path and hash.
func (s *Service) IssueUploadURL(ctx context.Context, path, hash string) (string, time.Time, error) {
	if err := manifest.ValidatePath(path); err != nil {
		return "", time.Time{}, err
	}
	if err := manifest.ValidateHash(hash); err != nil {
		return "", time.Time{}, err
	}
	return s.store.PresignPut(ctx, fileKey(path), s.presignExpiry)
}

// IssueDownloadURL returns a presigned URL the caller can GET file contents
// from for the given vault path.
func (s *Service) IssueDownloadURL(ctx context.Context, path string) (string, time.Time, error) {
	if err := manifest.ValidatePath(path); err != nil {
		return "", time.Time{}, err
	}
	return s.store.PresignGet(ctx, fileKey(path), s.presignExpiry)
}

// DeleteFiles validates and bulk-deletes vault paths, returning the paths
// actually deleted.
func (s *Service) DeleteFiles(ctx context.Context, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := manifest.ValidatePath(p); err != nil {
			return nil, fmt.Errorf("path %q: %w", p, err)
		}
		keys = append(keys, fileKey(p))
	}

	deletedKeys, err := s.store.DeleteMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(deletedKeys))
	for _, k := range deletedKeys {
		deleted = append(deleted, pathFromFileKey(k))
	}
	return deleted, nil
}
