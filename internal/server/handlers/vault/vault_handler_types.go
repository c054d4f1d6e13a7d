package vault

import "github.com/openmined/syftbox/internal/manifest"

type ManifestResponse struct {
	Manifest *manifest.SyncManifest `json:"manifest"`
	ETag     *string                `json:"etag"`
}

type UploadURLRequest struct {
	Path string `json:"path" binding:"required"`
	Hash string `json:"hash" binding:"required"`
}

type DownloadURLRequest struct {
	Path string `json:"path" binding:"required"`
}

type PresignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

type DeleteFilesRequest struct {
	Paths []string `json:"paths" binding:"required,min=1"`
}

type DeleteFilesResponse struct {
	OK      bool     `json:"ok"`
	Deleted []string `json:"deleted"`
}
