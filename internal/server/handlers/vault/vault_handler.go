package vault

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmined/syftbox/internal/manifest"
	"github.com/openmined/syftbox/internal/objectstore"
	"github.com/openmined/syftbox/internal/server/handlers/api"
	"github.com/openmined/syftbox/internal/server/vaultservice"
)

type VaultHandler struct {
	svc *vaultservice.Service
}

func New(svc *vaultservice.Service) *VaultHandler {
	return &VaultHandler{svc: svc}
}

func (h *VaultHandler) GetManifest(ctx *gin.Context) {
	m, etag, err := h.svc.GetManifest(ctx.Request.Context())
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	if etag != nil {
		ctx.Header("ETag", *etag)
	}
	ctx.PureJSON(http.StatusOK, &ManifestResponse{Manifest: m, ETag: etag})
}

func (h *VaultHandler) PutManifest(ctx *gin.Context) {
	var m manifest.SyncManifest
	if err := ctx.ShouldBindJSON(&m); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("failed to bind json: %w", err))
		return
	}

	ifMatch := stripETagQuotes(ctx.GetHeader("If-Match"))

	etag, err := h.svc.PutManifest(ctx.Request.Context(), &m, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, objectstore.ErrPreconditionFailed):
			api.AbortWithError(ctx, http.StatusPreconditionFailed, api.CodeManifestPreconditionFailed, err)
		case errors.Is(err, objectstore.ErrPreconditionRequired):
			api.AbortWithError(ctx, http.StatusPreconditionRequired, api.CodeManifestPreconditionRequired, err)
		default:
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeManifestInvalid, err)
		}
		return
	}

	ctx.Header("ETag", etag)
	ctx.PureJSON(http.StatusOK, &ManifestResponse{Manifest: &m, ETag: &etag})
}

func (h *VaultHandler) UploadURL(ctx *gin.Context) {
	var req UploadURLRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("failed to bind json: %w", err))
		return
	}

	url, expiresAt, err := h.svc.IssueUploadURL(ctx.Request.Context(), req.Path, req.Hash)
	if err != nil {
		abortPathError(ctx, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &PresignedURLResponse{URL: url, ExpiresAt: expiresAt.Format(time.RFC3339)})
}

func (h *VaultHandler) DownloadURL(ctx *gin.Context) {
	var req DownloadURLRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("failed to bind json: %w", err))
		return
	}

	url, expiresAt, err := h.svc.IssueDownloadURL(ctx.Request.Context(), req.Path)
	if err != nil {
		abortPathError(ctx, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &PresignedURLResponse{URL: url, ExpiresAt: expiresAt.Format(time.RFC3339)})
}

func (h *VaultHandler) DeleteFiles(ctx *gin.Context) {
	var req DeleteFilesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("failed to bind json: %w", err))
		return
	}

	deleted, err := h.svc.DeleteFiles(ctx.Request.Context(), req.Paths)
	if err != nil {
		abortPathError(ctx, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &DeleteFilesResponse{OK: true, Deleted: deleted})
}

func abortPathError(ctx *gin.Context, err error) {
	code := api.CodeFilePathInvalid
	if errors.Is(err, manifest.ErrInvalidHash) {
		code = api.CodeFileHashInvalid
	}
	api.AbortWithError(ctx, http.StatusBadRequest, code, err)
}

func stripETagQuotes(etag string) string {
	return strings.ReplaceAll(etag, `"`, "")
}
