// Package vaultsdk is the thin HTTP client the sync engine uses to talk to
// the manifest service: conditional manifest GET/PUT, presigned
// upload/download URL issuance, and bulk delete.
package vaultsdk

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/syftbox/internal/manifest"
)

const (
	headerDeviceID = "X-Vault-Device-Id"
	userAgent      = "vaultsync-client"

	routeHealth      = "/health"
	routeManifest    = "/manifest"
	routeUploadURL   = "/files/upload-url"
	routeDownloadURL = "/files/download-url"
	routeDeleteFiles = "/files/delete"
)

// apiError mirrors the manifest service's {code, error} JSON error shape
// (internal/server/handlers/api.SyftAPIError) as seen from the client side.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return "vaultsdk: request failed"
	}
	return e.Message
}

// Client talks to one manifest service over HTTPS on behalf of one device.
type Client struct {
	http *req.Client
}

// New builds a Client bound to baseURL, authenticating every request with
// the device's bearer token.
func New(baseURL, token string, deviceID string) *Client {
	c := req.C().
		SetBaseURL(baseURL).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		SetUserAgent(userAgent).
		SetCommonBearerAuthToken(token).
		SetCommonHeader(headerDeviceID, deviceID).
		SetCommonErrorResult(&apiError{}).
		SetTimeout(30 * time.Second)

	return &Client{http: c}
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	res, err := c.http.R().SetContext(ctx).SetSuccessResult(&result).Get(routeHealth)
	if err != nil {
		return nil, fmt.Errorf("vaultsdk: health: %w", err)
	}
	if res.IsErrorState() {
		return nil, asAPIError(res)
	}
	return result, nil
}

type manifestEnvelope struct {
	Manifest *manifest.SyncManifest `json:"manifest"`
	ETag     *string                `json:"etag"`
}

// GetManifest fetches the canonical manifest and its ETag. A nil ETag means
// no manifest has been committed yet.
func (c *Client) GetManifest(ctx context.Context) (*manifest.SyncManifest, *string, error) {
	var result manifestEnvelope
	res, err := c.http.R().SetContext(ctx).SetSuccessResult(&result).Get(routeManifest)
	if err != nil {
		return nil, nil, fmt.Errorf("vaultsdk: get manifest: %w", err)
	}
	if res.IsErrorState() {
		if res.StatusCode == http.StatusUnauthorized {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, asAPIError(res)
	}
	return result.Manifest, result.ETag, nil
}

// PutManifest commits m conditioned on ifMatch ("" on the very first commit).
// Returns the new ETag on success, or one of ErrPreconditionFailed (412),
// ErrPreconditionRequired (428), ErrUnauthorized (401) on failure.
func (c *Client) PutManifest(ctx context.Context, m *manifest.SyncManifest, ifMatch string) (string, error) {
	var result manifestEnvelope
	r := c.http.R().SetContext(ctx).SetBody(m).SetSuccessResult(&result)
	if ifMatch != "" {
		r.SetHeader("If-Match", ifMatch)
	}
	res, err := r.Put(routeManifest)
	if err != nil {
		return "", fmt.Errorf("vaultsdk: put manifest: %w", err)
	}
	if res.IsErrorState() {
		switch res.StatusCode {
		case http.StatusPreconditionFailed:
			return "", ErrPreconditionFailed
		case http.StatusPreconditionRequired:
			return "", ErrPreconditionRequired
		case http.StatusUnauthorized:
			return "", ErrUnauthorized
		default:
			return "", asAPIError(res)
		}
	}
	if result.ETag == nil {
		return "", fmt.Errorf("vaultsdk: put manifest: server did not return an etag")
	}
	return *result.ETag, nil
}

// RequestUploadURL asks the manifest service for a presigned URL the
// client can PUT path's bytes to.
func (c *Client) RequestUploadURL(ctx context.Context, path, hash string) (string, time.Time, error) {
	var result presignedResponse
	res, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"path": path, "hash": hash}).
		SetSuccessResult(&result).
		Post(routeUploadURL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("vaultsdk: upload url: %w", err)
	}
	if res.IsErrorState() {
		return "", time.Time{}, asAPIError(res)
	}
	expires, _ := time.Parse(time.RFC3339, result.ExpiresAt)
	return result.URL, expires, nil
}

// RequestDownloadURL asks the manifest service for a presigned URL the
// client can GET path's bytes from.
func (c *Client) RequestDownloadURL(ctx context.Context, path string) (string, time.Time, error) {
	var result presignedResponse
	res, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"path": path}).
		SetSuccessResult(&result).
		Post(routeDownloadURL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("vaultsdk: download url: %w", err)
	}
	if res.IsErrorState() {
		return "", time.Time{}, asAPIError(res)
	}
	expires, _ := time.Parse(time.RFC3339, result.ExpiresAt)
	return result.URL, expires, nil
}

type presignedResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// DeleteFiles bulk-deletes paths on the remote, returning those actually
// removed.
func (c *Client) DeleteFiles(ctx context.Context, paths []string) ([]string, error) {
	var result struct {
		OK      bool     `json:"ok"`
		Deleted []string `json:"deleted"`
	}
	res, err := c.http.R().SetContext(ctx).
		SetBody(map[string][]string{"paths": paths}).
		SetSuccessResult(&result).
		Post(routeDeleteFiles)
	if err != nil {
		return nil, fmt.Errorf("vaultsdk: delete files: %w", err)
	}
	if res.IsErrorState() {
		return nil, asAPIError(res)
	}
	return result.Deleted, nil
}

// UploadPresigned PUTs data to a presigned upload URL. Presigned URLs carry
// no auth of their own; this is a plain, unauthenticated PUT.
func (c *Client) UploadPresigned(ctx context.Context, url string, data []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("vaultsdk: build upload request: %w", err)
	}
	httpReq.ContentLength = int64(len(data))
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("vaultsdk: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vaultsdk: upload: unexpected status %s", resp.Status)
	}
	return nil
}

// DownloadPresigned GETs the full contents of a presigned download URL.
func (c *Client) DownloadPresigned(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("vaultsdk: build download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vaultsdk: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vaultsdk: download: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// IssueDeviceToken asks a manifest service to mint a device token, using the
// server operator's shared secret rather than an existing device token.
// Standalone since it authenticates differently than every other call a
// Client makes.
func IssueDeviceToken(ctx context.Context, baseURL, adminSecret, deviceID string) (string, error) {
	c := req.C().
		SetBaseURL(baseURL).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		SetUserAgent(userAgent).
		SetCommonBearerAuthToken(adminSecret).
		SetCommonErrorResult(&apiError{}).
		SetTimeout(30 * time.Second)

	var result struct {
		Token string `json:"token"`
	}
	res, err := c.R().SetContext(ctx).
		SetBody(map[string]string{"deviceId": deviceID}).
		SetSuccessResult(&result).
		Post("/admin/devices")
	if err != nil {
		return "", fmt.Errorf("vaultsdk: issue device token: %w", err)
	}
	if res.IsErrorState() {
		return "", asAPIError(res)
	}
	return result.Token, nil
}

func asAPIError(res *req.Response) error {
	if e, ok := res.Error().(*apiError); ok && e != nil && e.Message != "" {
		return fmt.Errorf("vaultsdk: %s (%s)", e.Message, e.Code)
	}
	return fmt.Errorf("vaultsdk: request failed: %s", res.Status)
}
