package vaultsdk

import "errors"

var (
	// ErrUnauthorized is returned by GetManifest and PutManifest on a 401;
	// fatal for the sync cycle, never retried.
	ErrUnauthorized = errors.New("vaultsdk: unauthorized")
	// ErrPreconditionFailed is returned on a 412: the caller's If-Match no
	// longer matches the server's ETag. Retryable at the engine level.
	ErrPreconditionFailed = errors.New("vaultsdk: manifest precondition failed (stale etag)")
	// ErrPreconditionRequired is returned on a 428: a manifest already
	// exists and the caller omitted If-Match. A client bug, never retried.
	ErrPreconditionRequired = errors.New("vaultsdk: manifest precondition required (missing if-match)")
)
