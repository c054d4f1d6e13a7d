package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied

	// Auth errors
	CodeAuthInvalidCredentials    = "E_AUTH_INVALID_CREDENTIALS"     // authentication credentials (e.g., token) are invalid, expired, or malformed.
	CodeAuthTokenGenerationFailed = "E_AUTH_TOKEN_GENERATION_FAILED" // a failure during the generation of new authentication tokens.

	// Manifest service errors
	CodeManifestPreconditionFailed   = "E_MANIFEST_PRECONDITION_FAILED"   // If-Match did not match the current ETag (412).
	CodeManifestPreconditionRequired = "E_MANIFEST_PRECONDITION_REQUIRED" // a manifest exists and If-Match was omitted (428).
	CodeManifestInvalid              = "E_MANIFEST_INVALID"              // the submitted manifest failed validation.
	CodeFilePathInvalid              = "E_FILE_PATH_INVALID"             // a file path failed validation (traversal, absolute, reserved).
	CodeFileHashInvalid              = "E_FILE_HASH_INVALID"             // a file hash is not a well-formed content hash.
)
