package auth

import "errors"

var (
	// ErrInvalidTokenFormat is returned when the bearer token isn't
	// "<deviceId>:<hmacHex>".
	ErrInvalidTokenFormat = errors.New("invalid token format")
	// ErrTokenMismatch is returned when the provided HMAC does not match the
	// one computed from the server's shared secret.
	ErrTokenMismatch = errors.New("token hmac mismatch")
	// ErrEmptyDeviceID is returned when the device id half of the token is empty.
	ErrEmptyDeviceID = errors.New("empty device id")
)
