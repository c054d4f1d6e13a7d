// Package auth implements the HMAC device-token scheme that gates every
// manifest-service route: Service.Verify is the only
// server-held trust boundary, and SharedSecret rotation is the sole
// revocation mechanism.
package auth

import (
	"crypto/subtle"
	"fmt"
)

// Service verifies bearer tokens against the server's shared secret.
type Service struct {
	config *Config
}

// New builds an auth Service bound to the given config.
func New(config *Config) *Service {
	return &Service{config: config}
}

// IssueToken mints a device token for newly-registered devices.
func (s *Service) IssueToken(deviceID string) (string, error) {
	if deviceID == "" {
		return "", ErrEmptyDeviceID
	}
	return NewDeviceToken(deviceID, s.config.SharedSecret), nil
}

// Verify checks a bearer token and returns the device id it authenticates.
func (s *Service) Verify(bearerToken string) (string, error) {
	deviceID, err := VerifyDeviceToken(bearerToken, s.config.SharedSecret)
	if err != nil {
		return "", fmt.Errorf("verify device token: %w", err)
	}
	return deviceID, nil
}

// VerifyAdmin checks a bearer token against the raw shared secret, gating
// the device-token issuance endpoint.
func (s *Service) VerifyAdmin(bearerToken string) error {
	if subtle.ConstantTimeCompare([]byte(bearerToken), []byte(s.config.SharedSecret)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
