package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// NewDeviceToken builds the bearer token for a device: "<deviceId>:<hmacHex>"
// where hmacHex = lowercase-hex(HMAC-SHA256(secret, deviceId)).
func NewDeviceToken(deviceID, secret string) string {
	return deviceID + ":" + computeHMAC(deviceID, secret)
}

// VerifyDeviceToken splits the token on the first ":" and recomputes the
// expected HMAC over the device id, comparing in constant time. It returns
// the device id on success.
func VerifyDeviceToken(token, secret string) (string, error) {
	idx := strings.IndexByte(token, ':')
	if idx < 0 {
		return "", ErrInvalidTokenFormat
	}
	deviceID, providedHMAC := token[:idx], token[idx+1:]
	if deviceID == "" {
		return "", ErrEmptyDeviceID
	}

	expectedHMAC := computeHMAC(deviceID, secret)

	// A length mismatch fails immediately (subtle.ConstantTimeCompare would
	// also return 0 at once); for equal lengths the comparison takes the same
	// time wherever the first differing byte is.
	if len(expectedHMAC) != len(providedHMAC) {
		return "", ErrTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(expectedHMAC), []byte(providedHMAC)) != 1 {
		return "", ErrTokenMismatch
	}

	return deviceID, nil
}

func computeHMAC(deviceID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}
