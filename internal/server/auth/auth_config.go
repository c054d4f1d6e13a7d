package auth

import "log/slog"

// Config holds the server's device-token auth settings. The shared secret is
// the only credential material the server holds; rotating it invalidates
// every outstanding device token at once.
type Config struct {
	SharedSecret string
}

// LogValue masks the secret so it never lands in a log line verbatim.
func (c Config) LogValue() slog.Value {
	masked := "unset"
	if c.SharedSecret != "" {
		masked = "set"
	}
	return slog.GroupValue(slog.String("sharedSecret", masked))
}
