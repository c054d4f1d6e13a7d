package server

import (
	"log/slog"
	"time"

	"github.com/openmined/syftbox/internal/objectstore"
	"github.com/openmined/syftbox/internal/server/auth"
)

const DefaultAddr = "127.0.0.1:8080"

// Config is the manifest service's full runtime configuration, assembled by
// the vaultsyncd binary from flags, env vars (SYFTBOX_ prefix) and an
// optional config file (see cmd/server).
type Config struct {
	HTTP  HTTPConfig
	Auth  auth.Config
	Store objectstore.S3Config
}

type HTTPConfig struct {
	Addr              string
	CertFile          string `mapstructure:"cert_file"`
	KeyFile           string `mapstructure:"key_file"`
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
}

func (c *HTTPConfig) HTTPSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Addr:              DefaultAddr,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	return c.Store.Validate()
}

// LogValue masks the auth secret when the server logs its resolved config
// at startup (matching auth.Config.LogValue's masking convention).
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("http.addr", c.HTTP.Addr),
		slog.Bool("http.tls", c.HTTP.HTTPSEnabled()),
		slog.Any("auth", c.Auth),
		slog.String("store.bucket_name", c.Store.BucketName),
		slog.String("store.region", c.Store.Region),
		slog.String("store.endpoint", c.Store.Endpoint),
	)
}
