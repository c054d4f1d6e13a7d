// Package clientconfig persists the sync client's settings:
// endpoint URL, bearer token, device id, sync interval, conflict strategy,
// exclude patterns, and the syncOnFileOpen flag.
package clientconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/syftbox/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".vaultsync", "config.json")
	DefaultVaultDir   = filepath.Join(home, "VaultSync")
)

// ConflictStrategy selects how the sync engine resolves a conflicting path.
type ConflictStrategy string

const (
	ConflictAsk         ConflictStrategy = "ask"
	ConflictKeepLocal   ConflictStrategy = "keep-local"
	ConflictKeepRemote  ConflictStrategy = "keep-remote"
	ConflictThreeWay    ConflictStrategy = "three-way-merge"
	DefaultSyncInterval                  = 60
)

var ErrInvalidURL = errors.New("invalid url")

// Config is the sync client's persisted settings.
type Config struct {
	VaultDir         string           `json:"vault_dir" mapstructure:"vault_dir"`
	Endpoint         string           `json:"endpoint" mapstructure:"endpoint"`
	Token            string           `json:"token" mapstructure:"token"`
	DeviceID         string           `json:"device_id" mapstructure:"device_id"`
	SyncIntervalSecs int              `json:"sync_interval_secs" mapstructure:"sync_interval_secs"`
	ConflictStrategy ConflictStrategy `json:"conflict_strategy" mapstructure:"conflict_strategy"`
	ExcludePatterns  []string         `json:"exclude_patterns" mapstructure:"exclude_patterns"`
	SyncOnFileOpen   bool             `json:"sync_on_file_open" mapstructure:"sync_on_file_open"`

	Path string `json:"-" mapstructure:"config_path"`
}

// Save writes the config to its Path as JSON, creating parent directories
// as needed.
func (c *Config) Save() error {
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.Path, data, 0o600)
}

// Validate fills in defaults and checks the config's invariants.
func (c *Config) Validate() error {
	if c.Path == "" {
		c.Path = DefaultConfigPath
	}
	if c.VaultDir == "" {
		c.VaultDir = DefaultVaultDir
	}

	var err error
	c.VaultDir, err = utils.ResolvePath(c.VaultDir)
	if err != nil {
		return err
	}

	if err := validateURL(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if c.DeviceID == "" {
		return errors.New("device_id is required")
	}

	if c.SyncIntervalSecs < 0 {
		return errors.New("sync_interval_secs must be >= 0 (0 means manual only)")
	}

	switch c.ConflictStrategy {
	case "":
		c.ConflictStrategy = ConflictAsk
	case ConflictAsk, ConflictKeepLocal, ConflictKeepRemote, ConflictThreeWay:
	default:
		return fmt.Errorf("unknown conflict_strategy: %s", c.ConflictStrategy)
	}

	for _, p := range c.ExcludePatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("exclude_patterns: invalid glob %q", p)
		}
	}

	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("vault_dir", c.VaultDir),
		slog.String("endpoint", c.Endpoint),
		slog.String("device_id", c.DeviceID),
		slog.Bool("token", c.Token != ""),
		slog.Int("sync_interval_secs", c.SyncIntervalSecs),
		slog.String("conflict_strategy", string(c.ConflictStrategy)),
		slog.Int("exclude_patterns", len(c.ExcludePatterns)),
		slog.Bool("sync_on_file_open", c.SyncOnFileOpen),
		slog.String("path", c.Path),
	)
}

func validateURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// LoadFromFile reads a Config from disk.
func LoadFromFile(path string) (*Config, error) {
	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = resolved
	return &cfg, nil
}
