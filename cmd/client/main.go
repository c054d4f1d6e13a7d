package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/syftbox/internal/clientconfig"
	"github.com/openmined/syftbox/internal/version"
	"github.com/spf13/cobra"
)

var configPathFlag string

var rootCmd = &cobra.Command{
	Use:     "vaultsync",
	Short:   "VaultSync client CLI",
	Version: version.Detailed(),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPathFlag, "config", "c", clientconfig.DefaultConfigPath, "Path to the client config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "error loading .env file:", err)
	}
}

func main() {
	slog.SetDefault(slog.New(setupHandler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupHandler() slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
		TimeFormat: time.Kitchen,
	})
}

// loadClientConfig reads and validates the config at configPathFlag.
func loadClientConfig() (*clientconfig.Config, error) {
	resolved := configPathFlag
	if resolved == "" {
		resolved = clientconfig.DefaultConfigPath
	}

	cfg, err := clientconfig.LoadFromFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no config at %s — run `vaultsync init` first", resolved)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config at %s: %w", resolved, err)
	}
	return cfg, nil
}

func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
