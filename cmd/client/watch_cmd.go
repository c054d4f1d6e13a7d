package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/openmined/syftbox/internal/syncengine"
	"github.com/openmined/syftbox/internal/vaultadapter"
	"github.com/openmined/syftbox/internal/vaultsdk"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run in the foreground, syncing on an interval and on vault writes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadClientConfig()
		if err != nil {
			return err
		}

		adapter, err := vaultadapter.New(cfg.VaultDir, cfg.ExcludePatterns)
		if err != nil {
			return err
		}
		if err := adapter.Lock(); err != nil {
			return err
		}
		defer adapter.Unlock()

		client := vaultsdk.New(cfg.Endpoint, cfg.Token, cfg.DeviceID)
		engine := syncengine.New(cmd.Context(), adapter, client, cfg, nil)
		defer engine.Close()

		ctx := cmd.Context()

		if cfg.SyncOnFileOpen {
			watcher := syncengine.NewWatcher(cfg.VaultDir, engine)
			go func() {
				if err := watcher.Run(ctx); err != nil {
					slog.Error("file watcher stopped", "error", err)
				}
			}()
		}

		if cfg.SyncIntervalSecs <= 0 {
			slog.Info("sync_interval_secs is 0: no periodic sync", "sync_on_file_open", cfg.SyncOnFileOpen)
			<-ctx.Done()
			return nil
		}

		ticker := time.NewTicker(time.Duration(cfg.SyncIntervalSecs) * time.Second)
		defer ticker.Stop()

		runOnce(ctx, engine)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				runOnce(ctx, engine)
			}
		}
	},
}

func runOnce(ctx context.Context, engine *syncengine.Engine) {
	if err := engine.Sync(ctx, false); err != nil && err != syncengine.ErrAlreadySyncing {
		slog.Error("sync cycle failed", "error", err)
	}
}
