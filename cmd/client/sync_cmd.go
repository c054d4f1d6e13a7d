package main

import (
	"fmt"

	"github.com/openmined/syftbox/internal/syncengine"
	"github.com/openmined/syftbox/internal/vaultadapter"
	"github.com/openmined/syftbox/internal/vaultsdk"
	"github.com/spf13/cobra"
)

var syncForceFullFlag bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync cycle and exit",
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

		if err := engine.Sync(cmd.Context(), syncForceFullFlag); err != nil {
			return fmt.Errorf("sync: %w", err)
		}

		status := engine.Status()
		fmt.Printf("sync complete: %d files synced\n", status.FilesSynced)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncForceFullFlag, "force-full", false, "Discard the persisted base manifest and treat every path as new")
}
