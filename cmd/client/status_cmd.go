package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/openmined/syftbox/internal/syncengine"
	"github.com/openmined/syftbox/internal/vaultadapter"
	"github.com/openmined/syftbox/internal/vaultsdk"
	"github.com/spf13/cobra"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func styleState(s syncengine.State) string {
	switch s {
	case syncengine.StateCompleted, syncengine.StateIdle:
		return styleOK.Render(string(s))
	case syncengine.StateConflict, syncengine.StateSyncing:
		return styleWarn.Render(string(s))
	case syncengine.StateFailed:
		return styleErr.Render(string(s))
	default:
		return string(s)
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Run one sync cycle and report the outcome",
	Long: "Status has no persisted daemon to query in this CLI, so it runs a " +
		"cycle the same way `sync` does and reports what that cycle found — " +
		"clean, conflicted, or failed.",
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

		syncErr := engine.Sync(cmd.Context(), false)
		status := engine.Status()

		fmt.Printf("state:       %s\n", styleState(status.State))
		fmt.Printf("files synced: %d\n", status.FilesSynced)
		if status.Conflicts > 0 {
			fmt.Printf("conflicts:   %d (unresolved, need attention)\n", status.Conflicts)
		}
		if !status.LastSynced.IsZero() {
			fmt.Printf("last synced: %s (%s)\n",
				status.LastSynced.Format("2006-01-02 15:04:05 MST"), humanize.Time(status.LastSynced))
		}
		if status.LastError != "" {
			fmt.Printf("last error:  %s\n", status.LastError)
		}

		return syncErr
	},
}
