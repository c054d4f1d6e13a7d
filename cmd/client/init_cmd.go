package main

import (
	"fmt"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	"github.com/openmined/syftbox/internal/clientconfig"
	"github.com/openmined/syftbox/internal/vaultsdk"
	"github.com/spf13/cobra"
)

var (
	initVaultDir    string
	initEndpoint    string
	initDeviceID    string
	initToken       string
	initAdminSecret string
	initInterval    int
	initStrategy    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new client config",
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := initDeviceID
		if deviceID == "" {
			deviceID = defaultDeviceID()
		}

		token := initToken
		if token == "" && initAdminSecret != "" {
			issued, err := vaultsdk.IssueDeviceToken(cmd.Context(), initEndpoint, initAdminSecret, deviceID)
			if err != nil {
				return fmt.Errorf("issue device token: %w", err)
			}
			token = issued
		}
		if token == "" {
			return fmt.Errorf("a device token is required: pass --token, or --admin-secret to mint one")
		}

		cfg := &clientconfig.Config{
			Path:             configPathFlag,
			VaultDir:         initVaultDir,
			Endpoint:         initEndpoint,
			Token:            token,
			DeviceID:         deviceID,
			SyncIntervalSecs: initInterval,
			ConflictStrategy: clientconfig.ConflictStrategy(initStrategy),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := ensureParentDir(cfg.Path); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}

		fmt.Printf("wrote config to %s\n", cfg.Path)
		fmt.Printf("vault: %s\n", cfg.VaultDir)
		fmt.Printf("device: %s\n", cfg.DeviceID)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initVaultDir, "vault", clientconfig.DefaultVaultDir, "Vault directory to sync")
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "Manifest service base URL")
	initCmd.Flags().StringVar(&initDeviceID, "device-id", "", "Device id (defaults to a machine-derived id)")
	initCmd.Flags().StringVar(&initToken, "token", "", "Device bearer token, if already issued")
	initCmd.Flags().StringVar(&initAdminSecret, "admin-secret", "", "Server admin shared secret, to mint a device token")
	initCmd.Flags().IntVar(&initInterval, "interval", clientconfig.DefaultSyncInterval, "Background sync interval in seconds (0 = manual only)")
	initCmd.Flags().StringVar(&initStrategy, "conflict-strategy", string(clientconfig.ConflictAsk), "ask|keep-local|keep-remote|three-way-merge")
	initCmd.MarkFlagRequired("endpoint")
}

// defaultDeviceID derives a stable id from the host, falling back to a
// random one when the platform can't produce one (e.g. a locked-down
// container).
func defaultDeviceID() string {
	id, err := machineid.ProtectedID("vaultsync")
	if err == nil && id != "" {
		return id
	}
	return uuid.NewString()
}
