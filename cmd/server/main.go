package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/openmined/syftbox/internal/server"
	"github.com/openmined/syftbox/internal/version"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultBindAddr = "localhost:8080"
)

var (
	dotenvLoaded bool
)

var rootCmd = &cobra.Command{
	Use:     "server",
	Short:   "SyftBox Server CLI",
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		// load config
		cfg, err := loadConfig(cmd)
		if err != nil {
			cmd.SilenceUsage = false // show usage
			return err
		}

		// Log the final configuration details (masking secrets)
		slog.Info("server config", "dotenvLoaded", dotenvLoaded, "config", cfg.LogValue())
		logHostInfo()

		c, err := server.New(cfg)
		if err != nil {
			slog.Error("server", "error", err)
			return err
		}

		defer slog.Info("Bye!")
		if err := c.Start(cmd.Context()); err != nil {
			slog.Error("server", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	// Only setup server-related CLI flags
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("config", "f", "", "Path to config file (e.g., config.yaml)")
	rootCmd.Flags().StringP("bind", "b", DefaultBindAddr, "Address to bind the server")
	rootCmd.Flags().StringP("cert", "c", "", "Path to the certificate file for HTTPS")
	rootCmd.Flags().StringP("key", "k", "", "Path to the key file for HTTPS")

	if err := godotenv.Load(".env"); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Println("Error loading .env file", err)
			os.Exit(1)
		}
	} else {
		dotenvLoaded = true
	}
}

func main() {
	// Setup logger
	logger := slog.New(setupHandler())
	slog.SetDefault(logger)

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// server go brr
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// logHostInfo reports the host the server is running on and the free space
// on its working directory's disk, so a crash-looping deploy shows up as an
// obvious resource problem in the startup logs rather than a mystery.
func logHostInfo() {
	if info, err := host.Info(); err == nil {
		slog.Info("host", "os", info.OS, "platform", info.Platform, "uptimeSecs", info.Uptime)
	}
	if usage, err := disk.Usage("."); err == nil {
		slog.Info("disk", "path", usage.Path, "freeBytes", usage.Free, "usedPercent", usage.UsedPercent)
	}
}

func setupHandler() slog.Handler {
	switch os.Getenv("SYFTBOX_ENV") {
	case "PROD", "STAGE":
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	default:
		return tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			AddSource:  true,
			TimeFormat: time.DateTime,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key != "msg" && a.Value.Kind() == slog.KindString {
					a.Value = slog.StringValue(fmt.Sprintf("'%s'", a.Value.String()))
				}
				return a
			},
		})
	}
}

// loadConfig initializes viper, reads config file/env vars, and maps values to config
func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	v := viper.New()

	// Set up config file
	if cmd.Flag("config").Changed {
		configFilePath := cmd.Flag("config").Value.String()
		v.SetConfigFile(configFilePath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/syftbox/")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.SetConfigType("json")
	}

	// Set up environment variables
	v.SetEnvPrefix("SYFTBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindWithDefaults(v, cmd)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if cmd.Flag("config").Changed && enoent {
			return nil, err
		}
		if !enoent && !ok {
			return nil, fmt.Errorf("config read %q: %w", v.ConfigFileUsed(), err)
		}
	}

	// Unmarshal to server.Config
	var cfg *server.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config read: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func bindWithDefaults(v *viper.Viper, cmd *cobra.Command) {
	// Bind CLI flags to viper
	v.BindPFlag("http.addr", cmd.Flags().Lookup("bind"))
	v.BindPFlag("http.cert_file", cmd.Flags().Lookup("cert"))
	v.BindPFlag("http.key_file", cmd.Flags().Lookup("key"))

	// Set default values. REQUIRED to make env vars work
	// HTTP section
	v.SetDefault("http.addr", DefaultBindAddr)
	v.SetDefault("http.cert_file", "")
	v.SetDefault("http.key_file", "")
	// Auth section (config file/env vars only: the device-token shared secret)
	v.SetDefault("auth.sharedsecret", "")
	// Store section (config file/env vars only: S3-compatible object store)
	v.SetDefault("store.bucket_name", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
}
