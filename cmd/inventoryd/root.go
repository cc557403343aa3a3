package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/homefleet/inventoryd/internal/config"
	"github.com/homefleet/inventoryd/internal/store"
)

var (
	configPath string
	cfg        *config.Configuration
)

var rootCmd = &cobra.Command{
	Use:           "inventoryd",
	Short:         "Homelab device inventory service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		return setupLogging(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(probeCmd)
}

func setupLogging(cfg *config.Configuration) error {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}

	var zapCfg zap.Config
	if cfg.LogFormat == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// newAdapter builds the storage adapter the configuration selects. The
// adapter is not yet connected; callers own Connect and Close.
func newAdapter(cfg *config.Configuration) (store.Adapter, error) {
	switch cfg.Storage.Backend {
	case config.BackendEmbedded:
		return store.NewEmbedded(cfg.Storage.Embedded.Path), nil
	case config.BackendServer:
		return store.NewServer(serverConfig(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func serverConfig(cfg *config.Configuration) store.ServerConfig {
	return store.ServerConfig{
		Host:     cfg.Storage.Server.Host,
		Port:     cfg.Storage.Server.Port,
		Database: cfg.Storage.Server.Database,
		Username: cfg.Storage.Server.Username,
		Password: cfg.Storage.Server.Password,
		SSLMode:  cfg.Storage.Server.SSLMode,
		MaxConns: cfg.Storage.Server.MaxConns,
		MinConns: cfg.Storage.Server.MinConns,
	}
}
