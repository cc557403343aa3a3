package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/homefleet/inventoryd/internal/services"
	"github.com/homefleet/inventoryd/internal/store"
)

var (
	migrateVerifySample int
	migrateSkipVerify   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the embedded inventory into the database server backend",
	Long: `Copy every device and its discovery history from the embedded
single-file store into the configured database server. The copy is
idempotent; re-running after a partial failure completes the remainder
without duplicating already-copied devices or history. Decommissioned
devices keep their status on the target.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateVerifySample, "verify-sample", 10, "number of devices to spot-check after the copy")
	migrateCmd.Flags().BoolVar(&migrateSkipVerify, "skip-verify", false, "skip post-migration verification")
}

func runMigrate(ctx context.Context) error {
	source := store.NewEmbedded(cfg.Storage.Embedded.Path)
	if err := source.Connect(ctx); err != nil {
		return fmt.Errorf("connect embedded store: %w", err)
	}
	defer source.Close()

	target := store.NewServer(serverConfig(cfg))
	if err := target.Connect(ctx); err != nil {
		return fmt.Errorf("connect server store: %w", err)
	}
	defer target.Close()

	color.Cyan("Migrating %s -> %s/%s",
		cfg.Storage.Embedded.Path, cfg.Storage.Server.Host, cfg.Storage.Server.Database)

	migrator := services.NewMigrator()
	migrated, failed, err := migrator.Migrate(ctx, source, target)
	if err != nil {
		return fmt.Errorf("migration: %w", err)
	}

	if failed > 0 {
		color.Yellow("Migrated %d devices, %d failed (re-run to retry the remainder)", migrated, failed)
	} else {
		color.Green("Migrated %d devices", migrated)
	}

	if migrateSkipVerify {
		return nil
	}

	ok, mismatches, err := migrator.Verify(ctx, source, target, migrateVerifySample)
	if err != nil {
		return fmt.Errorf("verification: %w", err)
	}
	if !ok {
		color.Red("Verification failed:")
		for _, m := range mismatches {
			color.Red("  %s", m)
		}
		return fmt.Errorf("verification found %d mismatches", len(mismatches))
	}

	color.Green("Verification passed (sample of %d)", migrateVerifySample)
	return nil
}
