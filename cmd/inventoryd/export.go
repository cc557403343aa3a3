package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/homefleet/inventoryd/internal/analytics"
	"github.com/homefleet/inventoryd/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the fleet report workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "fleet.xlsx", "output workbook path")
}

func runExport(ctx context.Context) error {
	adapter, err := newAdapter(cfg)
	if err != nil {
		return err
	}
	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer adapter.Close()

	devices, err := adapter.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	summary := analytics.Analyze(devices)
	if err := export.WriteFleetReport(exportOut, devices, summary); err != nil {
		return err
	}

	color.Green("Wrote %s (%d devices)", exportOut, len(devices))
	return nil
}
