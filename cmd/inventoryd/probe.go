package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/homefleet/inventoryd/internal/services"
	"github.com/homefleet/inventoryd/pkg/probe"
	"github.com/homefleet/inventoryd/pkg/scheduler"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Inspect the configured targets over SSH and record the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd.Context())
	},
}

func runProbe(ctx context.Context) error {
	if len(cfg.Probe.Targets) == 0 {
		return fmt.Errorf("no probe targets configured")
	}

	adapter, err := newAdapter(cfg)
	if err != nil {
		return err
	}
	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer adapter.Close()

	if err := adapter.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	pool := scheduler.NewPool(cfg.Service.NumWorkers)
	defer pool.Close()

	prober := probe.New(probe.Options{
		Username:       cfg.Probe.Username,
		Port:           cfg.Probe.Port,
		Password:       cfg.Probe.Password,
		PrivateKeyPath: cfg.Probe.PrivateKeyPath,
		Timeout:        cfg.Probe.Timeout,
	})

	targets := make([]probe.Target, len(cfg.Probe.Targets))
	for i, t := range cfg.Probe.Targets {
		targets[i] = probe.Target{Hostname: t.Hostname, Address: t.Address}
	}

	payloads := prober.Collect(ctx, targets, pool)

	inventorySrv := services.NewInventory(adapter, pool)
	results := inventorySrv.BulkUpsert(ctx, payloads)

	failed := 0
	for _, r := range results {
		switch {
		case r.Failed():
			failed++
			color.Red("  %s@%s: %s", r.Hostname, r.ConnectionIP, r.Error)
		case r.Stored:
			color.Green("  %s@%s: recorded", r.Hostname, r.ConnectionIP)
		default:
			color.White("  %s@%s: unchanged", r.Hostname, r.ConnectionIP)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	color.Green("Probed %d targets", len(results))
	return nil
}
