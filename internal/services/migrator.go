package services

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/store"
	srvErrors "github.com/homefleet/inventoryd/pkg/errors"
)

// migrationHistoryLimit bounds how much of a device's ledger is carried
// across backends in one run.
const migrationHistoryLimit = 10000

// Migrator copies all records from one storage backend to another.
// Migration is not atomic: a crash leaves the target partially populated,
// and because upsert is idempotent by natural key the recommended recovery
// is simply to run it again.
type Migrator struct {
	log *zap.SugaredLogger
}

func NewMigrator() *Migrator {
	return &Migrator{
		log: zap.S().Named("migrator"),
	}
}

// Migrate re-upserts every source device into the target and replays its
// history ledger in chronological order so the target's consecutive-
// duplicate suppression sees events as they originally arrived. Per-device
// failures are counted, not fatal.
func (m *Migrator) Migrate(ctx context.Context, source, target store.Adapter) (migrated, failed int, err error) {
	if err := target.InitSchema(ctx); err != nil {
		return 0, 0, fmt.Errorf("prepare target schema: %w", err)
	}

	devices, err := source.ListDevices(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list source devices: %w", err)
	}

	for i := range devices {
		device := devices[i]
		if err := m.migrateDevice(ctx, source, target, &device); err != nil {
			m.log.Warnw("device migration failed", "device", device.Identity(), "error", err)
			failed++
			continue
		}
		migrated++
	}

	m.log.Infow("migration finished", "migrated", migrated, "failed", failed)
	return migrated, failed, nil
}

func (m *Migrator) migrateDevice(ctx context.Context, source, target store.Adapter, device *models.Device) error {
	targetID, err := target.UpsertDevice(ctx, device)
	if err != nil {
		return err
	}
	if device.Status == models.DeviceStatusDecommissioned {
		if err := target.SetDeviceStatus(ctx, targetID, models.DeviceStatusDecommissioned); err != nil {
			return err
		}
	}

	events, err := source.GetHistory(ctx, device.ID, migrationHistoryLimit)
	if err != nil {
		return err
	}

	// GetHistory is most-recent-first; replay oldest-first.
	for i := len(events) - 1; i >= 0; i-- {
		if _, err := target.AppendHistory(ctx, targetID, events[i].Data, events[i].ContentHash); err != nil {
			return err
		}
	}
	return nil
}

// Verify compares device counts, then a random sample of devices
// field-by-field on the key-field subset. It reports the mismatch
// diagnostics alongside the verdict.
func (m *Migrator) Verify(ctx context.Context, source, target store.Adapter, sampleSize int) (bool, []string, error) {
	srcDevices, err := source.ListDevices(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("list source devices: %w", err)
	}
	tgtDevices, err := target.ListDevices(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("list target devices: %w", err)
	}

	if len(srcDevices) != len(tgtDevices) {
		diag := []string{fmt.Sprintf("device count: source=%d target=%d", len(srcDevices), len(tgtDevices))}
		return false, diag, nil
	}
	if len(srcDevices) == 0 {
		return true, nil, nil
	}

	byIdentity := make(map[string]*models.Device, len(tgtDevices))
	for i := range tgtDevices {
		byIdentity[tgtDevices[i].Identity()] = &tgtDevices[i]
	}

	if sampleSize <= 0 || sampleSize > len(srcDevices) {
		sampleSize = len(srcDevices)
	}

	var mismatches []string
	for _, idx := range rand.Perm(len(srcDevices))[:sampleSize] {
		src := &srcDevices[idx]
		tgt, ok := byIdentity[src.Identity()]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing on target", src.Identity()))
			continue
		}
		mismatches = append(mismatches, compareKeyFields(src, tgt)...)
	}

	if len(mismatches) > 0 {
		m.log.Warnw("verification mismatches", "count", len(mismatches),
			"error", srvErrors.NewVerificationMismatchError(mismatches))
		return false, mismatches, nil
	}
	return true, nil, nil
}

// compareKeyFields checks the fixed key-field subset used for sampled
// verification. Timestamps are deliberately excluded.
func compareKeyFields(src, tgt *models.Device) []string {
	var out []string
	check := func(field string, a, b *string) {
		av, bv := "", ""
		if a != nil {
			av = *a
		}
		if b != nil {
			bv = *b
		}
		if av != bv {
			out = append(out, fmt.Sprintf("%s: %s source=%q target=%q", src.Identity(), field, av, bv))
		}
	}

	if src.Status != tgt.Status {
		out = append(out, fmt.Sprintf("%s: status source=%q target=%q", src.Identity(), src.Status, tgt.Status))
	}
	check("cpu_model", src.CPUModel, tgt.CPUModel)
	check("memory_total", src.MemoryTotal, tgt.MemoryTotal)
	check("os_info", src.OSInfo, tgt.OSInfo)
	check("error_message", src.ErrorMessage, tgt.ErrorMessage)
	return out
}
