package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/normalize"
	"github.com/homefleet/inventoryd/internal/store"
	"github.com/homefleet/inventoryd/pkg/scheduler"
)

// Inventory orchestrates the normalizer and the storage adapter. It owns a
// single long-lived adapter injected at construction; connection lifecycle
// is scoped to the process, not to individual calls.
type Inventory struct {
	adapter store.Adapter
	pool    *scheduler.Pool
	log     *zap.SugaredLogger
}

func NewInventory(adapter store.Adapter, pool *scheduler.Pool) *Inventory {
	return &Inventory{
		adapter: adapter,
		pool:    pool,
		log:     zap.S().Named("inventory"),
	}
}

// Upsert normalizes one raw discovery payload, upserts the device record,
// and appends the payload to the history ledger. The returned result
// reports whether a new history event was stored or suppressed as a
// consecutive duplicate.
func (s *Inventory) Upsert(ctx context.Context, raw []byte) (*models.UpsertResult, error) {
	device := normalize.Discovery(raw)

	deviceID, err := s.adapter.UpsertDevice(ctx, device)
	if err != nil {
		metricStorageErrors.Inc()
		return nil, fmt.Errorf("upsert %s: %w", device.Identity(), err)
	}
	metricUpserts.WithLabelValues(string(device.Status)).Inc()

	stored, err := s.adapter.AppendHistory(ctx, deviceID, raw, store.ContentHash(raw))
	if err != nil {
		metricStorageErrors.Inc()
		return nil, fmt.Errorf("append history for %s: %w", device.Identity(), err)
	}
	if stored {
		metricHistoryEvents.WithLabelValues("stored").Inc()
	} else {
		metricHistoryEvents.WithLabelValues("suppressed").Inc()
	}

	return &models.UpsertResult{
		Hostname:     device.Hostname,
		ConnectionIP: device.ConnectionIP,
		DeviceID:     deviceID,
		Stored:       stored,
	}, nil
}

// BulkUpsert applies Upsert to each payload independently through the
// worker pool. Results come back in input order regardless of completion
// order; a failure on one payload is captured in its result slot and never
// aborts the batch.
func (s *Inventory) BulkUpsert(ctx context.Context, payloads [][]byte) []models.UpsertResult {
	metricBulkBatchSize.Observe(float64(len(payloads)))

	futures := make([]*scheduler.Future[scheduler.Result[any]], len(payloads))
	for i, raw := range payloads {
		payload := raw
		if ctx.Err() != nil {
			// Stop dispatching new items on cancellation; already
			// submitted items are allowed to complete.
			break
		}
		futures[i] = s.pool.Submit(func(workCtx context.Context) (any, error) {
			return s.Upsert(workCtx, payload)
		})
	}

	results := make([]models.UpsertResult, len(payloads))
	for i := range payloads {
		if futures[i] == nil {
			results[i] = failedResult(payloads[i], context.Canceled)
			continue
		}
		res := <-futures[i].C()
		if res.Err != nil {
			s.log.Warnw("bulk upsert item failed", "index", i, "error", res.Err)
			results[i] = failedResult(payloads[i], res.Err)
			continue
		}
		results[i] = *res.Data.(*models.UpsertResult)
	}
	return results
}

// failedResult tags a failure with the identity of the payload it belongs
// to. Normalization never fails, so even a malformed payload yields its
// parse-failure identity rather than an empty one.
func failedResult(raw []byte, err error) models.UpsertResult {
	device := normalize.Discovery(raw)
	return models.UpsertResult{
		Hostname:     device.Hostname,
		ConnectionIP: device.ConnectionIP,
		Error:        err.Error(),
	}
}

// ListDevices returns the flattened fleet, identical in shape regardless
// of the configured backend.
func (s *Inventory) ListDevices(ctx context.Context, opts ...store.ListOption) ([]models.Device, error) {
	return s.adapter.ListDevices(ctx, opts...)
}

// GetHistory returns the most recent history events for a device.
func (s *Inventory) GetHistory(ctx context.Context, deviceID uuid.UUID, limit int) ([]models.DiscoveryEvent, error) {
	return s.adapter.GetHistory(ctx, deviceID, limit)
}

// Decommission marks a device as retired. Subsequent discoveries keep
// refreshing its snapshot and history but cannot flip it back online;
// Reactivate is the explicit way back.
func (s *Inventory) Decommission(ctx context.Context, deviceID uuid.UUID) error {
	return s.adapter.SetDeviceStatus(ctx, deviceID, models.DeviceStatusDecommissioned)
}

func (s *Inventory) Reactivate(ctx context.Context, deviceID uuid.UUID) error {
	return s.adapter.SetDeviceStatus(ctx, deviceID, models.DeviceStatusSuccess)
}
