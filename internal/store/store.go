package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/homefleet/inventoryd/internal/models"
)

// Adapter is the uniform storage contract over the device table and the
// discovery history ledger. Two implementations exist: the embedded
// single-file DuckDB backend and the Postgres backend with semi-structured
// columns. Callers observe identical shapes from both.
type Adapter interface {
	// Connect opens the backend. It is idempotent and safe to call lazily;
	// every data method calls it on first use.
	Connect(ctx context.Context) error
	Close() error

	// InitSchema creates tables and indexes if absent. Idempotent.
	InitSchema(ctx context.Context) error

	// UpsertDevice inserts or updates by the (hostname, connection_ip)
	// natural key and returns the device's surrogate id. created_at is
	// immutable once set; updated_at advances on every call. A device in
	// the decommissioned state keeps that status across upserts.
	UpsertDevice(ctx context.Context, device *models.Device) (uuid.UUID, error)

	// ListDevices returns flattened device records, identical in shape
	// across backends.
	ListDevices(ctx context.Context, opts ...ListOption) ([]models.Device, error)

	// AppendHistory stores a discovery payload for the device unless its
	// content hash matches the most recently stored event (consecutive
	// duplicates are suppressed; older history is not consulted). The
	// returned bool reports whether a new event was stored.
	AppendHistory(ctx context.Context, deviceID uuid.UUID, payload []byte, hash string) (bool, error)

	// GetHistory returns up to limit events, most recent first.
	GetHistory(ctx context.Context, deviceID uuid.UUID, limit int) ([]models.DiscoveryEvent, error)

	// SetDeviceStatus flips a device's status directly; used by the
	// decommission and reactivate paths, never by discovery.
	SetDeviceStatus(ctx context.Context, deviceID uuid.UUID, status models.DeviceStatus) error

	// RawQuery is a diagnostics escape hatch.
	RawQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// ListOption narrows or pages a ListDevices call. Options touch only
// columns both backends share, so one option set serves both.
type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByStatus(statuses ...models.DeviceStatus) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(statuses) == 0 {
			return b
		}
		vals := make([]string, 0, len(statuses))
		for _, s := range statuses {
			vals = append(vals, string(s))
		}
		return b.Where(sq.Eq{"status": vals})
	}
}

func ByHostname(hostname string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"hostname": hostname})
	}
}

// BySegment filters on a connection-address prefix, e.g. "192.168.1.".
func BySegment(prefix string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if prefix == "" {
			return b
		}
		return b.Where(sq.Like{"connection_ip": prefix + "%"})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

// withDefaultSort orders by hostname with the natural key as tie-breaker.
// The adapters apply it to every list query; it is not part of the caller
// option vocabulary.
func withDefaultSort() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy("hostname ASC", "connection_ip ASC")
	}
}

// listQuery is the shared device list builder: default sort first, then
// caller options. Both backends build their SELECT through it, so the
// default ordering is applied exactly once and callers never need to ask
// for it.
func listQuery(columns []string, opts []ListOption) sq.SelectBuilder {
	builder := sq.Select(columns...).From("devices")
	builder = withDefaultSort()(builder)
	for _, opt := range opts {
		builder = opt(builder)
	}
	return builder
}
