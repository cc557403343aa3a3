package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v5"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/models"
	srvErrors "github.com/homefleet/inventoryd/pkg/errors"
)

const embeddedMaxWriteTries = 5

// Embedded is the single-file DuckDB backend. The engine is single-writer;
// writes that lose the file lock to a concurrent process are retried with
// exponential backoff instead of failing.
type Embedded struct {
	path string
	db   *queryInterceptor
	raw  *sql.DB
	mu   sync.Mutex
	log  *zap.SugaredLogger
}

// NewEmbedded creates an adapter over the database file at path.
// Use ":memory:" for an ephemeral store. The file is not opened until
// Connect or the first data operation.
func NewEmbedded(path string) *Embedded {
	return &Embedded{
		path: path,
		log:  zap.S().Named("store.embedded"),
	}
}

func (s *Embedded) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw != nil {
		return nil
	}

	dsn := s.path
	if dsn == ":memory:" {
		dsn = ""
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return srvErrors.NewStorageUnavailableError(s.path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return srvErrors.NewStorageUnavailableError(s.path, err)
	}

	s.raw = db
	s.db = newQueryInterceptor(db)
	s.log.Debugw("opened embedded database", "path", s.path)
	return nil
}

func (s *Embedded) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw == nil {
		return nil
	}
	err := s.raw.Close()
	s.raw = nil
	s.db = nil
	return err
}

func (s *Embedded) InitSchema(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, queryEmbeddedSchema); err != nil {
		return fmt.Errorf("init embedded schema: %w", err)
	}
	return nil
}

func (s *Embedded) UpsertDevice(ctx context.Context, device *models.Device) (uuid.UUID, error) {
	if err := s.Connect(ctx); err != nil {
		return uuid.Nil, err
	}

	ifaces, err := MarshalInterfaces(device.NetworkInterfaces)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal interfaces for %s: %w", device.Identity(), err)
	}

	newID := uuid.New()
	id, err := retryEmbeddedWrite(ctx, func() (string, error) {
		var got string
		err := s.db.QueryRowContext(ctx, queryEmbeddedUpsertDevice,
			newID.String(),
			device.Hostname,
			device.ConnectionIP,
			string(device.Status),
			device.LastSeen,
			device.CPUModel,
			device.CPUCores,
			device.MemoryTotal,
			device.MemoryUsed,
			device.MemoryFree,
			device.MemoryAvailable,
			device.DiskFilesystem,
			device.DiskSize,
			device.DiskUsed,
			device.DiskAvailable,
			device.DiskUsePercent,
			device.DiskMount,
			string(ifaces),
			device.Uptime,
			device.OSInfo,
			device.ErrorMessage,
		).Scan(&got)
		return got, err
	})
	if err != nil {
		return uuid.Nil, s.mapWriteError(device.Identity(), err)
	}

	deviceID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("backend returned invalid device id %q: %w", id, err)
	}
	return deviceID, nil
}

func (s *Embedded) ListDevices(ctx context.Context, opts ...ListOption) ([]models.Device, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	query, args, err := listQuery(embeddedDeviceColumns, opts).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, srvErrors.NewStorageUnavailableError(s.path, err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanEmbeddedDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *Embedded) AppendHistory(ctx context.Context, deviceID uuid.UUID, payload []byte, hash string) (bool, error) {
	if err := s.Connect(ctx); err != nil {
		return false, err
	}

	var latest string
	err := s.db.QueryRowContext(ctx, queryEmbeddedLatestHash, deviceID.String()).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, srvErrors.NewStorageUnavailableError(deviceID.String(), err)
	}
	if err == nil && latest == hash {
		return false, nil
	}

	data := SanitizePayload(payload)
	_, err = retryEmbeddedWrite(ctx, func() (struct{}, error) {
		_, execErr := s.db.ExecContext(ctx, queryEmbeddedInsertHistory,
			uuid.New().String(),
			deviceID.String(),
			string(data),
			hash,
			time.Now().UTC(),
		)
		return struct{}{}, execErr
	})
	if err != nil {
		return false, s.mapWriteError(deviceID.String(), err)
	}
	return true, nil
}

func (s *Embedded) GetHistory(ctx context.Context, deviceID uuid.UUID, limit int) ([]models.DiscoveryEvent, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	builder := sq.Select("id", "device_id", "data", "content_hash", "discovered_at").
		From("discovery_history").
		Where(sq.Eq{"device_id": deviceID.String()}).
		OrderBy("discovered_at DESC").
		Limit(uint64(limit))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, srvErrors.NewStorageUnavailableError(deviceID.String(), err)
	}
	defer rows.Close()

	var events []models.DiscoveryEvent
	for rows.Next() {
		var (
			ev       models.DiscoveryEvent
			id, dev  string
			document string
		)
		if err := rows.Scan(&id, &dev, &document, &ev.ContentHash, &ev.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		ev.ID, _ = uuid.Parse(id)
		ev.DeviceID, _ = uuid.Parse(dev)
		ev.Data = []byte(document)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Embedded) SetDeviceStatus(ctx context.Context, deviceID uuid.UUID, status models.DeviceStatus) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	res, err := retryEmbeddedWrite(ctx, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, queryEmbeddedSetStatus, string(status), deviceID.String())
	})
	if err != nil {
		return s.mapWriteError(deviceID.String(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return srvErrors.NewDeviceNotFoundError(deviceID.String())
	}
	return nil
}

func (s *Embedded) RawQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, srvErrors.NewStorageUnavailableError(s.path, err)
	}
	defer rows.Close()

	return collectRows(rows)
}

func (s *Embedded) mapWriteError(identity string, err error) error {
	if err == nil {
		return nil
	}
	if isConstraintError(err) {
		return srvErrors.NewConstraintViolationError(identity, err)
	}
	return srvErrors.NewStorageUnavailableError(identity, err)
}

// retryEmbeddedWrite retries lock-contention failures with exponential
// backoff; every other error is permanent.
func retryEmbeddedWrite[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !isLockContention(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(embeddedMaxWriteTries),
	)
}

func isLockContention(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "lock") && (strings.Contains(msg, "conflict") ||
		strings.Contains(msg, "could not set") ||
		strings.Contains(msg, "held"))
}

func isConstraintError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}

// collectRows turns a generic result set into maps for the diagnostics
// escape hatch.
func collectRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanEmbeddedDevice(rows *sql.Rows) (*models.Device, error) {
	var (
		d          models.Device
		id         string
		status     string
		lastSeen   sql.NullTime
		cpuCores   sql.NullInt32
		ifacesJSON sql.NullString
		nullable   = map[string]*sql.NullString{}
	)
	strCols := []string{
		"cpu_model", "memory_total", "memory_used", "memory_free", "memory_available",
		"disk_filesystem", "disk_size", "disk_used", "disk_available", "disk_use_percent",
		"disk_mount", "uptime", "os_info", "error_message",
	}
	for _, c := range strCols {
		nullable[c] = &sql.NullString{}
	}

	err := rows.Scan(
		&id,
		&d.Hostname,
		&d.ConnectionIP,
		&status,
		&lastSeen,
		nullable["cpu_model"],
		&cpuCores,
		nullable["memory_total"],
		nullable["memory_used"],
		nullable["memory_free"],
		nullable["memory_available"],
		nullable["disk_filesystem"],
		nullable["disk_size"],
		nullable["disk_used"],
		nullable["disk_available"],
		nullable["disk_use_percent"],
		nullable["disk_mount"],
		&ifacesJSON,
		nullable["uptime"],
		nullable["os_info"],
		nullable["error_message"],
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.ID, _ = uuid.Parse(id)
	d.Status = models.DeviceStatus(status)
	if lastSeen.Valid {
		t := lastSeen.Time
		d.LastSeen = &t
	}
	if cpuCores.Valid {
		cores := int(cpuCores.Int32)
		d.CPUCores = &cores
	}
	if ifacesJSON.Valid {
		d.NetworkInterfaces = UnmarshalInterfaces([]byte(ifacesJSON.String))
	}

	set := func(dst **string, col string) {
		if v := nullable[col]; v.Valid {
			s := v.String
			*dst = &s
		}
	}
	set(&d.CPUModel, "cpu_model")
	set(&d.MemoryTotal, "memory_total")
	set(&d.MemoryUsed, "memory_used")
	set(&d.MemoryFree, "memory_free")
	set(&d.MemoryAvailable, "memory_available")
	set(&d.DiskFilesystem, "disk_filesystem")
	set(&d.DiskSize, "disk_size")
	set(&d.DiskUsed, "disk_used")
	set(&d.DiskAvailable, "disk_available")
	set(&d.DiskUsePercent, "disk_use_percent")
	set(&d.DiskMount, "disk_mount")
	set(&d.Uptime, "uptime")
	set(&d.OSInfo, "os_info")
	set(&d.ErrorMessage, "error_message")

	return &d, nil
}
