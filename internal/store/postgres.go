package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/models"
	srvErrors "github.com/homefleet/inventoryd/pkg/errors"
)

const pgUniqueViolation = "23505"

// ServerConfig is the opaque connection-parameter bundle for the Postgres
// backend. The store never reads environment variables itself.
type ServerConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// Server is the client-server Postgres backend. Hardware fields are folded
// into a system_info JSONB column on write and flattened back on read, so
// callers see the same shape the embedded backend produces.
type Server struct {
	cfg  ServerConfig
	pool *pgxpool.Pool
	mu   sync.Mutex
	log  *zap.SugaredLogger
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		cfg: cfg,
		log: zap.S().Named("store.server"),
	}
}

func (s *Server) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return nil
	}

	cfg := s.cfg
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connURL := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=" + sslMode,
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return srvErrors.NewStorageUnavailableError(cfg.Host, err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return srvErrors.NewStorageUnavailableError(cfg.Host, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return srvErrors.NewStorageUnavailableError(cfg.Host, err)
	}

	s.pool = pool
	s.log.Debugw("connected to server backend", "host", cfg.Host, "database", cfg.Database)
	return nil
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

func (s *Server) InitSchema(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, queryServerSchema); err != nil {
		return fmt.Errorf("init server schema: %w", err)
	}
	return nil
}

func (s *Server) UpsertDevice(ctx context.Context, device *models.Device) (uuid.UUID, error) {
	if err := s.Connect(ctx); err != nil {
		return uuid.Nil, err
	}

	sysInfo, err := json.Marshal(FoldSystemInfo(device))
	if err != nil {
		return uuid.Nil, fmt.Errorf("fold system info for %s: %w", device.Identity(), err)
	}
	ifaces, err := MarshalInterfaces(device.NetworkInterfaces)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal interfaces for %s: %w", device.Identity(), err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, queryServerUpsertDevice,
		uuid.New(),
		device.Hostname,
		device.ConnectionIP,
		string(device.Status),
		device.LastSeen,
		sysInfo,
		ifaces,
		device.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, s.mapWriteError(device.Identity(), err)
	}
	return id, nil
}

func (s *Server) ListDevices(ctx context.Context, opts ...ListOption) ([]models.Device, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	query, args, err := listQuery(serverDeviceColumns, opts).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, srvErrors.NewStorageUnavailableError(s.cfg.Host, err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanServerDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *Server) AppendHistory(ctx context.Context, deviceID uuid.UUID, payload []byte, hash string) (bool, error) {
	if err := s.Connect(ctx); err != nil {
		return false, err
	}

	var latest string
	err := s.pool.QueryRow(ctx, queryServerLatestHash, deviceID).Scan(&latest)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, srvErrors.NewStorageUnavailableError(deviceID.String(), err)
	}
	if err == nil && latest == hash {
		return false, nil
	}

	data := SanitizePayload(payload)
	if _, err := s.pool.Exec(ctx, queryServerInsertHistory, uuid.New(), deviceID, data, hash); err != nil {
		return false, s.mapWriteError(deviceID.String(), err)
	}
	return true, nil
}

func (s *Server) GetHistory(ctx context.Context, deviceID uuid.UUID, limit int) ([]models.DiscoveryEvent, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	builder := sq.Select("id", "device_id", "data", "content_hash", "discovered_at").
		From("discovery_history").
		Where(sq.Eq{"device_id": deviceID}).
		OrderBy("discovered_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, srvErrors.NewStorageUnavailableError(deviceID.String(), err)
	}
	defer rows.Close()

	var events []models.DiscoveryEvent
	for rows.Next() {
		var (
			ev   models.DiscoveryEvent
			data []byte
		)
		if err := rows.Scan(&ev.ID, &ev.DeviceID, &data, &ev.ContentHash, &ev.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		ev.Data = data
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Server) SetDeviceStatus(ctx context.Context, deviceID uuid.UUID, status models.DeviceStatus) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, queryServerSetStatus, string(status), deviceID)
	if err != nil {
		return s.mapWriteError(deviceID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return srvErrors.NewDeviceNotFoundError(deviceID.String())
	}
	return nil
}

func (s *Server) RawQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, srvErrors.NewStorageUnavailableError(s.cfg.Host, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Server) mapWriteError(identity string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return srvErrors.NewConstraintViolationError(identity, err)
	}
	return srvErrors.NewStorageUnavailableError(identity, err)
}

func scanServerDevice(rows pgx.Rows) (*models.Device, error) {
	var (
		d        models.Device
		status   string
		lastSeen *time.Time
		sysInfo  []byte
		ifaces   []byte
		errMsg   *string
	)

	err := rows.Scan(
		&d.ID,
		&d.Hostname,
		&d.ConnectionIP,
		&status,
		&lastSeen,
		&sysInfo,
		&ifaces,
		&errMsg,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = models.DeviceStatus(status)
	d.LastSeen = lastSeen
	d.ErrorMessage = errMsg

	var doc map[string]any
	if len(sysInfo) > 0 {
		if err := json.Unmarshal(sysInfo, &doc); err != nil {
			doc = map[string]any{}
		}
	}
	FlattenSystemInfo(&d, doc)
	d.NetworkInterfaces = UnmarshalInterfaces(ifaces)

	return &d, nil
}
