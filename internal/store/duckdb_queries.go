package store

// Embedded backend schema: flat relational columns for every hardware
// field, natural-key-unique devices table, history keyed by surrogate id.
const (
	queryEmbeddedSchema = `
		CREATE TABLE IF NOT EXISTS devices (
			id VARCHAR PRIMARY KEY,
			hostname VARCHAR NOT NULL,
			connection_ip VARCHAR NOT NULL,
			status VARCHAR NOT NULL,
			last_seen TIMESTAMP,
			cpu_model VARCHAR,
			cpu_cores INTEGER,
			memory_total VARCHAR,
			memory_used VARCHAR,
			memory_free VARCHAR,
			memory_available VARCHAR,
			disk_filesystem VARCHAR,
			disk_size VARCHAR,
			disk_used VARCHAR,
			disk_available VARCHAR,
			disk_use_percent VARCHAR,
			disk_mount VARCHAR,
			network_interfaces VARCHAR,
			uptime VARCHAR,
			os_info VARCHAR,
			error_message VARCHAR,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (hostname, connection_ip)
		);
		CREATE INDEX IF NOT EXISTS idx_devices_identity
			ON devices (hostname, connection_ip);
		CREATE TABLE IF NOT EXISTS discovery_history (
			id VARCHAR PRIMARY KEY,
			device_id VARCHAR NOT NULL,
			data VARCHAR NOT NULL,
			content_hash VARCHAR NOT NULL,
			discovered_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_device
			ON discovery_history (device_id);`

	// Discovery must never resurrect a decommissioned device; the CASE on
	// status preserves the terminal state while still refreshing the
	// hardware snapshot and last_seen.
	queryEmbeddedUpsertDevice = `
		INSERT INTO devices (
			id, hostname, connection_ip, status, last_seen,
			cpu_model, cpu_cores,
			memory_total, memory_used, memory_free, memory_available,
			disk_filesystem, disk_size, disk_used, disk_available, disk_use_percent, disk_mount,
			network_interfaces, uptime, os_info, error_message,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, now(), now())
		ON CONFLICT (hostname, connection_ip) DO UPDATE SET
			status = CASE
				WHEN devices.status = 'decommissioned' THEN devices.status
				ELSE EXCLUDED.status
			END,
			last_seen = EXCLUDED.last_seen,
			cpu_model = EXCLUDED.cpu_model,
			cpu_cores = EXCLUDED.cpu_cores,
			memory_total = EXCLUDED.memory_total,
			memory_used = EXCLUDED.memory_used,
			memory_free = EXCLUDED.memory_free,
			memory_available = EXCLUDED.memory_available,
			disk_filesystem = EXCLUDED.disk_filesystem,
			disk_size = EXCLUDED.disk_size,
			disk_used = EXCLUDED.disk_used,
			disk_available = EXCLUDED.disk_available,
			disk_use_percent = EXCLUDED.disk_use_percent,
			disk_mount = EXCLUDED.disk_mount,
			network_interfaces = EXCLUDED.network_interfaces,
			uptime = EXCLUDED.uptime,
			os_info = EXCLUDED.os_info,
			error_message = EXCLUDED.error_message,
			updated_at = now()
		RETURNING id`

	queryEmbeddedLatestHash = `
		SELECT content_hash FROM discovery_history
		WHERE device_id = ?
		ORDER BY discovered_at DESC
		LIMIT 1`

	queryEmbeddedInsertHistory = `
		INSERT INTO discovery_history (id, device_id, data, content_hash, discovered_at)
		VALUES (?, ?, ?, ?, ?)`

	queryEmbeddedSetStatus = `
		UPDATE devices SET status = ?, updated_at = now() WHERE id = ?`
)

var embeddedDeviceColumns = []string{
	"id", "hostname", "connection_ip", "status", "last_seen",
	"cpu_model", "cpu_cores",
	"memory_total", "memory_used", "memory_free", "memory_available",
	"disk_filesystem", "disk_size", "disk_used", "disk_available", "disk_use_percent", "disk_mount",
	"network_interfaces", "uptime", "os_info", "error_message",
	"created_at", "updated_at",
}
