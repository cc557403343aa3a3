package store

// Server backend schema: the hardware snapshot lives in one semi-structured
// system_info document plus a network_interfaces document, each under a GIN
// index for containment queries. Reads flatten the document back into the
// same field set the embedded backend exposes.
const (
	queryServerSchema = `
		CREATE TABLE IF NOT EXISTS devices (
			id UUID PRIMARY KEY,
			hostname TEXT NOT NULL,
			connection_ip TEXT NOT NULL,
			status TEXT NOT NULL,
			last_seen TIMESTAMPTZ,
			system_info JSONB NOT NULL DEFAULT '{}'::jsonb,
			network_interfaces JSONB NOT NULL DEFAULT '[]'::jsonb,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (hostname, connection_ip)
		);
		CREATE INDEX IF NOT EXISTS idx_devices_identity
			ON devices (hostname, connection_ip);
		CREATE INDEX IF NOT EXISTS idx_devices_system_info
			ON devices USING GIN (system_info);
		CREATE INDEX IF NOT EXISTS idx_devices_network_interfaces
			ON devices USING GIN (network_interfaces);
		CREATE TABLE IF NOT EXISTS discovery_history (
			id UUID PRIMARY KEY,
			device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			data JSONB NOT NULL,
			content_hash TEXT NOT NULL,
			discovered_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_history_device
			ON discovery_history (device_id, discovered_at DESC);`

	queryServerUpsertDevice = `
		INSERT INTO devices (
			id, hostname, connection_ip, status, last_seen,
			system_info, network_interfaces, error_message,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, now(), now())
		ON CONFLICT (hostname, connection_ip) DO UPDATE SET
			status = CASE
				WHEN devices.status = 'decommissioned' THEN devices.status
				ELSE EXCLUDED.status
			END,
			last_seen = EXCLUDED.last_seen,
			system_info = EXCLUDED.system_info,
			network_interfaces = EXCLUDED.network_interfaces,
			error_message = EXCLUDED.error_message,
			updated_at = now()
		RETURNING id`

	queryServerLatestHash = `
		SELECT content_hash FROM discovery_history
		WHERE device_id = $1
		ORDER BY discovered_at DESC
		LIMIT 1`

	queryServerInsertHistory = `
		INSERT INTO discovery_history (id, device_id, data, content_hash, discovered_at)
		VALUES ($1, $2, $3::jsonb, $4, now())`

	queryServerSetStatus = `
		UPDATE devices SET status = $1, updated_at = now() WHERE id = $2`
)

var serverDeviceColumns = []string{
	"id", "hostname", "connection_ip", "status", "last_seen",
	"system_info", "network_interfaces", "error_message",
	"created_at", "updated_at",
}
