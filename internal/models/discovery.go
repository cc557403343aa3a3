package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DiscoveryEvent is one append-only entry of a device's history ledger.
type DiscoveryEvent struct {
	ID           uuid.UUID       `json:"-"`
	DeviceID     uuid.UUID       `json:"-"`
	Data         json.RawMessage `json:"data"`
	ContentHash  string          `json:"-"`
	DiscoveredAt time.Time       `json:"discovered_at"`
}

// UpsertResult is the per-target outcome of a bulk discovery run. Results
// are returned in input order regardless of completion order.
type UpsertResult struct {
	Hostname     string    `json:"hostname"`
	ConnectionIP string    `json:"connection_ip"`
	DeviceID     uuid.UUID `json:"device_id"`
	Stored       bool      `json:"stored"`
	Error        string    `json:"error,omitempty"`
}

// Failed reports whether this item of the batch failed.
func (r *UpsertResult) Failed() bool {
	return r.Error != ""
}
