package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceStatus is the lifecycle state of an inventoried device.
type DeviceStatus string

const (
	// DeviceStatusSuccess marks a device whose last discovery completed.
	DeviceStatusSuccess DeviceStatus = "success"
	// DeviceStatusError marks a device whose last discovery failed; such a
	// record carries no hardware snapshot.
	DeviceStatusError DeviceStatus = "error"
	// DeviceStatusDecommissioned is terminal until an explicit reactivation.
	// Rediscovery refreshes the hardware snapshot but never clears it.
	DeviceStatusDecommissioned DeviceStatus = "decommissioned"
)

// NetworkInterface is one entry of a device's ordered interface list.
type NetworkInterface struct {
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Addresses []string `json:"addresses"`
}

// Device is the canonical flattened device record. Both storage backends
// produce this exact shape on read; the JSON tags are the wire contract of
// the device list API.
//
// Identity is the (Hostname, ConnectionIP) pair; ID is a storage surrogate.
// Hardware fields are nil for records in the error state.
type Device struct {
	ID           uuid.UUID    `json:"id"`
	Hostname     string       `json:"hostname"`
	ConnectionIP string       `json:"connection_ip"`
	LastSeen     *time.Time   `json:"last_seen"`
	Status       DeviceStatus `json:"status"`

	CPUModel        *string `json:"cpu_model"`
	CPUCores        *int    `json:"cpu_cores"`
	MemoryTotal     *string `json:"memory_total"`
	MemoryUsed      *string `json:"memory_used"`
	MemoryFree      *string `json:"memory_free"`
	MemoryAvailable *string `json:"memory_available"`
	DiskFilesystem  *string `json:"disk_filesystem"`
	DiskSize        *string `json:"disk_size"`
	DiskUsed        *string `json:"disk_used"`
	DiskAvailable   *string `json:"disk_available"`
	DiskUsePercent  *string `json:"disk_use_percent"`
	DiskMount       *string `json:"disk_mount"`

	NetworkInterfaces []NetworkInterface `json:"network_interfaces"`
	Uptime            *string            `json:"uptime"`
	OSInfo            *string            `json:"os_info"`
	ErrorMessage      *string            `json:"error_message"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Online reports whether the device's last discovery succeeded.
func (d *Device) Online() bool {
	return d.Status == DeviceStatusSuccess
}

// Identity returns the natural key rendered as host@address.
func (d *Device) Identity() string {
	return d.Hostname + "@" + d.ConnectionIP
}
