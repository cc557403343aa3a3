package store

import (
	"encoding/json"

	"github.com/homefleet/inventoryd/internal/models"
)

// The Postgres backend folds the hardware snapshot into one system_info
// document column. Both directions of that conversion live here so the
// flattened shape callers observe is structurally identical to the
// embedded backend's flat columns, not incidentally matched.

// FoldSystemInfo renders a device's hardware snapshot as the system_info
// document. Absent fields are omitted entirely.
func FoldSystemInfo(d *models.Device) map[string]any {
	doc := make(map[string]any)
	putStr := func(key string, v *string) {
		if v != nil {
			doc[key] = *v
		}
	}

	putStr("cpu_model", d.CPUModel)
	if d.CPUCores != nil {
		doc["cpu_cores"] = *d.CPUCores
	}
	putStr("memory_total", d.MemoryTotal)
	putStr("memory_used", d.MemoryUsed)
	putStr("memory_free", d.MemoryFree)
	putStr("memory_available", d.MemoryAvailable)
	putStr("disk_filesystem", d.DiskFilesystem)
	putStr("disk_size", d.DiskSize)
	putStr("disk_used", d.DiskUsed)
	putStr("disk_available", d.DiskAvailable)
	putStr("disk_use_percent", d.DiskUsePercent)
	putStr("disk_mount", d.DiskMount)
	putStr("uptime", d.Uptime)
	putStr("os_info", d.OSInfo)

	return doc
}

// FlattenSystemInfo applies a system_info document onto a device's flat
// hardware fields. Missing or mistyped keys leave the field nil.
func FlattenSystemInfo(d *models.Device, doc map[string]any) {
	str := func(key string) *string {
		if s, ok := doc[key].(string); ok {
			return &s
		}
		return nil
	}

	d.CPUModel = str("cpu_model")
	if f, ok := doc["cpu_cores"].(float64); ok {
		cores := int(f)
		d.CPUCores = &cores
	}
	d.MemoryTotal = str("memory_total")
	d.MemoryUsed = str("memory_used")
	d.MemoryFree = str("memory_free")
	d.MemoryAvailable = str("memory_available")
	d.DiskFilesystem = str("disk_filesystem")
	d.DiskSize = str("disk_size")
	d.DiskUsed = str("disk_used")
	d.DiskAvailable = str("disk_available")
	d.DiskUsePercent = str("disk_use_percent")
	d.DiskMount = str("disk_mount")
	d.Uptime = str("uptime")
	d.OSInfo = str("os_info")
}

// MarshalInterfaces serializes the ordered interface list for storage.
func MarshalInterfaces(ifaces []models.NetworkInterface) ([]byte, error) {
	if ifaces == nil {
		ifaces = []models.NetworkInterface{}
	}
	return json.Marshal(ifaces)
}

// UnmarshalInterfaces restores the interface list; bad stored data yields
// an empty list rather than an error, matching the fail-open read path.
func UnmarshalInterfaces(raw []byte) []models.NetworkInterface {
	if len(raw) == 0 {
		return nil
	}
	var out []models.NetworkInterface
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
