package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/util"
)

const (
	// UnknownIdentity is the sentinel used when a payload is too malformed
	// to carry its own identity.
	UnknownIdentity = "unknown"

	defaultErrorMessage = "Unknown error"
)

// Discovery converts a raw discovery payload into a canonical device
// record. It never fails: malformed input yields a sentinel error record
// describing the parse failure, and every nested field is optional.
func Discovery(raw []byte) *models.Device {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return parseFailure(fmt.Sprintf("malformed discovery payload: %v", err))
	}
	if doc == nil {
		return parseFailure("malformed discovery payload: empty document")
	}

	now := time.Now().UTC()
	device := &models.Device{
		Hostname:     stringOr(doc, "hostname", UnknownIdentity),
		ConnectionIP: stringOr(doc, "connection_ip", UnknownIdentity),
		LastSeen:     &now,
	}

	if stringOr(doc, "status", "") != "success" {
		device.Status = models.DeviceStatusError
		device.ErrorMessage = util.StrPtr(stringOr(doc, "error", defaultErrorMessage))
		return device
	}

	device.Status = models.DeviceStatusSuccess
	data := mapAt(doc, "data")

	if cpu := mapAt(data, "cpu"); cpu != nil {
		device.CPUModel = stringPtr(cpu, "model")
		device.CPUCores = intPtr(cpu, "cores")
	}
	if mem := mapAt(data, "memory"); mem != nil {
		device.MemoryTotal = stringPtr(mem, "total")
		device.MemoryUsed = stringPtr(mem, "used")
		device.MemoryFree = stringPtr(mem, "free")
		device.MemoryAvailable = stringPtr(mem, "available")
	}
	if disk := mapAt(data, "disk"); disk != nil {
		device.DiskFilesystem = stringPtr(disk, "filesystem")
		device.DiskSize = stringPtr(disk, "size")
		device.DiskUsed = stringPtr(disk, "used")
		device.DiskAvailable = stringPtr(disk, "available")
		device.DiskUsePercent = stringPtr(disk, "use_percent")
		device.DiskMount = stringPtr(disk, "mount")
	}
	device.NetworkInterfaces = interfaces(data)
	if uptime := stringPtr(data, "uptime"); uptime != nil {
		device.Uptime = uptime
	}
	if osInfo := stringPtr(data, "os"); osInfo != nil {
		device.OSInfo = osInfo
	}

	return device
}

func parseFailure(msg string) *models.Device {
	now := time.Now().UTC()
	return &models.Device{
		Hostname:     UnknownIdentity,
		ConnectionIP: UnknownIdentity,
		Status:       models.DeviceStatusError,
		LastSeen:     &now,
		ErrorMessage: util.StrPtr(msg),
	}
}

// interfaces reads data.network as either a bare list or a document with
// an "interfaces" list, preserving order. Entries that are not documents
// are skipped.
func interfaces(data map[string]any) []models.NetworkInterface {
	if data == nil {
		return nil
	}

	var list []any
	switch v := data["network"].(type) {
	case []any:
		list = v
	case map[string]any:
		list, _ = v["interfaces"].([]any)
	default:
		return nil
	}

	out := make([]models.NetworkInterface, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		iface := models.NetworkInterface{
			Name:  stringOr(entry, "name", ""),
			State: stringOr(entry, "state", ""),
		}
		if addrs, ok := entry["addresses"].([]any); ok {
			for _, a := range addrs {
				if s, ok := a.(string); ok {
					iface.Addresses = append(iface.Addresses, s)
				}
			}
		}
		out = append(out, iface)
	}
	return out
}

func mapAt(doc map[string]any, key string) map[string]any {
	if doc == nil {
		return nil
	}
	m, _ := doc[key].(map[string]any)
	return m
}

func stringOr(doc map[string]any, key, fallback string) string {
	if doc == nil {
		return fallback
	}
	if s, ok := doc[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func stringPtr(doc map[string]any, key string) *string {
	if doc == nil {
		return nil
	}
	if s, ok := doc[key].(string); ok {
		return &s
	}
	return nil
}

// intPtr coerces a numeric field to an int pointer. Non-numeric values are
// treated as absent rather than failing normalization.
func intPtr(doc map[string]any, key string) *int {
	if doc == nil {
		return nil
	}
	switch v := doc[key].(type) {
	case float64:
		return util.IntPtr(int(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return util.IntPtr(int(n))
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return util.IntPtr(n)
		}
	}
	return nil
}
