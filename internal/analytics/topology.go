package analytics

import (
	"fmt"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/util"
)

const (
	highDiskUsageThreshold = 80
	lowResourceCores       = 2
	lowResourceMemoryGB    = 2.0
)

// Analyze computes the aggregate topology view over the full device list.
// It is a pure function: any field that fails to parse for a device is
// skipped for that specific computation only, never for the whole device.
func Analyze(devices []models.Device) *models.TopologySummary {
	summary := &models.TopologySummary{
		TotalDevices:     len(devices),
		OperatingSystems: make(map[string]int),
		CPUModels:        make(map[string]int),
		NetworkSegments:  make(map[string]int),
		HighDiskUsage:    []models.ResourceFlag{},
		LowResources:     []models.ResourceFlag{},
	}

	for i := range devices {
		d := &devices[i]

		if d.Online() {
			summary.OnlineDevices++
			if d.OSInfo != nil {
				summary.OperatingSystems[*d.OSInfo]++
			}
		}

		if d.CPUModel != nil {
			summary.CPUModels[*d.CPUModel]++
		}

		if segment, ok := util.SegmentOf(d.ConnectionIP); ok {
			summary.NetworkSegments[segment]++
		}

		if d.DiskUsePercent != nil {
			if pct, ok := util.ParsePercent(*d.DiskUsePercent); ok && pct > highDiskUsageThreshold {
				summary.HighDiskUsage = append(summary.HighDiskUsage, models.ResourceFlag{
					Hostname:     d.Hostname,
					ConnectionIP: d.ConnectionIP,
					Detail:       fmt.Sprintf("disk usage %d%%", pct),
				})
			}
		}

		if d.CPUCores != nil && d.MemoryTotal != nil {
			if memGB, ok := util.ParseGigabytes(*d.MemoryTotal); ok &&
				*d.CPUCores <= lowResourceCores && memGB <= lowResourceMemoryGB {
				summary.LowResources = append(summary.LowResources, models.ResourceFlag{
					Hostname:     d.Hostname,
					ConnectionIP: d.ConnectionIP,
					Detail:       fmt.Sprintf("%d core(s), %s memory", *d.CPUCores, *d.MemoryTotal),
				})
			}
		}
	}

	summary.OfflineDevices = summary.TotalDevices - summary.OnlineDevices
	return summary
}
