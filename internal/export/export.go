// Package export renders the device inventory as an xlsx workbook, one
// sheet for the device list and one for the topology summary.
package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/homefleet/inventoryd/internal/models"
)

const (
	devicesSheet  = "Devices"
	topologySheet = "Topology"
)

var deviceHeader = []string{
	"Hostname", "Connection IP", "Status", "CPU Model", "CPU Cores",
	"Memory Total", "Disk Use", "OS", "Uptime", "Last Seen", "Error",
}

// WriteFleetReport writes the workbook to path, overwriting any existing
// file.
func WriteFleetReport(path string, devices []models.Device, summary *models.TopologySummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeDevicesSheet(f, devices); err != nil {
		return err
	}
	if err := writeTopologySheet(f, summary); err != nil {
		return err
	}

	// The workbook opens as an empty "Sheet1" by default.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeDevicesSheet(f *excelize.File, devices []models.Device) error {
	if _, err := f.NewSheet(devicesSheet); err != nil {
		return err
	}

	header, err := headerStyle(f)
	if err != nil {
		return err
	}
	for col, title := range deviceHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(devicesSheet, cell, title); err != nil {
			return err
		}
		if err := f.SetCellStyle(devicesSheet, cell, cell, header); err != nil {
			return err
		}
	}

	for i, d := range devices {
		row := []any{
			d.Hostname,
			d.ConnectionIP,
			string(d.Status),
			deref(d.CPUModel),
			derefInt(d.CPUCores),
			deref(d.MemoryTotal),
			deref(d.DiskUsePercent),
			deref(d.OSInfo),
			deref(d.Uptime),
			formatTime(d.LastSeen),
			deref(d.ErrorMessage),
		}
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(devicesSheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SetColWidth(devicesSheet, "A", "K", 20)
}

func writeTopologySheet(f *excelize.File, summary *models.TopologySummary) error {
	if _, err := f.NewSheet(topologySheet); err != nil {
		return err
	}

	header, err := headerStyle(f)
	if err != nil {
		return err
	}

	row := 1
	writePair := func(k string, v any) error {
		kCell, _ := excelize.CoordinatesToCellName(1, row)
		vCell, _ := excelize.CoordinatesToCellName(2, row)
		row++
		if err := f.SetCellValue(topologySheet, kCell, k); err != nil {
			return err
		}
		return f.SetCellValue(topologySheet, vCell, v)
	}
	writeSection := func(title string) error {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		row++
		if err := f.SetCellValue(topologySheet, cell, title); err != nil {
			return err
		}
		return f.SetCellStyle(topologySheet, cell, cell, header)
	}

	if err := writeSection("Fleet"); err != nil {
		return err
	}
	if err := writePair("Total devices", summary.TotalDevices); err != nil {
		return err
	}
	if err := writePair("Online", summary.OnlineDevices); err != nil {
		return err
	}
	if err := writePair("Offline", summary.OfflineDevices); err != nil {
		return err
	}
	row++

	for _, section := range []struct {
		title string
		data  map[string]int
	}{
		{"Operating systems", summary.OperatingSystems},
		{"CPU models", summary.CPUModels},
		{"Network segments", summary.NetworkSegments},
	} {
		if err := writeSection(section.title); err != nil {
			return err
		}
		for _, k := range sortedKeys(section.data) {
			if err := writePair(k, section.data[k]); err != nil {
				return err
			}
		}
		row++
	}

	if err := writeSection("High disk usage"); err != nil {
		return err
	}
	for _, flag := range summary.HighDiskUsage {
		if err := writePair(flag.Hostname, flag.Detail); err != nil {
			return err
		}
	}
	row++

	if err := writeSection("Low resources"); err != nil {
		return err
	}
	for _, flag := range summary.LowResources {
		if err := writePair(flag.Hostname, flag.Detail); err != nil {
			return err
		}
	}

	return f.SetColWidth(topologySheet, "A", "B", 30)
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) any {
	if i == nil {
		return ""
	}
	return *i
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic sheet layout regardless of map order.
	sort.Strings(keys)
	return keys
}
