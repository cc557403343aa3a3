package analytics

import (
	"fmt"
	"sort"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/util"
)

const (
	lbMinCores     = 4
	lbMinMemoryGB  = 4.0
	dbMaxDiskUse   = 50
	dbMinMemoryGB  = 8.0
	upgMaxCores    = 2
	upgMaxMemoryGB = 4.0
)

// Suggest derives scored placement suggestions from the online fleet.
// Categories are not mutually exclusive; a device missing a numeric field
// is excluded from that specific list's evaluation only.
func Suggest(devices []models.Device) *models.Suggestions {
	s := &models.Suggestions{
		LoadBalancerCandidates: []models.Candidate{},
		DatabaseCandidates:     []models.Candidate{},
		MonitoringTargets:      []models.Candidate{},
		UpgradeRecommendations: []models.Candidate{},
	}

	for i := range devices {
		d := &devices[i]
		if !d.Online() {
			continue
		}

		s.MonitoringTargets = append(s.MonitoringTargets, models.Candidate{
			Hostname:     d.Hostname,
			ConnectionIP: d.ConnectionIP,
			Score:        1,
			Reason:       "reachable host",
		})

		cores, hasCores := coresOf(d)
		memGB, hasMem := memoryOf(d)
		diskUse, hasDisk := diskUseOf(d)

		if hasCores && hasMem && cores >= lbMinCores && memGB >= lbMinMemoryGB {
			s.LoadBalancerCandidates = append(s.LoadBalancerCandidates, models.Candidate{
				Hostname:     d.Hostname,
				ConnectionIP: d.ConnectionIP,
				Score:        float64(cores) + memGB,
				Reason:       fmt.Sprintf("%d cores, %.1fG memory", cores, memGB),
			})
		}

		if hasDisk && hasMem && diskUse < dbMaxDiskUse && memGB >= dbMinMemoryGB {
			s.DatabaseCandidates = append(s.DatabaseCandidates, models.Candidate{
				Hostname:     d.Hostname,
				ConnectionIP: d.ConnectionIP,
				Score:        memGB + float64(dbMaxDiskUse-diskUse)/10,
				Reason:       fmt.Sprintf("%.1fG memory, disk %d%% used", memGB, diskUse),
			})
		}

		if hasCores && hasMem && cores <= upgMaxCores && memGB <= upgMaxMemoryGB {
			s.UpgradeRecommendations = append(s.UpgradeRecommendations, models.Candidate{
				Hostname:     d.Hostname,
				ConnectionIP: d.ConnectionIP,
				Score:        (upgMaxMemoryGB - memGB) + float64(upgMaxCores-cores),
				Reason:       fmt.Sprintf("only %d core(s) and %.1fG memory", cores, memGB),
			})
		}
	}

	sortByScore(s.LoadBalancerCandidates)
	sortByScore(s.DatabaseCandidates)
	sortByScore(s.MonitoringTargets)
	sortByScore(s.UpgradeRecommendations)
	return s
}

func sortByScore(list []models.Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Hostname < list[j].Hostname
	})
}

func coresOf(d *models.Device) (int, bool) {
	if d.CPUCores == nil {
		return 0, false
	}
	return *d.CPUCores, true
}

func memoryOf(d *models.Device) (float64, bool) {
	if d.MemoryTotal == nil {
		return 0, false
	}
	return util.ParseGigabytes(*d.MemoryTotal)
}

func diskUseOf(d *models.Device) (int, bool) {
	if d.DiskUsePercent == nil {
		return 0, false
	}
	return util.ParsePercent(*d.DiskUsePercent)
}
