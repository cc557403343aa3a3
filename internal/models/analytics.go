package models

// TopologySummary is the aggregate view computed over the full device list.
type TopologySummary struct {
	TotalDevices     int            `json:"total_devices"`
	OnlineDevices    int            `json:"online_devices"`
	OfflineDevices   int            `json:"offline_devices"`
	OperatingSystems map[string]int `json:"operating_systems"`
	CPUModels        map[string]int `json:"cpu_models"`
	NetworkSegments  map[string]int `json:"network_segments"`
	HighDiskUsage    []ResourceFlag `json:"high_disk_usage"`
	LowResources     []ResourceFlag `json:"low_resources"`
}

// ResourceFlag points at a device that tripped a resource threshold.
type ResourceFlag struct {
	Hostname     string `json:"hostname"`
	ConnectionIP string `json:"connection_ip"`
	Detail       string `json:"detail"`
}

// Suggestions groups scored placement candidates derived from the online
// fleet. A device may appear in more than one list.
type Suggestions struct {
	LoadBalancerCandidates []Candidate `json:"load_balancer_candidates"`
	DatabaseCandidates     []Candidate `json:"database_candidates"`
	MonitoringTargets      []Candidate `json:"monitoring_targets"`
	UpgradeRecommendations []Candidate `json:"upgrade_recommendations"`
}

// Candidate is one scored placement suggestion.
type Candidate struct {
	Hostname     string  `json:"hostname"`
	ConnectionIP string  `json:"connection_ip"`
	Score        float64 `json:"score"`
	Reason       string  `json:"reason"`
}
