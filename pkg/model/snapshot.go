package model

import "time"

// PodObservation is one pod's reported state at scrape time. It is
// produced fresh on every run by the cluster observation source and is
// never persisted.
type PodObservation struct {
	Name       string
	Phase      string // Running | Pending | Failed | Unknown
	Containers []ContainerObservation
}

// ContainerObservation carries the per-container fields the health
// model cares about: restart count and the last-known wait reason.
type ContainerObservation struct {
	Name         string
	Ready        bool
	RestartCount int32
	WaitReason   string // e.g. CrashLoopBackOff, ImagePullBackOff
}

// Restarts returns the total restart count across all containers.
func (p PodObservation) Restarts() int {
	var total int
	for _, c := range p.Containers {
		total += int(c.RestartCount)
	}
	return total
}

// IncidentRef is a reference to one PagerDuty incident attributed to a
// tenant namespace.
type IncidentRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Status    string    `json:"status"` // triggered | acknowledged | resolved
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the incident is still open.
func (i IncidentRef) Active() bool {
	return i.Status == "triggered" || i.Status == "acknowledged"
}

// PodCounts partitions the pods observed in a namespace by phase.
// Running + Pending + Failed equals the total observed pods.
type PodCounts struct {
	Running  int `json:"running"`
	Pending  int `json:"pending"`
	Failed   int `json:"failed"`
	Restarts int `json:"restarts"`
}

// NamespaceRecord is the aggregated view of one tenant namespace within
// one cluster for the current run.
type NamespaceRecord struct {
	UUID                   string        `json:"uuid"`
	OrganizationName       string        `json:"organization_name"`
	Status                 Status        `json:"status"`
	AvailabilityPercentage int           `json:"availability_percentage"`
	Pods                   PodCounts     `json:"pods"`
	RelatedIncidents       []IncidentRef `json:"related_incidents"`
	Issues                 []string      `json:"issues,omitempty"`
}

// ClusterRecord is the per-run record for one fleet cluster. Namespaces
// are in discovery order. DataComplete is false when the namespace
// listing could not be obtained; such clusters are still included so
// the summary counts stay honest.
type ClusterRecord struct {
	Name              string            `json:"name"`
	Location          string            `json:"location,omitempty"`
	KubernetesVersion string            `json:"kubernetes_version,omitempty"`
	Status            Status            `json:"status"`
	DataComplete      bool              `json:"data_complete"`
	Namespaces        []NamespaceRecord `json:"namespaces"`
}

// Summary holds the system-wide counts for the current run.
type Summary struct {
	TotalClusters            int `json:"total_clusters"`
	TotalNamespacesMonitored int `json:"total_namespaces_monitored"`
	PodsRunning              int `json:"pods_running"`
	PodsWithIssues           int `json:"pods_with_issues"`
	ActiveIncidents          int `json:"active_incidents"`
}

// HistoricalData is the serialized form of the rolling history: three
// parallel arrays in ascending timestamp order. The parallel-array
// layout is a property of the output document, not of the store.
type HistoricalData struct {
	Timestamps          []string `json:"timestamps"`
	AvailabilityHistory []int    `json:"availability_history"`
	IncidentHistory     []int    `json:"incident_history"`
}

// SystemSnapshot is the output document consumed by the dashboard.
// The top-level keys and their types are a compatibility contract with
// the rendering component and must be preserved exactly.
type SystemSnapshot struct {
	LastUpdated    string          `json:"last_updated"` // UTC, RFC3339
	OverallStatus  Status          `json:"overall_status"`
	Summary        Summary         `json:"summary"`
	Clusters       []ClusterRecord `json:"clusters"`
	HistoricalData HistoricalData  `json:"historical_data"`
}
