package snapshot

import (
	"time"

	"github.com/kubehealth/kubehealth-agent/internal/analysis"
	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// Assemble composes the final system snapshot from assessed cluster
// records and the serialized history. Given identical inputs and the
// same timestamp it produces an identical document.
func Assemble(records []model.ClusterRecord, hist model.HistoricalData, now time.Time) model.SystemSnapshot {
	if records == nil {
		records = []model.ClusterRecord{}
	}
	if hist.Timestamps == nil {
		hist.Timestamps = []string{}
	}
	if hist.AvailabilityHistory == nil {
		hist.AvailabilityHistory = []int{}
	}
	if hist.IncidentHistory == nil {
		hist.IncidentHistory = []int{}
	}
	return model.SystemSnapshot{
		LastUpdated:    now.UTC().Format(time.RFC3339),
		OverallStatus:  analysis.OverallStatus(records),
		Summary:        summarize(records),
		Clusters:       records,
		HistoricalData: hist,
	}
}

// summarize computes the dashboard headline counters.
// pods_with_issues counts pending plus failed pods: every observed pod
// is either running or an issue.
func summarize(records []model.ClusterRecord) model.Summary {
	s := model.Summary{TotalClusters: len(records)}

	activeIncidents := map[string]struct{}{}
	for _, cluster := range records {
		s.TotalNamespacesMonitored += len(cluster.Namespaces)
		for _, ns := range cluster.Namespaces {
			s.PodsRunning += ns.Pods.Running
			s.PodsWithIssues += ns.Pods.Pending + ns.Pods.Failed
			for _, inc := range ns.RelatedIncidents {
				if inc.Active() {
					activeIncidents[inc.ID] = struct{}{}
				}
			}
		}
	}
	s.ActiveIncidents = len(activeIncidents)
	return s
}
