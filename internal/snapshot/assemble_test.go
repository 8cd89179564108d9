package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

var now = time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC)

func sampleRecords() []model.ClusterRecord {
	return []model.ClusterRecord{
		{
			Name:   "aks-01",
			Status: model.StatusSaludable,
			Namespaces: []model.NamespaceRecord{
				{
					UUID:             nsAcme,
					Status:           model.StatusSaludable,
					Pods:             model.PodCounts{Running: 8, Pending: 1, Failed: 1},
					RelatedIncidents: []model.IncidentRef{},
				},
			},
			DataComplete: true,
		},
		{
			Name:   "aks-02",
			Status: model.StatusCritico,
			Namespaces: []model.NamespaceRecord{
				{
					UUID:   nsGlobex,
					Status: model.StatusCritico,
					Pods:   model.PodCounts{Running: 3, Failed: 2},
					RelatedIncidents: []model.IncidentRef{
						{ID: "P1", Status: "triggered", CreatedAt: now.Add(-time.Hour)},
						{ID: "P2", Status: "resolved", CreatedAt: now.Add(-2 * time.Hour)},
					},
				},
			},
			DataComplete: true,
		},
	}
}

func TestAssemble_Summary(t *testing.T) {
	snap := Assemble(sampleRecords(), model.HistoricalData{}, now)

	assert.Equal(t, "2026-08-24T12:30:00Z", snap.LastUpdated)
	assert.Equal(t, model.StatusCritico, snap.OverallStatus)
	assert.Equal(t, 2, snap.Summary.TotalClusters)
	assert.Equal(t, 2, snap.Summary.TotalNamespacesMonitored)
	assert.Equal(t, 11, snap.Summary.PodsRunning)
	// pods_with_issues = pending + failed across all namespaces.
	assert.Equal(t, 4, snap.Summary.PodsWithIssues)
	// Resolved incidents do not count as active.
	assert.Equal(t, 1, snap.Summary.ActiveIncidents)
}

func TestAssemble_ActiveIncidentsDeduplicated(t *testing.T) {
	records := sampleRecords()
	// The same incident correlated to a second namespace counts once.
	records[0].Namespaces[0].RelatedIncidents = []model.IncidentRef{
		{ID: "P1", Status: "triggered", CreatedAt: now.Add(-time.Hour)},
	}

	snap := Assemble(records, model.HistoricalData{}, now)
	assert.Equal(t, 1, snap.Summary.ActiveIncidents)
}

func TestAssemble_Deterministic(t *testing.T) {
	hist := model.HistoricalData{
		Timestamps:          []string{"2026-08-24T12:00:00Z"},
		AvailabilityHistory: []int{95},
		IncidentHistory:     []int{1},
	}

	a, err := json.Marshal(Assemble(sampleRecords(), hist, now))
	require.NoError(t, err)
	b, err := json.Marshal(Assemble(sampleRecords(), hist, now))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAssemble_EmptyFleet(t *testing.T) {
	snap := Assemble(nil, model.HistoricalData{}, now)

	assert.Equal(t, model.StatusSaludable, snap.OverallStatus)
	assert.Equal(t, 0, snap.Summary.TotalClusters)
	require.NotNil(t, snap.Clusters)
	assert.Empty(t, snap.Clusters)
}

func TestAssemble_OutputContractKeys(t *testing.T) {
	data, err := json.Marshal(Assemble(sampleRecords(), model.HistoricalData{}, now))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))

	for _, key := range []string{"last_updated", "overall_status", "summary", "clusters", "historical_data"} {
		assert.Contains(t, doc, key)
	}
	assert.Len(t, doc, 5)

	var summary map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["summary"], &summary))
	for _, key := range []string{"total_clusters", "total_namespaces_monitored", "pods_running", "pods_with_issues", "active_incidents"} {
		assert.Contains(t, summary, key)
	}
	assert.Len(t, summary, 5)
}
