package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

const nsUUID = "3f2a1b4c-5d6e-4f70-8a91-b2c3d4e5f601"

func TestAnalyzeNamespace_PhasePartition(t *testing.T) {
	pods := []model.PodObservation{
		{Name: "a", Phase: "Running"},
		{Name: "b", Phase: "Running"},
		{Name: "c", Phase: "Pending"},
		{Name: "d", Phase: "Failed"},
		{Name: "e", Phase: "Unknown"}, // counted as failed
	}

	rec := AnalyzeNamespace(nsUUID, "Acme Corp", pods, nil, DefaultThresholds())

	assert.Equal(t, 2, rec.Pods.Running)
	assert.Equal(t, 1, rec.Pods.Pending)
	assert.Equal(t, 2, rec.Pods.Failed)

	// Partition invariant: running+pending+failed = observed pods.
	assert.Equal(t, len(pods), rec.Pods.Running+rec.Pods.Pending+rec.Pods.Failed)
}

func TestAnalyzeNamespace_RestartTotals(t *testing.T) {
	pods := []model.PodObservation{
		{Phase: "Running", Containers: []model.ContainerObservation{
			{Name: "app", RestartCount: 2},
			{Name: "sidecar", RestartCount: 1},
		}},
		{Phase: "Running", Containers: []model.ContainerObservation{
			{Name: "app", RestartCount: 4},
		}},
	}

	rec := AnalyzeNamespace(nsUUID, "Acme Corp", pods, nil, DefaultThresholds())
	assert.Equal(t, 7, rec.Pods.Restarts)
}

func TestAnalyzeNamespace_EmptyNamespace(t *testing.T) {
	rec := AnalyzeNamespace(nsUUID, "Acme Corp", nil, nil, DefaultThresholds())

	assert.Equal(t, 100, rec.AvailabilityPercentage)
	assert.Equal(t, model.StatusSaludable, rec.Status)
	assert.Empty(t, rec.Issues)
	// related_incidents serializes as [], never null.
	require.NotNil(t, rec.RelatedIncidents)
}

func TestAnalyzeNamespace_ResolverOutputPassedThrough(t *testing.T) {
	rec := AnalyzeNamespace(nsUUID, nsUUID, nil, nil, DefaultThresholds())
	// An unresolved tenant keeps the raw uuid as its display name.
	assert.Equal(t, nsUUID, rec.OrganizationName)
}

func TestAnalyzeNamespace_Issues(t *testing.T) {
	pods := []model.PodObservation{
		{Phase: "Running", Containers: []model.ContainerObservation{
			{Name: "app", WaitReason: "CrashLoopBackOff", RestartCount: 15},
		}},
		{Phase: "Pending", Containers: []model.ContainerObservation{
			{Name: "app", WaitReason: "ImagePullBackOff"},
		}},
		{Phase: "Failed"},
	}

	rec := AnalyzeNamespace(nsUUID, "Acme Corp", pods, nil, DefaultThresholds())

	assert.Equal(t, model.StatusCritico, rec.Status)
	assert.Contains(t, rec.Issues, "1 contenedores en CrashLoopBackOff")
	assert.Contains(t, rec.Issues, "1 contenedores con errores de imagen")
	assert.Contains(t, rec.Issues, "1 pods fallidos")
	assert.Contains(t, rec.Issues, "1 pods pendientes")
	assert.Contains(t, rec.Issues, "Reinicios excesivos: 15 en total")
}

func TestAnalyzeNamespace_IncidentsAttached(t *testing.T) {
	incidents := []model.IncidentRef{
		{ID: "P2", Status: "triggered", CreatedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)},
		{ID: "P1", Status: "resolved", CreatedAt: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)},
	}
	pods := []model.PodObservation{{Phase: "Running"}}

	rec := AnalyzeNamespace(nsUUID, "Acme Corp", pods, incidents, DefaultThresholds())

	assert.Equal(t, incidents, rec.RelatedIncidents)
	assert.Equal(t, model.StatusAdvertencia, rec.Status)
}

func TestSystemAvailability(t *testing.T) {
	clusters := []model.ClusterRecord{
		{Namespaces: []model.NamespaceRecord{
			{AvailabilityPercentage: 100},
			{AvailabilityPercentage: 90},
		}},
		{Namespaces: []model.NamespaceRecord{
			{AvailabilityPercentage: 80},
		}},
	}
	assert.Equal(t, 90, SystemAvailability(clusters))
}

func TestSystemAvailability_NoNamespaces(t *testing.T) {
	assert.Equal(t, 100, SystemAvailability(nil))
	assert.Equal(t, 100, SystemAvailability([]model.ClusterRecord{{Name: "empty"}}))
}
