package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Severity(t *testing.T) {
	assert.Greater(t, StatusCritico.Severity(), StatusAdvertencia.Severity())
	assert.Greater(t, StatusAdvertencia.Severity(), StatusSaludable.Severity())
	assert.Greater(t, StatusSaludable.Severity(), Status("garbage").Severity())
}

func TestWorst(t *testing.T) {
	assert.Equal(t, StatusCritico, Worst(StatusSaludable, StatusCritico))
	assert.Equal(t, StatusCritico, Worst(StatusCritico, StatusAdvertencia))
	assert.Equal(t, StatusAdvertencia, Worst(StatusAdvertencia, StatusSaludable))

	// Ties resolve to the status itself.
	assert.Equal(t, StatusAdvertencia, Worst(StatusAdvertencia, StatusAdvertencia))
}

func TestWorstOf(t *testing.T) {
	assert.Equal(t, StatusCritico, WorstOf([]Status{
		StatusSaludable, StatusAdvertencia, StatusCritico,
	}))
	assert.Equal(t, StatusSaludable, WorstOf([]Status{StatusSaludable}))

	// Empty set: vacuously healthy, not an error.
	assert.Equal(t, StatusSaludable, WorstOf(nil))
}

func TestPodObservation_Restarts(t *testing.T) {
	pod := PodObservation{
		Containers: []ContainerObservation{
			{Name: "app", RestartCount: 3},
			{Name: "sidecar", RestartCount: 2},
		},
	}
	assert.Equal(t, 5, pod.Restarts())
	assert.Equal(t, 0, PodObservation{}.Restarts())
}

func TestIncidentRef_Active(t *testing.T) {
	now := time.Now()
	assert.True(t, IncidentRef{Status: "triggered", CreatedAt: now}.Active())
	assert.True(t, IncidentRef{Status: "acknowledged", CreatedAt: now}.Active())
	assert.False(t, IncidentRef{Status: "resolved", CreatedAt: now}.Active())
	assert.False(t, IncidentRef{Status: "", CreatedAt: now}.Active())
}
