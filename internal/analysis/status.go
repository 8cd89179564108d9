package analysis

import (
	"math"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// crashLoopReason is the container wait reason that forces a namespace
// to Crítico regardless of availability.
const crashLoopReason = "CrashLoopBackOff"

// Thresholds carries the status policy knobs. They are configuration,
// not constants: tests and deployments tune them independently.
type Thresholds struct {
	CriticalAvailabilityPct int // below this → Crítico (default 90)
	WarningAvailabilityPct  int // below this → Advertencia (default 95)
	HighRestartCount        int // any pod restarting more than this → Crítico (default 10)
}

// DefaultThresholds returns the documented default policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalAvailabilityPct: 90,
		WarningAvailabilityPct:  95,
		HighRestartCount:        10,
	}
}

// Availability computes the namespace availability percentage:
// round(100 * running / (running+pending+failed)), clamped to [0, 100].
// A namespace with zero observed pods reports 100%: no load, no
// failure. That rule short-circuits before the quotient so an empty
// namespace never reads as an outage.
func Availability(running, pending, failed int) int {
	total := running + pending + failed
	if total == 0 {
		return 100
	}
	pct := int(math.Round(100 * float64(running) / float64(total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// StatusFor evaluates the three-level status for a namespace. The
// precedence order is fixed and first-match-wins:
//
//  1. Crítico: availability below the critical threshold, OR any
//     container in CrashLoopBackOff, OR any pod restarting beyond the
//     high-restart threshold.
//  2. Advertencia: availability below the warning threshold, OR at
//     least one active related incident.
//  3. Saludable otherwise.
//
// An incident on its own never makes a namespace Crítico, and a mildly
// degraded namespace with an incident stays Advertencia: the critical
// rule is evaluated to completion before incidents are consulted.
func StatusFor(availability int, pods []model.PodObservation, incidents []model.IncidentRef, th Thresholds) model.Status {
	if availability < th.CriticalAvailabilityPct || hasCrashLoop(pods) || hasHighRestarts(pods, th.HighRestartCount) {
		return model.StatusCritico
	}

	if availability < th.WarningAvailabilityPct || hasActiveIncident(incidents) {
		return model.StatusAdvertencia
	}

	return model.StatusSaludable
}

func hasCrashLoop(pods []model.PodObservation) bool {
	for _, p := range pods {
		for _, c := range p.Containers {
			if c.WaitReason == crashLoopReason {
				return true
			}
		}
	}
	return false
}

func hasHighRestarts(pods []model.PodObservation, threshold int) bool {
	for _, p := range pods {
		if p.Restarts() > threshold {
			return true
		}
	}
	return false
}

func hasActiveIncident(incidents []model.IncidentRef) bool {
	for _, inc := range incidents {
		if inc.Active() {
			return true
		}
	}
	return false
}

// ClusterStatus is the worst status among a cluster's namespaces.
// A cluster with zero tenant namespaces is Saludable by definition.
func ClusterStatus(namespaces []model.NamespaceRecord) model.Status {
	statuses := make([]model.Status, 0, len(namespaces))
	for _, ns := range namespaces {
		statuses = append(statuses, ns.Status)
	}
	return model.WorstOf(statuses)
}

// OverallStatus is the worst status among all clusters.
func OverallStatus(clusters []model.ClusterRecord) model.Status {
	statuses := make([]model.Status, 0, len(clusters))
	for _, c := range clusters {
		statuses = append(statuses, c.Status)
	}
	return model.WorstOf(statuses)
}
