package analysis

import (
	"fmt"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// AnalyzeNamespace reduces one namespace's pod observations and
// attributed incidents to a NamespaceRecord.
//
// Phase counting is a partition: every observed pod lands in exactly
// one of running/pending/failed, so running+pending+failed always
// equals the observed pod count. Pods in phase Unknown are counted as
// failed — an unreachable kubelet is a failure signal, not an excuse.
func AnalyzeNamespace(uuid, orgName string, pods []model.PodObservation, incidents []model.IncidentRef, th Thresholds) model.NamespaceRecord {
	rec := model.NamespaceRecord{
		UUID:             uuid,
		OrganizationName: orgName,
		RelatedIncidents: incidents,
	}
	if rec.RelatedIncidents == nil {
		rec.RelatedIncidents = []model.IncidentRef{}
	}

	for _, p := range pods {
		switch p.Phase {
		case "Running":
			rec.Pods.Running++
		case "Pending":
			rec.Pods.Pending++
		default: // Failed, Unknown
			rec.Pods.Failed++
		}
		rec.Pods.Restarts += p.Restarts()
	}

	rec.AvailabilityPercentage = Availability(rec.Pods.Running, rec.Pods.Pending, rec.Pods.Failed)
	rec.Status = StatusFor(rec.AvailabilityPercentage, pods, incidents, th)
	rec.Issues = extractIssues(rec, pods, th)

	return rec
}

// extractIssues builds the human-readable problem list the dashboard
// shows alongside a degraded namespace.
func extractIssues(rec model.NamespaceRecord, pods []model.PodObservation, th Thresholds) []string {
	var issues []string

	crashLoops := 0
	imagePulls := 0
	for _, p := range pods {
		for _, c := range p.Containers {
			switch {
			case c.WaitReason == crashLoopReason:
				crashLoops++
			case c.WaitReason == "ImagePullBackOff" || c.WaitReason == "ErrImagePull":
				imagePulls++
			}
		}
	}

	if crashLoops > 0 {
		issues = append(issues, fmt.Sprintf("%d contenedores en CrashLoopBackOff", crashLoops))
	}
	if imagePulls > 0 {
		issues = append(issues, fmt.Sprintf("%d contenedores con errores de imagen", imagePulls))
	}
	if rec.Pods.Failed > 0 {
		issues = append(issues, fmt.Sprintf("%d pods fallidos", rec.Pods.Failed))
	}
	if rec.Pods.Pending > 0 {
		issues = append(issues, fmt.Sprintf("%d pods pendientes", rec.Pods.Pending))
	}
	if rec.Pods.Restarts > th.HighRestartCount {
		issues = append(issues, fmt.Sprintf("Reinicios excesivos: %d en total", rec.Pods.Restarts))
	}
	if rec.AvailabilityPercentage < th.WarningAvailabilityPct {
		issues = append(issues, fmt.Sprintf("Disponibilidad baja: %d%%", rec.AvailabilityPercentage))
	}

	return issues
}

// SystemAvailability is the scalar recorded in the rolling history:
// the rounded mean of all namespace availability percentages. With no
// namespaces it is 100, consistent with the zero-pods policy.
func SystemAvailability(clusters []model.ClusterRecord) int {
	var sum, count int
	for _, c := range clusters {
		for _, ns := range c.Namespaces {
			sum += ns.AvailabilityPercentage
			count++
		}
	}
	if count == 0 {
		return 100
	}
	// Integer rounding: (sum + count/2) / count.
	return (sum + count/2) / count
}
