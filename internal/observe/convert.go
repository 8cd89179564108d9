package observe

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// PodToObservation converts a Kubernetes Pod to a model.PodObservation.
// Pure function — no side effects, no time.Now(), no external calls.
func PodToObservation(pod *corev1.Pod) model.PodObservation {
	obs := model.PodObservation{
		Name:  pod.Name,
		Phase: string(pod.Status.Phase),
	}
	if obs.Phase == "" {
		// A pod the API server has not scheduled a phase for yet is
		// counted with the unknowns.
		obs.Phase = string(corev1.PodUnknown)
	}

	if n := len(pod.Status.ContainerStatuses); n > 0 {
		obs.Containers = make([]model.ContainerObservation, 0, n)
		for _, status := range pod.Status.ContainerStatuses {
			c := model.ContainerObservation{
				Name:         status.Name,
				Ready:        status.Ready,
				RestartCount: status.RestartCount,
			}
			if status.State.Waiting != nil {
				c.WaitReason = status.State.Waiting.Reason
			}
			obs.Containers = append(obs.Containers, c)
		}
	}
	return obs
}
