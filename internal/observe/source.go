// Package observe reads the raw per-cluster state the assessments are
// computed from: tenant namespaces and the pods inside them.
package observe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// Source is a read-only view of one cluster's tenant workloads.
type Source interface {
	// ListTenantNamespaces returns the names of namespaces whose name
	// is a tenant UUID, sorted by the API server's default ordering.
	ListTenantNamespaces(ctx context.Context) ([]string, error)

	// GetPodObservations returns the observed pods of one namespace.
	GetPodObservations(ctx context.Context, namespace string) ([]model.PodObservation, error)
}

// KubeSource reads tenant state through a Kubernetes clientset.
type KubeSource struct {
	client kubernetes.Interface
}

// NewKubeSource creates a Source backed by the given clientset.
func NewKubeSource(client kubernetes.Interface) *KubeSource {
	return &KubeSource{client: client}
}

func (s *KubeSource) ListTenantNamespaces(ctx context.Context) ([]string, error) {
	list, err := s.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("observe: listing namespaces: %w", err)
	}

	var names []string
	for _, ns := range list.Items {
		if IsTenantNamespace(ns.Name) {
			names = append(names, ns.Name)
		}
	}
	return names, nil
}

func (s *KubeSource) GetPodObservations(ctx context.Context, namespace string) ([]model.PodObservation, error) {
	list, err := s.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("observe: listing pods in %s: %w", namespace, err)
	}

	out := make([]model.PodObservation, 0, len(list.Items))
	for i := range list.Items {
		pod := &list.Items[i]
		if pod.Status.Phase == corev1.PodSucceeded {
			// Completed jobs are not workload health signal.
			continue
		}
		out = append(out, PodToObservation(pod))
	}
	return out, nil
}

// IsTenantNamespace reports whether a namespace name is a canonical
// 36-character tenant UUID. Infra namespaces (kube-system, default,
// monitoring) never match.
func IsTenantNamespace(name string) bool {
	if len(name) != 36 {
		return false
	}
	_, err := uuid.Parse(name)
	return err == nil
}
