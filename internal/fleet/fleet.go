// Package fleet discovers the AKS clusters the agent monitors and opens
// Kubernetes API connections to them.
package fleet

import (
	"context"

	"k8s.io/client-go/kubernetes"
)

// Cluster identifies one managed cluster in the fleet.
type Cluster struct {
	Name              string
	Location          string
	KubernetesVersion string
	ResourceGroup     string
}

// Discoverer enumerates the clusters to monitor.
type Discoverer interface {
	// Discover returns the monitored clusters in a stable order.
	Discover(ctx context.Context) ([]Cluster, error)
}

// Connector opens a Kubernetes client for a discovered cluster.
type Connector interface {
	Connect(ctx context.Context, cluster Cluster) (kubernetes.Interface, error)
}
