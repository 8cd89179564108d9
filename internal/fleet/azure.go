package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v6"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// AzureDiscoverer lists AKS clusters in one subscription whose name
// carries the monitored prefix, and opens user-credential connections
// to them.
type AzureDiscoverer struct {
	client *armcontainerservice.ManagedClustersClient
	prefix string
	logger *slog.Logger
}

// NewAzureDiscoverer authenticates against Azure with the default
// credential chain (environment, workload identity, managed identity,
// CLI) and targets the given subscription.
func NewAzureDiscoverer(subscriptionID, prefix string, logger *slog.Logger) (*AzureDiscoverer, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("fleet: building azure credential: %w", err)
	}
	return newAzureDiscoverer(subscriptionID, prefix, cred, logger)
}

func newAzureDiscoverer(subscriptionID, prefix string, cred azcore.TokenCredential, logger *slog.Logger) (*AzureDiscoverer, error) {
	client, err := armcontainerservice.NewManagedClustersClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("fleet: creating managed clusters client: %w", err)
	}
	return &AzureDiscoverer{client: client, prefix: prefix, logger: logger}, nil
}

// Discover lists the subscription's managed clusters and keeps those
// matching the prefix, sorted by name so downstream output order is
// stable across runs.
func (d *AzureDiscoverer) Discover(ctx context.Context) ([]Cluster, error) {
	var clusters []Cluster

	pager := d.client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("fleet: listing managed clusters: %w", err)
		}
		for _, mc := range page.Value {
			c, ok := clusterFromManaged(mc, d.prefix)
			if !ok {
				continue
			}
			clusters = append(clusters, c)
		}
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Name < clusters[j].Name })

	d.logger.Info("cluster discovery completed",
		"prefix", d.prefix,
		"clusters", len(clusters),
	)
	return clusters, nil
}

// Connect fetches user credentials for the cluster and builds a
// clientset from the returned kubeconfig.
func (d *AzureDiscoverer) Connect(ctx context.Context, cluster Cluster) (kubernetes.Interface, error) {
	creds, err := d.client.ListClusterUserCredentials(ctx, cluster.ResourceGroup, cluster.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("fleet: fetching credentials for %s: %w", cluster.Name, err)
	}
	if len(creds.Kubeconfigs) == 0 || creds.Kubeconfigs[0].Value == nil {
		return nil, fmt.Errorf("fleet: no kubeconfig returned for %s", cluster.Name)
	}

	restConfig, err := clientcmd.RESTConfigFromKubeConfig(creds.Kubeconfigs[0].Value)
	if err != nil {
		return nil, fmt.Errorf("fleet: parsing kubeconfig for %s: %w", cluster.Name, err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("fleet: building clientset for %s: %w", cluster.Name, err)
	}
	return clientset, nil
}

// clusterFromManaged converts an ARM managed cluster into a fleet
// Cluster, filtering on the name prefix. Clusters missing a name or a
// parseable resource ID are skipped.
func clusterFromManaged(mc *armcontainerservice.ManagedCluster, prefix string) (Cluster, bool) {
	if mc == nil || mc.Name == nil || mc.ID == nil {
		return Cluster{}, false
	}
	name := *mc.Name
	if !strings.HasPrefix(name, prefix) {
		return Cluster{}, false
	}

	rg, ok := resourceGroupFromID(*mc.ID)
	if !ok {
		return Cluster{}, false
	}

	c := Cluster{Name: name, ResourceGroup: rg}
	if mc.Location != nil {
		c.Location = *mc.Location
	}
	if mc.Properties != nil && mc.Properties.KubernetesVersion != nil {
		c.KubernetesVersion = *mc.Properties.KubernetesVersion
	}
	return c, true
}

// resourceGroupFromID extracts the resource group segment of an ARM
// resource ID:
// /subscriptions/{sub}/resourceGroups/{rg}/providers/...
func resourceGroupFromID(id string) (string, bool) {
	parts := strings.Split(id, "/")
	if len(parts) < 5 || !strings.EqualFold(parts[3], "resourceGroups") || parts[4] == "" {
		return "", false
	}
	return parts[4], true
}
