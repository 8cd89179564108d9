// Package snapshot builds the per-run system snapshot: parallel cluster
// observation, sequential analysis, deterministic assembly.
package snapshot

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kubehealth/kubehealth-agent/internal/analysis"
	"github.com/kubehealth/kubehealth-agent/internal/fleet"
	"github.com/kubehealth/kubehealth-agent/internal/observability"
	"github.com/kubehealth/kubehealth-agent/internal/observe"
	"github.com/kubehealth/kubehealth-agent/pkg/model"
	"k8s.io/client-go/kubernetes"
)

// ClusterState is the raw observation of one cluster before analysis.
type ClusterState struct {
	Cluster    fleet.Cluster
	Namespaces map[string][]model.PodObservation

	// Partial is set when some namespaces could not be read; the
	// cluster record is marked data_complete=false.
	Partial bool

	// Err is set when the cluster could not be observed at all.
	Err error
}

// Builder observes the fleet. Observation of distinct clusters runs in
// parallel; each worker writes only its own slot, so the merge after
// Wait needs no locking.
type Builder struct {
	discoverer  fleet.Discoverer
	connector   fleet.Connector
	newSource   func(kubernetes.Interface) observe.Source
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewBuilder creates a Builder. concurrency bounds the number of
// clusters observed at once.
func NewBuilder(discoverer fleet.Discoverer, connector fleet.Connector, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		discoverer: discoverer,
		connector:  connector,
		newSource: func(client kubernetes.Interface) observe.Source {
			return observe.NewKubeSource(client)
		},
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Observe discovers the fleet and reads every cluster's tenant state.
// The result preserves discovery order. A cluster that cannot be
// observed is returned with Err set, never dropped: the degraded-data
// policy is applied during analysis, not here.
func (b *Builder) Observe(ctx context.Context) ([]ClusterState, error) {
	clusters, err := b.discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if b.metrics != nil {
		b.metrics.ClustersDiscovered.Set(float64(len(clusters)))
	}

	states := make([]ClusterState, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, cluster := range clusters {
		g.Go(func() error {
			states[i] = b.observeCluster(gctx, cluster)
			return nil
		})
	}
	// Workers never return errors; Wait is a join.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return states, nil
}

func (b *Builder) observeCluster(ctx context.Context, cluster fleet.Cluster) ClusterState {
	start := time.Now()
	state := ClusterState{Cluster: cluster}

	client, err := b.connector.Connect(ctx, cluster)
	if err != nil {
		b.logger.Error("cluster connection failed",
			"cluster", cluster.Name,
			"error", err,
		)
		state.Err = err
		return state
	}

	src := b.newSource(client)
	namespaces, err := src.ListTenantNamespaces(ctx)
	if err != nil {
		b.logger.Error("namespace listing failed",
			"cluster", cluster.Name,
			"error", err,
		)
		state.Err = err
		return state
	}

	state.Namespaces = make(map[string][]model.PodObservation, len(namespaces))
	for _, ns := range namespaces {
		pods, err := src.GetPodObservations(ctx, ns)
		if err != nil {
			b.logger.Warn("pod listing failed, namespace skipped",
				"cluster", cluster.Name,
				"namespace", ns,
				"error", err,
			)
			state.Partial = true
			continue
		}
		state.Namespaces[ns] = pods
		if b.metrics != nil {
			b.metrics.PodsObserved.Add(float64(len(pods)))
		}
	}

	b.logger.Info("cluster observed",
		"cluster", cluster.Name,
		"namespaces", len(state.Namespaces),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return state
}

// TenantNamespaces returns the union of tenant namespaces across all
// observed clusters, sorted, for incident correlation.
func TenantNamespaces(states []ClusterState) []string {
	seen := map[string]struct{}{}
	for _, st := range states {
		for ns := range st.Namespaces {
			seen[ns] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Analyze turns raw cluster states into assessed cluster records.
// Namespaces are processed in sorted order so the output is
// deterministic. An unobservable cluster yields a record with
// status=Advertencia and data_complete=false: stale visibility is a
// warning, not proof of an outage.
func Analyze(states []ClusterState, correlations map[string][]model.IncidentRef, resolve func(uuid string) string, th analysis.Thresholds) []model.ClusterRecord {
	records := make([]model.ClusterRecord, 0, len(states))

	for _, st := range states {
		rec := model.ClusterRecord{
			Name:              st.Cluster.Name,
			Location:          st.Cluster.Location,
			KubernetesVersion: st.Cluster.KubernetesVersion,
			Namespaces:        []model.NamespaceRecord{},
		}

		if st.Err != nil {
			rec.Status = model.StatusAdvertencia
			rec.DataComplete = false
			records = append(records, rec)
			continue
		}

		names := make([]string, 0, len(st.Namespaces))
		for ns := range st.Namespaces {
			names = append(names, ns)
		}
		sort.Strings(names)

		for _, ns := range names {
			rec.Namespaces = append(rec.Namespaces,
				analysis.AnalyzeNamespace(ns, resolve(ns), st.Namespaces[ns], correlations[ns], th))
		}

		rec.Status = analysis.ClusterStatus(rec.Namespaces)
		rec.DataComplete = !st.Partial
		records = append(records, rec)
	}
	return records
}
