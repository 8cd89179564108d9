// Package observability holds the agent's Prometheus self-metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for agent self-monitoring.
// It uses a custom registry to avoid polluting the global default.
type Metrics struct {
	Registry *prometheus.Registry

	// Run metrics
	RunDuration prometheus.Histogram
	RunsTotal   *prometheus.CounterVec

	// Fleet metrics
	ClustersDiscovered prometheus.Gauge
	ClustersAnalyzed   *prometheus.CounterVec
	NamespacesAnalyzed prometheus.Counter
	PodsObserved       prometheus.Counter

	// Incident metrics
	IncidentsFetched    prometheus.Counter
	IncidentsCorrelated prometheus.Counter

	// History metrics
	HistoryEntries prometheus.Gauge

	// Publish metrics
	PublishDuration  prometheus.Histogram
	PublishSizeBytes *prometheus.HistogramVec
	PublishTotal     *prometheus.CounterVec

	// Transport metrics
	TransportRetries prometheus.Counter

	// State metrics
	AgentState *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all Prometheus metrics
// registered on a custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	sizeBuckets := prometheus.ExponentialBuckets(1024, 4, 10)

	m := &Metrics{
		Registry: reg,

		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubehealth_agent_run_duration_seconds",
			Help:    "Duration of full assessment runs in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubehealth_agent_runs_total",
			Help: "Total number of assessment runs.",
		}, []string{"status"}),

		ClustersDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubehealth_agent_clusters_discovered",
			Help: "Number of clusters matched by the fleet prefix in the last run.",
		}),
		ClustersAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubehealth_agent_clusters_analyzed_total",
			Help: "Total number of per-cluster observations.",
		}, []string{"result"}),
		NamespacesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubehealth_agent_namespaces_analyzed_total",
			Help: "Total number of tenant namespaces analyzed.",
		}),
		PodsObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubehealth_agent_pods_observed_total",
			Help: "Total number of pods observed across all runs.",
		}),

		IncidentsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubehealth_agent_incidents_fetched_total",
			Help: "Total number of incidents fetched from PagerDuty.",
		}),
		IncidentsCorrelated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubehealth_agent_incidents_correlated_total",
			Help: "Total number of incident-to-namespace correlations.",
		}),

		HistoryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubehealth_agent_history_entries",
			Help: "Number of entries currently retained in the rolling history.",
		}),

		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubehealth_agent_publish_duration_seconds",
			Help:    "Duration of snapshot publish operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		PublishSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kubehealth_agent_publish_size_bytes",
			Help:    "Size of published snapshots in bytes.",
			Buckets: sizeBuckets,
		}, []string{"type"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubehealth_agent_publish_total",
			Help: "Total number of snapshot publish attempts.",
		}, []string{"target", "status"}),

		TransportRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubehealth_agent_transport_retries_total",
			Help: "Total number of transport retry attempts.",
		}),

		AgentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubehealth_agent_state",
			Help: "Current agent state (1 = active, 0 = inactive).",
		}, []string{"state"}),
	}

	// Register all metrics with the custom registry.
	reg.MustRegister(
		m.RunDuration,
		m.RunsTotal,
		m.ClustersDiscovered,
		m.ClustersAnalyzed,
		m.NamespacesAnalyzed,
		m.PodsObserved,
		m.IncidentsFetched,
		m.IncidentsCorrelated,
		m.HistoryEntries,
		m.PublishDuration,
		m.PublishSizeBytes,
		m.PublishTotal,
		m.TransportRetries,
		m.AgentState,
	)

	return m
}
