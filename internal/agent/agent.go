// Package agent orchestrates assessment runs: observe the fleet, fetch
// and correlate incidents, analyze, extend history, and publish.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kubehealth/kubehealth-agent/internal/analysis"
	"github.com/kubehealth/kubehealth-agent/internal/config"
	"github.com/kubehealth/kubehealth-agent/internal/errors"
	"github.com/kubehealth/kubehealth-agent/internal/history"
	"github.com/kubehealth/kubehealth-agent/internal/incidents"
	"github.com/kubehealth/kubehealth-agent/internal/observability"
	"github.com/kubehealth/kubehealth-agent/internal/publish"
	"github.com/kubehealth/kubehealth-agent/internal/snapshot"
	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// Observer produces raw cluster states for one run.
type Observer interface {
	Observe(ctx context.Context) ([]snapshot.ClusterState, error)
}

// IncidentFetcher returns the raw incidents of a time window.
type IncidentFetcher interface {
	FetchWindow(ctx context.Context, since, until time.Time) ([]incidents.RawIncident, error)
}

// SnapshotWriter persists a snapshot locally.
type SnapshotWriter interface {
	Write(snap model.SystemSnapshot) (int64, error)
	Path() string
}

// RemoteSender mirrors a snapshot to the remote collector.
type RemoteSender interface {
	Send(ctx context.Context, snap model.SystemSnapshot) (*model.PublishResponse, error)
}

// Agent wires together all subsystems and runs the assessment loop.
type Agent struct {
	config         *config.Config
	observer       Observer
	fetcher        IncidentFetcher
	matcher        incidents.Matcher
	resolve        func(uuid string) string
	writer         SnapshotWriter
	remote         RemoteSender // nil when remote publish is not configured
	stateMachine   *StateMachine
	errorCollector *errors.Collector
	metrics        *observability.Metrics
	clock          errors.Clock
	thresholds     analysis.Thresholds

	latestSnapshot atomic.Pointer[model.SystemSnapshot]
	ready          atomic.Bool
}

// New creates an Agent with all required dependencies. remote may be
// nil when no publish URL is configured.
func New(
	cfg *config.Config,
	observer Observer,
	fetcher IncidentFetcher,
	matcher incidents.Matcher,
	resolve func(uuid string) string,
	writer SnapshotWriter,
	remote RemoteSender,
	stateMachine *StateMachine,
	errCollector *errors.Collector,
	metrics *observability.Metrics,
	clock errors.Clock,
) *Agent {
	return &Agent{
		config:         cfg,
		observer:       observer,
		fetcher:        fetcher,
		matcher:        matcher,
		resolve:        resolve,
		writer:         writer,
		remote:         remote,
		stateMachine:   stateMachine,
		errorCollector: errCollector,
		metrics:        metrics,
		clock:          clock,
		thresholds: analysis.Thresholds{
			CriticalAvailabilityPct: cfg.CriticalAvailabilityPct,
			WarningAvailabilityPct:  cfg.WarningAvailabilityPct,
			HighRestartCount:        cfg.HighRestartThreshold,
		},
	}
}

// IsReady reports whether the agent has published at least one
// snapshot. Implements health.ReadinessChecker.
func (a *Agent) IsReady() bool {
	return a.ready.Load()
}

// LatestSnapshot returns the most recent snapshot, or nil if none has
// been published yet. Implements health.SnapshotProvider.
func (a *Agent) LatestSnapshot() *model.SystemSnapshot {
	return a.latestSnapshot.Load()
}

// DropLatestSnapshot releases the retained snapshot pointer. Used as
// the memory pressure callback.
func (a *Agent) DropLatestSnapshot() {
	a.latestSnapshot.Store(nil)
}

// RunOnce executes one full assessment run. A failed run writes
// nothing: the previous snapshot stays in place untouched.
func (a *Agent) RunOnce(ctx context.Context) error {
	start := a.clock.Now()
	err := a.runOnce(ctx, start)

	if a.metrics != nil {
		a.metrics.RunDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			a.metrics.RunsTotal.WithLabelValues("error").Inc()
		} else {
			a.metrics.RunsTotal.WithLabelValues("success").Inc()
		}
	}
	return err
}

func (a *Agent) runOnce(ctx context.Context, now time.Time) error {
	// Recover history from the previous document. A corrupt file is
	// logged and replaced on the next successful write.
	hist := history.New(a.config.HistoryRetention)
	prev, err := publish.ReadPrevious(a.writer.Path())
	switch {
	case err != nil:
		slog.Warn("previous snapshot unreadable, starting history fresh",
			"path", a.writer.Path(),
			"error", err,
		)
	case prev != nil:
		hist = history.Load(prev.HistoricalData, a.config.HistoryRetention)
	}

	states, err := a.observer.Observe(ctx)
	if err != nil {
		a.report(errors.ErrDiscoveryFailed, "fleet", fmt.Sprintf("fleet observation failed: %v", err), err)
		return fmt.Errorf("agent: observing fleet: %w", err)
	}
	a.recordClusterStates(states)

	namespaces := snapshot.TenantNamespaces(states)

	// Incident data degrades gracefully: a PagerDuty outage must not
	// take the dashboard down with it.
	until := now
	since := now.Add(-a.config.IncidentLookback)
	raw, err := a.fetcher.FetchWindow(ctx, since, until)
	if err != nil {
		a.report(errors.ErrIncidentsUnavailable, "incidents", fmt.Sprintf("incident fetch failed: %v", err), err)
		slog.Warn("incident fetch failed, assessing on workload data alone", "error", err)
		raw = nil
	}
	correlations := incidents.Correlate(raw, namespaces, a.resolve, a.matcher, since)
	if a.metrics != nil {
		a.metrics.IncidentsFetched.Add(float64(len(raw)))
		for _, refs := range correlations {
			a.metrics.IncidentsCorrelated.Add(float64(len(refs)))
		}
	}

	records := snapshot.Analyze(states, correlations, a.resolve, a.thresholds)

	availability := analysis.SystemAvailability(records)
	activeCount := incidents.CountActive(correlations)
	if !hist.Append(now, availability, activeCount) {
		a.report(errors.ErrNonMonotonicHistory, "history",
			fmt.Sprintf("rejected history entry at %s: not after last recorded entry", now.UTC().Format(time.RFC3339)), nil)
		slog.Warn("history append rejected, series left unchanged",
			"timestamp", now.UTC().Format(time.RFC3339),
		)
	}
	if a.metrics != nil {
		a.metrics.HistoryEntries.Set(float64(hist.Len()))
	}

	snap := snapshot.Assemble(records, hist.Series(), now)

	size, err := a.writer.Write(snap)
	if err != nil {
		a.report(errors.ErrPublishFailed, "publish", fmt.Sprintf("local write failed: %v", err), err)
		if a.metrics != nil {
			a.metrics.PublishTotal.WithLabelValues("file", "error").Inc()
		}
		return fmt.Errorf("agent: writing snapshot: %w", err)
	}
	if a.metrics != nil {
		a.metrics.PublishTotal.WithLabelValues("file", "success").Inc()
		a.metrics.PublishSizeBytes.WithLabelValues("raw").Observe(float64(size))
	}

	if a.remote != nil {
		if _, err := a.remote.Send(ctx, snap); err != nil {
			// Already reported by the remote client; the local
			// document is authoritative, so the run still succeeds.
			slog.Error("remote publish failed", "error", err)
		} else {
			a.stateMachine.HandleHTTPStatus(200, 0)
		}
	}

	a.latestSnapshot.Store(&snap)
	a.ready.Store(true)

	slog.Info("assessment run completed",
		"clusters", len(records),
		"namespaces", snap.Summary.TotalNamespacesMonitored,
		"overall_status", string(snap.OverallStatus),
		"availability", availability,
		"active_incidents", activeCount,
		"history_entries", hist.Len(),
		"bytes_written", size,
	)
	return nil
}

// recordClusterStates reports degraded clusters to the error collector
// and feeds the per-cluster metrics.
func (a *Agent) recordClusterStates(states []snapshot.ClusterState) {
	for _, st := range states {
		switch {
		case st.Err != nil:
			a.report(errors.ErrSourceUnavailable, "observe."+st.Cluster.Name,
				fmt.Sprintf("cluster could not be observed: %v", st.Err), st.Err)
		case st.Partial:
			a.report(errors.ErrPartialData, "observe."+st.Cluster.Name,
				"some tenant namespaces could not be read", nil)
		}

		if a.metrics == nil {
			continue
		}
		if st.Err != nil || st.Partial {
			a.metrics.ClustersAnalyzed.WithLabelValues("degraded").Inc()
		} else {
			a.metrics.ClustersAnalyzed.WithLabelValues("complete").Inc()
		}
		a.metrics.NamespacesAnalyzed.Add(float64(len(st.Namespaces)))
	}
}

func (a *Agent) report(code errors.Code, component, message string, cause error) {
	if a.errorCollector == nil {
		return
	}
	a.errorCollector.Report(errors.RunError{
		Code:      code,
		Message:   message,
		Component: component,
		Timestamp: a.clock.Now().UnixMilli(),
		Err:       cause,
	})
}

// Run executes assessment runs until the context is canceled or the
// state machine reaches a terminal state. The first run starts
// immediately; later runs fire on the configured interval. Runs never
// overlap: a run that outlasts the interval delays the next tick.
func (a *Agent) Run(ctx context.Context) error {
	a.stateMachine.TransitionTo(StateRunning, "started")

	if err := a.RunOnce(ctx); err != nil {
		slog.Error("assessment run failed", "error", err)
	}
	if a.config.RunOnce {
		return nil
	}

	ticker := time.NewTicker(a.config.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.stateMachine.TransitionTo(StateExiting, "context canceled")
			return ctx.Err()
		case <-ticker.C:
		}

		switch state := a.stateMachine.State(); state {
		case StateRunning:
			if err := a.RunOnce(ctx); err != nil {
				slog.Error("assessment run failed", "error", err)
			}
		case StateBackoff:
			if a.stateMachine.IsBackoffExpired() {
				a.stateMachine.TransitionTo(StateRunning, "backoff expired")
				if err := a.RunOnce(ctx); err != nil {
					slog.Error("assessment run failed", "error", err)
				}
			} else {
				slog.Debug("in backoff, skipping run",
					"remaining", a.stateMachine.BackoffRemaining())
			}
		case StateStopped, StateExiting:
			slog.Info("agent exiting", "state", string(state),
				"reason", a.stateMachine.StateReason())
			return nil
		}
	}
}
