package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics_NoRegistrationPanic(t *testing.T) {
	// Creating metrics should not panic.
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.Registry == nil {
		t.Fatal("Registry is nil")
	}
}

func TestNewMetrics_CustomRegistry(t *testing.T) {
	m := NewMetrics()

	// Gather from our custom registry — should have metrics.
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	// Gather from the default registry — our metrics should NOT be there.
	defaultFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("DefaultGatherer.Gather failed: %v", err)
	}

	customNames := make(map[string]bool)
	for _, f := range families {
		customNames[f.GetName()] = true
	}

	for _, f := range defaultFamilies {
		if customNames[f.GetName()] {
			t.Errorf("metric %q found in default registry — should only be in custom registry", f.GetName())
		}
	}
}

func TestNewMetrics_AllNamesHavePrefix(t *testing.T) {
	m := NewMetrics()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	if len(families) == 0 {
		t.Fatal("no metric families gathered")
	}

	const prefix = "kubehealth_agent_"
	for _, f := range families {
		name := f.GetName()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			t.Errorf("metric %q does not start with %s prefix", name, prefix)
		}
	}
}

func TestNewMetrics_CounterIncrement(t *testing.T) {
	m := NewMetrics()

	// Increment a plain counter.
	m.TransportRetries.Inc()

	pb := &dto.Metric{}
	if err := m.TransportRetries.Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetCounter().GetValue(); got != 1 {
		t.Errorf("TransportRetries = %v, want 1", got)
	}

	// Increment a counter vec.
	m.RunsTotal.WithLabelValues("success").Inc()
	m.RunsTotal.WithLabelValues("success").Inc()
	m.RunsTotal.WithLabelValues("error").Inc()

	pb = &dto.Metric{}
	if err := m.RunsTotal.WithLabelValues("success").(prometheus.Metric).Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetCounter().GetValue(); got != 2 {
		t.Errorf("RunsTotal(success) = %v, want 2", got)
	}
}

func TestNewMetrics_HistogramObserve(t *testing.T) {
	m := NewMetrics()

	m.RunDuration.Observe(0.5)
	m.RunDuration.Observe(1.5)

	pb := &dto.Metric{}
	if err := m.RunDuration.Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("RunDuration sample count = %v, want 2", got)
	}

	// HistogramVec
	m.PublishSizeBytes.WithLabelValues("compressed").Observe(2048)
	pb = &dto.Metric{}
	if err := m.PublishSizeBytes.WithLabelValues("compressed").(prometheus.Metric).Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("PublishSizeBytes(compressed) sample count = %v, want 1", got)
	}
}

func TestNewMetrics_GaugeSet(t *testing.T) {
	m := NewMetrics()

	m.HistoryEntries.Set(1440)

	pb := &dto.Metric{}
	if err := m.HistoryEntries.Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetGauge().GetValue(); got != 1440 {
		t.Errorf("HistoryEntries = %v, want 1440", got)
	}

	m.ClustersDiscovered.Set(3)
	pb = &dto.Metric{}
	if err := m.ClustersDiscovered.Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetGauge().GetValue(); got != 3 {
		t.Errorf("ClustersDiscovered = %v, want 3", got)
	}
}

func TestNewMetrics_VecLabels(t *testing.T) {
	m := NewMetrics()

	// ClustersAnalyzed has label: result
	m.ClustersAnalyzed.WithLabelValues("complete").Inc()
	m.ClustersAnalyzed.WithLabelValues("complete").Inc()
	m.ClustersAnalyzed.WithLabelValues("degraded").Inc()

	pb := &dto.Metric{}
	if err := m.ClustersAnalyzed.WithLabelValues("complete").(prometheus.Metric).Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetCounter().GetValue(); got != 2 {
		t.Errorf("ClustersAnalyzed(complete) = %v, want 2", got)
	}

	// PublishTotal has labels: target, status
	m.PublishTotal.WithLabelValues("file", "success").Inc()
	pb = &dto.Metric{}
	if err := m.PublishTotal.WithLabelValues("file", "success").(prometheus.Metric).Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetCounter().GetValue(); got != 1 {
		t.Errorf("PublishTotal(file,success) = %v, want 1", got)
	}

	// AgentState has label: state
	m.AgentState.WithLabelValues("running").Set(1)
	m.AgentState.WithLabelValues("starting").Set(0)
	pb = &dto.Metric{}
	if err := m.AgentState.WithLabelValues("running").(prometheus.Metric).Write(pb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := pb.GetGauge().GetValue(); got != 1 {
		t.Errorf("AgentState(running) = %v, want 1", got)
	}
}

func TestNewMetrics_NoDuplicateRegistrationPanic(t *testing.T) {
	// Creating two separate Metrics instances should not panic
	// because each uses its own registry.
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("creating Metrics twice panicked: %v", r)
		}
	}()

	_ = NewMetrics()
	_ = NewMetrics()
}

func TestNewMetrics_AllFieldsNonNil(t *testing.T) {
	m := NewMetrics()

	if m.RunDuration == nil {
		t.Error("RunDuration is nil")
	}
	if m.RunsTotal == nil {
		t.Error("RunsTotal is nil")
	}
	if m.ClustersDiscovered == nil {
		t.Error("ClustersDiscovered is nil")
	}
	if m.ClustersAnalyzed == nil {
		t.Error("ClustersAnalyzed is nil")
	}
	if m.NamespacesAnalyzed == nil {
		t.Error("NamespacesAnalyzed is nil")
	}
	if m.PodsObserved == nil {
		t.Error("PodsObserved is nil")
	}
	if m.IncidentsFetched == nil {
		t.Error("IncidentsFetched is nil")
	}
	if m.IncidentsCorrelated == nil {
		t.Error("IncidentsCorrelated is nil")
	}
	if m.HistoryEntries == nil {
		t.Error("HistoryEntries is nil")
	}
	if m.PublishDuration == nil {
		t.Error("PublishDuration is nil")
	}
	if m.PublishSizeBytes == nil {
		t.Error("PublishSizeBytes is nil")
	}
	if m.PublishTotal == nil {
		t.Error("PublishTotal is nil")
	}
	if m.TransportRetries == nil {
		t.Error("TransportRetries is nil")
	}
	if m.AgentState == nil {
		t.Error("AgentState is nil")
	}
}
