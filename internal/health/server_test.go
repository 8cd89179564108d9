package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kubehealth/kubehealth-agent/internal/observability"
	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// --- Mock implementations ---

type mockReadiness struct {
	ready bool
}

func (m *mockReadiness) IsReady() bool { return m.ready }

type mockSnapshot struct {
	snap *model.SystemSnapshot
}

func (m *mockSnapshot) LatestSnapshot() *model.SystemSnapshot { return m.snap }

// --- Helper to build a test server's mux ---

func newTestServer(ready bool, snap *model.SystemSnapshot) *Server {
	metrics := observability.NewMetrics()
	r := &mockReadiness{ready: ready}
	s := &mockSnapshot{snap: snap}
	return NewServer(0, metrics, r, s, true)
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	srv := newTestServer(true, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result["status"] != "ok" {
		t.Fatalf("expected status=ok, got %s", result["status"])
	}
}

func TestReadyzReady(t *testing.T) {
	srv := newTestServer(true, nil)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]bool
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !result["ready"] {
		t.Fatal("expected ready=true")
	}
}

func TestReadyzNotReady(t *testing.T) {
	srv := newTestServer(false, nil)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]bool
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result["ready"] {
		t.Fatal("expected ready=false")
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(true, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "kubehealth_agent_") {
		t.Fatal("expected Prometheus metrics containing kubehealth_agent_ prefix")
	}
}

func TestStatusNoSnapshot(t *testing.T) {
	srv := newTestServer(true, nil)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Result().StatusCode)
	}
}

func TestStatusWithSnapshot(t *testing.T) {
	snap := &model.SystemSnapshot{
		LastUpdated:   "2026-08-24T12:00:00Z",
		OverallStatus: model.StatusSaludable,
		Clusters:      []model.ClusterRecord{},
	}
	srv := newTestServer(true, snap)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result["last_updated"] != "2026-08-24T12:00:00Z" {
		t.Fatalf("unexpected last_updated: %v", result["last_updated"])
	}
	if result["overall_status"] != "Saludable" {
		t.Fatalf("unexpected overall_status: %v", result["overall_status"])
	}
}

func TestDebugEndpointsDisabled(t *testing.T) {
	metrics := observability.NewMetrics()
	srv := NewServer(0, metrics, &mockReadiness{ready: true}, &mockSnapshot{}, false)

	// pprof should 404 when debug is disabled
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for /debug/pprof/ when debug disabled, got %d", w.Result().StatusCode)
	}

	// /healthz should still work
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for /healthz, got %d", w.Result().StatusCode)
	}
}

func TestServerStartStop(t *testing.T) {
	metrics := observability.NewMetrics()
	srv := NewServer(0, metrics, &mockReadiness{ready: true}, &mockSnapshot{}, false)

	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	// Give server a moment to start
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("failed to reach server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}
}
