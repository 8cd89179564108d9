package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"

	"github.com/kubehealth/kubehealth-agent/internal/agent"
	"github.com/kubehealth/kubehealth-agent/internal/config"
	"github.com/kubehealth/kubehealth-agent/internal/errors"
	"github.com/kubehealth/kubehealth-agent/internal/fleet"
	"github.com/kubehealth/kubehealth-agent/internal/health"
	"github.com/kubehealth/kubehealth-agent/internal/incidents"
	"github.com/kubehealth/kubehealth-agent/internal/observability"
	"github.com/kubehealth/kubehealth-agent/internal/publish"
	"github.com/kubehealth/kubehealth-agent/internal/snapshot"
	"github.com/kubehealth/kubehealth-agent/internal/tenant"
)

func main() {
	// 1. Load and validate config.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// 2. Create context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	slog.Info("kubehealth-agent starting",
		"version", cfg.AgentVersion,
		"cluster_prefix", cfg.ClusterPrefix,
		"run_interval", cfg.RunInterval,
		"output_path", cfg.OutputPath,
	)

	// 3. Create shared infrastructure.
	metrics := observability.NewMetrics()
	errCollector := errors.NewCollector(errors.RealClock{})
	sm := agent.NewStateMachine(errors.RealClock{})

	// 4. Load the tenant mapping.
	resolver, err := tenant.LoadResolver(cfg.TenantsFile)
	if err != nil {
		slog.Error("failed to load tenant mapping", "error", err, "path", cfg.TenantsFile)
		os.Exit(1)
	}
	slog.Info("tenant mapping loaded", "tenants", resolver.Len(), "path", cfg.TenantsFile)

	// 5. Build the fleet discoverer and snapshot builder.
	discoverer, err := fleet.NewAzureDiscoverer(cfg.AzureSubscriptionID, cfg.ClusterPrefix, slog.Default())
	if err != nil {
		slog.Error("failed to create azure discoverer", "error", err)
		os.Exit(1)
	}
	builder := snapshot.NewBuilder(discoverer, discoverer, cfg.ClusterConcurrency, slog.Default(), metrics)

	// 6. Create the PagerDuty client.
	pdClient := incidents.NewClient(incidents.ClientOptions{
		Token:      cfg.PagerDutyToken,
		ServiceIDs: cfg.PagerDutyServiceIDs,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		Logger:     slog.Default(),
	})

	// 7. Create publishers.
	writer := publish.NewFileWriter(cfg.OutputPath)
	var remote agent.RemoteSender
	if cfg.PublishURL != "" {
		remote = publish.NewRemoteClient(&cfg, metrics, errCollector)
	}

	// 8. Create the agent.
	ag := agent.New(
		&cfg,
		builder,
		pdClient,
		incidents.KeywordMatcher{},
		resolver.Resolve,
		writer,
		remote,
		sm,
		errCollector,
		metrics,
		errors.RealClock{},
	)

	// 9. Start health server.
	healthSrv := health.NewServer(cfg.HealthPort, metrics, ag, ag, cfg.DebugEndpoints)
	if err := healthSrv.Start(); err != nil {
		slog.Error("failed to start health server", "error", err)
		os.Exit(1)
	}

	// 10. Start memory pressure monitor.
	memMon := agent.NewMemoryPressureMonitor(0.8, func() {
		ag.DropLatestSnapshot()
		runtime.GC()
	}, 30*time.Second, nil)
	memMon.Start()

	// 11. Run agent (blocks until context is canceled or run-once completes).
	if err := ag.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("agent exited with error", "error", err)
	}

	// 12. Graceful shutdown.
	memMon.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Stop(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}

	slog.Info("kubehealth-agent stopped")
}
