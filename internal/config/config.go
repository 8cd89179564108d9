package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all agent configuration values.
type Config struct {
	// Fleet discovery
	AzureSubscriptionID string // KUBEHEALTH_AZURE_SUBSCRIPTION_ID
	ClusterPrefix       string // KUBEHEALTH_CLUSTER_PREFIX

	// Incident source
	PagerDutyToken      string        // KUBEHEALTH_PAGERDUTY_TOKEN
	PagerDutyServiceIDs []string      // KUBEHEALTH_PAGERDUTY_SERVICE_IDS, comma-separated
	IncidentLookback    time.Duration // KUBEHEALTH_INCIDENT_LOOKBACK, default: 24h

	// Tenant resolution
	TenantsFile string // KUBEHEALTH_TENANTS_FILE, default: tenants.json

	// Health policy. Thresholds are policy, not mechanism, so they are
	// configuration with documented defaults rather than constants.
	CriticalAvailabilityPct int // KUBEHEALTH_CRITICAL_AVAILABILITY, default: 90
	WarningAvailabilityPct  int // KUBEHEALTH_WARNING_AVAILABILITY, default: 95
	HighRestartThreshold    int // KUBEHEALTH_HIGH_RESTART_THRESHOLD, default: 10

	// History
	HistoryRetention time.Duration // KUBEHEALTH_HISTORY_RETENTION, default: 720h (30 days)

	// Run behavior
	RunInterval        time.Duration // KUBEHEALTH_RUN_INTERVAL, default: 30m (also the history cadence)
	RunOnce            bool          // KUBEHEALTH_RUN_ONCE, default: false
	ClusterConcurrency int           // KUBEHEALTH_CLUSTER_CONCURRENCY, default: 4

	// Output
	OutputPath   string // KUBEHEALTH_OUTPUT_PATH, default: status.json
	PublishURL   string // KUBEHEALTH_PUBLISH_URL, optional remote mirror of the snapshot
	PublishToken string // KUBEHEALTH_PUBLISH_TOKEN

	// Transport
	RequestTimeout   time.Duration // KUBEHEALTH_REQUEST_TIMEOUT, default: 30s
	MaxRetries       int           // KUBEHEALTH_MAX_RETRIES, default: 5
	CompressionLevel int           // KUBEHEALTH_COMPRESSION_LEVEL, default: 3

	// Security
	AllowInsecure  bool // KUBEHEALTH_ALLOW_INSECURE, default: false — allows http:// PublishURL
	DebugEndpoints bool // KUBEHEALTH_DEBUG_ENDPOINTS, default: false — enables pprof/debug on health port

	HealthPort   int    // KUBEHEALTH_HEALTH_PORT, default: 8080
	AgentVersion string // KUBEHEALTH_AGENT_VERSION, default: build-time version
}

// buildVersion is stamped by the release pipeline:
//
//	go build -ldflags "-X github.com/kubehealth/kubehealth-agent/internal/config.buildVersion=v1.2.3"
var buildVersion = "dev"

// Load reads configuration from environment variables and returns a
// Config with defaults applied for any unset values.
func Load() Config {
	return Config{
		AzureSubscriptionID: os.Getenv("KUBEHEALTH_AZURE_SUBSCRIPTION_ID"),
		ClusterPrefix:       os.Getenv("KUBEHEALTH_CLUSTER_PREFIX"),

		PagerDutyToken:      os.Getenv("KUBEHEALTH_PAGERDUTY_TOKEN"),
		PagerDutyServiceIDs: parseStringSlice("KUBEHEALTH_PAGERDUTY_SERVICE_IDS"),
		IncidentLookback:    parseDuration("KUBEHEALTH_INCIDENT_LOOKBACK", 24*time.Hour),

		TenantsFile: envOrDefault("KUBEHEALTH_TENANTS_FILE", "tenants.json"),

		CriticalAvailabilityPct: parseInt("KUBEHEALTH_CRITICAL_AVAILABILITY", 90),
		WarningAvailabilityPct:  parseInt("KUBEHEALTH_WARNING_AVAILABILITY", 95),
		HighRestartThreshold:    parseInt("KUBEHEALTH_HIGH_RESTART_THRESHOLD", 10),

		HistoryRetention: parseDuration("KUBEHEALTH_HISTORY_RETENTION", 30*24*time.Hour),

		RunInterval:        parseDuration("KUBEHEALTH_RUN_INTERVAL", 30*time.Minute),
		RunOnce:            parseBool("KUBEHEALTH_RUN_ONCE", false),
		ClusterConcurrency: parseInt("KUBEHEALTH_CLUSTER_CONCURRENCY", 4),

		OutputPath:   envOrDefault("KUBEHEALTH_OUTPUT_PATH", "status.json"),
		PublishURL:   os.Getenv("KUBEHEALTH_PUBLISH_URL"),
		PublishToken: os.Getenv("KUBEHEALTH_PUBLISH_TOKEN"),

		RequestTimeout:   parseDuration("KUBEHEALTH_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:       parseInt("KUBEHEALTH_MAX_RETRIES", 5),
		CompressionLevel: parseInt("KUBEHEALTH_COMPRESSION_LEVEL", 3),

		AllowInsecure:  parseBool("KUBEHEALTH_ALLOW_INSECURE", false),
		DebugEndpoints: parseBool("KUBEHEALTH_DEBUG_ENDPOINTS", false),

		HealthPort:   parseInt("KUBEHEALTH_HEALTH_PORT", 8080),
		AgentVersion: envOrDefault("KUBEHEALTH_AGENT_VERSION", buildVersion),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// parseDuration tries time.ParseDuration first, then falls back to
// treating the value as integer seconds.
func parseDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}

	secs, err := strconv.Atoi(v)
	if err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}

func parseBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseStringSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}
