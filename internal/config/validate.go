package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that the Config contains valid values.
// Returns an error describing the first invalid field found.
func (c Config) Validate() error {
	if c.AzureSubscriptionID == "" {
		return fmt.Errorf("config: KUBEHEALTH_AZURE_SUBSCRIPTION_ID is required")
	}

	if c.ClusterPrefix == "" {
		return fmt.Errorf("config: KUBEHEALTH_CLUSTER_PREFIX is required")
	}

	if c.PagerDutyToken == "" {
		return fmt.Errorf("config: KUBEHEALTH_PAGERDUTY_TOKEN is required")
	}

	if c.PublishURL != "" && !c.AllowInsecure && !strings.HasPrefix(c.PublishURL, "https://") {
		return fmt.Errorf("config: KUBEHEALTH_PUBLISH_URL must use https:// (got %q); set KUBEHEALTH_ALLOW_INSECURE=true to override", c.PublishURL)
	}

	if c.CriticalAvailabilityPct < 0 || c.CriticalAvailabilityPct > 100 {
		return fmt.Errorf("config: CriticalAvailabilityPct must be 0-100, got %d", c.CriticalAvailabilityPct)
	}
	if c.WarningAvailabilityPct < 0 || c.WarningAvailabilityPct > 100 {
		return fmt.Errorf("config: WarningAvailabilityPct must be 0-100, got %d", c.WarningAvailabilityPct)
	}
	if c.WarningAvailabilityPct < c.CriticalAvailabilityPct {
		return fmt.Errorf("config: WarningAvailabilityPct (%d) must be >= CriticalAvailabilityPct (%d)", c.WarningAvailabilityPct, c.CriticalAvailabilityPct)
	}

	if c.HighRestartThreshold < 0 {
		return fmt.Errorf("config: HighRestartThreshold must be >= 0, got %d", c.HighRestartThreshold)
	}

	if c.HistoryRetention <= 0 {
		return fmt.Errorf("config: HistoryRetention must be > 0, got %v", c.HistoryRetention)
	}

	if c.RunInterval < time.Minute {
		return fmt.Errorf("config: RunInterval must be >= 1m, got %v", c.RunInterval)
	}

	if c.ClusterConcurrency < 1 {
		return fmt.Errorf("config: ClusterConcurrency must be >= 1, got %d", c.ClusterConcurrency)
	}

	if c.OutputPath == "" {
		return fmt.Errorf("config: OutputPath must not be empty")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("config: MaxRetries must be >= 0, got %d", c.MaxRetries)
	}

	if c.CompressionLevel < 1 || c.CompressionLevel > 4 {
		return fmt.Errorf("config: CompressionLevel must be 1-4, got %d", c.CompressionLevel)
	}

	if c.HealthPort < 1 || c.HealthPort > 65535 {
		return fmt.Errorf("config: HealthPort must be 1-65535, got %d", c.HealthPort)
	}

	return nil
}
