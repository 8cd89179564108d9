package errors

import (
	"sync"
	"time"
)

// Code represents a typed error condition surfaced by a run.
type Code string

// Run error codes. Per-cluster and per-namespace conditions are
// bulkheaded: they degrade the affected record and never abort the run.
const (
	ErrSourceUnavailable    Code = "SOURCE_UNAVAILABLE"
	ErrIncidentsUnavailable Code = "INCIDENTS_UNAVAILABLE"
	ErrNonMonotonicHistory  Code = "NON_MONOTONIC_HISTORY"
	ErrDiscoveryFailed      Code = "DISCOVERY_FAILED"
	ErrAssemblyFailed       Code = "ASSEMBLY_FAILED"
	ErrPublishFailed        Code = "PUBLISH_FAILED"
	ErrPartialData          Code = "PARTIAL_DATA"
)

// defaultTTL is the auto-expiry duration for errors not re-reported.
const defaultTTL = 5 * time.Minute

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock uses the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// RunError is a typed error with code, component, and an optional
// wrapped cause.
type RunError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Timestamp int64  `json:"timestamp"`
	Err       error  `json:"-"`
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As compatibility.
func (e *RunError) Unwrap() error {
	return e.Err
}

// entry wraps a RunError with its last-reported time for expiry tracking.
type entry struct {
	err        RunError
	lastReport time.Time
}

// Collector is a thread-safe store for active run errors. Errors are
// keyed by Code+Component and auto-expire after 5 minutes if not
// re-reported.
type Collector struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]entry // key = string(Code) + "|" + Component
}

// NewCollector creates a Collector with the given clock.
func NewCollector(clock Clock) *Collector {
	return &Collector{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// key builds the dedup key for an error.
func key(code Code, component string) string {
	return string(code) + "|" + component
}

// Report stores or refreshes an error. The dedup key is Code+Component.
func (c *Collector) Report(err RunError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(err.Code, err.Component)
	c.entries[k] = entry{
		err:        err,
		lastReport: c.clock.Now(),
	}
}

// Active returns all errors that have been reported within the TTL window.
func (c *Collector) Active() []RunError {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	result := make([]RunError, 0, len(c.entries))
	for k, e := range c.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(c.entries, k)
			continue
		}
		result = append(result, e.err)
	}
	return result
}

// ActiveCodes returns a deduplicated list of active error codes.
func (c *Collector) ActiveCodes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	seen := make(map[Code]struct{})
	codes := make([]string, 0)
	for k, e := range c.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(c.entries, k)
			continue
		}
		if _, ok := seen[e.err.Code]; !ok {
			seen[e.err.Code] = struct{}{}
			codes = append(codes, string(e.err.Code))
		}
	}
	return codes
}

// Clear removes all tracked errors.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}
