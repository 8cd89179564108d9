// Package history maintains the bounded rolling time series backing the
// dashboard charts. The store is an explicit value threaded through a
// run (load → append → persist), never ambient state, so the
// append/trim logic is testable without any I/O.
package history

import (
	"time"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// Entry is one recorded run: the system-wide availability scalar and
// the incident count at that timestamp.
type Entry struct {
	Timestamp     time.Time
	Availability  int
	IncidentCount int
}

// Store is a bounded time series of run entries, strictly ordered by
// ascending timestamp with no duplicates. A store is owned by exactly
// one run at a time; there are no concurrent writers.
type Store struct {
	retention time.Duration
	entries   []Entry
}

// New creates an empty store with the given retention window.
func New(retention time.Duration) *Store {
	return &Store{retention: retention}
}

// Load rebuilds a store from previously serialized historical data.
// Entries that cannot be parsed or that would break ascending order are
// dropped: the persisted document is the agent's own output, so
// anything out of shape is corruption, not data.
func Load(hd model.HistoricalData, retention time.Duration) *Store {
	s := New(retention)
	n := len(hd.Timestamps)
	if len(hd.AvailabilityHistory) < n {
		n = len(hd.AvailabilityHistory)
	}
	if len(hd.IncidentHistory) < n {
		n = len(hd.IncidentHistory)
	}

	for i := 0; i < n; i++ {
		ts, err := time.Parse(time.RFC3339, hd.Timestamps[i])
		if err != nil {
			continue
		}
		if len(s.entries) > 0 && !ts.After(s.entries[len(s.entries)-1].Timestamp) {
			continue
		}
		s.entries = append(s.entries, Entry{
			Timestamp:     ts,
			Availability:  hd.AvailabilityHistory[i],
			IncidentCount: hd.IncidentHistory[i],
		})
	}
	return s
}

// Append records one run. It returns false — leaving the store
// unchanged — when ts is not strictly after the last entry, which
// guards against clock skew and duplicate runs producing a
// non-monotonic series. Otherwise the entry is appended at the end and
// entries older than the retention window (measured from ts) are
// evicted immediately: append-then-trim, eager garbage collection.
func (s *Store) Append(ts time.Time, availability, incidentCount int) bool {
	if len(s.entries) > 0 && !ts.After(s.entries[len(s.entries)-1].Timestamp) {
		return false
	}

	s.entries = append(s.entries, Entry{
		Timestamp:     ts,
		Availability:  availability,
		IncidentCount: incidentCount,
	})

	cutoff := ts.Add(-s.retention)
	firstKept := 0
	for firstKept < len(s.entries) && s.entries[firstKept].Timestamp.Before(cutoff) {
		firstKept++
	}
	if firstKept > 0 {
		s.entries = append(s.entries[:0], s.entries[firstKept:]...)
	}

	return true
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the retained entries in ascending order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Last returns the most recent entry and true, or a zero Entry and
// false when the store is empty.
func (s *Store) Last() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Series serializes the store as the three parallel arrays the output
// document carries, ascending by timestamp. Empty stores produce empty
// arrays, never nulls.
func (s *Store) Series() model.HistoricalData {
	hd := model.HistoricalData{
		Timestamps:          make([]string, 0, len(s.entries)),
		AvailabilityHistory: make([]int, 0, len(s.entries)),
		IncidentHistory:     make([]int, 0, len(s.entries)),
	}
	for _, e := range s.entries {
		hd.Timestamps = append(hd.Timestamps, e.Timestamp.UTC().Format(time.RFC3339))
		hd.AvailabilityHistory = append(hd.AvailabilityHistory, e.Availability)
		hd.IncidentHistory = append(hd.IncidentHistory, e.IncidentCount)
	}
	return hd
}
