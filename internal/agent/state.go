package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/kubehealth/kubehealth-agent/internal/errors"
)

// State represents the current lifecycle state of the agent.
type State string

// Agent lifecycle states.
const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateBackoff  State = "backoff"
	StateStopped  State = "stopped"
	StateExiting  State = "exiting"
)

// StateMachine tracks the agent's lifecycle state. Transitions are
// driven by HTTP response codes from the remote publish endpoint; the
// local file publisher never changes state.
type StateMachine struct {
	mu           sync.RWMutex
	state        State
	stateReason  string
	backoffUntil time.Time
	clock        errors.Clock
}

// NewStateMachine creates a StateMachine starting in StateStarting.
func NewStateMachine(clock errors.Clock) *StateMachine {
	return &StateMachine{
		state: StateStarting,
		clock: clock,
	}
}

// State returns the current agent state.
func (sm *StateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// StateReason returns the human-readable reason for the current state.
func (sm *StateMachine) StateReason() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stateReason
}

// TransitionTo directly sets the agent state with a reason.
func (sm *StateMachine) TransitionTo(state State, reason string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state = state
	sm.stateReason = reason
}

// HandleHTTPStatus transitions state based on the HTTP status code
// returned by the remote publish endpoint.
func (sm *StateMachine) HandleHTTPStatus(statusCode int, retryAfterSeconds int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch {
	case statusCode == 200:
		sm.state = StateRunning
		sm.stateReason = ""
	case statusCode == 401 || statusCode == 403:
		sm.state = StateStopped
		sm.stateReason = "authentication failed"
	case statusCode == 429:
		sm.state = StateBackoff
		sm.stateReason = "rate limited"
		backoff := time.Duration(retryAfterSeconds) * time.Second
		if backoff == 0 {
			backoff = 30 * time.Second
		}
		sm.backoffUntil = sm.clock.Now().Add(backoff)
	case statusCode >= 500:
		// 5xx errors are handled by transport retry, state stays
		// unchanged. Only record the reason for observability.
		sm.stateReason = fmt.Sprintf("server error: %d", statusCode)
	}
}

// IsBackoffExpired returns true if the backoff period has elapsed.
func (sm *StateMachine) IsBackoffExpired() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.clock.Now().After(sm.backoffUntil)
}

// BackoffRemaining returns the duration until backoff expires, or 0 if expired.
func (sm *StateMachine) BackoffRemaining() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	remaining := sm.backoffUntil.Sub(sm.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
