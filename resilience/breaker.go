// Package resilience provides the failure handling primitives for a crew:
// a per-agent circuit breaker, a bounded structured error log, and a retry
// helper with exponential backoff. The crew should stay usable when a single
// agent misbehaves; these types absorb failures instead of propagating them.
package resilience

import (
	"sync"
	"time"

	"github.com/hupe1980/crewmesh/core"
)

// CircuitState is one of closed (normal), open (rejecting) or half-open
// (probing for recovery).
type CircuitState string

const (
	// CircuitClosed is normal operation.
	CircuitClosed CircuitState = "closed"
	// CircuitOpen rejects all requests until the reset timeout elapses.
	CircuitOpen CircuitState = "open"
	// CircuitHalfOpen lets trial requests through to test recovery.
	CircuitHalfOpen CircuitState = "half-open"
)

// BreakerConfig tunes a circuit breaker. The defaults are configuration
// values, not empirically tuned business rules.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in closed
	// state before the breaker opens.
	FailureThreshold int
	// ResetTimeout is how long an open breaker waits before allowing a
	// half-open trial.
	ResetTimeout time.Duration
	// SuccessThreshold is the number of consecutive half-open successes
	// required to close again.
	SuccessThreshold int
}

// DefaultBreakerConfig returns the standard thresholds (3 failures, 30s
// reset, 2 successes).
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, ResetTimeout: 30 * time.Second, SuccessThreshold: 2}
}

// StateChangeFunc observes breaker transitions, typically to update agent
// status and feed the event bus.
type StateChangeFunc func(agentID string, state CircuitState)

// Diagnostics is a point-in-time snapshot of breaker internals.
type Diagnostics struct {
	State          CircuitState
	FailureCount   int
	SuccessCount   int
	LastFailureAt  time.Time
	TimeUntilRetry time.Duration // zero unless open
}

// CircuitBreaker gates execution for a single agent, preventing cascading
// failures by stopping requests to an agent that keeps failing.
//
// The open to half-open transition is evaluated lazily: CanExecute and State
// both perform it once the reset timeout has elapsed, so those calls have a
// side effect by design. The closed-state failure counter only resets on
// success, never by elapsed time.
type CircuitBreaker struct {
	agentID string
	cfg     BreakerConfig
	clock   core.Clock

	mu            sync.Mutex
	state         CircuitState
	failureCount  int
	successCount  int
	lastFailureAt time.Time
	onStateChange StateChangeFunc
}

// BreakerOption customizes breaker construction.
type BreakerOption func(*CircuitBreaker)

// WithBreakerConfig overrides the default thresholds.
func WithBreakerConfig(cfg BreakerConfig) BreakerOption {
	return func(b *CircuitBreaker) { b.cfg = cfg }
}

// WithClock injects a clock for deterministic tests.
func WithClock(c core.Clock) BreakerOption {
	return func(b *CircuitBreaker) { b.clock = c }
}

// NewCircuitBreaker creates a closed breaker for the given agent.
func NewCircuitBreaker(agentID string, optFns ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		agentID: agentID,
		cfg:     DefaultBreakerConfig(),
		clock:   core.SystemClock{},
		state:   CircuitClosed,
	}
	for _, fn := range optFns {
		fn(b)
	}
	return b
}

// AgentID returns the agent this breaker gates.
func (b *CircuitBreaker) AgentID() string { return b.agentID }

// OnStateChange registers the transition callback. Only one callback is
// kept; the engine is the sole consumer.
func (b *CircuitBreaker) OnStateChange(fn StateChangeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// CanExecute reports whether requests may go through. In open state it
// transitions to half-open (and returns true) once the reset timeout has
// elapsed.
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	var notify func()
	defer func() {
		b.mu.Unlock()
		if notify != nil {
			notify()
		}
	}()

	switch b.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	default: // open
		if b.clock.Now().Sub(b.lastFailureAt) >= b.cfg.ResetTimeout {
			notify = b.transitionLocked(CircuitHalfOpen)
			return true
		}
		return false
	}
}

// RecordSuccess feeds a successful execution into the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	var notify func()
	switch b.state {
	case CircuitClosed:
		b.failureCount = 0
	case CircuitHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			notify = b.transitionLocked(CircuitClosed)
		}
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// RecordFailure feeds a failed execution into the breaker. Any half-open
// failure reopens immediately.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	b.lastFailureAt = b.clock.Now()
	var notify func()
	switch b.state {
	case CircuitClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			notify = b.transitionLocked(CircuitOpen)
		}
	case CircuitHalfOpen:
		notify = b.transitionLocked(CircuitOpen)
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// State returns the current state, performing the lazy open to half-open
// transition when the reset timeout has elapsed.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	var notify func()
	if b.state == CircuitOpen && b.clock.Now().Sub(b.lastFailureAt) >= b.cfg.ResetTimeout {
		notify = b.transitionLocked(CircuitHalfOpen)
	}
	state := b.state
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
	return state
}

// Reset forces the breaker closed and zeroes both counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	notify := b.transitionLocked(CircuitClosed)
	b.failureCount = 0
	b.successCount = 0
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Diagnostics returns a snapshot for status displays.
func (b *CircuitBreaker) Diagnostics() Diagnostics {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := Diagnostics{
		State:         b.state,
		FailureCount:  b.failureCount,
		SuccessCount:  b.successCount,
		LastFailureAt: b.lastFailureAt,
	}
	if b.state == CircuitOpen {
		remaining := b.cfg.ResetTimeout - b.clock.Now().Sub(b.lastFailureAt)
		if remaining > 0 {
			d.TimeUntilRetry = remaining
		}
	}
	return d
}

// transitionLocked switches state and returns the callback to invoke after
// the lock is released, or nil when nothing changed. Caller must hold mu.
func (b *CircuitBreaker) transitionLocked(newState CircuitState) func() {
	if b.state == newState {
		return nil
	}
	b.state = newState
	switch newState {
	case CircuitClosed:
		b.failureCount = 0
		b.successCount = 0
	case CircuitHalfOpen:
		b.successCount = 0
	}
	if b.onStateChange == nil {
		return nil
	}
	fn := b.onStateChange
	agentID := b.agentID
	return func() { fn(agentID, newState) }
}
