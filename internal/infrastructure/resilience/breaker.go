package resilience

import (
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// CircuitClosed is normal operation - calls pass through and failures are counted.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls without touching the store.
	CircuitOpen
	// CircuitHalfOpen admits a limited number of probe calls.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type BreakerConfig struct {
	// FailureThreshold is the number of transient failures that opens the circuit.
	FailureThreshold int
	// FailureWindow bounds how long failures accumulate; zero keeps counting until a success.
	FailureWindow time.Duration
	// OpenDuration is how long the circuit stays open before probing.
	OpenDuration time.Duration
	// HalfOpenMax is the number of concurrent probes admitted while half-open.
	HalfOpenMax int
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		FailureWindow:    time.Minute,
		OpenDuration:     30 * time.Second,
		HalfOpenMax:      1,
	}
}

type BreakerStats struct {
	State           string    `json:"state"`
	TotalCalls      int64     `json:"total_calls"`
	TotalFailures   int64     `json:"total_failures"`
	TotalRejections int64     `json:"total_rejections"`
	CurrentFailures int       `json:"current_failures"`
	LastStateChange time.Time `json:"last_state_change"`
}

// CircuitBreaker is a three-state guard shared by every caller of a Policy.
// Safe for concurrent use.
type CircuitBreaker struct {
	config BreakerConfig
	now    func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        int
	windowStart     time.Time
	lastStateChange time.Time
	halfOpenActive  int
	onStateChange   func(from, to CircuitState)

	totalCalls      int64
	totalFailures   int64
	totalRejections int64
}

func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	if config.HalfOpenMax <= 0 {
		config.HalfOpenMax = 1
	}
	cb := &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  CircuitClosed,
	}
	cb.lastStateChange = cb.now()
	return cb
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Allow reports whether a call may proceed. The release func, when non-nil,
// must be called once the call has finished and its outcome was recorded.
func (cb *CircuitBreaker) Allow() (bool, func()) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++

	switch cb.state {
	case CircuitClosed:
		return true, nil
	case CircuitOpen:
		if cb.now().Sub(cb.lastStateChange) >= cb.config.OpenDuration {
			cb.transitionTo(CircuitHalfOpen)
			return cb.tryHalfOpen()
		}
		cb.totalRejections++
		return false, nil
	case CircuitHalfOpen:
		return cb.tryHalfOpen()
	}
	return false, nil
}

// tryHalfOpen must be called with the lock held.
func (cb *CircuitBreaker) tryHalfOpen() (bool, func()) {
	if cb.halfOpenActive >= cb.config.HalfOpenMax {
		cb.totalRejections++
		return false, nil
	}
	cb.halfOpenActive++
	return true, func() {
		cb.mu.Lock()
		if cb.halfOpenActive > 0 {
			cb.halfOpenActive--
		}
		cb.mu.Unlock()
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == CircuitHalfOpen {
		cb.transitionTo(CircuitClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	now := cb.now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures == 0 || (cb.config.FailureWindow > 0 && now.Sub(cb.windowStart) > cb.config.FailureWindow) {
			cb.failures = 0
			cb.windowStart = now
		}
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

// transitionTo must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(next CircuitState) {
	prev := cb.state
	cb.state = next
	cb.lastStateChange = cb.now()
	cb.failures = 0
	cb.halfOpenActive = 0
	if cb.onStateChange != nil && prev != next {
		cb.onStateChange(prev, next)
	}
}

func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerStats{
		State:           cb.state.String(),
		TotalCalls:      cb.totalCalls,
		TotalFailures:   cb.totalFailures,
		TotalRejections: cb.totalRejections,
		CurrentFailures: cb.failures,
		LastStateChange: cb.lastStateChange,
	}
}

// Reset forces the breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(CircuitClosed)
}
