package resilience

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg BreakerConfig, clock *fakeClock) *CircuitBreaker {
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	cb.lastStateChange = clock.Now()
	return cb
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(BreakerConfig{FailureThreshold: 3, OpenDuration: time.Second, HalfOpenMax: 1}, clock)

	for i := 0; i < 2; i++ {
		allowed, release := cb.Allow()
		require.True(t, allowed)
		assert.Nil(t, release)
		cb.RecordFailure()
	}
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	allowed, _ := cb.Allow()
	assert.False(t, allowed)
	assert.Equal(t, int64(1), cb.Stats().TotalRejections)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(BreakerConfig{FailureThreshold: 2, OpenDuration: time.Second}, clock)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, 1, cb.Stats().CurrentFailures)
}

func TestCircuitBreaker_FailureWindowExpires(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(BreakerConfig{FailureThreshold: 2, FailureWindow: time.Minute, OpenDuration: time.Second}, clock)

	cb.RecordFailure()
	clock.Advance(2 * time.Minute)
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(BreakerConfig{FailureThreshold: 1, OpenDuration: 10 * time.Second, HalfOpenMax: 1}, clock)

	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	clock.Advance(5 * time.Second)
	allowed, _ := cb.Allow()
	assert.False(t, allowed, "still inside open duration")

	clock.Advance(5 * time.Second)
	allowed, release := cb.Allow()
	require.True(t, allowed)
	require.NotNil(t, release)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	second, _ := cb.Allow()
	assert.False(t, second, "only one probe is admitted")

	cb.RecordSuccess()
	release()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(BreakerConfig{FailureThreshold: 1, OpenDuration: time.Second, HalfOpenMax: 1}, clock)

	cb.RecordFailure()
	clock.Advance(time.Second)

	allowed, release := cb.Allow()
	require.True(t, allowed)
	cb.RecordFailure()
	release()

	assert.Equal(t, CircuitOpen, cb.State())
	allowed, _ = cb.Allow()
	assert.False(t, allowed)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, OpenDuration: time.Hour})
	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	allowed, _ := cb.Allow()
	assert.True(t, allowed)
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1000, OpenDuration: time.Hour})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if allowed, release := cb.Allow(); allowed {
					if (i+j)%2 == 0 {
						cb.RecordFailure()
					} else {
						cb.RecordSuccess()
					}
					if release != nil {
						release()
					}
				}
				_ = cb.Stats()
			}
		}(i)
	}
	wg.Wait()

	stats := cb.Stats()
	assert.Equal(t, int64(500), stats.TotalCalls)
	assert.Equal(t, int64(250), stats.TotalFailures)
}
