package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/platform/logger"
)

type Config struct {
	// MaxAttempts bounds the total number of tries, first call included.
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Jitter is the backoff randomization factor in [0, 1).
	Jitter  float64
	Breaker BreakerConfig
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2,
		Jitter:         0.2,
		Breaker:        DefaultBreakerConfig(),
	}
}

// Policy composes retry with exponential backoff around a circuit breaker.
// Every attempt passes through the breaker; the breaker is shared by all calls.
type Policy struct {
	config  Config
	breaker *CircuitBreaker
	log     *logger.Logger
}

func NewPolicy(config Config, baseLog *logger.Logger) *Policy {
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 1
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	policyLog := baseLog.With("component", "ResiliencePolicy")
	breaker := NewCircuitBreaker(config.Breaker)
	breaker.onStateChange = func(from, to CircuitState) {
		breakerState.Set(float64(to))
		policyLog.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
	}
	return &Policy{config: config, breaker: breaker, log: policyLog}
}

func (p *Policy) Breaker() *CircuitBreaker { return p.breaker }

func (p *Policy) Stats() BreakerStats { return p.breaker.Stats() }

// Run executes fn under the policy when no result value is needed.
func (p *Policy) Run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute runs fn under the policy. Transient failures are retried up to
// MaxAttempts and then surface as a terminal TransientStore error. Any other
// failure is returned on first encounter. The returned error is always
// classified.
func Execute[T any](ctx context.Context, p *Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, domain.Canceled(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.InitialBackoff
	b.MaxInterval = p.config.MaxBackoff
	b.Multiplier = p.config.Multiplier
	b.RandomizationFactor = p.config.Jitter

	attempts := 0
	result, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		allowed, release := p.breaker.Allow()
		if !allowed {
			rejectionsTotal.WithLabelValues(operation).Inc()
			return zero, backoff.Permanent(domain.CircuitOpen(operation))
		}
		if release != nil {
			defer release()
		}

		res, callErr := fn(ctx)
		classified := Classify(ctx, callErr)
		attemptsTotal.WithLabelValues(operation, outcomeLabel(classified)).Inc()

		switch domain.KindOf(classified) {
		case "":
			p.breaker.RecordSuccess()
			return res, nil
		case domain.KindTransientStore:
			p.breaker.RecordFailure()
			return zero, classified
		case domain.KindCanceled:
			return zero, backoff.Permanent(classified)
		default:
			// The store answered, so it is healthy even though the call failed.
			p.breaker.RecordSuccess()
			return zero, backoff.Permanent(classified)
		}
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.config.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			retriesTotal.WithLabelValues(operation).Inc()
			p.log.Warn("retrying store operation", "operation", operation, "attempt", attempts, "backoff", next, "error", err)
		}),
	)
	if err == nil {
		return result, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if domain.KindOf(err) == "" {
		// Retry stopped on the context between attempts.
		return zero, domain.Canceled(err)
	}
	if domain.KindOf(err) == domain.KindTransientStore {
		cause := err
		var de *domain.Error
		if errors.As(err, &de) && de.Err != nil {
			cause = de.Err
		}
		p.log.Error("store operation failed after retries", "operation", operation, "attempts", attempts, "error", cause)
		return zero, domain.TransientStore(fmt.Sprintf("%s failed after %d attempts", operation, attempts), cause)
	}
	return zero, err
}
