package resilience

import (
	"strings"

	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal counts store attempts by operation and outcome kind
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clientbook_store_attempts_total",
		Help: "Store attempts made through the resilience policy, by operation and outcome",
	}, []string{"operation", "outcome"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clientbook_store_retries_total",
		Help: "Retries scheduled after transient store failures",
	}, []string{"operation"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clientbook_circuit_rejections_total",
		Help: "Calls rejected because the circuit was open",
	}, []string{"operation"})

	// breakerState mirrors CircuitState: 0 closed, 1 open, 2 half-open
	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clientbook_circuit_state",
		Help: "Current circuit breaker state (0 closed, 1 open, 2 half-open)",
	})
)

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if k := domain.KindOf(err); k != "" {
		return strings.ToLower(string(k))
	}
	return "error"
}
