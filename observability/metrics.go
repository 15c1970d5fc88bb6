package observability

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	termswapMetricsOnce sync.Once
	termswapRegistry    *TermswapMetrics
)

// ModuleMetrics returns the lazily-initialised registry recording API request
// activity per module and method.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "termswap",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "termswap",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "termswap",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "termswap",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the HTTP
// status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// RequestsVec exposes the request counter for tests and dashboards.
func (m *moduleMetrics) RequestsVec() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.requests
}

// ThrottlesVec exposes the throttle counter.
func (m *moduleMetrics) ThrottlesVec() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.throttles
}

// TermswapMetrics tracks exchange activity: operations by outcome, emitted
// events, and the reserves of pools touched by the API.
type TermswapMetrics struct {
	operations *prometheus.CounterVec
	events     *prometheus.CounterVec
	reserves   *prometheus.GaugeVec
	pools      prometheus.Gauge
}

// Termswap returns the lazily-initialised exchange metrics registry.
func Termswap() *TermswapMetrics {
	termswapMetricsOnce.Do(func() {
		termswapRegistry = &TermswapMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "termswap",
				Name:      "operations_total",
				Help:      "Pool operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "termswap",
				Name:      "events_total",
				Help:      "Emitted exchange events segmented by type.",
			}, []string{"type"}),
			reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "termswap",
				Name:      "pool_reserve",
				Help:      "Token reserves of a pool as a float approximation.",
			}, []string{"pair", "maturity", "token"}),
			pools: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "termswap",
				Name:      "pools",
				Help:      "Number of pools across all pairs.",
			}),
		}
		prometheus.MustRegister(
			termswapRegistry.operations,
			termswapRegistry.events,
			termswapRegistry.reserves,
			termswapRegistry.pools,
		)
	})
	return termswapRegistry
}

// RecordOperation counts one operation attempt under outcome, which is
// "success" when empty and otherwise a stable error label.
func (m *TermswapMetrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "success"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordEvent counts one emitted event.
func (m *TermswapMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// SetReserves publishes the reserves of one pool.
func (m *TermswapMetrics) SetReserves(pair string, maturity uint64, asset, collateral float64) {
	if m == nil {
		return
	}
	label := strconv.FormatUint(maturity, 10)
	m.reserves.WithLabelValues(pair, label, "asset").Set(asset)
	m.reserves.WithLabelValues(pair, label, "collateral").Set(collateral)
}

// SetPools publishes the number of pools.
func (m *TermswapMetrics) SetPools(n int) {
	if m == nil {
		return
	}
	m.pools.Set(float64(n))
}

// OperationsVec exposes the operation counter.
func (m *TermswapMetrics) OperationsVec() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.operations
}

// EventsVec exposes the event counter.
func (m *TermswapMetrics) EventsVec() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.events
}

// ReservesVec exposes the reserve gauge.
func (m *TermswapMetrics) ReservesVec() *prometheus.GaugeVec {
	if m == nil {
		return nil
	}
	return m.reserves
}
