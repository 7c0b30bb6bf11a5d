// Package metrics exposes Prometheus collectors for ambient observability:
// endpoint health (C2/C3), circuit-breaker state (C10), and monitored
// portfolio aggregates (C4/C11). No HTTP handler is wired here — serving
// /metrics is outside this module's scope. init registers every collector
// with the Prometheus default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// EndpointHealthScore reports each RPC endpoint's rolling mean latency
	// in milliseconds, labeled by url and by whether it's currently
	// considered healthy.
	EndpointHealthScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clmmctl_endpoint_latency_ms",
			Help: "Rolling mean latency per RPC endpoint, in milliseconds.",
		},
		[]string{"url", "healthy"},
	)

	// EndpointFailuresTotal counts request failures per endpoint.
	EndpointFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmmctl_endpoint_failures_total",
			Help: "Count of request failures observed per RPC endpoint.",
		},
		[]string{"url"},
	)

	// CircuitBreakerState reports the breaker's current state as a gauge
	// per state label, set to 1 for the active state and 0 for the rest.
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clmmctl_circuit_breaker_state",
			Help: "Circuit breaker state indicator (closed/open/half_open as separate labeled series).",
		},
		[]string{"state"},
	)

	// MonitoredPositions reports the current count of positions under
	// monitor, labeled by whether their last read was stale.
	MonitoredPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clmmctl_monitored_positions",
			Help: "Count of positions currently tracked by the monitor.",
		},
		[]string{"stale"},
	)

	// PortfolioValueUSD reports the monitor's aggregate portfolio value.
	PortfolioValueUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clmmctl_portfolio_value_usd",
			Help: "Aggregate USD value across all monitored positions.",
		},
	)

	// RebalancesTotal counts completed rebalances by outcome.
	RebalancesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clmmctl_rebalances_total",
			Help: "Count of rebalance attempts by outcome (confirmed|failed).",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(EndpointHealthScore, EndpointFailuresTotal)
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(MonitoredPositions, PortfolioValueUSD)
	prometheus.MustRegister(RebalancesTotal)
}

// SetBreakerState flips the three circuit-breaker state series so exactly
// one reads 1, mirroring the teacher's model-mode indicator pattern.
func SetBreakerState(active string) {
	for _, state := range []string{"closed", "open", "half_open"} {
		if state == active {
			CircuitBreakerState.WithLabelValues(state).Set(1)
		} else {
			CircuitBreakerState.WithLabelValues(state).Set(0)
		}
	}
}

// RecordEndpointHealth reports one endpoint's latest rolling-mean latency.
func RecordEndpointHealth(url string, healthy bool, meanLatencyMs float64) {
	healthyLabel := "false"
	if healthy {
		healthyLabel = "true"
	}
	EndpointHealthScore.WithLabelValues(url, healthyLabel).Set(meanLatencyMs)
}

// RecordRebalanceOutcome increments the rebalance counter for outcome.
func RecordRebalanceOutcome(outcome string) {
	RebalancesTotal.WithLabelValues(outcome).Inc()
}
