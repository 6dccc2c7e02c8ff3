// Package telemetry publishes the engine's live read model — opportunity
// snapshots, aggregate stats, and chain health — and pushes it to connected
// observers over a broadcast hub, the way §4.H describes. Metrics are
// registered once at construction, same as the pack's service-template
// middleware registers its HTTP counters.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every Prometheus collector the engine exposes: scan ticks,
// quote latency, execution outcomes by terminal state, and chain health
// transitions.
type Metrics struct {
	ScanTicksTotal       *prometheus.CounterVec
	QuoteLatencySeconds  *prometheus.HistogramVec
	ExecutionOutcomes    *prometheus.CounterVec
	ChainHealthTransitions *prometheus.CounterVec
	SubscriberGauge      prometheus.Gauge
}

// NewMetrics constructs and registers every collector on reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test packages.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine",
			Name:      "scan_ticks_total",
			Help:      "Total number of scanner ticks, labeled by chain.",
		}, []string{"chain"}),
		QuoteLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbengine",
			Name:      "quote_latency_seconds",
			Help:      "Latency of a single venue quote call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain", "venue"}),
		ExecutionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine",
			Name:      "execution_outcomes_total",
			Help:      "Executions reaching a terminal state, labeled by that state.",
		}, []string{"state"}),
		ChainHealthTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine",
			Name:      "chain_health_transitions_total",
			Help:      "Endpoint health-state transitions, labeled by chain and new state.",
		}, []string{"chain", "state"}),
		SubscriberGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arbengine",
			Name:      "telemetry_subscribers",
			Help:      "Currently connected telemetry subscribers.",
		}),
	}

	reg.MustRegister(
		m.ScanTicksTotal,
		m.QuoteLatencySeconds,
		m.ExecutionOutcomes,
		m.ChainHealthTransitions,
		m.SubscriberGauge,
	)
	return m
}
