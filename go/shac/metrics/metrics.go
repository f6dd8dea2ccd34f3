// Package metrics provides optional Prometheus instrumentation for the
// engine's epoch loop, matching the house's habit of wiring
// client_golang wherever there is a long-running control loop
// (go/prom_proxy). Instrumentation is opt-in: a nil *Metrics is valid
// and every method on it is a no-op, so Fit never depends on a metrics
// registry existing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's instrumentation. Construct with New,
// passing the registry to register against, or pass nil for a
// no-op instance.
type Metrics struct {
	epochDuration     prometheus.Histogram
	cascadeLength     prometheus.Gauge
	acceptanceRate    prometheus.Gauge
	generatorAttempts prometheus.Counter
}

// New registers the engine's metrics on reg. If reg is nil, New returns
// nil, and every method below is safe to call on a nil receiver.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		epochDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shac",
			Name:      "epoch_duration_seconds",
			Help:      "Wall-clock duration of one engine epoch.",
			Buckets:   prometheus.DefBuckets,
		}),
		cascadeLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shac",
			Name:      "cascade_length",
			Help:      "Number of classifiers currently in the cascade.",
		}),
		acceptanceRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shac",
			Name:      "epoch_acceptance_rate",
			Help:      "Fraction of the most recent batch labeled accepted.",
		}),
		generatorAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shac",
			Name:      "generator_attempts_total",
			Help:      "Total rejection-sampling draws across all epochs.",
		}),
	}
	reg.MustRegister(m.epochDuration, m.cascadeLength, m.acceptanceRate, m.generatorAttempts)
	return m
}

// ObserveEpochDuration records one epoch's wall-clock duration in seconds.
func (m *Metrics) ObserveEpochDuration(seconds float64) {
	if m == nil {
		return
	}
	m.epochDuration.Observe(seconds)
}

// SetCascadeLength records the cascade's current length.
func (m *Metrics) SetCascadeLength(n int) {
	if m == nil {
		return
	}
	m.cascadeLength.Set(float64(n))
}

// SetAcceptanceRate records the fraction of the most recent batch
// labeled accepted.
func (m *Metrics) SetAcceptanceRate(rate float64) {
	if m == nil {
		return
	}
	m.acceptanceRate.Set(rate)
}

// AddGeneratorAttempts accumulates rejection-sampling draws.
func (m *Metrics) AddGeneratorAttempts(n int64) {
	if m == nil {
		return
	}
	m.generatorAttempts.Add(float64(n))
}
