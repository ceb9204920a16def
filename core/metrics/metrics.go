// Package metrics declares the minimal instrumentation surface the actor
// core emits into. Backends (Prometheus, StatsD, test fakes) implement these
// interfaces; the core never imports a concrete one.
package metrics

// Counter only ever goes up.
type Counter interface {
	// Inc increments the counter by 1.
	Inc()
	// Add increments the counter by delta, which must be >= 0.
	Add(delta float64)
}

// Gauge tracks a value that moves in both directions.
type Gauge interface {
	// Set replaces the current value.
	Set(value float64)
	// Inc increments the gauge by 1.
	Inc()
	// Dec decrements the gauge by 1.
	Dec()
	// Add adds delta, which may be negative.
	Add(delta float64)
}

// Histogram samples observations, typically durations, into buckets.
type Histogram interface {
	// Observe records a single observation.
	Observe(value float64)
}

// Timer measures one operation: create it when the operation starts and call
// ObserveDuration when it completes.
type Timer interface {
	// ObserveDuration records the time elapsed since the timer was created.
	ObserveDuration()
}
