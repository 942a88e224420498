package hook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ensemble"

// Metrics records hook registration and dispatch activity. A nil *Metrics
// records nothing.
type Metrics struct {
	registered *prometheus.CounterVec
	dropped    prometheus.Counter
	fired      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the hook collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		registered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hook",
			Name:      "registered_total",
			Help:      "Hooks registered, by phase.",
		}, []string{"phase"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hook",
			Name:      "dropped_total",
			Help:      "Hook registrations dropped because the workflow was unknown.",
		}),
		fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hook",
			Name:      "fired_total",
			Help:      "Workflows run by dispatch, by phase.",
		}, []string{"phase"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "hook",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent running all hooks of a phase.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"phase"}),
	}

	for _, c := range []prometheus.Collector{m.registered, m.dropped, m.fired, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) hookRegistered(phase Phase) {
	if m == nil {
		return
	}
	m.registered.WithLabelValues(phase.String()).Inc()
}

func (m *Metrics) hookDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) hookFired(phase Phase) {
	if m == nil {
		return
	}
	m.fired.WithLabelValues(phase.String()).Inc()
}

func (m *Metrics) dispatched(phase Phase, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(phase.String()).Observe(elapsed.Seconds())
}
