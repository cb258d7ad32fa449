package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder backed by Prometheus.
// Collectors are registered on first use.
type PrometheusRecorder struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	assignments        *prometheus.CounterVec
	shortfalls         *prometheus.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheus creates a Prometheus-backed recorder.
// A nil reg uses prometheus.DefaultRegisterer and an empty namespace uses "planner".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "planner"
	}

	return &PrometheusRecorder{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusRecorder) ensureRegistered() {
	p.once.Do(func() {
		p.generations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "generations_total",
			Help:      "Week generation attempts by outcome (success, failure, locked).",
		}, []string{"outcome"})

		p.generationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of week generation runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		})

		p.assignments = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "assignments_created_total",
			Help:      "Assignments created by pass (mandatory, optional).",
		}, []string{"pass"})

		p.shortfalls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "shortfall_slots_total",
			Help:      "Mission slots left unfilled by pass (mandatory, optional).",
		}, []string{"pass"})

		p.reg.MustRegister(p.generations)
		p.reg.MustRegister(p.generationDuration)
		p.reg.MustRegister(p.assignments)
		p.reg.MustRegister(p.shortfalls)
	})
}

// RecordGeneration counts the attempt and observes its duration
func (p *PrometheusRecorder) RecordGeneration(outcome string, duration time.Duration) {
	p.ensureRegistered()
	p.generations.WithLabelValues(outcome).Inc()
	p.generationDuration.Observe(duration.Seconds())
}

// RecordAssignments adds count to the pass counter
func (p *PrometheusRecorder) RecordAssignments(pass string, count int) {
	if count <= 0 {
		return
	}
	p.ensureRegistered()
	p.assignments.WithLabelValues(pass).Add(float64(count))
}

// RecordShortfall adds the unfilled slots to the pass counter
func (p *PrometheusRecorder) RecordShortfall(pass string, slots int) {
	if slots <= 0 {
		return
	}
	p.ensureRegistered()
	p.shortfalls.WithLabelValues(pass).Add(float64(slots))
}
