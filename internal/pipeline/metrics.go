package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// metrics collects per-run counters. The process is one-shot, so they are
// pushed to a Pushgateway at the end of the run instead of being scraped.
type metrics struct {
	registry         *prometheus.Registry
	runs             *prometheus.CounterVec
	guardOverrides   prometheus.Counter
	inferenceSeconds prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watering_advisor_runs_total",
			Help: "Completed advisor runs by outcome.",
		}, []string{"outcome"}),
		guardOverrides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watering_advisor_guard_overrides_total",
			Help: "Decisions flipped to water by the consistency guard.",
		}),
		inferenceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "watering_advisor_inference_duration_seconds",
			Help:    "Wall time of the inference service call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.runs, m.guardOverrides, m.inferenceSeconds)
	return m
}

func (m *metrics) observeInference(d time.Duration) {
	m.inferenceSeconds.Observe(d.Seconds())
}

func (m *metrics) pushTo(url, job, plant string) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).
		Gatherer(m.registry).
		Grouping("plant", plant).
		Push()
}
