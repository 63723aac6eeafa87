package collect

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for scrape runs.
type Metrics struct {
	Registry       *prometheus.Registry
	TargetsTotal   *prometheus.CounterVec
	ReviewsTotal   prometheus.Counter
	BlocksTotal    prometheus.Counter
	TargetDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	targets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_targets_total",
			Help: "Targets processed by the collector, by outcome.",
		},
		[]string{"status"},
	)
	reviews := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_reviews_total",
			Help: "Review records emitted by the collector.",
		},
	)
	blocks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_blocks_total",
			Help: "Raw blocks handed to the field extractor.",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collector_target_duration_seconds",
			Help:    "Wall time spent per target, navigation included.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(targets, reviews, blocks, duration)

	return &Metrics{
		Registry:       registry,
		TargetsTotal:   targets,
		ReviewsTotal:   reviews,
		BlocksTotal:    blocks,
		TargetDuration: duration,
	}
}

// IncTarget increments the per-outcome target counter.
func (m *Metrics) IncTarget(status string) {
	if m == nil {
		return
	}
	m.TargetsTotal.WithLabelValues(status).Inc()
}

// AddReviews counts emitted records.
func (m *Metrics) AddReviews(n int) {
	if m == nil {
		return
	}
	m.ReviewsTotal.Add(float64(n))
}

// AddBlocks counts blocks passed to extraction.
func (m *Metrics) AddBlocks(n int) {
	if m == nil {
		return
	}
	m.BlocksTotal.Add(float64(n))
}

// ObserveTarget records one target's processing duration.
func (m *Metrics) ObserveTarget(d time.Duration) {
	if m == nil {
		return
	}
	m.TargetDuration.Observe(d.Seconds())
}
