package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	PassesTotal       *prometheus.CounterVec
	PassDuration      prometheus.Histogram
	RecordsParsed     prometheus.Histogram
	IdentitiesPerPass prometheus.Histogram
	EntriesEmitted    *prometheus.CounterVec
	SeenSetSize       prometheus.Gauge
	PersistFailures   *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_passes_total",
			Help: "Total triage passes by outcome.",
		}, []string{"outcome"}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_pass_duration_seconds",
			Help:    "Duration of triage passes in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~4s
		}),
		RecordsParsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_feed_records",
			Help:    "Raw observation records parsed per pass.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. ~4096
		}),
		IdentitiesPerPass: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_identities",
			Help:    "Canonical identities produced per pass.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. ~4096
		}),
		EntriesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_entries_emitted_total",
			Help: "Entries appended to the output log by risk label.",
		}, []string{"risk"}),
		SeenSetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sift_seen_keys",
			Help: "Identity keys currently in the seen-set.",
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_persist_failures_total",
			Help: "Non-fatal persistence failures by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.PassesTotal,
		m.PassDuration,
		m.RecordsParsed,
		m.IdentitiesPerPass,
		m.EntriesEmitted,
		m.SeenSetSize,
		m.PersistFailures,
	)

	return m
}
