package wal

import "github.com/prometheus/client_golang/prometheus"

// Metrics is optional Prometheus instrumentation for a WAL. Build one with
// NewMetrics, register it against a prometheus.Registerer, and attach it to
// a WAL with WithMetrics. A WAL with no Metrics attached instruments
// nothing; every call site guards on a nil *Metrics.
type Metrics struct {
	segmentsOpen      prometheus.Gauge
	segmentsReclaimed prometheus.Counter
	entriesWritten    prometheus.Counter
	entriesRead       prometheus.Counter
	appendSeconds     prometheus.Histogram
	readSeconds       prometheus.Histogram
}

// NewMetrics builds a Metrics with every collector namespaced under
// namespace (e.g. "walctl"). Call MustRegister before attaching it to a
// WAL so the first observation isn't lost.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		segmentsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wal_segments_open",
			Help:      "Number of segment files currently open.",
		}),
		segmentsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wal_segments_reclaimed_total",
			Help:      "Segments destroyed after being fully consumed.",
		}),
		entriesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wal_entries_written_total",
			Help:      "Entries successfully appended.",
		}),
		entriesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wal_entries_read_total",
			Help:      "Entries delivered to readers.",
		}),
		appendSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wal_append_seconds",
			Help:      "Latency of WAL.Write calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		readSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wal_read_seconds",
			Help:      "Latency of WAL.Read calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// MustRegister registers every collector in m against reg. It panics on a
// duplicate registration, matching prometheus.Registerer.MustRegister.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.segmentsOpen,
		m.segmentsReclaimed,
		m.entriesWritten,
		m.entriesRead,
		m.appendSeconds,
		m.readSeconds,
	)
}
