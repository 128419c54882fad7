// Package metrics exposes Prometheus instrumentation for the transcription
// pipeline. All Record helpers are nil-safe so components can run without
// metrics (tests, library use).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	SessionsStarted  prometheus.Counter
	SessionsFinished *prometheus.CounterVec // outcome: completed|cancelled|failed
	SessionDuration  prometheus.Histogram

	ChunksProcessed *prometheus.CounterVec // status: success|error
	ChunkDuration   prometheus.Histogram
	ChunkBytes      prometheus.Histogram

	ProviderCalls   prometheus.Counter
	ProviderRetries prometheus.Counter
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scribestream_sessions_started_total",
			Help: "Total number of transcription sessions started",
		}),
		SessionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scribestream_sessions_finished_total",
			Help: "Total number of transcription sessions finished, by outcome",
		}, []string{"outcome"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribestream_session_duration_seconds",
			Help:    "Wall-clock duration of transcription sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),
		ChunksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scribestream_chunks_processed_total",
			Help: "Total number of chunks processed, by status",
		}, []string{"status"}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribestream_chunk_transcription_duration_seconds",
			Help:    "Duration of per-chunk transcription calls including retries",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),
		ChunkBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribestream_chunk_size_bytes",
			Help:    "Size of submitted audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),
		ProviderCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scribestream_provider_calls_total",
			Help: "Total number of provider transcription calls",
		}),
		ProviderRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scribestream_provider_retries_total",
			Help: "Total number of provider call retries",
		}),
	}
}

// RecordSessionStarted increments the started-sessions counter.
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

// RecordSessionFinished records a session outcome and its duration.
func (m *Metrics) RecordSessionFinished(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SessionsFinished.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordChunk records one chunk's status, call duration, and payload size.
func (m *Metrics) RecordChunk(status string, durationSeconds float64, sizeBytes int) {
	if m == nil {
		return
	}
	m.ChunksProcessed.WithLabelValues(status).Inc()
	m.ChunkDuration.Observe(durationSeconds)
	m.ChunkBytes.Observe(float64(sizeBytes))
}

// RecordProviderCall increments the provider-call counter.
func (m *Metrics) RecordProviderCall() {
	if m == nil {
		return
	}
	m.ProviderCalls.Inc()
}

// RecordProviderRetry increments the provider-retry counter.
func (m *Metrics) RecordProviderRetry() {
	if m == nil {
		return
	}
	m.ProviderRetries.Inc()
}
