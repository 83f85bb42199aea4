// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voicenote_transcriber"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsActive    prometheus.Gauge
	SessionsCompleted prometheus.Counter
	SessionsDiscarded prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Chunk metrics
	ChunksReceived prometheus.Counter
	ChunksDropped  prometheus.Counter
	SnapshotBytes  prometheus.Histogram

	// Recognition metrics
	RecognitionRequests *prometheus.CounterVec
	RecognitionErrors   *prometheus.CounterVec
	RecognitionLatency  *prometheus.HistogramVec
	WordsAppended       prometheus.Counter

	// Finalize metrics
	FinalizeTotal  prometheus.Counter
	FinalizeErrors prometheus.Counter

	// Batch metrics
	UploadsTotal    prometheus.Counter
	UploadsRejected *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of recording sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active recording sessions",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of sessions finalized successfully",
		}),
		SessionsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_discarded_total",
			Help:      "Total number of sessions discarded without finalizing",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Recorded duration of finalized sessions in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),

		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_received_total",
			Help:      "Total audio chunks accepted into chunk buffers",
		}),
		ChunksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_dropped_total",
			Help:      "Total audio chunks dropped below the minimum size threshold",
		}),
		SnapshotBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Size of cumulative snapshots sent for recognition",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),

		RecognitionRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_requests_total",
			Help:      "Total recognition requests issued",
		}, []string{"provider", "mode"}),
		RecognitionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_errors_total",
			Help:      "Total recognition request failures",
		}, []string{"provider", "mode"}),
		RecognitionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_latency_seconds",
			Help:      "Recognition request latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		WordsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_appended_total",
			Help:      "Total words reconciled into the word store",
		}),

		FinalizeTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_total",
			Help:      "Total finalize runs",
		}),
		FinalizeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_errors_total",
			Help:      "Total finalize runs that ended in an error transcript",
		}),

		UploadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total file uploads accepted for batch transcription",
		}),
		UploadsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Total file uploads rejected before any network call",
		}, []string{"reason"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new recording session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session leaving the active set.
func (m *Metrics) RecordSessionEnd(completed bool, durationSeconds float64) {
	m.SessionsActive.Dec()
	if completed {
		m.SessionsCompleted.Inc()
		m.SessionDuration.Observe(durationSeconds)
	} else {
		m.SessionsDiscarded.Inc()
	}
}

// RecordChunk records a chunk arrival; dropped marks sub-threshold chunks.
func (m *Metrics) RecordChunk(dropped bool) {
	if dropped {
		m.ChunksDropped.Inc()
		return
	}
	m.ChunksReceived.Inc()
}

// RecordRecognition records a recognition request outcome.
func (m *Metrics) RecordRecognition(provider, mode string, snapshotBytes int, err error, latencySeconds float64) {
	m.RecognitionRequests.WithLabelValues(provider, mode).Inc()
	m.RecognitionLatency.WithLabelValues(provider).Observe(latencySeconds)
	m.SnapshotBytes.Observe(float64(snapshotBytes))
	if err != nil {
		m.RecognitionErrors.WithLabelValues(provider, mode).Inc()
	}
}

// RecordWordsAppended records words reconciled into the store.
func (m *Metrics) RecordWordsAppended(n int) {
	m.WordsAppended.Add(float64(n))
}

// RecordFinalize records a finalize run outcome.
func (m *Metrics) RecordFinalize(err error) {
	m.FinalizeTotal.Inc()
	if err != nil {
		m.FinalizeErrors.Inc()
	}
}

// RecordUpload records an accepted batch upload.
func (m *Metrics) RecordUpload() {
	m.UploadsTotal.Inc()
}

// RecordUploadRejected records an upload rejected during validation.
func (m *Metrics) RecordUploadRejected(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
