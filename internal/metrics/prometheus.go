package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the streaming transcription service
type Metrics struct {
	// UDP packet metrics
	PacketsReceived  prometheus.Counter
	PacketsProcessed prometheus.Counter
	ParseErrors      prometheus.Counter

	// Stream metrics
	ActiveStreams    prometheus.Gauge
	StreamsCreated   prometheus.Counter
	StreamsDestroyed prometheus.Counter
	StreamDuration   prometheus.Histogram

	// Buffer metrics
	SamplesIngested  prometheus.Counter
	SamplesTruncated prometheus.Counter
	PacketsDropped   prometheus.Counter

	// Segmentation metrics
	ChunksGenerated prometheus.Counter
	ChunkDuration   prometheus.Histogram
	ChunkSize       prometheus.Histogram

	// Processing queue metrics
	QueueDepth    prometheus.Gauge
	QueueDropped  prometheus.Counter
	QueueRejected prometheus.Counter

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	TranscriptionRetries   prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// UDP packet metrics
		PacketsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_packets_received_total",
			Help: "Total number of UDP packets received",
		}),
		PacketsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_packets_processed_total",
			Help: "Total number of UDP packets successfully processed",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_parse_errors_total",
			Help: "Total number of packet parsing errors",
		}),

		// Stream metrics
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stt_active_streams",
			Help: "Current number of active audio streams",
		}),
		StreamsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_streams_created_total",
			Help: "Total number of streams created",
		}),
		StreamsDestroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_streams_destroyed_total",
			Help: "Total number of streams destroyed",
		}),
		StreamDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_stream_duration_seconds",
			Help:    "Duration of audio streams in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// Buffer metrics
		SamplesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_samples_ingested_total",
			Help: "Total number of audio samples written to stream buffers",
		}),
		SamplesTruncated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_samples_truncated_total",
			Help: "Total number of audio samples dropped because a stream buffer was full",
		}),
		PacketsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_packets_dropped_total",
			Help: "Total number of audio packets dropped because a stream ingest backlog was full",
		}),

		// Segmentation metrics
		ChunksGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_audio_chunks_generated_total",
			Help: "Total number of audio chunks generated",
		}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_chunk_duration_seconds",
			Help:    "Duration of generated audio chunks",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		ChunkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_chunk_size_samples",
			Help:    "Size of generated audio chunks in samples",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
		}),

		// Processing queue metrics
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stt_queue_depth",
			Help: "Current number of chunks waiting in the processing queue",
		}),
		QueueDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_queue_dropped_total",
			Help: "Total number of queued chunks evicted under the drop-oldest policy",
		}),
		QueueRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_queue_rejected_total",
			Help: "Total number of chunks rejected by a full or closed queue",
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcription_requests_total",
			Help: "Total number of transcription requests",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcription_successes_total",
			Help: "Total number of successful transcriptions",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcription_failures_total",
			Help: "Total number of failed transcriptions",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stt_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPacketReceived increments the packets received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordPacketProcessed increments the packets processed counter
func (m *Metrics) RecordPacketProcessed() {
	m.PacketsProcessed.Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// SetActiveStreams sets the current number of active streams
func (m *Metrics) SetActiveStreams(count int) {
	m.ActiveStreams.Set(float64(count))
}

// RecordStreamCreated increments the streams created counter
func (m *Metrics) RecordStreamCreated() {
	m.StreamsCreated.Inc()
}

// RecordStreamDestroyed increments the streams destroyed counter and records duration
func (m *Metrics) RecordStreamDestroyed(durationSeconds float64) {
	m.StreamsDestroyed.Inc()
	m.StreamDuration.Observe(durationSeconds)
}

// RecordSamplesIngested records samples accepted into a stream buffer and
// samples truncated because the buffer was full
func (m *Metrics) RecordSamplesIngested(written, truncated int) {
	m.SamplesIngested.Add(float64(written))
	if truncated > 0 {
		m.SamplesTruncated.Add(float64(truncated))
	}
}

// RecordPacketDropped increments the dropped packet counter
func (m *Metrics) RecordPacketDropped() {
	m.PacketsDropped.Inc()
}

// RecordChunkGenerated records a generated audio chunk
func (m *Metrics) RecordChunkGenerated(durationSeconds float64, sizeSamples int) {
	m.ChunksGenerated.Inc()
	m.ChunkDuration.Observe(durationSeconds)
	m.ChunkSize.Observe(float64(sizeSamples))
}

// SetQueueDepth sets the current processing queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordQueueDropped increments the evicted chunk counter
func (m *Metrics) RecordQueueDropped() {
	m.QueueDropped.Inc()
}

// RecordQueueRejected increments the rejected chunk counter
func (m *Metrics) RecordQueueRejected() {
	m.QueueRejected.Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
