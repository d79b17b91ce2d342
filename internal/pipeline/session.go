package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/whisper-stream-service/internal/audio"
	"github.com/skypro1111/whisper-stream-service/internal/metrics"
	"github.com/skypro1111/whisper-stream-service/internal/vad"
)

// SessionConfig contains per-stream processing configuration.
type SessionConfig struct {
	SampleRate    int
	RingCapacity  int           // Ring buffer capacity in samples
	WindowSize    int           // VAD window size in samples
	DrainInterval time.Duration // How often the drain loop polls the ring
	IngestBacklog int           // Buffered packets between receiver and ingest
	VADThreshold  float32
	Segmenter     SegmenterConfig
	Metrics       *metrics.Metrics // optional
}

// Session is the processing state of one audio stream. Exactly one
// goroutine writes the ring (ingest) and exactly one reads it (drain),
// preserving the buffer's single-producer single-consumer contract even
// though packets arrive on the shared receive loop.
type Session struct {
	ID           uint32
	Source       string
	Language     string
	StartTime    time.Time
	LastActivity time.Time

	ring      *audio.Ring
	detector  *vad.Detector
	segmenter *Segmenter
	worker    *Worker
	logger    *slog.Logger

	config SessionConfig

	// Packet hand-off from the receive loop to the ingest goroutine
	ingest chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup

	// Statistics
	samplesReceived  uint64
	samplesTruncated uint64
	packetsDropped   uint64
	chunksGenerated  uint64
	chunksRejected   uint64

	mu sync.RWMutex
}

// SessionInfo represents session information for monitoring APIs.
type SessionInfo struct {
	StreamID     uint32        `json:"stream_id"`
	Source       string        `json:"source"`
	Language     string        `json:"language"`
	StartTime    time.Time     `json:"start_time"`
	LastActivity time.Time     `json:"last_activity"`
	Duration     time.Duration `json:"duration"`

	SamplesReceived  uint64 `json:"samples_received"`
	SamplesTruncated uint64 `json:"samples_truncated"`
	PacketsDropped   uint64 `json:"packets_dropped"`
	ChunksGenerated  uint64 `json:"chunks_generated"`
	ChunksRejected   uint64 `json:"chunks_rejected"`

	VoicePercentage  float64 `json:"voice_percentage"`
	WindowsProcessed uint64  `json:"windows_processed"`
	BufferedSamples  int     `json:"buffered_samples"`
}

// NewSession creates a session and starts its ingest and drain goroutines.
func NewSession(streamID uint32, source, language string, config SessionConfig,
	worker *Worker, logger *slog.Logger) (*Session, error) {

	detector, err := vad.NewDetector(config.VADThreshold, config.WindowSize, config.SampleRate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:           streamID,
		Source:       source,
		Language:     language,
		StartTime:    now,
		LastActivity: now,
		ring:         audio.NewRing(config.RingCapacity),
		detector:     detector,
		segmenter:    NewSegmenter(streamID, config.Segmenter),
		worker:       worker,
		logger:       logger,
		config:       config,
		ingest:       make(chan []byte, config.IngestBacklog),
		closed:       make(chan struct{}),
	}

	s.wg.Add(2)
	go s.ingestLoop()
	go s.drainLoop()

	return s, nil
}

// WritePacket hands one PCM16 payload to the ingest goroutine. It never
// blocks the receive loop: if the ingest backlog is full the packet is
// dropped and counted.
func (s *Session) WritePacket(data []byte) {
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()

	select {
	case s.ingest <- data:
	case <-s.closed:
	default:
		s.mu.Lock()
		s.packetsDropped++
		s.mu.Unlock()
		if s.config.Metrics != nil {
			s.config.Metrics.RecordPacketDropped()
		}
	}
}

// ingestLoop is the sole producer of the ring buffer. It converts PCM16
// payloads to float32 and writes them, counting samples the full ring
// could not take.
func (s *Session) ingestLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.closed:
			return
		case data := <-s.ingest:
			samples := audio.PCM16ToFloat32(data)
			written := s.ring.Write(samples)

			s.mu.Lock()
			s.samplesReceived += uint64(len(samples))
			if written < len(samples) {
				s.samplesTruncated += uint64(len(samples) - written)
			}
			s.mu.Unlock()

			if s.config.Metrics != nil {
				s.config.Metrics.RecordSamplesIngested(written, len(samples)-written)
			}

			if written < len(samples) {
				s.logger.Warn("Ring buffer full, samples truncated",
					slog.Uint64("stream_id", uint64(s.ID)),
					slog.Int("truncated", len(samples)-written),
				)
			}
		}
	}
}

// drainLoop is the sole consumer of the ring buffer. It polls on a
// ticker, slices the buffered audio into fixed windows and runs each
// window through detection and segmentation.
func (s *Session) drainLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.DrainInterval)
	defer ticker.Stop()

	scratch := make([]float32, s.config.WindowSize)
	window := make([]float32, 0, s.config.WindowSize)

	for {
		select {
		case <-s.closed:
			// Flush what is left in the ring, then force out the
			// pending segment so trailing speech is not lost
			s.drainAvailable(scratch, &window)
			if chunk := s.segmenter.ForceFinalize(); chunk != nil {
				s.dispatchChunk(chunk)
			}
			return
		case <-ticker.C:
			s.drainAvailable(scratch, &window)
		}
	}
}

// drainAvailable consumes every complete window currently in the ring.
func (s *Session) drainAvailable(scratch []float32, window *[]float32) {
	for {
		need := s.config.WindowSize - len(*window)
		n := s.ring.Read(scratch[:need])
		if n == 0 {
			return
		}
		*window = append(*window, scratch[:n]...)

		if len(*window) < s.config.WindowSize {
			return
		}

		s.processWindow(*window)
		*window = (*window)[:0]
	}
}

// processWindow runs one full window through VAD and the segmenter.
func (s *Session) processWindow(window []float32) {
	result, err := s.detector.Process(window)
	if err != nil {
		s.logger.Error("Voice detection failed",
			slog.Uint64("stream_id", uint64(s.ID)),
			slog.String("error", err.Error()),
		)
		return
	}

	chunk := s.segmenter.Process(window, result.HasVoice)
	if chunk != nil {
		s.dispatchChunk(chunk)
	}
}

// dispatchChunk hands a finished chunk to the worker.
func (s *Session) dispatchChunk(chunk *audio.Chunk) {
	if s.config.Metrics != nil {
		s.config.Metrics.RecordChunkGenerated(chunk.Duration().Seconds(), len(chunk.Samples))
	}

	accepted := s.worker.EnqueueAudio(chunk)

	s.mu.Lock()
	s.chunksGenerated++
	if !accepted {
		s.chunksRejected++
	}
	s.mu.Unlock()

	if accepted {
		s.logger.Info("Audio chunk generated",
			slog.Uint64("stream_id", uint64(s.ID)),
			slog.String("chunk_id", chunk.ID),
			slog.Float64("duration", chunk.Duration().Seconds()),
			slog.Int("samples", len(chunk.Samples)),
		)
	} else {
		s.logger.Warn("Audio chunk not accepted by worker",
			slog.Uint64("stream_id", uint64(s.ID)),
			slog.String("chunk_id", chunk.ID),
		)
	}
}

// Close stops the session's goroutines and flushes pending audio.
// It is idempotent and blocks until both goroutines have exited.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.wg.Wait()
	})
}

// GetSessionInfo returns session information for monitoring.
func (s *Session) GetSessionInfo() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vadStats := s.detector.GetStats()

	return SessionInfo{
		StreamID:     s.ID,
		Source:       s.Source,
		Language:     s.Language,
		StartTime:    s.StartTime,
		LastActivity: s.LastActivity,
		Duration:     time.Since(s.StartTime),

		SamplesReceived:  s.samplesReceived,
		SamplesTruncated: s.samplesTruncated,
		PacketsDropped:   s.packetsDropped,
		ChunksGenerated:  s.chunksGenerated,
		ChunksRejected:   s.chunksRejected,

		VoicePercentage:  vadStats.VoicePercentage,
		WindowsProcessed: vadStats.TotalWindows,
		BufferedSamples:  s.ring.Available(),
	}
}
