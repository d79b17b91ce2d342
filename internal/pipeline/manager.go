package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/whisper-stream-service/internal/audio"
	"github.com/skypro1111/whisper-stream-service/internal/engine"
	"github.com/skypro1111/whisper-stream-service/internal/metrics"
)

// TranscriptHandler receives the segments produced for one chunk.
// It runs on the worker goroutine, so it should be quick.
type TranscriptHandler func(chunk *audio.Chunk, segments []engine.Segment)

// ManagerConfig contains configuration for the pipeline manager.
type ManagerConfig struct {
	Session        SessionConfig
	MaxPending     int            // Queue bound, 0 for unbounded
	OverflowPolicy OverflowPolicy
	SessionTimeout time.Duration    // Idle time before a session is reaped
	EngineTimeout  time.Duration    // Per-chunk transcription deadline, 0 for none
	Metrics        *metrics.Metrics // optional
}

// Manager owns the session registry, the shared chunk queue and the
// single processing worker that drives the transcription engine.
type Manager struct {
	sessions map[uint32]*Session
	mu       sync.RWMutex

	config ManagerConfig
	queue  *Queue
	worker *Worker
	eng    engine.Engine
	logger *slog.Logger

	onTranscript TranscriptHandler

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a manager around the given engine and starts the
// processing worker and the idle-session cleanup routine.
func NewManager(eng engine.Engine, config ManagerConfig, logger *slog.Logger,
	onTranscript TranscriptHandler) (*Manager, error) {

	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		sessions:     make(map[uint32]*Session),
		config:       config,
		eng:          eng,
		logger:       logger,
		onTranscript: onTranscript,
		ctx:          ctx,
		cancel:       cancel,
		cleanup:      make(chan struct{}),
	}

	m.config.Session.Metrics = config.Metrics

	m.queue = NewQueue(config.MaxPending, config.OverflowPolicy)
	if config.Metrics != nil {
		m.queue.SetMetrics(config.Metrics)
	}
	m.worker = NewWorker(m.queue, ProcessorFunc(m.transcribeChunk), logger)

	if err := m.worker.Start(); err != nil {
		cancel()
		return nil, err
	}

	go m.startCleanupRoutine()

	return m, nil
}

// transcribeChunk is the worker's processing step: one chunk in, its
// transcript out through the handler.
func (m *Manager) transcribeChunk(ctx context.Context, chunk *audio.Chunk) error {
	if m.config.EngineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.EngineTimeout)
		defer cancel()
	}

	language := ""
	if s, ok := m.GetSession(chunk.StreamID); ok {
		language = s.Language
	}

	if m.config.Metrics != nil {
		m.config.Metrics.RecordTranscriptionRequest()
	}
	started := time.Now()

	segments, err := m.eng.Transcribe(ctx, engine.Request{
		Samples:    chunk.Samples,
		SampleRate: chunk.SampleRate,
		Timestamp:  chunk.Timestamp,
		Language:   language,
		StreamID:   chunk.StreamID,
		ChunkID:    chunk.ID,
	})
	if err != nil {
		if m.config.Metrics != nil {
			m.config.Metrics.RecordTranscriptionFailure(time.Since(started).Seconds())
		}
		return fmt.Errorf("transcribe chunk %s: %w", chunk.ID, err)
	}

	if m.config.Metrics != nil {
		m.config.Metrics.RecordTranscriptionSuccess(time.Since(started).Seconds())
	}

	for _, seg := range segments {
		m.logger.Info("Transcription segment",
			slog.Uint64("stream_id", uint64(chunk.StreamID)),
			slog.String("chunk_id", chunk.ID),
			slog.Float64("start", (chunk.Timestamp + seg.Start).Seconds()),
			slog.Float64("end", (chunk.Timestamp + seg.End).Seconds()),
			slog.String("text", seg.Text),
		)
	}

	if m.onTranscript != nil {
		m.onTranscript(chunk, segments)
	}

	return nil
}

// CreateSession registers a new stream session. If the stream already
// exists its metadata is refreshed instead.
func (m *Manager) CreateSession(streamID uint32, source, language string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.sessions[streamID]; exists {
		m.logger.Warn("Session already exists, updating metadata",
			slog.Uint64("stream_id", uint64(streamID)),
			slog.String("source", source),
		)

		existing.mu.Lock()
		existing.Source = source
		existing.Language = language
		existing.LastActivity = time.Now()
		existing.mu.Unlock()

		return existing, nil
	}

	session, err := NewSession(streamID, source, language, m.config.Session, m.worker, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.sessions[streamID] = session

	if m.config.Metrics != nil {
		m.config.Metrics.RecordStreamCreated()
		m.config.Metrics.SetActiveStreams(len(m.sessions))
	}

	m.logger.Info("Created new stream session",
		slog.Uint64("stream_id", uint64(streamID)),
		slog.String("source", source),
		slog.String("language", language),
	)

	return session, nil
}

// GetSession retrieves an existing stream session.
func (m *Manager) GetSession(streamID uint32) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[streamID]
	return session, exists
}

// HandleAudio routes one PCM16 payload to its session.
func (m *Manager) HandleAudio(streamID uint32, data []byte) error {
	session, exists := m.GetSession(streamID)
	if !exists {
		return fmt.Errorf("no session for stream %d", streamID)
	}

	session.WritePacket(data)
	return nil
}

// RemoveSession closes and unregisters a stream session.
func (m *Manager) RemoveSession(streamID uint32) bool {
	m.mu.Lock()
	session, exists := m.sessions[streamID]
	if exists {
		delete(m.sessions, streamID)
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if !exists {
		return false
	}

	session.Close()

	info := session.GetSessionInfo()

	if m.config.Metrics != nil {
		m.config.Metrics.RecordStreamDestroyed(info.Duration.Seconds())
		m.config.Metrics.SetActiveStreams(remaining)
	}
	m.logger.Info("Stream session removed",
		slog.Uint64("stream_id", uint64(streamID)),
		slog.Duration("duration", info.Duration),
		slog.Uint64("samples_received", info.SamplesReceived),
		slog.Uint64("chunks_generated", info.ChunksGenerated),
	)

	return true
}

// GetActiveSessionCount returns the number of currently active sessions.
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns a snapshot of all active sessions.
func (m *Manager) GetAllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// QueueSize returns the number of chunks waiting for the worker.
func (m *Manager) QueueSize() int {
	return m.worker.QueueSize()
}

// GetWorkerStats returns worker statistics.
func (m *Manager) GetWorkerStats() WorkerStats {
	return m.worker.GetStats()
}

// GetQueueStats returns queue statistics.
func (m *Manager) GetQueueStats() QueueStats {
	return m.queue.GetStats()
}

// Stop shuts the manager down: all sessions are closed and flushed,
// then the worker is stopped, discarding whatever is still queued.
// Stop is idempotent.
func (m *Manager) Stop() {
	m.logger.Info("Stopping pipeline manager...")

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	if m.config.Metrics != nil {
		m.config.Metrics.SetActiveStreams(0)
	}

	m.worker.Stop()

	if err := m.eng.Close(); err != nil {
		m.logger.Warn("Error closing transcription engine", slog.String("error", err.Error()))
	}

	m.cancel()
	<-m.cleanup

	stats := m.worker.GetStats()
	m.logger.Info("Pipeline manager stopped",
		slog.Int("closed_sessions", len(sessions)),
		slog.Uint64("chunks_processed", stats.Processed),
		slog.Uint64("chunks_failed", stats.Failed),
	)
}

// startCleanupRoutine reaps sessions idle longer than the timeout.
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	m.logger.Info("Session cleanup routine started",
		slog.Duration("timeout", m.config.SessionTimeout),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Session cleanup routine stopping")
			return
		case <-ticker.C:
			m.cleanupExpiredSessions()
		}
	}
}

func (m *Manager) cleanupExpiredSessions() {
	now := time.Now()
	expired := make([]uint32, 0)

	m.mu.RLock()
	for streamID, session := range m.sessions {
		session.mu.RLock()
		lastActivity := session.LastActivity
		session.mu.RUnlock()

		if now.Sub(lastActivity) > m.config.SessionTimeout {
			expired = append(expired, streamID)
		}
	}
	m.mu.RUnlock()

	if len(expired) > 0 {
		m.logger.Info("Cleaning up expired sessions",
			slog.Int("expired_count", len(expired)),
		)

		for _, streamID := range expired {
			m.RemoveSession(streamID)
		}
	}
}
