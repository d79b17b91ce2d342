package pipeline

import (
	"sync"
	"time"

	"github.com/skypro1111/whisper-stream-service/internal/audio"
)

// SegmenterState represents the current state of the segmentation process.
type SegmenterState int

const (
	StateIdle SegmenterState = iota
	StateCollecting
	StateWaitingSilence
)

// SegmenterConfig contains configuration for the segmentation process.
type SegmenterConfig struct {
	MinDuration        time.Duration // Minimum segment length to emit
	MaxDuration        time.Duration // Hard cap, segment is cut even mid-speech
	MinSpeechDuration  time.Duration // Minimum voiced time for a segment to count
	MinSilenceDuration time.Duration // Silence needed to close a segment
	SampleRate         int
}

// Segmenter turns a stream of voice-annotated audio windows into audio
// chunks ready for transcription. Timing is derived from consumed sample
// counts rather than the wall clock, so segmentation is deterministic
// for a given input.
type Segmenter struct {
	config   SegmenterConfig
	streamID uint32
	state    SegmenterState

	// Position in the stream, advanced by each processed window
	pos time.Duration

	// Pending segment samples and timing
	pending      []float32
	segmentStart time.Duration
	speechStart  time.Duration
	lastSpeech   time.Duration
	silenceStart time.Duration
	inSilence    bool

	// Statistics
	segmentsCreated uint64
	totalDuration   time.Duration

	mu sync.RWMutex
}

// SegmenterStats represents segmenter statistics.
type SegmenterStats struct {
	State           string        `json:"state"`
	SegmentsCreated uint64        `json:"segments_created"`
	TotalDuration   time.Duration `json:"total_duration"`
	PendingSamples  int           `json:"pending_samples"`
}

// NewSegmenter creates a segmenter for one audio stream.
func NewSegmenter(streamID uint32, config SegmenterConfig) *Segmenter {
	return &Segmenter{
		config:   config,
		streamID: streamID,
		state:    StateIdle,
	}
}

// Process consumes one window of samples together with its voice
// decision. It returns a finished chunk when the window closes a
// segment, nil otherwise.
func (s *Segmenter) Process(window []float32, hasVoice bool) *audio.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	windowDur := time.Duration(len(window)) * time.Second / time.Duration(s.config.SampleRate)
	windowEnd := s.pos + windowDur

	var chunk *audio.Chunk

	switch s.state {
	case StateIdle:
		if hasVoice {
			s.startSegment(window)
		}

	case StateCollecting:
		s.pending = append(s.pending, window...)

		if hasVoice {
			s.lastSpeech = windowEnd
			s.inSilence = false

			if windowEnd-s.segmentStart >= s.config.MaxDuration {
				chunk = s.finalizeSegment(windowEnd)
			}
		} else {
			if !s.inSilence {
				s.inSilence = true
				s.silenceStart = s.pos
			}

			silenceDur := windowEnd - s.silenceStart
			segmentDur := windowEnd - s.segmentStart

			if silenceDur >= s.config.MinSilenceDuration || segmentDur >= s.config.MaxDuration {
				speechDur := s.lastSpeech - s.speechStart
				if speechDur >= s.config.MinSpeechDuration && segmentDur >= s.config.MinDuration {
					chunk = s.finalizeSegment(windowEnd)
				} else {
					s.state = StateWaitingSilence
				}
			}
		}

	case StateWaitingSilence:
		s.pending = append(s.pending, window...)

		if hasVoice {
			// Speech resumed, keep collecting
			s.state = StateCollecting
			s.lastSpeech = windowEnd
			s.inSilence = false
		} else if windowEnd-s.silenceStart >= 2*s.config.MinSilenceDuration {
			// Sustained silence after too little speech: drop the segment
			if s.lastSpeech-s.speechStart >= s.config.MinSpeechDuration {
				chunk = s.finalizeSegment(windowEnd)
			} else {
				s.resetSegment()
			}
		}
	}

	s.pos = windowEnd
	return chunk
}

// startSegment begins collecting a new segment at the current position.
func (s *Segmenter) startSegment(window []float32) {
	s.pending = append(s.pending[:0], window...)
	s.segmentStart = s.pos
	s.speechStart = s.pos
	s.lastSpeech = s.pos + time.Duration(len(window))*time.Second/time.Duration(s.config.SampleRate)
	s.inSilence = false
	s.state = StateCollecting
}

// finalizeSegment emits the pending samples as a chunk.
func (s *Segmenter) finalizeSegment(end time.Duration) *audio.Chunk {
	if len(s.pending) == 0 {
		s.resetSegment()
		return nil
	}

	chunk := audio.NewChunk(s.streamID, s.pending, s.config.SampleRate, s.segmentStart)

	s.segmentsCreated++
	s.totalDuration += end - s.segmentStart
	s.resetSegment()

	return chunk
}

// resetSegment clears pending state for the next segment.
func (s *Segmenter) resetSegment() {
	s.state = StateIdle
	s.pending = s.pending[:0]
	s.segmentStart = 0
	s.speechStart = 0
	s.lastSpeech = 0
	s.silenceStart = 0
	s.inSilence = false
}

// ForceFinalize emits whatever is pending, used when the stream ends.
func (s *Segmenter) ForceFinalize() *audio.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle || len(s.pending) == 0 {
		return nil
	}

	return s.finalizeSegment(s.pos)
}

// HasPendingSegment reports whether a segment is currently being collected.
func (s *Segmenter) HasPendingSegment() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != StateIdle && len(s.pending) > 0
}

// GetStats returns current segmenter statistics.
func (s *Segmenter) GetStats() SegmenterStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stateStr := "idle"
	switch s.state {
	case StateCollecting:
		stateStr = "collecting"
	case StateWaitingSilence:
		stateStr = "waiting_silence"
	}

	return SegmenterStats{
		State:           stateStr,
		SegmentsCreated: s.segmentsCreated,
		TotalDuration:   s.totalDuration,
		PendingSamples:  len(s.pending),
	}
}
