package audio

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is one discrete, timestamped unit of audio handed from capture to
// transcription. The sample slice is an owned copy made at construction and
// never aliased afterwards, so a Chunk is immutable once built and can cross
// goroutine boundaries freely. Ownership transfers into the processing queue
// on enqueue.
type Chunk struct {
	ID       string
	StreamID uint32

	// Samples is mono float32 PCM. Treat as read-only.
	Samples    []float32
	SampleRate int

	// Timestamp is the capture offset of the first sample, relative to
	// stream start, derived from the consumed sample count.
	Timestamp time.Duration

	// CreatedAt is the wall-clock time the chunk was sealed.
	CreatedAt time.Time
}

// NewChunk builds a chunk from the given samples, copying them so the caller
// may reuse its buffer immediately.
func NewChunk(streamID uint32, samples []float32, sampleRate int, timestamp time.Duration) *Chunk {
	owned := make([]float32, len(samples))
	copy(owned, samples)

	return &Chunk{
		ID:         uuid.NewString(),
		StreamID:   streamID,
		Samples:    owned,
		SampleRate: sampleRate,
		Timestamp:  timestamp,
		CreatedAt:  time.Now(),
	}
}

// Duration returns the audio duration covered by the chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// End returns the capture offset just past the last sample.
func (c *Chunk) End() time.Duration {
	return c.Timestamp + c.Duration()
}
