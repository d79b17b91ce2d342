// Package engine defines the speech-to-text capability the processing
// worker dispatches audio chunks to, and its implementations.
package engine

import (
	"context"
	"time"
)

// Request carries one audio chunk to a transcription backend.
type Request struct {
	Samples    []float32     // Normalized mono samples
	SampleRate int           // Samples per second
	Timestamp  time.Duration // Chunk start offset from stream start
	Language   string        // BCP-47-ish language hint, empty for auto
	StreamID   uint32
	ChunkID    string
}

// Segment is one piece of recognized speech. Start and End are offsets
// within the submitted audio.
type Segment struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Engine is a speech-to-text backend. Transcribe blocks until the audio
// has been recognized or ctx is done. Implementations need not be safe
// for concurrent Transcribe calls; the pipeline serializes dispatch
// through a single worker.
type Engine interface {
	Transcribe(ctx context.Context, req Request) ([]Segment, error)
	Close() error
}

// Duration returns the audio length of the request.
func (r Request) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}
