package audio

import (
	"testing"
	"time"
)

func TestNewChunk(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	chunk := NewChunk(7, samples, 16000, 2*time.Second)

	if chunk.ID == "" {
		t.Error("Expected a generated chunk ID")
	}
	if chunk.StreamID != 7 {
		t.Errorf("Expected stream ID 7, got %d", chunk.StreamID)
	}
	if chunk.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", chunk.SampleRate)
	}
	if len(chunk.Samples) != 3 {
		t.Errorf("Expected 3 samples, got %d", len(chunk.Samples))
	}

	// The chunk owns its samples: mutating the source must not leak in
	samples[0] = 9.9
	if chunk.Samples[0] != 0.1 {
		t.Errorf("Chunk samples aliased the caller's slice")
	}
}

func TestChunkDuration(t *testing.T) {
	samples := make([]float32, 8000)
	chunk := NewChunk(1, samples, 16000, 0)

	if chunk.Duration() != 500*time.Millisecond {
		t.Errorf("Expected 500ms duration, got %v", chunk.Duration())
	}
	if chunk.End() != 500*time.Millisecond {
		t.Errorf("Expected end at 500ms, got %v", chunk.End())
	}
}

func TestChunkEnd(t *testing.T) {
	samples := make([]float32, 16000)
	chunk := NewChunk(1, samples, 16000, 3*time.Second)

	if chunk.End() != 4*time.Second {
		t.Errorf("Expected end at 4s, got %v", chunk.End())
	}
}

func TestChunkUniqueIDs(t *testing.T) {
	a := NewChunk(1, []float32{0}, 16000, 0)
	b := NewChunk(1, []float32{0}, 16000, 0)
	if a.ID == b.ID {
		t.Errorf("Expected distinct chunk IDs, both were %s", a.ID)
	}
}
