package whisper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skypro1111/whisper-stream-service/internal/engine"
)

// fakeBackend stands in for the CGO bindings.
type fakeBackend struct {
	mu         sync.Mutex
	loadCalls  int
	loadErr    error
	segments   []engine.Segment
	languages  []string
	closeCalls int
}

func (b *fakeBackend) Load(modelPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadCalls++
	return b.loadErr
}

func (b *fakeBackend) Transcribe(ctx context.Context, samples []float32, language string, threads int) ([]engine.Segment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.languages = append(b.languages, language)
	return b.segments, nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCalls++
	return nil
}

func newTestEngine(t *testing.T, b backend, opts ...Option) *Engine {
	t.Helper()
	e, err := New("model.bin", opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	e.backend = b
	return e
}

func TestNewRequiresModelPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("Expected error for empty model path")
	}
}

func TestLoadModelReloadsFromDisk(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(t, b)

	for i := 0; i < 3; i++ {
		if err := e.LoadModel(); err != nil {
			t.Fatalf("LoadModel call %d failed: %v", i, err)
		}
	}

	// Each explicit LoadModel releases the old model and reads the
	// file again, so a model swapped on disk takes effect.
	if b.loadCalls != 3 {
		t.Errorf("Expected 3 backend loads, got %d", b.loadCalls)
	}
	if b.closeCalls != 2 {
		t.Errorf("Expected 2 backend closes before reload, got %d", b.closeCalls)
	}

	// The lazy-load path inside Transcribe reuses the loaded model.
	if _, err := e.Transcribe(context.Background(), engine.Request{Samples: make([]float32, 100)}); err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if b.loadCalls != 3 {
		t.Errorf("Expected Transcribe to reuse the loaded model, got %d loads", b.loadCalls)
	}
}

func TestLoadModelFailurePropagates(t *testing.T) {
	b := &fakeBackend{loadErr: errors.New("no such file")}
	e := newTestEngine(t, b)

	if err := e.LoadModel(); err == nil {
		t.Fatal("Expected load error")
	}

	// A failed load is not sticky: the next attempt retries
	b.mu.Lock()
	b.loadErr = nil
	b.mu.Unlock()
	if err := e.LoadModel(); err != nil {
		t.Errorf("Expected retry to succeed, got %v", err)
	}
	if b.loadCalls != 2 {
		t.Errorf("Expected 2 load attempts, got %d", b.loadCalls)
	}
}

func TestTranscribeLazyLoads(t *testing.T) {
	b := &fakeBackend{segments: []engine.Segment{{Text: " hello ", Start: 0, End: time.Second}}}
	e := newTestEngine(t, b)

	segments, err := e.Transcribe(context.Background(), engine.Request{
		Samples:    make([]float32, 16000),
		SampleRate: 16000,
		ChunkID:    "c1",
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if b.loadCalls != 1 {
		t.Errorf("Expected lazy model load, got %d load calls", b.loadCalls)
	}
	if len(segments) != 1 || segments[0].Text != "hello" {
		t.Errorf("Expected trimmed segment 'hello', got %v", segments)
	}
}

func TestTranscribeFiltersHallucinations(t *testing.T) {
	b := &fakeBackend{segments: []engine.Segment{
		{Text: "[BLANK_AUDIO]"},
		{Text: "(Music)"},
		{Text: "  "},
		{Text: "real speech"},
		{Text: "[anything bracketed]"},
	}}
	e := newTestEngine(t, b)

	segments, err := e.Transcribe(context.Background(), engine.Request{
		Samples:    make([]float32, 100),
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Expected 1 surviving segment, got %d", len(segments))
	}
	if segments[0].Text != "real speech" {
		t.Errorf("Expected 'real speech', got %q", segments[0].Text)
	}
}

func TestTranscribeLanguageOverride(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(t, b, WithLanguage("en"))

	samples := make([]float32, 100)
	if _, err := e.Transcribe(context.Background(), engine.Request{Samples: samples}); err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if _, err := e.Transcribe(context.Background(), engine.Request{Samples: samples, Language: "uk"}); err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(b.languages) != 2 || b.languages[0] != "en" || b.languages[1] != "uk" {
		t.Errorf("Expected languages [en uk], got %v", b.languages)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	b := &fakeBackend{segments: []engine.Segment{{Text: "ghost"}}}
	e := newTestEngine(t, b)

	segments, err := e.Transcribe(context.Background(), engine.Request{})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if segments != nil {
		t.Errorf("Expected no segments for empty audio, got %v", segments)
	}
}

func TestCloseReleasesModel(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(t, b)

	if err := e.LoadModel(); err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	if b.closeCalls != 1 {
		t.Errorf("Expected 1 backend close, got %d", b.closeCalls)
	}

	if _, err := e.Transcribe(context.Background(), engine.Request{Samples: make([]float32, 10)}); err == nil {
		t.Error("Expected error using a closed engine")
	}
}
