// Package whisper implements the transcription engine on top of the
// whisper.cpp CGO bindings. Builds without the whisper_cpp tag get a
// stub backend that fails at load time, which keeps CGO and model
// files out of unit tests and plain builds.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/skypro1111/whisper-stream-service/internal/engine"
)

// backend abstracts the actual whisper.cpp bindings.
type backend interface {
	Load(modelPath string) error
	Transcribe(ctx context.Context, samples []float32, language string, threads int) ([]engine.Segment, error)
	Close() error
}

// Engine is a local speech-to-text engine. The model is loaded lazily
// and reused for every chunk; an explicit LoadModel replaces the loaded
// model with a fresh one from disk. A fresh inference context is created
// per Transcribe call since whisper.cpp contexts are not reusable across
// goroutines.
type Engine struct {
	backend   backend
	modelPath string
	language  string
	threads   int

	loaded bool
	closed bool
	mu     sync.Mutex
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLanguage sets the default language hint (e.g. "en", "uk").
// Per-request language overrides this.
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// WithThreads sets the inference thread count. Defaults to NumCPU
// capped at 8.
func WithThreads(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threads = n
		}
	}
}

// New creates an engine for the given model file. The model is not
// loaded until LoadModel or the first Transcribe call.
func New(modelPath string, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: model path must not be empty")
	}

	threads := runtime.NumCPU()
	if threads > 8 {
		threads = 8
	}

	e := &Engine{
		backend:   newBackend(),
		modelPath: modelPath,
		language:  "en",
		threads:   threads,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// LoadModel loads the model file into memory. Calling it again releases
// the current model and reloads it from disk, picking up a model file
// that changed on disk.
func (e *Engine) LoadModel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.New("whisper: engine is closed")
	}
	if e.loaded {
		e.loaded = false
		if err := e.backend.Close(); err != nil {
			return fmt.Errorf("whisper: release model before reload: %w", err)
		}
	}
	return e.loadLocked()
}

func (e *Engine) loadLocked() error {
	if e.closed {
		return errors.New("whisper: engine is closed")
	}
	if e.loaded {
		return nil
	}
	if err := e.backend.Load(e.modelPath); err != nil {
		return err
	}
	e.loaded = true
	return nil
}

// Transcribe runs inference on the request samples and returns the
// recognized segments with hallucination tags filtered out.
func (e *Engine) Transcribe(ctx context.Context, req engine.Request) ([]engine.Segment, error) {
	e.mu.Lock()
	if err := e.loadLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	language := e.language
	threads := e.threads
	e.mu.Unlock()

	if req.Language != "" {
		language = req.Language
	}

	if len(req.Samples) == 0 {
		return nil, nil
	}

	segments, err := e.backend.Transcribe(ctx, req.Samples, language, threads)
	if err != nil {
		return nil, fmt.Errorf("whisper: transcribe chunk %s: %w", req.ChunkID, err)
	}

	out := make([]engine.Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" || isHallucination(seg.Text) {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

// Close releases the model. The engine cannot be used afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if !e.loaded {
		return nil
	}
	e.loaded = false
	return e.backend.Close()
}

// isHallucination reports whether the text is a known whisper.cpp
// hallucination tag produced during silence or noise.
func isHallucination(s string) bool {
	tags := []string{
		"[BLANK_AUDIO]",
		"[blank_audio]",
		"(Music)",
		"(music)",
		"(noise)",
		"(Noise)",
		"[MUSIC]",
		"[Music]",
		"(clapping)",
		"(Applause)",
		"[silence]",
	}
	for _, tag := range tags {
		if s == tag {
			return true
		}
	}
	// Variations wrapped in brackets or parens that appear alone
	return len(s) > 2 && ((s[0] == '[' && s[len(s)-1] == ']') || (s[0] == '(' && s[len(s)-1] == ')'))
}
