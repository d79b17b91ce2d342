//go:build whisper_cpp

// The whisper.cpp static library (libwhisper.a) and headers (whisper.h)
// must be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/skypro1111/whisper-stream-service/internal/engine"
)

// ErrModelNotFound is returned when the model file is missing.
var ErrModelNotFound = errors.New("whisper model not found")

// nativeBackend wraps github.com/ggerganov/whisper.cpp/bindings/go.
type nativeBackend struct {
	model whisperlib.Model
}

func newBackend() backend {
	return &nativeBackend{}
}

func (b *nativeBackend) Load(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}

	model, err := whisperlib.New(modelPath)
	if err != nil {
		return fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	b.model = model
	return nil
}

// Transcribe creates a fresh whisper context for this inference. A
// context is not thread-safe, but the model can be shared.
func (b *nativeBackend) Transcribe(ctx context.Context, samples []float32, language string, threads int) ([]engine.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := b.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", language, err)
	}
	wctx.SetThreads(uint(threads))

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var segments []engine.Segment
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		segments = append(segments, engine.Segment{
			Text:  segment.Text,
			Start: segment.Start,
			End:   segment.End,
		})
	}

	return segments, nil
}

func (b *nativeBackend) Close() error {
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}
