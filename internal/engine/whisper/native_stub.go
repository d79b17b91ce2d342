//go:build !whisper_cpp

package whisper

import (
	"context"
	"errors"

	"github.com/skypro1111/whisper-stream-service/internal/engine"
)

// errDisabled is returned by the stub backend compiled without the
// whisper_cpp build tag.
var errDisabled = errors.New("whisper.cpp support is disabled in this build")

type stubBackend struct{}

func newBackend() backend {
	return stubBackend{}
}

func (stubBackend) Load(modelPath string) error {
	return errDisabled
}

func (stubBackend) Transcribe(ctx context.Context, samples []float32, language string, threads int) ([]engine.Segment, error) {
	return nil, errDisabled
}

func (stubBackend) Close() error {
	return nil
}
