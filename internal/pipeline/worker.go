package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/whisper-stream-service/internal/audio"
)

// Processor is the processing step the worker applies to each dequeued
// chunk. Implementations must be safe for use from the worker goroutine.
type Processor interface {
	Process(ctx context.Context, chunk *audio.Chunk) error
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(ctx context.Context, chunk *audio.Chunk) error

func (f ProcessorFunc) Process(ctx context.Context, chunk *audio.Chunk) error {
	return f(ctx, chunk)
}

// WorkerState represents the worker lifecycle state.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Worker owns the single background goroutine that drains the chunk
// queue and hands each chunk to the processor in strict FIFO order. One
// chunk is dequeued per wakeup and processed with no queue lock held, so
// producers are never blocked by a slow processor. Processing failures
// are reported through the error callback and never terminate the loop.
type Worker struct {
	queue     *Queue
	processor Processor
	logger    *slog.Logger
	onError   func(chunk *audio.Chunk, err error)

	state   WorkerState
	started bool // the goroutine was launched at least once
	done    chan struct{}
	mu      sync.Mutex

	// Statistics
	processed uint64
	failed    uint64
	ignored   uint64 // chunks offered after stop
}

// WorkerStats represents worker statistics.
type WorkerStats struct {
	State     string `json:"state"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Ignored   uint64 `json:"ignored_after_stop"`
	Pending   int    `json:"pending"`
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithErrorHandler installs a callback invoked for every chunk whose
// processing fails. The callback runs on the worker goroutine.
func WithErrorHandler(fn func(chunk *audio.Chunk, err error)) WorkerOption {
	return func(w *Worker) {
		w.onError = fn
	}
}

// NewWorker creates a worker bound to the given queue and processor.
// The worker does not run until Start is called.
func NewWorker(queue *Queue, processor Processor, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:     queue,
		processor: processor,
		logger:    logger,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the background processing goroutine. Starting an
// already started or stopped worker is an error.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case WorkerRunning:
		return fmt.Errorf("worker already running")
	case WorkerStopped:
		return fmt.Errorf("worker already stopped")
	}

	w.state = WorkerRunning
	w.started = true
	go w.run()

	w.logger.Info("Processing worker started")
	return nil
}

// EnqueueAudio offers a chunk to the worker. It never blocks. After Stop
// the chunk is silently ignored and counted.
func (w *Worker) EnqueueAudio(chunk *audio.Chunk) bool {
	if !w.queue.Enqueue(chunk) {
		w.mu.Lock()
		if w.state == WorkerStopped {
			w.ignored++
		}
		w.mu.Unlock()
		return false
	}
	return true
}

// QueueSize returns the number of chunks waiting to be processed.
func (w *Worker) QueueSize() int {
	return w.queue.Len()
}

// Stop shuts the worker down: the queue is closed, pending chunks are
// discarded, and Stop blocks until the processing goroutine exits. The
// chunk being processed at the time of the call completes. Stop is
// idempotent and safe to call from multiple goroutines; every caller
// waits for the goroutine, not just the first one.
func (w *Worker) Stop() {
	w.mu.Lock()
	wasRunning := w.state == WorkerRunning
	started := w.started
	w.state = WorkerStopped
	w.mu.Unlock()

	var discarded int
	if wasRunning {
		discarded = w.queue.Len()
		w.queue.Close()
	}

	if started {
		<-w.done
	}

	if !wasRunning {
		return
	}

	w.mu.Lock()
	processed := w.processed
	failed := w.failed
	w.mu.Unlock()

	w.logger.Info("Processing worker stopped",
		slog.Int("discarded_chunks", discarded),
		slog.Uint64("processed", processed),
		slog.Uint64("failed", failed),
	)
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() WorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WorkerStats{
		State:     w.state.String(),
		Processed: w.processed,
		Failed:    w.failed,
		Ignored:   w.ignored,
		Pending:   w.queue.Len(),
	}
}

// run is the worker loop: one chunk per wakeup, processed outside any lock.
func (w *Worker) run() {
	defer close(w.done)

	for {
		chunk, ok := w.queue.Pop()
		if !ok {
			return
		}
		w.processChunk(chunk)
	}
}

func (w *Worker) processChunk(chunk *audio.Chunk) {
	start := time.Now()
	err := w.processor.Process(context.Background(), chunk)
	elapsed := time.Since(start)

	w.mu.Lock()
	if err != nil {
		w.failed++
	} else {
		w.processed++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Chunk processing failed",
			slog.Uint64("stream_id", uint64(chunk.StreamID)),
			slog.String("chunk_id", chunk.ID),
			slog.String("error", err.Error()),
			slog.Float64("elapsed", elapsed.Seconds()),
		)
		if w.onError != nil {
			w.onError(chunk, err)
		}
		return
	}

	w.logger.Debug("Chunk processed",
		slog.Uint64("stream_id", uint64(chunk.StreamID)),
		slog.String("chunk_id", chunk.ID),
		slog.Float64("duration", chunk.Duration().Seconds()),
		slog.Float64("elapsed", elapsed.Seconds()),
	)
}
