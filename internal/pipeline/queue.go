package pipeline

import (
	"fmt"
	"sync"

	"github.com/skypro1111/whisper-stream-service/internal/audio"
	"github.com/skypro1111/whisper-stream-service/internal/metrics"
)

// OverflowPolicy controls what happens when a bounded queue is full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest pending chunk to make room for the new one.
	DropOldest OverflowPolicy = iota
	// DropNewest rejects the incoming chunk and keeps the queue unchanged.
	DropNewest
)

// ParseOverflowPolicy converts a config string to an OverflowPolicy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "drop_oldest", "":
		return DropOldest, nil
	case "drop_newest":
		return DropNewest, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy: %s", s)
	}
}

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// Queue is a FIFO of audio chunks shared between producers and a single
// consuming worker. Enqueue never blocks: when the queue is bounded and
// full the overflow policy decides which chunk is dropped. Pop blocks
// until a chunk arrives or the queue is closed; chunks still pending at
// close time are discarded.
type Queue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []*audio.Chunk
	maxPending int // 0 means unbounded
	policy     OverflowPolicy
	closed     bool
	metrics    *metrics.Metrics // optional

	// Statistics
	enqueued uint64
	dropped  uint64
	rejected uint64 // enqueue attempts after close
}

// QueueStats represents queue statistics.
type QueueStats struct {
	Pending    int            `json:"pending"`
	Enqueued   uint64         `json:"enqueued"`
	Dropped    uint64         `json:"dropped"`
	Rejected   uint64         `json:"rejected_after_close"`
	MaxPending int            `json:"max_pending"`
	Policy     OverflowPolicy `json:"-"`
}

// NewQueue creates a chunk queue. maxPending of 0 makes the queue unbounded.
func NewQueue(maxPending int, policy OverflowPolicy) *Queue {
	q := &Queue{
		maxPending: maxPending,
		policy:     policy,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SetMetrics attaches Prometheus instrumentation to the queue.
func (q *Queue) SetMetrics(m *metrics.Metrics) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.metrics = m
}

// Enqueue appends a chunk to the queue. It returns false when the chunk
// was not accepted, either because the queue is closed or because the
// queue is full and the policy rejects new chunks.
func (q *Queue) Enqueue(chunk *audio.Chunk) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.rejected++
		if q.metrics != nil {
			q.metrics.RecordQueueRejected()
		}
		return false
	}

	if q.maxPending > 0 && len(q.items) >= q.maxPending {
		switch q.policy {
		case DropOldest:
			copy(q.items, q.items[1:])
			q.items = q.items[:len(q.items)-1]
			q.dropped++
			if q.metrics != nil {
				q.metrics.RecordQueueDropped()
			}
		case DropNewest:
			q.dropped++
			if q.metrics != nil {
				q.metrics.RecordQueueDropped()
			}
			return false
		}
	}

	q.items = append(q.items, chunk)
	q.enqueued++
	if q.metrics != nil {
		q.metrics.SetQueueDepth(len(q.items))
	}
	q.cond.Signal()
	return true
}

// Pop removes and returns the oldest chunk, blocking until one is
// available. It returns (nil, false) once the queue has been closed,
// regardless of how many chunks remain pending.
func (q *Queue) Pop() (*audio.Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.closed {
		return nil, false
	}

	chunk := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if q.metrics != nil {
		q.metrics.SetQueueDepth(len(q.items))
	}
	return chunk, true
}

// Len returns the number of pending chunks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed and wakes all waiters. Pending chunks are
// discarded. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}

// GetStats returns current queue statistics.
func (q *Queue) GetStats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueStats{
		Pending:    len(q.items),
		Enqueued:   q.enqueued,
		Dropped:    q.dropped,
		Rejected:   q.rejected,
		MaxPending: q.maxPending,
		Policy:     q.policy,
	}
}
