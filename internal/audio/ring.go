package audio

import (
	"sync/atomic"
)

// DefaultRingCapacity is the reference sizing for a capture ring:
// 30 seconds of mono audio at 16 kHz.
const DefaultRingCapacity = 30 * 16000

// Ring is a fixed-capacity circular buffer of float32 PCM samples shared
// between exactly one producer goroutine and exactly one consumer goroutine.
//
// Synchronization is lock-free: each side owns one cursor and only ever
// stores to it, while loading the peer's cursor to compute occupancy. Go's
// sync/atomic operations are sequentially consistent, which is stronger than
// the acquire/release minimum this scheme needs: a Write that has published
// its cursor is fully visible to a subsequent Read, and vice versa. One slot
// is permanently sacrificed so that a full buffer (capacity-1 occupied) is
// distinguishable from an empty one without any extra state.
//
// The SPSC discipline is a caller obligation: concurrent calls to Write from
// more than one goroutine (or Read from more than one goroutine) corrupt the
// buffer. Clear is not safe against either side running concurrently.
type Ring struct {
	buf      []float32
	capacity uint64

	writePos atomic.Uint64 // owned by the producer
	readPos  atomic.Uint64 // owned by the consumer
}

// NewRing creates a ring buffer holding at most capacity-1 samples.
// Capacity must be at least 2.
func NewRing(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring{
		buf:      make([]float32, capacity),
		capacity: uint64(capacity),
	}
}

// Write copies as many leading samples of src into the ring as fit and
// returns the number written. When free space is insufficient the call
// truncates silently: the trailing samples are dropped and the caller must
// compare the return value against len(src) to detect the loss. Producer
// goroutine only.
func (r *Ring) Write(src []float32) int {
	w := r.writePos.Load()
	rd := r.readPos.Load()

	var free uint64
	if rd > w {
		free = rd - w - 1
	} else {
		free = r.capacity - w + rd - 1
	}

	n := uint64(len(src))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	// Split into two copies when the write wraps past the end of storage.
	first := n
	if tail := r.capacity - w; first > tail {
		first = tail
	}
	copy(r.buf[w:], src[:first])
	if n > first {
		copy(r.buf, src[first:n])
	}

	// Publish the cursor only after both copies are complete.
	r.writePos.Store((w + n) % r.capacity)

	return int(n)
}

// Read copies up to len(dst) samples out of the ring in FIFO order and
// returns the number read; 0 when the ring is empty. Consumer goroutine only.
func (r *Ring) Read(dst []float32) int {
	rd := r.readPos.Load()
	w := r.writePos.Load()

	var occupied uint64
	if w >= rd {
		occupied = w - rd
	} else {
		occupied = r.capacity - rd + w
	}

	n := uint64(len(dst))
	if n > occupied {
		n = occupied
	}
	if n == 0 {
		return 0
	}

	first := n
	if tail := r.capacity - rd; first > tail {
		first = tail
	}
	copy(dst[:first], r.buf[rd:rd+first])
	if n > first {
		copy(dst[first:n], r.buf[:n-first])
	}

	r.readPos.Store((rd + n) % r.capacity)

	return int(n)
}

// Available reports the number of occupied samples. The result is advisory:
// either cursor may move before the caller acts on it.
func (r *Ring) Available() int {
	rd := r.readPos.Load()
	w := r.writePos.Load()

	if w >= rd {
		return int(w - rd)
	}
	return int(r.capacity - rd + w)
}

// Free reports the number of samples a Write could currently accept.
// Advisory, like Available.
func (r *Ring) Free() int {
	return int(r.capacity-1) - r.Available()
}

// Cap returns the usable capacity in samples (one slot less than storage).
func (r *Ring) Cap() int {
	return int(r.capacity - 1)
}

// Clear resets both cursors to zero for reuse between sessions. It must not
// be called while a producer or consumer is active; this is a caller
// obligation and is not defended against internally.
func (r *Ring) Clear() {
	r.writePos.Store(0)
	r.readPos.Store(0)
}
