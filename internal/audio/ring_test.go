package audio

import (
	"math/rand"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestNewRing(t *testing.T) {
	ring := NewRing(1000)

	if ring.Cap() != 999 {
		t.Errorf("Expected usable capacity 999, got %d", ring.Cap())
	}

	if ring.Available() != 0 {
		t.Errorf("Expected empty ring, got %d samples", ring.Available())
	}

	if ring.Free() != 999 {
		t.Errorf("Expected 999 free samples, got %d", ring.Free())
	}
}

func TestRingWriteRead(t *testing.T) {
	ring := NewRing(100)

	src := make([]float32, 50)
	for i := range src {
		src[i] = float32(i) * 0.01
	}

	written := ring.Write(src)
	if written != 50 {
		t.Fatalf("Expected 50 samples written, got %d", written)
	}

	if ring.Available() != 50 {
		t.Errorf("Expected 50 samples available, got %d", ring.Available())
	}

	dst := make([]float32, 50)
	read := ring.Read(dst)
	if read != 50 {
		t.Fatalf("Expected 50 samples read, got %d", read)
	}

	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("Sample %d: expected %f, got %f", i, src[i], dst[i])
		}
	}

	if ring.Available() != 0 {
		t.Errorf("Expected empty ring after full read, got %d", ring.Available())
	}
}

func TestRingWraparound(t *testing.T) {
	ring := NewRing(16) // 15 usable slots

	// Advance the cursors so the next write straddles the physical end.
	pad := make([]float32, 10)
	if n := ring.Write(pad); n != 10 {
		t.Fatalf("Expected 10 padding samples written, got %d", n)
	}
	if n := ring.Read(make([]float32, 10)); n != 10 {
		t.Fatalf("Expected 10 padding samples read, got %d", n)
	}

	// Write 12 samples: 6 before the wrap point, 6 after.
	src := make([]float32, 12)
	for i := range src {
		src[i] = float32(i + 1)
	}
	if n := ring.Write(src); n != 12 {
		t.Fatalf("Expected 12 samples written across wrap, got %d", n)
	}

	// Read them back in two unequal pieces to exercise the split on both sides.
	dst := make([]float32, 12)
	if n := ring.Read(dst[:5]); n != 5 {
		t.Fatalf("Expected 5 samples in first read, got %d", n)
	}
	if n := ring.Read(dst[5:]); n != 7 {
		t.Fatalf("Expected 7 samples in second read, got %d", n)
	}

	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("Sample %d corrupted across wrap: expected %f, got %f", i, src[i], dst[i])
		}
	}
}

func TestRingAvailableBookkeeping(t *testing.T) {
	ring := NewRing(200)

	total := 0
	for _, size := range []int{30, 1, 68, 50} {
		total += ring.Write(make([]float32, size))
	}
	if total != 149 {
		t.Fatalf("Expected 149 samples written, got %d", total)
	}
	if ring.Available() != 149 {
		t.Errorf("Expected Available() == 149, got %d", ring.Available())
	}

	if n := ring.Read(make([]float32, 149)); n != 149 {
		t.Fatalf("Expected 149 samples read, got %d", n)
	}
	if ring.Available() != 0 {
		t.Errorf("Expected Available() == 0 after draining, got %d", ring.Available())
	}
}

func TestRingOverflowTruncation(t *testing.T) {
	ring := NewRing(10) // 9 usable slots

	if n := ring.Write(make([]float32, 9)); n != 9 {
		t.Fatalf("Expected 9 samples written, got %d", n)
	}

	// The ring is full: a further write must be truncated to nothing.
	if n := ring.Write(make([]float32, 5)); n != 0 {
		t.Errorf("Expected second write to return 0, got %d", n)
	}

	if ring.Available() != 9 {
		t.Errorf("Expected Available() still 9, got %d", ring.Available())
	}

	// Freeing space by reading makes room again.
	if n := ring.Read(make([]float32, 4)); n != 4 {
		t.Fatalf("Expected 4 samples read, got %d", n)
	}
	if n := ring.Write(make([]float32, 5)); n != 4 {
		t.Errorf("Expected partial write of 4 after freeing 4, got %d", n)
	}
}

func TestRingPartialRead(t *testing.T) {
	ring := NewRing(100)

	ring.Write(make([]float32, 10))

	dst := make([]float32, 25)
	if n := ring.Read(dst); n != 10 {
		t.Errorf("Expected short read of 10, got %d", n)
	}

	if n := ring.Read(dst); n != 0 {
		t.Errorf("Expected 0 from empty ring, got %d", n)
	}
}

func TestRingClear(t *testing.T) {
	ring := NewRing(50)

	ring.Write(make([]float32, 30))
	ring.Clear()

	if ring.Available() != 0 {
		t.Errorf("Expected empty ring after Clear, got %d", ring.Available())
	}
	if ring.Free() != 49 {
		t.Errorf("Expected full free space after Clear, got %d", ring.Free())
	}
}

// TestRingConcurrentStress runs a single writer goroutine against a single
// reader (the test goroutine) with random transfer sizes and verifies that
// every sample accepted by Write is eventually returned by Read, in FIFO
// order, with nothing corrupted across wrap boundaries.
func TestRingConcurrentStress(t *testing.T) {
	const (
		capacity   = 1031 // deliberately not a power of two
		iterations = 20000
	)

	ring := NewRing(capacity)

	var written atomic.Int64
	writerDone := make(chan struct{})

	// Writer: monotonically increasing sample values so the reader can
	// verify FIFO order without a shared log. Truncated samples are simply
	// retried as the start of the next chunk.
	go func() {
		defer close(writerDone)
		rng := rand.New(rand.NewSource(1))
		next := float32(0)
		for i := 0; i < iterations; i++ {
			chunk := make([]float32, 1+rng.Intn(300))
			for j := range chunk {
				chunk[j] = next + float32(j)
			}
			n := ring.Write(chunk)
			next += float32(n)
			written.Add(int64(n))
		}
	}()

	rng := rand.New(rand.NewSource(2))
	expect := float32(0)
	totalRead := int64(0)
	dst := make([]float32, 400)

	for {
		n := ring.Read(dst[:1+rng.Intn(400)])
		for j := 0; j < n; j++ {
			if dst[j] != expect {
				t.Fatalf("FIFO order violated at sample %d: expected %f, got %f", totalRead+int64(j), expect, dst[j])
			}
			expect++
		}
		totalRead += int64(n)

		if n == 0 {
			select {
			case <-writerDone:
				if totalRead == written.Load() {
					return
				}
			default:
				runtime.Gosched()
			}
		}
	}
}
