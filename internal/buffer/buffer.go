// Package buffer holds the time-ordered samples that feed one filtering pass.
package buffer

import (
	"errors"
	"fmt"
	"strings"

	"wisefido-rppg/internal/models"
)

var (
	// ErrOutOfOrder is returned when a sample is older than the newest buffered one.
	ErrOutOfOrder = errors.New("sample timestamp is older than the buffer tail")
	// ErrBatchFull is returned when appending to a full batch buffer that was not drained.
	ErrBatchFull = errors.New("batch buffer is full")
)

// Policy is the retention policy of a SignalBuffer.
type Policy int

const (
	// Sliding keeps the most recent Capacity samples and evicts the oldest on overflow.
	Sliding Policy = iota
	// Batch accumulates exactly Capacity samples, then must be drained in one pass.
	Batch
)

// ParsePolicy accepts "sliding" or "batch".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sliding":
		return Sliding, nil
	case "batch":
		return Batch, nil
	default:
		return 0, fmt.Errorf("unknown buffer policy %q", s)
	}
}

func (p Policy) String() string {
	if p == Batch {
		return "batch"
	}
	return "sliding"
}

// SignalBuffer is an ordered series of samples. It is not safe for concurrent use;
// callers serialize access per stream.
type SignalBuffer struct {
	policy   Policy
	capacity int
	ready    int
	samples  []models.Sample
}

// NewSliding keeps up to capacity samples and is ready once it holds readyAt of them.
func NewSliding(capacity, readyAt int) (*SignalBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("sliding capacity must be positive, got %d", capacity)
	}
	if readyAt <= 0 || readyAt > capacity {
		return nil, fmt.Errorf("ready threshold %d must be in (0, %d]", readyAt, capacity)
	}
	return &SignalBuffer{
		policy:   Sliding,
		capacity: capacity,
		ready:    readyAt,
		samples:  make([]models.Sample, 0, capacity),
	}, nil
}

// NewBatch is ready when exactly size samples are held.
func NewBatch(size int) (*SignalBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	return &SignalBuffer{
		policy:   Batch,
		capacity: size,
		ready:    size,
		samples:  make([]models.Sample, 0, size),
	}, nil
}

// Policy returns the retention policy.
func (b *SignalBuffer) Policy() Policy { return b.policy }

// Capacity returns the retention bound (sliding) or the batch size (batch).
func (b *SignalBuffer) Capacity() int { return b.capacity }

// Len returns the number of buffered samples.
func (b *SignalBuffer) Len() int { return len(b.samples) }

// Append adds s at the tail. Timestamps must be non-decreasing.
func (b *SignalBuffer) Append(s models.Sample) error {
	if n := len(b.samples); n > 0 && s.Timestamp < b.samples[n-1].Timestamp {
		return fmt.Errorf("%w: %.6f < %.6f", ErrOutOfOrder, s.Timestamp, b.samples[n-1].Timestamp)
	}

	switch b.policy {
	case Batch:
		if len(b.samples) >= b.capacity {
			return ErrBatchFull
		}
		b.samples = append(b.samples, s)
	default:
		if len(b.samples) == b.capacity {
			// FIFO eviction, reusing the backing array
			copy(b.samples, b.samples[1:])
			b.samples[len(b.samples)-1] = s
		} else {
			b.samples = append(b.samples, s)
		}
	}
	return nil
}

// Ready reports whether a filtering pass can run.
func (b *SignalBuffer) Ready() bool {
	if b.policy == Batch {
		return len(b.samples) == b.capacity
	}
	return len(b.samples) >= b.ready
}

// Window copies the values of the most recent n samples. n larger than Len is clamped.
func (b *SignalBuffer) Window(n int) []float64 {
	if n > len(b.samples) {
		n = len(b.samples)
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i, s := range b.samples[len(b.samples)-n:] {
		out[i] = s.Value
	}
	return out
}

// Samples returns a copy of the buffered samples in order.
func (b *SignalBuffer) Samples() []models.Sample {
	out := make([]models.Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Drain returns all sample values and empties the buffer.
func (b *SignalBuffer) Drain() []float64 {
	out := b.Window(len(b.samples))
	b.Clear()
	return out
}

// Clear empties the buffer.
func (b *SignalBuffer) Clear() {
	b.samples = b.samples[:0]
}
