// Package history keeps a fixed number of recent samples for one metric.
package history

import (
	"fmt"

	"github.com/Dicklesworthstone/sysmon/internal/model"
)

// DefaultCapacity is one minute of history at the default 1s interval.
const DefaultCapacity = 60

// Buffer is a bounded ring of scalar samples. It is not safe for concurrent
// use; the sampler is its only writer and hands out copies.
type Buffer struct {
	data  []float64
	head  int // next write position
	count int
}

// New creates an empty buffer holding at most capacity samples.
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("history: capacity must be positive, got %d", capacity)
	}
	return &Buffer{data: make([]float64, capacity)}, nil
}

// Append records v as the newest sample, evicting the oldest when full.
func (b *Buffer) Append(v float64) {
	b.data[b.head] = v
	b.head = (b.head + 1) % len(b.data)
	if b.count < len(b.data) {
		b.count++
	}
}

// Len returns the number of samples held.
func (b *Buffer) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Latest returns the newest value.
func (b *Buffer) Latest() (float64, bool) {
	if b.count == 0 {
		return 0, false
	}
	return b.data[(b.head-1+len(b.data))%len(b.data)], true
}

// Values returns the samples oldest first.
func (b *Buffer) Values() []float64 {
	out := make([]float64, b.count)
	start := (b.head - b.count + len(b.data)) % len(b.data)
	for i := range out {
		out[i] = b.data[(start+i)%len(b.data)]
	}
	return out
}

// Samples returns the samples oldest first with ages -(len-1) .. 0.
func (b *Buffer) Samples() []model.TimeSample {
	vals := b.Values()
	out := make([]model.TimeSample, len(vals))
	for i, v := range vals {
		out[i] = model.TimeSample{Age: i - len(vals) + 1, Value: v}
	}
	return out
}

// Check verifies the ring bookkeeping. A non-nil error means the buffer
// has been corrupted and can no longer be trusted.
func (b *Buffer) Check() error {
	switch {
	case len(b.data) == 0:
		return fmt.Errorf("history: zero capacity")
	case b.count < 0 || b.count > len(b.data):
		return fmt.Errorf("history: length %d outside [0,%d]", b.count, len(b.data))
	case b.head < 0 || b.head >= len(b.data):
		return fmt.Errorf("history: head %d outside [0,%d)", b.head, len(b.data))
	}
	return nil
}
