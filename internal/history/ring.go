// Package history owns the bounded per-channel telemetry history and the
// snapshot boundary the renderer reads through.
package history

// Ring is a fixed-capacity FIFO buffer of samples kept in arrival order.
// Once full, a push evicts the oldest sample. Not safe for concurrent use;
// the Aggregator serializes access.
type Ring struct {
	data  []float64
	head  int // index of the oldest sample
	count int
}

// NewRing creates an empty ring. Capacity must be positive.
func NewRing(capacity int) *Ring {
	return &Ring{data: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest one if the ring is full.
func (r *Ring) Push(v float64) {
	if r.count < len(r.data) {
		r.data[(r.head+r.count)%len(r.data)] = v
		r.count++
		return
	}
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
}

// Len returns the number of stored samples, always <= Cap.
func (r *Ring) Len() int { return r.count }

// Cap returns the fixed capacity.
func (r *Ring) Cap() int { return len(r.data) }

// Values returns the samples in arrival order as a fresh slice.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.count)
	for i := range out {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}
