package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cansatlab/ctv/internal/telemetry"
)

// DefaultCapacity is the rolling window size per channel.
const DefaultCapacity = 100

// ErrUnknownChannel reports a reading for a channel the registry does not
// define. Readings produced by the classifier against the same registry can
// never trigger it; a direct caller passing a stray name can, and that is a
// contract violation worth surfacing rather than dropping.
var ErrUnknownChannel = errors.New("unknown channel")

// Aggregator owns one fixed-capacity ring per registry channel. All methods
// are safe for concurrent use; Snapshot is the sole synchronization boundary
// between ingestion and rendering.
type Aggregator struct {
	mu       sync.Mutex
	order    []string
	buffers  map[string]*Ring
	capacity int
}

// NewAggregator creates one empty ring of the given capacity per channel in
// the registry, in registry order.
func NewAggregator(reg *telemetry.Registry, capacity int) (*Aggregator, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("history: capacity must be positive, got %d", capacity)
	}
	order := reg.Names()
	buffers := make(map[string]*Ring, len(order))
	for _, name := range order {
		buffers[name] = NewRing(capacity)
	}
	return &Aggregator{order: order, buffers: buffers, capacity: capacity}, nil
}

// Capacity returns the per-channel window size.
func (a *Aggregator) Capacity() int { return a.capacity }

// Append adds one value to the named channel's buffer, evicting the oldest
// value first if the buffer is at capacity.
func (a *Aggregator) Append(channel string, value float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ring, ok := a.buffers[channel]
	if !ok {
		return fmt.Errorf("history: %w: %q", ErrUnknownChannel, channel)
	}
	ring.Push(value)
	return nil
}

// Ingest appends a batch of classified readings in order. It stops at the
// first unknown channel; readings before it are already applied.
func (a *Aggregator) Ingest(readings []telemetry.Reading) error {
	for _, rd := range readings {
		if err := a.Append(rd.Channel, rd.Value); err != nil {
			return err
		}
	}
	return nil
}
