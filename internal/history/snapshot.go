package history

import "time"

// Snapshot is an immutable, point-in-time copy of every channel buffer.
// It shares no memory with the live rings: mutation after the copy does not
// affect the returned view, and a renderer may hold it across ticks.
type Snapshot struct {
	// Channels lists channel names in registry order.
	Channels []string
	// Series maps channel name to its values in arrival order.
	Series map[string][]float64
	// TakenAt is when the copy was made.
	TakenAt time.Time
}

// Snapshot copies the current state of all channel buffers.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	series := make(map[string][]float64, len(a.order))
	for _, name := range a.order {
		series[name] = a.buffers[name].Values()
	}
	return &Snapshot{
		Channels: append([]string(nil), a.order...),
		Series:   series,
		TakenAt:  time.Now(),
	}
}

// Values returns the series for one channel, nil if the channel is unknown.
func (s *Snapshot) Values(channel string) []float64 { return s.Series[channel] }

// Last returns the most recent value of a channel.
func (s *Snapshot) Last(channel string) (float64, bool) {
	values := s.Series[channel]
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// Total returns the number of samples across all channels.
func (s *Snapshot) Total() int {
	var n int
	for _, values := range s.Series {
		n += len(values)
	}
	return n
}
