package history

// Normalize rescales values to [0,1] against the slice's own minimum and
// maximum, for overlaying differently-scaled channels on one axis. When all
// values are identical (including the single-element case) every output is
// 0 — a flat channel stays drawable instead of dividing by zero. The input
// is never mutated, the output has the same length, and empty input yields
// empty output.
//
// Each channel must be normalized against its own min/max; callers never
// pool extrema across channels.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return out
	}
	span := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}
