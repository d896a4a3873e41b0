package telemetry

import (
	"math"
	"strconv"
	"strings"
)

// Reading is one successfully classified (channel, value) observation.
type Reading struct {
	Channel string
	Value   float64
}

// Classify matches a single logical line against the registry's rules in
// declaration order and returns the first successful capture, parsed as a
// float64. ok is false for empty lines, lines no rule matches, and matches
// whose capture does not parse as a finite number — malformed telemetry is
// dropped here, never raised as an error.
func (r *Registry) Classify(line string) (Reading, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, false
	}
	for _, ch := range r.channels {
		m := ch.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Reading{}, false
		}
		return Reading{Channel: ch.Name, Value: v}, true
	}
	return Reading{}, false
}
