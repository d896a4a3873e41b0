// Package telemetry defines the known measurement channels of the flight
// computer's log output and classifies raw lines into (channel, value)
// readings.
package telemetry

import (
	"fmt"
	"regexp"
)

// Channel describes one named measurement stream. Its pattern, applied to a
// single line of text, either fails or yields exactly one numeric capture.
// The unit is documentation only; it is matched on the wire but never stored
// with the value.
type Channel struct {
	Name    string
	Unit    string
	pattern *regexp.Regexp
}

// NewChannel compiles a matching rule. The expression must contain at least
// one capture group; group 1 is the numeric payload.
func NewChannel(name, unit, expr string) (Channel, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Channel{}, fmt.Errorf("channel %s: %w", name, err)
	}
	if re.NumSubexp() < 1 {
		return Channel{}, fmt.Errorf("channel %s: pattern %q has no capture group", name, expr)
	}
	return Channel{Name: name, Unit: unit, pattern: re}, nil
}

// MustChannel is NewChannel for static channel tables; it panics on a bad
// expression.
func MustChannel(name, unit, expr string) Channel {
	ch, err := NewChannel(name, unit, expr)
	if err != nil {
		panic(err)
	}
	return ch
}

// Registry is a fixed, ordered set of channels. Declaration order defines
// match precedence: classification tries channels front to back and the
// first successful match wins, even if a later rule would also match.
type Registry struct {
	channels []Channel
	index    map[string]int
}

// NewRegistry builds a registry from channels in precedence order.
func NewRegistry(channels ...Channel) *Registry {
	index := make(map[string]int, len(channels))
	for i, ch := range channels {
		index[ch.Name] = i
	}
	return &Registry{channels: channels, index: index}
}

// num matches a decimal number with optional sign and fractional part.
const num = `([-+]?\d+(?:\.\d+)?)`

// Default returns the CanSat flight-computer channel set. Axis channels are
// qualified by their sensor's prefix so rotation and acceleration readings
// never collide on a bare "X:"/"Y:"/"Z:" label.
func Default() *Registry {
	return NewRegistry(
		MustChannel("pressure", "Pa", `Pressure:\s*`+num+`\s*Pa`),
		MustChannel("raw_altitude", "m", `Raw altitude:\s*`+num+`\s*m`),
		MustChannel("filtered_altitude", "m", `Filtered altitude:\s*`+num+`\s*m`),
		MustChannel("mpu_temp", "degC", `MPU Temp(?:erature)?:\s*`+num+`\s*(?:deg)?C`),
		MustChannel("rotation_x", "deg/s", `Rotation X:\s*`+num+`\s*deg/s`),
		MustChannel("rotation_y", "deg/s", `Rotation Y:\s*`+num+`\s*deg/s`),
		MustChannel("rotation_z", "deg/s", `Rotation Z:\s*`+num+`\s*deg/s`),
		MustChannel("accel_x", "m/s^2", `Acceleration X:\s*`+num+`\s*m/s\^2`),
		MustChannel("accel_y", "m/s^2", `Acceleration Y:\s*`+num+`\s*m/s\^2`),
		MustChannel("accel_z", "m/s^2", `Acceleration Z:\s*`+num+`\s*m/s\^2`),
	)
}

// Names returns the channel names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.channels))
	for i, ch := range r.channels {
		names[i] = ch.Name
	}
	return names
}

// Lookup returns the channel with the given name.
func (r *Registry) Lookup(name string) (Channel, bool) {
	i, ok := r.index[name]
	if !ok {
		return Channel{}, false
	}
	return r.channels[i], true
}

// Len returns the number of channels.
func (r *Registry) Len() int { return len(r.channels) }
