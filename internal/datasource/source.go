// Package datasource provides the byte sources telemetry is read from: the
// flight computer's serial link and a tailed capture file for replay.
package datasource

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds a serial read so a quiet stream never stalls the
// render tick.
const readTimeout = 50 * time.Millisecond

// ByteSource reads whatever bytes the underlying stream currently has
// pending, non-blocking or bounded by a short timeout. Read returns 0 with
// a nil error when nothing is available; an error means the source itself
// failed (disconnect, removed file), not noisy input.
type ByteSource interface {
	Read(buf []byte) (int, error)
	Close() error
	// Name identifies the source for logs and the status bar.
	Name() string
}

// SerialSource reads from a serial port.
type SerialSource struct {
	port serial.Port
	name string
}

// OpenSerial opens the named port at the given baud rate with a short read
// timeout. It does not retry; reconnect policy belongs to the caller.
func OpenSerial(portName string, baud int) (*SerialSource, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
	}
	return &SerialSource{port: port, name: portName}, nil
}

// Read returns up to len(buf) pending bytes, or 0 after the read timeout.
func (s *SerialSource) Read(buf []byte) (int, error) { return s.port.Read(buf) }

// Close closes the port.
func (s *SerialSource) Close() error { return s.port.Close() }

// Name returns the port name.
func (s *SerialSource) Name() string { return s.name }

// ListPorts enumerates the serial ports on this machine, for pointing the
// user at a candidate when opening the configured port fails.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return ports, nil
}
