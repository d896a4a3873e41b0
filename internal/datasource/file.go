package datasource

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// FileSource tails a telemetry capture file, returning newly appended bytes
// on each read. It replays the existing contents first, then follows
// appends, so recorded flights run through the same pipeline as a live link.
type FileSource struct {
	f    *os.File
	name string
}

// OpenFile opens a capture file for tailing from the beginning.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	return &FileSource{f: f, name: path}, nil
}

// Read returns up to len(buf) bytes not yet consumed. At the current end of
// file it returns (0, nil); more may appear on a later call.
func (s *FileSource) Read(buf []byte) (int, error) {
	n, err := s.f.Read(buf)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

// Close closes the underlying file.
func (s *FileSource) Close() error { return s.f.Close() }

// Name returns the file path.
func (s *FileSource) Name() string { return s.name }
