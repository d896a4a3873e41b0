// Package frame reassembles an arbitrary byte stream into complete lines.
//
// The serial link does not guarantee line-aligned delivery: a chunk may end
// mid-line, or even mid-rune. The Segmenter carries the unterminated suffix
// of each chunk forward, so the same lines come out no matter how the stream
// was split into chunks.
package frame

import (
	"bytes"
	"strings"
)

// Segmenter splits arriving byte chunks into complete lines. Feed must be
// called once per chunk arrival, not once per line. Not safe for concurrent
// use.
type Segmenter struct {
	tail []byte
}

// NewSegmenter returns a segmenter with an empty pending tail.
func NewSegmenter() *Segmenter { return &Segmenter{} }

// Feed appends chunk to the pending tail and returns all complete lines in
// order. The final segment with no terminator after it replaces the tail.
// Invalid UTF-8 in a line is replaced with U+FFFD rather than failing, and a
// trailing carriage return is stripped (serial sources commonly send CRLF).
// An empty chunk emits no lines and leaves the tail unchanged.
func (s *Segmenter) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	buf := append(s.tail, chunk...)
	last := bytes.LastIndexByte(buf, '\n')
	if last < 0 {
		s.tail = buf
		return nil
	}
	// Decoding happens per complete line, after splitting, so a multi-byte
	// rune straddling a chunk boundary is reassembled before validation.
	s.tail = append([]byte(nil), buf[last+1:]...)
	raw := bytes.Split(buf[:last], []byte{'\n'})
	lines := make([]string, len(raw))
	for i, b := range raw {
		lines[i] = decodeLine(b)
	}
	return lines
}

// Flush emits the pending tail as a final, unterminated line and clears it.
// Only safe at end of stream; flushing mid-stream breaks split-invariance.
func (s *Segmenter) Flush() (string, bool) {
	if len(s.tail) == 0 {
		return "", false
	}
	line := decodeLine(s.tail)
	s.tail = nil
	return line, true
}

// Pending returns the carried partial line.
func (s *Segmenter) Pending() string { return decodeLine(s.tail) }

func decodeLine(b []byte) string {
	b = bytes.TrimSuffix(b, []byte{'\r'})
	return strings.ToValidUTF8(string(b), "�")
}
