// Package ingest drives one telemetry ingestion cycle: drain the bytes the
// source has pending, reassemble them into lines, classify each line, and
// append the readings to the rolling history.
package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cansatlab/ctv/internal/datasource"
	"github.com/cansatlab/ctv/internal/frame"
	"github.com/cansatlab/ctv/internal/history"
	"github.com/cansatlab/ctv/internal/telemetry"
)

// ErrSource wraps failures of the underlying byte source. The caller decides
// whether to stop; the ingestor never retries or reconnects.
var ErrSource = errors.New("telemetry source failed")

const (
	// readChunk is the read buffer size per drain iteration.
	readChunk = 4096
	// maxReads bounds one cycle so a firehose source cannot stall the
	// render tick indefinitely.
	maxReads = 8
	// tailLines is how many recent raw lines the feed view can show.
	tailLines = 200
)

// Line is one raw line retained for the feed view, tagged with whether a
// channel rule matched it.
type Line struct {
	Text    string
	Matched bool
}

// Stats are running ingestion totals since startup.
type Stats struct {
	Bytes   uint64
	Lines   uint64
	Matched uint64
	Dropped uint64
}

// Ingestor owns the segmenter state and feeds classified readings into the
// aggregator. Cycle is safe to call concurrently with Tail/Totals, though
// cycles themselves are serialized.
type Ingestor struct {
	src datasource.ByteSource
	reg *telemetry.Registry
	agg *history.Aggregator
	log *slog.Logger
	buf []byte

	mu      sync.Mutex
	seg     *frame.Segmenter
	tail    []Line
	tailPos int
	stats   Stats
}

// New wires an ingestor to a source, registry, and aggregator. A nil logger
// discards diagnostics.
func New(src datasource.ByteSource, reg *telemetry.Registry, agg *history.Aggregator, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ingestor{
		src:  src,
		reg:  reg,
		agg:  agg,
		log:  logger,
		buf:  make([]byte, readChunk),
		seg:  frame.NewSegmenter(),
		tail: make([]Line, 0, tailLines),
	}
}

// Cycle performs one bounded read-drain and returns before the next tick is
// due: it reads at most maxReads chunks and stops early once the source has
// nothing pending. Source failure is returned wrapped in ErrSource; an
// unknown-channel error from the aggregator (a wiring bug, not noisy input)
// is returned as-is.
func (in *Ingestor) Cycle() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	for reads := 0; reads < maxReads; reads++ {
		n, err := in.src.Read(in.buf)
		if n > 0 {
			if perr := in.process(in.buf[:n]); perr != nil {
				return perr
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSource, err)
		}
		if n < len(in.buf) {
			break // drained
		}
	}
	return nil
}

// process runs already-read bytes through segmentation, classification, and
// aggregation. Caller holds in.mu.
func (in *Ingestor) process(chunk []byte) error {
	in.stats.Bytes += uint64(len(chunk))
	for _, line := range in.seg.Feed(chunk) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		in.stats.Lines++

		reading, ok := in.reg.Classify(trimmed)
		in.record(Line{Text: trimmed, Matched: ok})
		if !ok {
			in.stats.Dropped++
			in.log.Debug("unmatched line", "line", trimmed)
			continue
		}
		if err := in.agg.Append(reading.Channel, reading.Value); err != nil {
			return err
		}
		in.stats.Matched++
		in.log.Debug("reading", "channel", reading.Channel, "value", reading.Value)
	}
	return nil
}

// record keeps line in the bounded recent-line ring. Caller holds in.mu.
func (in *Ingestor) record(line Line) {
	if len(in.tail) < tailLines {
		in.tail = append(in.tail, line)
		return
	}
	in.tail[in.tailPos] = line
	in.tailPos = (in.tailPos + 1) % tailLines
}

// Tail returns a copy of the recent raw lines, oldest first.
func (in *Ingestor) Tail() []Line {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]Line, 0, len(in.tail))
	if len(in.tail) == tailLines {
		out = append(out, in.tail[in.tailPos:]...)
		return append(out, in.tail[:in.tailPos]...)
	}
	return append(out, in.tail...)
}

// Totals returns the running ingestion counters.
func (in *Ingestor) Totals() Stats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stats
}
