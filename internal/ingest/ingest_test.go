package ingest

import (
	"errors"
	"testing"

	"github.com/cansatlab/ctv/internal/history"
	"github.com/cansatlab/ctv/internal/telemetry"
)

// fakeSource replays scripted chunks, then reports quiet (0, nil), then the
// configured error if any.
type fakeSource struct {
	chunks [][]byte
	err    error
}

func (f *fakeSource) Read(buf []byte) (int, error) {
	if len(f.chunks) == 0 {
		if f.err != nil {
			return 0, f.err
		}
		return 0, nil
	}
	chunk := f.chunks[0]
	f.chunks = f.chunks[1:]
	n := copy(buf, chunk)
	// Scripted chunks are always smaller than the read buffer, so a short
	// copy would be a test bug, not a partial read.
	if n != len(chunk) {
		panic("fakeSource: chunk larger than read buffer")
	}
	return n, nil
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) Name() string { return "fake" }

func newTestIngestor(t *testing.T, src *fakeSource) (*Ingestor, *history.Aggregator) {
	t.Helper()
	reg := telemetry.Default()
	agg, err := history.NewAggregator(reg, 10)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return New(src, reg, agg, nil), agg
}

func TestCycleClassifiesAndAggregates(t *testing.T) {
	src := &fakeSource{chunks: [][]byte{
		[]byte("Pressure: 101325.5 Pa\nRaw altitude: -12.3 m\n"),
	}}
	ing, agg := newTestIngestor(t, src)

	if err := ing.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	snap := agg.Snapshot()
	if got := snap.Values("pressure"); len(got) != 1 || got[0] != 101325.5 {
		t.Errorf("pressure = %v, want [101325.5]", got)
	}
	if got := snap.Values("raw_altitude"); len(got) != 1 || got[0] != -12.3 {
		t.Errorf("raw_altitude = %v, want [-12.3]", got)
	}
}

func TestCycleReassemblesAcrossChunks(t *testing.T) {
	// The source splits a line mid-number; the second cycle completes it.
	src := &fakeSource{chunks: [][]byte{
		[]byte("Pressure: 100"),
		[]byte("0 Pa\n"),
	}}
	ing, agg := newTestIngestor(t, src)

	if err := ing.Cycle(); err != nil {
		t.Fatalf("Cycle 1: %v", err)
	}
	if got := agg.Snapshot().Values("pressure"); len(got) != 0 {
		t.Errorf("pressure after partial line = %v, want empty", got)
	}

	if err := ing.Cycle(); err != nil {
		t.Fatalf("Cycle 2: %v", err)
	}
	if got := agg.Snapshot().Values("pressure"); len(got) != 1 || got[0] != 1000.0 {
		t.Errorf("pressure = %v, want [1000]", got)
	}
}

func TestCycleDropsUnmatchedLines(t *testing.T) {
	src := &fakeSource{chunks: [][]byte{
		[]byte("Battery: 3.7 V\nPressure: 5 Pa\ncomplete garbage\n"),
	}}
	ing, agg := newTestIngestor(t, src)

	if err := ing.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	snap := agg.Snapshot()
	for _, name := range snap.Channels {
		if name == "pressure" {
			continue
		}
		if got := snap.Values(name); len(got) != 0 {
			t.Errorf("%s = %v, want empty", name, got)
		}
	}

	stats := ing.Totals()
	if stats.Lines != 3 || stats.Matched != 1 || stats.Dropped != 2 {
		t.Errorf("stats = %+v, want 3 lines / 1 matched / 2 dropped", stats)
	}
}

func TestCycleQuietSource(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeSource{})

	if err := ing.Cycle(); err != nil {
		t.Fatalf("Cycle on quiet source: %v", err)
	}
	if stats := ing.Totals(); stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestCycleWrapsSourceError(t *testing.T) {
	src := &fakeSource{
		chunks: [][]byte{[]byte("Pressure: 7 Pa\n")},
		err:    errors.New("device unplugged"),
	}
	ing, agg := newTestIngestor(t, src)

	// First cycle consumes the chunk cleanly.
	if err := ing.Cycle(); err != nil {
		t.Fatalf("Cycle 1: %v", err)
	}

	err := ing.Cycle()
	if !errors.Is(err, ErrSource) {
		t.Fatalf("Cycle 2 error = %v, want ErrSource", err)
	}

	// Data ingested before the failure survives.
	if got := agg.Snapshot().Values("pressure"); len(got) != 1 || got[0] != 7.0 {
		t.Errorf("pressure = %v, want [7]", got)
	}
}

func TestTailTagsLines(t *testing.T) {
	src := &fakeSource{chunks: [][]byte{
		[]byte("Pressure: 5 Pa\nBattery: 3.7 V\n\n  \n"),
	}}
	ing, _ := newTestIngestor(t, src)

	if err := ing.Cycle(); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	tail := ing.Tail()
	// Blank lines never reach the tail.
	if len(tail) != 2 {
		t.Fatalf("tail has %d lines %v, want 2", len(tail), tail)
	}
	if !tail[0].Matched || tail[0].Text != "Pressure: 5 Pa" {
		t.Errorf("tail[0] = %+v", tail[0])
	}
	if tail[1].Matched || tail[1].Text != "Battery: 3.7 V" {
		t.Errorf("tail[1] = %+v", tail[1])
	}
}

func TestTailBounded(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeSource{})

	for i := 0; i < tailLines+50; i++ {
		ing.record(Line{Text: "noise", Matched: false})
	}
	if got := len(ing.Tail()); got != tailLines {
		t.Errorf("tail length = %d, want %d", got, tailLines)
	}
}

func TestTailOrderAfterWrap(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeSource{})

	total := tailLines + 3
	for i := 0; i < total; i++ {
		ing.record(Line{Text: string(rune('A' + i%26))})
	}
	tail := ing.Tail()
	if tail[0].Text != string(rune('A'+3%26)) {
		t.Errorf("oldest retained = %q, want %q", tail[0].Text, string(rune('A'+3)))
	}
	if tail[len(tail)-1].Text != string(rune('A'+(total-1)%26)) {
		t.Errorf("newest retained = %q", tail[len(tail)-1].Text)
	}
}
