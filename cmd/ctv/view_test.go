package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cansatlab/ctv/internal/history"
	"github.com/cansatlab/ctv/internal/ingest"
	"github.com/cansatlab/ctv/internal/telemetry"
)

// stubSource is a quiet byte source for view tests.
type stubSource struct{}

func (stubSource) Read(buf []byte) (int, error) { return 0, nil }
func (stubSource) Close() error                 { return nil }
func (stubSource) Name() string                 { return "/dev/ttyTEST" }

// newTestModel builds a model over a seeded aggregator at a fixed size.
func newTestModel(t *testing.T) uiModel {
	t.Helper()
	reg := telemetry.Default()
	agg, err := history.NewAggregator(reg, 10)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	for i, v := range []float64{101325.5, 101320.1, 101318.7, 101322.4} {
		if err := agg.Append("pressure", v); err != nil {
			t.Fatalf("Append pressure: %v", err)
		}
		if err := agg.Append("raw_altitude", float64(i)*2.5); err != nil {
			t.Fatalf("Append raw_altitude: %v", err)
		}
		if err := agg.Append("filtered_altitude", float64(i)*2.4); err != nil {
			t.Fatalf("Append filtered_altitude: %v", err)
		}
	}
	if err := agg.Append("mpu_temp", 23.4); err != nil {
		t.Fatalf("Append mpu_temp: %v", err)
	}

	ing := ingest.New(stubSource{}, reg, agg, nil)
	m := newModel(ing, agg, reg, stubSource{}, nil, 500*time.Millisecond)
	m.width = 120
	m.height = 40
	m.snap = agg.Snapshot()
	return m
}

func TestParseViewFlag(t *testing.T) {
	tests := []struct {
		in   string
		want viewID
	}{
		{"dashboard", viewDashboard},
		{"d", viewDashboard},
		{"Pressure", viewPressure},
		{"altitude", viewAltitude},
		{"temperature", viewTemperature},
		{"m", viewMotion},
		{"overlay", viewOverlay},
		{"feed", viewFeed},
		{"s", viewStats},
	}
	for _, tt := range tests {
		got, err := parseViewFlag(tt.in)
		if err != nil {
			t.Errorf("parseViewFlag(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseViewFlag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseViewFlag("bogus"); err == nil {
		t.Error("parseViewFlag(bogus) should fail")
	}
}

func TestViewIDString(t *testing.T) {
	for v := viewID(0); v < viewCount; v++ {
		if v.String() == "?" {
			t.Errorf("viewID(%d) has no name", v)
		}
	}
}

func TestViewRendersAllViews(t *testing.T) {
	m := newTestModel(t)
	for v := viewID(0); v < viewCount; v++ {
		m.activeView = v
		out := m.View()
		if out == "" {
			t.Errorf("view %s rendered empty", v)
		}
		if !strings.Contains(out, "ctv") {
			t.Errorf("view %s missing title bar", v)
		}
	}
}

func TestViewBeforeFirstWindowSize(t *testing.T) {
	m := newTestModel(t)
	m.width = 0
	if out := m.View(); out != "Loading..." {
		t.Errorf("View() = %q before WindowSizeMsg", out)
	}
}

func TestDashboardShowsPanels(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	for _, want := range []string{"Pressure", "Altitude", "MPU Temperature", "normalized"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestStatsViewListsChannels(t *testing.T) {
	m := newTestModel(t)
	m.activeView = viewStats
	out := m.View()
	for _, name := range m.snap.Channels {
		if !strings.Contains(out, name) {
			t.Errorf("stats view missing channel %s", name)
		}
	}
}

func TestFeedViewShowsTail(t *testing.T) {
	m := newTestModel(t)
	m.activeView = viewFeed
	m.tail = []ingest.Line{
		{Text: "Pressure: 101325.5 Pa", Matched: true},
		{Text: "Battery: 3.7 V", Matched: false},
	}
	out := m.View()
	if !strings.Contains(out, "Pressure: 101325.5 Pa") {
		t.Error("feed view missing matched line")
	}
	if !strings.Contains(out, "Battery: 3.7 V") {
		t.Error("feed view missing unmatched line")
	}
}

func TestStatusBarShowsSourceError(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(ingestedMsg{snap: m.snap, err: errors.New("device unplugged")})
	out := updated.(uiModel).View()
	if !strings.Contains(out, "SOURCE ERROR") {
		t.Error("status bar should surface a source failure")
	}
}

func TestUpdateViewShortcuts(t *testing.T) {
	m := newTestModel(t)
	for keyStr, want := range viewKeys {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keyStr)}
		updated, _ := m.Update(msg)
		if got := updated.(uiModel).activeView; got != want {
			t.Errorf("key %q switched to %v, want %v", keyStr, got, want)
		}
	}
}

func TestUpdateTabCyclesViews(t *testing.T) {
	m := newTestModel(t)
	m.activeView = viewCount - 1
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := updated.(uiModel).activeView; got != viewDashboard {
		t.Errorf("tab from last view = %v, want wrap to dashboard", got)
	}
}

func TestUpdateIngestedMsg(t *testing.T) {
	m := newTestModel(t)
	before := m.lastRefresh

	snap := m.agg.Snapshot()
	stats := ingest.Stats{Bytes: 10, Lines: 2, Matched: 1, Dropped: 1}
	updated, _ := m.Update(ingestedMsg{snap: snap, stats: stats, tail: nil})
	got := updated.(uiModel)

	if got.snap != snap {
		t.Error("snapshot not swapped in")
	}
	if got.stats != stats {
		t.Errorf("stats = %+v, want %+v", got.stats, stats)
	}
	if got.lastRefresh.Before(before) {
		t.Error("lastRefresh went backwards")
	}
	if got.srcErr != nil {
		t.Errorf("srcErr = %v, want cleared", got.srcErr)
	}
}

// --- chart rendering ---

func TestRenderPlotDimensions(t *testing.T) {
	series := []plotSeries{{label: "pressure", values: []float64{1, 2, 3, 4, 5}, style: channelStyle("pressure")}}
	lines := renderPlot(series, 40, 6, false)
	if len(lines) != 6 {
		t.Fatalf("renderPlot returned %d lines, want 6", len(lines))
	}
	for i, line := range lines {
		if line == "" {
			t.Errorf("plot line %d empty", i)
		}
	}
}

func TestRenderPlotEmptySeries(t *testing.T) {
	lines := renderPlot([]plotSeries{{label: "pressure"}}, 40, 5, false)
	if len(lines) != 5 {
		t.Fatalf("renderPlot returned %d lines, want 5", len(lines))
	}
}

func TestRenderPlotFlatSeries(t *testing.T) {
	// A constant series must still draw a baseline, not divide by zero.
	series := []plotSeries{{label: "mpu_temp", values: []float64{7, 7, 7}, style: channelStyle("mpu_temp")}}
	lines := renderPlot(series, 30, 4, false)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "▁") {
		t.Error("flat series should render a baseline row")
	}
}

func TestRenderPlotNormalizedAxis(t *testing.T) {
	series := []plotSeries{
		{label: "a", values: []float64{0, 0.5, 1}, style: channelStyle("pressure")},
		{label: "b", values: []float64{1, 0.5, 0}, style: channelStyle("mpu_temp")},
	}
	lines := renderPlot(series, 40, 5, true)
	if !strings.Contains(lines[0], "1") {
		t.Errorf("top axis label = %q, want 1", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], "0") {
		t.Errorf("bottom axis label = %q, want 0", lines[len(lines)-1])
	}
}

func TestRenderSparkline(t *testing.T) {
	out := renderSparkline([]float64{0, 1, 2, 3}, 10)
	if got := len([]rune(out)); got != 4 {
		t.Errorf("sparkline has %d runes, want 4", got)
	}
	if renderSparkline(nil, 10) != "" {
		t.Error("empty input should render empty sparkline")
	}
	// More samples than width: keep only the newest.
	out = renderSparkline([]float64{1, 2, 3, 4, 5, 6}, 3)
	if got := len([]rune(out)); got != 3 {
		t.Errorf("clipped sparkline has %d runes, want 3", got)
	}
}

// --- helpers ---

func TestTruncateLines(t *testing.T) {
	content := "short\n" + strings.Repeat("x", 50)
	out := truncateLines(content, 10)
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if truncateLines("abc", 0) != "abc" {
		t.Error("non-positive width should leave content unchanged")
	}
}

func TestShortDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		if got := shortDuration(tt.d); got != tt.want {
			t.Errorf("shortDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestBuildJSONOutput(t *testing.T) {
	m := newTestModel(t)
	stats := ingest.Stats{Bytes: 100, Lines: 9, Matched: 9}
	out := buildJSONOutput("/dev/ttyTEST", m.reg, m.snap, stats)

	if out.Source != "/dev/ttyTEST" {
		t.Errorf("Source = %q", out.Source)
	}
	if len(out.Channels) != m.reg.Len() {
		t.Fatalf("Channels has %d entries, want %d", len(out.Channels), m.reg.Len())
	}
	if out.Channels[0].Name != "pressure" || out.Channels[0].Unit != "Pa" {
		t.Errorf("Channels[0] = %+v", out.Channels[0])
	}
	if out.Channels[0].Count != 4 || len(out.Channels[0].Values) != 4 {
		t.Errorf("pressure count = %d values = %v", out.Channels[0].Count, out.Channels[0].Values)
	}
	if out.Stats.Matched != 9 {
		t.Errorf("Stats = %+v", out.Stats)
	}
}
