package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/cansatlab/ctv/internal/datasource"
	"github.com/cansatlab/ctv/internal/export"
	"github.com/cansatlab/ctv/internal/history"
	"github.com/cansatlab/ctv/internal/ingest"
	"github.com/cansatlab/ctv/internal/telemetry"
)

// --- Messages ---

type tickMsg struct{}

type sourceChangedMsg struct{}

type ingestedMsg struct {
	snap  *history.Snapshot
	stats ingest.Stats
	tail  []ingest.Line
	err   error
}

type exportedMsg struct {
	path string
	err  error
}

// --- Key bindings ---

type keyMap struct {
	Quit    key.Binding
	Tab     key.Binding
	Refresh key.Binding
	Up      key.Binding
	Down    key.Binding
	Help    key.Binding
	Export  key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export PNG")),
}

// viewKeys maps single keys to views for fast navigation.
var viewKeys = map[string]viewID{
	"d": viewDashboard,
	"p": viewPressure,
	"a": viewAltitude,
	"t": viewTemperature,
	"m": viewMotion,
	"o": viewOverlay,
	"f": viewFeed,
	"s": viewStats,
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Refresh, k.Export, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Refresh, k.Up, k.Down},
		{k.Export, k.Help, k.Quit},
	}
}

// contextHelp returns help text appropriate for the current view.
func contextHelp(v viewID) string {
	switch v {
	case viewFeed, viewStats:
		return "j/k: scroll | d/p/a/t/m/o/f/s: views | tab: next | e: export | ?: help | q: quit"
	default:
		return "d/p/a/t/m/o/f/s: views | tab: next | e: export | r: refresh | ?: help | q: quit"
	}
}

// --- Views ---

type viewID int

const (
	viewDashboard viewID = iota
	viewPressure
	viewAltitude
	viewTemperature
	viewMotion
	viewOverlay
	viewFeed
	viewStats
	viewCount // sentinel
)

func (v viewID) String() string {
	switch v {
	case viewDashboard:
		return "Dashboard"
	case viewPressure:
		return "Pressure"
	case viewAltitude:
		return "Altitude"
	case viewTemperature:
		return "Temperature"
	case viewMotion:
		return "Motion"
	case viewOverlay:
		return "Overlay"
	case viewFeed:
		return "Feed"
	case viewStats:
		return "Stats"
	}
	return "?"
}

// --- Model ---

type uiModel struct {
	ing     *ingest.Ingestor
	agg     *history.Aggregator
	reg     *telemetry.Registry
	src     datasource.ByteSource
	watcher *datasource.Watcher // nil for serial sources

	snap  *history.Snapshot
	stats ingest.Stats
	tail  []ingest.Line

	activeView      viewID
	width           int
	height          int
	scrollPos       int
	refreshInterval time.Duration

	help     help.Model
	showHelp bool

	lastRefresh time.Time
	srcErr      error  // latest source failure, shown in the status bar
	notice      string // transient export feedback
}

func newModel(ing *ingest.Ingestor, agg *history.Aggregator, reg *telemetry.Registry,
	src datasource.ByteSource, w *datasource.Watcher, refresh time.Duration) uiModel {
	return uiModel{
		ing:             ing,
		agg:             agg,
		reg:             reg,
		src:             src,
		watcher:         w,
		snap:            agg.Snapshot(),
		refreshInterval: refresh,
		help:            help.New(),
		lastRefresh:     time.Now(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(m.ingestCmd(), tickEvery(m.refreshInterval))
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// ingestCmd runs one ingestion cycle off the UI goroutine and delivers the
// fresh snapshot. The aggregator's snapshot is the only data crossing the
// boundary; the view never touches live buffers.
func (m uiModel) ingestCmd() tea.Cmd {
	ing, agg := m.ing, m.agg
	return func() tea.Msg {
		err := ing.Cycle()
		return ingestedMsg{
			snap:  agg.Snapshot(),
			stats: ing.Totals(),
			tail:  ing.Tail(),
			err:   err,
		}
	}
}

func (m uiModel) exportCmd() tea.Cmd {
	snap := m.snap
	path := fmt.Sprintf("ctv-%s.png", time.Now().Format("20060102-150405"))
	return func() tea.Msg {
		return exportedMsg{path: path, err: export.Overlay(snap, path)}
	}
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Single-key view shortcuts are always available.
		if v, ok := viewKeys[msg.String()]; ok {
			m.activeView = v
			m.scrollPos = 0
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			if m.watcher != nil {
				m.watcher.Close()
			}
			m.src.Close()
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			m.activeView = (m.activeView + 1) % viewCount
			m.scrollPos = 0

		case key.Matches(msg, keys.Refresh):
			return m, m.ingestCmd()

		case key.Matches(msg, keys.Export):
			return m, m.exportCmd()

		case key.Matches(msg, keys.Up):
			if m.scrollPos > 0 {
				m.scrollPos--
			}

		case key.Matches(msg, keys.Down):
			// View() clamps if we overshoot.
			if m.scrollPos < len(m.tail)+m.reg.Len()+20 {
				m.scrollPos++
			}

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.ingestCmd(), tickEvery(m.refreshInterval))

	case sourceChangedMsg:
		return m, m.ingestCmd()

	case ingestedMsg:
		m.srcErr = msg.err
		if msg.snap != nil {
			m.snap = msg.snap
			m.stats = msg.stats
			m.tail = msg.tail
			m.lastRefresh = time.Now()
		}

	case exportedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("export failed: %v", msg.err)
		} else {
			m.notice = "wrote " + msg.path
		}
	}

	return m, nil
}

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Background(lipgloss.Color("#313244")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

// channelStyles colors each channel consistently across every view.
var channelStyles = map[string]lipgloss.Style{
	"pressure":          lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA")),
	"raw_altitude":      lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	"filtered_altitude": lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	"mpu_temp":          lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387")),
	"rotation_x":        lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	"rotation_y":        lipgloss.NewStyle().Foreground(lipgloss.Color("#94E2D5")),
	"rotation_z":        lipgloss.NewStyle().Foreground(lipgloss.Color("#CBA6F7")),
	"accel_x":           lipgloss.NewStyle().Foreground(lipgloss.Color("#EBA0AC")),
	"accel_y":           lipgloss.NewStyle().Foreground(lipgloss.Color("#74C7EC")),
	"accel_z":           lipgloss.NewStyle().Foreground(lipgloss.Color("#B4BEFE")),
}

func channelStyle(name string) lipgloss.Style {
	if s, ok := channelStyles[name]; ok {
		return s
	}
	return dimStyle
}

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')
	b.WriteString(m.renderTabBar())
	b.WriteRune('\n')
	b.WriteRune('\n')

	contentHeight := m.height - 5 // title + tabs + status + padding
	if m.showHelp {
		contentHeight -= 3
	}

	var content string
	switch m.activeView {
	case viewDashboard:
		content = m.renderDashboard(contentHeight)
	case viewPressure:
		content = m.renderChannelPanel([]string{"pressure"}, "Pressure", m.width-2, contentHeight-2)
	case viewAltitude:
		content = m.renderChannelPanel([]string{"raw_altitude", "filtered_altitude"}, "Altitude", m.width-2, contentHeight-2)
	case viewTemperature:
		content = m.renderChannelPanel([]string{"mpu_temp"}, "MPU Temperature", m.width-2, contentHeight-2)
	case viewMotion:
		content = m.renderMotion(contentHeight)
	case viewOverlay:
		content = m.renderOverlay(m.width-2, contentHeight-2)
	case viewFeed:
		content = m.renderFeed()
	case viewStats:
		content = m.renderStats()
	}

	// Apply scroll using a local variable; View has a value receiver, so
	// mutating m.scrollPos here would be dead code.
	lines := strings.Split(content, "\n")
	scrollPos := m.scrollPos
	if scrollPos >= len(lines) {
		scrollPos = max(0, len(lines)-1)
	}
	if scrollPos > 0 && scrollPos < len(lines) {
		lines = lines[scrollPos:]
	}
	if len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}
	content = strings.Join(lines, "\n")

	// Truncate each line to terminal width so content doesn't wrap on
	// resize. Uses ANSI-aware width measurement.
	content = truncateLines(content, m.width)

	b.WriteString(content)

	// Pad to fill screen.
	rendered := strings.Count(b.String(), "\n")
	for rendered < m.height-2 {
		b.WriteRune('\n')
		rendered++
	}

	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}

	return b.String()
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("ctv · cansat telemetry")
	src := dimStyle.Render(m.src.Name())
	stats := dimStyle.Render(fmt.Sprintf(
		"%d B | %d lines | %d matched | %d dropped",
		m.stats.Bytes, m.stats.Lines, m.stats.Matched, m.stats.Dropped,
	))
	gap := strings.Repeat(" ", max(1, m.width-lipgloss.Width(title)-lipgloss.Width(src)-lipgloss.Width(stats)-3))
	return title + " " + src + gap + stats
}

func (m uiModel) renderTabBar() string {
	var tabs []string
	for i := viewID(0); i < viewCount; i++ {
		if i == m.activeView {
			tabs = append(tabs, tabActiveStyle.Render(i.String()))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(i.String()))
		}
	}
	return strings.Join(tabs, " ")
}

func (m uiModel) renderStatusBar() string {
	left := " " + contextHelp(m.activeView)
	var right string
	switch {
	case m.srcErr != nil:
		right = errStyle.Render(fmt.Sprintf("SOURCE ERROR: %v ", m.srcErr))
	case m.notice != "":
		right = m.notice + " "
	default:
		ago := time.Since(m.lastRefresh).Truncate(time.Second)
		right = fmt.Sprintf("refreshed %s ago ", ago)
	}
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))
	return statusBarStyle.Render(left + gap + right)
}

// --- Dashboard view ---

// renderDashboard mirrors the classic four-panel ground-station layout:
// pressure, raw vs filtered altitude, MPU temperature, normalized overlay.
func (m uiModel) renderDashboard(contentHeight int) string {
	panelW := max(20, (m.width-3)/2)
	panelH := max(6, (contentHeight-1)/2)

	topLeft := m.renderChannelPanel([]string{"pressure"}, "Pressure", panelW, panelH)
	topRight := m.renderChannelPanel([]string{"raw_altitude", "filtered_altitude"}, "Altitude", panelW, panelH)
	botLeft := m.renderChannelPanel([]string{"mpu_temp"}, "MPU Temperature", panelW, panelH)
	botRight := m.renderOverlay(panelW, panelH)

	sep := " " + dimStyle.Render("│") + " "
	top := lipgloss.JoinHorizontal(lipgloss.Top, padBlock(topLeft, panelW), sep, topRight)
	bot := lipgloss.JoinHorizontal(lipgloss.Top, padBlock(botLeft, panelW), sep, botRight)
	return lipgloss.JoinVertical(lipgloss.Left, top, bot)
}

// padBlock pads every line of a block to the given visible width so columns
// line up in a horizontal join.
func padBlock(block string, width int) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	return strings.Join(lines, "\n")
}

// renderChannelPanel plots one or more same-unit channels on a shared axis
// of actual values, titled with the latest reading.
func (m uiModel) renderChannelPanel(names []string, title string, width, height int) string {
	var b strings.Builder

	unit := ""
	if ch, ok := m.reg.Lookup(names[0]); ok {
		unit = ch.Unit
	}
	last := ""
	if v, ok := m.snap.Last(names[0]); ok {
		last = dimStyle.Render(fmt.Sprintf("  last %s %s", fmtValue(v), unit))
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%s)", title, unit)))
	b.WriteString(last)
	b.WriteRune('\n')

	var series []plotSeries
	for _, name := range names {
		series = append(series, plotSeries{
			label:  name,
			values: m.snap.Values(name),
			style:  channelStyle(name),
		})
	}
	plotH := max(3, height-2)
	for _, line := range renderPlot(series, width, plotH, false) {
		b.WriteString(line)
		b.WriteRune('\n')
	}
	if len(names) > 1 {
		b.WriteString(renderLegend(series))
		b.WriteRune('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// --- Motion view ---

func (m uiModel) renderMotion(contentHeight int) string {
	half := max(6, (contentHeight-1)/2)
	rot := m.renderChannelPanel([]string{"rotation_x", "rotation_y", "rotation_z"}, "Rotation", m.width-2, half)
	acc := m.renderChannelPanel([]string{"accel_x", "accel_y", "accel_z"}, "Acceleration", m.width-2, half)
	return lipgloss.JoinVertical(lipgloss.Left, rot, "", acc)
}

// --- Overlay view ---

// renderOverlay plots every channel with data on a single [0,1] axis, each
// normalized against its own extrema.
func (m uiModel) renderOverlay(width, height int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("All Channels (normalized)"))
	b.WriteRune('\n')

	var series []plotSeries
	for _, name := range m.snap.Channels {
		values := m.snap.Values(name)
		if len(values) == 0 {
			continue
		}
		series = append(series, plotSeries{
			label:  name,
			values: history.Normalize(values),
			style:  channelStyle(name),
		})
	}

	if len(series) == 0 {
		b.WriteString(dimStyle.Render("  (waiting for telemetry)"))
		return b.String()
	}

	plotH := max(3, height-3)
	for _, line := range renderPlot(series, width, plotH, true) {
		b.WriteString(line)
		b.WriteRune('\n')
	}
	b.WriteString(renderLegend(series))
	return b.String()
}

// --- Feed view ---

func (m uiModel) renderFeed() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Raw Feed"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  (%d recent lines, unmatched dimmed)", len(m.tail))))
	b.WriteRune('\n')

	if len(m.tail) == 0 {
		b.WriteString(dimStyle.Render("  (waiting for telemetry)"))
		b.WriteRune('\n')
		return b.String()
	}

	for _, line := range m.tail {
		if line.Matched {
			b.WriteString("  " + line.Text)
		} else {
			b.WriteString(dimStyle.Render("  " + line.Text))
		}
		b.WriteRune('\n')
	}
	return b.String()
}

// --- Stats view ---

func (m uiModel) renderStats() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Channel Statistics"))
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %-18s %-8s %6s %12s %12s %12s  %s",
		"Channel", "Unit", "Count", "Min", "Max", "Last", "Trend")))
	b.WriteRune('\n')

	for _, name := range m.snap.Channels {
		values := m.snap.Values(name)
		unit := ""
		if ch, ok := m.reg.Lookup(name); ok {
			unit = ch.Unit
		}
		if len(values) == 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %-18s %-8s %6d %12s %12s %12s",
				name, unit, 0, "-", "-", "-")))
			b.WriteRune('\n')
			continue
		}
		lo, hi := minMax(values)
		line := fmt.Sprintf("  %-18s %-8s %6d %12s %12s %12s  %s",
			name, unit, len(values), fmtValue(lo), fmtValue(hi), fmtValue(values[len(values)-1]),
			renderSparkline(values, 24))
		b.WriteString(channelStyle(name).Render(line))
		b.WriteRune('\n')
	}

	b.WriteRune('\n')
	b.WriteString(dimStyle.Render(fmt.Sprintf("  window capacity %d per channel | snapshot age %s",
		m.agg.Capacity(), shortDuration(time.Since(m.snap.TakenAt)))))
	b.WriteRune('\n')
	return b.String()
}

// --- Helpers ---

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// fmtValue renders a reading compactly for labels and tables.
func fmtValue(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes. This prevents terminal line
// wrapping when the window is resized narrower.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

func shortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
