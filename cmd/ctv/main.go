// ctv is a real-time terminal viewer for CanSat flight-computer telemetry.
//
// It reads the flight computer's human-readable log lines over a serial
// link, extracts named measurements (pressure, raw/filtered altitude, MPU
// temperature, rotation, acceleration), keeps a rolling window per channel,
// and charts them live in the terminal.
//
// Usage:
//
//	ctv --port /dev/ttyACM0             # Live serial telemetry
//	ctv --port COM3 --baud 115200       # Different port and baud rate
//	ctv --file flight.log               # Replay/tail a capture file
//	ctv --file flight.log --json        # Capture briefly, dump JSON, exit
//	ctv --png chart.png                 # Capture briefly, write PNG chart, exit
//	ctv --list-ports                    # Enumerate serial ports and exit
//	ctv --version                       # Print version and exit
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cansatlab/ctv/internal/datasource"
	"github.com/cansatlab/ctv/internal/export"
	"github.com/cansatlab/ctv/internal/history"
	"github.com/cansatlab/ctv/internal/ingest"
	"github.com/cansatlab/ctv/internal/telemetry"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

func main() {
	port := flag.String("port", "/dev/ttyACM0", "serial port of the flight computer")
	baud := flag.Int("baud", 9600, "serial baud rate")
	file := flag.String("file", "", "replay/tail a telemetry capture file instead of a serial port")
	capacity := flag.Int("capacity", history.DefaultCapacity, "rolling window size per channel")
	refresh := flag.Duration("refresh", 500*time.Millisecond, "ingest/render tick interval")
	captureDur := flag.Duration("capture", 5*time.Second, "capture window for --json/--png modes")
	jsonMode := flag.Bool("json", false, "capture, dump current snapshot as JSON, and exit (no TUI)")
	pngPath := flag.String("png", "", "capture, write a normalized overlay chart PNG, and exit (no TUI)")
	listPorts := flag.Bool("list-ports", false, "list available serial ports and exit")
	viewFlag := flag.String("view", "", "start in specific view (dashboard|pressure|altitude|temperature|motion|overlay|feed|stats)")
	logFile := flag.String("log-file", "", "write diagnostics to this file (TUI mode only)")
	logLevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("ctv %s\n", Version)
		os.Exit(0)
	}

	if *listPorts {
		ports, err := datasource.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ctv: %v\n", err)
			os.Exit(1)
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports detected")
			os.Exit(0)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		os.Exit(0)
	}

	oneShot := *jsonMode || *pngPath != ""
	logger, logCleanup, err := newLogger(*logLevel, *logFile, oneShot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ctv: %v\n", err)
		os.Exit(1)
	}
	defer logCleanup()

	src, err := openSource(*file, *port, *baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ctv: %v\n", err)
		if *file == "" {
			printAvailablePorts(os.Stderr)
		}
		os.Exit(1)
	}

	reg := telemetry.Default()
	agg, err := history.NewAggregator(reg, *capacity)
	if err != nil {
		src.Close()
		fmt.Fprintf(os.Stderr, "ctv: %v\n", err)
		os.Exit(1)
	}
	ing := ingest.New(src, reg, agg, logger)
	logger.Info("source open", "source", src.Name(), "capacity", *capacity, "refresh", *refresh)

	if oneShot {
		err := runCapture(ing, *captureDur, *refresh)
		snap := agg.Snapshot()
		stats := ing.Totals()
		src.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ctv: capture: %v\n", err)
			os.Exit(1)
		}
		if *jsonMode {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(buildJSONOutput(src.Name(), reg, snap, stats)); err != nil {
				fmt.Fprintf(os.Stderr, "ctv: json: %v\n", err)
				os.Exit(1)
			}
		}
		if *pngPath != "" {
			if err := export.Overlay(snap, *pngPath); err != nil {
				fmt.Fprintf(os.Stderr, "ctv: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("wrote %s\n", *pngPath)
		}
		os.Exit(0)
	}

	// File sources get a watcher so appends push a refresh between ticks.
	// Losing the watcher is not fatal: the tick still polls.
	var w *datasource.Watcher
	if *file != "" {
		w, err = datasource.NewWatcher(*file)
		if err != nil {
			logger.Warn("file watcher unavailable, polling only", "error", err)
		}
	}

	m := newModel(ing, agg, reg, src, w, *refresh)
	if *viewFlag != "" {
		v, err := parseViewFlag(*viewFlag)
		if err != nil {
			src.Close()
			if w != nil {
				w.Close()
			}
			fmt.Fprintf(os.Stderr, "ctv: %v\n", err)
			os.Exit(1)
		}
		m.activeView = v
	}
	p := tea.NewProgram(m, tea.WithAltScreen())

	if w != nil {
		go func() {
			for range w.Changes() {
				p.Send(sourceChangedMsg{})
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ctv: %v\n", err)
		os.Exit(1)
	}
}

// parseViewFlag maps a --view flag string to a viewID.
func parseViewFlag(s string) (viewID, error) {
	switch strings.ToLower(s) {
	case "dashboard", "d":
		return viewDashboard, nil
	case "pressure", "p":
		return viewPressure, nil
	case "altitude", "a":
		return viewAltitude, nil
	case "temperature", "t":
		return viewTemperature, nil
	case "motion", "m":
		return viewMotion, nil
	case "overlay", "o":
		return viewOverlay, nil
	case "feed", "f":
		return viewFeed, nil
	case "stats", "s":
		return viewStats, nil
	default:
		return 0, fmt.Errorf("unknown view %q (valid: dashboard, pressure, altitude, temperature, motion, overlay, feed, stats)", s)
	}
}

// openSource picks the capture file when given, the serial port otherwise.
func openSource(file, port string, baud int) (datasource.ByteSource, error) {
	if file != "" {
		return datasource.OpenFile(file)
	}
	return datasource.OpenSerial(port, baud)
}

// printAvailablePorts mirrors the open-failure help of the original ground
// station tooling: show the user what ports exist.
func printAvailablePorts(out io.Writer) {
	ports, err := datasource.ListPorts()
	if err != nil || len(ports) == 0 {
		fmt.Fprintln(out, "no serial ports detected")
		return
	}
	fmt.Fprintf(out, "available ports: %s\n", strings.Join(ports, ", "))
}

// newLogger builds the slog logger. The TUI owns the terminal, so in TUI
// mode diagnostics go to a file when asked for and nowhere otherwise;
// one-shot modes log to stderr.
func newLogger(level, path string, oneShot bool) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("bad log level %q", level)
	}
	cleanup := func() {}

	var out io.Writer
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		cleanup = func() { f.Close() }
	case oneShot:
		out = os.Stderr
	default:
		return slog.New(slog.DiscardHandler), cleanup, nil
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})), cleanup, nil
}

// runCapture runs ingest cycles at the tick interval until the capture
// window closes. Source failure aborts the capture.
func runCapture(ing *ingest.Ingestor, window, tick time.Duration) error {
	deadline := time.Now().Add(window)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		if err := ing.Cycle(); err != nil {
			return err
		}
		if !time.Now().Before(deadline) {
			return nil
		}
		<-ticker.C
	}
}

// --- JSON output (one-shot --json mode) ---

type jsonOutput struct {
	Source   string        `json:"source"`
	TakenAt  string        `json:"taken_at"`
	Channels []jsonChannel `json:"channels"`
	Stats    jsonStats     `json:"stats"`
}

type jsonChannel struct {
	Name   string    `json:"name"`
	Unit   string    `json:"unit"`
	Count  int       `json:"count"`
	Values []float64 `json:"values"`
}

type jsonStats struct {
	Bytes   uint64 `json:"bytes"`
	Lines   uint64 `json:"lines"`
	Matched uint64 `json:"matched"`
	Dropped uint64 `json:"dropped"`
}

// buildJSONOutput flattens a snapshot into the JSON dump structure.
func buildJSONOutput(source string, reg *telemetry.Registry, snap *history.Snapshot, stats ingest.Stats) jsonOutput {
	channels := make([]jsonChannel, len(snap.Channels))
	for i, name := range snap.Channels {
		unit := ""
		if ch, ok := reg.Lookup(name); ok {
			unit = ch.Unit
		}
		values := snap.Values(name)
		channels[i] = jsonChannel{
			Name:   name,
			Unit:   unit,
			Count:  len(values),
			Values: values,
		}
	}
	return jsonOutput{
		Source:   source,
		TakenAt:  snap.TakenAt.Format(time.RFC3339),
		Channels: channels,
		Stats: jsonStats{
			Bytes:   stats.Bytes,
			Lines:   stats.Lines,
			Matched: stats.Matched,
			Dropped: stats.Dropped,
		},
	}
}
