// Package export renders a snapshot of the rolling telemetry history to a
// PNG chart file.
package export

import (
	"errors"
	"fmt"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/cansatlab/ctv/internal/history"
)

// palette cycles across channels; colors roughly follow the live view.
var palette = []drawing.Color{
	{R: 0x33, G: 0x66, B: 0xCC, A: 0xFF}, // blue
	{R: 0xCC, G: 0x33, B: 0x44, A: 0xFF}, // red
	{R: 0x33, G: 0x99, B: 0x44, A: 0xFF}, // green
	{R: 0xEE, G: 0x99, B: 0x22, A: 0xFF}, // orange
	{R: 0x88, G: 0x44, B: 0xCC, A: 0xFF}, // purple
	{R: 0x22, G: 0xAA, B: 0xAA, A: 0xFF}, // teal
}

// Overlay writes a PNG of the snapshot's channels normalized onto a shared
// [0,1] axis, one series per channel with at least two samples (go-chart
// cannot draw a single-point series). Each channel is normalized against its
// own extrema.
func Overlay(snap *history.Snapshot, path string) error {
	var series []chart.Series
	var colorIdx int
	for _, name := range snap.Channels {
		values := snap.Values(name)
		if len(values) < 2 {
			continue
		}
		norm := history.Normalize(values)
		xs := make([]float64, len(norm))
		for i := range xs {
			xs[i] = float64(i)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: norm,
			Style: chart.Style{
				StrokeColor: palette[colorIdx%len(palette)],
				StrokeWidth: 1.5,
			},
		})
		colorIdx++
	}
	if len(series) == 0 {
		return errors.New("export: no channel has enough samples to chart")
	}

	ch := chart.Chart{
		Title:  "CanSat telemetry (normalized)",
		Width:  1200,
		Height: 700,
		XAxis:  chart.XAxis{Name: "sample"},
		YAxis: chart.YAxis{
			Name:  "normalized",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()
	if err := ch.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("export: render chart: %w", err)
	}
	return nil
}
