package main

// Terminal charts. One series draws as filled block columns with eighth-block
// resolution; multiple series share a dot grid so overlapping channels stay
// readable. The newest sample is always at the right edge.

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// plotSeries is one line of data with its label and color.
type plotSeries struct {
	label  string
	values []float64
	style  lipgloss.Style
}

// partialBlocks indexes eighth-height column fills, lowest first.
var partialBlocks = []rune("▁▂▃▄▅▆▇█")

// renderPlot draws the series into a width×height cell grid with a labeled
// value axis on the left. fixed01 pins the axis to [0,1] (for normalized
// overlays); otherwise the axis spans the pooled extrema of all series.
func renderPlot(series []plotSeries, width, height int, fixed01 bool) []string {
	if height < 3 {
		height = 3
	}

	lo, hi := 0.0, 1.0
	var any bool
	if !fixed01 {
		for _, s := range series {
			for _, v := range s.values {
				if !any {
					lo, hi = v, v
					any = true
					continue
				}
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
		}
		if !any {
			lo, hi = 0, 0
		}
	}

	hiLabel, loLabel := fmtValue(hi), fmtValue(lo)
	gutter := max(len(hiLabel), len(loLabel))
	plotW := max(8, width-gutter-1)

	lines := make([]string, height)
	if countSamples(series) == 0 {
		for row := range lines {
			lines[row] = axisPrefix(row, height, hiLabel, loLabel, gutter) + dimStyle.Render(strings.Repeat("·", plotW))
		}
		return lines
	}

	var rows [][]string
	if len(series) == 1 {
		rows = plotBars(series[0], lo, hi, plotW, height)
	} else {
		rows = plotDots(series, lo, hi, plotW, height)
	}

	for row := 0; row < height; row++ {
		lines[row] = axisPrefix(row, height, hiLabel, loLabel, gutter) + strings.Join(rows[row], "")
	}
	return lines
}

// axisPrefix renders the left value-axis gutter for one row.
func axisPrefix(row, height int, hiLabel, loLabel string, gutter int) string {
	switch row {
	case 0:
		return dimStyle.Render(fmt.Sprintf("%*s┤", gutter, hiLabel))
	case height - 1:
		return dimStyle.Render(fmt.Sprintf("%*s┤", gutter, loLabel))
	default:
		return dimStyle.Render(fmt.Sprintf("%*s│", gutter, ""))
	}
}

// plotBars renders a single series as filled columns, eighth-block steps.
func plotBars(s plotSeries, lo, hi float64, width, height int) [][]string {
	rows := emptyGrid(width, height)
	values := lastN(s.values, width)
	offset := width - len(values)

	levels := height * 8
	for i, v := range values {
		lvl := 1 // a flat series still draws a baseline
		if hi > lo {
			lvl = max(1, int((v-lo)/(hi-lo)*float64(levels-1))+1)
		}
		for row := 0; row < height; row++ {
			filled := lvl - (height-1-row)*8
			switch {
			case filled >= 8:
				rows[row][offset+i] = s.style.Render("█")
			case filled > 0:
				rows[row][offset+i] = s.style.Render(string(partialBlocks[filled-1]))
			}
		}
	}
	return rows
}

// plotDots renders multiple series as colored markers on a shared grid.
// Later series overdraw earlier ones where they collide.
func plotDots(series []plotSeries, lo, hi float64, width, height int) [][]string {
	rows := emptyGrid(width, height)
	for _, s := range series {
		values := lastN(s.values, width)
		offset := width - len(values)
		for i, v := range values {
			frac := 0.0
			if hi > lo {
				frac = (v - lo) / (hi - lo)
			}
			row := height - 1 - int(frac*float64(height-1)+0.5)
			if row < 0 {
				row = 0
			}
			if row >= height {
				row = height - 1
			}
			rows[row][offset+i] = s.style.Render("•")
		}
	}
	return rows
}

func emptyGrid(width, height int) [][]string {
	rows := make([][]string, height)
	for r := range rows {
		cells := make([]string, width)
		for c := range cells {
			cells[c] = " "
		}
		rows[r] = cells
	}
	return rows
}

func lastN(values []float64, n int) []float64 {
	if len(values) > n {
		return values[len(values)-n:]
	}
	return values
}

func countSamples(series []plotSeries) int {
	var n int
	for _, s := range series {
		n += len(s.values)
	}
	return n
}

// renderLegend joins colored swatches for each series on one line.
func renderLegend(series []plotSeries) string {
	parts := make([]string, len(series))
	for i, s := range series {
		parts[i] = s.style.Render("── " + s.label)
	}
	return "  " + strings.Join(parts, "  ")
}

// renderSparkline draws values as a one-line block sketch, newest at the
// right. Used where a full plot does not fit.
func renderSparkline(values []float64, width int) string {
	values = lastN(values, width)
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(partialBlocks)-1))
		}
		b.WriteRune(partialBlocks[idx])
	}
	return b.String()
}
