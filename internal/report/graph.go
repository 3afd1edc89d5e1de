package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"dso-capture/internal/spectrum"
	"dso-capture/internal/waveform"
)

// Default plot size in characters
const (
	DefaultGraphWidth  = 80
	DefaultGraphHeight = 20
)

// Plot draws ys against xs as an ASCII grid. Points landing in an occupied
// cell are drawn as '#'. xLabel formats the axis labels under the grid.
func Plot(w io.Writer, title string, xs, ys []float64, width, height int, xLabel func(float64) string) {
	if len(ys) == 0 || len(xs) != len(ys) {
		fmt.Fprintf(w, "%s: no samples to display\n\n", title)
		return
	}
	if width < 2 {
		width = DefaultGraphWidth
	}
	if height < 2 {
		height = DefaultGraphHeight
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	if maxY == minY {
		maxY = minY + 1e-6
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for i, y := range ys {
		x := 0
		if len(ys) > 1 {
			x = i * (width - 1) / (len(ys) - 1)
		}
		row := int(float64(height-1) * (1 - (y-minY)/(maxY-minY)))
		row = max(0, min(height-1, row))

		if grid[row][x] == ' ' {
			grid[row][x] = '*'
		} else {
			grid[row][x] = '#'
		}
	}

	fmt.Fprintf(w, "%s\n", title)
	for i, row := range grid {
		value := minY + float64(height-1-i)/float64(height-1)*(maxY-minY)
		fmt.Fprintf(w, "%8.4f |%s|\n", value, string(row))
	}
	fmt.Fprintf(w, "         +%s+\n", strings.Repeat("-", width))

	first, last := xs[0], xs[len(xs)-1]
	startLabel := xLabel(first)
	midLabel := xLabel((first + last) / 2)
	endLabel := xLabel(last)
	midPos := width / 2
	fmt.Fprintf(w, "         %s%s%s%s%s\n",
		startLabel,
		strings.Repeat(" ", max(1, midPos-len(startLabel)-len(midLabel)/2)),
		midLabel,
		strings.Repeat(" ", max(1, width-midPos-len(midLabel)+len(midLabel)/2-len(endLabel)+1)),
		endLabel)

	fmt.Fprintf(w, "\nLegend: * = data point, # = multiple points\n\n")
}

// PlotWaveform draws voltage over time
func PlotWaveform(w io.Writer, wf *waveform.Waveform, width, height int) {
	if wf == nil {
		Plot(w, "Voltage (V) over time", nil, nil, width, height, FormatTime)
		return
	}
	Plot(w, "Voltage (V) over time", wf.Times, wf.Volts, width, height, FormatTime)
}

// PlotSpectrum draws magnitude over frequency
func PlotSpectrum(w io.Writer, sp *spectrum.Spectrum, width, height int) {
	if sp == nil {
		Plot(w, "Magnitude over frequency", nil, nil, width, height, FormatFrequency)
		return
	}
	Plot(w, "Magnitude over frequency", sp.Frequencies, sp.Magnitudes, width, height, FormatFrequency)
}
