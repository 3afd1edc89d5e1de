// Package report renders capture results as text and exports them for
// external plotting tools
package report

import (
	"fmt"
	"io"
	"math"

	"dso-capture/internal/acquire"
	"dso-capture/internal/frame"
	"dso-capture/internal/spectrum"
	"dso-capture/internal/stats"
)

const delimiter = "------------------------------------------------------------"

// PrintSettings writes the capture settings between delimiter lines
func PrintSettings(w io.Writer, h frame.Header) {
	fmt.Fprintln(w, delimiter)
	fmt.Fprintln(w, h.Settings())
	fmt.Fprintln(w, delimiter)
}

// PrintStatistics writes every statistic. Voltages use the header's
// voltage unit; undefined timing values print as "undefined".
func PrintStatistics(w io.Writer, h frame.Header, s stats.Statistics) {
	v := func(x float64) string { return FormatVoltage(x, h.VoltageUnit) }

	fmt.Fprintf(w, "Vmax: %s, Vmin: %s, Vavr: %s, Vpp: %s, Vrms: %s\n",
		v(s.Vmax), v(s.Vmin), v(s.Vavr), v(s.Vpp), v(s.Vrms))
	fmt.Fprintf(w, "Freq: %s, Cycle: %s, PW: %s, Duty: %s\n",
		formatValue(s.Freq, FormatFrequency),
		formatValue(s.Cycle, FormatTime),
		formatValue(s.PW, FormatTime),
		formatValue(s.Duty, func(d float64) string { return fmt.Sprintf("%.1f%%", d) }))
	fmt.Fprintf(w, "Edges: %d rising, %d falling (threshold %s)\n",
		s.RisingEdges, s.FallingEdges, v(s.Threshold))
}

// PrintSpectrum summarizes a spectrum: bin count, resolution and the
// strongest non-DC bin
func PrintSpectrum(w io.Writer, sp *spectrum.Spectrum) {
	fmt.Fprintf(w, "Spectrum: %d bins up to %s, resolution %s\n",
		sp.Len(), FormatFrequency(sp.XMax), FormatFrequency(sp.Resolution))
	if freq, mag, ok := sp.Peak(); ok {
		fmt.Fprintf(w, "Peak: %s (magnitude %.4g)\n", FormatFrequency(freq), mag)
	}
}

func formatValue(v stats.Value, format func(float64) string) string {
	x, ok := v.Float64()
	if !ok {
		return "undefined"
	}
	return format(x)
}

// FormatVoltage prints volts in unit ("mV" or "V")
func FormatVoltage(volts float64, unit string) string {
	if unit == "mV" {
		return fmt.Sprintf("%.2fmV", volts*1e3)
	}
	return fmt.Sprintf("%.3fV", volts)
}

// FormatTime picks s, ms or us for a duration in seconds
func FormatTime(seconds float64) string {
	a := math.Abs(seconds)
	switch {
	case a >= 1:
		return fmt.Sprintf("%.3fs", seconds)
	case a >= 1e-3:
		return fmt.Sprintf("%.3fms", seconds*1e3)
	default:
		return fmt.Sprintf("%.2fus", seconds*1e6)
	}
}

// FormatFrequency picks Hz, kHz or MHz
func FormatFrequency(hz float64) string {
	a := math.Abs(hz)
	switch {
	case a >= 1e6:
		return fmt.Sprintf("%.3fMHz", hz/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.3fkHz", hz/1e3)
	default:
		return fmt.Sprintf("%.2fHz", hz)
	}
}

// Progress returns the lifecycle message printed for a session state, or ""
// for states that print nothing
func Progress(state acquire.State) string {
	switch state {
	case acquire.Waiting:
		return "waiting for data"
	case acquire.Receiving:
		return "receiving data"
	case acquire.Complete:
		return "data received"
	}
	return ""
}
