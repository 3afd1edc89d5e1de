// Package stats derives amplitude and timing statistics from a waveform.
//
// Timing statistics come from threshold crossings at the mean voltage. A
// crossing only becomes an edge once the signal has stayed on the new side
// for DebounceSamples non-threshold samples, so a single-sample spike never
// produces a pair of false edges. Frequency, cycle, pulse width and duty are
// undefined when fewer than two rising edges are found.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dso-capture/internal/waveform"
)

// DefaultDebounceSamples is the minimum run on the new side of the threshold
// that confirms an edge
const DefaultDebounceSamples = 3

// Options tunes edge detection
type Options struct {
	DebounceSamples int
}

// Polarity of a threshold crossing
type Polarity int

const (
	Rising Polarity = iota
	Falling
)

func (p Polarity) String() string {
	if p == Rising {
		return "rising"
	}
	return "falling"
}

// Edge is an accepted threshold crossing
type Edge struct {
	Polarity Polarity `json:"-"`
	Index    int      `json:"index"` // First sample on the new side
	Time     float64  `json:"time"`  // Interpolated crossing instant in seconds
}

// Statistics is the result of one computation. Voltages are volts, Cycle
// and PW seconds, Freq hertz and Duty percent.
type Statistics struct {
	Vmax float64 `json:"vmax"`
	Vmin float64 `json:"vmin"`
	Vavr float64 `json:"vavr"`
	Vpp  float64 `json:"vpp"`
	Vrms float64 `json:"vrms"`

	Freq  Value `json:"freq"`
	Cycle Value `json:"cycle"`
	PW    Value `json:"pw"`
	Duty  Value `json:"duty"`

	Threshold    float64 `json:"threshold"`
	RisingEdges  int     `json:"rising_edges"`
	FallingEdges int     `json:"falling_edges"`
}

// Compute uses the default debounce
func Compute(w *waveform.Waveform) Statistics {
	return ComputeWithOptions(w, Options{DebounceSamples: DefaultDebounceSamples})
}

// ComputeWithOptions computes every statistic of w. An empty waveform yields
// zero amplitudes and undefined timing.
func ComputeWithOptions(w *waveform.Waveform, opts Options) Statistics {
	var s Statistics
	if w == nil || w.Len() == 0 {
		return s
	}

	volts := w.Volts
	s.Vmax = floats.Max(volts)
	s.Vmin = floats.Min(volts)
	s.Vavr = stat.Mean(volts, nil)
	s.Vpp = s.Vmax - s.Vmin
	s.Vrms = math.Sqrt(floats.Dot(volts, volts) / float64(len(volts)))
	s.Threshold = s.Vavr

	edges := DetectEdges(w, s.Threshold, opts.DebounceSamples)
	s.Freq, s.Cycle, s.PW, s.Duty = timing(edges)
	for _, e := range edges {
		if e.Polarity == Rising {
			s.RisingEdges++
		} else {
			s.FallingEdges++
		}
	}
	return s
}

// DetectEdges returns the debounced crossings of threshold in time order.
// Accepted edges always alternate in polarity.
func DetectEdges(w *waveform.Waveform, threshold float64, debounce int) []Edge {
	if debounce < 1 {
		debounce = 1
	}

	var (
		edges     []Edge
		confirmed int // side the signal is known to be on: +1 above, -1 below
		prev      = -1
		pending   *Edge
		run       int
	)

	for i, v := range w.Volts {
		side := sideOf(v, threshold)
		if side == 0 {
			// On the threshold: neither side, never an edge by itself
			continue
		}

		switch {
		case confirmed == 0:
			confirmed = side
		case side == confirmed:
			pending = nil
			run = 0
		default:
			if pending == nil {
				e := crossing(w, prev, i, threshold)
				if side > 0 {
					e.Polarity = Rising
				} else {
					e.Polarity = Falling
				}
				pending = &e
			}
			run++
			if run >= debounce {
				edges = append(edges, *pending)
				confirmed = side
				pending = nil
				run = 0
			}
		}
		prev = i
	}
	return edges
}

func sideOf(v, threshold float64) int {
	switch {
	case v > threshold:
		return 1
	case v < threshold:
		return -1
	}
	return 0
}

// crossing interpolates the instant threshold is crossed between samples a
// and b, which lie on opposite sides of it
func crossing(w *waveform.Waveform, a, b int, threshold float64) Edge {
	va, vb := w.Volts[a], w.Volts[b]
	ta, tb := w.Times[a], w.Times[b]
	frac := (threshold - va) / (vb - va)
	return Edge{Index: b, Time: ta + frac*(tb-ta)}
}

func timing(edges []Edge) (freq, cycle, pw, duty Value) {
	var rising []int
	for i, e := range edges {
		if e.Polarity == Rising {
			rising = append(rising, i)
		}
	}
	if len(rising) < 2 {
		return Undefined(), Undefined(), Undefined(), Undefined()
	}

	first, last := edges[rising[0]], edges[rising[len(rising)-1]]
	period := (last.Time - first.Time) / float64(len(rising)-1)
	if !(period > 0) {
		return Undefined(), Undefined(), Undefined(), Undefined()
	}

	// Edges alternate, so the edge after a rising one is its falling edge
	var widths []float64
	for _, r := range rising {
		if r+1 < len(edges) {
			widths = append(widths, edges[r+1].Time-edges[r].Time)
		}
	}

	cycle = Defined(period)
	freq = Defined(1 / period)
	if len(widths) == 0 {
		return freq, cycle, Undefined(), Undefined()
	}
	width := stat.Mean(widths, nil)
	return freq, cycle, Defined(width), Defined(width / period * 100)
}
