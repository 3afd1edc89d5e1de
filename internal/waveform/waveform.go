// Package waveform converts raw ADC codes into a calibrated time/voltage trace
package waveform

import (
	"dso-capture/internal/frame"
)

// Waveform is a uniformly sampled voltage trace. Times are seconds from the
// first sample, Volts are volts.
type Waveform struct {
	Header   frame.Header `json:"-"`
	Interval float64      `json:"interval"`
	Times    []float64    `json:"times"`
	Volts    []float64    `json:"volts"`
}

// Build maps every code through the header's vertical range and timebase.
// It is pure: equal inputs give bit-identical output.
func Build(h frame.Header, codes []uint16) *Waveform {
	interval := h.SampleInterval()
	scale := h.VoltsPerCode()

	offset := 0.0
	if h.Coupling == frame.DC {
		offset = h.Vertical.DCBias
	}

	times := make([]float64, len(codes))
	volts := make([]float64, len(codes))
	for i, c := range codes {
		times[i] = float64(i) * interval
		volts[i] = float64(int(c)-frame.CodeMidpoint)*scale - offset
	}

	return &Waveform{
		Header:   h,
		Interval: interval,
		Times:    times,
		Volts:    volts,
	}
}

// FromFrame builds the waveform of a decoded frame
func FromFrame(f *frame.Frame) *Waveform {
	return Build(f.Header, f.Samples)
}

// Len returns the number of samples
func (w *Waveform) Len() int {
	return len(w.Volts)
}

// Duration returns the time span covered by the samples
func (w *Waveform) Duration() float64 {
	return float64(w.Len()) * w.Interval
}

// SampleRate returns samples per second
func (w *Waveform) SampleRate() float64 {
	if w.Interval == 0 {
		return 0
	}
	return 1 / w.Interval
}

// Code returns the ADC code closest to volts v under header h. It is the
// inverse of Build, clamped to the 12-bit code range.
func Code(h frame.Header, v float64) uint16 {
	if h.Coupling == frame.DC {
		v += h.Vertical.DCBias
	}
	c := float64(frame.CodeMidpoint) + v/h.VoltsPerCode()
	if c < 0 {
		return 0
	}
	if c > frame.CodeMax {
		return frame.CodeMax
	}
	return uint16(c + 0.5)
}
