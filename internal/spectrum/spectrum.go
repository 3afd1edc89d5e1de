// Package spectrum computes the magnitude spectrum of a waveform, bounded to
// a maximum frequency. No window is applied, so a signal whose period does
// not divide the capture length leaks into neighbouring bins.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"dso-capture/internal/waveform"
)

// DefaultXMax is the default upper frequency bound in hertz
const DefaultXMax = 4000.0

// ErrInvalidRange is returned for a non-positive or NaN bound
var ErrInvalidRange = errors.New("invalid spectral range")

// Options tunes the analysis
type Options struct {
	// Normalize scales magnitudes to single-sided amplitude, 2/N * |X|
	Normalize bool
}

// Spectrum holds equal-length frequency (Hz) and magnitude sequences in
// ascending frequency order
type Spectrum struct {
	Frequencies []float64 `json:"frequencies"`
	Magnitudes  []float64 `json:"magnitudes"`
	Resolution  float64   `json:"resolution"` // Bin width in hertz
	XMax        float64   `json:"xmax"`
}

// Analyze returns the raw magnitude spectrum of w up to xmax hertz
func Analyze(w *waveform.Waveform, xmax float64) (*Spectrum, error) {
	return AnalyzeWithOptions(w, xmax, Options{})
}

// AnalyzeWithOptions is Analyze with magnitude scaling options
func AnalyzeWithOptions(w *waveform.Waveform, xmax float64, opts Options) (*Spectrum, error) {
	if math.IsNaN(xmax) || xmax <= 0 {
		return nil, fmt.Errorf("%w: xmax must be positive, got %g", ErrInvalidRange, xmax)
	}
	if w == nil || w.Len() < 2 {
		return nil, errors.New("spectrum needs at least two samples")
	}
	if !(w.Interval > 0) {
		return nil, fmt.Errorf("invalid sample interval %g", w.Interval)
	}

	n := w.Len()
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, w.Volts)

	scale := 1.0
	if opts.Normalize {
		scale = 2 / float64(n)
	}

	s := &Spectrum{
		Resolution: 1 / (float64(n) * w.Interval),
		XMax:       xmax,
	}
	// Coefficients holds only the non-negative half, already ascending
	for k, c := range coeffs {
		freq := fft.Freq(k) / w.Interval
		if freq > xmax {
			break
		}
		s.Frequencies = append(s.Frequencies, freq)
		s.Magnitudes = append(s.Magnitudes, cmplx.Abs(c)*scale)
	}
	return s, nil
}

// Len returns the number of bins
func (s *Spectrum) Len() int {
	return len(s.Frequencies)
}

// Peak returns the strongest bin above DC. ok is false when the spectrum
// holds no such bin.
func (s *Spectrum) Peak() (freq, magnitude float64, ok bool) {
	best := -1
	for k := 1; k < len(s.Magnitudes); k++ {
		if best < 0 || s.Magnitudes[k] > s.Magnitudes[best] {
			best = k
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return s.Frequencies[best], s.Magnitudes[best], true
}
