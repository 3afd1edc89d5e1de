// Package synth generates captures of analytic signals in the instrument's
// wire format, for bench-free testing of the whole pipeline
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"dso-capture/internal/frame"
	"dso-capture/internal/waveform"
)

// Shape of a generated signal
type Shape string

const (
	Sine   Shape = "sine"
	Square Shape = "square"
	DC     Shape = "dc"
)

// ParseShape accepts sine, square or dc
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case Sine:
		return Sine, nil
	case Square:
		return Square, nil
	case DC:
		return DC, nil
	}
	return "", fmt.Errorf("unknown signal shape %q (expected sine, square or dc)", s)
}

// Signal describes what the probe sees
type Signal struct {
	Shape     Shape
	Frequency float64 // Hz, ignored for DC
	Amplitude float64 // Peak volts around Offset
	Offset    float64 // Volts
	Duty      float64 // Percent high time for Square, 50 when zero
	Phase     float64 // Radians
	Noise     float64 // Standard deviation of added gaussian noise in volts
	Seed      int64   // Noise seed
}

// Voltage returns the noiseless signal at time t seconds
func (s Signal) Voltage(t float64) float64 {
	switch s.Shape {
	case Sine:
		return s.Offset + s.Amplitude*math.Sin(2*math.Pi*s.Frequency*t+s.Phase)
	case Square:
		duty := s.Duty
		if duty <= 0 || duty >= 100 {
			duty = 50
		}
		pos := s.Frequency*t + s.Phase/(2*math.Pi)
		pos -= math.Floor(pos)
		if pos < duty/100 {
			return s.Offset + s.Amplitude
		}
		return s.Offset - s.Amplitude
	}
	return s.Offset + s.Amplitude
}

// Codes samples the signal at the header's rate and quantizes it to ADC
// codes, clamping at the ends of the 12-bit range like the real converter
func Codes(h frame.Header, s Signal) []uint16 {
	var rng *rand.Rand
	if s.Noise > 0 {
		rng = rand.New(rand.NewSource(s.Seed))
	}

	interval := h.SampleInterval()
	codes := make([]uint16, frame.SampleCount)
	for i := range codes {
		v := s.Voltage(float64(i) * interval)
		if rng != nil {
			v += rng.NormFloat64() * s.Noise
		}
		codes[i] = waveform.Code(h, v)
	}
	return codes
}

// Frame returns a complete wire-format transmission of the signal
func Frame(h frame.Header, s Signal) ([]byte, error) {
	raw, err := frame.Encode(h, Codes(h, s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthetic frame: %w", err)
	}
	return raw, nil
}
