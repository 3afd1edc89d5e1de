package spectrum

import (
	"errors"
	"math"
	"testing"

	"dso-capture/internal/frame"
	"dso-capture/internal/synth"
	"dso-capture/internal/waveform"
)

func sine(t *testing.T, timebaseIndex int, freq, amplitude float64) *waveform.Waveform {
	t.Helper()
	h, err := frame.NewHeader(frame.AC, 6, timebaseIndex)
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}
	return waveform.Build(h, synth.Codes(h, synth.Signal{Shape: synth.Sine, Frequency: freq, Amplitude: amplitude}))
}

func TestPeakWithinOneBin(t *testing.T) {
	tests := []struct {
		freq     float64
		timebase int
		xmax     float64
	}{
		{1000, 6, DefaultXMax},
		{440, 7, DefaultXMax},
		{3000, 5, DefaultXMax},
		{150, 9, 1000},
	}

	for _, tt := range tests {
		w := sine(t, tt.timebase, tt.freq, 1.5)
		s, err := Analyze(w, tt.xmax)
		if err != nil {
			t.Fatalf("%g Hz: %v", tt.freq, err)
		}

		peak, _, ok := s.Peak()
		if !ok {
			t.Fatalf("%g Hz: no peak", tt.freq)
		}
		if math.Abs(peak-tt.freq) > s.Resolution {
			t.Errorf("%g Hz: peak at %g, bin width %g", tt.freq, peak, s.Resolution)
		}
	}
}

func TestNoBinAboveXMax(t *testing.T) {
	w := sine(t, 6, 1000, 1)
	for _, xmax := range []float64{1, 500, 999.5, DefaultXMax, 12500, 1e9} {
		s, err := Analyze(w, xmax)
		if err != nil {
			t.Fatalf("xmax %g: %v", xmax, err)
		}
		if len(s.Frequencies) != len(s.Magnitudes) {
			t.Fatalf("xmax %g: %d frequencies vs %d magnitudes", xmax, len(s.Frequencies), len(s.Magnitudes))
		}
		for i, f := range s.Frequencies {
			if f > xmax {
				t.Errorf("xmax %g: bin %d at %g Hz", xmax, i, f)
			}
			if i > 0 && !(f > s.Frequencies[i-1]) {
				t.Errorf("xmax %g: frequencies not ascending at %d", xmax, i)
			}
		}
	}

	// Above Nyquist every non-negative bin is kept
	s, _ := Analyze(w, 1e9)
	if s.Len() != frame.SampleCount/2+1 {
		t.Errorf("expected %d bins, got %d", frame.SampleCount/2+1, s.Len())
	}
	// Below the first bin only DC survives
	s, _ = Analyze(w, 1)
	if s.Len() != 1 || s.Frequencies[0] != 0 {
		t.Errorf("expected only the DC bin, got %v", s.Frequencies)
	}
}

func TestInvalidRange(t *testing.T) {
	w := sine(t, 6, 1000, 1)
	for _, xmax := range []float64{0, -1, -DefaultXMax, math.Inf(-1), math.NaN()} {
		s, err := Analyze(w, xmax)
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("xmax %g: expected ErrInvalidRange, got %v", xmax, err)
		}
		if s != nil {
			t.Errorf("xmax %g: spectrum returned with error", xmax)
		}
	}
}

func TestNormalizedAmplitude(t *testing.T) {
	// 25 kHz sample rate, 2048 points: bin 82 sits at 1000.98 Hz
	binFreq := 82 * 25000.0 / 2048
	w := sine(t, 6, binFreq, 2)

	raw, err := Analyze(w, DefaultXMax)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	norm, err := AnalyzeWithOptions(w, DefaultXMax, Options{Normalize: true})
	if err != nil {
		t.Fatalf("AnalyzeWithOptions: %v", err)
	}

	_, rawPeak, _ := raw.Peak()
	freq, amp, _ := norm.Peak()
	if math.Abs(freq-binFreq) > 1e-6 {
		t.Errorf("expected peak exactly at %g, got %g", binFreq, freq)
	}
	if math.Abs(amp-2) > 0.02 {
		t.Errorf("expected single-sided amplitude 2, got %g", amp)
	}
	if math.Abs(rawPeak*2/float64(w.Len())-amp) > 1e-9 {
		t.Errorf("normalized magnitude must be 2/N of raw")
	}
}

func TestAnalyzeRejectsEmptyWaveform(t *testing.T) {
	if _, err := Analyze(&waveform.Waveform{Interval: 1e-3}, DefaultXMax); err == nil {
		t.Error("expected error for empty waveform")
	}
	if _, err := Analyze(nil, DefaultXMax); err == nil {
		t.Error("expected error for nil waveform")
	}
}

func TestPeakOfEmptySpectrum(t *testing.T) {
	s := &Spectrum{Frequencies: []float64{0}, Magnitudes: []float64{5}}
	if _, _, ok := s.Peak(); ok {
		t.Error("a DC-only spectrum has no peak")
	}
}
