package waveform

import (
	"math"
	"testing"

	"dso-capture/internal/frame"
)

func header(t *testing.T, c frame.Coupling, rangeIndex, timebaseIndex int) frame.Header {
	t.Helper()
	h, err := frame.NewHeader(c, rangeIndex, timebaseIndex)
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}
	return h
}

func TestBuildConvertsCodes(t *testing.T) {
	h := header(t, frame.AC, 6, 6) // 1V/div, 1ms/div
	codes := []uint16{2048, 2560, 1536, 0, 4095}

	w := Build(h, codes)

	want := []float64{0, 1, -1, -4, 2047.0 / 512}
	for i, v := range want {
		if math.Abs(w.Volts[i]-v) > 1e-12 {
			t.Errorf("sample %d: expected %g V, got %g V", i, v, w.Volts[i])
		}
	}
	if math.Abs(w.Interval-40e-6) > 1e-15 {
		t.Errorf("expected 40us interval, got %g", w.Interval)
	}
	if math.Abs(w.Times[4]-160e-6) > 1e-15 {
		t.Errorf("expected t[4] = 160us, got %g", w.Times[4])
	}
}

func TestBuildRemovesDCBias(t *testing.T) {
	ac := Build(header(t, frame.AC, 3, 6), []uint16{2048, 3000})
	dc := Build(header(t, frame.DC, 3, 6), []uint16{2048, 3000})

	bias := ac.Header.Vertical.DCBias
	for i := range ac.Volts {
		if math.Abs(ac.Volts[i]-dc.Volts[i]-bias) > 1e-12 {
			t.Errorf("sample %d: expected DC to be %g V below AC, got %g vs %g", i, bias, dc.Volts[i], ac.Volts[i])
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	h := header(t, frame.DC, 2, 9)
	codes := make([]uint16, frame.SampleCount)
	for i := range codes {
		codes[i] = uint16((i * 37) % 4096)
	}

	a := Build(h, codes)
	b := Build(h, codes)
	for i := range codes {
		if math.Float64bits(a.Volts[i]) != math.Float64bits(b.Volts[i]) ||
			math.Float64bits(a.Times[i]) != math.Float64bits(b.Times[i]) {
			t.Fatalf("sample %d differs between builds", i)
		}
	}
}

func TestTimesStrictlyIncreasing(t *testing.T) {
	for _, tb := range frame.Timebases() {
		w := Build(header(t, frame.AC, 0, tb.Index), make([]uint16, frame.SampleCount))
		for i := 1; i < w.Len(); i++ {
			if !(w.Times[i] > w.Times[i-1]) {
				t.Fatalf("%s: time not increasing at %d", tb.Label, i)
			}
		}
		if want := float64(frame.SampleCount) * tb.Seconds() / frame.SamplesPerDivision; math.Abs(w.Duration()-want) > want*1e-12 {
			t.Errorf("%s: expected duration %g, got %g", tb.Label, want, w.Duration())
		}
	}
}

func TestCodeInvertsBuild(t *testing.T) {
	for _, c := range []frame.Coupling{frame.AC, frame.DC} {
		h := header(t, c, 4, 3)
		for code := 0; code <= frame.CodeMax; code += 17 {
			w := Build(h, []uint16{uint16(code)})
			if got := Code(h, w.Volts[0]); got != uint16(code) {
				t.Fatalf("%s code %d: round trip gave %d", c, code, got)
			}
		}
		if Code(h, 1e6) != frame.CodeMax || Code(h, -1e6) != 0 {
			t.Errorf("%s: out of range voltages must clamp", c)
		}
	}
}
