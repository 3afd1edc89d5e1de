package frame

import (
	"fmt"
	"strings"
)

// Coupling is the input coupling selected on the instrument
type Coupling uint8

const (
	AC Coupling = 0
	DC Coupling = 1
)

func (c Coupling) String() string {
	switch c {
	case AC:
		return "AC"
	case DC:
		return "DC"
	}
	return fmt.Sprintf("Coupling(%d)", uint8(c))
}

// MarshalText encodes the coupling as "AC" or "DC"
func (c Coupling) MarshalText() ([]byte, error) {
	if c != AC && c != DC {
		return nil, fmt.Errorf("unknown coupling %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (c *Coupling) UnmarshalText(text []byte) error {
	parsed, err := ParseCoupling(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCoupling accepts "AC" or "DC" in any case
func ParseCoupling(s string) (Coupling, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AC":
		return AC, nil
	case "DC":
		return DC, nil
	}
	return 0, fmt.Errorf("unknown coupling %q (expected AC or DC)", s)
}

// VerticalRange is one entry of the volts-per-division table
type VerticalRange struct {
	Index       int     `json:"index"`
	VoltsPerDiv float64 `json:"volts_per_div"` // Volts per vertical division
	Label       string  `json:"label"`         // Front panel label, e.g. "0.5V"
	DCBias      float64 `json:"dc_bias"`       // Volts the DC-coupled input path adds at this range
}

// Unit is the voltage unit the instrument uses to print this range
func (r VerticalRange) Unit() string {
	if r.VoltsPerDiv < 0.1 {
		return "mV"
	}
	return "V"
}

// Timebase is one entry of the time-per-division table
type Timebase struct {
	Index  int     `json:"index"`
	PerDiv float64 `json:"per_div"` // Time per division in Unit
	Unit   string  `json:"unit"`    // "uS", "mS" or "S" as the instrument prints it
	Label  string  `json:"label"`   // Front panel label, e.g. "500us"
}

// Seconds returns the time per division in seconds
func (t Timebase) Seconds() float64 {
	switch t.Unit {
	case "uS":
		return t.PerDiv * 1e-6
	case "mS":
		return t.PerDiv * 1e-3
	}
	return t.PerDiv
}

// The DC bias is the zero offset the DSO-138 front end shows with the input
// grounded in DC coupling, roughly 0.12 div at every range.
var verticalRanges = []VerticalRange{
	{Index: 0, VoltsPerDiv: 0.01, Label: "10mV", DCBias: 0.0012},
	{Index: 1, VoltsPerDiv: 0.02, Label: "20mV", DCBias: 0.0024},
	{Index: 2, VoltsPerDiv: 0.05, Label: "50mV", DCBias: 0.006},
	{Index: 3, VoltsPerDiv: 0.1, Label: "0.1V", DCBias: 0.012},
	{Index: 4, VoltsPerDiv: 0.2, Label: "0.2V", DCBias: 0.024},
	{Index: 5, VoltsPerDiv: 0.5, Label: "0.5V", DCBias: 0.06},
	{Index: 6, VoltsPerDiv: 1, Label: "1V", DCBias: 0.12},
	{Index: 7, VoltsPerDiv: 2, Label: "2V", DCBias: 0.24},
	{Index: 8, VoltsPerDiv: 5, Label: "5V", DCBias: 0.6},
}

var timebases = []Timebase{
	{Index: 0, PerDiv: 10, Unit: "uS", Label: "10us"},
	{Index: 1, PerDiv: 20, Unit: "uS", Label: "20us"},
	{Index: 2, PerDiv: 50, Unit: "uS", Label: "50us"},
	{Index: 3, PerDiv: 100, Unit: "uS", Label: "100us"},
	{Index: 4, PerDiv: 200, Unit: "uS", Label: "200us"},
	{Index: 5, PerDiv: 500, Unit: "uS", Label: "500us"},
	{Index: 6, PerDiv: 1, Unit: "mS", Label: "1ms"},
	{Index: 7, PerDiv: 2, Unit: "mS", Label: "2ms"},
	{Index: 8, PerDiv: 5, Unit: "mS", Label: "5ms"},
	{Index: 9, PerDiv: 10, Unit: "mS", Label: "10ms"},
	{Index: 10, PerDiv: 20, Unit: "mS", Label: "20ms"},
	{Index: 11, PerDiv: 50, Unit: "mS", Label: "50ms"},
	{Index: 12, PerDiv: 100, Unit: "mS", Label: "100ms"},
	{Index: 13, PerDiv: 200, Unit: "mS", Label: "200ms"},
	{Index: 14, PerDiv: 500, Unit: "mS", Label: "500ms"},
	{Index: 15, PerDiv: 1, Unit: "S", Label: "1s"},
	{Index: 16, PerDiv: 2, Unit: "S", Label: "2s"},
	{Index: 17, PerDiv: 5, Unit: "S", Label: "5s"},
	{Index: 18, PerDiv: 10, Unit: "S", Label: "10s"},
}

// VerticalRanges returns a copy of the volts-per-division table
func VerticalRanges() []VerticalRange {
	return append([]VerticalRange(nil), verticalRanges...)
}

// Timebases returns a copy of the time-per-division table
func Timebases() []Timebase {
	return append([]Timebase(nil), timebases...)
}

// LookupVertical returns the range at index i
func LookupVertical(i int) (VerticalRange, bool) {
	if i < 0 || i >= len(verticalRanges) {
		return VerticalRange{}, false
	}
	return verticalRanges[i], true
}

// LookupTimebase returns the timebase at index i
func LookupTimebase(i int) (Timebase, bool) {
	if i < 0 || i >= len(timebases) {
		return Timebase{}, false
	}
	return timebases[i], true
}

// ParseVertical finds a range by its label ("50mV", "0.5v", ...)
func ParseVertical(label string) (VerticalRange, error) {
	for _, r := range verticalRanges {
		if strings.EqualFold(r.Label, strings.TrimSpace(label)) {
			return r, nil
		}
	}
	return VerticalRange{}, fmt.Errorf("unknown vertical range %q", label)
}

// ParseTimebase finds a timebase by its label ("500us", "1ms", ...)
func ParseTimebase(label string) (Timebase, error) {
	for _, t := range timebases {
		if strings.EqualFold(t.Label, strings.TrimSpace(label)) {
			return t, nil
		}
	}
	return Timebase{}, fmt.Errorf("unknown timebase %q", label)
}
