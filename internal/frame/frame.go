// Package frame decodes the fixed-structure binary transmission the
// oscilloscope sends for one channel-1 capture.
//
// Layout (little-endian):
//
//	offset 0  settings byte   bits 7-6 coupling (00 AC, 01 DC)
//	                          bits 5-4 reserved, must be zero
//	                          bits 3-0 vertical range index
//	offset 1  timebase byte   bits 4-0 timebase index, bits 7-5 reserved
//	offset 2  uint16          declared sample count, always 2048
//	offset 4  2048 x uint16   ADC codes, 12 significant bits
package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Protocol constants
const (
	SampleCount        = 2048
	HeaderLength       = 4
	Length             = HeaderLength + 2*SampleCount
	CodeMax            = 0x0FFF
	CodeMidpoint       = 2048
	CodesPerDivision   = 512
	SamplesPerDivision = 25
)

const (
	couplingMask  = 0xC0
	couplingShift = 6
	reservedMask  = 0x30
	rangeMask     = 0x0F
	timebaseMask  = 0x1F
)

// Header is the decoded scale metadata of one capture
type Header struct {
	Coupling    Coupling      `json:"coupling"`
	Vertical    VerticalRange `json:"vertical"`
	Timebase    Timebase      `json:"timebase"`
	VoltageUnit string        `json:"voltage_unit"`
	TimeUnit    string        `json:"time_unit"`
	SampleCount int           `json:"sample_count"`
}

// NewHeader builds a header from table indices
func NewHeader(coupling Coupling, rangeIndex, timebaseIndex int) (Header, error) {
	if coupling != AC && coupling != DC {
		return Header{}, fmt.Errorf("unknown coupling %d", coupling)
	}
	vr, ok := LookupVertical(rangeIndex)
	if !ok {
		return Header{}, fmt.Errorf("vertical range index %d out of range 0-%d", rangeIndex, len(verticalRanges)-1)
	}
	tb, ok := LookupTimebase(timebaseIndex)
	if !ok {
		return Header{}, fmt.Errorf("timebase index %d out of range 0-%d", timebaseIndex, len(timebases)-1)
	}
	return Header{
		Coupling:    coupling,
		Vertical:    vr,
		Timebase:    tb,
		VoltageUnit: vr.Unit(),
		TimeUnit:    tb.Unit,
		SampleCount: SampleCount,
	}, nil
}

// SampleInterval returns the time between two samples in seconds
func (h Header) SampleInterval() float64 {
	return h.Timebase.Seconds() / SamplesPerDivision
}

// VoltsPerCode returns the voltage step of one ADC code
func (h Header) VoltsPerCode() float64 {
	return h.Vertical.VoltsPerDiv / CodesPerDivision
}

// Settings returns the settings line the way the instrument prints it
func (h Header) Settings() string {
	return fmt.Sprintf("Coupling: %s, Resolution: %s/div, Timebase: %s/div, Units: %s, %s",
		h.Coupling, h.Vertical.Label, h.Timebase.Label, h.VoltageUnit, h.TimeUnit)
}

// Frame is a decoded header and its raw sample codes
type Frame struct {
	Header  Header
	Samples []uint16
}

type wireHeader struct {
	Settings uint8
	Timebase uint8
	Count    uint16
}

// Decode validates raw and splits it into header and samples. It never
// returns a partial result: any failure is a *FormatError matching
// ErrMalformedFrame.
func Decode(raw []byte) (*Frame, error) {
	if len(raw) != Length {
		return nil, formatError("length", fmt.Sprintf("%d bytes", Length), fmt.Sprintf("%d bytes", len(raw)))
	}

	r := bytes.NewReader(raw)
	var wh wireHeader
	if err := binary.Read(r, binary.LittleEndian, &wh); err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrMalformedFrame, err)
	}

	header, err := decodeHeader(wh)
	if err != nil {
		return nil, err
	}

	samples := make([]uint16, SampleCount)
	if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("%w: failed to read samples: %v", ErrMalformedFrame, err)
	}
	for i, c := range samples {
		if c > CodeMax {
			return nil, formatError(fmt.Sprintf("sample %d", i), fmt.Sprintf("code <= 0x%03X", CodeMax), fmt.Sprintf("0x%04X", c))
		}
	}

	return &Frame{Header: header, Samples: samples}, nil
}

func decodeHeader(wh wireHeader) (Header, error) {
	if wh.Settings&reservedMask != 0 {
		return Header{}, formatError("settings reserved bits", "0", fmt.Sprintf("0x%02X", wh.Settings))
	}

	coupling := Coupling((wh.Settings & couplingMask) >> couplingShift)
	if coupling != AC && coupling != DC {
		return Header{}, formatError("coupling", "AC (00) or DC (01)", fmt.Sprintf("%02b", uint8(coupling)))
	}

	rangeIndex := int(wh.Settings & rangeMask)
	if _, ok := LookupVertical(rangeIndex); !ok {
		return Header{}, formatError("vertical range index", fmt.Sprintf("0-%d", len(verticalRanges)-1), rangeIndex)
	}

	if wh.Timebase&^timebaseMask != 0 {
		return Header{}, formatError("timebase reserved bits", "0", fmt.Sprintf("0x%02X", wh.Timebase))
	}
	timebaseIndex := int(wh.Timebase & timebaseMask)
	if _, ok := LookupTimebase(timebaseIndex); !ok {
		return Header{}, formatError("timebase index", fmt.Sprintf("0-%d", len(timebases)-1), timebaseIndex)
	}

	if wh.Count != SampleCount {
		return Header{}, formatError("sample count", fmt.Sprint(SampleCount), wh.Count)
	}

	return NewHeader(coupling, rangeIndex, timebaseIndex)
}

// Encode is the inverse of Decode
func Encode(h Header, samples []uint16) ([]byte, error) {
	if len(samples) != SampleCount {
		return nil, fmt.Errorf("expected %d samples, got %d", SampleCount, len(samples))
	}
	if h.Coupling != AC && h.Coupling != DC {
		return nil, fmt.Errorf("unknown coupling %d", h.Coupling)
	}
	if _, ok := LookupVertical(h.Vertical.Index); !ok {
		return nil, fmt.Errorf("vertical range index %d out of range", h.Vertical.Index)
	}
	if _, ok := LookupTimebase(h.Timebase.Index); !ok {
		return nil, fmt.Errorf("timebase index %d out of range", h.Timebase.Index)
	}
	for i, c := range samples {
		if c > CodeMax {
			return nil, fmt.Errorf("sample %d: code 0x%04X exceeds 12 bits", i, c)
		}
	}

	var buf bytes.Buffer
	buf.Grow(Length)
	wh := wireHeader{
		Settings: uint8(h.Coupling)<<couplingShift | uint8(h.Vertical.Index),
		Timebase: uint8(h.Timebase.Index),
		Count:    SampleCount,
	}
	if err := binary.Write(&buf, binary.LittleEndian, wh); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write samples: %w", err)
	}
	return buf.Bytes(), nil
}
