package stats

import (
	"encoding/json"
	"strconv"
)

// Value is a measurement that may be undefined. The zero Value is undefined,
// so a forgotten assignment never reads as a real zero.
type Value struct {
	v  float64
	ok bool
}

// Defined returns a defined Value holding v
func Defined(v float64) Value {
	return Value{v: v, ok: true}
}

// Undefined returns the undefined Value
func Undefined() Value {
	return Value{}
}

// Float64 returns the value and whether it is defined
func (v Value) Float64() (float64, bool) {
	return v.v, v.ok
}

// Valid reports whether the value is defined
func (v Value) Valid() bool {
	return v.ok
}

// Or returns the value, or fallback when undefined
func (v Value) Or(fallback float64) float64 {
	if !v.ok {
		return fallback
	}
	return v.v
}

func (v Value) String() string {
	if !v.ok {
		return "undefined"
	}
	return strconv.FormatFloat(v.v, 'g', 6, 64)
}

// MarshalJSON encodes an undefined value as null
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts null or a number
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Defined(f)
	return nil
}
