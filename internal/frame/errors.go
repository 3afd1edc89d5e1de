package frame

import (
	"errors"
	"fmt"
)

// ErrMalformedFrame is matched by every decode failure
var ErrMalformedFrame = errors.New("malformed frame")

// FormatError names the field that failed validation with the expected and
// actual values
type FormatError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed frame: %s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

func (e *FormatError) Is(target error) bool { return target == ErrMalformedFrame }

func formatError(field, expected string, actual interface{}) error {
	return &FormatError{Field: field, Expected: expected, Actual: fmt.Sprint(actual)}
}
