package acquire

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConnection is matched by every failure to open or keep the serial channel
	ErrConnection = errors.New("connection error")

	// ErrAcquisitionTimeout is matched when the device did not complete a
	// transmission within the overall wait bound
	ErrAcquisitionTimeout = errors.New("acquisition timeout")
)

// ConnectionError reports a port that could not be opened or stopped working
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("connection error: %v", e.Err)
	}
	return fmt.Sprintf("connection error on %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// TimeoutError reports an incomplete transmission. Received == 0 usually
// means the scope never triggered; a partial count points at cabling or a
// baud rate mismatch.
type TimeoutError struct {
	Expected int
	Received int
	Waited   time.Duration
	Limit    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("acquisition timeout after %v (limit %v): received %d of %d bytes",
		e.Waited.Round(time.Millisecond), e.Limit, e.Received, e.Expected)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrAcquisitionTimeout }
