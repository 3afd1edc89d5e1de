package acquire

import (
	"fmt"
	"time"
)

// State is the lifecycle position of a capture session
type State int

const (
	Idle      State = iota // No capture requested yet
	Waiting                // Capture requested, no byte received
	Receiving              // At least one byte received
	Complete               // Exactly the expected byte count received
	Failed                 // Timed out, cancelled or lost the port
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Waiting:
		return "WAITING"
	case Receiving:
		return "RECEIVING"
	case Complete:
		return "COMPLETE"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is a snapshot of one acquisition attempt
type Session struct {
	State    State
	Elapsed  time.Duration // Time since the capture was requested
	Expected int           // Bytes required for a complete frame
	Received int           // Bytes accumulated so far
	Err      error         // Cause, set only in Failed
}

// Observer is called on every state transition
type Observer func(Session)
