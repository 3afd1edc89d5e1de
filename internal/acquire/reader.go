// Package acquire reads one complete oscilloscope transmission from a serial
// channel whose delivery timing is not guaranteed.
//
// A single bounded read may return fewer bytes than requested even while the
// rest of the transmission is in flight, so AwaitFrame accumulates reads
// until it holds exactly the expected byte count or the overall wait bound
// elapses.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"dso-capture/internal/link"
)

// Port is the byte channel the reader consumes. go.bug.st/serial ports
// satisfy it directly.
type Port interface {
	io.Reader
	io.Closer
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Default bounds
const (
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultMaxWait     = 60 * time.Second
)

// Options configures a Reader
type Options struct {
	ReadTimeout time.Duration // Bound on each individual read
	MaxWait     time.Duration // Bound on the whole read-until-length loop
	Observer    Observer      // Receives session state transitions, may be nil
	Debug       bool          // Log every read
}

// Reader drives one CaptureSession at a time over an exclusively owned port
type Reader struct {
	port    Port
	name    string
	opts    Options
	session Session
}

// Open opens the named serial port, configures the per-read timeout and
// flushes stale input. Every failure is a *ConnectionError.
func Open(portName string, baudRate int, opts Options) (*Reader, error) {
	port, err := link.OpenWithDebug(portName, baudRate, opts.Debug)
	if err != nil {
		return nil, &ConnectionError{Port: portName, Err: err}
	}

	r, err := newReader(port, portName, opts)
	if err != nil {
		port.Close()
		return nil, err
	}
	return r, nil
}

// NewReader wraps an already open port
func NewReader(port Port, opts Options) (*Reader, error) {
	return newReader(port, "", opts)
}

func newReader(port Port, name string, opts Options) (*Reader, error) {
	if port == nil {
		return nil, &ConnectionError{Port: name, Err: errors.New("nil port")}
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}

	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		return nil, &ConnectionError{Port: name, Err: fmt.Errorf("failed to set read timeout %v: %w", opts.ReadTimeout, err)}
	}

	// Bytes left over from an earlier transmission would shift the frame
	if err := port.ResetInputBuffer(); err != nil {
		return nil, &ConnectionError{Port: name, Err: fmt.Errorf("failed to flush input buffer: %w", err)}
	}

	return &Reader{
		port:    port,
		name:    name,
		opts:    opts,
		session: Session{State: Idle},
	}, nil
}

// AwaitFrame blocks until exactly expectedLength bytes have been read or the
// overall wait bound elapses
func (r *Reader) AwaitFrame(expectedLength int) ([]byte, error) {
	return r.AwaitFrameWithContext(context.Background(), expectedLength)
}

// AwaitFrameWithContext is AwaitFrame with an additional cancellation source.
// The overall wait bound still applies when ctx never fires.
func (r *Reader) AwaitFrameWithContext(ctx context.Context, expectedLength int) ([]byte, error) {
	if expectedLength <= 0 {
		return nil, fmt.Errorf("expected frame length must be positive, got %d", expectedLength)
	}

	start := time.Now()
	r.session = Session{State: Idle, Expected: expectedLength}
	r.transition(Waiting, start)

	buf := make([]byte, expectedLength)
	received := 0

	for received < expectedLength {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(start, fmt.Errorf("capture cancelled: %w", err))
		}

		waited := time.Since(start)
		if waited >= r.opts.MaxWait {
			return nil, r.fail(start, &TimeoutError{
				Expected: expectedLength,
				Received: received,
				Waited:   waited,
				Limit:    r.opts.MaxWait,
			})
		}

		// Never ask for more than the frame still needs
		n, err := r.port.Read(buf[received:])
		if n > 0 {
			received += n
			r.session.Received = received
			if r.session.State == Waiting {
				r.transition(Receiving, start)
			}
			if r.opts.Debug {
				log.Printf("DSO: read %d bytes (%d/%d)", n, received, expectedLength)
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, r.fail(start, &ConnectionError{Port: r.name, Err: fmt.Errorf("read failed after %d bytes: %w", received, err)})
			}
			// An exhausted stream behaves like a read that timed out
			if n == 0 {
				time.Sleep(r.opts.ReadTimeout)
			}
		}
	}

	r.transition(Complete, start)
	return buf, nil
}

// Session returns a copy of the current session state
func (r *Reader) Session() Session {
	return r.session
}

// Close releases the port
func (r *Reader) Close() error {
	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	return err
}

func (r *Reader) fail(start time.Time, cause error) error {
	r.session.Err = cause
	r.transition(Failed, start)
	return cause
}

func (r *Reader) transition(state State, start time.Time) {
	r.session.State = state
	r.session.Elapsed = time.Since(start)
	if r.opts.Debug {
		log.Printf("DSO: session %s after %v (%d/%d bytes)",
			state, r.session.Elapsed.Round(time.Millisecond), r.session.Received, r.session.Expected)
	}
	if r.opts.Observer != nil {
		r.opts.Observer(r.session)
	}
}
