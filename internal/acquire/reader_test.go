package acquire

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// fakePort delivers a scripted sequence of chunks, then behaves like a port
// whose reads keep timing out
type fakePort struct {
	mu          sync.Mutex
	chunks      [][]byte
	readTimeout time.Duration
	readErr     error
	timeoutErr  error
	resets      int
	closed      bool
	reads       int
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++

	if len(p.chunks) == 0 {
		if p.readErr != nil {
			return 0, p.readErr
		}
		p.mu.Unlock()
		time.Sleep(p.readTimeout)
		p.mu.Lock()
		return 0, nil
	}

	chunk := p.chunks[0]
	n := copy(b, chunk)
	if n < len(chunk) {
		p.chunks[0] = chunk[n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	if p.timeoutErr != nil {
		return p.timeoutErr
	}
	p.readTimeout = t
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	return nil
}

func (p *fakePort) remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, c := range p.chunks {
		total += len(c)
	}
	return total
}

// split cuts data into n non-empty chunks at random boundaries
func split(rng *rand.Rand, data []byte, n int) [][]byte {
	if n >= len(data) {
		chunks := make([][]byte, len(data))
		for i := range data {
			chunks[i] = data[i : i+1]
		}
		return chunks
	}
	cuts := rng.Perm(len(data) - 1)[:n-1]
	marks := make([]bool, len(data))
	for _, c := range cuts {
		marks[c+1] = true
	}
	var chunks [][]byte
	start := 0
	for i := 1; i < len(data); i++ {
		if marks[i] {
			chunks = append(chunks, data[start:i])
			start = i
		}
	}
	return append(chunks, data[start:])
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return data
}

func TestAwaitFrameReassemblesEveryChunking(t *testing.T) {
	const length = 64
	data := payload(length)
	rng := rand.New(rand.NewSource(1))

	for n := 1; n <= length; n++ {
		port := &fakePort{chunks: split(rng, data, n)}
		r, err := NewReader(port, Options{ReadTimeout: time.Millisecond, MaxWait: time.Second})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}

		got, err := r.AwaitFrame(length)
		if err != nil {
			t.Fatalf("%d chunks: unexpected error: %v", n, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("%d chunks: frame mismatch", n)
		}
		if r.Session().State != Complete {
			t.Errorf("%d chunks: expected COMPLETE, got %s", n, r.Session().State)
		}
	}
}

func TestAwaitFrameFullSizeTransmission(t *testing.T) {
	const length = 4100
	data := payload(length)
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{1, 2, 3, 17, 256, 1000, length} {
		port := &fakePort{chunks: split(rng, data, n)}
		r, err := NewReader(port, Options{ReadTimeout: time.Millisecond, MaxWait: 5 * time.Second})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		got, err := r.AwaitFrame(length)
		if err != nil {
			t.Fatalf("%d chunks: unexpected error: %v", n, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("%d chunks: frame mismatch", n)
		}
	}
}

func TestAwaitFrameLeavesSurplusBytes(t *testing.T) {
	data := payload(40)
	port := &fakePort{chunks: [][]byte{data}}
	r, err := NewReader(port, Options{ReadTimeout: time.Millisecond, MaxWait: time.Second})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	got, err := r.AwaitFrame(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, data[:32]) {
		t.Fatal("frame mismatch")
	}
	if port.remaining() != 8 {
		t.Errorf("expected 8 surplus bytes left unread, got %d", port.remaining())
	}
}

func TestAwaitFrameTimesOutWithoutData(t *testing.T) {
	port := &fakePort{}
	var states []State
	r, err := NewReader(port, Options{
		ReadTimeout: 10 * time.Millisecond,
		MaxWait:     150 * time.Millisecond,
		Observer:    func(s Session) { states = append(states, s.State) },
	})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	start := time.Now()
	_, err = r.AwaitFrame(100)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrAcquisitionTimeout) {
		t.Fatalf("expected ErrAcquisitionTimeout, got %v", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
	if te.Expected != 100 || te.Received != 0 {
		t.Errorf("unexpected counts in %+v", te)
	}
	if elapsed > 150*time.Millisecond+10*time.Millisecond+250*time.Millisecond {
		t.Errorf("timeout took too long: %v", elapsed)
	}
	if len(states) != 2 || states[0] != Waiting || states[1] != Failed {
		t.Errorf("unexpected transitions %v", states)
	}
	if r.Session().Err == nil {
		t.Error("failed session should carry its cause")
	}
}

func TestAwaitFrameTimesOutOnPartialTransmission(t *testing.T) {
	port := &fakePort{chunks: [][]byte{payload(10), payload(5)}}
	var states []State
	r, err := NewReader(port, Options{
		ReadTimeout: 5 * time.Millisecond,
		MaxWait:     100 * time.Millisecond,
		Observer:    func(s Session) { states = append(states, s.State) },
	})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	_, err = r.AwaitFrame(4100)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if te.Received != 15 {
		t.Errorf("expected 15 received bytes, got %d", te.Received)
	}
	want := []State{Waiting, Receiving, Failed}
	if len(states) != len(want) {
		t.Fatalf("unexpected transitions %v", states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], states[i])
		}
	}
}

func TestAwaitFrameReportsTransitions(t *testing.T) {
	port := &fakePort{chunks: [][]byte{payload(3), payload(5)}}
	var sessions []Session
	r, err := NewReader(port, Options{
		ReadTimeout: time.Millisecond,
		MaxWait:     time.Second,
		Observer:    func(s Session) { sessions = append(sessions, s) },
	})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if port.resets != 1 {
		t.Errorf("expected input buffer flush on open, got %d", port.resets)
	}

	if _, err := r.AwaitFrame(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sessions) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(sessions))
	}
	if sessions[0].State != Waiting || sessions[1].State != Receiving || sessions[2].State != Complete {
		t.Errorf("unexpected transitions %v %v %v", sessions[0].State, sessions[1].State, sessions[2].State)
	}
	if sessions[1].Received != 3 || sessions[2].Received != 8 {
		t.Errorf("unexpected received counts %d, %d", sessions[1].Received, sessions[2].Received)
	}
}

func TestAwaitFrameReadErrorIsConnectionError(t *testing.T) {
	port := &fakePort{chunks: [][]byte{payload(4)}, readErr: errors.New("device unplugged")}
	r, err := NewReader(port, Options{ReadTimeout: time.Millisecond, MaxWait: time.Second})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	_, err = r.AwaitFrame(16)
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if r.Session().State != Failed {
		t.Errorf("expected FAILED, got %s", r.Session().State)
	}
}

func TestAwaitFrameHonoursContext(t *testing.T) {
	port := &fakePort{}
	r, err := NewReader(port, Options{ReadTimeout: 5 * time.Millisecond, MaxWait: time.Minute})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = r.AwaitFrameWithContext(ctx, 16)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
	if errors.Is(err, ErrAcquisitionTimeout) {
		t.Error("cancellation must not be reported as an acquisition timeout")
	}
}

func TestNewReaderRejectsUnconfigurablePort(t *testing.T) {
	port := &fakePort{timeoutErr: errors.New("unsupported")}
	_, err := NewReader(port, Options{})
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestNewReaderAppliesDefaults(t *testing.T) {
	port := &fakePort{}
	r, err := NewReader(port, Options{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if port.readTimeout != DefaultReadTimeout {
		t.Errorf("expected default read timeout, got %v", port.readTimeout)
	}
	if r.opts.MaxWait != DefaultMaxWait {
		t.Errorf("expected default max wait, got %v", r.opts.MaxWait)
	}
	if err := r.Close(); err != nil || !port.closed {
		t.Errorf("close failed: %v", err)
	}
}

func TestAwaitFrameRejectsNonPositiveLength(t *testing.T) {
	r, err := NewReader(&fakePort{}, Options{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.AwaitFrame(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
