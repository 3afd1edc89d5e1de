// Package scope runs the capture pipeline: read one transmission, decode it,
// build the waveform and derive statistics and the optional spectrum
package scope

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"dso-capture/internal/acquire"
	"dso-capture/internal/config"
	"dso-capture/internal/frame"
	"dso-capture/internal/recorder"
	"dso-capture/internal/spectrum"
	"dso-capture/internal/stats"
	"dso-capture/internal/version"
	"dso-capture/internal/waveform"
)

// Opener opens the serial channel for one capture
type Opener func(portName string, baudRate int, opts acquire.Options) (*acquire.Reader, error)

// Result is everything one capture produced. SpectrumErr is set when the
// spectrum was requested but could not be computed; the rest of the result
// is still valid.
type Result struct {
	Port        string             `json:"port,omitempty"`
	CapturedAt  time.Time          `json:"captured_at"`
	Header      frame.Header       `json:"header"`
	Waveform    *waveform.Waveform `json:"waveform"`
	Stats       stats.Statistics   `json:"stats"`
	Spectrum    *spectrum.Spectrum `json:"spectrum,omitempty"`
	SpectrumErr error              `json:"-"`
	RecordedTo  string             `json:"recorded_to,omitempty"`
	Raw         []byte             `json:"-"`
}

type Scope struct {
	config   *config.Config
	reader   *acquire.Reader
	opener   Opener
	observer acquire.Observer
	fs       afero.Fs
	writer   *recorder.Writer
}

func NewScope(cfg *config.Config) *Scope {
	return &Scope{
		config: cfg,
		opener: acquire.Open,
		fs:     afero.NewOsFs(),
	}
}

// SetOpener replaces the serial port opener
func (s *Scope) SetOpener(opener Opener) {
	s.opener = opener
}

// SetObserver receives capture session transitions
func (s *Scope) SetObserver(observer acquire.Observer) {
	s.observer = observer
}

// SetFs sets the filesystem recordings are written to
func (s *Scope) SetFs(fs afero.Fs) {
	s.fs = fs
}

func (s *Scope) Initialize() error {
	if s.reader != nil {
		return fmt.Errorf("scope already initialized")
	}

	opts := acquire.Options{
		ReadTimeout: s.config.Serial.ReadTimeout,
		MaxWait:     s.config.Capture.MaxWait,
		Observer:    s.observer,
		Debug:       s.config.Debug(),
	}

	reader, err := s.opener(s.config.Serial.Port, s.config.Serial.BaudRate, opts)
	if err != nil {
		return fmt.Errorf("failed to open oscilloscope on %s: %w", s.config.Serial.Port, err)
	}
	s.reader = reader

	if s.config.Capture.RecordDir != "" {
		if err := s.fs.MkdirAll(s.config.Capture.RecordDir, 0755); err != nil {
			return multierr.Append(fmt.Errorf("failed to create record directory: %w", err), s.Close())
		}
		s.writer = recorder.NewWriter(s.fs)
	}

	return nil
}

func (s *Scope) Capture() (*Result, error) {
	return s.CaptureWithContext(context.Background())
}

// CaptureWithContext waits for one transmission and analyzes it. With
// recording enabled the raw bytes are saved before decoding, so frames that
// fail to decode can still be inspected.
func (s *Scope) CaptureWithContext(ctx context.Context) (*Result, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("scope not initialized")
	}

	raw, err := s.reader.AwaitFrameWithContext(ctx, frame.Length)
	if err != nil {
		return nil, err
	}
	capturedAt := time.Now()

	var recordedTo string
	if s.writer != nil {
		recordedTo = filepath.Join(s.config.Capture.RecordDir, recorder.FileName("dso", capturedAt))
		metadata := recorder.Metadata{
			CaptureTime: capturedAt,
			Port:        s.config.Serial.Port,
			DeviceInfo:  version.UserAgent("dso-capture"),
		}
		if err := s.writer.WriteFile(recordedTo, metadata, raw); err != nil {
			return nil, fmt.Errorf("failed to record capture: %w", err)
		}
		if s.config.Debug() {
			log.Printf("DSO: recorded %d bytes to %s", len(raw), recordedTo)
		}
	}

	result, err := Analyze(raw, s.config.Analysis)
	if err != nil {
		if recordedTo != "" {
			return nil, fmt.Errorf("%w (raw frame saved to %s)", err, recordedTo)
		}
		return nil, err
	}

	result.Port = s.config.Serial.Port
	result.CapturedAt = capturedAt
	result.RecordedTo = recordedTo
	return result, nil
}

// Analyze runs decode, waveform, statistics and, when enabled, spectrum over
// one raw transmission. A decode failure yields no partial result.
func Analyze(raw []byte, cfg config.AnalysisConfig) (*Result, error) {
	f, err := frame.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	w := waveform.FromFrame(f)
	result := &Result{
		Header:   f.Header,
		Waveform: w,
		Stats:    stats.ComputeWithOptions(w, stats.Options{DebounceSamples: cfg.DebounceSamples}),
		Raw:      raw,
	}

	if cfg.EnableSpectrum {
		sp, err := spectrum.AnalyzeWithOptions(w, cfg.XMax, spectrum.Options{Normalize: cfg.NormalizeSpectrum})
		if err != nil {
			result.SpectrumErr = fmt.Errorf("spectral analysis failed: %w", err)
		} else {
			result.Spectrum = sp
		}
	}

	return result, nil
}

// Run performs Capture.Repeat captures, 0 meaning until ctx is cancelled,
// re-opening the port for each one. handle receives every result; the first
// error from a capture or from handle ends the run.
func (s *Scope) Run(ctx context.Context, handle func(n int, r *Result) error) error {
	for n := 1; s.config.Capture.Repeat == 0 || n <= s.config.Capture.Repeat; n++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("capture cancelled: %w", err)
		}

		result, err := s.captureOnce(ctx)
		if err != nil {
			return err
		}
		if err := handle(n, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scope) captureOnce(ctx context.Context) (result *Result, err error) {
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.Close))

	return s.CaptureWithContext(ctx)
}

// Close releases the serial port. It is safe to call more than once.
func (s *Scope) Close() error {
	var err error
	if s.reader != nil {
		err = multierr.Append(err, s.reader.Close())
		s.reader = nil
	}
	s.writer = nil
	if err != nil {
		return fmt.Errorf("cleanup errors: %w", err)
	}
	return nil
}
