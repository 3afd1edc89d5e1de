// DSO Synth - generates DSO-138 captures of analytic signals
// The frame is written to a .dso recording or transmitted over a serial port,
// so dso-capture can be exercised without the instrument (for example over a
// socat pty pair).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dso-capture/internal/frame"
	"dso-capture/internal/link"
	"dso-capture/internal/recorder"
	"dso-capture/internal/synth"
	"dso-capture/internal/version"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	shape       string
	frequency   float64
	amplitude   float64
	offset      float64
	duty        float64
	phase       float64
	noise       float64
	seed        int64
	coupling    string
	vertical    string
	timebase    string
	output      string
	port        string
	baudRate    int
	delay       time.Duration
	verbose     bool
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "dso-synth",
	Short: "Generate DSO-138 captures of synthetic signals",
	Long: `DSO Synth builds a capture frame of a sine, square or DC signal at the
chosen vertical range and timebase, exactly as the oscilloscope would send it.

Without --port the frame is saved as a .dso recording in --output.
With --port the frame is transmitted over the serial link after --delay.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("DSO Synth"))
			return
		}
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&shape, "shape", "sine", "signal shape (sine, square, dc)")
	rootCmd.Flags().Float64Var(&frequency, "freq", 1000, "signal frequency (Hz)")
	rootCmd.Flags().Float64Var(&amplitude, "amplitude", 1, "peak amplitude (V)")
	rootCmd.Flags().Float64Var(&offset, "offset", 0, "DC offset (V)")
	rootCmd.Flags().Float64Var(&duty, "duty", 50, "square wave duty cycle (%)")
	rootCmd.Flags().Float64Var(&phase, "phase", 0, "phase (radians)")
	rootCmd.Flags().Float64Var(&noise, "noise", 0, "gaussian noise standard deviation (V)")
	rootCmd.Flags().Int64Var(&seed, "seed", 1, "noise seed")
	rootCmd.Flags().StringVar(&coupling, "coupling", "AC", "input coupling (AC, DC)")
	rootCmd.Flags().StringVar(&vertical, "range", "1V", "vertical range label (10mV ... 5V)")
	rootCmd.Flags().StringVar(&timebase, "timebase", "1ms", "timebase label (10us ... 10s)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "./data", "output directory for the recording")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "transmit the frame on this serial port instead of recording it")
	rootCmd.Flags().IntVarP(&baudRate, "baud", "b", link.DefaultBaudRate, "serial baud rate")
	rootCmd.Flags().DurationVar(&delay, "delay", 0, "wait before transmitting")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
}

func buildFrame() ([]byte, frame.Header, error) {
	c, err := frame.ParseCoupling(coupling)
	if err != nil {
		return nil, frame.Header{}, err
	}
	vr, err := frame.ParseVertical(vertical)
	if err != nil {
		return nil, frame.Header{}, err
	}
	tb, err := frame.ParseTimebase(timebase)
	if err != nil {
		return nil, frame.Header{}, err
	}
	h, err := frame.NewHeader(c, vr.Index, tb.Index)
	if err != nil {
		return nil, frame.Header{}, err
	}

	sh, err := synth.ParseShape(shape)
	if err != nil {
		return nil, frame.Header{}, err
	}
	raw, err := synth.Frame(h, synth.Signal{
		Shape:     sh,
		Frequency: frequency,
		Amplitude: amplitude,
		Offset:    offset,
		Duty:      duty,
		Phase:     phase,
		Noise:     noise,
		Seed:      seed,
	})
	if err != nil {
		return nil, frame.Header{}, err
	}
	return raw, h, nil
}

func run() error {
	raw, h, err := buildFrame()
	if err != nil {
		return fmt.Errorf("failed to build frame: %w", err)
	}
	fmt.Println(h.Settings())

	if port != "" {
		return transmit(raw)
	}
	return record(raw)
}

func record(raw []byte) error {
	now := time.Now()
	filename := filepath.Join(output, recorder.FileName("synth", now))
	metadata := recorder.Metadata{
		CaptureTime: now,
		DeviceInfo:  version.UserAgent("dso-synth"),
	}
	if err := recorder.NewWriter(afero.NewOsFs()).WriteFile(filename, metadata, raw); err != nil {
		return err
	}
	fmt.Printf("Frame saved to %s\n", filename)
	return nil
}

func transmit(raw []byte) (err error) {
	p, err := link.OpenWithDebug(port, baudRate, verbose)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(p))

	if delay > 0 {
		fmt.Printf("Transmitting in %v...\n", delay)
		time.Sleep(delay)
	}

	n, err := p.Write(raw)
	if err != nil {
		return fmt.Errorf("failed to write frame to %s (%s): %w", port, link.Describe(err), err)
	}
	if n != len(raw) {
		return fmt.Errorf("short write to %s: %d of %d bytes", port, n, len(raw))
	}
	if err := p.Drain(); err != nil {
		return fmt.Errorf("failed to drain %s: %w", port, err)
	}
	fmt.Printf("Sent %d bytes to %s\n", n, port)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
