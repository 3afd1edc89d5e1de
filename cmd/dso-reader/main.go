// DSO Reader - Utility to display and re-analyze recorded DSO-138 captures
// This program reads the raw frame saved in a .dso file and runs it through
// the same decode and analysis pipeline as a live capture.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dso-capture/internal/config"
	"dso-capture/internal/frame"
	"dso-capture/internal/recorder"
	"dso-capture/internal/report"
	"dso-capture/internal/scope"
	"dso-capture/internal/version"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	showSamples bool
	showStats   bool
	showHex     bool
	showGraph   bool
	showFFT     bool
	normalize   bool
	xmax        float64
	debounce    int
	graphWidth  int
	graphHeight int
	exportFmt   string
	exportDir   string
	showVersion bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dso-reader [file.dso]",
	Short: "Display contents of DSO Capture recordings",
	Long: `DSO Reader displays the metadata and re-analyzes the raw frame stored in
a .dso recording made with dso-capture --record or dso-synth.

Display modes:
  --samples    Show every sample as code, time and voltage
  --hex        Show a hexadecimal dump of the raw frame
  --stats      Show signal statistics (default)
  --fft        Show the magnitude spectrum summary
  --graph      Generate ASCII graphs of the waveform and spectrum`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("DSO Reader"))
			return
		}

		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: filename required\n")
			cmd.Usage()
			os.Exit(1)
		}

		if err := displayFile(afero.NewOsFs(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	defaults := config.DefaultConfig()

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().BoolVarP(&showSamples, "samples", "s", false, "display all samples")
	rootCmd.Flags().BoolVar(&showStats, "stats", true, "show signal statistics")
	rootCmd.Flags().BoolVar(&showHex, "hex", false, "display the raw frame as hexadecimal dump")
	rootCmd.Flags().BoolVarP(&showGraph, "graph", "g", false, "generate ASCII graph of the waveform")
	rootCmd.Flags().IntVar(&graphWidth, "graph-width", report.DefaultGraphWidth, "width of the ASCII graph in characters")
	rootCmd.Flags().IntVar(&graphHeight, "graph-height", report.DefaultGraphHeight, "height of the ASCII graph in lines")
	rootCmd.Flags().BoolVarP(&showFFT, "fft", "f", false, "compute the magnitude spectrum")
	rootCmd.Flags().Float64Var(&xmax, "xmax", defaults.Analysis.XMax, "upper frequency bound of the spectrum (Hz)")
	rootCmd.Flags().BoolVar(&normalize, "normalize", defaults.Analysis.NormalizeSpectrum, "report single-sided amplitude instead of raw FFT magnitude")
	rootCmd.Flags().IntVar(&debounce, "debounce", defaults.Analysis.DebounceSamples, "samples a level change must persist to count as an edge")
	rootCmd.Flags().StringVarP(&exportFmt, "export", "e", "", "export the analysis (csv, json)")
	rootCmd.Flags().StringVar(&exportDir, "export-dir", defaults.Output.ExportDir, "export directory")
}

// displayFile reads and displays the contents of a recording
func displayFile(fs afero.Fs, filename string) error {
	fileInfo, err := fs.Stat(filename)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}
	if err != nil {
		return err
	}

	metadata, raw, err := recorder.ReadFile(fs, filename)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}

	fmt.Printf("DSO CAPTURE FILE READER %s\n\n", version.GetFullVersion())

	fmt.Printf("📁 File Information:\n")
	fmt.Printf("Name: %s\n", filepath.Base(filename))
	fmt.Printf("Size: %d bytes\n", fileInfo.Size())
	fmt.Printf("Modified: %s\n\n", fileInfo.ModTime().Format("2006-01-02 15:04:05"))

	displayMetadata(metadata, len(raw))

	if showHex {
		displayHex(raw)
	}

	cfg := config.DefaultConfig().Analysis
	cfg.EnableSpectrum = showFFT
	cfg.XMax = xmax
	cfg.NormalizeSpectrum = normalize
	cfg.DebounceSamples = debounce

	result, err := scope.Analyze(raw, cfg)
	if err != nil {
		return err
	}
	result.Port = metadata.Port
	result.CapturedAt = metadata.CaptureTime
	result.RecordedTo = filename

	report.PrintSettings(os.Stdout, result.Header)
	if showStats {
		report.PrintStatistics(os.Stdout, result.Header, result.Stats)
	}
	if result.SpectrumErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", result.SpectrumErr)
	} else if result.Spectrum != nil {
		report.PrintSpectrum(os.Stdout, result.Spectrum)
	}
	fmt.Println()

	if showSamples {
		displaySamples(result)
	}

	if showGraph {
		report.PlotWaveform(os.Stdout, result.Waveform, graphWidth, graphHeight)
		if result.Spectrum != nil {
			report.PlotSpectrum(os.Stdout, result.Spectrum, graphWidth, graphHeight)
		}
	}

	if exportFmt != "" {
		path, err := report.NewExporter(fs).Export(result, exportDir, exportFmt)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Exported to %s\n", path)
	}

	return nil
}

// displayMetadata shows the recording metadata
func displayMetadata(metadata *recorder.Metadata, frameLength int) {
	fmt.Printf("📊 Capture Metadata:\n")
	fmt.Printf("File Format Version: %d\n", metadata.FileFormatVersion)
	fmt.Printf("Capture Time: %s\n", metadata.CaptureTime.Format("2006-01-02 15:04:05.000 MST"))
	if metadata.Port != "" {
		fmt.Printf("Port: %s\n", metadata.Port)
	}
	if metadata.DeviceInfo != "" {
		fmt.Printf("Recorded By: %s\n", metadata.DeviceInfo)
	}
	status := "complete"
	if frameLength != frame.Length {
		status = fmt.Sprintf("expected %d", frame.Length)
	}
	fmt.Printf("Frame Length: %d bytes (%s)\n\n", frameLength, status)
}

// displaySamples lists every sample with its code and calibrated value
func displaySamples(r *scope.Result) {
	f, err := frame.Decode(r.Raw)
	if err != nil {
		return
	}

	fmt.Printf("📋 Samples (%d):\n", len(f.Samples))
	fmt.Printf("%6s %6s %14s %12s\n", "Index", "Code", "Time", "Voltage")
	w := r.Waveform
	for i, code := range f.Samples {
		fmt.Printf("%6d 0x%04x %14s %12s\n", i, code,
			report.FormatTime(w.Times[i]), report.FormatVoltage(w.Volts[i], r.Header.VoltageUnit))
	}
	fmt.Println()
}

// displayHex dumps the raw frame in 16-byte rows and decodes the header bytes
func displayHex(raw []byte) {
	fmt.Printf("🔍 Hex Dump of Raw Frame (%d bytes):\n", len(raw))
	fmt.Printf("Each sample = 2 bytes little-endian, 12 significant bits\n")
	fmt.Printf("%-9s %-48s %s\n", "Address", "00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F", "ASCII")

	for offset := 0; offset < len(raw); offset += 16 {
		end := min(offset+16, len(raw))

		var hexPart, asciiPart strings.Builder
		for i := offset; i < offset+16; i++ {
			if i < end {
				b := raw[i]
				hexPart.WriteString(fmt.Sprintf("%02x ", b))
				if b >= 32 && b <= 126 {
					asciiPart.WriteByte(b)
				} else {
					asciiPart.WriteByte('.')
				}
			} else {
				hexPart.WriteString("   ")
				asciiPart.WriteByte(' ')
			}
		}
		fmt.Printf("%08x %-48s %s\n", offset, hexPart.String(), asciiPart.String())
	}

	if len(raw) >= frame.HeaderLength {
		fmt.Printf("\nHeader Interpretation:\n")
		fmt.Printf("Settings byte: 0x%02x | coupling bits: %02b | reserved bits: %02b | range index: %d\n",
			raw[0], raw[0]>>6, (raw[0]>>4)&0x3, raw[0]&0x0F)
		fmt.Printf("Timebase byte: 0x%02x | reserved bits: %03b | timebase index: %d\n",
			raw[1], raw[1]>>5, raw[1]&0x1F)
		fmt.Printf("Sample count: %d\n", binary.LittleEndian.Uint16(raw[2:4]))
	}
	fmt.Println()
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
