package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"dso-capture/internal/scope"
	"dso-capture/internal/stats"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Exporter writes capture results to a filesystem
type Exporter struct {
	fs afero.Fs
}

// NewExporter returns an exporter on fs, the OS filesystem if nil
func NewExporter(fs afero.Fs) *Exporter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Exporter{fs: fs}
}

// ExportFileName names the export of a capture taken at r.CapturedAt
func ExportFileName(r *scope.Result, format string) string {
	return fmt.Sprintf("dso_%s.%s", r.CapturedAt.UTC().Format("20060102_150405.000"), format)
}

// Export writes r to dir in format and returns the file path
func (e *Exporter) Export(r *scope.Result, dir, format string) (string, error) {
	format = strings.ToLower(format)
	if format != FormatCSV && format != FormatJSON {
		return "", fmt.Errorf("unsupported export format %q (expected csv or json)", format)
	}
	if err := e.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := filepath.Join(dir, ExportFileName(r, format))
	if err := e.writeFile(filename, r, format); err != nil {
		return "", err
	}
	return filename, nil
}

func (e *Exporter) writeFile(filename string, r *scope.Result, format string) (err error) {
	file, err := e.fs.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", strings.ToUpper(format), err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(file))

	if format == FormatJSON {
		return WriteJSON(file, r)
	}
	return WriteCSV(file, r)
}

// WriteJSON encodes r as indented JSON
func WriteJSON(w io.Writer, r *scope.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteCSV writes r as commented sections: capture settings, statistics,
// the waveform samples and, when present, the spectrum bins
func WriteCSV(w io.Writer, r *scope.Result) error {
	writer := csv.NewWriter(w)

	h := r.Header
	writer.Write([]string{"# DSO-138 Capture"})
	writer.Write([]string{"# Captured", r.CapturedAt.Format("2006-01-02 15:04:05.000")})
	if r.Port != "" {
		writer.Write([]string{"# Port", r.Port})
	}
	writer.Write([]string{"# Coupling", h.Coupling.String()})
	writer.Write([]string{"# Resolution", h.Vertical.Label + "/div"})
	writer.Write([]string{"# Timebase", h.Timebase.Label + "/div"})
	writer.Write([]string{"# Sample Interval s", formatFloat(h.SampleInterval())})
	writer.Write([]string{""})

	s := r.Stats
	writer.Write([]string{"# Statistics"})
	writer.Write([]string{"Name", "Value", "Unit"})
	writer.Write([]string{"Vmax", formatFloat(s.Vmax), "V"})
	writer.Write([]string{"Vmin", formatFloat(s.Vmin), "V"})
	writer.Write([]string{"Vavr", formatFloat(s.Vavr), "V"})
	writer.Write([]string{"Vpp", formatFloat(s.Vpp), "V"})
	writer.Write([]string{"Vrms", formatFloat(s.Vrms), "V"})
	writer.Write([]string{"Freq", formatStat(s.Freq), "Hz"})
	writer.Write([]string{"Cycle", formatStat(s.Cycle), "s"})
	writer.Write([]string{"PW", formatStat(s.PW), "s"})
	writer.Write([]string{"Duty", formatStat(s.Duty), "%"})
	writer.Write([]string{""})

	if r.Waveform != nil {
		writer.Write([]string{"# Waveform"})
		writer.Write([]string{"Index", "Time_s", "Voltage_V"})
		for i := range r.Waveform.Volts {
			writer.Write([]string{
				strconv.Itoa(i),
				formatFloat(r.Waveform.Times[i]),
				formatFloat(r.Waveform.Volts[i]),
			})
		}
	}

	if r.Spectrum != nil {
		writer.Write([]string{""})
		writer.Write([]string{"# Spectrum"})
		writer.Write([]string{"Frequency_Hz", "Magnitude"})
		for i := range r.Spectrum.Frequencies {
			writer.Write([]string{
				formatFloat(r.Spectrum.Frequencies[i]),
				formatFloat(r.Spectrum.Magnitudes[i]),
			})
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatStat(v stats.Value) string {
	if f, ok := v.Float64(); ok {
		return formatFloat(f)
	}
	return "undefined"
}
