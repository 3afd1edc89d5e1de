// Package config provides configuration structures and defaults for dso-capture
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Serial   SerialConfig   `yaml:"serial" mapstructure:"serial"`     // Serial link settings
	Capture  CaptureConfig  `yaml:"capture" mapstructure:"capture"`   // Acquisition settings
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"` // Statistics and spectrum settings
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`     // Export settings
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`   // Logging configuration
}

// SerialConfig contains serial link parameters
type SerialConfig struct {
	Port        string        `yaml:"port" mapstructure:"port"`                 // Serial port device path
	BaudRate    int           `yaml:"baud_rate" mapstructure:"baud_rate"`       // Baud rate, the firmware uses 115200
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"` // Bound on each individual read
}

// CaptureConfig contains acquisition parameters
type CaptureConfig struct {
	MaxWait   time.Duration `yaml:"max_wait" mapstructure:"max_wait"`     // Bound on waiting for one complete transmission
	Repeat    int           `yaml:"repeat" mapstructure:"repeat"`         // Captures to run, 0 runs until interrupted
	RecordDir string        `yaml:"record_dir" mapstructure:"record_dir"` // Save raw frames here when set
}

// AnalysisConfig is what the processing pipeline consumes
type AnalysisConfig struct {
	EnableSpectrum    bool    `yaml:"enable_spectrum" mapstructure:"enable_spectrum"`       // Compute the magnitude spectrum
	ShowStats         bool    `yaml:"show_stats" mapstructure:"show_stats"`                 // Print signal statistics
	XMax              float64 `yaml:"xmax" mapstructure:"xmax"`                             // Upper spectrum bound in Hz
	NormalizeSpectrum bool    `yaml:"normalize_spectrum" mapstructure:"normalize_spectrum"` // Report 2/N * |X| instead of |X|
	DebounceSamples   int     `yaml:"debounce_samples" mapstructure:"debounce_samples"`     // Samples confirming an edge
}

// OutputConfig contains export parameters
type OutputConfig struct {
	ExportFormat string `yaml:"export_format" mapstructure:"export_format"` // "", "csv" or "json"
	ExportDir    string `yaml:"export_dir" mapstructure:"export_dir"`       // Directory for exported files
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // Log level (debug, info, warn, error)
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "",                     // Given on the command line
			BaudRate:    115200,                 // DLO-138 firmware rate
			ReadTimeout: 100 * time.Millisecond, // Short reads keep cancellation responsive
		},
		Capture: CaptureConfig{
			MaxWait:   60 * time.Second, // Time to press the hold button
			Repeat:    1,                // Single capture
			RecordDir: "",               // Recording disabled
		},
		Analysis: AnalysisConfig{
			EnableSpectrum:    false,
			ShowStats:         true,
			XMax:              4000, // 4 kHz
			NormalizeSpectrum: false,
			DebounceSamples:   3,
		},
		Output: OutputConfig{
			ExportFormat: "",
			ExportDir:    "./data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks value ranges. The spectral bound is deliberately not
// checked here so that a bad bound only fails the spectral stage.
func (c *Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive, got %v", c.Serial.ReadTimeout)
	}
	if c.Capture.MaxWait <= 0 {
		return fmt.Errorf("capture.max_wait must be positive, got %v", c.Capture.MaxWait)
	}
	if c.Capture.MaxWait < c.Serial.ReadTimeout {
		return fmt.Errorf("capture.max_wait (%v) must not be shorter than serial.read_timeout (%v)",
			c.Capture.MaxWait, c.Serial.ReadTimeout)
	}
	if c.Capture.Repeat < 0 {
		return fmt.Errorf("capture.repeat must not be negative, got %d", c.Capture.Repeat)
	}
	if c.Analysis.DebounceSamples < 1 {
		return fmt.Errorf("analysis.debounce_samples must be at least 1, got %d", c.Analysis.DebounceSamples)
	}
	if math.IsInf(c.Analysis.XMax, 0) {
		return fmt.Errorf("analysis.xmax must be finite")
	}

	switch strings.ToLower(c.Output.ExportFormat) {
	case "", "csv", "json":
	default:
		return fmt.Errorf("output.export_format must be csv or json, got %q", c.Output.ExportFormat)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// Debug reports whether debug logging is enabled
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "debug")
}
