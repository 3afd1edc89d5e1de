// DSO Capture - serial capture tool for the DSO-138 oscilloscope
// This program receives one channel-1 capture from the oscilloscope over a
// serial link and reports its settings, statistics and optional spectrum.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dso-capture/internal/acquire"
	"dso-capture/internal/config"
	"dso-capture/internal/link"
	"dso-capture/internal/report"
	"dso-capture/internal/scope"
	"dso-capture/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flag variables
var (
	cfgFile     string // Configuration file path
	verbose     bool   // Enable verbose logging
	noStats     bool   // Suppress the statistics block
	showGraph   bool   // Draw ASCII plots of each capture
	graphWidth  int    // Plot width in characters
	graphHeight int    // Plot height in lines
	listPorts   bool   // List serial ports and exit
	showVersion bool   // Print version and exit
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dso-capture [port]",
	Short: "Capture and analyze waveforms from a DSO-138 oscilloscope",
	Long: `DSO Capture waits for the DSO-138 to transmit its current channel-1
capture over the serial link, then prints the capture settings and signal
statistics (levels, frequency, cycle, pulse width, duty) and, with --fft,
the magnitude spectrum.

Press HOLD on the oscilloscope to send the capture.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("DSO Capture"))
			return
		}
		if listPorts {
			if err := printPorts(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		if err := runCapture(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// init initializes the CLI flags and configuration
func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./dso-capture.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Serial link
	rootCmd.Flags().IntP("baud", "b", defaults.Serial.BaudRate, "serial baud rate")
	rootCmd.Flags().Duration("read-timeout", defaults.Serial.ReadTimeout, "timeout of each serial read")

	// Acquisition
	rootCmd.Flags().Duration("max-wait", defaults.Capture.MaxWait, "maximum time to wait for a complete capture")
	rootCmd.Flags().IntP("repeat", "r", defaults.Capture.Repeat, "number of captures, 0 to capture until interrupted")
	rootCmd.Flags().String("record", defaults.Capture.RecordDir, "directory to save raw frames in (.dso)")

	// Analysis
	rootCmd.Flags().BoolP("fft", "f", defaults.Analysis.EnableSpectrum, "compute the magnitude spectrum")
	rootCmd.Flags().Float64("xmax", defaults.Analysis.XMax, "upper frequency bound of the spectrum (Hz)")
	rootCmd.Flags().Bool("normalize", defaults.Analysis.NormalizeSpectrum, "report single-sided amplitude instead of raw FFT magnitude")
	rootCmd.Flags().Int("debounce", defaults.Analysis.DebounceSamples, "samples a level change must persist to count as an edge")
	rootCmd.Flags().BoolVar(&noStats, "no-stats", false, "do not print signal statistics")

	// Output
	rootCmd.Flags().StringP("export", "e", defaults.Output.ExportFormat, "export each capture (csv, json)")
	rootCmd.Flags().String("export-dir", defaults.Output.ExportDir, "export directory")
	rootCmd.Flags().BoolVarP(&showGraph, "graph", "g", false, "draw ASCII plots of waveform and spectrum")
	rootCmd.Flags().IntVar(&graphWidth, "graph-width", report.DefaultGraphWidth, "width of the ASCII graph in characters")
	rootCmd.Flags().IntVar(&graphHeight, "graph-height", report.DefaultGraphHeight, "height of the ASCII graph in lines")

	rootCmd.Flags().BoolVarP(&listPorts, "list", "l", false, "list available serial ports")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("serial.baud_rate", rootCmd.Flags().Lookup("baud"))
	viper.BindPFlag("serial.read_timeout", rootCmd.Flags().Lookup("read-timeout"))
	viper.BindPFlag("capture.max_wait", rootCmd.Flags().Lookup("max-wait"))
	viper.BindPFlag("capture.repeat", rootCmd.Flags().Lookup("repeat"))
	viper.BindPFlag("capture.record_dir", rootCmd.Flags().Lookup("record"))
	viper.BindPFlag("analysis.enable_spectrum", rootCmd.Flags().Lookup("fft"))
	viper.BindPFlag("analysis.xmax", rootCmd.Flags().Lookup("xmax"))
	viper.BindPFlag("analysis.normalize_spectrum", rootCmd.Flags().Lookup("normalize"))
	viper.BindPFlag("analysis.debounce_samples", rootCmd.Flags().Lookup("debounce"))
	viper.BindPFlag("output.export_format", rootCmd.Flags().Lookup("export"))
	viper.BindPFlag("output.export_dir", rootCmd.Flags().Lookup("export-dir"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dso-capture")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// DSO_SERIAL_PORT, DSO_ANALYSIS_XMAX, ...
	viper.SetEnvPrefix("DSO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("serial.port")
	viper.BindEnv("logging.level")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func loadConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(args) > 0 {
		cfg.Serial.Port = args[0]
	}
	if cfg.Serial.Port == "" {
		return nil, fmt.Errorf("serial port not specified (pass it as an argument or set serial.port; see --list)")
	}
	if noStats {
		cfg.Analysis.ShowStats = false
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runCapture is the main application logic
func runCapture(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fmt.Printf("DSO Capture starting...\n")
	fmt.Printf("Port: %s at %d baud\n", cfg.Serial.Port, cfg.Serial.BaudRate)
	fmt.Printf("Max wait: %v\n", cfg.Capture.MaxWait)
	if cfg.Capture.RecordDir != "" {
		fmt.Printf("Recording to: %s\n", cfg.Capture.RecordDir)
	}

	s := scope.NewScope(cfg)
	s.SetObserver(func(sess acquire.Session) {
		if msg := report.Progress(sess.State); msg != "" {
			fmt.Println(msg)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Printf("\nReceived interrupt signal, shutting down...\n")
			cancel()
		case <-ctx.Done():
		}
	}()

	exporter := report.NewExporter(nil)
	err = s.Run(ctx, func(n int, r *scope.Result) error {
		return handleResult(cfg, exporter, n, r)
	})
	if err != nil {
		if ctx.Err() != nil && cfg.Capture.Repeat == 0 {
			// Interrupting a continuous run is the normal way to end it
			return nil
		}
		return fmt.Errorf("capture failed: %w", err)
	}

	fmt.Printf("Capture completed successfully.\n")
	return nil
}

func handleResult(cfg *config.Config, exporter *report.Exporter, n int, r *scope.Result) error {
	if cfg.Capture.Repeat != 1 {
		fmt.Printf("\nCapture %d\n", n)
	}

	report.PrintSettings(os.Stdout, r.Header)
	if cfg.Analysis.ShowStats {
		report.PrintStatistics(os.Stdout, r.Header, r.Stats)
	}

	if r.SpectrumErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", r.SpectrumErr)
	} else if r.Spectrum != nil {
		report.PrintSpectrum(os.Stdout, r.Spectrum)
	}

	if showGraph {
		fmt.Println()
		report.PlotWaveform(os.Stdout, r.Waveform, graphWidth, graphHeight)
		if r.Spectrum != nil {
			report.PlotSpectrum(os.Stdout, r.Spectrum, graphWidth, graphHeight)
		}
	}

	if r.RecordedTo != "" {
		fmt.Printf("Raw frame saved to %s\n", r.RecordedTo)
	}

	if cfg.Output.ExportFormat != "" {
		path, err := exporter.Export(r, cfg.Output.ExportDir, cfg.Output.ExportFormat)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Exported to %s\n", path)
	}
	return nil
}

func printPorts() error {
	ports, err := link.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
