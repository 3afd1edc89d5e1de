// Package recorder saves raw oscilloscope transmissions to .dso files and
// reads them back for offline decoding
package recorder

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Magic identifies a recorded capture
const Magic = "DSO138"

// FormatVersion is written into every new file
const FormatVersion uint16 = 1

// Metadata describes one recorded transmission
type Metadata struct {
	FileFormatVersion uint16
	CaptureTime       time.Time
	Port              string
	DeviceInfo        string
}

type Writer struct {
	fs afero.Fs
}

// NewWriter returns a writer on fs, or on the OS filesystem when fs is nil
func NewWriter(fs afero.Fs) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Writer{fs: fs}
}

// FileName returns the file name for a capture taken at t
func FileName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = "capture"
	}
	return fmt.Sprintf("%s_%s.dso", prefix, t.UTC().Format("20060102_150405.000"))
}

// WriteFile stores raw exactly as received, whether or not it decodes
func (w *Writer) WriteFile(filename string, metadata Metadata, raw []byte) (err error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := w.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := w.fs.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(file))

	if metadata.FileFormatVersion == 0 {
		metadata.FileFormatVersion = FormatVersion
	}

	if err := w.writeHeader(file, metadata, uint32(len(raw))); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := file.Write(raw); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

func (w *Writer) writeHeader(file io.Writer, metadata Metadata, frameLength uint32) error {
	if _, err := io.WriteString(file, Magic); err != nil {
		return err
	}

	if err := binary.Write(file, binary.LittleEndian, metadata.FileFormatVersion); err != nil {
		return err
	}

	if err := binary.Write(file, binary.LittleEndian, metadata.CaptureTime.Unix()); err != nil {
		return err
	}
	if err := binary.Write(file, binary.LittleEndian, int32(metadata.CaptureTime.Nanosecond())); err != nil {
		return err
	}

	if err := writeString(file, metadata.Port); err != nil {
		return err
	}
	if err := writeString(file, metadata.DeviceInfo); err != nil {
		return err
	}

	return binary.Write(file, binary.LittleEndian, frameLength)
}

// writeString writes a uint8 length prefix and at most 255 bytes
func writeString(file io.Writer, s string) error {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}
	if err := binary.Write(file, binary.LittleEndian, uint8(len(b))); err != nil {
		return err
	}
	_, err := file.Write(b)
	return err
}

// ReadFile reads the metadata and the raw transmission
func ReadFile(fs afero.Fs, filename string) (*Metadata, []byte, error) {
	file, err := fs.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	metadata, frameLength, err := readHeader(file)
	if err != nil {
		return nil, nil, err
	}

	raw := make([]byte, frameLength)
	if _, err := io.ReadFull(file, raw); err != nil {
		return nil, nil, fmt.Errorf("failed to read frame (%d bytes): %w", frameLength, err)
	}

	return metadata, raw, nil
}

// ReadMetadata reads only the header and the recorded frame length
func ReadMetadata(fs afero.Fs, filename string) (*Metadata, uint32, error) {
	file, err := fs.Open(filename)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return readHeader(file)
}

func readHeader(file io.Reader) (*Metadata, uint32, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(file, magic); err != nil {
		return nil, 0, fmt.Errorf("failed to read magic: %w", err)
	}
	if string(magic) != Magic {
		return nil, 0, fmt.Errorf("invalid file format")
	}

	var metadata Metadata
	if err := binary.Read(file, binary.LittleEndian, &metadata.FileFormatVersion); err != nil {
		return nil, 0, err
	}
	if metadata.FileFormatVersion > FormatVersion {
		return nil, 0, fmt.Errorf("unsupported file format version %d", metadata.FileFormatVersion)
	}

	var captureTimeUnix int64
	var captureTimeNano int32
	if err := binary.Read(file, binary.LittleEndian, &captureTimeUnix); err != nil {
		return nil, 0, err
	}
	if err := binary.Read(file, binary.LittleEndian, &captureTimeNano); err != nil {
		return nil, 0, err
	}
	metadata.CaptureTime = time.Unix(captureTimeUnix, int64(captureTimeNano))

	var err error
	if metadata.Port, err = readString(file); err != nil {
		return nil, 0, err
	}
	if metadata.DeviceInfo, err = readString(file); err != nil {
		return nil, 0, err
	}

	var frameLength uint32
	if err := binary.Read(file, binary.LittleEndian, &frameLength); err != nil {
		return nil, 0, err
	}

	return &metadata, frameLength, nil
}

func readString(file io.Reader) (string, error) {
	var n uint8
	if err := binary.Read(file, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(file, b); err != nil {
		return "", err
	}
	return string(b), nil
}
