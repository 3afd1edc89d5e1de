// Package link opens the serial channel that carries oscilloscope transmissions
package link

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"go.bug.st/serial"
)

// DefaultBaudRate is the rate the DLO-138 firmware transmits at
const DefaultBaudRate = 115200

// Open opens portName as an 8N1 serial channel at the given baud rate.
// The returned error names the port and, when the driver reports one, the
// failure class (missing device, busy, permissions).
func Open(portName string, baudRate int) (serial.Port, error) {
	return OpenWithDebug(portName, baudRate, false)
}

// OpenWithDebug is Open with optional debug logging
func OpenWithDebug(portName string, baudRate int, debug bool) (serial.Port, error) {
	if portName == "" {
		return nil, fmt.Errorf("no serial port specified")
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s (%s): %w", portName, Describe(err), err)
	}

	if debug {
		log.Printf("DSO: opened %s at %d baud (8N1)", portName, baudRate)
	}

	return port, nil
}

// Describe returns a short human readable class for a serial driver error
func Describe(err error) string {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return "unknown error"
	}

	switch portErr.Code() {
	case serial.PortNotFound:
		return "port not found, check the USB-TTL adapter"
	case serial.PortBusy:
		return "port busy, another program holds it"
	case serial.PermissionDenied:
		return "permission denied, check dialout group membership"
	case serial.InvalidSpeed:
		return "unsupported baud rate"
	case serial.PortClosed:
		return "port closed"
	default:
		return portErr.EncodedErrorString()
	}
}

// List returns the serial ports currently present, sorted by name
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
