// Package serialport provides access to the Nexmosphere serial controller:
// opening the device and the ingest loop that reads newline-terminated
// lines and broadcasts them as serial events.
package serialport

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the subset of the serial device used by the ingest loop and the
// command dispatcher. The read and write sides are independently usable
// from two goroutines.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Open opens the serial device at the given baud rate.
func Open(device string, baudRate int) (Port, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", device, err)
	}
	return port, nil
}

// AvailablePorts lists the serial devices present on the system. Used to
// help the operator when the configured device cannot be opened.
func AvailablePorts() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil
	}
	return ports
}
