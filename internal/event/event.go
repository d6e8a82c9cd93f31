// Package event defines the structured records broadcast to WebSocket
// subscribers: serial lines read from the device and TUIO message batches
// decoded from UDP datagrams.
package event

import (
	"time"

	"github.com/ecommersive/nexmosphere-server/internal/osc"
)

// Event type discriminators carried in the "type" field of every
// broadcast record.
const (
	KindSerial = "serial_data"
	KindTuio   = "tuio_data"
)

// timestampLayout is wall-clock time with millisecond precision.
const timestampLayout = "15:04:05.000"

// SerialEvent is one decoded, non-empty line from the serial device.
type SerialEvent struct {
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
	Kind      string `json:"type"`
}

// TuioEvent carries the OSC messages decoded from a single UDP datagram.
type TuioEvent struct {
	Timestamp string        `json:"timestamp"`
	Kind      string        `json:"type"`
	Messages  []osc.Message `json:"messages"`
}

// NewSerial builds a SerialEvent for a line read at the given time.
func NewSerial(ts time.Time, line string) SerialEvent {
	return SerialEvent{
		Timestamp: ts.Format(timestampLayout),
		Data:      line,
		Kind:      KindSerial,
	}
}

// NewTuio builds a TuioEvent for a datagram decoded at the given time.
func NewTuio(ts time.Time, messages []osc.Message) TuioEvent {
	return TuioEvent{
		Timestamp: ts.Format(timestampLayout),
		Kind:      KindTuio,
		Messages:  messages,
	}
}
