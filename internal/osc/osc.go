package osc

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Protocol constants from the OSC 1.0 specification
const (
	// BundleTag is the 8-byte marker at the start of an OSC bundle
	// (the string "#bundle" plus its null terminator).
	BundleTag = "#bundle\x00"

	// BundleHeaderSize covers the bundle tag plus the 8-byte time-tag.
	BundleHeaderSize = 16

	// TypeTagMarker introduces the type-tag string of a message.
	TypeTagMarker = ','
)

// Message is a single decoded OSC message: a slash-delimited address
// pattern and an ordered argument list. Arguments are int32, float32 or
// string, matching the supported type tags 'i', 'f' and 's'.
type Message struct {
	Address string `json:"address"`
	Args    []any  `json:"args"`
}

// Decode parses a raw UDP datagram into its OSC messages. A bundle yields
// zero or more messages; a bare message yields at most one. Decode never
// fails: malformed input produces as many valid leading messages as could
// be parsed, and a truncated or corrupt entry is dropped without affecting
// entries already decoded.
func Decode(data []byte) []Message {
	if len(data) >= len(BundleTag) && string(data[:len(BundleTag)]) == BundleTag {
		return decodeBundle(data)
	}

	msg, ok := decodeMessage(data)
	if !ok {
		return nil
	}
	return []Message{msg}
}

// decodeBundle walks the length-prefixed entries of a bundle, skipping the
// tag and time-tag. Each entry is bounds-checked against the remaining
// buffer before it is decoded; a failed check ends the walk.
func decodeBundle(data []byte) []Message {
	var messages []Message

	offset := BundleHeaderSize
	for offset+4 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4

		if size < 0 || offset+size > len(data) {
			break
		}

		// A corrupt entry is dropped; the outer walk continues with
		// the next length prefix.
		if msg, ok := decodeMessage(data[offset : offset+size]); ok {
			messages = append(messages, msg)
		}
		offset += size
	}

	return messages
}

// decodeMessage parses one OSC message: address, optional type-tag string,
// then one argument per tag character. Any format violation, including a
// type tag outside {i,f,s}, discards the whole message.
func decodeMessage(data []byte) (Message, bool) {
	address, offset, ok := readPaddedString(data, 0)
	if !ok || address == "" {
		return Message{}, false
	}

	msg := Message{Address: address}

	// A message without a type-tag string carries no arguments.
	if offset >= len(data) || data[offset] != TypeTagMarker {
		return msg, true
	}

	tags, offset, ok := readPaddedString(data, offset)
	if !ok {
		return Message{}, false
	}

	for _, tag := range tags[1:] {
		switch tag {
		case 'i':
			if offset+4 > len(data) {
				return Message{}, false
			}
			msg.Args = append(msg.Args, int32(binary.BigEndian.Uint32(data[offset:offset+4])))
			offset += 4

		case 'f':
			if offset+4 > len(data) {
				return Message{}, false
			}
			bits := binary.BigEndian.Uint32(data[offset : offset+4])
			msg.Args = append(msg.Args, roundFloat(math.Float32frombits(bits)))
			offset += 4

		case 's':
			value, next, ok := readPaddedString(data, offset)
			if !ok {
				return Message{}, false
			}
			msg.Args = append(msg.Args, value)
			offset = next

		default:
			// Unsupported type tag: argument positions for the rest
			// of the message are unknowable, so the message is dropped.
			return Message{}, false
		}
	}

	return msg, true
}

// readPaddedString reads a null-terminated string starting at offset and
// returns the offset of the next 4-byte boundary past the terminator. The
// advance rule (nullIndex+4) &^ 3 always skips at least one padding byte,
// matching the OSC padding convention. The returned offset may point past
// a buffer whose padding bytes were truncated, so the offset is validated
// here on the next read rather than at the call site.
func readPaddedString(data []byte, offset int) (string, int, bool) {
	if offset > len(data) {
		return "", 0, false
	}

	idx := bytes.IndexByte(data[offset:], 0)
	if idx < 0 {
		return "", 0, false
	}

	end := offset + idx
	next := (end + 4) &^ 3

	return string(data[offset:end]), next, true
}

// roundFloat rounds a float argument to 4 decimal digits, the precision
// TUIO trackers report coordinates at.
func roundFloat(f float32) float32 {
	return float32(math.Round(float64(f)*10000) / 10000)
}
