package osc

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"
)

// padString encodes a null-terminated, 4-byte padded OSC string.
func padString(s string) []byte {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// encodeMessage builds OSC wire bytes for a single message.
func encodeMessage(address string, args ...any) []byte {
	data := padString(address)

	tags := ","
	for _, arg := range args {
		switch arg.(type) {
		case int32:
			tags += "i"
		case float32:
			tags += "f"
		case string:
			tags += "s"
		}
	}
	data = append(data, padString(tags)...)

	for _, arg := range args {
		switch v := arg.(type) {
		case int32:
			data = binary.BigEndian.AppendUint32(data, uint32(v))
		case float32:
			data = binary.BigEndian.AppendUint32(data, math.Float32bits(v))
		case string:
			data = append(data, padString(v)...)
		}
	}

	return data
}

// encodeBundle wraps pre-encoded messages in an OSC bundle with a zero
// time-tag and big-endian length prefixes.
func encodeBundle(entries ...[]byte) []byte {
	data := []byte(BundleTag)
	data = append(data, make([]byte, 8)...) // time-tag

	for _, entry := range entries {
		data = binary.BigEndian.AppendUint32(data, uint32(len(entry)))
		data = append(data, entry...)
	}

	return data
}

func TestDecodeSingleMessage(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []Message
	}{
		{
			name: "tuio set message with float rounding",
			data: encodeMessage("/tuio/2Dcur", "set", int32(7), float32(3.14159)),
			expected: []Message{
				{Address: "/tuio/2Dcur", Args: []any{"set", int32(7), float32(3.1416)}},
			},
		},
		{
			name: "alive message with string args",
			data: encodeMessage("/tuio/2Dobj", "alive", "s1", "s2"),
			expected: []Message{
				{Address: "/tuio/2Dobj", Args: []any{"alive", "s1", "s2"}},
			},
		},
		{
			name: "negative int argument",
			data: encodeMessage("/tuio/2Dcur", int32(-42)),
			expected: []Message{
				{Address: "/tuio/2Dcur", Args: []any{int32(-42)}},
			},
		},
		{
			name:     "message without type tag string",
			data:     padString("/ping"),
			expected: []Message{{Address: "/ping"}},
		},
		{
			name:     "empty buffer",
			data:     []byte{},
			expected: nil,
		},
		{
			name:     "missing null terminator",
			data:     []byte("/tuio/2Dcur"),
			expected: nil,
		},
		{
			name:     "truncated int argument",
			data:     append(append(padString("/a"), padString(",i")...), 0x00, 0x01),
			expected: nil,
		},
		{
			name:     "unsupported type tag drops message",
			data:     append(append(padString("/a"), padString(",iT")...), 0x00, 0x00, 0x00, 0x07),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.data)

			if !messagesEqual(result, tt.expected) {
				t.Errorf("Decode() = %+v, expected %+v", result, tt.expected)
			}
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	// Arguments chosen so the 4-digit rounding rule is the identity.
	messages := []Message{
		{Address: "/tuio/2Dcur", Args: []any{"set", int32(3), float32(0.5), float32(0.25)}},
		{Address: "/tuio/2Dcur", Args: []any{"alive", int32(3), int32(4)}},
		{Address: "/tuio/2Dcur", Args: []any{"fseq", int32(1024)}},
	}

	for _, msg := range messages {
		decoded := Decode(encodeMessage(msg.Address, msg.Args...))

		if len(decoded) != 1 {
			t.Fatalf("expected 1 message, got %d", len(decoded))
		}
		if !reflect.DeepEqual(decoded[0], msg) {
			t.Errorf("round trip mismatch: got %+v, expected %+v", decoded[0], msg)
		}
	}
}

func TestDecodeBundle(t *testing.T) {
	set := encodeMessage("/tuio/2Dcur", "set", int32(1), float32(0.5))
	alive := encodeMessage("/tuio/2Dcur", "alive", int32(1))
	fseq := encodeMessage("/tuio/2Dcur", "fseq", int32(99))

	tests := []struct {
		name      string
		data      []byte
		wantCount int
	}{
		{
			name:      "bundle with three messages",
			data:      encodeBundle(set, alive, fseq),
			wantCount: 3,
		},
		{
			name:      "empty bundle",
			data:      encodeBundle(),
			wantCount: 0,
		},
		{
			name:      "bundle header only",
			data:      []byte(BundleTag),
			wantCount: 0,
		},
		{
			name:      "bundle with truncated time-tag",
			data:      append([]byte(BundleTag), 0x00, 0x00, 0x00),
			wantCount: 0,
		},
		{
			name:      "truncated last entry keeps leading messages",
			data:      truncate(encodeBundle(set, alive, fseq), 6),
			wantCount: 2,
		},
		{
			name:      "oversized length prefix stops the walk",
			data:      append(encodeBundle(set), 0xFF, 0xFF, 0xFF, 0xFF),
			wantCount: 1,
		},
		{
			name:      "corrupt middle entry is skipped",
			data:      encodeBundle(set, []byte("/bad-no-null"), fseq),
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.data)

			if len(result) != tt.wantCount {
				t.Errorf("expected %d messages, got %d (%+v)", tt.wantCount, len(result), result)
			}
		})
	}
}

func TestDecodeTruncatedStringPadding(t *testing.T) {
	// A string argument whose null terminator sits flush with the end of
	// the buffer leaves the aligned next-offset past the data. Reading a
	// further argument from there must fail the message, not slice out of
	// bounds.
	flush := append(append(padString("/a"), padString(",ss")...), "abcde\x00"...)

	tests := []struct {
		name     string
		data     []byte
		expected []Message
	}{
		{
			name:     "string tag after truncated padding",
			data:     flush,
			expected: nil,
		},
		{
			name:     "int tag after truncated padding",
			data:     append(append(padString("/a"), padString(",si")...), "abcde\x00"...),
			expected: nil,
		},
		{
			name: "truncated padding on final argument still decodes",
			data: append(append(padString("/a"), padString(",s")...), "abcde\x00"...),
			expected: []Message{
				{Address: "/a", Args: []any{"abcde"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.data)

			if !messagesEqual(result, tt.expected) {
				t.Errorf("Decode() = %+v, expected %+v", result, tt.expected)
			}
		})
	}
}

func TestDecodeShortBundles(t *testing.T) {
	// Every prefix of the bundle header must decode to nothing without
	// panicking.
	full := append([]byte(BundleTag), make([]byte, 8)...)
	for i := len(BundleTag); i < len(full); i++ {
		if result := Decode(full[:i]); len(result) != 0 {
			t.Errorf("length %d: expected no messages, got %+v", i, result)
		}
	}
}

func TestDecodeAlignment(t *testing.T) {
	// Address lengths exercising every residue of the 4-byte padding rule.
	for _, address := range []string{"/a", "/ab", "/abc", "/abcd", "/abcde"} {
		data := encodeMessage(address, int32(5))
		result := Decode(data)

		if len(result) != 1 {
			t.Fatalf("address %q: expected 1 message, got %d", address, len(result))
		}
		if result[0].Address != address {
			t.Errorf("address %q: decoded as %q", address, result[0].Address)
		}
		if len(result[0].Args) != 1 || result[0].Args[0] != int32(5) {
			t.Errorf("address %q: args decoded as %+v", address, result[0].Args)
		}
	}
}

func messagesEqual(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func truncate(data []byte, n int) []byte {
	return data[:len(data)-n]
}
