package server

import (
	"encoding/binary"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecommersive/nexmosphere-server/internal/config"
	"github.com/ecommersive/nexmosphere-server/internal/hub"
	"github.com/ecommersive/nexmosphere-server/internal/metrics"
)

var testMetrics = metrics.NewMetrics()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func padOSCString(s string) []byte {
	b := []byte(s)
	b = append(b, 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func encodeOSCMessage(address string, args ...any) []byte {
	tags := ","
	var payload []byte
	for _, arg := range args {
		switch v := arg.(type) {
		case int32:
			tags += "i"
			buf := make([]byte, 4)
			binary.BigEndian.PutUint32(buf, uint32(v))
			payload = append(payload, buf...)
		case string:
			tags += "s"
			payload = append(payload, padOSCString(v)...)
		}
	}
	msg := padOSCString(address)
	msg = append(msg, padOSCString(tags)...)
	return append(msg, payload...)
}

func newTestListener(t *testing.T) (*UDPListener, *hub.Hub) {
	t.Helper()
	h := hub.New(testLogger())
	cfg := &config.TUIOConfig{UDPPort: 3333, BindAddress: "0.0.0.0", BufferSize: 65536}
	return NewUDPListener(cfg, testLogger(), h, testMetrics), h
}

func TestHandleDatagramQueuesEvent(t *testing.T) {
	l, _ := newTestListener(t)
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

	l.handleDatagram(encodeOSCMessage("/tuio/2Dcur", "alive", int32(4)), addr)

	require.Len(t, l.eventChan, 1)
	evt := <-l.eventChan
	require.Len(t, evt.Messages, 1)
	assert.Equal(t, "/tuio/2Dcur", evt.Messages[0].Address)
	assert.Equal(t, []any{"alive", int32(4)}, evt.Messages[0].Args)
	assert.Equal(t, "tuio_data", evt.Kind)

	stats := l.GetStatistics()
	assert.Equal(t, uint64(1), stats.DatagramsReceived)
}

func TestHandleDatagramEmptyDecode(t *testing.T) {
	l, _ := newTestListener(t)
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

	l.handleDatagram([]byte{0x01, 0x02, 0x03}, addr)

	assert.Empty(t, l.eventChan)
	stats := l.GetStatistics()
	assert.Equal(t, uint64(1), stats.DatagramsReceived)
	assert.Equal(t, uint64(1), stats.EmptyDecodes)
}

func TestHandleDatagramDropsWhenQueueFull(t *testing.T) {
	l, _ := newTestListener(t)
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
	datagram := encodeOSCMessage("/tuio/2Dcur", "fseq", int32(1))

	for i := 0; i < cap(l.eventChan)+5; i++ {
		l.handleDatagram(datagram, addr)
	}

	assert.Len(t, l.eventChan, cap(l.eventChan))
	stats := l.GetStatistics()
	assert.Equal(t, uint64(5), stats.EventsDropped)
}
