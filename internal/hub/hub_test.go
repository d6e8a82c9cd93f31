package hub

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	id       string
	received [][]byte
	closed   bool
	sendErr  error
	mu       sync.Mutex
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) getReceived() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newTestHub() *Hub {
	return New(slog.Default())
}

func TestHub_Broadcast(t *testing.T) {
	h := newTestHub()
	recv1 := &mockConn{id: "recv1"}
	recv2 := &mockConn{id: "recv2"}
	h.Register(recv1)
	h.Register(recv2)

	h.Broadcast(map[string]string{"type": "serial_data", "data": "hello"})

	require.Len(t, recv1.getReceived(), 1)
	require.Len(t, recv2.getReceived(), 1)
	assert.JSONEq(t, `{"type":"serial_data","data":"hello"}`, string(recv1.getReceived()[0]))
}

func TestHub_BroadcastNoSubscribers(t *testing.T) {
	h := newTestHub()

	// Must be a silent no-op.
	h.Broadcast(map[string]string{"data": "nobody listening"})

	assert.Equal(t, 0, h.Count())
}

func TestHub_FailedSubscriberRemoved(t *testing.T) {
	h := newTestHub()
	good1 := &mockConn{id: "good1"}
	good2 := &mockConn{id: "good2"}
	bad := &mockConn{id: "bad", sendErr: errors.New("send buffer full")}
	h.Register(good1)
	h.Register(bad)
	h.Register(good2)

	h.Broadcast(map[string]string{"data": "first"})

	// Both healthy subscribers got the event despite the failure.
	assert.Len(t, good1.getReceived(), 1)
	assert.Len(t, good2.getReceived(), 1)
	assert.Empty(t, bad.getReceived())
	assert.True(t, bad.isClosed())
	assert.Equal(t, 2, h.Count())

	// The failed subscriber is gone from the live set on the next pass.
	h.Broadcast(map[string]string{"data": "second"})
	assert.Len(t, good1.getReceived(), 2)
	assert.Len(t, good2.getReceived(), 2)
	assert.Empty(t, bad.getReceived())
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	h := newTestHub()
	conn := &mockConn{id: "c1"}

	h.Register(conn)
	require.Equal(t, 1, h.Count())

	h.Unregister(conn)
	h.Unregister(conn)
	assert.Equal(t, 0, h.Count())
}

func TestHub_RegisterIdempotent(t *testing.T) {
	h := newTestHub()
	conn := &mockConn{id: "c1"}

	h.Register(conn)
	h.Register(conn)
	assert.Equal(t, 1, h.Count())

	h.Broadcast(map[string]string{"data": "once"})
	assert.Len(t, conn.getReceived(), 1)
}

func TestHub_CloseAll(t *testing.T) {
	h := newTestHub()
	conn1 := &mockConn{id: "c1"}
	conn2 := &mockConn{id: "c2"}
	h.Register(conn1)
	h.Register(conn2)

	h.CloseAll()

	assert.Equal(t, 0, h.Count())
	assert.True(t, conn1.isClosed())
	assert.True(t, conn2.isClosed())
}
