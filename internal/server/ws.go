package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ecommersive/nexmosphere-server/internal/hub"
	"github.com/ecommersive/nexmosphere-server/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ErrSendBufferFull is reported when a client's outbound buffer is full;
// the hub treats it like any other failed send and drops the client.
var ErrSendBufferFull = errors.New("client send buffer full")

// Client adapts one WebSocket connection to the hub's Subscriber
// interface. Outbound events go through a buffered channel drained by the
// write pump, so Send never blocks a broadcast.
type Client struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	hub     *hub.Hub
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient wraps an upgraded WebSocket connection.
func NewClient(id string, ws *websocket.Conn, h *hub.Hub, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, 256),
		hub:     h,
		logger:  logger,
		metrics: m,
	}
}

// ID returns the client identifier.
func (c *Client) ID() string { return c.id }

// Send queues one encoded event for delivery. A full buffer means the
// client cannot keep up and is reported as a send failure.
func (c *Client) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.ws.Close()
}

// Start registers the client with the hub and launches its pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	c.metrics.ClientConnected()

	go c.writePump()
	go c.readPump()
}

// readPump consumes inbound frames until the connection drops. Inbound
// text is informational only; the command path is the HTTP API.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.metrics.ClientDisconnected()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		c.logger.Debug("websocket message received",
			slog.String("client_id", c.id),
			slog.Int("size", len(data)),
		)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		// The send channel is never closed; teardown closes the
		// connection, which fails the next write.
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
