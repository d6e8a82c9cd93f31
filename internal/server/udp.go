package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ecommersive/nexmosphere-server/internal/config"
	"github.com/ecommersive/nexmosphere-server/internal/event"
	"github.com/ecommersive/nexmosphere-server/internal/hub"
	"github.com/ecommersive/nexmosphere-server/internal/metrics"
	"github.com/ecommersive/nexmosphere-server/internal/osc"
)

// UDPListener receives TUIO datagrams, decodes them, and hands the
// resulting events to the broadcast hub. Decoding happens on the receive
// goroutine; broadcasting happens on a single dispatcher goroutine so the
// next datagram is never blocked on broadcast completion while events
// still reach subscribers in arrival order.
type UDPListener struct {
	conn    *net.UDPConn
	config  *config.TUIOConfig
	logger  *slog.Logger
	hub     *hub.Hub
	metrics *metrics.Metrics

	ctx         context.Context
	cancel      context.CancelFunc
	receiveWG   sync.WaitGroup
	broadcastWG sync.WaitGroup

	eventChan chan event.TuioEvent

	mu                sync.RWMutex
	datagramsReceived uint64
	eventsBroadcast   uint64
	emptyDecodes      uint64
	eventsDropped     uint64
}

// NewUDPListener creates a UDP listener instance.
func NewUDPListener(cfg *config.TUIOConfig, logger *slog.Logger, h *hub.Hub, m *metrics.Metrics) *UDPListener {
	ctx, cancel := context.WithCancel(context.Background())

	return &UDPListener{
		config:    cfg,
		logger:    logger,
		hub:       h,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
		eventChan: make(chan event.TuioEvent, 256),
	}
}

// Start binds the UDP socket and begins receiving datagrams.
func (l *UDPListener) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", l.config.BindAddress, l.config.UDPPort))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	l.conn = conn

	if err := l.conn.SetReadBuffer(l.config.BufferSize); err != nil {
		l.logger.Warn("failed to set UDP read buffer size",
			slog.Int("buffer_size", l.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	l.logger.Info("TUIO listener started", slog.String("address", addr.String()))

	l.broadcastWG.Add(1)
	go l.broadcastLoop()

	l.receiveWG.Add(1)
	go l.receiveLoop()

	return nil
}

// Stop gracefully stops the listener, letting the in-flight datagram and
// broadcast finish.
func (l *UDPListener) Stop() error {
	l.logger.Info("stopping TUIO listener...")

	l.cancel()

	if l.conn != nil {
		if err := l.conn.Close(); err != nil {
			l.logger.Warn("error closing UDP socket", slog.String("error", err.Error()))
		}
	}

	// The receiver must be fully stopped before its channel closes.
	l.receiveWG.Wait()
	close(l.eventChan)
	l.broadcastWG.Wait()

	stats := l.GetStatistics()
	l.logger.Info("TUIO listener stopped",
		slog.Uint64("datagrams_received", stats.DatagramsReceived),
		slog.Uint64("events_broadcast", stats.EventsBroadcast),
		slog.Uint64("empty_decodes", stats.EmptyDecodes),
	)

	return nil
}

// receiveLoop reads datagrams until cancelled, decoding each one
// synchronously. A decode that yields no messages is counted and dropped;
// it never affects the next datagram.
func (l *UDPListener) receiveLoop() {
	defer l.receiveWG.Done()

	buffer := make([]byte, l.config.BufferSize)

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		// Periodic deadline so cancellation is noticed on an idle socket.
		if err := l.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			l.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := l.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-l.ctx.Done():
				return
			default:
				l.logger.Error("failed to read datagram", slog.String("error", err.Error()))
				continue
			}
		}

		l.handleDatagram(buffer[:n], remoteAddr)
	}
}

// handleDatagram decodes one datagram and queues the resulting event for
// broadcast. The queue send is non-blocking; under extreme load the event
// is dropped rather than stalling receives.
func (l *UDPListener) handleDatagram(data []byte, remoteAddr *net.UDPAddr) {
	l.mu.Lock()
	l.datagramsReceived++
	l.mu.Unlock()
	l.metrics.RecordDatagram()

	messages := osc.Decode(data)
	l.metrics.RecordDecode(len(messages))
	if len(messages) == 0 {
		l.mu.Lock()
		l.emptyDecodes++
		l.mu.Unlock()

		l.logger.Debug("datagram decoded to no messages",
			slog.String("remote_addr", remoteAddr.String()),
			slog.Int("size", len(data)),
		)
		return
	}

	evt := event.NewTuio(time.Now(), messages)

	select {
	case l.eventChan <- evt:
	default:
		l.mu.Lock()
		l.eventsDropped++
		l.mu.Unlock()
		l.metrics.RecordEventDropped()

		l.logger.Warn("broadcast queue full, dropping TUIO event",
			slog.String("remote_addr", remoteAddr.String()),
			slog.Int("messages", len(messages)),
		)
	}
}

// broadcastLoop drains the event queue in order. A single consumer keeps
// datagram arrival order intact end to end.
func (l *UDPListener) broadcastLoop() {
	defer l.broadcastWG.Done()

	for evt := range l.eventChan {
		l.hub.Broadcast(evt)
		l.metrics.RecordBroadcast("tuio")

		l.mu.Lock()
		l.eventsBroadcast++
		l.mu.Unlock()
	}
}

// GetStatistics returns current listener counters.
func (l *UDPListener) GetStatistics() ListenerStatistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return ListenerStatistics{
		DatagramsReceived: l.datagramsReceived,
		EventsBroadcast:   l.eventsBroadcast,
		EmptyDecodes:      l.emptyDecodes,
		EventsDropped:     l.eventsDropped,
		QueueSize:         uint64(len(l.eventChan)),
	}
}

// ListenerStatistics represents TUIO listener counters.
type ListenerStatistics struct {
	DatagramsReceived uint64 `json:"datagrams_received"`
	EventsBroadcast   uint64 `json:"events_broadcast"`
	EmptyDecodes      uint64 `json:"empty_decodes"`
	EventsDropped     uint64 `json:"events_dropped"`
	QueueSize         uint64 `json:"queue_size"`
}
