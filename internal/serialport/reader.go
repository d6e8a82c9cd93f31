package serialport

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ecommersive/nexmosphere-server/internal/event"
	"github.com/ecommersive/nexmosphere-server/internal/metrics"
)

// Broadcaster receives the events the ingest loop produces.
type Broadcaster interface {
	Broadcast(evt any)
}

// Reader is the serial ingest loop. It polls the device for available
// bytes, splits them into lines, and broadcasts each non-empty line as a
// timestamped serial event. Read errors are logged and retried after a
// backoff; only context cancellation stops the loop.
type Reader struct {
	port         Port
	hub          Broadcaster
	logger       *slog.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
	errorBackoff time.Duration

	pending []byte

	mu         sync.RWMutex
	linesRead  uint64
	readErrors uint64
}

// NewReader creates an ingest loop over the device's read side. The poll
// interval bounds how long the loop sleeps when no bytes are available;
// the error backoff is the longer pause after a failed read.
func NewReader(port Port, hub Broadcaster, logger *slog.Logger, m *metrics.Metrics, pollInterval, errorBackoff time.Duration) *Reader {
	return &Reader{
		port:         port,
		hub:          hub,
		logger:       logger,
		metrics:      m,
		pollInterval: pollInterval,
		errorBackoff: errorBackoff,
	}
}

// Run reads from the device until the context is cancelled. The read
// timeout doubles as the poll delay, so an idle device never busy-spins.
func (r *Reader) Run(ctx context.Context) {
	if err := r.port.SetReadTimeout(r.pollInterval); err != nil {
		r.logger.Warn("failed to set serial read timeout", slog.String("error", err.Error()))
	}

	buffer := make([]byte, 1024)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("serial reader stopping")
			return
		default:
		}

		n, err := r.port.Read(buffer)
		if err != nil {
			r.mu.Lock()
			r.readErrors++
			r.mu.Unlock()

			r.metrics.RecordSerialReadError()
			r.logger.Error("serial read error", slog.String("error", err.Error()))

			select {
			case <-ctx.Done():
				return
			case <-time.After(r.errorBackoff):
			}
			continue
		}

		// n == 0 means the read timed out with no data; loop back and
		// re-check for cancellation.
		if n > 0 {
			r.consume(buffer[:n])
		}
	}
}

// consume appends a chunk to the pending buffer and broadcasts every
// complete line it now holds. A partial trailing line stays buffered for
// the next read.
func (r *Reader) consume(chunk []byte) {
	r.pending = append(r.pending, chunk...)

	for {
		idx := bytes.IndexByte(r.pending, '\n')
		if idx < 0 {
			return
		}

		raw := r.pending[:idx]
		r.pending = r.pending[idx+1:]

		// Invalid UTF-8 sequences are dropped, never an error.
		line := strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
		if line == "" {
			continue
		}

		r.mu.Lock()
		r.linesRead++
		r.mu.Unlock()

		r.metrics.RecordSerialLine()

		evt := event.NewSerial(time.Now(), line)
		r.logger.Debug("serial line received",
			slog.String("data", line),
			slog.String("timestamp", evt.Timestamp),
		)

		r.hub.Broadcast(evt)
		r.metrics.RecordBroadcast("serial")
	}
}

// GetStatistics returns current ingest counters.
func (r *Reader) GetStatistics() ReaderStatistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return ReaderStatistics{
		LinesRead:  r.linesRead,
		ReadErrors: r.readErrors,
	}
}

// ReaderStatistics represents serial ingest counters.
type ReaderStatistics struct {
	LinesRead  uint64 `json:"lines_read"`
	ReadErrors uint64 `json:"read_errors"`
}
