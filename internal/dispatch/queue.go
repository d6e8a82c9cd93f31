package dispatch

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ecommersive/nexmosphere-server/internal/metrics"
)

// lineTerminator is appended to outbound commands that do not already
// carry one. The controller expects CRLF-terminated command lines.
const lineTerminator = "\r\n"

// Queue is the rate-limited FIFO of outbound serial commands. Enqueue
// never blocks and the queue is unbounded; commands are small and
// low-frequency. Run must be started exactly once.
type Queue struct {
	writer   io.Writer
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	pending  []string
	lastSent time.Time

	// Counters
	enqueued   uint64
	sent       uint64
	sendErrors uint64

	notify chan struct{}
}

// NewQueue creates a command queue writing to the serial device's write
// side, spacing sends at least minInterval apart.
func NewQueue(w io.Writer, minInterval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Queue {
	return &Queue{
		writer:   w,
		interval: minInterval,
		logger:   logger,
		metrics:  m,
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends a command and returns the new queue length. It never
// blocks and never fails.
func (q *Queue) Enqueue(command string) int {
	q.mu.Lock()
	q.pending = append(q.pending, command)
	q.enqueued++
	length := len(q.pending)
	q.mu.Unlock()

	q.metrics.RecordCommandEnqueued(length)

	select {
	case q.notify <- struct{}{}:
	default:
	}

	q.logger.Debug("command queued",
		slog.String("command", command),
		slog.Int("queue_length", length),
	)

	return length
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Pending reports whether any commands are waiting. The answer is a
// snapshot; concurrent enqueues and sends may change it immediately.
func (q *Queue) Pending() bool {
	return q.Len() > 0
}

// Run dispatches queued commands until the context is cancelled. Between
// consecutive sends it waits out the remainder of the minimum interval;
// the serial write itself is never interrupted, so a command is either
// fully written or not sent at all.
func (q *Queue) Run(ctx context.Context) {
	for {
		command, ok := q.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.notify:
			}
			continue
		}

		if wait := q.waitTime(time.Now()); wait > 0 {
			q.logger.Debug("rate limiting", slog.Duration("wait", wait))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		line := Normalize(command)
		if _, err := q.writer.Write([]byte(line)); err != nil {
			// Fire and forget: a failed command is never retried.
			q.mu.Lock()
			q.sendErrors++
			q.mu.Unlock()

			q.metrics.RecordCommandSendError()

			q.logger.Error("failed to send command",
				slog.String("command", command),
				slog.String("error", err.Error()),
			)
			continue
		}

		q.mu.Lock()
		q.lastSent = time.Now()
		q.sent++
		remaining := len(q.pending)
		q.mu.Unlock()

		q.metrics.RecordCommandSent(remaining)
		q.logger.Info("command sent", slog.String("command", command))
	}
}

// dequeue pops the oldest pending command.
func (q *Queue) dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return "", false
	}

	command := q.pending[0]
	q.pending = q.pending[1:]
	return command, true
}

// waitTime computes how long the dispatcher must wait before the next
// send. Before the first send, and whenever the clock reads earlier than
// expected, the answer is zero.
func (q *Queue) waitTime(now time.Time) time.Duration {
	q.mu.Lock()
	last := q.lastSent
	q.mu.Unlock()

	if last.IsZero() {
		return 0
	}

	wait := q.interval - now.Sub(last)
	if wait < 0 {
		return 0
	}
	return wait
}

// Normalize trims a command and appends the line terminator if missing.
func Normalize(command string) string {
	command = strings.TrimSpace(command)
	if !strings.HasSuffix(command, lineTerminator) {
		command += lineTerminator
	}
	return command
}

// GetStatistics returns current queue counters.
func (q *Queue) GetStatistics() QueueStatistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueStatistics{
		QueueLength: uint64(len(q.pending)),
		Enqueued:    q.enqueued,
		Sent:        q.sent,
		SendErrors:  q.sendErrors,
	}
}

// QueueStatistics represents queue performance counters.
type QueueStatistics struct {
	QueueLength uint64 `json:"queue_length"`
	Enqueued    uint64 `json:"enqueued"`
	Sent        uint64 `json:"sent"`
	SendErrors  uint64 `json:"send_errors"`
}
