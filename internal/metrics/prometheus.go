package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the bridge server
type Metrics struct {
	// UDP/TUIO metrics
	DatagramsReceived prometheus.Counter
	EmptyDecodes      prometheus.Counter
	EventsDropped     prometheus.Counter
	TuioMessages      prometheus.Histogram

	// Serial metrics
	SerialLinesRead  prometheus.Counter
	SerialReadErrors prometheus.Counter

	// Broadcast metrics
	EventsBroadcast  *prometheus.CounterVec
	ConnectedClients prometheus.Gauge

	// Command dispatch metrics
	CommandsEnqueued   prometheus.Counter
	CommandsSent       prometheus.Counter
	CommandSendErrors  prometheus.Counter
	CommandQueueLength prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		DatagramsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_tuio_datagrams_received_total",
			Help: "Total number of UDP datagrams received",
		}),
		EmptyDecodes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_tuio_empty_decodes_total",
			Help: "Total number of datagrams that decoded to zero OSC messages",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_tuio_events_dropped_total",
			Help: "Total number of TUIO events dropped due to a full broadcast queue",
		}),
		TuioMessages: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexmosphere_tuio_messages_per_datagram",
			Help:    "Number of OSC messages decoded per datagram",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),

		SerialLinesRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_serial_lines_read_total",
			Help: "Total number of lines read from the serial device",
		}),
		SerialReadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_serial_read_errors_total",
			Help: "Total number of serial read errors",
		}),

		EventsBroadcast: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nexmosphere_events_broadcast_total",
			Help: "Total number of events handed to the broadcast hub",
		}, []string{"source"}),
		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nexmosphere_connected_clients",
			Help: "Current number of connected WebSocket clients",
		}),

		CommandsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_commands_enqueued_total",
			Help: "Total number of commands accepted into the dispatch queue",
		}),
		CommandsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_commands_sent_total",
			Help: "Total number of commands written to the serial device",
		}),
		CommandSendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexmosphere_command_send_errors_total",
			Help: "Total number of failed command writes",
		}),
		CommandQueueLength: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nexmosphere_command_queue_length",
			Help: "Current number of commands waiting in the dispatch queue",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nexmosphere_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nexmosphere_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nexmosphere_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordDatagram increments the datagrams received counter
func (m *Metrics) RecordDatagram() {
	m.DatagramsReceived.Inc()
}

// RecordDecode records the outcome of decoding one datagram
func (m *Metrics) RecordDecode(messageCount int) {
	if messageCount == 0 {
		m.EmptyDecodes.Inc()
		return
	}
	m.TuioMessages.Observe(float64(messageCount))
}

// RecordEventDropped increments the dropped events counter
func (m *Metrics) RecordEventDropped() {
	m.EventsDropped.Inc()
}

// RecordSerialLine increments the serial lines read counter
func (m *Metrics) RecordSerialLine() {
	m.SerialLinesRead.Inc()
}

// RecordSerialReadError increments the serial read error counter
func (m *Metrics) RecordSerialReadError() {
	m.SerialReadErrors.Inc()
}

// RecordBroadcast counts one event handed to the hub from the given source
func (m *Metrics) RecordBroadcast(source string) {
	m.EventsBroadcast.WithLabelValues(source).Inc()
}

// ClientConnected increments the connected clients gauge
func (m *Metrics) ClientConnected() {
	m.ConnectedClients.Inc()
}

// ClientDisconnected decrements the connected clients gauge
func (m *Metrics) ClientDisconnected() {
	m.ConnectedClients.Dec()
}

// RecordCommandEnqueued records a command entering the queue
func (m *Metrics) RecordCommandEnqueued(queueLength int) {
	m.CommandsEnqueued.Inc()
	m.CommandQueueLength.Set(float64(queueLength))
}

// RecordCommandSent records a successful command write
func (m *Metrics) RecordCommandSent(queueLength int) {
	m.CommandsSent.Inc()
	m.CommandQueueLength.Set(float64(queueLength))
}

// RecordCommandSendError records a failed command write
func (m *Metrics) RecordCommandSendError() {
	m.CommandSendErrors.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
