package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecommersive/nexmosphere-server/internal/config"
	"github.com/ecommersive/nexmosphere-server/internal/dispatch"
	"github.com/ecommersive/nexmosphere-server/internal/hub"
	"github.com/ecommersive/nexmosphere-server/internal/metrics"
	"github.com/ecommersive/nexmosphere-server/internal/serialport"
)

// HTTPServer provides the WebSocket endpoint, the command API, and
// monitoring endpoints.
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	hub      *hub.Hub
	queue    *dispatch.Queue
	listener *UDPListener
	reader   *serialport.Reader
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	startTime time.Time
}

// NewHTTPServer creates the HTTP front end.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, h *hub.Hub,
	q *dispatch.Queue, l *UDPListener, r *serialport.Reader, m *metrics.Metrics) *HTTPServer {

	s := &HTTPServer{
		logger:   logger,
		config:   cfg,
		hub:      h,
		queue:    q,
		listener: l,
		reader:   r,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures the HTTP API routes
func (s *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// WebSocket subscribers
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Command API
	mux.HandleFunc("/send-command", s.withMetrics("/send-command", s.handleSendCommand))
	mux.HandleFunc("/queue-status", s.withMetrics("/queue-status", s.handleQueueStatus))

	// Monitoring
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))
	mux.Handle("/metrics", promhttp.Handler())

	// Static test client, or API documentation when none is configured
	if s.config.HTTP.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.config.HTTP.StaticDir)))
	} else {
		mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
	}
}

// withMetrics wraps an HTTP handler with request metrics collection
func (s *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)
		s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", slog.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server...")

	return s.server.Shutdown(ctx)
}

// handleWebSocket upgrades the connection and registers the subscriber.
func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := NewClient(uuid.New().String(), ws, s.hub, s.logger, s.metrics)
	client.Start()
}

// sendCommandRequest is the POST /send-command payload.
type sendCommandRequest struct {
	Command string `json:"command"`
}

// handleSendCommand implements POST /send-command
func (s *HTTPServer) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
		return
	}

	command := strings.TrimSpace(req.Command)
	if command == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Command is required"})
		return
	}

	queueLength := s.queue.Enqueue(command)
	s.logger.Info("command accepted",
		slog.String("command", command),
		slog.Int("queue_length", queueLength),
	)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"command":   command,
		"queued":    true,
		"queueSize": queueLength,
	})
}

// handleQueueStatus implements GET /queue-status
func (s *HTTPServer) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"queueLength":  s.queue.Len(),
		"isProcessing": s.queue.Pending(),
		"rateLimitMs":  s.config.Serial.RateLimitMs,
	})
}

// handleHealth implements GET /health
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	udpStats := s.listener.GetStatistics()
	serialStats := s.reader.GetStatistics()
	queueStats := s.queue.GetStatistics()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"components": map[string]any{
			"tuio_listener": map[string]any{
				"status":             "running",
				"datagrams_received": udpStats.DatagramsReceived,
				"events_broadcast":   udpStats.EventsBroadcast,
			},
			"serial_reader": map[string]any{
				"status":      "running",
				"lines_read":  serialStats.LinesRead,
				"read_errors": serialStats.ReadErrors,
			},
			"command_queue": map[string]any{
				"status":       "running",
				"queue_length": queueStats.QueueLength,
				"sent":         queueStats.Sent,
				"send_errors":  queueStats.SendErrors,
			},
			"hub": map[string]any{
				"status":  "running",
				"clients": s.hub.Count(),
			},
		},
	})
}

// handleStats implements GET /stats
func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
		"tuio":      s.listener.GetStatistics(),
		"serial":    s.reader.GetStatistics(),
		"commands":  s.queue.GetStatistics(),
		"clients":   s.hub.Count(),
	})
}

// handleConfig implements GET /config
func (s *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"serial": map[string]any{
			"device":           s.config.Serial.Device,
			"baud_rate":        s.config.Serial.BaudRate,
			"rate_limit_ms":    s.config.Serial.RateLimitMs,
			"poll_interval_ms": s.config.Serial.PollIntervalMs,
			"command_file":     s.config.Serial.CommandFile,
		},
		"tuio": map[string]any{
			"udp_port":     s.config.TUIO.UDPPort,
			"bind_address": s.config.TUIO.BindAddress,
			"buffer_size":  s.config.TUIO.BufferSize,
		},
		"http": map[string]any{
			"port":       s.config.HTTP.Port,
			"address":    s.config.HTTP.Address,
			"static_dir": s.config.HTTP.StaticDir,
		},
		"logging": map[string]any{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	})
}

// handleRoot implements the / endpoint with API documentation
func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": "Nexmosphere Bridge Server",
		"endpoints": map[string]any{
			"GET /ws":            "WebSocket event stream",
			"POST /send-command": "Queue a command for the serial device",
			"GET /queue-status":  "Command queue status",
			"GET /health":        "Service health check",
			"GET /stats":         "Service statistics",
			"GET /config":        "Service configuration",
			"GET /metrics":       "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
