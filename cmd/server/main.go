package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecommersive/nexmosphere-server/internal/config"
	"github.com/ecommersive/nexmosphere-server/internal/dispatch"
	"github.com/ecommersive/nexmosphere-server/internal/hub"
	"github.com/ecommersive/nexmosphere-server/internal/metrics"
	"github.com/ecommersive/nexmosphere-server/internal/serialport"
	"github.com/ecommersive/nexmosphere-server/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "nexmosphere-server"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	device := flag.String("device", "", "Serial device path (overrides configuration)")
	flag.Parse()

	// Load .env if present; environment variables override file values
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "No .env file loaded: %v\n", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("serial_device", cfg.Serial.Device),
		slog.Int("baud_rate", cfg.Serial.BaudRate),
		slog.Int("rate_limit_ms", cfg.Serial.RateLimitMs),
		slog.Int("udp_port", cfg.TUIO.UDPPort),
		slog.String("bind_address", cfg.TUIO.BindAddress),
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the serial device
	port, err := serialport.Open(cfg.Serial.Device, cfg.Serial.BaudRate)
	if err != nil {
		logger.Error("Failed to open serial device",
			slog.String("device", cfg.Serial.Device),
			slog.String("error", err.Error()),
		)
		if ports := serialport.AvailablePorts(); len(ports) > 0 {
			logger.Info("Available serial ports", slog.String("ports", strings.Join(ports, ", ")))
		}
		os.Exit(1)
	}
	logger.Info("Serial device opened",
		slog.String("device", cfg.Serial.Device),
		slog.Int("baud_rate", cfg.Serial.BaudRate),
	)

	// Initialize the subscriber hub
	eventHub := hub.New(logger)

	// Initialize the rate-limited command queue
	queue := dispatch.NewQueue(port, cfg.Serial.GetRateLimit(), logger, appMetrics)

	// Initialize the serial reader
	reader := serialport.NewReader(port, eventHub, logger, appMetrics,
		cfg.Serial.GetPollInterval(), cfg.Serial.GetReadBackoff())

	// Initialize the TUIO/OSC listener
	udpListener := server.NewUDPListener(&cfg.TUIO, logger, eventHub, appMetrics)

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg, logger, eventHub, queue, udpListener, reader, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Preload startup commands into the queue
	if cfg.Serial.CommandFile != "" {
		count, err := dispatch.LoadCommandFile(cfg.Serial.CommandFile, queue, logger)
		if err != nil {
			logger.Error("Failed to load command file",
				slog.String("path", cfg.Serial.CommandFile),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		if count > 0 {
			logger.Info("Startup commands queued",
				slog.String("path", cfg.Serial.CommandFile),
				slog.Int("count", count),
			)
		}
	}

	// Start the TUIO listener
	if err := udpListener.Start(); err != nil {
		logger.Error("Failed to start TUIO listener", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Start the serial reader and command dispatcher loops
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reader.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		queue.Run(ctx)
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("udp_address", fmt.Sprintf("%s:%d", cfg.TUIO.BindAddress, cfg.TUIO.UDPPort)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the TUIO listener (stop accepting new datagrams)
	if err := udpListener.Stop(); err != nil {
		logger.Error("Error stopping TUIO listener", slog.String("error", err.Error()))
	}

	// Stop the serial reader and command dispatcher
	cancel()
	wg.Wait()

	// Disconnect remaining subscribers and close the device
	eventHub.CloseAll()
	if err := port.Close(); err != nil {
		logger.Error("Error closing serial device", slog.String("error", err.Error()))
	}

	// Get final statistics
	queueStats := queue.GetStatistics()
	readerStats := reader.GetStatistics()
	logger.Info("Final service statistics",
		slog.Uint64("serial_lines_read", readerStats.LinesRead),
		slog.Uint64("serial_read_errors", readerStats.ReadErrors),
		slog.Uint64("commands_sent", queueStats.Sent),
		slog.Uint64("command_send_errors", queueStats.SendErrors),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
