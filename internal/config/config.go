package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	TUIO    TUIOConfig    `yaml:"tuio"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// SerialConfig contains serial device and command dispatch configuration
type SerialConfig struct {
	Device         string `yaml:"device"`
	BaudRate       int    `yaml:"baud_rate"`
	RateLimitMs    int    `yaml:"rate_limit_ms"`    // minimum interval between sends
	PollIntervalMs int    `yaml:"poll_interval_ms"` // idle-device poll delay
	ReadBackoffMs  int    `yaml:"read_backoff_ms"`  // pause after a failed read
	CommandFile    string `yaml:"command_file"`     // optional startup command script
}

// TUIOConfig contains the UDP listener configuration
type TUIOConfig struct {
	UDPPort     int    `yaml:"udp_port"`
	BindAddress string `yaml:"bind_address"`
	BufferSize  int    `yaml:"buffer_size"`
}

// HTTPConfig contains HTTP/WebSocket server configuration
type HTTPConfig struct {
	Port      int    `yaml:"port"`
	Address   string `yaml:"address"`
	StaticDir string `yaml:"static_dir"` // optional directory of static files
	Enabled   bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file, then applies environment
// overrides (SERIAL_DEVICE, SERIAL_BAUD_RATE have no file equivalent on
// deployments where the device node varies per host).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if device := os.Getenv("SERIAL_DEVICE"); device != "" {
		config.Serial.Device = device
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the full configuration
func (c *Config) Validate() error {
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("serial config: %w", err)
	}

	if err := c.TUIO.Validate(); err != nil {
		return fmt.Errorf("tuio config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates serial configuration
func (s *SerialConfig) Validate() error {
	if s.Device == "" {
		return fmt.Errorf("device cannot be empty")
	}

	if s.BaudRate < 1 {
		return fmt.Errorf("baud_rate must be positive, got %d", s.BaudRate)
	}

	if s.RateLimitMs < 0 {
		return fmt.Errorf("rate_limit_ms cannot be negative, got %d", s.RateLimitMs)
	}

	if s.PollIntervalMs < 1 {
		return fmt.Errorf("poll_interval_ms must be at least 1, got %d", s.PollIntervalMs)
	}

	if s.ReadBackoffMs < s.PollIntervalMs {
		return fmt.Errorf("read_backoff_ms (%d) must be at least poll_interval_ms (%d)",
			s.ReadBackoffMs, s.PollIntervalMs)
	}

	return nil
}

// Validate validates TUIO listener configuration
func (t *TUIOConfig) Validate() error {
	if t.UDPPort < 1 || t.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", t.UDPPort)
	}

	if t.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if t.BufferSize < 1024 {
		return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", t.BufferSize)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if !h.Enabled {
		return nil
	}

	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty when HTTP is enabled")
	}

	if h.StaticDir != "" {
		info, err := os.Stat(h.StaticDir)
		if err != nil {
			return fmt.Errorf("static_dir %s: %w", h.StaticDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("static_dir %s is not a directory", h.StaticDir)
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetRateLimit returns the minimum inter-command interval as a time.Duration
func (s *SerialConfig) GetRateLimit() time.Duration {
	return time.Duration(s.RateLimitMs) * time.Millisecond
}

// GetPollInterval returns the idle poll delay as a time.Duration
func (s *SerialConfig) GetPollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// GetReadBackoff returns the read-error backoff as a time.Duration
func (s *SerialConfig) GetReadBackoff() time.Duration {
	return time.Duration(s.ReadBackoffMs) * time.Millisecond
}
