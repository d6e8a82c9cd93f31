// Package config provides configuration loading and validation for the
// Nexmosphere bridge server. It handles YAML-based configuration with
// per-section validation and environment overrides for the serial device.
package config
