// Package config loads the service configuration from an optional yaml file
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey is the environment variable holding the provider credential.
// The key is read from the environment only, never from the config file.
const EnvAPIKey = "OPENAI_API_KEY"

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains the HTTP API listener configuration.
type ServerConfig struct {
	Address     string `yaml:"address"`
	Port        int    `yaml:"port"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// TranscriptionConfig contains the provider call policy.
type TranscriptionConfig struct {
	Models                 []string `yaml:"models"`
	Attempts               int      `yaml:"attempts"`
	BackoffSeconds         int      `yaml:"backoff_seconds"`
	InterChunkDelaySeconds int      `yaml:"inter_chunk_delay_seconds"`
	MinChunkBytes          int      `yaml:"min_chunk_bytes"`
}

// MetricsConfig contains the Prometheus listener configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:     "0.0.0.0",
			Port:        8080,
			MaxUploadMB: 100,
		},
		Transcription: TranscriptionConfig{
			Models:                 []string{"gpt-4o-mini-transcribe", "whisper-1"},
			Attempts:               3,
			BackoffSeconds:         20,
			InterChunkDelaySeconds: 20,
			MinChunkBytes:          1024,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the yaml file at path (if
// path is non-empty), then environment overrides (PORT). The result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's --config flag
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// APIKey returns the provider credential from the environment, empty when
// unset. A missing key is not a startup error: sessions fail individually
// with a credential error.
func APIKey() string {
	return os.Getenv(EnvAPIKey)
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if s.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", s.MaxUploadMB)
	}
	return nil
}

func (t *TranscriptionConfig) Validate() error {
	if len(t.Models) == 0 {
		return fmt.Errorf("models cannot be empty")
	}
	if t.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", t.Attempts)
	}
	if t.BackoffSeconds < 0 {
		return fmt.Errorf("backoff_seconds cannot be negative, got %d", t.BackoffSeconds)
	}
	if t.InterChunkDelaySeconds < 0 {
		return fmt.Errorf("inter_chunk_delay_seconds cannot be negative, got %d", t.InterChunkDelaySeconds)
	}
	if t.MinChunkBytes < 0 {
		return fmt.Errorf("min_chunk_bytes cannot be negative, got %d", t.MinChunkBytes)
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", m.Port)
	}
	if m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("format must be 'json' or 'text', got %q", l.Format)
	}
	return nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (s *ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB * 1024 * 1024
}

// Backoff returns the retry delay as a time.Duration.
func (t *TranscriptionConfig) Backoff() time.Duration {
	return time.Duration(t.BackoffSeconds) * time.Second
}

// InterChunkDelay returns the inter-chunk pause as a time.Duration.
func (t *TranscriptionConfig) InterChunkDelay() time.Duration {
	return time.Duration(t.InterChunkDelaySeconds) * time.Second
}
