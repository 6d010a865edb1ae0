// Package config holds all configuration types and loading logic for mdbridge.
// Config structure never shrinks — fields are only added, never renamed or removed.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for an mdbridge server instance.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Stream  StreamConfig  `yaml:"stream"`
	Limits  LimitsConfig  `yaml:"limits"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds network settings for the bridge listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig controls the bearer-token guard on every data-plane endpoint.
// An empty token disables the guard entirely — acceptable for localhost dev,
// loudly warned about at startup.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// Backend selects which Store implementation backs the queue.
type Backend string

const (
	BackendMemory Backend = "memory" // process-local, lost on restart
	BackendBolt   Backend = "bolt"   // bbolt file inside data_dir
)

// StorageConfig controls how queued items are held.
type StorageConfig struct {
	Backend Backend `yaml:"backend"`
	DataDir string  `yaml:"data_dir"`
}

// QueueConfig sets limits that apply to item acceptance and inspection.
type QueueConfig struct {
	// MaxContentKB caps the content size of a single submission.
	MaxContentKB int `yaml:"max_content_kb"`
	// PeekLimit is how many items /peek returns (count is always the total).
	PeekLimit int `yaml:"peek_limit"`
}

// StreamConfig tunes the push transports (/stream and /ws).
type StreamConfig struct {
	// PollIntervalMs is how often the push loop drains the oldest item.
	PollIntervalMs int `yaml:"poll_interval_ms"`
	// SessionMaxMs bounds a single stream session. Chosen to stay under
	// typical proxy/platform connection caps; clients reconnect.
	SessionMaxMs int `yaml:"session_max_ms"`
}

// LimitsConfig controls per-IP request rate limiting.
type LimitsConfig struct {
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
}

// MetricsConfig controls the Prometheus metrics listener.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns a Config populated with safe, sensible defaults.
// It is the canonical source of truth for default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Auth: AuthConfig{
			Token: "",
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			DataDir: "./data",
		},
		Queue: QueueConfig{
			MaxContentKB: 256,
			PeekLimit:    10,
		},
		Stream: StreamConfig{
			PollIntervalMs: 2_000,
			SessionMaxMs:   25_000,
		},
		Limits: LimitsConfig{
			RateRPS:   50,
			RateBurst: 100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Load reads a YAML config file at path and overlays it on top of Default().
// If the file does not exist the default config is returned without error,
// making it easy to run mdbridge with no config file at all.
//
// After loading the file, environment variables are applied as overrides:
//
//	MDBRIDGE_TOKEN     — sets auth.token
//	MDBRIDGE_PORT      — sets server.port
//	MDBRIDGE_DATA_DIR  — sets storage.data_dir
//	MDBRIDGE_BACKEND   — sets storage.backend ("memory" or "bolt")
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variable overrides onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MDBRIDGE_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("MDBRIDGE_PORT"); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("MDBRIDGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MDBRIDGE_BACKEND"); v != "" {
		cfg.Storage.Backend = Backend(v)
	}
}

// Validate checks that the config values are consistent and within acceptable
// ranges. It returns the first error found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendBolt:
		// valid
	default:
		return fmt.Errorf("storage.backend must be %q or %q", BackendMemory, BackendBolt)
	}
	if c.Storage.Backend == BackendBolt && c.Storage.DataDir == "" {
		return errors.New("storage.data_dir must not be empty when backend is bolt")
	}
	if c.Queue.MaxContentKB < 1 {
		return errors.New("queue.max_content_kb must be at least 1")
	}
	if c.Queue.PeekLimit < 1 {
		return errors.New("queue.peek_limit must be at least 1")
	}
	if c.Stream.PollIntervalMs < 1 {
		return errors.New("stream.poll_interval_ms must be at least 1")
	}
	if c.Stream.SessionMaxMs < c.Stream.PollIntervalMs {
		return errors.New("stream.session_max_ms must be at least stream.poll_interval_ms")
	}
	if c.Limits.RateRPS <= 0 {
		return errors.New("limits.rate_rps must be positive")
	}
	if c.Limits.RateBurst < 1 {
		return errors.New("limits.rate_burst must be at least 1")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return errors.New("metrics.port must be between 1 and 65535")
	}
	return nil
}
