package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the client.
type Config struct {
	ServerURL string `env:"TALKBRIDGE_URL" envDefault:"http://localhost:3000"`
	Env       string `env:"ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Realtime channel reconnection policy
	ReconnectAttempts int           `env:"RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectDelay    time.Duration `env:"RECONNECT_DELAY" envDefault:"1s"`

	// HTTPTimeout of 0 leaves the transport default in place.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`

	// Captures below this size never reach the translation server.
	MinUtteranceBytes int `env:"MIN_UTTERANCE_BYTES" envDefault:"5000"`

	// Audio tooling
	CaptureCommand     string `env:"CAPTURE_COMMAND" envDefault:"ffmpeg"`
	CaptureInputFormat string `env:"CAPTURE_INPUT_FORMAT" envDefault:"pulse"`
	CaptureInput       string `env:"CAPTURE_INPUT" envDefault:"default"`
	PlayerCommand      string `env:"PLAYER_COMMAND" envDefault:"ffplay"`

	// Local control API; empty disables it.
	ControlAddr    string   `env:"CONTROL_ADDR" envDefault:"127.0.0.1:8787"`
	ControlOrigins []string `env:"CONTROL_ORIGINS" envSeparator:"," envDefault:"http://localhost:*,http://127.0.0.1:*"`

	// Optional transcript archive: sqlite://path, postgres://..., redis://...
	TranscriptURL string `env:"TRANSCRIPT_URL"`
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that env parsing cannot express.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.ServerURL); err != nil {
		return fmt.Errorf("invalid TALKBRIDGE_URL %q: %w", c.ServerURL, err)
	}
	if c.MinUtteranceBytes <= 0 {
		return fmt.Errorf("MIN_UTTERANCE_BYTES must be positive, got %d", c.MinUtteranceBytes)
	}
	if c.ReconnectAttempts < 0 {
		return fmt.Errorf("RECONNECT_ATTEMPTS must not be negative, got %d", c.ReconnectAttempts)
	}
	if c.ReconnectDelay < 0 {
		return fmt.Errorf("RECONNECT_DELAY must not be negative, got %s", c.ReconnectDelay)
	}
	if c.TranscriptURL != "" {
		if _, err := TranscriptScheme(c.TranscriptURL); err != nil {
			return err
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// TranscriptScheme returns the archive backend named by a transcript URL.
func TranscriptScheme(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid TRANSCRIPT_URL: %w", err)
	}
	switch u.Scheme {
	case "sqlite", "redis", "rediss":
		return u.Scheme, nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported TRANSCRIPT_URL scheme %q", u.Scheme)
	}
}
