package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TALKBRIDGE_URL", "http://192.168.1.10:3000/")
	t.Setenv("TRANSCRIPT_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://192.168.1.10:3000" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.ServerURL)
	}
	if cfg.ReconnectAttempts != 5 {
		t.Errorf("expected 5 reconnect attempts, got %d", cfg.ReconnectAttempts)
	}
	if cfg.ReconnectDelay != time.Second {
		t.Errorf("expected 1s reconnect delay, got %s", cfg.ReconnectDelay)
	}
	if cfg.MinUtteranceBytes != 5000 {
		t.Errorf("expected 5000 byte threshold, got %d", cfg.MinUtteranceBytes)
	}
	if len(cfg.ControlOrigins) != 2 || cfg.ControlOrigins[0] != "http://localhost:*" {
		t.Errorf("unexpected control origins %v", cfg.ControlOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{ServerURL: "http://localhost:3000", MinUtteranceBytes: 5000, ReconnectAttempts: 5}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero threshold", func(c *Config) { c.MinUtteranceBytes = 0 }, true},
		{"negative attempts", func(c *Config) { c.ReconnectAttempts = -1 }, true},
		{"bad server url", func(c *Config) { c.ServerURL = "not a url" }, true},
		{"sqlite transcript", func(c *Config) { c.TranscriptURL = "sqlite:///tmp/t.db" }, false},
		{"postgres transcript", func(c *Config) { c.TranscriptURL = "postgres://u:p@localhost/db" }, false},
		{"unknown transcript", func(c *Config) { c.TranscriptURL = "mongodb://localhost" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
