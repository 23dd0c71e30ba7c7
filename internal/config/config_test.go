package config

import (
	"testing"
	"time"

	"github.com/BurntSushi/toml"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Recognition.BaseURL = "" }},
		{"zero recognition timeout", func(c *Config) { c.Recognition.Timeout = 0 }},
		{"interval below floor", func(c *Config) { c.Session.Interval = 20 * time.Millisecond }},
		{"zero transient limit", func(c *Config) { c.Session.TransientLimit = 0 }},
		{"bad capture quality", func(c *Config) { c.Capture.Quality = 99 }},
		{"unknown notification type", func(c *Config) { c.Notifications.Type = "carrier-pigeon" }},
		{"unknown speech provider", func(c *Config) {
			c.Speech.Enabled = true
			c.Speech.Provider = "whisperx"
		}},
		{"unsupported speech language", func(c *Config) {
			c.Speech.Enabled = true
			c.Speech.Language = "xx"
		}},
		{"events enabled without listen", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Listen = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tc.name)
			}
		})
	}
}

func TestDecodeOverDefaults(t *testing.T) {
	// durations are stored as nanosecond integers
	doc := `
[capture]
device = "/dev/video3"

[recognition]
base_url = "https://assets.example.net"
token = "secret"

[session]
interval = 100000000
transient_limit = 3

[notifications]
type = "log"
`
	cfg := DefaultConfig()
	if _, err := toml.Decode(doc, cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if cfg.Capture.Device != "/dev/video3" {
		t.Errorf("device = %q", cfg.Capture.Device)
	}
	// untouched sections keep their defaults
	if cfg.Capture.Width != 1280 || cfg.Capture.FPS != 10 {
		t.Errorf("capture defaults lost: %+v", cfg.Capture)
	}
	if cfg.Recognition.BaseURL != "https://assets.example.net" || cfg.Recognition.Token != "secret" {
		t.Errorf("recognition = %+v", cfg.Recognition)
	}
	if cfg.Session.Interval != 100*time.Millisecond {
		t.Errorf("interval = %v", cfg.Session.Interval)
	}
	if cfg.Session.TransientLimit != 3 {
		t.Errorf("transient limit = %d", cfg.Session.TransientLimit)
	}
	if cfg.Notifications.Type != "log" {
		t.Errorf("notifications type = %q", cfg.Notifications.Type)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("decoded config invalid: %v", err)
	}
}

func TestToSessionConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Interval = 300 * time.Millisecond
	cfg.Session.TransientLimit = 7

	sc := cfg.ToSessionConfig()
	if sc.Interval != 300*time.Millisecond || sc.TransientLimit != 7 {
		t.Errorf("session config = %+v", sc)
	}
}

func TestToSpeechConfigEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg := DefaultConfig()
	cfg.Speech.Provider = "openai"
	sc := cfg.ToSpeechConfig()
	if sc.APIKey != "env-key" {
		t.Errorf("api key = %q, want env fallback", sc.APIKey)
	}

	cfg.Speech.APIKey = "file-key"
	sc = cfg.ToSpeechConfig()
	if sc.APIKey != "file-key" {
		t.Errorf("api key = %q, config value must win", sc.APIKey)
	}
}
