package config

import (
	"fmt"
	"os"
	"time"

	"github.com/qubelabs/railscan/internal/capture"
	"github.com/qubelabs/railscan/internal/recognize"
	"github.com/qubelabs/railscan/internal/session"
	"github.com/qubelabs/railscan/internal/speech"
)

type Config struct {
	Capture       CaptureConfig       `toml:"capture"`
	Recognition   RecognitionConfig   `toml:"recognition"`
	Session       SessionConfig       `toml:"session"`
	Speech        SpeechConfig        `toml:"speech"`
	Events        EventsConfig        `toml:"events"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type CaptureConfig struct {
	Device         string        `toml:"device"`
	Width          int           `toml:"width"`
	Height         int           `toml:"height"`
	FPS            int           `toml:"fps"`
	Quality        int           `toml:"quality"`
	StartupTimeout time.Duration `toml:"startup_timeout"`
}

type RecognitionConfig struct {
	BaseURL string        `toml:"base_url"`
	Token   string        `toml:"token"`
	Timeout time.Duration `toml:"timeout"`
}

type SessionConfig struct {
	Interval       time.Duration `toml:"interval"`
	TransientLimit int           `toml:"transient_limit"`
}

type SpeechConfig struct {
	Enabled     bool          `toml:"enabled"`
	Provider    string        `toml:"provider"` // "server" or "openai"
	APIKey      string        `toml:"api_key"`
	Model       string        `toml:"model"`
	Language    string        `toml:"language"`
	SampleRate  int           `toml:"sample_rate"`
	MaxDuration time.Duration `toml:"max_duration"`
}

type EventsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"` // local observer endpoint, e.g. 127.0.0.1:7393
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

func (c *Config) ToCaptureConfig() capture.Config {
	return capture.Config{
		Device:         c.Capture.Device,
		Width:          c.Capture.Width,
		Height:         c.Capture.Height,
		FPS:            c.Capture.FPS,
		Quality:        c.Capture.Quality,
		StartupTimeout: c.Capture.StartupTimeout,
	}
}

func (c *Config) ToRecognizeConfig() recognize.Config {
	return recognize.Config{
		BaseURL: c.Recognition.BaseURL,
		Token:   c.Recognition.Token,
		Timeout: c.Recognition.Timeout,
	}
}

func (c *Config) ToSessionConfig() *session.Config {
	return &session.Config{
		Interval:       c.Session.Interval,
		TransientLimit: c.Session.TransientLimit,
	}
}

func (c *Config) ToSpeechConfig() speech.Config {
	cfg := speech.Config{
		Provider:    c.Speech.Provider,
		APIKey:      c.Speech.APIKey,
		Model:       c.Speech.Model,
		Language:    c.Speech.Language,
		SampleRate:  c.Speech.SampleRate,
		MaxDuration: c.Speech.MaxDuration,
		BaseURL:     c.Recognition.BaseURL,
		Token:       c.Recognition.Token,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg
}

func (c *Config) Validate() error {
	// Capture
	if err := c.ToCaptureConfig().Validate(); err != nil {
		return err
	}

	// Recognition
	if c.Recognition.BaseURL == "" {
		return fmt.Errorf("invalid recognition.base_url: empty")
	}
	if c.Recognition.Timeout <= 0 {
		return fmt.Errorf("invalid recognition.timeout: %v", c.Recognition.Timeout)
	}

	// Session
	if c.Session.Interval < 50*time.Millisecond {
		return fmt.Errorf("invalid session.interval: %v (minimum 50ms)", c.Session.Interval)
	}
	if c.Session.TransientLimit <= 0 {
		return fmt.Errorf("invalid session.transient_limit: %d", c.Session.TransientLimit)
	}

	// Speech
	if c.Speech.Enabled {
		switch c.Speech.Provider {
		case "server":
		case "openai":
			if c.Speech.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
				return fmt.Errorf("OpenAI API key required: not found in config (speech.api_key) or environment variable (OPENAI_API_KEY)")
			}
		default:
			return fmt.Errorf("invalid speech.provider: %q (use \"server\" or \"openai\")", c.Speech.Provider)
		}
		if c.Speech.SampleRate <= 0 {
			return fmt.Errorf("invalid speech.sample_rate: %d", c.Speech.SampleRate)
		}
		if c.Speech.MaxDuration <= 0 {
			return fmt.Errorf("invalid speech.max_duration: %v", c.Speech.MaxDuration)
		}
		if c.Speech.Language != "" && !speech.IsSupportedLanguage(c.Speech.Language) {
			return fmt.Errorf("invalid speech.language: %q", c.Speech.Language)
		}
	}

	// Events
	if c.Events.Enabled && c.Events.Listen == "" {
		return fmt.Errorf("invalid events.listen: empty")
	}

	// Notifications
	switch c.Notifications.Type {
	case "", "desktop", "log", "none":
	default:
		return fmt.Errorf("invalid notifications.type: %q (use \"desktop\", \"log\" or \"none\")", c.Notifications.Type)
	}

	return nil
}
