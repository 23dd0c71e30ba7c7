package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			Device:         "/dev/video0",
			Width:          1280,
			Height:         720,
			FPS:            10,
			Quality:        5,
			StartupTimeout: 5 * time.Second,
		},
		Recognition: RecognitionConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Interval:       200 * time.Millisecond,
			TransientLimit: 15,
		},
		Speech: SpeechConfig{
			Enabled:     false,
			Provider:    "server",
			Language:    "en",
			SampleRate:  16000,
			MaxDuration: 2 * time.Minute,
		},
		Events: EventsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:7393",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
