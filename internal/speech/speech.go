// Package speech captures short voice notes and turns them into text, either
// through the asset service's speech endpoint or directly through OpenAI.
// It follows the same discipline as the detection session: the microphone is
// an exclusively-owned capture resource, released on every exit path.
package speech

import (
	"context"
	"fmt"
	"time"
)

// Config for one voice-note capture and transcription.
type Config struct {
	Provider    string // "server" or "openai"
	APIKey      string
	Model       string
	Language    string
	SampleRate  int
	MaxDuration time.Duration

	// server provider connection, shared with the recognition service
	BaseURL string
	Token   string
}

// Transcriber turns raw PCM audio into text in one round trip.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// NewTranscriber selects the transcription backend from the config.
func NewTranscriber(cfg Config) (Transcriber, error) {
	switch cfg.Provider {
	case "server", "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("speech: server provider requires a recognition base URL")
		}
		return newServerTranscriber(cfg), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("speech: OpenAI API key required")
		}
		return newOpenAITranscriber(cfg), nil
	default:
		return nil, fmt.Errorf("speech: unsupported provider: %s", cfg.Provider)
	}
}

// supportedLanguages mirrors the language list the asset service's speech
// endpoint advertises.
var supportedLanguages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"hi": "Hindi",
	"zh": "Chinese",
	"ja": "Japanese",
}

func IsSupportedLanguage(code string) bool {
	_, ok := supportedLanguages[code]
	return ok
}

func SupportedLanguages() map[string]string {
	out := make(map[string]string, len(supportedLanguages))
	for k, v := range supportedLanguages {
		out[k] = v
	}
	return out
}
