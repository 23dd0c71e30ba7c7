package speech

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// openaiTranscriber transcribes through the OpenAI audio API when the asset
// service's speech endpoint is not configured or not reachable.
type openaiTranscriber struct {
	client *openai.Client
	cfg    Config
}

func newOpenAITranscriber(cfg Config) *openaiTranscriber {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	return &openaiTranscriber{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

func (t *openaiTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", fmt.Errorf("speech: no audio captured")
	}

	wav := EncodeWAV(pcm, t.cfg.SampleRate)

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.cfg.Model,
		Reader:   bytes.NewReader(wav),
		FilePath: "note.wav",
		Language: t.cfg.Language,
	})
	if err != nil {
		return "", fmt.Errorf("speech: transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
