package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// serverTranscriber sends WAV-encoded audio to the asset service's speech
// endpoint.
type serverTranscriber struct {
	cfg  Config
	http *http.Client
}

func newServerTranscriber(cfg Config) *serverTranscriber {
	return &serverTranscriber{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

type speechResponse struct {
	Success        bool   `json:"success"`
	RecognizedText string `json:"recognized_text"`
	Error          string `json:"error"`
	ErrorType      string `json:"error_type"`
}

func (t *serverTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", fmt.Errorf("speech: no audio captured")
	}

	wav := EncodeWAV(pcm, t.cfg.SampleRate)
	body, err := json.Marshal(map[string]string{
		"audio":    base64.StdEncoding.EncodeToString(wav),
		"language": t.cfg.Language,
	})
	if err != nil {
		return "", fmt.Errorf("speech: encode request: %w", err)
	}

	url := strings.TrimRight(t.cfg.BaseURL, "/") + "/api/speech/process-audio"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.Token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: round trip: %w", err)
	}
	defer resp.Body.Close()

	var decoded speechResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("speech: decode response (%d): %w", resp.StatusCode, err)
	}
	if !decoded.Success {
		return "", fmt.Errorf("speech: service error: %s (%s)", decoded.Error, decoded.ErrorType)
	}
	return strings.TrimSpace(decoded.RecognizedText), nil
}
