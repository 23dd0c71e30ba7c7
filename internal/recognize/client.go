package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/qubelabs/railscan/internal/capture"
)

const (
	frameScanPath = "/api/scan-qr-frame"
	fileScanPath  = "/api/scan-qr-file"
	textScanPath  = "/api/scan-qr"
)

// Config holds the connection parameters for the recognition service.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client performs recognition round trips against the asset service.
// One round trip maps one sample (frame, file or text) to one Outcome.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// DetectFrame ships one live-sampled frame to the frame-scan endpoint.
// All failure modes are absorbed into the Outcome; it never returns an error
// because the session loop treats every result uniformly.
func (c *Client) DetectFrame(ctx context.Context, frame capture.Frame) Outcome {
	body, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(frame.Data),
	})
	if err != nil {
		return transient(fmt.Errorf("encode frame request: %w", err))
	}
	return c.roundTrip(ctx, frameScanPath, "application/json", bytes.NewReader(body))
}

// DetectFile submits a full image payload read from r, as the file-upload entry point.
func (c *Client) DetectFile(ctx context.Context, filename string, r io.Reader) Outcome {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return transient(fmt.Errorf("build upload request: %w", err))
	}
	if _, err := io.Copy(part, r); err != nil {
		return transient(fmt.Errorf("read upload payload: %w", err))
	}
	if err := w.Close(); err != nil {
		return transient(fmt.Errorf("finalize upload request: %w", err))
	}
	return c.roundTrip(ctx, fileScanPath, w.FormDataContentType(), &buf)
}

// DetectText submits a raw code payload string, as the manual entry point.
func (c *Client) DetectText(ctx context.Context, text string) Outcome {
	body, err := json.Marshal(map[string]string{"qr_data": text})
	if err != nil {
		return transient(fmt.Errorf("encode text request: %w", err))
	}
	return c.roundTrip(ctx, textScanPath, "application/json", bytes.NewReader(body))
}

func (c *Client) roundTrip(ctx context.Context, path, contentType string, body io.Reader) Outcome {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return transient(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("recognize: %s failed after %v: %v", path, time.Since(start), err)
		return classify(0, nil, err)
	}
	defer resp.Body.Close()

	var decoded scanResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return classify(resp.StatusCode, nil, nil)
	}
	return classify(resp.StatusCode, &decoded, nil)
}
