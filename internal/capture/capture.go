package capture

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"
)

// Frame is one ephemeral snapshot of the camera stream: JPEG bytes plus the
// instant they were read. Frames are never retained past one recognition
// round trip.
type Frame struct {
	Data      []byte
	Timestamp time.Time
	Seq       uint64
}

// Config describes the camera and the grabber process settings.
type Config struct {
	Device         string // v4l2 device node, e.g. /dev/video0
	Width          int
	Height         int
	FPS            int
	Quality        int // JPEG quality factor passed to the encoder (2=best, 31=worst)
	StartupTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Device:         "/dev/video0",
		Width:          1280,
		Height:         720,
		FPS:            10,
		Quality:        5,
		StartupTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("invalid capture.device: empty")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid capture resolution: %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid capture.fps: %d", c.FPS)
	}
	if c.Quality < 2 || c.Quality > 31 {
		return fmt.Errorf("invalid capture.quality: %d", c.Quality)
	}
	if c.StartupTimeout <= 0 {
		return fmt.Errorf("invalid capture.startup_timeout: %v", c.StartupTimeout)
	}
	return nil
}

// Acquisition failure modes. Everything the device layer reports collapses
// into one of these two; the session surfaces them as fatal kinds.
var (
	ErrPermissionDenied  = errors.New("capture: permission denied")
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
)

// Device hands out the exclusive camera stream. At most one live Stream may
// exist per Device; a second Acquire while one is held is a caller error.
type Device struct {
	cfg      Config
	acquired atomic.Bool
}

func NewDevice(cfg Config) *Device {
	return &Device{cfg: cfg}
}

// Acquire starts the grabber process and blocks until the first frame arrives
// or the startup window elapses. The returned Stream owns the hardware until
// Release.
func (d *Device) Acquire(ctx context.Context) (*Stream, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	if !d.acquired.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("capture: device already acquired")
	}

	s, err := openStream(ctx, d)
	if err != nil {
		d.acquired.Store(false)
		return nil, err
	}
	return s, nil
}

// classifyStartError maps grabber startup failures onto the two acquisition
// error kinds using the process error and collected stderr output.
func classifyStartError(err error, stderr string) error {
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return fmt.Errorf("%w: %v (install ffmpeg)", ErrDeviceUnavailable, err)
		}
	}

	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "not permitted"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
	case msg != "":
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, strings.TrimSpace(stderr))
	case err != nil:
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	default:
		return fmt.Errorf("%w: no frames from grabber", ErrDeviceUnavailable)
	}
}

// CheckAvailable reports whether the grabber binary is present. Used by the
// dependency doctor and before opening a session.
func CheckAvailable() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	return nil
}
