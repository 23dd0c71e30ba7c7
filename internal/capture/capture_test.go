package capture

import (
	"bytes"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty device", func(c *Config) { c.Device = "" }},
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"negative fps", func(c *Config) { c.FPS = -1 }},
		{"quality below range", func(c *Config) { c.Quality = 1 }},
		{"quality above range", func(c *Config) { c.Quality = 32 }},
		{"zero startup timeout", func(c *Config) { c.StartupTimeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tc.name)
			}
		})
	}
}

func TestNextJPEG(t *testing.T) {
	img1 := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	img2 := []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}

	t.Run("single frame with leading noise", func(t *testing.T) {
		buf := append([]byte{0x00, 0x11}, img1...)
		frame, rest, ok := nextJPEG(buf)
		if !ok {
			t.Fatalf("frame not found")
		}
		if !bytes.Equal(frame, img1) {
			t.Errorf("frame = % x", frame)
		}
		if len(rest) != 0 {
			t.Errorf("rest = % x", rest)
		}
	})

	t.Run("two frames back to back", func(t *testing.T) {
		buf := append(append([]byte{}, img1...), img2...)
		first, rest, ok := nextJPEG(buf)
		if !ok || !bytes.Equal(first, img1) {
			t.Fatalf("first frame wrong: % x", first)
		}
		second, rest, ok := nextJPEG(rest)
		if !ok || !bytes.Equal(second, img2) {
			t.Fatalf("second frame wrong: % x", second)
		}
		if len(rest) != 0 {
			t.Errorf("rest = % x", rest)
		}
	})

	t.Run("incomplete frame kept pending", func(t *testing.T) {
		buf := img1[:4] // SOI but no EOI yet
		if _, rest, ok := nextJPEG(buf); ok || !bytes.Equal(rest, buf) {
			t.Errorf("partial frame consumed")
		}
	})

	t.Run("no marker at all", func(t *testing.T) {
		if _, _, ok := nextJPEG([]byte{0x00, 0x01, 0x02}); ok {
			t.Errorf("found a frame in garbage")
		}
	})
}

func TestClassifyStartError(t *testing.T) {
	t.Run("binary missing", func(t *testing.T) {
		err := classifyStartError(&exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}, "")
		if !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("err = %v, want device unavailable", err)
		}
	})

	t.Run("permission denied in stderr", func(t *testing.T) {
		err := classifyStartError(nil, "/dev/video0: Permission denied")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("err = %v, want permission denied", err)
		}
	})

	t.Run("device busy in stderr", func(t *testing.T) {
		err := classifyStartError(nil, "/dev/video0: Device or resource busy")
		if !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("err = %v, want device unavailable", err)
		}
	})

	t.Run("silent exit", func(t *testing.T) {
		err := classifyStartError(nil, "")
		if !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("err = %v, want device unavailable", err)
		}
	})
}

func TestBuildGrabberArgs(t *testing.T) {
	cfg := Config{
		Device:         "/dev/video2",
		Width:          640,
		Height:         480,
		FPS:            15,
		Quality:        3,
		StartupTimeout: time.Second,
	}
	args := buildGrabberArgs(cfg)

	want := map[string]string{
		"-i":          "/dev/video2",
		"-framerate":  "15",
		"-video_size": "640x480",
		"-q:v":        "3",
	}
	for flag, val := range want {
		found := false
		for i := 0; i < len(args)-1; i++ {
			if args[i] == flag && args[i+1] == val {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %s %s in %v", flag, val, args)
		}
	}
	if args[len(args)-1] != "-" {
		t.Errorf("output not stdout: %v", args)
	}
}

func TestAcquireExclusive(t *testing.T) {
	dev := NewDevice(DefaultConfig())
	dev.acquired.Store(true) // simulate a live stream holding the device

	if _, err := dev.Acquire(t.Context()); err == nil {
		t.Errorf("second Acquire succeeded while device held")
	}
	dev.acquired.Store(false)
}
