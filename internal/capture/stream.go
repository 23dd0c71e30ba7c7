package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stream is the exclusively-owned camera handle. A background goroutine drains
// the grabber's MJPEG output and keeps only the most recent frame; Snapshot
// hands out a copy of it. Release stops the grabber and is safe to call more
// than once.
type Stream struct {
	dev *Device

	mu     sync.Mutex
	latest Frame

	cancel   context.CancelFunc
	cmd      *exec.Cmd
	wg       sync.WaitGroup
	released atomic.Bool

	firstFrame chan struct{}
	firstOnce  sync.Once
	readerDone chan struct{}

	stderrMu sync.Mutex
	stderr   []string
}

func openStream(ctx context.Context, dev *Device) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(context.Background())

	s := &Stream{
		dev:        dev,
		cancel:     cancel,
		firstFrame: make(chan struct{}),
		readerDone: make(chan struct{}),
	}

	cmd := exec.CommandContext(streamCtx, "ffmpeg", buildGrabberArgs(dev.cfg)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, classifyStartError(err, "")
	}
	s.cmd = cmd

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			s.stderrMu.Lock()
			if len(s.stderr) < 32 {
				s.stderr = append(s.stderr, line)
			}
			s.stderrMu.Unlock()
			log.Printf("capture stderr: %s", line)
		}
	}()

	s.wg.Add(1)
	go s.readLoop(bufio.NewReaderSize(stdout, 1<<16))

	select {
	case <-s.firstFrame:
		return s, nil
	case <-ctx.Done():
		s.Release()
		return nil, ctx.Err()
	case <-s.readerDone:
		// grabber exited before producing a frame
		time.Sleep(50 * time.Millisecond) // let the stderr drain finish
		stderrText := s.stderrText()
		s.Release()
		return nil, classifyStartError(nil, stderrText)
	case <-time.After(dev.cfg.StartupTimeout):
		stderrText := s.stderrText()
		s.Release()
		return nil, classifyStartError(nil, stderrText)
	}
}

// Snapshot returns a copy of the most recent frame.
func (s *Stream) Snapshot(ctx context.Context) (Frame, error) {
	if s.released.Load() {
		return Frame{}, fmt.Errorf("capture: stream released")
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest.Data == nil {
		return Frame{}, fmt.Errorf("capture: no frame available yet")
	}
	data := make([]byte, len(s.latest.Data))
	copy(data, s.latest.Data)
	return Frame{Data: data, Timestamp: s.latest.Timestamp, Seq: s.latest.Seq}, nil
}

// Release stops the grabber and gives the hardware back. Idempotent: the
// second and later calls are no-ops.
func (s *Stream) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	s.wg.Wait()
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	s.dev.acquired.Store(false)
}

func (s *Stream) readLoop(r *bufio.Reader) {
	defer s.wg.Done()
	defer close(s.readerDone)

	var (
		pending []byte
		seq     uint64
		buf     = make([]byte, 1<<15)
	)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				jpeg, rest, ok := nextJPEG(pending)
				if !ok {
					break
				}
				pending = rest
				seq++
				s.mu.Lock()
				s.latest = Frame{Data: jpeg, Timestamp: time.Now(), Seq: seq}
				s.mu.Unlock()
				s.firstOnce.Do(func() { close(s.firstFrame) })
			}
			// A stuck encoder should not grow the buffer without bound.
			if len(pending) > 1<<24 {
				pending = pending[:0]
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Stream) stderrText() string {
	s.stderrMu.Lock()
	defer s.stderrMu.Unlock()
	return strings.Join(s.stderr, "\n")
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// nextJPEG extracts the first complete JPEG image from b, returning the image,
// the remaining bytes and whether an image was found.
func nextJPEG(b []byte) (frame, rest []byte, ok bool) {
	start := bytes.Index(b, jpegSOI)
	if start < 0 {
		return nil, b, false
	}
	end := bytes.Index(b[start+2:], jpegEOI)
	if end < 0 {
		return nil, b[start:], false
	}
	end = start + 2 + end + 2

	frame = make([]byte, end-start)
	copy(frame, b[start:end])
	return frame, b[end:], true
}

func buildGrabberArgs(cfg Config) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "v4l2",
		"-framerate", strconv.Itoa(cfg.FPS),
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-i", cfg.Device,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", strconv.Itoa(cfg.Quality),
		"-", // stdout
	}
}
