package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Recorder owns the microphone for the duration of one voice note. Like the
// camera stream, it is exclusive: Start while recording is an error, and Stop
// is idempotent.
type Recorder struct {
	sampleRate  int
	maxDuration time.Duration

	recording atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	bufMu sync.Mutex
	buf   bytes.Buffer

	wg sync.WaitGroup
}

func NewRecorder(sampleRate int, maxDuration time.Duration) *Recorder {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if maxDuration <= 0 {
		maxDuration = 2 * time.Minute
	}
	return &Recorder{sampleRate: sampleRate, maxDuration: maxDuration}
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Start spawns the audio grabber and accumulates PCM until Stop or the
// duration cap.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.recording.CompareAndSwap(false, true) {
		return fmt.Errorf("already recording")
	}

	if err := CheckMicAvailable(); err != nil {
		r.recording.Store(false)
		return err
	}

	recCtx, cancel := context.WithTimeout(ctx, r.maxDuration)

	cmd := exec.CommandContext(recCtx, "pw-record",
		"--format", "s16",
		"--rate", strconv.Itoa(r.sampleRate),
		"--channels", "1",
		"-", // stdout
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		r.recording.Store(false)
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		r.recording.Store(false)
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		r.recording.Store(false)
		return fmt.Errorf("start pw-record: %w", err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.cancel = cancel
	r.mu.Unlock()

	r.bufMu.Lock()
	r.buf.Reset()
	r.bufMu.Unlock()

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("speech stderr: %s", scanner.Text())
		}
	}()

	r.wg.Add(1)
	go r.drain(stdout)

	return nil
}

// Stop releases the microphone and returns the captured PCM. Calling Stop
// when not recording returns whatever the last capture produced.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	cancel := r.cancel
	cmd := r.cmd
	r.cancel = nil
	r.cmd = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	if cmd != nil {
		_ = cmd.Wait()
	}
	r.recording.Store(false)

	r.bufMu.Lock()
	defer r.bufMu.Unlock()
	out := make([]byte, r.buf.Len())
	copy(out, r.buf.Bytes())
	return out
}

func (r *Recorder) drain(stdout io.Reader) {
	defer r.wg.Done()

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			r.bufMu.Lock()
			r.buf.Write(buf[:n])
			r.bufMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func CheckMicAvailable() error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	return nil
}
