package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qubelabs/railscan/internal/capture"
	"github.com/qubelabs/railscan/internal/config"
	"github.com/qubelabs/railscan/internal/recognize"
	"github.com/qubelabs/railscan/internal/session"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	return &config.Config{
		Capture: config.CaptureConfig{
			Device:         "/dev/video0",
			Width:          1280,
			Height:         720,
			FPS:            10,
			Quality:        5,
			StartupTimeout: 5 * time.Second,
		},
		Recognition: config.RecognitionConfig{
			BaseURL: "http://localhost:5000",
			Token:   "test-token",
			Timeout: 10 * time.Second,
		},
		Session: config.SessionConfig{
			Interval:       200 * time.Millisecond,
			TransientLimit: 15,
		},
		Speech: config.SpeechConfig{
			Enabled:     false,
			Provider:    "server",
			Language:    "en",
			SampleRate:  16000,
			MaxDuration: 2 * time.Minute,
		},
		Events: config.EventsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:7393",
		},
		Notifications: config.NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
	}
}

// MockFrame creates a test frame
func MockFrame(seq uint64) capture.Frame {
	return capture.Frame{
		Data:      []byte{0xFF, 0xD8, 0x00, 0x01, 0xFF, 0xD9},
		Timestamp: time.Now(),
		Seq:       seq,
	}
}

// MockStream implements session.Stream for testing
type MockStream struct {
	mu           sync.Mutex
	seq          uint64
	releaseCount int
	snapshotErr  error
}

func NewMockStream() *MockStream {
	return &MockStream{}
}

func (m *MockStream) Snapshot(ctx context.Context) (capture.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshotErr != nil {
		return capture.Frame{}, m.snapshotErr
	}
	m.seq++
	return MockFrame(m.seq), nil
}

func (m *MockStream) Release() {
	m.mu.Lock()
	m.releaseCount++
	m.mu.Unlock()
}

func (m *MockStream) SetSnapshotError(err error) {
	m.mu.Lock()
	m.snapshotErr = err
	m.mu.Unlock()
}

// ReleaseCount reports how many times Release ran.
func (m *MockStream) ReleaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCount
}

// MockCamera implements session.Camera for testing
type MockCamera struct {
	Stream       *MockStream
	AcquireErr   error
	AcquireDelay time.Duration

	acquireCount atomic.Int32
}

func NewMockCamera() *MockCamera {
	return &MockCamera{Stream: NewMockStream()}
}

func (m *MockCamera) Acquire(ctx context.Context) (session.Stream, error) {
	m.acquireCount.Add(1)
	if m.AcquireDelay > 0 {
		select {
		case <-time.After(m.AcquireDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}
	return m.Stream, nil
}

func (m *MockCamera) AcquireCount() int {
	return int(m.acquireCount.Load())
}

// MockDetector implements session.Detector with a scripted outcome sequence.
// Calls past the end of the script repeat the last outcome.
type MockDetector struct {
	mu       sync.Mutex
	script   []recognize.Outcome
	calls    int
	delay    time.Duration
	hold     chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func NewMockDetector(script ...recognize.Outcome) *MockDetector {
	return &MockDetector{script: script}
}

func (m *MockDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// HoldResponses parks every round trip on ch until it is closed, ignoring
// cancellation. Lets a test decide exactly when a response lands.
func (m *MockDetector) HoldResponses(ch chan struct{}) {
	m.mu.Lock()
	m.hold = ch
	m.mu.Unlock()
}

func (m *MockDetector) DetectFrame(ctx context.Context, frame capture.Frame) recognize.Outcome {
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxSeen.Load()
		if cur <= prev || m.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	m.mu.Lock()
	delay := m.delay
	hold := m.hold
	idx := m.calls
	m.calls++
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	var out recognize.Outcome
	if idx >= 0 {
		out = m.script[idx]
	} else {
		out = recognize.Outcome{Kind: recognize.OutcomeNotFound}
	}
	m.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return recognize.Outcome{Kind: recognize.OutcomeTransient, Err: ctx.Err()}
		}
	}
	return out
}

// Calls reports how many round trips were dispatched.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxConcurrent reports the highest number of round trips ever outstanding
// at once.
func (m *MockDetector) MaxConcurrent() int {
	return int(m.maxSeen.Load())
}

// Matched builds a matched outcome for the given asset id.
func Matched(assetID string) recognize.Outcome {
	return recognize.Outcome{Kind: recognize.OutcomeMatched, AssetID: assetID}
}

// NotFound builds a not-found outcome.
func NotFound() recognize.Outcome {
	return recognize.Outcome{Kind: recognize.OutcomeNotFound}
}

// Transient builds a transient-failure outcome.
func Transient() recognize.Outcome {
	return recognize.Outcome{Kind: recognize.OutcomeTransient, Err: fmt.Errorf("connection reset")}
}

// Unresolved builds an asset-unresolved outcome.
func Unresolved() recognize.Outcome {
	return recognize.Outcome{Kind: recognize.OutcomeAssetUnresolved, Err: fmt.Errorf("asset not found")}
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
