// Package session runs one live code-detection attempt: it acquires the
// exclusive camera stream, samples it on a fixed cadence, ships each sample
// through one recognition round trip, and delivers exactly one terminal
// result (a match or a fatal error) to its caller. Every exit path releases
// the camera exactly once.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qubelabs/railscan/internal/capture"
	"github.com/qubelabs/railscan/internal/recognize"
)

// State is the controller's lifecycle position.
type State string

const (
	Idle      State = "idle"
	Acquiring State = "acquiring"
	Streaming State = "streaming"
	Stopping  State = "stopping"
	Stopped   State = "stopped"
)

const (
	DefaultInterval       = 200 * time.Millisecond
	DefaultTransientLimit = 15
)

// Camera acquires the exclusive capture stream.
type Camera interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is the owned capture handle the session holds while Streaming.
type Stream interface {
	Snapshot(ctx context.Context) (capture.Frame, error)
	Release()
}

// Detector performs one recognition round trip for one frame. Failures are
// absorbed into the Outcome; the session never sees a bare error from it.
type Detector interface {
	DetectFrame(ctx context.Context, frame capture.Frame) recognize.Outcome
}

// Config tunes one session.
type Config struct {
	// Interval is the sampling cadence. Ticks that land while a round trip
	// is still in flight are skipped, so the effective rate degrades
	// gracefully against a slow backend.
	Interval time.Duration
	// TransientLimit is how many consecutive transient round-trip failures
	// are absorbed before the session gives up with ServiceUnavailable.
	TransientLimit int
	// OnEvent, when set, observes state transitions and per-tick outcomes.
	// Called from the session goroutine; must not block.
	OnEvent func(Event)
}

func (c *Config) withDefaults() Config {
	out := Config{Interval: DefaultInterval, TransientLimit: DefaultTransientLimit}
	if c != nil {
		if c.Interval > 0 {
			out.Interval = c.Interval
		}
		if c.TransientLimit > 0 {
			out.TransientLimit = c.TransientLimit
		}
		out.OnEvent = c.OnEvent
	}
	return out
}

// Event is one observable moment in a session's life.
type Event struct {
	SessionID string
	State     State
	Outcome   recognize.OutcomeKind // set on tick events only
	Elapsed   time.Duration         // round-trip latency on tick events
	At        time.Time
}

// Result is the single terminal value a session delivers. Err is nil on a
// match and a *recognize.FatalError otherwise.
type Result struct {
	AssetID string
	Asset   json.RawMessage
	Err     error
}

// Session is the controller. One Session runs at most one attempt; it is not
// reusable after it reaches Stopped.
type Session struct {
	id       string
	cfg      Config
	camera   Camera
	detector Detector

	mu     sync.Mutex
	state  State
	stream Stream
	cancel context.CancelFunc

	// inFlight and transientRun are owned by the run goroutine. They are
	// session fields rather than loop locals so the guarantees they back
	// are inspectable in tests.
	inFlight     bool
	transientRun int

	finishOnce sync.Once
	resultCh   chan Result

	wg sync.WaitGroup
}

func New(camera Camera, detector Detector, cfg *Config) *Session {
	return &Session{
		id:       uuid.NewString(),
		cfg:      cfg.withDefaults(),
		camera:   camera,
		detector: detector,
		state:    Idle,
		resultCh: make(chan Result, 1),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open starts the attempt. Valid only from Idle. The returned channel carries
// at most one Result and is closed afterwards; it is also closed without a
// value when the caller tears the session down first.
func (s *Session) Open(ctx context.Context) (<-chan Result, error) {
	s.mu.Lock()
	if s.state != Idle {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("session: open from %s", state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.setStateLocked(Acquiring)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx)

	return s.resultCh, nil
}

// Close tears the session down from any state. Idempotent: every call after
// the first is a no-op. The timer is cancelled and the capture stream is
// released synchronously, even while a recognition round trip is pending;
// that round trip's eventual response is stale and dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(Stopping)
	cancel := s.cancel
	stream := s.stream
	s.stream = nil
	s.setStateLocked(Stopped)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		stream.Release()
	}

	s.finish(nil)
}

// Wait blocks until the session goroutine has fully unwound.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	stream, err := s.camera.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// torn down while acquiring; nothing to deliver
			if stream != nil {
				stream.Release()
			}
			return
		}
		s.fail(acquireFatalKind(err), err)
		return
	}

	s.mu.Lock()
	if s.state != Acquiring {
		// Close won the race during acquisition; the handle was never
		// recorded, so release it here.
		s.mu.Unlock()
		stream.Release()
		return
	}
	s.stream = stream
	s.setStateLocked(Streaming)
	s.mu.Unlock()

	log.Printf("session %s: streaming at %v cadence", s.id, s.cfg.Interval)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	type roundTrip struct {
		outcome recognize.Outcome
		elapsed time.Duration
	}
	resCh := make(chan roundTrip, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if s.inFlight {
				// previous round trip unresolved: skip this tick
				continue
			}
			s.mu.Lock()
			if s.state != Streaming {
				s.mu.Unlock()
				return
			}
			st := s.stream
			s.mu.Unlock()

			frame, err := st.Snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !s.applyOutcome(recognize.Outcome{Kind: recognize.OutcomeTransient, Err: err}, 0) {
					return
				}
				continue
			}

			s.inFlight = true
			go func() {
				start := time.Now()
				out := s.detector.DetectFrame(ctx, frame)
				resCh <- roundTrip{outcome: out, elapsed: time.Since(start)}
			}()

		case rt := <-resCh:
			s.inFlight = false
			if ctx.Err() != nil {
				// stale: the session was torn down while this round trip
				// was outstanding
				return
			}
			s.mu.Lock()
			streaming := s.state == Streaming
			s.mu.Unlock()
			if !streaming {
				// Close moved the state before its cancel reached us; the
				// response is just as stale
				return
			}
			if !s.applyOutcome(rt.outcome, rt.elapsed) {
				return
			}
		}
	}
}

// applyOutcome advances the state machine by one classified round trip.
// It reports whether the loop should keep running.
func (s *Session) applyOutcome(out recognize.Outcome, elapsed time.Duration) bool {
	s.emitTick(out.Kind, elapsed)

	switch out.Kind {
	case recognize.OutcomeMatched:
		s.teardown()
		s.finish(&Result{AssetID: out.AssetID, Asset: out.Asset})
		return false

	case recognize.OutcomeNotFound:
		s.transientRun = 0
		return true

	case recognize.OutcomeAssetUnresolved:
		s.teardown()
		s.finish(&Result{Err: recognize.NewFatalError(recognize.AssetUnresolved, out.Err)})
		return false

	case recognize.OutcomeTransient:
		s.transientRun++
		log.Printf("session %s: transient failure %d/%d: %v", s.id, s.transientRun, s.cfg.TransientLimit, out.Err)
		if s.transientRun >= s.cfg.TransientLimit {
			s.teardown()
			s.finish(&Result{Err: recognize.NewFatalError(recognize.ServiceUnavailable,
				fmt.Errorf("%d consecutive recognition failures, last: %w", s.transientRun, out.Err))})
			return false
		}
		return true

	default:
		s.transientRun = 0
		return true
	}
}

// teardown releases the timer's work (the loop exits right after) and the
// capture stream, then parks the session in Stopped. Resources are gone
// before the result is delivered.
func (s *Session) teardown() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(Stopping)
	stream := s.stream
	s.stream = nil
	s.setStateLocked(Stopped)
	s.mu.Unlock()

	if stream != nil {
		stream.Release()
	}
}

func (s *Session) fail(kind recognize.FatalKind, err error) {
	s.teardown()
	s.finish(&Result{Err: recognize.NewFatalError(kind, err)})
}

// finish resolves the one-shot result slot. The first caller wins; a nil
// result closes the channel without delivering anything.
func (s *Session) finish(r *Result) {
	s.finishOnce.Do(func() {
		if r != nil {
			s.resultCh <- *r
		}
		close(s.resultCh)
	})
}

func (s *Session) setStateLocked(next State) {
	s.state = next
	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(Event{SessionID: s.id, State: next, At: time.Now()})
	}
}

func (s *Session) emitTick(kind recognize.OutcomeKind, elapsed time.Duration) {
	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(Event{SessionID: s.id, State: Streaming, Outcome: kind, Elapsed: elapsed, At: time.Now()})
	}
}

func acquireFatalKind(err error) recognize.FatalKind {
	if errors.Is(err, capture.ErrPermissionDenied) {
		return recognize.PermissionDenied
	}
	return recognize.DeviceUnavailable
}
