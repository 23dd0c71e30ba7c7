package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/qubelabs/railscan/internal/bus"
	"github.com/qubelabs/railscan/internal/capture"
	"github.com/qubelabs/railscan/internal/config"
	"github.com/qubelabs/railscan/internal/events"
	"github.com/qubelabs/railscan/internal/notify"
	"github.com/qubelabs/railscan/internal/recognize"
	"github.com/qubelabs/railscan/internal/session"
)

// Daemon owns at most one live detection session and exposes it over the
// control socket. Terminal results reach the user through notifications and
// the observer event feed.
type Daemon struct {
	manager *config.Manager
	hub     *events.Hub

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	sess       *session.Session
	lastResult string

	// session wiring, swappable in tests
	newCamera   func(*config.Config) session.Camera
	newDetector func(*config.Config) session.Detector
}

func New() (*Daemon, error) {
	manager, err := config.NewManager()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		manager: manager,
		hub:     events.NewHub(),
		ctx:     ctx,
		cancel:  cancel,
		newCamera: func(cfg *config.Config) session.Camera {
			return cameraAdapter{dev: capture.NewDevice(cfg.ToCaptureConfig())}
		},
		newDetector: func(cfg *config.Config) session.Detector {
			return recognize.NewClient(cfg.ToRecognizeConfig())
		},
	}, nil
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.WritePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.manager.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config watch unavailable: %v", err)
	}
	defer d.manager.Stop()

	if cfg := d.manager.GetConfig(); cfg.Events.Enabled {
		srv := events.NewServer(cfg.Events.Listen, d.hub)
		go func() {
			if err := srv.Run(d.ctx); err != nil {
				log.Printf("Daemon: observer endpoint failed: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully", sig)
		d.cancel()
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	defer d.stopSession()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := bus.Command(line[0])

	switch cmd {
	case bus.CmdToggle:
		fmt.Fprintf(c, "OK %s\n", d.toggle())
	case bus.CmdCancel:
		d.stopSession()
		fmt.Fprint(c, "OK cancelled\n")
	case bus.CmdStatus:
		state, last := d.status()
		fmt.Fprintf(c, "STATUS state=%s last=%q\n", state, last)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) status() (session.State, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return session.Idle, d.lastResult
	}
	return d.sess.State(), d.lastResult
}

func (d *Daemon) toggle() string {
	d.mu.Lock()
	running := d.sess != nil
	d.mu.Unlock()

	if running {
		d.stopSession()
		return "scan stopped"
	}
	if err := d.startSession(); err != nil {
		log.Printf("Daemon: start session: %v", err)
		return fmt.Sprintf("start failed: %v", err)
	}
	return "scan started"
}

func (d *Daemon) startSession() error {
	cfg := d.manager.GetConfig()
	notifier := notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type)

	sessCfg := cfg.ToSessionConfig()
	sessCfg.OnEvent = d.observe

	sess := session.New(d.newCamera(cfg), d.newDetector(cfg), sessCfg)

	resultCh, err := sess.Open(d.ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.sess = sess
	d.mu.Unlock()

	events.ActiveSessions.Inc()
	notifier.ScanStarted()

	go d.await(sess, resultCh, notifier)
	return nil
}

// await consumes the session's one-shot result and surfaces it.
func (d *Daemon) await(sess *session.Session, resultCh <-chan session.Result, notifier notify.Notifier) {
	res, ok := <-resultCh

	events.ActiveSessions.Dec()

	d.mu.Lock()
	if d.sess == sess {
		d.sess = nil
	}
	d.mu.Unlock()

	if !ok {
		// closed without a result: caller teardown
		events.TerminalResultsTotal.WithLabelValues("closed").Inc()
		d.setLastResult("cancelled")
		notifier.ScanStopped()
		return
	}

	if res.Err != nil {
		disposition := "error"
		msg := res.Err.Error()
		if fatal, isFatal := recognize.AsFatal(res.Err); isFatal {
			disposition = string(fatal.Kind)
		}
		events.TerminalResultsTotal.WithLabelValues(disposition).Inc()
		d.setLastResult(msg)
		d.hub.Publish(events.Message{
			Type:      "result",
			SessionID: sess.ID(),
			Error:     msg,
			At:        time.Now(),
		})
		notifier.ScanFailed(msg)
		return
	}

	events.TerminalResultsTotal.WithLabelValues("matched").Inc()
	d.setLastResult("asset " + res.AssetID)
	d.hub.Publish(events.Message{
		Type:      "result",
		SessionID: sess.ID(),
		AssetID:   res.AssetID,
		At:        time.Now(),
	})
	notifier.AssetFound(res.AssetID)
}

func (d *Daemon) stopSession() {
	d.mu.Lock()
	sess := d.sess
	d.mu.Unlock()

	if sess != nil {
		sess.Close()
		sess.Wait()
	}
}

func (d *Daemon) setLastResult(s string) {
	d.mu.Lock()
	d.lastResult = s
	d.mu.Unlock()
}

// observe feeds session transitions and tick outcomes into metrics and the
// observer hub. Runs on the session goroutine; must stay non-blocking.
func (d *Daemon) observe(ev session.Event) {
	if ev.Outcome != "" {
		events.TicksTotal.Inc()
		events.OutcomesTotal.WithLabelValues(string(ev.Outcome)).Inc()
		if ev.Elapsed > 0 {
			events.RoundTripDuration.Observe(ev.Elapsed.Seconds())
		}
		d.hub.Publish(events.Message{
			Type:      "tick",
			SessionID: ev.SessionID,
			Outcome:   string(ev.Outcome),
			At:        ev.At,
		})
		return
	}
	d.hub.Publish(events.Message{
		Type:      "state",
		SessionID: ev.SessionID,
		State:     string(ev.State),
		At:        ev.At,
	})
}

// cameraAdapter narrows the concrete capture device to the session's Camera
// interface.
type cameraAdapter struct {
	dev *capture.Device
}

func (a cameraAdapter) Acquire(ctx context.Context) (session.Stream, error) {
	s, err := a.dev.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}
