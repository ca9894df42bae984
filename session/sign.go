package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/clearsight/capture"
	"go.aimuz.me/clearsight/gateway"
	"go.aimuz.me/clearsight/internal/types"
)

// Sign polling defaults.
const (
	DefaultSignInterval    = 2 * time.Second
	DefaultSignHistorySize = 5
)

// Ticker delivers polling ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTicker returns a Ticker backed by time.Ticker.
func NewTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// SignConfig tunes a SignSession. Zero values use the defaults.
type SignConfig struct {
	Interval    time.Duration
	HistorySize int
	NewTicker   func(time.Duration) Ticker
}

// SignSnapshot is the render state of a sign session.
type SignSnapshot struct {
	Status   types.Status
	Ready    bool
	Polling  bool
	InFlight bool
	History  []types.Result // newest first
	Frames   []types.Frame
	Speaking bool
	Skipped  int // ticks dropped while a request was in flight
}

// SignSession interprets sign language by polling the camera.
type SignSession struct {
	env    Env
	cfg    SignConfig
	life   life
	camera capture.Camera
	recent capture.Recent
	voice  voice

	mu       sync.Mutex
	polling  bool
	inFlight bool
	status   types.Status
	history  []types.Result
	skipped  int
	stop     chan struct{}
	ticker   Ticker

	loop     sync.WaitGroup
	requests sync.WaitGroup
}

// NewSignSession creates a sign session. camera is nil when no camera
// could be opened.
func NewSignSession(env Env, camera capture.Camera, cfg SignConfig) *SignSession {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSignInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultSignHistorySize
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTicker
	}
	return &SignSession{
		env:    env,
		cfg:    cfg,
		life:   life{ticket: env.Ticket},
		camera: camera,
		voice:  voice{env: env},
		status: types.StatusIdle,
	}
}

// StartPolling begins the capture cycle. It is a no-op while polling.
func (s *SignSession) StartPolling(ctx context.Context) error {
	if s.life.stale() {
		return ErrClosed
	}
	if s.camera == nil {
		return ErrNotReady
	}
	s.mu.Lock()
	if s.polling {
		s.mu.Unlock()
		return nil
	}
	s.polling = true
	s.stop = make(chan struct{})
	s.ticker = s.cfg.NewTicker(s.cfg.Interval)
	if !s.inFlight {
		s.status = types.StatusCapturing
	}
	stop, ticker := s.stop, s.ticker
	s.mu.Unlock()

	// requests outlive the poller
	reqCtx := context.WithoutCancel(ctx)
	s.loop.Go(func() {
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				s.StopPolling()
				return
			case <-ticker.C():
				s.tick(reqCtx)
			}
		}
	})
	slog.Debug("start sign polling", "interval", s.cfg.Interval)
	s.env.changed()
	return nil
}

// StopPolling halts the ticker. A request already sent still completes
// and its result is kept.
func (s *SignSession) StopPolling() {
	s.mu.Lock()
	if !s.polling {
		s.mu.Unlock()
		return
	}
	s.polling = false
	close(s.stop)
	s.ticker.Stop()
	if !s.inFlight {
		s.status = types.StatusIdle
	}
	s.mu.Unlock()
	s.env.changed()
}

// tick starts one capture-interpret request unless one is unresolved.
func (s *SignSession) tick(ctx context.Context) {
	s.mu.Lock()
	if !s.polling {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		s.skipped++
		s.mu.Unlock()
		slog.Debug("skip sign tick")
		return
	}
	s.inFlight = true
	s.status = types.StatusSubmitting
	s.requests.Add(1)
	s.mu.Unlock()
	s.env.changed()

	go func() {
		defer s.requests.Done()
		s.finish(s.interpret(ctx))
	}()
}

func (s *SignSession) interpret(ctx context.Context) string {
	frame, err := s.camera.Frame(ctx)
	if err != nil {
		slog.Debug("capture sign frame", "error", err)
		return ""
	}
	s.recent.Push(frame)

	s.mu.Lock()
	s.status = types.StatusAwaitingResult
	s.mu.Unlock()
	s.env.changed()

	return s.env.Gateway.InterpretSign(ctx, frame.Image)
}

func (s *SignSession) finish(text string) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	s.inFlight = false
	if s.polling {
		s.status = types.StatusCapturing
	} else {
		s.status = types.StatusIdle
	}
	if s.life.stale() {
		s.mu.Unlock()
		slog.Debug("discard stale sign result")
		return
	}
	accepted := isGesture(text)
	if accepted {
		r := types.Result{ID: uuid.NewString(), Text: text, CreatedAt: time.Now()}
		s.history = append([]types.Result{r}, s.history...)
		if len(s.history) > s.cfg.HistorySize {
			s.history = s.history[:s.cfg.HistorySize]
		}
	}
	s.mu.Unlock()
	s.env.changed()

	if accepted {
		s.voice.speak(text)
	}
}

// isGesture reports whether an interpretation names a gesture.
func isGesture(text string) bool {
	return text != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(gateway.NoGesture))
}

// Wait blocks until every sent request has resolved.
func (s *SignSession) Wait() { s.requests.Wait() }

// Snapshot returns a copy of the render state.
func (s *SignSession) Snapshot() SignSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SignSnapshot{
		Status:   s.status,
		Ready:    s.camera != nil,
		Polling:  s.polling,
		InFlight: s.inFlight,
		History:  append([]types.Result(nil), s.history...),
		Frames:   s.recent.Frames(),
		Speaking: s.voice.isSpeaking(),
		Skipped:  s.skipped,
	}
}

// Close stops polling and speech and waits for the poller to exit.
// In-flight requests are not cancelled; their results are discarded.
func (s *SignSession) Close() {
	s.life.closed.Store(true)
	s.StopPolling()
	s.loop.Wait()
	s.voice.cancel()
}
