package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/stt"
)

// UnavailablePlaceholder is shown when no recognizer can run.
const UnavailablePlaceholder = "Speech recognition is not available on this device."

// TranscriptSnapshot is the render state of a transcript session.
type TranscriptSnapshot struct {
	Status      types.Status
	Listening   bool
	Transcript  string // finals joined with single spaces
	Interim     string
	Placeholder string
	Err         string
}

// TranscriptSession captions speech. The transcript grows only from final
// results; interim text is shown until the next delivery.
type TranscriptSession struct {
	env  Env
	life life
	rec  stt.Recognizer

	mu          sync.Mutex
	status      types.Status
	listening   bool
	run         uint64 // bumps on every Start and Stop
	finals      []string
	interim     string
	placeholder string
	err         error
}

// NewTranscriptSession creates a transcript session over rec, which may be
// nil when speech recognition is missing.
func NewTranscriptSession(env Env, rec stt.Recognizer) *TranscriptSession {
	s := &TranscriptSession{
		env:    env,
		life:   life{ticket: env.Ticket},
		rec:    rec,
		status: types.StatusIdle,
	}
	if rec == nil || !rec.Available() {
		s.placeholder = UnavailablePlaceholder
	}
	return s
}

// Start begins listening in the current settings language. It is a no-op
// while already listening.
func (s *TranscriptSession) Start(ctx context.Context) error {
	if s.life.stale() {
		return ErrClosed
	}
	s.mu.Lock()
	if s.placeholder != "" {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.listening {
		s.mu.Unlock()
		return nil
	}
	s.run++
	run := s.run
	s.listening = true
	s.status = types.StatusCapturing
	s.err = nil
	s.mu.Unlock()
	s.env.changed()

	language := s.env.prefs().Language
	err := s.rec.Start(ctx, language,
		func(d types.Delivery) { s.deliver(run, d) },
		func(err error) { s.fail(run, err) },
	)
	if err != nil {
		err = fmt.Errorf("start recognizer: %w", err)
		s.fail(run, err)
		return err
	}
	slog.Info("start listening", "recognizer", s.rec.Name(), "language", language)
	return nil
}

func (s *TranscriptSession) deliver(run uint64, d types.Delivery) {
	s.mu.Lock()
	if run != s.run || !s.listening || s.life.stale() {
		s.mu.Unlock()
		return
	}
	for _, f := range d.Finals {
		if f = strings.TrimSpace(f); f != "" {
			s.finals = append(s.finals, f)
		}
	}
	s.interim = strings.TrimSpace(d.Interim)
	s.mu.Unlock()
	s.env.changed()
}

// fail force-stops the run.
func (s *TranscriptSession) fail(run uint64, err error) {
	s.mu.Lock()
	if run != s.run || !s.listening {
		s.mu.Unlock()
		return
	}
	s.listening = false
	s.interim = ""
	s.status = types.StatusError
	s.err = err
	s.mu.Unlock()
	slog.Warn("recognize speech", "error", err)
	s.env.changed()
}

// Stop ends listening and drops the interim text. Late deliveries from
// the stopped run are discarded.
func (s *TranscriptSession) Stop() error {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = false
	s.run++
	s.interim = ""
	s.status = types.StatusIdle
	s.mu.Unlock()
	s.env.changed()

	if err := s.rec.Stop(); err != nil {
		return fmt.Errorf("stop recognizer: %w", err)
	}
	return nil
}

// Clear empties the transcript without stopping.
func (s *TranscriptSession) Clear() {
	s.mu.Lock()
	s.finals = nil
	s.interim = ""
	s.mu.Unlock()
	s.env.changed()
}

// Transcript returns the finalized text.
func (s *TranscriptSession) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.finals, " ")
}

// Snapshot returns a copy of the render state.
func (s *TranscriptSession) Snapshot() TranscriptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := TranscriptSnapshot{
		Status:      s.status,
		Listening:   s.listening,
		Transcript:  strings.Join(s.finals, " "),
		Interim:     s.interim,
		Placeholder: s.placeholder,
	}
	if s.err != nil {
		snap.Err = s.err.Error()
	}
	return snap
}

// Close stops listening.
func (s *TranscriptSession) Close() {
	s.life.closed.Store(true)
	if err := s.Stop(); err != nil {
		slog.Debug("close transcript session", "error", err)
	}
}
