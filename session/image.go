package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/clearsight/capture"
	"go.aimuz.me/clearsight/internal/types"
)

// ImageSnapshot is the render state of an image session.
type ImageSnapshot struct {
	Status   types.Status
	Ready    bool
	Result   *types.Result
	Frames   []types.Frame // before/after, oldest first
	Speaking bool
	Err      string
}

// ImageSession describes single frames on demand.
type ImageSession struct {
	env    Env
	life   life
	camera capture.Camera
	recent capture.Recent
	voice  voice

	mu     sync.Mutex
	status types.Status
	result *types.Result
	err    error
}

// NewImageSession creates an image session. camera is nil when no camera
// could be opened; Capture then fails with ErrNotReady.
func NewImageSession(env Env, camera capture.Camera) *ImageSession {
	return &ImageSession{
		env:    env,
		life:   life{ticket: env.Ticket},
		camera: camera,
		voice:  voice{env: env},
		status: types.StatusIdle,
	}
}

// Capture takes one frame, describes it and speaks the description.
// It returns ErrBusy while a previous capture is unresolved.
func (s *ImageSession) Capture(ctx context.Context) error {
	if s.life.stale() {
		return ErrClosed
	}
	if s.camera == nil {
		return ErrNotReady
	}
	s.mu.Lock()
	if s.status.Busy() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.status = types.StatusSubmitting
	s.err = nil
	s.mu.Unlock()
	s.env.changed()

	s.voice.cancel()

	frame, err := s.camera.Frame(ctx)
	if err != nil {
		err = fmt.Errorf("capture frame: %w", err)
		s.fail(err)
		return err
	}
	s.recent.Push(frame)
	s.setStatus(types.StatusAwaitingResult)

	language := s.env.prefs().Language
	text := s.env.Gateway.DescribeImage(ctx, frame.Image, language)

	s.mu.Lock()
	if s.life.stale() {
		s.mu.Unlock()
		slog.Debug("discard stale description")
		return ErrClosed
	}
	s.result = &types.Result{ID: uuid.NewString(), Text: text, CreatedAt: time.Now()}
	s.status = types.StatusRendering
	s.mu.Unlock()
	s.env.changed()

	s.voice.speak(text)
	return nil
}

func (s *ImageSession) fail(err error) {
	s.mu.Lock()
	if s.life.stale() {
		s.mu.Unlock()
		return
	}
	s.status = types.StatusError
	s.err = err
	s.mu.Unlock()
	slog.Warn("capture image", "error", err)
	s.env.changed()
}

func (s *ImageSession) setStatus(st types.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.env.changed()
}

// Reset cancels speech and clears the result and frames. It returns
// ErrBusy while a capture is in flight.
func (s *ImageSession) Reset() error {
	s.mu.Lock()
	if s.status.Busy() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.status = types.StatusIdle
	s.result = nil
	s.err = nil
	s.mu.Unlock()

	s.recent.Reset()
	s.voice.cancel()
	s.env.changed()
	return nil
}

// StopSpeaking cancels the description being read out.
func (s *ImageSession) StopSpeaking() { s.voice.cancel() }

// WaitSpoken blocks until the description has been read out.
func (s *ImageSession) WaitSpoken(ctx context.Context) error { return s.voice.wait(ctx) }

// Snapshot returns a copy of the render state.
func (s *ImageSession) Snapshot() ImageSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := ImageSnapshot{
		Status:   s.status,
		Ready:    s.camera != nil,
		Frames:   s.recent.Frames(),
		Speaking: s.voice.isSpeaking(),
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if s.err != nil {
		snap.Err = s.err.Error()
	}
	return snap
}

// Close stops speech. Results arriving afterwards are discarded.
func (s *ImageSession) Close() {
	s.life.closed.Store(true)
	s.voice.cancel()
}
