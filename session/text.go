package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.aimuz.me/clearsight/internal/types"
)

// DefaultLatencyFloor is the minimum time a simplification shows loading.
const DefaultLatencyFloor = 500 * time.Millisecond

// maxInputFile bounds LoadFile.
const maxInputFile = 1 << 20

// ErrNotText is returned by LoadFile for files that are not UTF-8 text.
var ErrNotText = errors.New("file is not UTF-8 text")

// TextConfig tunes a TextSession.
type TextConfig struct {
	// LatencyFloor defaults to DefaultLatencyFloor; negative disables it.
	LatencyFloor time.Duration
	Sleep        func(time.Duration) // defaults to time.Sleep
}

// TextSnapshot is the render state of a text session.
type TextSnapshot struct {
	Status   types.Status
	Loading  bool
	Input    string
	Output   string
	Speaking bool
}

// TextSession simplifies text.
type TextSession struct {
	env   Env
	cfg   TextConfig
	life  life
	voice voice

	mu      sync.Mutex
	status  types.Status
	loading bool
	input   string
	output  string
}

// NewTextSession creates a text session.
func NewTextSession(env Env, cfg TextConfig) *TextSession {
	if cfg.LatencyFloor == 0 {
		cfg.LatencyFloor = DefaultLatencyFloor
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &TextSession{
		env:    env,
		cfg:    cfg,
		life:   life{ticket: env.Ticket},
		voice:  voice{env: env},
		status: types.StatusIdle,
	}
}

// SetInput replaces the input text.
func (s *TextSession) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.env.changed()
}

// LoadFile reads a UTF-8 text file into the input.
func (s *TextSession) LoadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("load file: %w", err)
	}
	if info.Size() > maxInputFile {
		return "", fmt.Errorf("load file: %s is larger than %d bytes", path, maxInputFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("load file %s: %w", path, ErrNotText)
	}
	text := string(data)
	s.SetInput(text)
	return text, nil
}

// Submit simplifies the current input with the reading level and language
// from the settings.
func (s *TextSession) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	input := s.input
	s.mu.Unlock()
	p := s.env.prefs()
	return s.Process(ctx, input, p.ReadingLevel, p.Language)
}

// Process simplifies text. Empty input and calls made while another is
// pending are rejected without touching state.
func (s *TextSession) Process(ctx context.Context, text string, level types.ReadingLevel, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	if s.life.stale() {
		return "", ErrClosed
	}
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.loading = true
	s.input = text
	s.status = types.StatusSubmitting
	s.mu.Unlock()
	s.env.changed()

	if s.cfg.LatencyFloor > 0 {
		s.cfg.Sleep(s.cfg.LatencyFloor)
	}

	s.mu.Lock()
	s.status = types.StatusAwaitingResult
	s.mu.Unlock()

	out := s.env.Gateway.SimplifyText(ctx, text, level, language)

	s.mu.Lock()
	s.loading = false
	if s.life.stale() {
		s.mu.Unlock()
		return "", ErrClosed
	}
	s.output = out
	s.status = types.StatusRendering
	s.mu.Unlock()
	s.env.changed()
	return out, nil
}

// SpeakOutput reads the output aloud, cancelling any speech in progress.
func (s *TextSession) SpeakOutput() error {
	s.mu.Lock()
	out := s.output
	s.mu.Unlock()
	if strings.TrimSpace(out) == "" {
		return ErrEmptyInput
	}
	s.voice.speak(out)
	return nil
}

// StopSpeaking cancels speech.
func (s *TextSession) StopSpeaking() { s.voice.cancel() }

// Snapshot returns a copy of the render state.
func (s *TextSession) Snapshot() TextSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TextSnapshot{
		Status:   s.status,
		Loading:  s.loading,
		Input:    s.input,
		Output:   s.output,
		Speaking: s.voice.isSpeaking(),
	}
}

// Close stops speech. A pending result is discarded.
func (s *TextSession) Close() {
	s.life.closed.Store(true)
	s.voice.cancel()
}
