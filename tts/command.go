package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"go.aimuz.me/clearsight/internal/types"
)

// ErrNoEngine is returned when no speech engine is installed.
var ErrNoEngine = errors.New("no speech engine found")

// defaultWPM is the words-per-minute of rate 1.0.
const defaultWPM = 175

// engines in lookup order.
var engines = []string{"say", "espeak-ng", "espeak", "spd-say"}

// CommandSpeaker speaks through a command-line engine.
type CommandSpeaker struct {
	bin   string
	voice string

	mu     sync.Mutex
	nextID int
	active map[int]context.CancelFunc
}

// NewCommandSpeaker uses engine if set, otherwise the first installed
// engine.
func NewCommandSpeaker(engine, voice string) (*CommandSpeaker, error) {
	candidates := engines
	if engine != "" {
		candidates = []string{engine}
	}
	for _, name := range candidates {
		if bin, err := exec.LookPath(name); err == nil {
			slog.Debug("speech engine found", "engine", bin)
			return &CommandSpeaker{bin: bin, voice: voice, active: make(map[int]context.CancelFunc)}, nil
		}
	}
	return nil, ErrNoEngine
}

func (s *CommandSpeaker) Speak(ctx context.Context, text string, rate float64) (*Utterance, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, s.bin, s.args(text, rate)...)

	u := NewUtterance(text)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", filepath.Base(s.bin), err)
	}
	u.MarkStarted()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.active[id] = cancel
	s.mu.Unlock()

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
		cancel()
		if ctx.Err() != nil {
			err = nil // cancelled
		}
		u.Finish(err)
	}()
	return u, nil
}

func (s *CommandSpeaker) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.active {
		cancel()
		delete(s.active, id)
	}
}

func (s *CommandSpeaker) args(text string, rate float64) []string {
	return engineArgs(filepath.Base(s.bin), s.voice, text, rate)
}

func engineArgs(engine, voice, text string, rate float64) []string {
	rate = max(types.MinVoiceSpeed, min(types.MaxVoiceSpeed, rate))
	wpm := strconv.Itoa(int(math.Round(defaultWPM * rate)))

	var args []string
	switch engine {
	case "say":
		args = []string{"-r", wpm}
		if voice != "" {
			args = append(args, "-v", voice)
		}
	case "spd-say":
		// -100..100 around the engine default, -w blocks until spoken
		args = []string{"-w", "-r", strconv.Itoa(int(math.Round((rate - 1) * 100)))}
		if voice != "" {
			args = append(args, "-y", voice)
		}
	default: // espeak family
		args = []string{"-s", wpm}
		if voice != "" {
			args = append(args, "-v", voice)
		}
	}
	return append(args, "--", text)
}
