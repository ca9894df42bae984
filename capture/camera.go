// Package capture provides still-frame sources for the camera modes.
package capture

import (
	"context"
	"errors"
	"sync"

	"go.aimuz.me/clearsight/internal/types"
)

var (
	// ErrNotOpen is returned by Frame before Open or after Close.
	ErrNotOpen = errors.New("camera not open")
	// ErrNoFrame is returned when the source produced no image.
	ErrNoFrame = errors.New("no frame captured")
)

// Camera is a still-frame source with a selectable facing mode.
type Camera interface {
	Open(ctx context.Context, facing types.Facing) error
	Frame(ctx context.Context) (types.Frame, error)
	Close() error
}

// Recent keeps the two latest frames of a mode, newest last.
type Recent struct {
	mu     sync.Mutex
	frames []types.Frame
}

// Push records f, dropping the oldest frame beyond two.
func (r *Recent) Push(f types.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	if len(r.frames) > 2 {
		r.frames = r.frames[len(r.frames)-2:]
	}
}

// Frames returns the stored frames, oldest first.
func (r *Recent) Frames() []types.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Frame(nil), r.frames...)
}

// Reset drops every stored frame.
func (r *Recent) Reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

// openState tracks Open/Close for the simple adapters.
type openState struct {
	mu     sync.Mutex
	open   bool
	facing types.Facing
}

func (s *openState) set(open bool, facing types.Facing) {
	s.mu.Lock()
	s.open, s.facing = open, facing
	s.mu.Unlock()
}

func (s *openState) get() (bool, types.Facing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.facing
}
