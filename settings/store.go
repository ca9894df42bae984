// Package settings holds the process-wide accessibility preferences.
package settings

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"go.aimuz.me/clearsight/internal/types"
)

// Reader exposes the current preferences. Sessions read them at request
// time and never keep a copy.
type Reader interface {
	Get() types.Settings
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	HighContrast   *bool
	LargeText      *bool
	ReadingLevel   *types.ReadingLevel
	Language       *string
	VoiceSpeed     *float64
	ColorBlindMode *types.ColorBlindMode
}

// Store is the settings singleton. Reads never block; writes replace the
// whole value atomically.
type Store struct {
	cur atomic.Pointer[types.Settings]

	mu     sync.Mutex // serialises writers and subscriber bookkeeping
	nextID int
	subs   map[int]func(types.Settings)
}

// NewStore creates a store seeded with initial.
func NewStore(initial types.Settings) *Store {
	s := &Store{subs: make(map[int]func(types.Settings))}
	s.cur.Store(&initial)
	return s
}

// Get returns the latest committed settings.
func (s *Store) Get() types.Settings {
	return *s.cur.Load()
}

// Update merges p into the current settings and returns the result.
func (s *Store) Update(p Patch) types.Settings {
	s.mu.Lock()
	next := p.apply(*s.cur.Load())
	s.cur.Store(&next)
	subs := make([]func(types.Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	slog.Debug("settings updated", "language", next.Language, "level", next.ReadingLevel, "voice_speed", next.VoiceSpeed)
	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn to run after every update. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(types.Settings)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (p Patch) apply(cur types.Settings) types.Settings {
	if p.HighContrast != nil {
		cur.HighContrast = *p.HighContrast
	}
	if p.LargeText != nil {
		cur.LargeText = *p.LargeText
	}
	if p.ReadingLevel != nil {
		cur.ReadingLevel = *p.ReadingLevel
	}
	if p.Language != nil {
		cur.Language = *p.Language
	}
	if p.VoiceSpeed != nil {
		cur.VoiceSpeed = *p.VoiceSpeed
	}
	if p.ColorBlindMode != nil {
		cur.ColorBlindMode = *p.ColorBlindMode
	}
	return cur
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }
