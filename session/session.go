// Package session implements the per-mode interaction state machines:
// capture or input, submission to the AI gateway, and rendering of the
// answer as text and speech.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"go.aimuz.me/clearsight/gateway"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/settings"
	"go.aimuz.me/clearsight/tts"
)

// Sentinel errors.
var (
	// ErrBusy is returned when a request is already in flight. Nothing
	// changes and no request is made.
	ErrBusy = errors.New("request already in flight")
	// ErrEmptyInput is returned for empty or whitespace-only input.
	ErrEmptyInput = errors.New("empty input")
	// ErrNotReady is returned when the mode's device is unavailable.
	ErrNotReady = errors.New("device not ready")
	// ErrClosed is returned after Close or once the session's epoch has
	// passed. Responses that arrive in that state are discarded.
	ErrClosed = errors.New("session closed")
)

// Gateway is the AI backend used by the sessions.
type Gateway interface {
	SimplifyText(ctx context.Context, text string, level types.ReadingLevel, language string) string
	DescribeImage(ctx context.Context, image []byte, language string) string
	InterpretSign(ctx context.Context, image []byte) string
	NewChat(ctx context.Context) (gateway.Chat, error)
}

var _ Gateway = (*gateway.Service)(nil)

// Epoch counts mode instances. Advancing it invalidates every ticket
// issued before.
type Epoch struct {
	n atomic.Uint64
}

// Advance starts a new epoch and returns its ticket.
func (e *Epoch) Advance() Ticket {
	return Ticket{epoch: e, n: e.n.Add(1)}
}

// Current returns a ticket for the running epoch.
func (e *Epoch) Current() Ticket {
	return Ticket{epoch: e, n: e.n.Load()}
}

// Ticket identifies the epoch a session was created in. The zero Ticket
// never goes stale.
type Ticket struct {
	epoch *Epoch
	n     uint64
}

// Valid reports whether the ticket's epoch is still the running one.
func (t Ticket) Valid() bool {
	return t.epoch == nil || t.epoch.n.Load() == t.n
}

// Env carries what every session needs from the shell.
type Env struct {
	Gateway  Gateway
	Settings settings.Reader
	Speaker  tts.Speaker // nil disables speech
	Ticket   Ticket

	// OnChange is called after every state change, outside the session
	// lock. It may be nil.
	OnChange func()
}

func (e Env) changed() {
	if e.OnChange != nil {
		e.OnChange()
	}
}

// prefs reads the settings at request time.
func (e Env) prefs() types.Settings {
	if e.Settings == nil {
		return types.DefaultSettings()
	}
	return e.Settings.Get()
}

func (e Env) speaker() tts.Speaker {
	if e.Speaker == nil {
		return tts.Silent{}
	}
	return e.Speaker
}

// life tracks whether a session may still apply results.
type life struct {
	ticket Ticket
	closed atomic.Bool
}

func (l *life) stale() bool {
	return l.closed.Load() || !l.ticket.Valid()
}
