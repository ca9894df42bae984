package session

import (
	"context"
	"log/slog"
	"sync"

	"go.aimuz.me/clearsight/tts"
)

// voice speaks on behalf of one session and tracks whether it is speaking.
// Starting a new utterance cancels the previous one.
type voice struct {
	env Env

	mu       sync.Mutex
	current  *tts.Utterance
	speaking bool
}

func (v *voice) speak(text string) {
	if text == "" {
		return
	}
	sp := v.env.speaker()
	sp.CancelAll()

	rate := v.env.prefs().VoiceSpeed
	u, err := sp.Speak(context.Background(), text, rate)
	if err != nil {
		slog.Warn("speak text", "error", err)
		return
	}

	v.mu.Lock()
	v.current = u
	v.mu.Unlock()

	go func() {
		select {
		case <-u.Started():
			v.set(u, true)
		case <-u.Done():
		}
		<-u.Done()
		v.set(u, false)
	}()
}

func (v *voice) set(u *tts.Utterance, speaking bool) {
	v.mu.Lock()
	if v.current != u {
		v.mu.Unlock()
		return
	}
	changed := v.speaking != speaking
	v.speaking = speaking
	if !speaking {
		v.current = nil
	}
	v.mu.Unlock()
	if changed {
		v.env.changed()
	}
}

func (v *voice) cancel() {
	v.env.speaker().CancelAll()
	v.mu.Lock()
	changed := v.speaking
	v.current = nil
	v.speaking = false
	v.mu.Unlock()
	if changed {
		v.env.changed()
	}
}

// wait blocks until the current utterance finishes or ctx is done.
func (v *voice) wait(ctx context.Context) error {
	v.mu.Lock()
	u := v.current
	v.mu.Unlock()
	if u == nil {
		return nil
	}
	select {
	case <-u.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *voice) isSpeaking() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.speaking
}
