// Package tts speaks results aloud.
package tts

import (
	"context"
	"sync"
)

// Speaker synthesises speech. Speak returns as soon as the utterance is
// queued; progress is observed on the returned Utterance.
type Speaker interface {
	Speak(ctx context.Context, text string, rate float64) (*Utterance, error)
	// CancelAll stops every utterance in progress.
	CancelAll()
}

// Utterance is one piece of text being spoken.
type Utterance struct {
	Text string

	startOnce sync.Once
	started   chan struct{}
	doneOnce  sync.Once
	done      chan struct{}
	err       error
}

// NewUtterance creates an utterance in the pending state.
func NewUtterance(text string) *Utterance {
	return &Utterance{Text: text, started: make(chan struct{}), done: make(chan struct{})}
}

// Started is closed when audio begins.
func (u *Utterance) Started() <-chan struct{} { return u.started }

// Done is closed when the utterance finishes, fails or is cancelled.
func (u *Utterance) Done() <-chan struct{} { return u.done }

// Err is the failure, if any, once Done is closed.
func (u *Utterance) Err() error {
	<-u.done
	return u.err
}

// MarkStarted closes Started.
func (u *Utterance) MarkStarted() {
	u.startOnce.Do(func() { close(u.started) })
}

// Finish closes Done with err.
func (u *Utterance) Finish(err error) {
	u.doneOnce.Do(func() {
		u.err = err
		close(u.done)
	})
}

// Multi speaks on every speaker at once.
type Multi []Speaker

func (m Multi) Speak(ctx context.Context, text string, rate float64) (*Utterance, error) {
	var utts []*Utterance
	for _, s := range m {
		u, err := s.Speak(ctx, text, rate)
		if err != nil {
			continue
		}
		utts = append(utts, u)
	}
	combined := NewUtterance(text)
	if len(utts) == 0 {
		combined.MarkStarted()
		combined.Finish(nil)
		return combined, nil
	}
	go func() {
		// started when the first speaker starts, done when all are
		go func() {
			for _, u := range utts {
				select {
				case <-u.Started():
					combined.MarkStarted()
					return
				case <-combined.Done():
					return
				}
			}
		}()
		var firstErr error
		for _, u := range utts {
			if err := u.Err(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		combined.MarkStarted()
		combined.Finish(firstErr)
	}()
	return combined, nil
}

func (m Multi) CancelAll() {
	for _, s := range m {
		s.CancelAll()
	}
}

// Silent discards everything. Its utterances finish immediately.
type Silent struct{}

func (Silent) Speak(_ context.Context, text string, _ float64) (*Utterance, error) {
	u := NewUtterance(text)
	u.MarkStarted()
	u.Finish(nil)
	return u, nil
}

func (Silent) CancelAll() {}
