package session

import (
	"context"
	"errors"
	"testing"

	"go.aimuz.me/clearsight/internal/fake"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/settings"
)

func newTranscript(t *testing.T, rec *fake.Recognizer) (*TranscriptSession, *settings.Store) {
	t.Helper()
	env, _, store := newEnv(&fake.Gateway{})
	s := NewTranscriptSession(env, rec)
	t.Cleanup(s.Close)
	return s, store
}

func TestTranscriptGrowsOnlyFromFinals(t *testing.T) {
	rec := &fake.Recognizer{}
	s, _ := newTranscript(t, rec)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec.Deliver(types.Delivery{Interim: "foo"})
	rec.Deliver(types.Delivery{Interim: "bar"})
	snap := s.Snapshot()
	if snap.Transcript != "" || snap.Interim != "bar" {
		t.Fatalf("after interims: transcript=%q interim=%q", snap.Transcript, snap.Interim)
	}

	rec.Deliver(types.Delivery{Finals: []string{"hello"}})
	snap = s.Snapshot()
	if snap.Transcript != "hello" || snap.Interim != "" {
		t.Errorf("after final: transcript=%q interim=%q", snap.Transcript, snap.Interim)
	}

	rec.Deliver(types.Delivery{Finals: []string{" how are ", "", "you"}, Interim: "to"})
	snap = s.Snapshot()
	if snap.Transcript != "hello how are you" {
		t.Errorf("Transcript = %q, want single-space join", snap.Transcript)
	}
	if snap.Interim != "to" {
		t.Errorf("Interim = %q, want to", snap.Interim)
	}
	if snap.Status != types.StatusCapturing || !snap.Listening {
		t.Errorf("snapshot = %+v, want capturing", snap)
	}
}

func TestTranscriptStopDiscardsInterimAndLateResults(t *testing.T) {
	rec := &fake.Recognizer{}
	s, _ := newTranscript(t, rec)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec.Deliver(types.Delivery{Finals: []string{"kept"}, Interim: "pending"})

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	rec.Deliver(types.Delivery{Finals: []string{"late"}})

	snap := s.Snapshot()
	if snap.Transcript != "kept" || snap.Interim != "" {
		t.Errorf("after stop: transcript=%q interim=%q", snap.Transcript, snap.Interim)
	}
	if snap.Listening || snap.Status != types.StatusIdle {
		t.Errorf("snapshot = %+v, want idle", snap)
	}
	if _, stops := rec.Counts(); stops != 1 {
		t.Errorf("recognizer stops = %d, want 1", stops)
	}

	// a new run keeps the transcript and ignores the old run's callbacks
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	rec.Deliver(types.Delivery{Finals: []string{"again"}})
	if got := s.Transcript(); got != "kept again" {
		t.Errorf("Transcript() = %q, want %q", got, "kept again")
	}
}

func TestTranscriptFailureForceStops(t *testing.T) {
	rec := &fake.Recognizer{}
	s, _ := newTranscript(t, rec)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec.Deliver(types.Delivery{Finals: []string{"hi"}, Interim: "th"})
	rec.Fail(errors.New("network lost"))

	snap := s.Snapshot()
	if snap.Listening || snap.Status != types.StatusError || snap.Err == "" {
		t.Errorf("snapshot = %+v, want error and not listening", snap)
	}
	if snap.Transcript != "hi" || snap.Interim != "" {
		t.Errorf("transcript=%q interim=%q", snap.Transcript, snap.Interim)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() after failure error = %v", err)
	}
	if snap := s.Snapshot(); snap.Err != "" || snap.Status != types.StatusCapturing {
		t.Errorf("restart snapshot = %+v", snap)
	}
}

func TestTranscriptStartErrors(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		s, _ := newTranscript(t, &fake.Recognizer{Unavailable: true})
		if got := s.Snapshot().Placeholder; got != UnavailablePlaceholder {
			t.Errorf("Placeholder = %q", got)
		}
		if err := s.Start(context.Background()); !errors.Is(err, ErrNotReady) {
			t.Errorf("Start() error = %v, want ErrNotReady", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		env, _, _ := newEnv(&fake.Gateway{})
		s := NewTranscriptSession(env, nil)
		if err := s.Start(context.Background()); !errors.Is(err, ErrNotReady) {
			t.Errorf("Start() error = %v, want ErrNotReady", err)
		}
		s.Close()
	})

	t.Run("start fails", func(t *testing.T) {
		startErr := errors.New("mic busy")
		s, _ := newTranscript(t, &fake.Recognizer{StartErr: startErr})
		if err := s.Start(context.Background()); !errors.Is(err, startErr) {
			t.Errorf("Start() error = %v, want %v", err, startErr)
		}
		if snap := s.Snapshot(); snap.Listening || snap.Status != types.StatusError {
			t.Errorf("snapshot = %+v, want error", snap)
		}
	})

	t.Run("already listening", func(t *testing.T) {
		rec := &fake.Recognizer{}
		s, _ := newTranscript(t, rec)
		for range 2 {
			if err := s.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
		}
		if starts, _ := rec.Counts(); starts != 1 {
			t.Errorf("recognizer starts = %d, want 1", starts)
		}
	})
}

func TestTranscriptClearWhileListening(t *testing.T) {
	rec := &fake.Recognizer{}
	s, _ := newTranscript(t, rec)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec.Deliver(types.Delivery{Finals: []string{"one"}, Interim: "tw"})
	s.Clear()
	rec.Deliver(types.Delivery{Finals: []string{"two"}})

	snap := s.Snapshot()
	if snap.Transcript != "two" || !snap.Listening {
		t.Errorf("snapshot = %+v, want transcript two while listening", snap)
	}
}

func TestTranscriptUsesSettingsLanguage(t *testing.T) {
	rec := &fake.Recognizer{}
	s, store := newTranscript(t, rec)
	store.Update(settings.Patch{Language: settings.Ptr("French")})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := rec.Language(); got != "French" {
		t.Errorf("language = %q, want French", got)
	}
}

func TestTranscriptClosed(t *testing.T) {
	var e Epoch
	rec := &fake.Recognizer{}
	env, _, _ := newEnv(&fake.Gateway{})
	env.Ticket = e.Advance()
	s := NewTranscriptSession(env, rec)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Close()
	e.Advance()
	rec.Deliver(types.Delivery{Finals: []string{"late"}})

	if got := s.Transcript(); got != "" {
		t.Errorf("Transcript() = %q, want empty", got)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after close error = %v, want ErrClosed", err)
	}
	if _, stops := rec.Counts(); stops != 1 {
		t.Errorf("recognizer stops = %d, want 1", stops)
	}
}
