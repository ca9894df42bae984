package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.aimuz.me/clearsight/gateway"
	"go.aimuz.me/clearsight/internal/fake"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/settings"
)

func TestImageCaptureDescribesAndSpeaks(t *testing.T) {
	var gotLang string
	g := &fake.Gateway{Describe: func(_ []byte, language string) string {
		gotLang = language
		return "A red mug on a desk."
	}}
	env, sp, store := newEnv(g)
	store.Update(settings.Patch{Language: settings.Ptr("Spanish"), VoiceSpeed: settings.Ptr(1.5)})

	s := NewImageSession(env, &fake.Camera{})
	if err := s.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.Status != types.StatusRendering {
		t.Errorf("Status = %v, want rendering", snap.Status)
	}
	if snap.Result == nil || snap.Result.Text != "A red mug on a desk." || snap.Result.ID == "" {
		t.Errorf("Result = %+v", snap.Result)
	}
	if gotLang != "Spanish" {
		t.Errorf("language = %q, want Spanish", gotLang)
	}
	if got := sp.Spoken(); len(got) != 1 || got[0].Rate != 1.5 {
		t.Errorf("spoken = %+v, want one utterance at 1.5", got)
	}
	if len(snap.Frames) != 1 {
		t.Errorf("Frames = %d, want 1", len(snap.Frames))
	}
}

func TestImageCaptureKeepsTwoFrames(t *testing.T) {
	g := &fake.Gateway{Describe: func([]byte, string) string { return "ok" }}
	env, _, _ := newEnv(g)
	s := NewImageSession(env, &fake.Camera{})
	for range 3 {
		if err := s.Capture(context.Background()); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
	}
	frames := s.Snapshot().Frames
	if len(frames) != 2 {
		t.Fatalf("Frames = %d, want 2", len(frames))
	}
	if frames[0].Image[2] != 2 || frames[1].Image[2] != 3 {
		t.Errorf("frames are not the two latest: %v %v", frames[0].Image, frames[1].Image)
	}
}

func TestImageCaptureBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	g := &fake.Gateway{Describe: func([]byte, string) string {
		close(entered)
		<-release
		return "done"
	}}
	env, _, _ := newEnv(g)
	s := NewImageSession(env, &fake.Camera{})

	errc := make(chan error, 1)
	go func() { errc <- s.Capture(context.Background()) }()
	<-entered

	before := s.Snapshot()
	if err := s.Capture(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Capture() error = %v, want ErrBusy", err)
	}
	if after := s.Snapshot(); after.Status != before.Status || len(after.Frames) != len(before.Frames) {
		t.Errorf("busy capture changed state: %+v -> %+v", before, after)
	}
	if n := g.Calls(gateway.OpDescribe); n != 1 {
		t.Errorf("describe calls = %d, want 1", n)
	}
	if err := s.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("Reset() while busy error = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("first Capture() error = %v", err)
	}
}

func TestImageCaptureErrors(t *testing.T) {
	env, _, _ := newEnv(&fake.Gateway{})

	if err := NewImageSession(env, nil).Capture(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Capture() without camera error = %v, want ErrNotReady", err)
	}

	s := NewImageSession(env, &fake.Camera{Err: errors.New("unplugged")})
	if err := s.Capture(context.Background()); err == nil {
		t.Fatal("Capture() should fail when the frame cannot be read")
	}
	snap := s.Snapshot()
	if snap.Status != types.StatusError || snap.Err == "" {
		t.Errorf("snapshot = %+v, want error status", snap)
	}
}

func TestImageResetAndStale(t *testing.T) {
	g := &fake.Gateway{Describe: func([]byte, string) string { return "x" }}
	env, sp, _ := newEnv(g)
	var e Epoch
	env.Ticket = e.Advance()

	s := NewImageSession(env, &fake.Camera{})
	if err := s.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.Status != types.StatusIdle || snap.Result != nil || len(snap.Frames) != 0 {
		t.Errorf("after Reset snapshot = %+v", snap)
	}
	if sp.Cancels() == 0 {
		t.Error("Reset should cancel speech")
	}

	e.Advance()
	if err := s.Capture(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Capture() after epoch change error = %v, want ErrClosed", err)
	}
}

func TestImageStaleResponseDiscarded(t *testing.T) {
	var e Epoch
	release := make(chan struct{})
	entered := make(chan struct{})
	g := &fake.Gateway{Describe: func([]byte, string) string {
		close(entered)
		<-release
		return "late answer"
	}}
	env, sp, _ := newEnv(g)
	env.Ticket = e.Advance()
	s := NewImageSession(env, &fake.Camera{})

	errc := make(chan error, 1)
	go func() { errc <- s.Capture(context.Background()) }()
	<-entered
	e.Advance() // mode exited
	close(release)

	if err := <-errc; !errors.Is(err, ErrClosed) {
		t.Errorf("Capture() error = %v, want ErrClosed", err)
	}
	if s.Snapshot().Result != nil {
		t.Error("stale response was applied")
	}
	if len(sp.Texts()) != 0 {
		t.Errorf("stale response was spoken: %v", sp.Texts())
	}
}

func TestImageSpeakingFlag(t *testing.T) {
	g := &fake.Gateway{Describe: func([]byte, string) string { return "long description" }}
	env, sp, _ := newEnv(g)
	sp.Hold = true
	s := NewImageSession(env, &fake.Camera{})

	if err := s.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	waitFor(t, "speaking", func() bool { return s.Snapshot().Speaking })

	s.StopSpeaking()
	waitFor(t, "speech stopped", func() bool { return !s.Snapshot().Speaking })
}

func TestImageWaitSpoken(t *testing.T) {
	g := &fake.Gateway{Describe: func([]byte, string) string { return "long description" }}
	env, sp, _ := newEnv(g)
	sp.Hold = true
	s := NewImageSession(env, &fake.Camera{})

	if err := s.WaitSpoken(context.Background()); err != nil {
		t.Fatalf("WaitSpoken() before capture error = %v", err)
	}
	if err := s.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.WaitSpoken(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitSpoken() while speaking error = %v, want deadline exceeded", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.WaitSpoken(context.Background()) }()
	sp.CancelAll()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitSpoken() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitSpoken() did not return after speech finished")
	}
}
