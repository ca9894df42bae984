package stt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"go.aimuz.me/clearsight/audiocapture"
	"go.aimuz.me/clearsight/internal/types"
)

// fakeMic is a Capturer driven by the test.
type fakeMic struct {
	mu      sync.Mutex
	handler audiocapture.AudioHandler
	stops   int
}

func (m *fakeMic) Start(h audiocapture.AudioHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
	return nil
}

func (m *fakeMic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = nil
	m.stops++
	return nil
}

func (m *fakeMic) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *fakeMic) SampleRate() int { return testRate }
func (m *fakeMic) Channels() int   { return 1 }

// feed pushes blocks through the handler with a short pause so the
// consumer keeps up.
func (m *fakeMic) feed(blocks ...[]float32) {
	for _, b := range blocks {
		m.mu.Lock()
		h := m.handler
		m.mu.Unlock()
		if h != nil {
			h(b)
		}
		time.Sleep(time.Millisecond)
	}
}

func utterance() [][]float32 {
	var blocks [][]float32
	for range 5 {
		blocks = append(blocks, makeSpeech(block, 0.1))
	}
	for range 8 {
		blocks = append(blocks, makeSilence(block))
	}
	return blocks
}

type deliveries struct {
	mu  sync.Mutex
	got []types.Delivery
	ch  chan struct{}
}

func newDeliveries() *deliveries { return &deliveries{ch: make(chan struct{}, 16)} }

func (d *deliveries) deliver(v types.Delivery) {
	d.mu.Lock()
	d.got = append(d.got, v)
	d.mu.Unlock()
	d.ch <- struct{}{}
}

func (d *deliveries) wait(t *testing.T) {
	t.Helper()
	select {
	case <-d.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery")
	}
}

func TestWhisperDeliversFinals(t *testing.T) {
	var (
		mu                           sync.Mutex
		gotModel, gotLang, gotFormat string
		gotWAV                       []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		gotFormat = r.FormValue("response_format")
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			gotWAV, _ = io.ReadAll(f)
		}
		_, _ = io.WriteString(w, `{"text":" hello world "}`)
	}))
	defer srv.Close()

	mic := &fakeMic{}
	w := NewWhisper(WhisperConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Mic:     func() (audiocapture.Capturer, error) { return mic, nil },
	})
	d := newDeliveries()
	if err := w.Start(context.Background(), "English", d.deliver, func(err error) {
		t.Errorf("unexpected failure: %v", err)
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mic.feed(utterance()...)
	d.wait(t)
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	want := []types.Delivery{{Finals: []string{"hello world"}}}
	if diff := cmp.Diff(want, d.got); diff != "" {
		t.Errorf("deliveries mismatch (-want +got):\n%s", diff)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotModel != "whisper-1" || gotLang != "en" || gotFormat != "json" {
		t.Errorf("form = model %q language %q format %q", gotModel, gotLang, gotFormat)
	}
	if !bytes.HasPrefix(gotWAV, []byte("RIFF")) || len(gotWAV) <= 44 {
		t.Errorf("uploaded audio is not a WAV file (%d bytes)", len(gotWAV))
	}
	if mic.stopCount() == 0 {
		t.Error("microphone was not stopped")
	}
}

func TestWhisperFailureReleasesRecognizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	mic := &fakeMic{}
	w := NewWhisper(WhisperConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Mic:     func() (audiocapture.Capturer, error) { return mic, nil },
	})
	failed := make(chan error, 2)
	noDeliver := func(types.Delivery) { t.Error("unexpected delivery") }
	if err := w.Start(context.Background(), "", noDeliver, func(err error) { failed <- err }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	mic.feed(utterance()...)

	select {
	case err := <-failed:
		if err == nil {
			t.Error("fail called with nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("failure was not reported")
	}

	if err := w.Start(context.Background(), "", noDeliver, func(error) {}); err != nil {
		t.Errorf("Start() after failure error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWhisperStartGuards(t *testing.T) {
	if err := NewWhisper(WhisperConfig{}).Start(context.Background(), "", nil, nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start() without key error = %v, want ErrUnavailable", err)
	}

	mic := &fakeMic{}
	w := NewWhisper(WhisperConfig{APIKey: "k", Mic: func() (audiocapture.Capturer, error) { return mic, nil }})
	noop := func(types.Delivery) {}
	if err := w.Start(context.Background(), "", noop, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background(), "", noop, nil); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start() error = %v, want ErrRunning", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWhisperContextCancelReleases(t *testing.T) {
	mic := &fakeMic{}
	w := NewWhisper(WhisperConfig{APIKey: "k", Mic: func() (audiocapture.Capturer, error) { return mic, nil }})
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx, "", func(types.Delivery) {}, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for {
		err := w.Start(context.Background(), "", func(types.Delivery) {}, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Start() after cancel error = %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = w.Stop()
}

func TestEncodeWAV(t *testing.T) {
	wav := encodeWAV([]float32{0, 1, -1, 2}, 8000)
	if len(wav) != 44+8 {
		t.Fatalf("len = %d, want 52", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Errorf("bad header %q", wav[:44])
	}
	// sample rate field
	if got := uint32(wav[24]) | uint32(wav[25])<<8 | uint32(wav[26])<<16 | uint32(wav[27])<<24; got != 8000 {
		t.Errorf("sample rate = %d", got)
	}
}

func TestVoskDecoder(t *testing.T) {
	var p voskDecoder
	steps := []struct {
		raw         string
		want        types.Delivery
		wantChanged bool
	}{
		{`{"partial":""}`, types.Delivery{}, false},
		{`{"partial":"hello"}`, types.Delivery{Interim: "hello"}, true},
		{`{"partial":"hello"}`, types.Delivery{}, false},
		{`{"partial":"hello wor"}`, types.Delivery{Interim: "hello wor"}, true},
		{`{"text":"hello world"}`, types.Delivery{Finals: []string{"hello world"}}, true},
		{`{"text":""}`, types.Delivery{}, false},
	}
	for i, s := range steps {
		got, changed, err := p.decode(s.raw)
		if err != nil {
			t.Fatalf("step %d: decode() error = %v", i, err)
		}
		if changed != s.wantChanged {
			t.Errorf("step %d: changed = %v, want %v", i, changed, s.wantChanged)
		}
		if diff := cmp.Diff(s.want, got); diff != "" {
			t.Errorf("step %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if _, _, err := p.decode("not json"); err == nil {
		t.Error("decode() of garbage should fail")
	}
}

func TestVoskAvailable(t *testing.T) {
	if NewVosk(VoskConfig{}).Available() {
		t.Error("Available() without a model path = true")
	}
	if !NewVosk(VoskConfig{ModelPath: t.TempDir()}).Available() {
		t.Error("Available() with a model directory = false")
	}
	if err := NewVosk(VoskConfig{ModelPath: "/does/not/exist"}).Start(context.Background(), "", nil, nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start() error = %v, want ErrUnavailable", err)
	}
}
