package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.aimuz.me/clearsight/audiocapture"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/stt"
)

// frameSamples is one 20ms Opus frame of interleaved stereo samples.
const frameSamples = SampleRate / 50 * Channels

// transport is the part of Client the recognizer drives.
type transport interface {
	Connect(ctx context.Context) error
	SendAudio(frame []float32) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// RecognizerConfig holds configuration for the realtime recognizer.
type RecognizerConfig struct {
	APIKey string
	Model  string      // transcription model
	Prompt string      // optional transcription prompt
	Mic    stt.MicFunc // defaults to a 48 kHz stereo malgo capturer
}

// Recognizer implements stt.Recognizer on a Realtime transcription call.
// Deltas are shown as interim text until their item completes.
type Recognizer struct {
	cfg  RecognizerConfig
	dial func(Config) transport

	mu     sync.Mutex
	cancel context.CancelFunc
	mic    audiocapture.Capturer
	client transport
	wg     sync.WaitGroup
}

// NewRecognizer creates a realtime recognizer.
func NewRecognizer(cfg RecognizerConfig) *Recognizer {
	if cfg.Mic == nil {
		cfg.Mic = func() (audiocapture.Capturer, error) {
			return audiocapture.New(audiocapture.Config{SampleRate: SampleRate, Channels: Channels})
		}
	}
	return &Recognizer{
		cfg:  cfg,
		dial: func(c Config) transport { return NewClient(c) },
	}
}

func (r *Recognizer) Name() string    { return "openai-realtime" }
func (r *Recognizer) Available() bool { return r.cfg.APIKey != "" }

// Start connects the call and begins streaming the microphone.
func (r *Recognizer) Start(ctx context.Context, language string, deliver stt.DeliverFunc, fail stt.FailFunc) error {
	if !r.Available() {
		return stt.ErrUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return stt.ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	client := r.dial(Config{
		APIKey:  r.cfg.APIKey,
		Session: SessionConfig{Model: r.cfg.Model, Language: stt.LanguageCode(language), Prompt: r.cfg.Prompt},
	})
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("connect realtime: %w", err)
	}

	mic, err := r.cfg.Mic()
	if err != nil {
		cancel()
		_ = client.Close()
		return fmt.Errorf("open microphone: %w", err)
	}
	f := &framer{channels: mic.Channels()}
	err = mic.Start(func(samples []float32) {
		f.push(samples, func(frame []float32) {
			if err := client.SendAudio(frame); err != nil && ctx.Err() == nil {
				slog.Debug("send audio", "error", err)
			}
		})
	})
	if err != nil {
		cancel()
		_ = client.Close()
		return fmt.Errorf("start microphone: %w", err)
	}

	r.cancel, r.mic, r.client = cancel, mic, client
	r.wg.Go(func() { r.loop(ctx, client, deliver, fail) })
	slog.Info("start realtime transcription", "language", language)
	return nil
}

func (r *Recognizer) loop(ctx context.Context, client transport, deliver stt.DeliverFunc, fail stt.FailFunc) {
	var asm assembler
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-client.Errors():
			r.abort(ctx, err, fail)
			return
		case event, ok := <-client.Events():
			if !ok {
				return
			}
			d, err := asm.handle(event)
			if err != nil {
				r.abort(ctx, err, fail)
				return
			}
			if d != nil {
				deliver(*d)
			}
		}
	}
}

// abort tears the run down from the event loop.
func (r *Recognizer) abort(ctx context.Context, err error, fail stt.FailFunc) {
	if ctx.Err() != nil {
		return
	}
	r.mu.Lock()
	cancel, mic, client := r.cancel, r.mic, r.client
	r.cancel, r.mic, r.client = nil, nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	_ = mic.Stop()
	_ = client.Close()
	if fail != nil {
		fail(err)
	}
}

// Stop hangs up and waits for the event loop.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	cancel, mic, client := r.cancel, r.mic, r.client
	r.cancel, r.mic, r.client = nil, nil, nil
	r.mu.Unlock()
	if cancel == nil {
		r.wg.Wait()
		return nil
	}
	cancel()
	err := mic.Stop()
	if cerr := client.Close(); err == nil {
		err = cerr
	}
	r.wg.Wait()
	return err
}

// assembler accumulates per-item deltas. Items still in progress form the
// interim text, in the order they started.
type assembler struct {
	order []string
	text  map[string]string
}

func (a *assembler) interim() string {
	parts := make([]string, 0, len(a.order))
	for _, id := range a.order {
		if t := strings.TrimSpace(a.text[id]); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (a *assembler) drop(id string) {
	delete(a.text, id)
	for i, v := range a.order {
		if v == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// handle returns the delivery for event, or nil when nothing changes.
func (a *assembler) handle(event Event) (*types.Delivery, error) {
	if a.text == nil {
		a.text = make(map[string]string)
	}
	switch e := event.(type) {
	case TranscriptDeltaEvent:
		if _, ok := a.text[e.ItemID]; !ok {
			a.order = append(a.order, e.ItemID)
		}
		a.text[e.ItemID] += e.Delta
		return &types.Delivery{Interim: a.interim()}, nil
	case TranscriptEvent:
		a.drop(e.ItemID)
		d := &types.Delivery{Interim: a.interim()}
		if t := strings.TrimSpace(e.Transcript); t != "" {
			d.Finals = []string{t}
		}
		return d, nil
	case TranscriptFailedEvent:
		slog.Warn("transcribe item", "item", e.ItemID, "error", e.Error.Message)
		a.drop(e.ItemID)
		return &types.Delivery{Interim: a.interim()}, nil
	case ErrorEvent:
		return nil, fmt.Errorf("realtime api error: %s (%s)", e.Error.Message, e.Error.Code)
	}
	return nil, nil
}

// framer cuts capture buffers into fixed Opus frames, widening mono input
// to stereo.
type framer struct {
	channels int
	pending  []float32
}

func (f *framer) push(samples []float32, emit func([]float32)) {
	if f.channels == 1 {
		for _, s := range samples {
			f.pending = append(f.pending, s, s)
		}
	} else {
		f.pending = append(f.pending, samples...)
	}
	off := 0
	for len(f.pending)-off >= frameSamples {
		emit(f.pending[off : off+frameSamples])
		off += frameSamples
	}
	f.pending = f.pending[:copy(f.pending, f.pending[off:])]
}
