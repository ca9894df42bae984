package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"go.aimuz.me/clearsight/audiocapture"
	"go.aimuz.me/clearsight/internal/types"
)

// VoskConfig holds configuration for the offline Vosk recognizer.
type VoskConfig struct {
	ModelPath string  // directory of an unpacked vosk model
	Mic       MicFunc // defaults to DefaultMic
}

// Vosk recognizes speech offline. It streams partial hypotheses as interim
// text and emits a final whenever vosk closes an utterance.
type Vosk struct {
	cfg VoskConfig
	l   listener

	mu    sync.Mutex
	model *vosk.VoskModel // loaded on first Start
}

// NewVosk creates a Vosk recognizer. The model is loaded lazily.
func NewVosk(cfg VoskConfig) *Vosk {
	if cfg.Mic == nil {
		cfg.Mic = DefaultMic
	}
	return &Vosk{cfg: cfg}
}

func (v *Vosk) Name() string { return "vosk" }

func (v *Vosk) Available() bool {
	if v.cfg.ModelPath == "" {
		return false
	}
	info, err := os.Stat(v.cfg.ModelPath)
	return err == nil && info.IsDir()
}

func (v *Vosk) loadModel() (*vosk.VoskModel, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.model != nil {
		return v.model, nil
	}
	vosk.SetLogLevel(-1)
	model, err := vosk.NewModel(v.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model from %s: %w", v.cfg.ModelPath, err)
	}
	if model == nil {
		return nil, fmt.Errorf("load vosk model from %s: model returned nil", v.cfg.ModelPath)
	}
	v.model = model
	return model, nil
}

// Start listens until Stop. The model is language specific, so language
// is ignored.
func (v *Vosk) Start(ctx context.Context, _ string, deliver DeliverFunc, fail FailFunc) error {
	if !v.Available() {
		return ErrUnavailable
	}
	model, err := v.loadModel()
	if err != nil {
		return err
	}
	r, err := v.l.begin(ctx, v.cfg.Mic)
	if err != nil {
		return fmt.Errorf("start vosk: %w", err)
	}
	rec, err := vosk.NewRecognizer(model, float64(r.mic.SampleRate()))
	if err != nil {
		_ = v.l.stop()
		return fmt.Errorf("create vosk recognizer: %w", err)
	}

	r.wg.Go(func() {
		defer rec.Free()
		var p voskDecoder
		for {
			samples, ok := r.next()
			if !ok {
				return
			}
			var raw string
			if rec.AcceptWaveform(audiocapture.ToPCM16(samples)) > 0 {
				raw = rec.Result()
			} else {
				raw = rec.PartialResult()
			}
			d, changed, err := p.decode(raw)
			if err != nil {
				r.abort(err, fail)
				return
			}
			if changed {
				deliver(d)
			}
		}
	})
	return nil
}

func (v *Vosk) Stop() error { return v.l.stop() }

// Close releases the loaded model.
func (v *Vosk) Close() error {
	_ = v.Stop()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

// voskResult is the JSON vosk returns from Result and PartialResult.
type voskResult struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

// voskDecoder turns vosk JSON into deliveries, suppressing partials that
// repeat the previous one.
type voskDecoder struct {
	lastPartial string
}

func (p *voskDecoder) decode(raw string) (types.Delivery, bool, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return types.Delivery{}, false, fmt.Errorf("parse vosk result: %w", err)
	}
	if text := strings.TrimSpace(res.Text); text != "" {
		p.lastPartial = ""
		return types.Delivery{Finals: []string{text}}, true, nil
	}
	partial := strings.TrimSpace(res.Partial)
	if partial == p.lastPartial {
		return types.Delivery{}, false, nil
	}
	p.lastPartial = partial
	return types.Delivery{Interim: partial}, true, nil
}
