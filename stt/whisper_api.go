package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.aimuz.me/clearsight/internal/types"
)

const defaultWhisperAPIURL = "https://api.openai.com/v1/audio/transcriptions"

// WhisperConfig holds configuration for the Whisper recognizer.
type WhisperConfig struct {
	APIKey  string
	BaseURL string // Optional, defaults to OpenAI's API
	Model   string // Optional, defaults to "whisper-1"

	Mic        MicFunc      // defaults to DefaultMic
	HTTPClient *http.Client // defaults to a client with a 60s timeout

	// VAD tuning. Zero values use the defaults below.
	Threshold float32
	MinSpeech time.Duration
	MaxSpeech time.Duration
	Silence   time.Duration
}

// Whisper transcribes utterances cut from the microphone stream by a VAD,
// uploading each one to an OpenAI-compatible transcription endpoint.
type Whisper struct {
	cfg  WhisperConfig
	http *http.Client
	l    listener
}

// NewWhisper creates a Whisper recognizer.
func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWhisperAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Mic == nil {
		cfg.Mic = DefaultMic
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.02
	}
	if cfg.MinSpeech == 0 {
		cfg.MinSpeech = 300 * time.Millisecond
	}
	if cfg.MaxSpeech == 0 {
		cfg.MaxSpeech = 15 * time.Second
	}
	if cfg.Silence == 0 {
		cfg.Silence = 700 * time.Millisecond
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Whisper{cfg: cfg, http: client}
}

func (w *Whisper) Name() string    { return "whisper-api" }
func (w *Whisper) Available() bool { return w.cfg.APIKey != "" }

// Start listens until Stop. Each completed utterance is delivered as one
// final; Whisper produces no interim hypotheses.
func (w *Whisper) Start(ctx context.Context, language string, deliver DeliverFunc, fail FailFunc) error {
	if !w.Available() {
		return ErrUnavailable
	}
	r, err := w.l.begin(ctx, w.cfg.Mic)
	if err != nil {
		return fmt.Errorf("start whisper: %w", err)
	}

	lang := LanguageCode(language)
	rate := r.mic.SampleRate()
	segments := make(chan []float32, 4)

	r.wg.Go(func() {
		defer close(segments)
		vad := NewVAD(w.cfg.Threshold, w.cfg.MinSpeech, w.cfg.MaxSpeech, w.cfg.Silence)
		buf := NewAudioBuffer(rate, w.cfg.MaxSpeech+time.Second)
		for {
			samples, ok := r.next()
			if !ok {
				return
			}
			buf.Append(samples)
			res := vad.Process(samples, rate)
			switch {
			case res.ShouldTranscribe:
				seg := buf.Extract()
				select {
				case segments <- seg:
				default:
					slog.Warn("drop speech segment", "duration", res.Duration)
				}
			case res.Event == EventSpeechDiscarded:
				buf.Clear()
			case !vad.InSpeech():
				// keep a short pre-roll so the first syllable is not clipped
				buf.KeepLast(300 * time.Millisecond)
			}
		}
	})

	r.wg.Go(func() {
		for seg := range segments {
			text, err := w.Transcribe(r.ctx, seg, rate, lang)
			if err != nil {
				if r.ctx.Err() != nil {
					return
				}
				r.abort(err, fail)
				return
			}
			if text = strings.TrimSpace(text); text != "" {
				deliver(types.Delivery{Finals: []string{text}})
			}
		}
	})
	return nil
}

func (w *Whisper) Stop() error { return w.l.stop() }

// Transcribe uploads mono samples and returns the recognized text.
// language is an ISO 639-1 code; empty means auto-detect.
func (w *Whisper) Transcribe(ctx context.Context, audio []float32, sampleRate int, language string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(encodeWAV(audio, sampleRate)); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("model", w.cfg.Model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API error %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return out.Text, nil
}
