// Package stt provides speech recognizers that turn microphone audio into
// transcript deliveries.
package stt

import (
	"context"
	"errors"
	"strings"

	"go.aimuz.me/clearsight/internal/types"
)

var (
	// ErrUnavailable is returned by Start when the recognizer cannot run on
	// this machine, for example because its model or API key is missing.
	ErrUnavailable = errors.New("speech recognition unavailable")
	// ErrRunning is returned by Start while already listening.
	ErrRunning = errors.New("recognizer already running")
)

// DeliverFunc receives recognizer output.
type DeliverFunc func(types.Delivery)

// FailFunc receives the error that ended a run. It is called at most once
// per Start and the recognizer has already stopped when it runs.
type FailFunc func(error)

// Recognizer is a streaming speech-to-text engine.
type Recognizer interface {
	// Name returns the recognizer identifier.
	Name() string
	// Available reports whether Start can succeed.
	Available() bool
	// Start begins listening. Output is delivered until Stop, ctx
	// cancellation or a failure.
	Start(ctx context.Context, language string, deliver DeliverFunc, fail FailFunc) error
	// Stop ends listening. It is safe to call when not running.
	Stop() error
}

// Unavailable is a Recognizer for machines without speech recognition.
type Unavailable struct{}

func (Unavailable) Name() string    { return "none" }
func (Unavailable) Available() bool { return false }
func (Unavailable) Start(context.Context, string, DeliverFunc, FailFunc) error {
	return ErrUnavailable
}
func (Unavailable) Stop() error { return nil }

// LanguageCode maps a settings language to the ISO 639-1 code engines
// expect. Empty means auto-detect.
func LanguageCode(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if l == "" || l == "auto" {
		return ""
	}
	if code, ok := languageCodes[l]; ok {
		return code
	}
	if len(l) == 2 {
		return l
	}
	if i := strings.IndexAny(l, "-_"); i == 2 {
		return l[:2]
	}
	return ""
}

var languageCodes = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"chinese":    "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"arabic":     "ar",
	"hindi":      "hi",
	"turkish":    "tr",
	"polish":     "pl",
	"swedish":    "sv",
	"ukrainian":  "uk",
	"vietnamese": "vi",
}
