// Package audiocapture provides microphone capture.
package audiocapture

import "errors"

// AudioHandler receives captured float32 samples in [-1, 1], interleaved
// when the capturer has more than one channel. The slice is only valid for
// the duration of the call.
type AudioHandler func(samples []float32)

// Capturer captures audio from the default input device.
type Capturer interface {
	// Start begins capture. handler is called from the audio thread and
	// must not block.
	Start(handler AudioHandler) error
	// Stop ends capture. It is safe to call more than once.
	Stop() error
	// SampleRate is the rate of the samples delivered to the handler.
	SampleRate() int
	// Channels is the number of interleaved channels.
	Channels() int
}

var (
	// ErrRunning is returned by Start when capture is already active.
	ErrRunning = errors.New("audio capture already running")
	// ErrNilHandler is returned by Start without a handler.
	ErrNilHandler = errors.New("audio handler is nil")
)

// Config holds configuration for audio capture.
type Config struct {
	SampleRate int // default 16000 Hz
	Channels   int // default 1
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	return c
}
