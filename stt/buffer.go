package stt

import "time"

// AudioBuffer accumulates the samples of the utterance in progress.
type AudioBuffer struct {
	samples    []float32
	sampleRate int
	maxSamples int // oldest samples are dropped beyond this
}

// NewAudioBuffer creates a buffer holding up to limit of audio.
func NewAudioBuffer(sampleRate int, limit time.Duration) *AudioBuffer {
	maxSamples := int(limit.Seconds() * float64(sampleRate))
	return &AudioBuffer{
		samples:    make([]float32, 0, min(maxSamples, sampleRate*30)),
		sampleRate: sampleRate,
		maxSamples: maxSamples,
	}
}

// Append adds new audio samples to the buffer.
func (b *AudioBuffer) Append(samples []float32) {
	b.samples = append(b.samples, samples...)
	if over := len(b.samples) - b.maxSamples; b.maxSamples > 0 && over > 0 {
		b.samples = append(b.samples[:0], b.samples[over:]...)
	}
}

// Extract returns all buffered samples and empties the buffer.
func (b *AudioBuffer) Extract() []float32 {
	if len(b.samples) == 0 {
		return nil
	}
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	b.samples = b.samples[:0]
	return out
}

// KeepLast trims the buffer to its most recent d of audio. It is used to
// hold a little pre-roll while no one is speaking.
func (b *AudioBuffer) KeepLast(d time.Duration) {
	n := int(d.Seconds() * float64(b.sampleRate))
	if len(b.samples) > n {
		b.samples = append(b.samples[:0], b.samples[len(b.samples)-n:]...)
	}
}

// Clear empties the buffer completely.
func (b *AudioBuffer) Clear() {
	b.samples = b.samples[:0]
}

// Len returns the number of samples currently in the buffer.
func (b *AudioBuffer) Len() int {
	return len(b.samples)
}

// Duration returns the length of buffered audio.
func (b *AudioBuffer) Duration() time.Duration {
	if b.sampleRate == 0 {
		return 0
	}
	return time.Duration(len(b.samples)) * time.Second / time.Duration(b.sampleRate)
}
