package stt

import (
	"math"
	"time"
)

// VAD (Voice Activity Detector) cuts an audio stream into utterances.
// Durations are measured on the sample clock, so results do not depend on
// how fast audio arrives.
type VAD struct {
	// Thresholds
	threshold float32 // RMS threshold for speech detection

	// Duration constraints
	minSpeechDur time.Duration // shorter bursts are dropped as noise
	maxSpeechDur time.Duration // longer speech is cut into pieces
	silenceDur   time.Duration // silence that ends an utterance

	// State
	elapsed     time.Duration // audio processed so far
	inSpeech    bool
	speechStart time.Duration
	lastSpeech  time.Duration
}

// NewVAD creates a new voice activity detector with given thresholds.
func NewVAD(threshold float32, minSpeech, maxSpeech, silence time.Duration) *VAD {
	return &VAD{
		threshold:    threshold,
		minSpeechDur: minSpeech,
		maxSpeechDur: maxSpeech,
		silenceDur:   silence,
	}
}

// EventType represents the type of speech event.
type EventType int

const (
	EventNone EventType = iota // No event
	EventSpeechStart
	EventSpeechContinue
	EventSpeechEnd
	EventSpeechMaxDuration // Speech exceeded maxSpeechDur
	EventSpeechDiscarded   // Speech ended before minSpeechDur
)

func (e EventType) String() string {
	switch e {
	case EventSpeechStart:
		return "start"
	case EventSpeechContinue:
		return "continue"
	case EventSpeechEnd:
		return "end"
	case EventSpeechMaxDuration:
		return "max_duration"
	case EventSpeechDiscarded:
		return "discarded"
	}
	return "none"
}

// VADResult contains the result of processing audio samples.
type VADResult struct {
	Event            EventType
	Duration         time.Duration // speech length, set with ShouldTranscribe
	ShouldTranscribe bool          // buffered speech is ready to transcribe
}

// Process consumes one block of mono samples.
func (v *VAD) Process(samples []float32, sampleRate int) VADResult {
	if sampleRate <= 0 || len(samples) == 0 {
		return VADResult{}
	}
	v.elapsed += time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	now := v.elapsed

	var result VADResult
	if calculateRMS(samples) > v.threshold {
		if !v.inSpeech {
			v.inSpeech = true
			v.speechStart = now
			result.Event = EventSpeechStart
		} else {
			result.Event = EventSpeechContinue
		}
		v.lastSpeech = now
	}

	if !v.inSpeech {
		return result
	}

	speechDuration := v.lastSpeech - v.speechStart
	switch {
	case now-v.lastSpeech >= v.silenceDur:
		v.inSpeech = false
		if speechDuration < v.minSpeechDur {
			result.Event = EventSpeechDiscarded
			return result
		}
		result.Event = EventSpeechEnd
		result.Duration = speechDuration
		result.ShouldTranscribe = true
	case now-v.speechStart >= v.maxSpeechDur:
		result.Event = EventSpeechMaxDuration
		result.Duration = now - v.speechStart
		result.ShouldTranscribe = true
		// long speech continues as a new piece
		v.speechStart = now
	}
	return result
}

// Reset clears the detector state.
func (v *VAD) Reset() {
	*v = VAD{
		threshold:    v.threshold,
		minSpeechDur: v.minSpeechDur,
		maxSpeechDur: v.maxSpeechDur,
		silenceDur:   v.silenceDur,
	}
}

// InSpeech returns true if currently in a speech segment.
func (v *VAD) InSpeech() bool {
	return v.inSpeech
}

// calculateRMS calculates the root mean square of audio samples.
func calculateRMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
