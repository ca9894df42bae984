package stt

import (
	"testing"
	"time"
)

const testRate = 16000

// block is 100ms of audio at testRate.
const block = testRate / 10

func makeSilence(n int) []float32 {
	return make([]float32, n)
}

func makeSpeech(n int, amplitude float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = amplitude
		} else {
			s[i] = -amplitude
		}
	}
	return s
}

func newTestVAD() *VAD {
	return NewVAD(
		0.02,                 // threshold
		300*time.Millisecond, // minSpeech
		5*time.Second,        // maxSpeech
		400*time.Millisecond, // silence
	)
}

func TestVAD_SpeechDetection(t *testing.T) {
	tests := []struct {
		name          string
		samples       []float32
		wantEventType EventType
		wantInSpeech  bool
	}{
		{"silence", makeSilence(block), EventNone, false},
		{"quiet noise", makeSpeech(block, 0.01), EventNone, false},
		{"loud audio", makeSpeech(block, 0.05), EventSpeechStart, true},
		{"empty block", nil, EventNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVAD()
			result := v.Process(tt.samples, testRate)
			if result.Event != tt.wantEventType {
				t.Errorf("Event = %v, want %v", result.Event, tt.wantEventType)
			}
			if result.ShouldTranscribe {
				t.Error("ShouldTranscribe = true, want false")
			}
			if v.InSpeech() != tt.wantInSpeech {
				t.Errorf("InSpeech() = %v, want %v", v.InSpeech(), tt.wantInSpeech)
			}
		})
	}
}

func TestVAD_SpeechSequence(t *testing.T) {
	v := newTestVAD()

	sequence := []struct {
		samples        []float32
		wantEventType  EventType
		wantTranscribe bool
	}{
		{makeSilence(block), EventNone, false},
		{makeSpeech(block, 0.1), EventSpeechStart, false},
		{makeSpeech(block, 0.1), EventSpeechContinue, false},
		{makeSpeech(block, 0.1), EventSpeechContinue, false},
		{makeSpeech(block, 0.1), EventSpeechContinue, false},
		{makeSpeech(block, 0.1), EventSpeechContinue, false},
		{makeSilence(block), EventNone, false},
		{makeSilence(block), EventNone, false},
		{makeSilence(block), EventNone, false},
		{makeSilence(block), EventSpeechEnd, true},
		{makeSilence(block), EventNone, false},
	}

	for i, step := range sequence {
		result := v.Process(step.samples, testRate)
		if result.Event != step.wantEventType {
			t.Fatalf("step %d: Event = %v, want %v", i, result.Event, step.wantEventType)
		}
		if result.ShouldTranscribe != step.wantTranscribe {
			t.Fatalf("step %d: ShouldTranscribe = %v, want %v", i, result.ShouldTranscribe, step.wantTranscribe)
		}
		if step.wantTranscribe && result.Duration != 400*time.Millisecond {
			t.Errorf("step %d: Duration = %v, want 400ms", i, result.Duration)
		}
	}
}

func TestVAD_ShortBurstDiscarded(t *testing.T) {
	v := newTestVAD()
	v.Process(makeSpeech(block, 0.1), testRate)

	var last VADResult
	for range 4 {
		last = v.Process(makeSilence(block), testRate)
	}
	if last.Event != EventSpeechDiscarded {
		t.Errorf("Event = %v, want %v", last.Event, EventSpeechDiscarded)
	}
	if last.ShouldTranscribe {
		t.Error("discarded speech should not be transcribed")
	}
}

func TestVAD_MaxDuration(t *testing.T) {
	v := NewVAD(0.02, 100*time.Millisecond, 500*time.Millisecond, 400*time.Millisecond)

	var got []EventType
	for range 6 {
		got = append(got, v.Process(makeSpeech(block, 0.1), testRate).Event)
	}
	if got[5] != EventSpeechMaxDuration {
		t.Fatalf("events = %v, want max_duration last", got)
	}
	if !v.InSpeech() {
		t.Error("speech should continue after a max duration cut")
	}
	if r := v.Process(makeSpeech(block, 0.1), testRate); r.Event != EventSpeechContinue {
		t.Errorf("next Event = %v, want continue", r.Event)
	}
}

func TestVAD_Reset(t *testing.T) {
	v := newTestVAD()
	v.Process(makeSpeech(block, 0.1), testRate)
	v.Reset()
	if v.InSpeech() {
		t.Error("InSpeech() after Reset = true")
	}
	if r := v.Process(makeSpeech(block, 0.1), testRate); r.Event != EventSpeechStart {
		t.Errorf("Event after Reset = %v, want start", r.Event)
	}
}

func TestAudioBuffer(t *testing.T) {
	b := NewAudioBuffer(testRate, time.Second)
	b.Append(makeSpeech(block, 0.1))
	if got := b.Duration(); got != 100*time.Millisecond {
		t.Errorf("Duration() = %v", got)
	}

	// limit is one second; older audio is dropped
	for range 12 {
		b.Append(makeSilence(block))
	}
	if b.Len() != testRate {
		t.Errorf("Len() = %d, want %d", b.Len(), testRate)
	}

	b.KeepLast(200 * time.Millisecond)
	if b.Len() != 2*block {
		t.Errorf("Len() after KeepLast = %d", b.Len())
	}

	out := b.Extract()
	if len(out) != 2*block || b.Len() != 0 {
		t.Errorf("Extract() = %d samples, remaining %d", len(out), b.Len())
	}
	if b.Extract() != nil {
		t.Error("Extract() on empty buffer should be nil")
	}
}

func TestLanguageCode(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"auto":    "",
		"English": "en",
		"spanish": "es",
		"fr":      "fr",
		"pt-BR":   "pt",
		"zh_Hans": "zh",
		"Klingon": "",
	}
	for in, want := range tests {
		if got := LanguageCode(in); got != want {
			t.Errorf("LanguageCode(%q) = %q, want %q", in, got, want)
		}
	}
}
