package app

import (
	"log/slog"
	"strings"

	"go.aimuz.me/clearsight/capture"
	"go.aimuz.me/clearsight/config"
	"go.aimuz.me/clearsight/shell"
	"go.aimuz.me/clearsight/stt"
	"go.aimuz.me/clearsight/stt/realtime"
	"go.aimuz.me/clearsight/tts"
)

// Devices builds the camera, recognizer and speaker the config names.
// Missing devices are nil so their modes show as not ready.
func Devices(cfg *config.Config) shell.Devices {
	return shell.Devices{
		Camera:     newCamera(cfg.Camera),
		Recognizer: newRecognizer(cfg),
		Speaker:    newSpeaker(cfg.Speech),
	}
}

func newCamera(c config.CameraConfig) capture.Camera {
	switch c.Source {
	case config.CameraDir:
		return &capture.DirCamera{Dir: c.Dir}
	case config.CameraScreen:
		return &capture.ScreenCamera{}
	default:
		return &capture.FFmpegCamera{
			Binary:      c.Binary,
			InputFormat: c.InputFormat,
			FrontDevice: c.FrontDevice,
			BackDevice:  c.BackDevice,
			Size:        c.Size,
		}
	}
}

// newRecognizer picks the configured recognizer. auto prefers the offline
// vosk model, then realtime transcription, then nothing.
func newRecognizer(cfg *config.Config) stt.Recognizer {
	sp := cfg.Speech
	key, base := "", ""
	if cred := cfg.CredentialFor(sp.CredentialID, config.ProviderOpenAI); cred != nil {
		key, base = cred.APIKey, cred.BaseURL
	}

	vosk := func() stt.Recognizer { return stt.NewVosk(stt.VoskConfig{ModelPath: sp.VoskModel}) }
	rt := func() stt.Recognizer {
		return realtime.NewRecognizer(realtime.RecognizerConfig{APIKey: key, Model: sp.RealtimeModel})
	}
	whisper := func() stt.Recognizer {
		wc := stt.WhisperConfig{APIKey: key, Model: sp.WhisperModel}
		if base != "" {
			wc.BaseURL = strings.TrimRight(base, "/") + "/audio/transcriptions"
		}
		return stt.NewWhisper(wc)
	}

	var rec stt.Recognizer
	switch sp.Recognizer {
	case config.RecognizerNone:
		return nil
	case config.RecognizerVosk:
		rec = vosk()
	case config.RecognizerRealtime:
		rec = rt()
	case config.RecognizerWhisper:
		rec = whisper()
	default:
		for _, candidate := range []func() stt.Recognizer{vosk, rt} {
			if r := candidate(); r.Available() {
				rec = r
				break
			}
		}
	}
	if rec == nil {
		slog.Warn("no speech recognizer available")
		return nil
	}
	slog.Info("speech recognizer selected", "name", rec.Name(), "available", rec.Available())
	return rec
}

func newSpeaker(sp config.SpeechConfig) tts.Speaker {
	voice := func() tts.Speaker {
		s, err := tts.NewCommandSpeaker(sp.Engine, sp.Voice)
		if err != nil {
			slog.Warn("no speech engine", "engine", sp.Engine, "error", err)
			return nil
		}
		return s
	}

	var out tts.Multi
	switch sp.Output {
	case config.OutputNone:
	case config.OutputNotify:
		out = append(out, &tts.NotifySpeaker{})
	case config.OutputBoth:
		if v := voice(); v != nil {
			out = append(out, v)
		}
		out = append(out, &tts.NotifySpeaker{})
	default:
		if v := voice(); v != nil {
			out = append(out, v)
		}
	}
	switch len(out) {
	case 0:
		return tts.Silent{}
	case 1:
		return out[0]
	}
	return out
}
