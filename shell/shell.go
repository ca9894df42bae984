// Package shell switches between the interaction modes. It owns the
// devices and makes sure only the active mode's session holds them.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/clearsight/capture"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/session"
	"go.aimuz.me/clearsight/settings"
	"go.aimuz.me/clearsight/stt"
	"go.aimuz.me/clearsight/tts"
)

// Devices are the capture and output devices shared by the modes. Any
// of them may be nil.
type Devices struct {
	Camera     capture.Camera
	Recognizer stt.Recognizer
	Speaker    tts.Speaker
}

// Config configures a Navigator.
type Config struct {
	Gateway  session.Gateway
	Settings *settings.Store
	Devices  Devices

	Sign session.SignConfig
	Text session.TextConfig

	// OnChange is called after any state change of the active session
	// and after every mode switch.
	OnChange func()
}

// closer is implemented by every mode session.
type closer interface{ Close() }

// Navigator holds the current mode and its session.
type Navigator struct {
	cfg   Config
	epoch session.Epoch

	mu         sync.Mutex
	mode       types.Mode
	active     closer
	cameraOpen bool
}

// New creates a Navigator on the dashboard.
func New(cfg Config) *Navigator {
	if cfg.Settings == nil {
		cfg.Settings = settings.NewStore(types.DefaultSettings())
	}
	if cfg.Devices.Speaker == nil {
		cfg.Devices.Speaker = tts.Silent{}
	}
	return &Navigator{cfg: cfg, mode: types.ModeDashboard}
}

// Mode returns the current mode.
func (n *Navigator) Mode() types.Mode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

// Settings returns the settings store.
func (n *Navigator) Settings() *settings.Store { return n.cfg.Settings }

// Enter exits the current mode and enters mode. A device that fails to
// open leaves the mode in its not-ready state rather than failing.
func (n *Navigator) Enter(ctx context.Context, mode types.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("enter mode: unknown mode %q", mode)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.exitLocked()
	ticket := n.epoch.Current()
	env := session.Env{
		Gateway:  n.cfg.Gateway,
		Settings: n.cfg.Settings,
		Speaker:  n.cfg.Devices.Speaker,
		Ticket:   ticket,
		OnChange: n.cfg.OnChange,
	}

	switch mode {
	case types.ModeImage:
		n.active = session.NewImageSession(env, n.openCamera(ctx, types.FacingEnvironment))
	case types.ModeSign:
		n.active = session.NewSignSession(env, n.openCamera(ctx, types.FacingUser), n.cfg.Sign)
	case types.ModeSpeech:
		n.active = session.NewTranscriptSession(env, n.cfg.Devices.Recognizer)
	case types.ModeText:
		n.active = session.NewTextSession(env, n.cfg.Text)
	case types.ModeChat:
		n.active = session.NewChatSession(ctx, env)
	}
	n.mode = mode
	slog.Info("enter mode", "mode", mode)
	n.changed()
	return nil
}

// Back returns to the dashboard.
func (n *Navigator) Back() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mode == types.ModeDashboard {
		return
	}
	n.exitLocked()
	n.mode = types.ModeDashboard
	slog.Info("enter mode", "mode", types.ModeDashboard)
	n.changed()
}

// Close exits the current mode.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exitLocked()
	n.mode = types.ModeDashboard
}

// exitLocked stops the active session, cancels speech, releases the
// camera and advances the epoch so late responses are dropped.
func (n *Navigator) exitLocked() {
	if n.active != nil {
		n.active.Close()
		n.active = nil
	}
	n.cfg.Devices.Speaker.CancelAll()
	if n.cameraOpen {
		if err := n.cfg.Devices.Camera.Close(); err != nil {
			slog.Warn("close camera", "error", err)
		}
		n.cameraOpen = false
	}
	n.epoch.Advance()
}

// openCamera returns the camera opened for facing, or nil.
func (n *Navigator) openCamera(ctx context.Context, facing types.Facing) capture.Camera {
	cam := n.cfg.Devices.Camera
	if cam == nil {
		return nil
	}
	if err := cam.Open(ctx, facing); err != nil {
		slog.Warn("open camera", "facing", facing, "error", err)
		return nil
	}
	n.cameraOpen = true
	return cam
}

func (n *Navigator) changed() {
	if n.cfg.OnChange != nil {
		n.cfg.OnChange()
	}
}

// Image returns the image session, or nil outside image mode.
func (n *Navigator) Image() *session.ImageSession { return activeAs[*session.ImageSession](n) }

// Sign returns the sign session, or nil outside sign mode.
func (n *Navigator) Sign() *session.SignSession { return activeAs[*session.SignSession](n) }

// Transcript returns the transcript session, or nil outside speech mode.
func (n *Navigator) Transcript() *session.TranscriptSession {
	return activeAs[*session.TranscriptSession](n)
}

// Text returns the text session, or nil outside text mode.
func (n *Navigator) Text() *session.TextSession { return activeAs[*session.TextSession](n) }

// Chat returns the chat session, or nil outside chat mode.
func (n *Navigator) Chat() *session.ChatSession { return activeAs[*session.ChatSession](n) }

func activeAs[S closer](n *Navigator) S {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, _ := n.active.(S)
	return s
}
