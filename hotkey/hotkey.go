// Package hotkey provides global keyboard shortcuts for the hands-free
// actions: capture, toggle sign polling, toggle listening and back.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// Action is what a shortcut triggers.
type Action string

const (
	ActionCapture         Action = "capture"
	ActionTogglePolling   Action = "toggle_polling"
	ActionToggleListening Action = "toggle_listening"
	ActionBack            Action = "back"
)

// Actions lists every action.
var Actions = []Action{ActionCapture, ActionTogglePolling, ActionToggleListening, ActionBack}

// DefaultBindings are used for actions without a configured combo.
var DefaultBindings = map[Action]string{
	ActionCapture:         "ctrl+shift+c",
	ActionTogglePolling:   "ctrl+shift+p",
	ActionToggleListening: "ctrl+shift+l",
	ActionBack:            "ctrl+shift+b",
}

// ErrRunning is returned by Start when the manager already listens.
var ErrRunning = errors.New("hotkeys already running")

var modifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"cmd":     "cmd",
	"command": "cmd",
	"super":   "cmd",
	"win":     "cmd",
}

var namedKeys = []string{
	"space", "enter", "tab", "esc", "backspace", "delete",
	"up", "down", "left", "right",
	"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12",
}

// Parse turns a combo like "Ctrl+Shift+C" into gohook key names, modifiers
// first. Exactly one non-modifier key is required.
func Parse(combo string) ([]string, error) {
	var mods []string
	var key string
	for part := range strings.SplitSeq(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("parse hotkey %q: empty key", combo)
		}
		if m, ok := modifiers[part]; ok {
			if !slices.Contains(mods, m) {
				mods = append(mods, m)
			}
			continue
		}
		switch part {
		case "return":
			part = "enter"
		case "escape":
			part = "esc"
		}
		if len(part) != 1 && !slices.Contains(namedKeys, part) {
			return nil, fmt.Errorf("parse hotkey %q: unknown key %q", combo, part)
		}
		if key != "" {
			return nil, fmt.Errorf("parse hotkey %q: multiple keys", combo)
		}
		key = part
	}
	if key == "" {
		return nil, fmt.Errorf("parse hotkey %q: no key", combo)
	}
	return append(mods, key), nil
}

// Bindings resolves configured combos over the defaults. Unknown action
// names are rejected.
func Bindings(configured map[string]string) (map[Action][]string, error) {
	out := make(map[Action][]string, len(Actions))
	for name := range configured {
		if !slices.Contains(Actions, Action(name)) {
			return nil, fmt.Errorf("unknown hotkey action: %q", name)
		}
	}
	for _, a := range Actions {
		combo := DefaultBindings[a]
		if c := configured[string(a)]; c != "" {
			combo = c
		}
		keys, err := Parse(combo)
		if err != nil {
			return nil, err
		}
		out[a] = keys
	}
	return out, nil
}

// Manager registers the global shortcuts and reports triggered actions.
type Manager struct {
	bindings map[Action][]string
	onAction func(Action)

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewManager creates a manager for bindings. onAction runs on the hook
// goroutine and must not block.
func NewManager(bindings map[Action][]string, onAction func(Action)) *Manager {
	return &Manager{bindings: bindings, onAction: onAction}
}

// Start registers the shortcuts and begins listening.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrRunning
	}

	for _, a := range Actions {
		keys, ok := m.bindings[a]
		if !ok {
			continue
		}
		hook.Register(hook.KeyDown, keys, func(hook.Event) {
			slog.Debug("hotkey pressed", "action", a)
			m.onAction(a)
		})
	}

	events := hook.Start()
	m.running = true
	m.done = make(chan struct{})
	done := m.done
	go func() {
		defer close(done)
		<-hook.Process(events)
	}()
	slog.Info("hotkeys registered", "count", len(m.bindings))
	return nil
}

// Stop unregisters the shortcuts and waits for the hook to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	<-done
}
