// Package tui provides the terminal user interface: a dashboard of modes
// and one view per mode over the shell navigator.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"go.aimuz.me/clearsight/clipboard"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/session"
	"go.aimuz.me/clearsight/settings"
)

// Navigator is the shell the UI drives.
type Navigator interface {
	Mode() types.Mode
	Enter(ctx context.Context, mode types.Mode) error
	Back()
	Settings() *settings.Store
	Image() *session.ImageSession
	Sign() *session.SignSession
	Transcript() *session.TranscriptSession
	Text() *session.TextSession
	Chat() *session.ChatSession
}

// Languages are the choices offered for the target language.
var Languages = []string{
	"auto", "English", "Spanish", "French", "German", "Italian",
	"Portuguese", "Chinese", "Japanese", "Korean", "Arabic", "Hindi",
}

// settings rows
const (
	rowHighContrast = iota
	rowLargeText
	rowReadingLevel
	rowLanguage
	rowVoiceSpeed
	rowColorBlind
	rowCount
)

// Model is the bubbletea model of the application.
type Model struct {
	ctx      context.Context
	nav      Navigator
	notifier *Notifier
	keys     KeyMap
	paste    func(context.Context) (string, error)

	help     help.Model
	spinner  spinner.Model
	input    textarea.Model
	prompt   textinput.Model
	chatView viewport.Model

	cursor int // dashboard row
	row    int // settings row
	status string
	width  int
	height int
}

// New creates the model. notifier may be nil when nothing reports
// background changes.
func New(ctx context.Context, nav Navigator, notifier *Notifier) Model {
	input := textarea.New()
	input.Placeholder = "Paste or type the text to simplify..."
	input.ShowLineNumbers = false

	prompt := textinput.New()
	prompt.Placeholder = "Ask anything..."
	prompt.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		nav:      nav,
		notifier: notifier,
		keys:     DefaultKeyMap(),
		paste:    clipboard.ReadText,
		help:     help.New(),
		spinner:  sp,
		input:    input,
		prompt:   prompt,
		chatView: viewport.New(80, 12),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.notifier != nil {
		cmds = append(cmds, m.notifier.wait())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case changedMsg:
		m.refresh()
		if m.notifier != nil {
			return m, m.notifier.wait()
		}
		return m, nil

	case doneMsg:
		m.report(msg.op, msg.err)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) setSize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	m.input.SetWidth(max(width-4, 20))
	m.input.SetHeight(max(height/3, 3))
	m.prompt.Width = max(width-6, 20)
	m.chatView.Width = max(width-4, 20)
	m.chatView.Height = max(height-8, 3)
	m.refresh()
}

// refresh updates the parts of the view that cache content.
func (m *Model) refresh() {
	if s := m.nav.Chat(); s != nil {
		m.chatView.SetContent(renderEntries(m.styles(), s.Snapshot().Entries, m.chatView.Width))
		m.chatView.GotoBottom()
	}
}

func (m *Model) report(op string, err error) {
	switch {
	case err == nil, errors.Is(err, session.ErrClosed):
		m.status = ""
	case errors.Is(err, session.ErrBusy):
		m.status = "Still working on the last request."
	case errors.Is(err, session.ErrEmptyInput):
		m.status = "Nothing to send yet."
	case errors.Is(err, session.ErrNotReady):
		m.status = "The device for this mode is not available."
	default:
		m.status = fmt.Sprintf("%s: %v", op, err)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	mode := m.nav.Mode()
	if key.Matches(msg, m.keys.Back) {
		if mode != types.ModeDashboard {
			m.nav.Back()
			m.status = ""
		}
		return m, nil
	}

	switch mode {
	case types.ModeDashboard:
		return m.dashboardKey(msg)
	case types.ModeImage:
		return m.imageKey(msg)
	case types.ModeSign:
		return m.signKey(msg)
	case types.ModeSpeech:
		return m.speechKey(msg)
	case types.ModeText:
		return m.textKey(msg)
	case types.ModeChat:
		return m.chatKey(msg)
	case types.ModeSettings:
		return m.settingsKey(msg)
	}
	return m, nil
}

func (m Model) dashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.cursor = (m.cursor + len(types.Modes) - 1) % len(types.Modes)
	case key.Matches(msg, m.keys.Down):
		m.cursor = (m.cursor + 1) % len(types.Modes)
	case key.Matches(msg, m.keys.Enter):
		return m.enter(types.Modes[m.cursor])
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(types.Modes) {
			m.cursor = int(s[0] - '1')
			return m.enter(types.Modes[m.cursor])
		}
	}
	return m, nil
}

func (m Model) enter(mode types.Mode) (tea.Model, tea.Cmd) {
	m.status = ""
	if err := m.nav.Enter(m.ctx, mode); err != nil {
		m.report("open mode", err)
		return m, nil
	}
	var cmd tea.Cmd
	switch mode {
	case types.ModeText:
		m.input.Reset()
		cmd = m.input.Focus()
	case types.ModeChat:
		m.prompt.Reset()
		cmd = m.prompt.Focus()
	case types.ModeSettings:
		m.row = 0
	}
	m.refresh()
	return m, cmd
}

func (m Model) imageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.nav.Image()
	if s == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Capture):
		ctx := m.ctx
		return m, run("describe", func() error { return s.Capture(ctx) })
	case key.Matches(msg, m.keys.Reset):
		m.report("reset", s.Reset())
	case key.Matches(msg, m.keys.Hush):
		s.StopSpeaking()
	}
	return m, nil
}

func (m Model) signKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.nav.Sign()
	if s == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		if s.Snapshot().Polling {
			s.StopPolling()
			m.status = ""
		} else {
			m.report("start", s.StartPolling(m.ctx))
		}
	}
	return m, nil
}

func (m Model) speechKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.nav.Transcript()
	if s == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		if s.Snapshot().Listening {
			m.report("stop", s.Stop())
		} else {
			m.report("listen", s.Start(m.ctx))
		}
	case key.Matches(msg, m.keys.Clear):
		s.Clear()
	}
	return m, nil
}

func (m Model) textKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.nav.Text()
	if s == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Submit):
		s.SetInput(m.input.Value())
		ctx := m.ctx
		return m, run("simplify", func() error {
			_, err := s.Submit(ctx)
			return err
		})
	case key.Matches(msg, m.keys.Speak):
		m.report("read aloud", s.SpeakOutput())
		return m, nil
	case key.Matches(msg, m.keys.Paste):
		text, err := m.paste(m.ctx)
		if err != nil {
			m.report("paste", err)
			return m, nil
		}
		m.input.SetValue(text)
		s.SetInput(text)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) chatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.nav.Chat()
	if s == nil {
		return m, nil
	}
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Send):
		text := m.prompt.Value()
		if s.Snapshot().Streaming {
			m.report("send", session.ErrBusy)
			return m, nil
		}
		m.prompt.Reset()
		ctx := m.ctx
		return m, run("send", func() error { return s.Send(ctx, text) })
	case msg.String() == "pgup" || msg.String() == "pgdown":
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) settingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.row = (m.row + rowCount - 1) % rowCount
	case key.Matches(msg, m.keys.Down):
		m.row = (m.row + 1) % rowCount
	case key.Matches(msg, m.keys.Left):
		m.nav.Settings().Update(adjust(m.nav.Settings().Get(), m.row, -1))
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Toggle):
		m.nav.Settings().Update(adjust(m.nav.Settings().Get(), m.row, 1))
	}
	return m, nil
}

// adjust returns the patch that moves the setting on row by dir steps.
func adjust(cur types.Settings, row, dir int) settings.Patch {
	switch row {
	case rowHighContrast:
		return settings.Patch{HighContrast: settings.Ptr(!cur.HighContrast)}
	case rowLargeText:
		return settings.Patch{LargeText: settings.Ptr(!cur.LargeText)}
	case rowReadingLevel:
		return settings.Patch{ReadingLevel: settings.Ptr(cycle(types.ReadingLevels, cur.ReadingLevel, dir))}
	case rowLanguage:
		return settings.Patch{Language: settings.Ptr(cycle(Languages, cur.Language, dir))}
	case rowVoiceSpeed:
		v := math.Round((cur.VoiceSpeed+float64(dir)*types.VoiceSpeedStep)*10) / 10
		v = min(max(v, types.MinVoiceSpeed), types.MaxVoiceSpeed)
		return settings.Patch{VoiceSpeed: settings.Ptr(v)}
	case rowColorBlind:
		return settings.Patch{ColorBlindMode: settings.Ptr(cycle(types.ColorBlindModes, cur.ColorBlindMode, dir))}
	}
	return settings.Patch{}
}

func cycle[T comparable](list []T, cur T, dir int) T {
	i := slices.Index(list, cur)
	if i < 0 {
		return list[0]
	}
	n := len(list)
	return list[((i+dir)%n+n)%n]
}
