package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"go.aimuz.me/clearsight/internal/types"
)

var modeTitles = map[types.Mode]string{
	types.ModeDashboard: "Home",
	types.ModeSign:      "Sign Language",
	types.ModeSpeech:    "Live Captions",
	types.ModeText:      "Simplify Text",
	types.ModeImage:     "Describe Scene",
	types.ModeChat:      "Assistant",
	types.ModeSettings:  "Settings",
}

var modeHints = map[types.Mode]string{
	types.ModeSign:     "Sign to the front camera and hear the words",
	types.ModeSpeech:   "Read what people around you are saying",
	types.ModeText:     "Rewrite hard text in plain words",
	types.ModeImage:    "Hear what the back camera sees",
	types.ModeChat:     "Talk with the assistant",
	types.ModeSettings: "Reading level, language and voice",
}

func (m Model) styles() Styles {
	if m.nav.Settings().Get().HighContrast {
		return HighContrastStyles()
	}
	return DefaultStyles()
}

// View implements tea.Model.
func (m Model) View() string {
	st := m.styles()
	mode := m.nav.Mode()

	var b strings.Builder
	b.WriteString(st.Title.Render("ClearSight"))
	b.WriteString(st.Muted.Render(" · "))
	b.WriteString(st.Mode.Render(modeTitles[mode]))
	b.WriteString("\n\n")

	switch mode {
	case types.ModeDashboard:
		b.WriteString(m.dashboardView(st))
	case types.ModeImage:
		b.WriteString(m.imageView(st))
	case types.ModeSign:
		b.WriteString(m.signView(st))
	case types.ModeSpeech:
		b.WriteString(m.speechView(st))
	case types.ModeText:
		b.WriteString(m.textView(st))
	case types.ModeChat:
		b.WriteString(m.chatView.View() + "\n" + m.prompt.View())
	case types.ModeSettings:
		b.WriteString(m.settingsView(st))
	}

	b.WriteString("\n\n")
	if m.status != "" {
		b.WriteString(st.Error.Render(m.status) + "\n")
	}
	b.WriteString(m.help.ShortHelpView(m.bindings(mode)))
	return b.String()
}

func (m Model) bindings(mode types.Mode) []key.Binding {
	k := m.keys
	switch mode {
	case types.ModeDashboard:
		return []key.Binding{k.Up, k.Down, k.Enter, k.Quit}
	case types.ModeImage:
		return []key.Binding{k.Capture, k.Reset, k.Hush, k.Back}
	case types.ModeSign, types.ModeSpeech:
		bs := []key.Binding{k.Toggle}
		if mode == types.ModeSpeech {
			bs = append(bs, k.Clear)
		}
		return append(bs, k.Back)
	case types.ModeText:
		return []key.Binding{k.Submit, k.Paste, k.Speak, k.Back}
	case types.ModeChat:
		return []key.Binding{k.Send, k.Back}
	case types.ModeSettings:
		return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Back}
	}
	return nil
}

func (m Model) busy(st Styles, status types.Status, label string) string {
	if status.Busy() {
		return st.Busy.Render(m.spinner.View() + " " + label)
	}
	return ""
}

func (m Model) dashboardView(st Styles) string {
	var rows []string
	for i, mode := range types.Modes {
		line := fmt.Sprintf("%d  %-16s %s", i+1, modeTitles[mode], st.Muted.Render(modeHints[mode]))
		if i == m.cursor {
			rows = append(rows, st.Selected.Render("▸ "+line))
		} else {
			rows = append(rows, st.Item.Render("  "+line))
		}
	}
	return strings.Join(rows, "\n")
}

func (m Model) imageView(st Styles) string {
	s := m.nav.Image()
	if s == nil {
		return ""
	}
	snap := s.Snapshot()
	if !snap.Ready {
		return st.Error.Render("Camera unavailable.")
	}
	var lines []string
	if b := m.busy(st, snap.Status, "Looking..."); b != "" {
		lines = append(lines, b)
	}
	switch {
	case snap.Result != nil:
		lines = append(lines, st.Panel.Render(wrap(snap.Result.Text, m.width)))
	case !snap.Status.Busy():
		lines = append(lines, st.Muted.Render("Point the camera and press space."))
	}
	if snap.Err != "" {
		lines = append(lines, st.Error.Render(snap.Err))
	}
	if snap.Speaking {
		lines = append(lines, st.Live.Render("speaking"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) signView(st Styles) string {
	s := m.nav.Sign()
	if s == nil {
		return ""
	}
	snap := s.Snapshot()
	if !snap.Ready {
		return st.Error.Render("Camera unavailable.")
	}
	state := st.Muted.Render("paused")
	if snap.Polling {
		state = st.Model.Render("watching")
	}
	if snap.InFlight {
		state += " " + st.Busy.Render(m.spinner.View())
	}
	lines := []string{state}
	if len(snap.History) == 0 {
		lines = append(lines, st.Muted.Render("No signs yet."))
	}
	for i, r := range snap.History {
		style := st.Item
		if i == 0 {
			style = st.Selected
		}
		lines = append(lines, style.Render(r.Text))
	}
	return strings.Join(lines, "\n")
}

func (m Model) speechView(st Styles) string {
	s := m.nav.Transcript()
	if s == nil {
		return ""
	}
	snap := s.Snapshot()
	var lines []string
	if snap.Listening {
		lines = append(lines, st.Model.Render("listening"))
	} else {
		lines = append(lines, st.Muted.Render("stopped"))
	}
	body := snap.Transcript
	if snap.Interim != "" {
		if body != "" {
			body += " "
		}
		body += st.Live.Render(snap.Interim)
	}
	if body == "" {
		body = st.Muted.Render(snap.Placeholder)
	}
	lines = append(lines, st.Panel.Render(wrap(body, m.width)))
	if snap.Err != "" {
		lines = append(lines, st.Error.Render(snap.Err))
	}
	return strings.Join(lines, "\n")
}

func (m Model) textView(st Styles) string {
	s := m.nav.Text()
	if s == nil {
		return ""
	}
	snap := s.Snapshot()
	lines := []string{m.input.View()}
	if b := m.busy(st, snap.Status, "Simplifying..."); b != "" {
		lines = append(lines, b)
	}
	if snap.Output != "" {
		lines = append(lines, st.Panel.Render(wrap(snap.Output, m.width)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) settingsView(st Styles) string {
	cur := m.nav.Settings().Get()
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	values := [rowCount][2]string{
		{"High contrast", onOff(cur.HighContrast)},
		{"Large text", onOff(cur.LargeText)},
		{"Reading level", string(cur.ReadingLevel)},
		{"Language", cur.Language},
		{"Voice speed", fmt.Sprintf("%.1fx", cur.VoiceSpeed)},
		{"Color filter", string(cur.ColorBlindMode)},
	}
	var rows []string
	for i, v := range values {
		line := fmt.Sprintf("%-14s ‹ %s ›", v[0], v[1])
		if i == m.row {
			rows = append(rows, st.Selected.Render("▸ "+line))
		} else {
			rows = append(rows, st.Item.Render("  "+line))
		}
	}
	return strings.Join(rows, "\n")
}

func renderEntries(st Styles, entries []types.ChatEntry, width int) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		name := st.Model.Render("Assistant")
		if e.Role == types.RoleUser {
			name = st.User.Render("You")
		}
		text := e.Text
		if e.IsStreaming {
			text += "▍"
		}
		b.WriteString(name + "\n" + wrap(text, width))
	}
	return b.String()
}

func wrap(s string, width int) string {
	if width <= 8 {
		return s
	}
	return lipgloss.NewStyle().Width(width - 6).Render(s)
}
