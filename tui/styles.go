package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha
var (
	mauve    = lipgloss.Color("#CBA6F7")
	green    = lipgloss.Color("#A6E3A1")
	red      = lipgloss.Color("#F38BA8")
	peach    = lipgloss.Color("#FAB387")
	sapphire = lipgloss.Color("#74C7EC")
	text     = lipgloss.Color("#CDD6F4")
	subtext  = lipgloss.Color("#A6ADC8")
	overlay  = lipgloss.Color("#6C7086")
	surface  = lipgloss.Color("#45475A")
)

// Styles is the set of styles a view renders with.
type Styles struct {
	Title    lipgloss.Style
	Mode     lipgloss.Style
	Panel    lipgloss.Style
	Selected lipgloss.Style
	Item     lipgloss.Style
	Muted    lipgloss.Style
	User     lipgloss.Style
	Model    lipgloss.Style
	Error    lipgloss.Style
	Busy     lipgloss.Style
	Live     lipgloss.Style
}

// DefaultStyles returns the normal palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(mauve),
		Mode:     lipgloss.NewStyle().Foreground(sapphire),
		Panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(surface).Padding(0, 1),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(mauve),
		Item:     lipgloss.NewStyle().Foreground(text),
		Muted:    lipgloss.NewStyle().Foreground(overlay),
		User:     lipgloss.NewStyle().Bold(true).Foreground(sapphire),
		Model:    lipgloss.NewStyle().Bold(true).Foreground(green),
		Error:    lipgloss.NewStyle().Foreground(red),
		Busy:     lipgloss.NewStyle().Foreground(peach),
		Live:     lipgloss.NewStyle().Foreground(subtext).Italic(true),
	}
}

// HighContrastStyles returns a black and white palette with bold text.
func HighContrastStyles() Styles {
	white := lipgloss.Color("#FFFFFF")
	yellow := lipgloss.Color("#FFFF00")
	bold := lipgloss.NewStyle().Bold(true).Foreground(white)
	return Styles{
		Title:    bold.Underline(true),
		Mode:     bold,
		Panel:    lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(white).Padding(0, 1),
		Selected: lipgloss.NewStyle().Bold(true).Reverse(true),
		Item:     bold,
		Muted:    bold,
		User:     bold.Foreground(yellow),
		Model:    bold,
		Error:    bold.Foreground(yellow).Underline(true),
		Busy:     bold.Foreground(yellow),
		Live:     bold.Italic(true),
	}
}
