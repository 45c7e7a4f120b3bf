package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailwatch/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar of live screens.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps boxed content such as the statistics table.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle renders the left column of key/value listings.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(18)

// ValueStyle renders the right column of key/value listings.
var ValueStyle = lipgloss.NewStyle().
	Bold(true)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// SuccessStyle and ErrorStyle mark outcomes in console output.
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
)

// SendStatusStyle returns a color-coded style for a send outcome.
func SendStatusStyle(status model.SendStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.SendStatusSent:
		return base.Foreground(ColorGreen)
	case model.SendStatusFailed:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// RuleStateStyle returns a style for a rule's enabled flag.
func RuleStateStyle(enabled bool) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if enabled {
		return base.Foreground(ColorGreen)
	}
	return base.Foreground(ColorYellow)
}
