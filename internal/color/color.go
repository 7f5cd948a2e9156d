package color

import (
	"github.com/charmbracelet/lipgloss"
)

// Color Palette - Semantic colors with consistent light/dark mode support
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#059669",
		Dark:  "#10B981",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#DC2626",
		Dark:  "#EF4444",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#D97706",
		Dark:  "#F59E0B",
	}
	ColorInfo = lipgloss.AdaptiveColor{
		Light: "#2563EB",
		Dark:  "#3B82F6",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#6B7280",
		Dark:  "#9CA3AF",
	}
)

// Styles are the text styles used in reports and the poll view.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Detail lipgloss.Style
	Value  lipgloss.Style
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Warn   lipgloss.Style
	Muted  lipgloss.Style
}

// NewStyles builds the styles for one output renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:  r.NewStyle().Bold(true).Foreground(ColorInfo),
		Header: r.NewStyle().Bold(true),
		Detail: r.NewStyle().Foreground(ColorMuted),
		Value:  r.NewStyle().Foreground(ColorInfo),
		Pass:   r.NewStyle().Bold(true).Foreground(ColorPass),
		Fail:   r.NewStyle().Bold(true).Foreground(ColorFail),
		Warn:   r.NewStyle().Foreground(ColorWarn),
		Muted:  r.NewStyle().Foreground(ColorMuted).Italic(true),
	}
}

// Plain returns styles that render text unchanged.
func Plain() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Header: s, Detail: s, Value: s, Pass: s, Fail: s, Warn: s, Muted: s}
}

// Initialize forces the dark or light palette.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}
