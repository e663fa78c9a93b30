package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// tasky's palette: slate and teal with a warm accent for warnings.
var (
	Teal   = lipgloss.Color("#2AA198")
	Sky    = lipgloss.Color("#61AFEF")
	Slate  = lipgloss.Color("#5C6370")
	Orange = lipgloss.Color("#E5A50A")
	Green  = lipgloss.Color("#50C878")
	Red    = lipgloss.Color("#E06C75")
	Dim    = lipgloss.Color("#666666")
	Bright = lipgloss.Color("#FFFFFF")

	// Semantic styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	Success = lipgloss.NewStyle().
		Foreground(Green)

	Error = lipgloss.NewStyle().
		Foreground(Red)

	Warning = lipgloss.NewStyle().
		Foreground(Orange)

	Info = lipgloss.NewStyle().
		Foreground(Sky)

	Muted = lipgloss.NewStyle().
		Foreground(Dim)

	Accent = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	// Component styles
	Tag = lipgloss.NewStyle().
		Foreground(Bright).
		Background(Slate).
		Padding(0, 1).
		Bold(true)

	KeyStyle = lipgloss.NewStyle().
			Foreground(Sky).
			Bold(true)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Bright)
)

// Icon constants.
const (
	IconTask  = "▢ "
	IconDone  = "✓ "
	IconHook  = "↪ "
	IconWarn  = "! "
	IconError = "✗ "
	IconOk    = "✓ "
	IconArrow = "→"
	IconDot   = "·"
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
