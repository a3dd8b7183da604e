package display

import "github.com/charmbracelet/lipgloss"

var (
	// MutedColor is used for arrows and separators.
	MutedColor = lipgloss.Color("#9CA3AF")
	// DefaultColor is used for actors without a configured color.
	DefaultColor = lipgloss.Color("#F9FAFB")

	arrowOut = "→"
	arrowIn  = "←"
)
