// Package tui provides the Bubble Tea upload screen for the sheetdrop CLI.
//
// The screen is a view over an upload controller: key presses become
// controller operations and the view is redrawn from controller snapshots.
// Network work never runs inside Update.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/sheetdrop/types"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(12)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// ActiveStyle for in-flight states and the focused section.
	ActiveStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// PhaseStyle returns the status message style for an attempt phase.
func PhaseStyle(phase types.Phase) lipgloss.Style {
	switch phase {
	case types.PhaseCompleted:
		return SuccessStyle
	case types.PhaseWarning:
		return WarningStyle
	case types.PhaseFailed, types.PhaseTimedOut:
		return ErrorStyle
	case types.PhaseSubmitting, types.PhasePolling:
		return ActiveStyle
	default:
		return ValueStyle
	}
}
