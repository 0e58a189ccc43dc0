// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLORS
// =============================================================================

// All colors use Lip Gloss AdaptiveColor for light/dark terminals.
var (
	// Cyan - brand color, user highlights
	cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Purple - assistant accents
	purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	// Emerald - local backend indicator
	emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Rose - errors
	rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Text tones
	textSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	textMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

	// Borders
	overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#45475A"}
)

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Padding(0, 1)

	headerInfoStyle = lipgloss.NewStyle().
			Foreground(textSecondary).
			Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Padding(0, 1)

	answerColumnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(overlay).
			Padding(0, 1)

	answerErrorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(rose).
			Padding(0, 1)

	platformLabelStyle = lipgloss.NewStyle().
				Foreground(emerald).
				Bold(true)

	platformErrorLabelStyle = lipgloss.NewStyle().
				Foreground(rose).
				Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(textMuted).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(rose).
			Bold(true).
			Padding(0, 1)
)

// ApplyTheme forces the background assumption for non-auto themes so
// adaptive colors resolve consistently.
func ApplyTheme(theme string) {
	switch theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}
}
