// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) headerView() string {
	title := headerStyle.Render("eva · " + m.snap.Room.DisplayTitle())
	backends := headerInfoStyle.Render(model.JoinPlatforms(m.snap.Room.EnabledPlatform))

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(backends)
	if gap < 1 {
		gap = 1
	}
	line := title + strings.Repeat(" ", gap) + backends
	divider := lipgloss.NewStyle().Foreground(overlay).Render(strings.Repeat("─", m.width))
	return line + "\n" + divider
}

func (m Model) statusView() string {
	switch {
	case m.lastErr != nil:
		return errorStyle.Render("error: " + m.lastErr.Error())
	case m.status != "":
		return statusStyle.Render(m.status)
	case !m.snap.Idle:
		return statusStyle.Render(m.spin.View() + " answering...")
	default:
		return statusStyle.Render(helpLine)
	}
}
