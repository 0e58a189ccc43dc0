// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hoshisato/eva-tui/internal/chat"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	orch *chat.Orchestrator
	snap chat.Snapshot

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	// renderer is rebuilt on resize so markdown wraps to the answer
	// column width. Nil when markdown rendering is off.
	renderer *glamour.TermRenderer
	markdown bool

	width  int
	height int
	ready  bool

	status  string
	lastErr error
}

// NewModel builds the chat screen around a running conversation
// engine. The engine's OnChange snapshots arrive as SnapshotMsg.
func NewModel(orch *chat.Orchestrator, markdown bool) Model {
	input := textinput.New()
	input.Placeholder = "Ask every backend..."
	input.Prompt = "> "
	input.PromptStyle = lipgloss.NewStyle().Foreground(cyan)
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(purple)),
	)

	return Model{
		orch:     orch,
		snap:     orch.Snapshot(),
		input:    input,
		spin:     spin,
		markdown: markdown,
	}
}

// Init starts the spinner; snapshots stream in from the engine.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

// columnWidth returns the width of one answer column for the current
// terminal size and backend count.
func (m Model) columnWidth() int {
	n := len(m.snap.Trackers)
	if n == 0 {
		n = 1
	}
	// Borders and padding eat four cells per column.
	w := m.width/n - 4
	if w < 16 {
		w = 16
	}
	return w
}

// rebuildRenderer recreates the markdown renderer for the current
// column width.
func (m *Model) rebuildRenderer() {
	if !m.markdown {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.columnWidth()),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = r
}
