// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hoshisato/eva-tui/internal/export"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// UPDATE
// =============================================================================

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		footerHeight := 3
		vpHeight := m.height - headerHeight - footerHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.input.Width = m.width - 4
		m.rebuildRenderer()
		m.refresh(true)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Send):
			text := m.input.Value()
			if m.orch.AskQuestion(text) {
				m.input.Reset()
				m.status = ""
				m.lastErr = nil
				return m, m.spin.Tick
			}
			if !m.snap.Idle {
				m.status = "Still waiting on the backends..."
			}
			return m, nil

		case key.Matches(msg, keys.Retry):
			if target, ok := m.failedAnswer(); ok {
				if m.orch.RetryQuestion(target) {
					m.status = "Retrying " + export.PlatformDisplayName(target.Platform()) + "..."
					m.lastErr = nil
					return m, m.spin.Tick
				}
			}
			m.status = "Nothing to retry."
			return m, nil

		case key.Matches(msg, keys.Export):
			return m, m.exportCmd()
		}

		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case SnapshotMsg:
		wasIdle := m.snap.Idle
		m.snap = msg.Snapshot
		m.refresh(true)
		if wasIdle && !m.snap.Idle {
			return m, m.spin.Tick
		}
		return m, nil

	case ErrMsg:
		m.lastErr = msg.Err
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case spinner.TickMsg:
		if m.snap.Idle {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.refresh(false)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh repaints the viewport from the current snapshot.
func (m *Model) refresh(scroll bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if scroll || atBottom {
		m.viewport.GotoBottom()
	}
}

// failedAnswer returns the most recent errored answer, the target for
// a selective retry.
func (m Model) failedAnswer() (model.Message, bool) {
	for i := len(m.snap.Messages) - 1; i >= 0; i-- {
		msg := m.snap.Messages[i]
		if !msg.IsUser() && msg.IsError {
			return msg, true
		}
		if msg.IsUser() {
			break
		}
	}
	return model.Message{}, false
}

// exportCmd writes the conversation to a markdown file in the working
// directory.
func (m Model) exportCmd() tea.Cmd {
	room := m.snap.Room
	messages := append([]model.Message(nil), m.snap.Messages...)
	return func() tea.Msg {
		if len(messages) == 0 {
			return statusMsg("Nothing to export yet.")
		}
		path, err := export.ExportMarkdown(room, messages, &export.Options{OutputDir: "."})
		if err != nil {
			return ErrMsg{Err: err}
		}
		return statusMsg("Exported to " + path)
	}
}
