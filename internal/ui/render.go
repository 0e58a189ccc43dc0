// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hoshisato/eva-tui/internal/chat"
	"github.com/hoshisato/eva-tui/internal/export"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// renderConversation paints the committed history followed by the
// uncommitted pending round. Questions sit in their own row; the
// answers to each question render side by side, one column per
// backend.
func (m Model) renderConversation() string {
	var b strings.Builder

	grouped := chat.GroupMessages(m.snap.Messages)
	for _, slot := range chat.SlotOrder(grouped) {
		msgs := grouped[slot]
		if slot%2 == 0 {
			b.WriteString(m.renderQuestion(msgs[0].Content))
		} else {
			b.WriteString(m.renderAnswerRow(msgs, nil))
		}
		b.WriteString("\n")
	}

	if m.snap.PendingRound() {
		b.WriteString(m.renderQuestion(m.snap.Pending.Content))
		b.WriteString("\n")

		pending := make([]model.Message, 0, len(m.snap.Trackers))
		loading := make(map[model.ApiType]bool, len(m.snap.Trackers))
		for _, tr := range m.snap.Trackers {
			pending = append(pending, tr.Message)
			loading[tr.Platform] = tr.State == chat.Loading
		}
		b.WriteString(m.renderAnswerRow(pending, loading))
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return statusStyle.Render("No messages yet. Ask something below.")
	}
	return b.String()
}

// renderQuestion draws the user bubble, right-aligned.
func (m Model) renderQuestion(content string) string {
	maxWidth := m.width * 2 / 3
	if maxWidth < 20 {
		maxWidth = 20
	}
	bubble := userBubbleStyle.MaxWidth(maxWidth).Render(content)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble) + "\n"
}

// renderAnswerRow joins one column per answer. loading marks the
// backends still streaming; nil means every answer is settled.
func (m Model) renderAnswerRow(answers []model.Message, loading map[model.ApiType]bool) string {
	if len(answers) == 0 {
		return ""
	}
	colWidth := m.columnWidth()

	cols := make([]string, 0, len(answers))
	for _, msg := range answers {
		cols = append(cols, m.renderAnswerColumn(msg, loading[msg.Platform()], colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...) + "\n"
}

// renderAnswerColumn draws one backend's answer box with its label.
func (m Model) renderAnswerColumn(msg model.Message, loading bool, width int) string {
	label := export.PlatformDisplayName(msg.Platform())
	body := msg.Content

	switch {
	case loading && body == "":
		label = label + " " + m.spin.View()
		body = "waiting..."
	case loading:
		label = label + " " + m.spin.View()
	case msg.IsError:
		body = renderError(body)
	default:
		body = m.renderMarkdown(body)
	}

	labelStyle := platformLabelStyle
	box := answerColumnStyle
	if msg.IsError && !loading {
		labelStyle = platformErrorLabelStyle
		box = answerErrorStyle
	}

	content := labelStyle.Render(label) + "\n" + body
	return box.Width(width).Render(content)
}

// renderMarkdown runs the answer through Glamour when enabled, falling
// back to the raw text on renderer errors.
func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil || content == "" {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func renderError(content string) string {
	if content == "" {
		content = "request failed"
	}
	return errorStyle.Render(content)
}
