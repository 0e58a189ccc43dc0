// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/hoshisato/eva-tui/internal/util"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents one turn in a conversation. A nil PlatformType
// means the user wrote it; otherwise it names the backend that
// produced it.
type Message struct {
	// Identity. ID is 0 until the owning conversation is committed,
	// then it carries the durable database ID.
	ID     int64 `json:"id"`
	ChatID int64 `json:"chat_id"`

	// Content
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // epoch seconds

	// PlatformType identifies the producing backend (nil = user).
	PlatformType *ApiType `json:"platform_type,omitempty"`

	// IsError marks an answer whose stream terminated with an error.
	// Partial content received before the failure is kept.
	IsError bool `json:"is_error,omitempty"`
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(chatID int64, content string) Message {
	return Message{
		ChatID:    chatID,
		Content:   content,
		CreatedAt: time.Now().Unix(),
	}
}

// NewAssistantMessage creates an empty answer message for a backend.
func NewAssistantMessage(chatID int64, platform ApiType) Message {
	p := platform
	return Message{
		ChatID:       chatID,
		CreatedAt:    time.Now().Unix(),
		PlatformType: &p,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool {
	return m.PlatformType == nil
}

// Platform returns the producing backend, or "" for user messages.
func (m Message) Platform() ApiType {
	if m.PlatformType == nil {
		return ""
	}
	return *m.PlatformType
}

// IsBlank reports whether the trimmed content is empty.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}

// Preview returns a truncated single-line preview of the content.
// Truncation delegates to util.TruncateRunes so titles and previews
// share one rune-aware rule.
func (m Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	return util.TruncateRunes(content, maxLen)
}
