// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// ROOM STATE
// =============================================================================

// RoomState is the explicit lifecycle state of a ChatRoom. It replaces
// the sentinel ID values (-1, 0) the storage layer would otherwise
// need to interpret.
type RoomState int

const (
	// RoomUninitialized means the room has not been resolved yet
	// (no commit may happen in this state).
	RoomUninitialized RoomState = iota

	// RoomTransient means the room exists only in memory; the first
	// successful commit persists it.
	RoomTransient

	// RoomPersisted means the room has a durable database ID.
	RoomPersisted
)

// String returns the state name for logging.
func (s RoomState) String() string {
	switch s {
	case RoomUninitialized:
		return "uninitialized"
	case RoomTransient:
		return "transient"
	case RoomPersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// =============================================================================
// CHAT ROOM TYPE
// =============================================================================

// DefaultTitleLen caps the auto-generated room title length in runes.
const DefaultTitleLen = 50

// UntitledChat is the placeholder title for rooms the user has not
// named; the first commit replaces it with a preview of the question.
const UntitledChat = "Untitled Chat"

// ChatRoom is a conversation container. EnabledPlatform is the ordered
// set of backends active for this conversation; it is fixed at
// creation and never grows.
type ChatRoom struct {
	State           RoomState `json:"-"`
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	EnabledPlatform []ApiType `json:"enabled_platform"`
	CreatedAt       int64     `json:"created_at"` // epoch seconds
}

// NewChatRoom creates a transient room for a fresh conversation.
func NewChatRoom(enabledPlatforms []ApiType) ChatRoom {
	return ChatRoom{
		State:           RoomTransient,
		Title:           UntitledChat,
		EnabledPlatform: append([]ApiType(nil), enabledPlatforms...),
		CreatedAt:       time.Now().Unix(),
	}
}

// UninitializedRoom returns the placeholder used while a room is being
// resolved from storage.
func UninitializedRoom(enabledPlatforms []ApiType) ChatRoom {
	return ChatRoom{
		State:           RoomUninitialized,
		EnabledPlatform: append([]ApiType(nil), enabledPlatforms...),
	}
}

// HasPlatform reports whether the backend is enabled for this room.
func (r ChatRoom) HasPlatform(platform ApiType) bool {
	for _, p := range r.EnabledPlatform {
		if p == platform {
			return true
		}
	}
	return false
}

// DefaultTitle derives a room title from the first user message, the
// same way the conversation list previews rooms. Returns "" when no
// user message exists yet.
func DefaultTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.IsUser() && !msg.IsBlank() {
			return msg.Preview(DefaultTitleLen)
		}
	}
	return ""
}

// DisplayTitle returns the title, or a fallback for unnamed rooms.
func (r ChatRoom) DisplayTitle() string {
	if strings.TrimSpace(r.Title) != "" {
		return r.Title
	}
	return UntitledChat
}
