// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

// =============================================================================
// PLATFORM TESTS
// =============================================================================

func TestParseApiType(t *testing.T) {
	tests := []struct {
		input string
		want  ApiType
		ok    bool
	}{
		{"openai", ApiTypeOpenAI, true},
		{"OLLAMA", ApiTypeOllama, true},
		{"  OpenAI  ", ApiTypeOpenAI, true},
		{"gemini", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseApiType(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseApiType(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePlatforms(t *testing.T) {
	got := ParsePlatforms("openai,ollama,openai,nope")
	if len(got) != 2 || got[0] != ApiTypeOpenAI || got[1] != ApiTypeOllama {
		t.Errorf("ParsePlatforms = %v, want [openai ollama]", got)
	}
}

func TestJoinPlatformsRoundTrip(t *testing.T) {
	platforms := []ApiType{ApiTypeOllama, ApiTypeOpenAI}
	joined := JoinPlatforms(platforms)
	if joined != "ollama,openai" {
		t.Errorf("JoinPlatforms = %q, want %q", joined, "ollama,openai")
	}

	parsed := ParsePlatforms(joined)
	if len(parsed) != 2 || parsed[0] != ApiTypeOllama || parsed[1] != ApiTypeOpenAI {
		t.Errorf("round trip = %v, want [ollama openai]", parsed)
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessageIsUser(t *testing.T) {
	user := NewUserMessage(0, "hi")
	if !user.IsUser() {
		t.Error("user message should report IsUser")
	}
	if user.Platform() != "" {
		t.Errorf("user message Platform = %q, want empty", user.Platform())
	}

	answer := NewAssistantMessage(0, ApiTypeOllama)
	if answer.IsUser() {
		t.Error("assistant message should not report IsUser")
	}
	if answer.Platform() != ApiTypeOllama {
		t.Errorf("Platform = %q, want ollama", answer.Platform())
	}
}

func TestMessageIsBlank(t *testing.T) {
	if !(Message{Content: "  \n\t "}).IsBlank() {
		t.Error("whitespace-only content should be blank")
	}
	if (Message{Content: "x"}).IsBlank() {
		t.Error("non-empty content should not be blank")
	}
}

func TestMessagePreview(t *testing.T) {
	m := Message{Content: "line one\nline two"}
	if got := m.Preview(80); got != "line one line two" {
		t.Errorf("Preview = %q", got)
	}

	long := Message{Content: "aaaaaaaaaaaaaaaaaaaa"}
	if got := long.Preview(10); got != "aaaaaaa..." {
		t.Errorf("truncated Preview = %q", got)
	}

	// Rune-aware: multi-byte characters are never split.
	cjk := Message{Content: "日本語のテキストです"}
	if got := cjk.Preview(5); got != "日本..." {
		t.Errorf("CJK Preview = %q", got)
	}
	if got := cjk.Preview(0); got != "" {
		t.Errorf("zero-length Preview = %q", got)
	}
}

func TestSortByPlatform(t *testing.T) {
	ollama := ApiTypeOllama
	openai := ApiTypeOpenAI
	msgs := []Message{
		{Content: "b", PlatformType: &ollama},
		{Content: "a", PlatformType: &openai},
	}

	SortByPlatform(msgs)
	if msgs[0].Platform() != ApiTypeOllama || msgs[1].Platform() != ApiTypeOpenAI {
		t.Errorf("SortByPlatform order = [%s %s]", msgs[0].Platform(), msgs[1].Platform())
	}
}

// =============================================================================
// CHAT ROOM TESTS
// =============================================================================

func TestNewChatRoom(t *testing.T) {
	room := NewChatRoom([]ApiType{ApiTypeOpenAI, ApiTypeOllama})
	if room.State != RoomTransient {
		t.Errorf("State = %v, want transient", room.State)
	}
	if room.ID != 0 {
		t.Errorf("ID = %d, want 0 before persistence", room.ID)
	}
	if !room.HasPlatform(ApiTypeOllama) {
		t.Error("room should have ollama enabled")
	}
	if room.HasPlatform("gemini") {
		t.Error("room should not report unknown platforms")
	}
}

func TestDefaultTitle(t *testing.T) {
	ollama := ApiTypeOllama
	msgs := []Message{
		{Content: "answer", PlatformType: &ollama},
		{Content: "What is the capital of France?"},
	}

	if got := DefaultTitle(msgs); got != "What is the capital of France?" {
		t.Errorf("DefaultTitle = %q", got)
	}

	if got := DefaultTitle(nil); got != "" {
		t.Errorf("DefaultTitle(nil) = %q, want empty", got)
	}
}
