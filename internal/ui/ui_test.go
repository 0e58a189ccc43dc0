// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"
	"testing"

	"github.com/hoshisato/eva-tui/internal/chat"
	"github.com/hoshisato/eva-tui/internal/model"
)

func answer(id int64, platform model.ApiType, content string, isErr bool) model.Message {
	p := platform
	return model.Message{
		ID:           id,
		Content:      content,
		CreatedAt:    id,
		PlatformType: &p,
		IsError:      isErr,
	}
}

func question(id int64, content string) model.Message {
	return model.Message{ID: id, Content: content, CreatedAt: id}
}

func testModel(snap chat.Snapshot) Model {
	m := Model{snap: snap, width: 100, height: 40}
	return m
}

func TestRenderConversationEmpty(t *testing.T) {
	m := testModel(chat.Snapshot{Idle: true})
	out := m.renderConversation()
	if !strings.Contains(out, "No messages yet") {
		t.Errorf("empty conversation rendered %q", out)
	}
}

func TestRenderConversationShowsRounds(t *testing.T) {
	snap := chat.Snapshot{
		Idle: true,
		Messages: []model.Message{
			question(1, "what is a monad"),
			answer(2, model.ApiTypeOpenAI, "a monoid in disguise", false),
			answer(3, model.ApiTypeOllama, "hard to say", false),
		},
	}
	out := testModel(snap).renderConversation()

	for _, want := range []string{"what is a monad", "a monoid in disguise", "hard to say", "OpenAI", "Ollama"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered conversation missing %q", want)
		}
	}
}

func TestRenderConversationPendingRound(t *testing.T) {
	p := model.ApiTypeOllama
	snap := chat.Snapshot{
		Idle:    false,
		Pending: model.Message{Content: "in flight question", CreatedAt: 9},
		Trackers: []chat.TrackerView{
			{
				Platform: p,
				State:    chat.Loading,
				Message:  model.Message{Content: "streaming so far", PlatformType: &p},
			},
		},
	}
	out := testModel(snap).renderConversation()

	if !strings.Contains(out, "in flight question") {
		t.Error("pending question not rendered")
	}
	if !strings.Contains(out, "streaming so far") {
		t.Error("streaming content not rendered")
	}
}

func TestRenderAnswerColumnError(t *testing.T) {
	m := testModel(chat.Snapshot{})
	out := m.renderAnswerColumn(answer(1, model.ApiTypeOpenAI, "rate limited", true), false, 40)
	if !strings.Contains(out, "rate limited") {
		t.Errorf("error answer missing content: %q", out)
	}
}

func TestFailedAnswer(t *testing.T) {
	snap := chat.Snapshot{
		Messages: []model.Message{
			question(1, "q1"),
			answer(2, model.ApiTypeOpenAI, "fine", false),
			question(3, "q2"),
			answer(4, model.ApiTypeOpenAI, "", true),
			answer(5, model.ApiTypeOllama, "fine", false),
		},
	}
	target, ok := testModel(snap).failedAnswer()
	if !ok {
		t.Fatal("expected a failed answer")
	}
	if target.ID != 4 {
		t.Errorf("failedAnswer ID = %d, want 4", target.ID)
	}

	// A failure in an older round is not retryable from the keymap.
	snap.Messages = []model.Message{
		question(1, "q1"),
		answer(2, model.ApiTypeOpenAI, "", true),
		question(3, "q2"),
		answer(4, model.ApiTypeOpenAI, "fine", false),
	}
	if _, ok := testModel(snap).failedAnswer(); ok {
		t.Error("failedAnswer matched an answer from an older round")
	}
}

func TestPickerItems(t *testing.T) {
	rooms := []model.ChatRoom{
		{ID: 1, Title: "first", EnabledPlatform: []model.ApiType{model.ApiTypeOpenAI}, CreatedAt: 1700000000},
	}
	m := newPickerModel(nil, rooms)

	items := m.list.Items()
	if len(items) != 2 {
		t.Fatalf("item count = %d, want 2", len(items))
	}
	first := items[0].(pickerItem)
	if !first.fresh || first.Title() != "Start a new conversation" {
		t.Errorf("first item is not the new-conversation entry: %+v", first)
	}
	second := items[1].(pickerItem)
	if second.Title() != "first" {
		t.Errorf("room title = %q", second.Title())
	}
	if !strings.Contains(second.Description(), "openai") {
		t.Errorf("room description missing backend: %q", second.Description())
	}
}

func TestColumnWidth(t *testing.T) {
	m := testModel(chat.Snapshot{
		Trackers: []chat.TrackerView{{Platform: model.ApiTypeOpenAI}, {Platform: model.ApiTypeOllama}},
	})
	if got := m.columnWidth(); got != 46 {
		t.Errorf("columnWidth = %d, want 46", got)
	}

	m.width = 10
	if got := m.columnWidth(); got != 16 {
		t.Errorf("columnWidth floor = %d, want 16", got)
	}
}
