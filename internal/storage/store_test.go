// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hoshisato/eva-tui/internal/model"
)

func openTestStore(t *testing.T) *ChatStore {
	t.Helper()
	s, err := Open(&Config{DatabasePath: filepath.Join(t.TempDir(), "chats.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRound(chatID int64, ts int64, question string) []model.Message {
	openai := model.ApiTypeOpenAI
	ollama := model.ApiTypeOllama
	return []model.Message{
		{ChatID: chatID, Content: question, CreatedAt: ts},
		{ChatID: chatID, Content: "cloud answer", CreatedAt: ts + 1, PlatformType: &openai},
		{ChatID: chatID, Content: "local answer", CreatedAt: ts + 1, PlatformType: &ollama},
	}
}

func TestSaveChatAssignsDurableIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	room := model.NewChatRoom([]model.ApiType{model.ApiTypeOpenAI, model.ApiTypeOllama})
	room.Title = "first chat"

	saved, err := s.SaveChat(ctx, room, testRound(0, 100, "hello"))
	if err != nil {
		t.Fatalf("SaveChat failed: %v", err)
	}
	if saved.ID == 0 || saved.State != model.RoomPersisted {
		t.Fatalf("room not durable after save: %+v", saved)
	}

	msgs, err := s.ListMessages(ctx, saved.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("message count = %d, want 3", len(msgs))
	}
	for _, m := range msgs {
		if m.ID == 0 {
			t.Errorf("message without durable ID: %+v", m)
		}
		if m.ChatID != saved.ID {
			t.Errorf("message chat_id = %d, want %d", m.ChatID, saved.ID)
		}
	}
	if !msgs[0].IsUser() || msgs[0].Content != "hello" {
		t.Errorf("first message = %+v, want the user question", msgs[0])
	}
}

func TestSaveChatPreservesExplicitIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	room := model.NewChatRoom([]model.ApiType{model.ApiTypeOpenAI, model.ApiTypeOllama})
	saved, err := s.SaveChat(ctx, room, testRound(0, 100, "q"))
	if err != nil {
		t.Fatalf("SaveChat failed: %v", err)
	}

	msgs, err := s.ListMessages(ctx, saved.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}

	// Retry flow: resave the same set with one answer's content
	// replaced, all IDs kept.
	for i := range msgs {
		if msgs[i].Platform() == model.ApiTypeOpenAI {
			msgs[i].Content = "retried answer"
		}
	}
	retriedID := int64(0)
	for _, m := range msgs {
		if m.Platform() == model.ApiTypeOpenAI {
			retriedID = m.ID
		}
	}

	if _, err := s.SaveChat(ctx, saved, msgs); err != nil {
		t.Fatalf("resave failed: %v", err)
	}

	after, err := s.ListMessages(ctx, saved.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(after) != 3 {
		t.Fatalf("resave changed message count to %d, want 3", len(after))
	}
	for _, m := range after {
		if m.Platform() == model.ApiTypeOpenAI {
			if m.ID != retriedID {
				t.Errorf("retried answer ID = %d, want %d", m.ID, retriedID)
			}
			if m.Content != "retried answer" {
				t.Errorf("retried answer content = %q", m.Content)
			}
		}
	}
}

func TestSaveChatRoundTripFlags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ollama := model.ApiTypeOllama
	room := model.NewChatRoom([]model.ApiType{model.ApiTypeOllama})
	saved, err := s.SaveChat(ctx, room, []model.Message{
		{Content: "q", CreatedAt: 10},
		{Content: "partial", CreatedAt: 11, PlatformType: &ollama, IsError: true},
	})
	if err != nil {
		t.Fatalf("SaveChat failed: %v", err)
	}

	msgs, err := s.ListMessages(ctx, saved.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if !msgs[1].IsError {
		t.Error("error flag lost in round trip")
	}
	if msgs[1].Platform() != model.ApiTypeOllama {
		t.Errorf("platform lost in round trip: %v", msgs[1].Platform())
	}
}

func TestListMessagesOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	openai := model.ApiTypeOpenAI
	room := model.NewChatRoom([]model.ApiType{model.ApiTypeOpenAI})
	saved, err := s.SaveChat(ctx, room, []model.Message{
		{Content: "q1", CreatedAt: 10},
		{Content: "a1", CreatedAt: 11, PlatformType: &openai},
		{Content: "q2", CreatedAt: 12},
		{Content: "a2", CreatedAt: 13, PlatformType: &openai},
	})
	if err != nil {
		t.Fatalf("SaveChat failed: %v", err)
	}

	msgs, err := s.ListMessages(ctx, saved.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	want := []string{"q1", "a1", "q2", "a2"}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestListRoomsMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := model.NewChatRoom([]model.ApiType{model.ApiTypeOpenAI})
	older.Title = "older"
	older.CreatedAt = 100
	newer := model.NewChatRoom([]model.ApiType{model.ApiTypeOllama})
	newer.Title = "newer"
	newer.CreatedAt = 200

	if _, err := s.SaveChat(ctx, older, testRound(0, 100, "q")); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if _, err := s.SaveChat(ctx, newer, testRound(0, 200, "q")); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	rooms, err := s.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("room count = %d, want 2", len(rooms))
	}
	if rooms[0].Title != "newer" || rooms[1].Title != "older" {
		t.Errorf("order = [%s, %s], want [newer, older]", rooms[0].Title, rooms[1].Title)
	}
	if len(rooms[1].EnabledPlatform) != 1 || rooms[1].EnabledPlatform[0] != model.ApiTypeOpenAI {
		t.Errorf("enabled platforms lost: %+v", rooms[1].EnabledPlatform)
	}
}

func TestUpdateTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveChat(ctx, model.NewChatRoom([]model.ApiType{model.ApiTypeOpenAI}), testRound(0, 10, "q"))
	if err != nil {
		t.Fatalf("SaveChat failed: %v", err)
	}

	if err := s.UpdateTitle(ctx, saved, "renamed"); err != nil {
		t.Fatalf("UpdateTitle failed: %v", err)
	}
	got, err := s.GetRoom(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Title != "renamed" {
		t.Errorf("title = %q, want %q", got.Title, "renamed")
	}

	missing := model.ChatRoom{ID: 9999, State: model.RoomPersisted}
	if err := s.UpdateTitle(ctx, missing, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTitle on missing room = %v, want ErrNotFound", err)
	}
}

func TestDeleteRooms(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	keep, err := s.SaveChat(ctx, model.NewChatRoom([]model.ApiType{model.ApiTypeOpenAI}), testRound(0, 10, "keep"))
	if err != nil {
		t.Fatalf("SaveChat failed: %v", err)
	}
	gone, err := s.SaveChat(ctx, model.NewChatRoom([]model.ApiType{model.ApiTypeOpenAI}), testRound(0, 20, "gone"))
	if err != nil {
		t.Fatalf("SaveChat failed: %v", err)
	}

	if err := s.DeleteRooms(ctx, []model.ChatRoom{gone}); err != nil {
		t.Fatalf("DeleteRooms failed: %v", err)
	}

	rooms, err := s.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != keep.ID {
		t.Errorf("rooms after delete = %+v, want only the kept room", rooms)
	}

	msgs, err := s.ListMessages(ctx, gone.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("deleted room still has %d messages", len(msgs))
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRoom(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoom = %v, want ErrNotFound", err)
	}
}
