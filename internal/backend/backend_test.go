// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/hoshisato/eva-tui/internal/model"
)

func TestEventTerminal(t *testing.T) {
	if (Event{Delta: "x"}).Terminal() {
		t.Error("delta event should not be terminal")
	}
	if !(Event{Done: true}).Terminal() {
		t.Error("done event should be terminal")
	}
	if !(Event{Err: errors.New("boom")}).Terminal() {
		t.Error("error event should be terminal")
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup(model.ApiTypeOpenAI)
	if !errors.Is(err, ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}

	called := false
	reg.Register(model.ApiTypeOpenAI, StreamerFunc(func(ctx context.Context, q model.Message, h []model.Message) (<-chan Event, error) {
		called = true
		ch := make(chan Event)
		close(ch)
		return ch, nil
	}))

	s, err := reg.Lookup(model.ApiTypeOpenAI)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if _, err := s.Stream(context.Background(), model.Message{}, nil); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if !called {
		t.Error("registered handler was not invoked")
	}
}

func TestRegistryPlatforms(t *testing.T) {
	reg := NewRegistry()
	reg.Register(model.ApiTypeOpenAI, StreamerFunc(nil))
	reg.Register(model.ApiTypeOllama, StreamerFunc(nil))

	platforms := reg.Platforms()
	if len(platforms) != 2 {
		t.Errorf("Platforms count = %d, want 2", len(platforms))
	}
}
