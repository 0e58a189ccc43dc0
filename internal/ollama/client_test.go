// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/model"
)

// ndjsonLine writes one streaming chat line.
func ndjsonLine(w http.ResponseWriter, content string, done bool) {
	line := map[string]any{
		"model":   "test-model",
		"message": map[string]any{"role": "assistant", "content": content},
		"done":    done,
	}
	data, _ := json.Marshal(line)
	fmt.Fprintf(w, "%s\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{BaseURL: url, Model: "test-model"})
}

// collect drains an event channel into deltas and the terminal event.
func collect(t *testing.T, events <-chan backend.Event) (string, backend.Event) {
	t.Helper()
	var content strings.Builder
	for ev := range events {
		if ev.Terminal() {
			return content.String(), ev
		}
		content.WriteString(ev.Delta)
	}
	t.Fatal("event channel closed without terminal event")
	return "", backend.Event{}
}

func TestStreamDeliversDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		ndjsonLine(w, "Local ", false)
		ndjsonLine(w, "answer", false)
		ndjsonLine(w, "", true)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	events, err := c.Stream(context.Background(), model.NewUserMessage(1, "hi"), nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	content, last := collect(t, events)
	if content != "Local answer" {
		t.Errorf("content = %q, want %q", content, "Local answer")
	}
	if !last.Done || last.Err != nil {
		t.Errorf("terminal event = %+v, want Done", last)
	}
}

func TestStreamNoModelConfigured(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.Stream(context.Background(), model.NewUserMessage(1, "hi"), nil); !IsModelNotFound(err) {
		t.Errorf("Stream = %v, want model not found", err)
	}
}

func TestStreamServerNotRunning(t *testing.T) {
	// A closed server is unreachable; without auto-start the failure
	// surfaces as a terminal event.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(srv.URL)
	events, err := c.Stream(context.Background(), model.NewUserMessage(1, "hi"), nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	_, last := collect(t, events)
	if !IsNotRunning(last.Err) {
		t.Errorf("terminal error = %v, want not running", last.Err)
	}
}

func TestStreamModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"test-model\" not found"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	events, err := c.Stream(context.Background(), model.NewUserMessage(1, "hi"), nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	_, last := collect(t, events)
	if !IsModelNotFound(last.Err) {
		t.Errorf("terminal error = %v, want model not found", last.Err)
	}
}

func TestStreamSkipsMalformedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		ndjsonLine(w, "before", false)
		fmt.Fprint(w, "this is not json\n")
		ndjsonLine(w, " after", true)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	events, err := c.Stream(context.Background(), model.NewUserMessage(1, "hi"), nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	content, last := collect(t, events)
	if content != "before after" {
		t.Errorf("content = %q, want %q", content, "before after")
	}
	if !last.Done {
		t.Errorf("terminal event = %+v, want Done", last)
	}
}

func TestBuildMessagesFiltersHistory(t *testing.T) {
	var captured atomic.Pointer[chatRequest]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		captured.Store(&req)
		ndjsonLine(w, "ok", true)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Model:        "test-model",
		SystemPrompt: "You are Eva.",
		Temperature:  0.8,
	})

	openai := model.ApiTypeOpenAI
	ollama := model.ApiTypeOllama
	history := []model.Message{
		{ID: 1, ChatID: 1, Content: "first question"},
		{ID: 2, ChatID: 1, Content: "cloud answer", PlatformType: &openai},
		{ID: 3, ChatID: 1, Content: "local answer", PlatformType: &ollama},
		{ID: 4, ChatID: 1, Content: "failed", PlatformType: &ollama, IsError: true},
	}

	events, err := c.Stream(context.Background(), model.NewUserMessage(1, "second question"), history)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	collect(t, events)

	req := captured.Load()
	if req == nil {
		t.Fatal("request body not captured")
	}
	if !req.Stream {
		t.Error("stream flag not set")
	}
	if req.Options == nil || req.Options.Temperature != 0.8 {
		t.Errorf("options not forwarded: %+v", req.Options)
	}
	want := []ChatMessage{
		{Role: "system", Content: "You are Eva."},
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "local answer"},
		{Role: "user", Content: "second question"},
	}
	if len(req.Messages) != len(want) {
		t.Fatalf("message count = %d, want %d: %+v", len(req.Messages), len(want), req.Messages)
	}
	for i, m := range want {
		if req.Messages[i] != m {
			t.Errorf("message[%d] = %+v, want %+v", i, req.Messages[i], m)
		}
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		fmt.Fprint(w, `{"models":[{"name":"qwen2.5:7b","size":4683087332},{"name":"mistral:latest","size":4109865159}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0].Name != "qwen2.5:7b" {
		t.Errorf("models = %+v", models)
	}

	if !c.ModelExists(context.Background(), "mistral") {
		t.Error("ModelExists should match mistral via :latest suffix")
	}
	if c.ModelExists(context.Background(), "llama3") {
		t.Error("ModelExists matched a missing model")
	}
}

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning = %v, want nil", err)
	}

	srv.Close()
	if err := c.CheckRunning(context.Background()); !IsNotRunning(err) {
		t.Errorf("CheckRunning after close = %v, want not running", err)
	}
}
