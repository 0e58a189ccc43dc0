// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// LOADING STATE
// =============================================================================

// LoadingState is the per-backend request state.
type LoadingState int

const (
	// Idle means no request is outstanding for the backend.
	Idle LoadingState = iota

	// Loading means a request is outstanding and content is
	// accumulating.
	Loading
)

// String returns the state name for display.
func (s LoadingState) String() string {
	if s == Loading {
		return "loading"
	}
	return "idle"
}

// =============================================================================
// ANSWER TRACKER
// =============================================================================

// Tracker holds the in-progress answer text, identity, and loading
// state for exactly one backend across the lifetime of one question.
//
// Events for one backend are applied by a single consumer goroutine,
// so deltas are merged in emission order. The mutex only guards
// concurrent reads from the UI and the aggregate-idle recomputation.
//
// PERFORMANCE: strings.Builder avoids quadratic allocations while
// deltas stream in.
type Tracker struct {
	mu       sync.Mutex
	platform model.ApiType
	state    LoadingState
	msg      model.Message
	content  strings.Builder
}

// NewTracker creates an idle tracker for a backend.
func NewTracker(platform model.ApiType) *Tracker {
	return &Tracker{platform: platform}
}

// Platform returns the backend this tracker belongs to.
func (t *Tracker) Platform() model.ApiType {
	return t.platform
}

// Reset begins a new round for this backend: content is cleared to
// the seed message and the tracker flips to Loading. The seed carries
// the message identity (a zero ID for a fresh answer, or the prior
// durable ID when a retry must overwrite the stored row).
func (t *Tracker) Reset(seed model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.msg = seed
	t.msg.IsError = false
	t.content.Reset()
	t.content.WriteString(seed.Content)
	t.state = Loading
}

// Restore seeds the tracker with a settled answer without starting a
// request. Used during retry to re-expose the untouched backends'
// previous answers, so an observer never sees a blank slot for a
// backend that already answered.
func (t *Tracker) Restore(msg model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.msg = msg
	t.content.Reset()
	t.content.WriteString(msg.Content)
	t.state = Idle
}

// Apply merges one streaming event. A delta appends text; a terminal
// event settles the accumulated content back into the message and
// returns the tracker to Idle, with the error flag retained on
// failures so "answered" and "failed" stay distinguishable.
func (t *Tracker) Apply(ev backend.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Delta != "" {
		t.content.WriteString(ev.Delta)
	}

	if ev.Terminal() {
		t.msg.Content = t.content.String()
		t.msg.IsError = ev.Err != nil
		t.state = Idle
		return
	}

	t.msg.Content = t.content.String()
}

// State returns the current loading state.
func (t *Tracker) State() LoadingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Message returns the tracker's message with the content accumulated
// so far.
func (t *Tracker) Message() model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := t.msg
	msg.Content = t.content.String()
	return msg
}

// Clear empties the tracker after a committed round. Identity returns
// to zero so the next round starts from a fresh message.
func (t *Tracker) Clear(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.platform
	t.msg = model.Message{ChatID: chatID, PlatformType: &p}
	t.content.Reset()
	t.state = Idle
}
