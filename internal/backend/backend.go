// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// Event is one element of a backend's streaming answer. A provider
// emits zero or more content deltas followed by exactly one terminal
// event: Done set, or Err set (Err implies the stream is finished).
type Event struct {
	// Delta is an incremental piece of answer text.
	Delta string

	// Done marks successful completion of the stream.
	Done bool

	// Err marks failed completion. Content received before the error
	// remains valid partial output.
	Err error
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Done || e.Err != nil
}

// =============================================================================
// STREAMER CONTRACT
// =============================================================================

// Streamer is implemented by every provider client. Stream opens one
// completion request for the question against the prior history and
// returns a channel of events. The channel is closed after the
// terminal event. Cancelling the context cancels the stream.
type Streamer interface {
	Stream(ctx context.Context, question model.Message, history []model.Message) (<-chan Event, error)
}

// StreamerFunc adapts a function to the Streamer interface.
type StreamerFunc func(ctx context.Context, question model.Message, history []model.Message) (<-chan Event, error)

// Stream implements Streamer.
func (f StreamerFunc) Stream(ctx context.Context, question model.Message, history []model.Message) (<-chan Event, error) {
	return f(ctx, question, history)
}

// =============================================================================
// REGISTRY
// =============================================================================

// ErrNoHandler is returned when a backend has no registered Streamer.
var ErrNoHandler = errors.New("no handler registered for backend")

// Registry maps backend identifiers to their stream handlers.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[model.ApiType]Streamer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[model.ApiType]Streamer),
	}
}

// Register installs the handler for a backend, replacing any previous
// registration.
func (r *Registry) Register(platform model.ApiType, s Streamer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[platform] = s
}

// Lookup returns the handler for a backend.
func (r *Registry) Lookup(platform model.ApiType) (Streamer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.handlers[platform]
	if !ok {
		return nil, ErrNoHandler
	}
	return s, nil
}

// Platforms returns the registered backend identifiers.
func (r *Registry) Platforms() []model.ApiType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.ApiType, 0, len(r.handlers))
	for p := range r.handlers {
		out = append(out, p)
	}
	return out
}
