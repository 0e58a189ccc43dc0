// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// STREAMER IMPLEMENTATION
// =============================================================================

// Stream implements backend.Streamer: it opens one streaming chat
// request for the question against the history and delivers deltas as
// events. When auto-start is enabled an unreachable server is launched
// before the request is sent.
func (c *Client) Stream(ctx context.Context, question model.Message, history []model.Message) (<-chan backend.Event, error) {
	if c.model == "" {
		return nil, &ClientError{Type: ErrTypeModelNotFound, Message: "no model configured"}
	}

	messages := c.buildMessages(question, history)
	events := make(chan backend.Event, 64)

	go func() {
		defer close(events)

		if err := c.EnsureRunning(ctx); err != nil {
			events <- backend.Event{Err: err}
			return
		}

		if err := c.streamChat(ctx, messages, events); err != nil {
			events <- backend.Event{Err: err}
			return
		}
		events <- backend.Event{Done: true}
	}()

	return events, nil
}

// buildMessages converts conversation history to the wire format.
// Each backend only sees its own previous answers, so answers from
// other backends and failed answers are excluded.
func (c *Client) buildMessages(question model.Message, history []model.Message) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history)+2)
	if c.systemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: c.systemPrompt})
	}
	for _, m := range history {
		switch {
		case m.IsUser():
			msgs = append(msgs, ChatMessage{Role: "user", Content: m.Content})
		case m.Platform() == model.ApiTypeOllama && !m.IsError:
			msgs = append(msgs, ChatMessage{Role: "assistant", Content: m.Content})
		}
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: question.Content})
	return msgs
}

// streamChat performs the streaming request and forwards deltas.
func (c *Client) streamChat(ctx context.Context, messages []ChatMessage, events chan<- backend.Event) error {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
		Options:  c.options,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
		}
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "chat request failed: " + resp.Status}
	}

	return readStream(ctx, resp.Body, events)
}

// readStream parses newline-delimited JSON chunks, forwarding content
// deltas until a done line or EOF.
func readStream(ctx context.Context, r io.Reader, events chan<- backend.Event) error {
	reader := bufio.NewReader(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && len(bytes.TrimSpace(line)) == 0 {
			if err == io.EOF {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var chunk chatLine
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Skip malformed lines
			continue
		}

		if content := chunk.Message.Content; content != "" {
			select {
			case events <- backend.Event{Delta: content}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if chunk.Done {
			return nil
		}
	}
}
