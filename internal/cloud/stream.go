// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// streamChunk is a single chunk of the SSE streaming response.
type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the content from the first choice's delta.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// done returns true if the stream has finished.
func (c *streamChunk) done() bool {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason != ""
	}
	return false
}

// StreamError represents an error that occurred during streaming,
// preserving any partial content received before the error.
type StreamError struct {
	Partial string // Content received before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream. Returns the
// event type, data, and any error. Returns io.EOF when the stream
// ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// If we have data, return it before EOF
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAMER IMPLEMENTATION
// =============================================================================

// Stream implements backend.Streamer: it opens one streaming chat
// completion for the question against the history and delivers deltas
// as events. Connection failures before the first delta are retried
// with backoff; once content has been delivered a failure terminates
// the stream with the error, because a silent retry would duplicate
// the delivered prefix.
func (c *Client) Stream(ctx context.Context, question model.Message, history []model.Message) (<-chan backend.Event, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	messages := c.buildMessages(question, history)
	events := make(chan backend.Event, 64)

	go func() {
		defer close(events)

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				events <- backend.Event{Err: err}
				return
			}
		}

		var lastErr error
		for attempt := 0; attempt < c.maxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					events <- backend.Event{Err: ctx.Err()}
					return
				case <-time.After(calculateBackoff(attempt)):
				}
			}

			delivered, err := c.streamOnce(ctx, messages, events)
			if err == nil {
				events <- backend.Event{Done: true}
				return
			}
			if delivered > 0 || !isRetryable(err) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				events <- backend.Event{Err: err}
				return
			}
			lastErr = err
		}

		events <- backend.Event{Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
	}()

	return events, nil
}

// streamOnce performs a single streaming attempt, sending deltas to
// the events channel. Returns the number of bytes delivered.
func (c *Client) streamOnce(ctx context.Context, messages []ChatMessage, events chan<- backend.Event) (int, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return 0, c.handleErrorResponse(resp.StatusCode, body)
	}

	var accumulated strings.Builder
	reader := NewSSEReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return accumulated.Len(), ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return accumulated.Len(), nil
			}
			if accumulated.Len() > 0 {
				return accumulated.Len(), &StreamError{Partial: accumulated.String(), Err: err}
			}
			return 0, err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return accumulated.Len(), nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}

		if content := chunk.content(); content != "" {
			accumulated.WriteString(content)
			select {
			case events <- backend.Event{Delta: content}:
			case <-ctx.Done():
				return accumulated.Len(), ctx.Err()
			}
		}

		if chunk.done() {
			return accumulated.Len(), nil
		}
	}
}
