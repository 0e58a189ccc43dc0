// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hoshisato/eva-tui/internal/model"
)

// Configuration constants for the chat completions API.
const (
	// DefaultBaseURL is the standard OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed error response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedStreamingClient is used for streaming requests (no timeout,
// context-controlled).
// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Error variables for common API errors.
var (
	// ErrNotConfigured indicates the API token is not set.
	ErrNotConfigured = errors.New("API token not configured")

	// ErrAuthFailed indicates authentication failed (invalid or
	// expired token).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// APIError represents an error returned by the API.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// ChatMessage represents a single message in the wire format.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// apiErrorResponse represents an error response body.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// ClientConfig wires a Client.
type ClientConfig struct {
	// BaseURL is the API base URL (DefaultBaseURL when empty).
	BaseURL string

	// Token is the plain API token (already vault-opened).
	Token string

	// Model is the model identifier to request.
	Model string

	// SystemPrompt is prepended to every conversation.
	SystemPrompt string

	// Temperature controls sampling randomness.
	Temperature float64

	// TopP is the nucleus sampling cutoff.
	TopP float64

	// MaxTokens caps the answer length (0 = provider default).
	MaxTokens int

	// RateLimitRPS throttles outgoing requests (0 = unlimited).
	RateLimitRPS float64

	// MaxRetries caps connection retry attempts.
	MaxRetries int
}

// Client is a streaming chat completions client. It implements
// backend.Streamer for the cloud backend.
type Client struct {
	baseURL      string
	token        string
	model        string
	systemPrompt string
	temperature  float64
	topP         float64
	maxTokens    int
	maxRetries   int
	limiter      *rate.Limiter
	httpClient   *http.Client
}

// NewClient creates a client from config, filling defaults.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &Client{
		baseURL:      baseURL,
		token:        strings.TrimSpace(cfg.Token),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		topP:         cfg.TopP,
		maxTokens:    cfg.MaxTokens,
		maxRetries:   maxRetries,
		limiter:      limiter,
		httpClient:   sharedStreamingClient,
	}
}

// IsConfigured returns true if the client has an API token.
func (c *Client) IsConfigured() bool {
	return c.token != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
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
		case m.Platform() == model.ApiTypeOpenAI && !m.IsError:
			msgs = append(msgs, ChatMessage{Role: "assistant", Content: m.Content})
		}
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: question.Content})
	return msgs
}

// setHeaders sets the standard request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
}

// handleErrorResponse converts HTTP error responses to typed errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		e := &APIError{
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}
		switch statusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthFailed, e.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, e.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
		default:
			return e
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Status: statusCode, Message: strings.TrimSpace(string(body))}
	}
}

// isRetryable determines if an error should trigger a reconnect.
func isRetryable(err error) bool {
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrModelNotFound) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}

	// Rate limiting and network errors are retryable
	return true
}

// calculateBackoff returns the exponential backoff delay for a retry
// attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * (1 << uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
