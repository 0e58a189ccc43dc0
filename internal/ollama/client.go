// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotRunning
	}
	return false
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeModelNotFound
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the standard local Ollama endpoint. Uses an
// explicit IPv4 address instead of localhost to avoid IPv6 resolution
// issues on Windows.
const DefaultBaseURL = "http://127.0.0.1:11434"

// ClientConfig wires a Client.
type ClientConfig struct {
	// BaseURL is the Ollama server URL (DefaultBaseURL when empty).
	BaseURL string

	// Model is the model name to request.
	Model string

	// SystemPrompt is prepended to every conversation.
	SystemPrompt string

	// Temperature controls sampling randomness.
	Temperature float64

	// TopP is the nucleus sampling cutoff.
	TopP float64

	// MaxTokens caps the answer length (0 = model default).
	MaxTokens int

	// AutoStart launches "ollama serve" when the server is unreachable.
	AutoStart bool

	// Timeout for non-streaming requests (default: 30s).
	Timeout time.Duration

	// StartupTimeout bounds how long to wait for an auto-started
	// server to become ready (default: 10s).
	StartupTimeout time.Duration
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API. It implements
// backend.Streamer for the local backend and is safe for concurrent
// use.
type Client struct {
	baseURL        string
	model          string
	systemPrompt   string
	options        *Options
	autoStart      bool
	startupTimeout time.Duration
	httpClient     *http.Client
	// streamClient has no timeout; streaming lifetime is bounded by
	// the request context.
	streamClient *http.Client
}

// NewClient creates a client from config, filling defaults.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	startupTimeout := cfg.StartupTimeout
	if startupTimeout == 0 {
		startupTimeout = 10 * time.Second
	}

	var opts *Options
	if cfg.Temperature != 0 || cfg.TopP != 0 || cfg.MaxTokens != 0 {
		opts = &Options{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			NumPredict:  cfg.MaxTokens,
		}
	}

	return &Client{
		baseURL:        baseURL,
		model:          cfg.Model,
		systemPrompt:   cfg.SystemPrompt,
		options:        opts,
		autoStart:      cfg.AutoStart,
		startupTimeout: startupTimeout,
		httpClient:     &http.Client{Timeout: timeout},
		streamClient:   &http.Client{},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}

	return nil
}

// EnsureRunning checks that Ollama is reachable and, when auto-start
// is enabled, launches a local server if it is not.
func (c *Client) EnsureRunning(ctx context.Context) error {
	err := c.CheckRunning(ctx)
	if err == nil {
		return nil
	}
	if !c.autoStart {
		return err
	}
	return c.startServer(ctx)
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally available models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	var result listModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return result.Models, nil
}

// ModelExists checks if a model is available locally.
func (c *Client) ModelExists(ctx context.Context, name string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m.Name == name || strings.TrimSuffix(m.Name, ":latest") == name {
			return true
		}
	}
	return false
}

// waitReady polls the server until it responds or the deadline passes.
func (c *Client) waitReady(ctx context.Context, deadline time.Time) error {
	var lastErr error
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return &ClientError{Type: ErrTypeConnection, Message: "Ollama startup cancelled", Cause: ctx.Err()}
		default:
		}

		checkCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		lastErr = c.CheckRunning(checkCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		time.Sleep(500 * time.Millisecond)
	}
	return &ClientError{
		Type:    ErrTypeConnection,
		Message: "Ollama started but not responding",
		Cause:   lastErr,
	}
}
