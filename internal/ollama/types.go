// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import "time"

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage represents a single message in the wire format.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", or "system"
	Content string `json:"content"`
}

// chatRequest is the request body for the /api/chat endpoint.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *Options      `json:"options,omitempty"`
}

// Options contains model parameters for inference.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"` // 0.0-2.0
	TopP        float64 `json:"top_p,omitempty"`       // 0.0-1.0
	NumPredict  int     `json:"num_predict,omitempty"` // max tokens, -1 for unlimited
	NumCtx      int     `json:"num_ctx,omitempty"`     // context window size
}

// chatLine is one newline-delimited JSON line of a streaming response.
type chatLine struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Message   struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	EvalCount  int    `json:"eval_count,omitempty"`
}

// apiError is the error body returned by the Ollama API.
type apiError struct {
	Error string `json:"error"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes one locally available model.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

// listModelsResponse is the response from the /api/tags endpoint.
type listModelsResponse struct {
	Models []ModelInfo `json:"models"`
}
