// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama implements the local model streaming client.
//
// It speaks the Ollama HTTP API (newline-delimited JSON over
// /api/chat), satisfies backend.Streamer, and is registered for the
// "ollama" backend. When auto-start is enabled the client launches a
// local "ollama serve" process if none is reachable.
package ollama
