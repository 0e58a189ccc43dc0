// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the OpenAI-compatible streaming client.
//
// The client speaks the chat completions protocol with SSE streaming,
// so any endpoint exposing that surface works: api.openai.com, a
// proxy, or a self-hosted gateway. It satisfies backend.Streamer and
// is registered for the "openai" backend.
package cloud
