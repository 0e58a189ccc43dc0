// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend defines the streaming contract every LLM provider
// implements, and the registry that maps backend identifiers to their
// handlers. Adding a backend means registering one Streamer; nothing
// in the chat engine switches on provider names.
package backend
