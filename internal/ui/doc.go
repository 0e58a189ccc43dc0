// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the full-screen chat interface.
//
// It is a Bubble Tea program that renders the conversation with user
// questions on the right and one answer column per enabled backend
// below each question. Streaming deltas arrive as snapshots from the
// conversation engine and repaint the pending round in place.
package ui
