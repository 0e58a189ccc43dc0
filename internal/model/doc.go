// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the chat
// engine: messages, chat rooms, and backend platform identifiers.
//
// A Message with a nil PlatformType was authored by the user; a
// non-nil PlatformType identifies which backend produced it. Message
// and ChatRoom IDs are zero until the owning conversation is committed
// to storage, at which point they receive durable database IDs.
package model
