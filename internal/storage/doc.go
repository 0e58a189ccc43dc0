// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations in a local SQLite database.
//
// Saving a chat is atomic: the room row and its complete message set
// are written in one transaction, with messages that already carry a
// durable ID reinserted under that ID so a retried answer overwrites
// its stored row instead of appending a duplicate.
package storage
