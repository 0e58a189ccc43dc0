// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import "github.com/hoshisato/eva-tui/internal/chat"

// =============================================================================
// MESSAGES
// =============================================================================

// SnapshotMsg carries a fresh conversation snapshot into the program.
type SnapshotMsg struct {
	Snapshot chat.Snapshot
}

// ErrMsg carries an asynchronous failure (commit errors, load errors).
type ErrMsg struct {
	Err error
}

// statusMsg is a transient line shown in the status bar, such as the
// path of a finished export.
type statusMsg string
