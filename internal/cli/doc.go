// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the command-line surface of eva: argument
// parsing, the interactive REPL chat, the first-run setup wizard, and
// the session management commands.
//
// The full-screen TUI lives in internal/ui; this package covers
// everything reachable without it.
package cli
