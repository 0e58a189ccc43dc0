// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers: crash-safe file writing and
// width-aware string truncation for terminal display.
package util
