// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders committed conversations as flat markdown
// files.
//
// The output layout is a title heading, an export timestamp, and a
// chat history section with one block per message. Only durable
// messages are exported; in-flight rounds never appear in the output.
package export
