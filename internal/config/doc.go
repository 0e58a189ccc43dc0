// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for eva.
//
// Configuration lives in ~/.eva/config.toml with one section per
// backend, sensible defaults, environment variable overrides, and
// validation. API tokens are sealed at rest with a locally generated
// key (see Vault); the file watcher reloads settings while the app is
// running.
package config
