// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher test waits on debounce timers")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.UI.Theme = "dark"
	require.NoError(t, SaveToPath(cfg, path))

	var reloaded atomic.Pointer[Config]
	w, err := NewWatcher(path, func(next *Config) {
		reloaded.Store(next)
	})
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Watch())
	defer w.Close()

	cfg.UI.Theme = "light"
	require.NoError(t, SaveToPath(cfg, path))

	require.Eventually(t, func() bool {
		next := reloaded.Load()
		return next != nil && next.UI.Theme == "light"
	}, 5*time.Second, 50*time.Millisecond, "watcher never delivered the reloaded config")
}

func TestWatcherDropsInvalidConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher test waits on debounce timers")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveToPath(Default(), path))

	var calls atomic.Int32
	w, err := NewWatcher(path, func(*Config) { calls.Add(1) })
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Watch())
	defer w.Close()

	// Broken TOML never reaches the callback.
	require.NoError(t, os.WriteFile(path, []byte("theme = [unclosed"), 0600))

	time.Sleep(500 * time.Millisecond)
	require.Zero(t, calls.Load(), "invalid config must not trigger a reload")
}
