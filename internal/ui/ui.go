// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/chat"
	"github.com/hoshisato/eva-tui/internal/config"
)

// =============================================================================
// PROGRAM
// =============================================================================

// Run opens the full-screen chat for one conversation and blocks until
// the user quits. A zero chatID starts a new conversation.
func Run(cfg *config.Config, registry *backend.Registry, store chat.Store, chatID int64) error {
	ApplyTheme(cfg.UI.Theme)

	if chatID == 0 {
		picked, ok, err := runPicker(store)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		chatID = picked
	}

	// Engine callbacks fire on stream consumer goroutines; they hand
	// snapshots to the program through a buffered channel so a slow
	// repaint never blocks a stream.
	snaps := make(chan chat.Snapshot, 256)
	errs := make(chan error, 16)

	orch, err := chat.NewOrchestrator(chat.Config{
		ChatID:    chatID,
		Platforms: cfg.EnabledPlatforms(),
		Registry:  registry,
		Store:     store,
		OnChange: func(s chat.Snapshot) {
			// Under pressure drop the oldest buffered snapshot; the
			// newest one must always land so the final frame is never
			// stale.
			for {
				select {
				case snaps <- s:
					return
				default:
				}
				select {
				case <-snaps:
				default:
				}
			}
		},
		OnError: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	if err := orch.Load(context.Background()); err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}

	p := tea.NewProgram(NewModel(orch, cfg.UI.MarkdownRendering), tea.WithAltScreen())

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case s := <-snaps:
				p.Send(SnapshotMsg{Snapshot: s})
			case err := <-errs:
				p.Send(ErrMsg{Err: err})
			case <-done:
				return
			}
		}
	}()

	_, err = p.Run()
	return err
}
