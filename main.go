// eva - side-by-side multi-model chat for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/cli"
	"github.com/hoshisato/eva-tui/internal/cloud"
	"github.com/hoshisato/eva-tui/internal/config"
	"github.com/hoshisato/eva-tui/internal/model"
	"github.com/hoshisato/eva-tui/internal/ollama"
	"github.com/hoshisato/eva-tui/internal/storage"
	"github.com/hoshisato/eva-tui/internal/ui"
)

func main() {
	cmd, args := cli.ParseCommand(os.Args[1:])

	// Commands that need no wiring.
	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	app, cleanup, err := buildApp()
	if err != nil {
		cli.Fatal(err)
	}
	defer cleanup()

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(app, args)
	case cli.CmdChat:
		err = app.RunChat(args)
	case cli.CmdSetup:
		err = app.RunSetup(args)
	case cli.CmdSession:
		err = app.RunSession(args)
	case cli.CmdConfig:
		err = app.RunConfig(args)
	}
	if err != nil {
		cli.Fatal(err)
	}
}

// runTUI opens the full-screen chat, reloading theme changes while it
// runs.
func runTUI(app *cli.App, args *cli.ArgParser) error {
	var chatID int64
	if raw := args.Flag("chat"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid conversation id %q", raw)
		}
		chatID = id
	}

	if path, err := config.ConfigPath(); err == nil {
		if w, err := config.NewWatcher(path, func(next *config.Config) {
			ui.ApplyTheme(next.UI.Theme)
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	return ui.Run(app.Config, app.Registry, app.Store, chatID)
}

// buildApp loads configuration and wires the store, the vault, and one
// stream handler per enabled backend.
func buildApp() (*cli.App, func(), error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}
	vault, err := config.OpenVault(dir)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(storage.DefaultConfig(dir))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = store.Close() }

	registry := backend.NewRegistry()
	if cfg.OpenAI.Enabled {
		token := cfg.OpenAI.Token
		if config.IsSealed(token) {
			token, err = vault.Open(token)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("unseal API token: %w", err)
			}
		}
		registry.Register(model.ApiTypeOpenAI, cloud.NewClient(cloud.ClientConfig{
			BaseURL:      cfg.OpenAI.BaseURL,
			Token:        token,
			Model:        cfg.OpenAI.Model,
			SystemPrompt: cfg.OpenAI.SystemPrompt,
			Temperature:  cfg.OpenAI.Temperature,
			TopP:         cfg.OpenAI.TopP,
			MaxTokens:    cfg.OpenAI.MaxTokens,
			RateLimitRPS: cfg.OpenAI.RateLimitRPS,
		}))
	}
	if cfg.Ollama.Enabled {
		registry.Register(model.ApiTypeOllama, ollama.NewClient(ollama.ClientConfig{
			BaseURL:      cfg.Ollama.BaseURL,
			Model:        cfg.Ollama.Model,
			SystemPrompt: cfg.Ollama.SystemPrompt,
			Temperature:  cfg.Ollama.Temperature,
			TopP:         cfg.Ollama.TopP,
			AutoStart:    cfg.Ollama.AutoStart,
		}))
	}

	app := &cli.App{
		Config:   cfg,
		Vault:    vault,
		Store:    store,
		Registry: registry,
	}
	return app, cleanup, nil
}
