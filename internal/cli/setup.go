// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/hoshisato/eva-tui/internal/config"
)

// =============================================================================
// SETUP WIZARD
// =============================================================================

// RunSetup handles the "setup" command: an interactive wizard that
// writes ~/.eva/config.toml with sealed API tokens.
func (a *App) RunSetup(args *ArgParser) error {
	fmt.Println(welcomeStyle.Render("eva setup"))
	fmt.Println(infoStyle.Render("Configure the chat backends. Press Enter to keep the shown default."))
	fmt.Println()

	cfg := a.Config.Clone()
	reader := bufio.NewReader(os.Stdin)

	// Cloud backend
	cfg.OpenAI.Enabled = promptBool(reader, "Enable the cloud (OpenAI-compatible) backend?", cfg.OpenAI.Enabled)
	if cfg.OpenAI.Enabled {
		cfg.OpenAI.BaseURL = promptString(reader, "API base URL", cfg.OpenAI.BaseURL)
		cfg.OpenAI.Model = promptString(reader, "Model", cfg.OpenAI.Model)

		if token, changed := promptSecret("API token (leave empty to keep current)"); changed {
			sealed, err := a.Vault.Seal(token)
			if err != nil {
				return fmt.Errorf("failed to seal token: %w", err)
			}
			cfg.OpenAI.Token = sealed
		}
	}
	fmt.Println()

	// Local backend
	cfg.Ollama.Enabled = promptBool(reader, "Enable the local Ollama backend?", cfg.Ollama.Enabled)
	if cfg.Ollama.Enabled {
		cfg.Ollama.BaseURL = promptString(reader, "Ollama URL", cfg.Ollama.BaseURL)
		cfg.Ollama.Model = promptString(reader, "Model", cfg.Ollama.Model)
		cfg.Ollama.AutoStart = promptBool(reader, "Start Ollama automatically when not running?", cfg.Ollama.AutoStart)
	}
	fmt.Println()

	// UI
	cfg.UI.Theme = promptString(reader, "Theme (dark/light/auto)", cfg.UI.Theme)
	cfg.UI.MarkdownRendering = promptBool(reader, "Render answers as markdown?", cfg.UI.MarkdownRendering)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	path, _ := config.ConfigPath()
	fmt.Println()
	fmt.Println(infoStyle.Render("Saved " + path))
	if !cfg.OpenAI.Enabled && !cfg.Ollama.Enabled {
		fmt.Println(warningStyle.Render("No backends enabled - eva cannot chat until one is."))
	}
	return nil
}

// =============================================================================
// PROMPT HELPERS
// =============================================================================

// promptString asks for a value, returning the default on empty input.
func promptString(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// promptBool asks a yes/no question.
func promptBool(reader *bufio.Reader, label string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Printf("%s [%s]: ", label, hint)
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "true", "1", "on":
		return true
	case "n", "no", "false", "0", "off":
		return false
	default:
		return def
	}
}

// promptSecret reads a secret without echo. Returns the value and
// whether the user entered one.
// SECURITY: term.ReadPassword keeps the token off the terminal.
func promptSecret(label string) (string, bool) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", false
	}
	secret := strings.TrimSpace(string(raw))
	return secret, secret != ""
}
