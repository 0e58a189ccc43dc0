// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/config"
	"github.com/hoshisato/eva-tui/internal/storage"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota // default: full-screen chat
	CmdChat
	CmdSetup
	CmdSession
	CmdConfig
	CmdVersion
	CmdHelp
)

const usageText = `eva - side-by-side multi-model chat for the terminal

Eva asks every enabled backend the same question at once and streams
the answers next to each other: a cloud OpenAI-compatible provider and
a locally hosted Ollama model.

Usage:
  eva                        Start the full-screen chat (default)
  eva chat                   Interactive REPL chat
    --chat ID                Resume a saved conversation
  eva setup                  First-run configuration wizard
  eva session list           List saved conversations
  eva session show <id>      Print a conversation
  eva session export <id>    Export a conversation as markdown
    --dir DIR                Output directory (default: current)
    --open                   Open the exported file
  eva session delete <id> --confirm
                             Delete a conversation
  eva config show            Print the active configuration
  eva config path            Print the config file location
  eva version                Show version information
  eva help                   Show this help

Chat commands (inside REPL):
  /retry <backend>           Re-ask the last question on one backend
  /edit <text>               Re-ask the last question with new text
  /title <text>              Rename the conversation
  /export                    Export the conversation as markdown
  /new                       Start a fresh conversation
  /exit                      Leave the chat

Configuration lives in ~/.eva/config.toml. API tokens are sealed with
a machine-local key; run "eva setup" to configure backends.
`

// ParseCommand maps the first argument to a Command; remaining
// arguments feed the per-command parser.
func ParseCommand(args []string) (Command, *ArgParser) {
	if len(args) == 0 {
		return CmdTUI, NewArgParser(nil)
	}

	switch args[0] {
	case "chat":
		return CmdChat, NewArgParser(args[1:])
	case "setup":
		return CmdSetup, NewArgParser(args[1:])
	case "session", "sessions":
		return CmdSession, NewArgParser(args[1:])
	case "config":
		return CmdConfig, NewArgParser(args[1:])
	case "version", "--version", "-v":
		return CmdVersion, NewArgParser(args[1:])
	case "help", "--help", "-h":
		return CmdHelp, NewArgParser(args[1:])
	default:
		return CmdHelp, NewArgParser(args)
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("eva %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// =============================================================================
// APP WIRING
// =============================================================================

// App bundles the dependencies the command handlers share. main wires
// one up after loading configuration.
type App struct {
	Config   *config.Config
	Vault    *config.Vault
	Store    *storage.ChatStore
	Registry *backend.Registry
}

// RunConfig handles the "config" command.
func (a *App) RunConfig(args *ArgParser) error {
	switch args.Subcommand() {
	case "", "show":
		return a.printConfig()
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand())
	}
}

func (a *App) printConfig() error {
	safe := a.Config.Redacted()
	fmt.Printf("openai:  enabled=%v model=%s url=%s\n",
		safe.OpenAI.Enabled, safe.OpenAI.Model, safe.OpenAI.BaseURL)
	fmt.Printf("ollama:  enabled=%v model=%s url=%s auto_start=%v\n",
		safe.Ollama.Enabled, safe.Ollama.Model, safe.Ollama.BaseURL, safe.Ollama.AutoStart)
	fmt.Printf("ui:      theme=%s markdown=%v compact=%v\n",
		safe.UI.Theme, safe.UI.MarkdownRendering, safe.UI.CompactMode)
	return nil
}

// Fatal prints an error and exits non-zero. Handlers return errors;
// main funnels them here.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("error:"), err)
	os.Exit(1)
}
