// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/hoshisato/eva-tui/internal/chat"
	"github.com/hoshisato/eva-tui/internal/config"
	"github.com/hoshisato/eva-tui/internal/export"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
// USABILITY: Supports arrow keys for history navigation.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL CHAT
// =============================================================================

// replSession holds the state of one interactive chat.
type replSession struct {
	app      *App
	orch     *chat.Orchestrator
	snaps    chan chat.Snapshot
	input    *ChatCLI
	renderer *glamour.TermRenderer
}

// RunChat handles the "chat" command: a line-oriented REPL that fans
// every question out to all enabled backends and prints the answers
// side by side.
func (a *App) RunChat(args *ArgParser) error {
	platforms := a.Config.EnabledPlatforms()
	if len(platforms) == 0 {
		return fmt.Errorf("no backends enabled; run \"eva setup\" first")
	}

	var chatID int64
	if v := args.Flag("chat"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat id %q", v)
		}
		chatID = id
	}

	s := &replSession{
		app:   a,
		input: NewChatCLI(),
	}
	defer s.input.Close()

	if a.Config.UI.MarkdownRendering {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			s.renderer = r
		}
	}

	if err := s.open(chatID); err != nil {
		return err
	}
	defer s.orch.Close()

	s.printWelcome(platforms)
	return s.loop()
}

// open creates and loads an orchestrator for the given conversation.
func (s *replSession) open(chatID int64) error {
	snaps := make(chan chat.Snapshot, 256)
	orch, err := chat.NewOrchestrator(chat.Config{
		ChatID:    chatID,
		Platforms: s.app.Config.EnabledPlatforms(),
		Registry:  s.app.Registry,
		Store:     s.app.Store,
		OnChange: func(snap chat.Snapshot) {
			select {
			case snaps <- snap:
			default:
			}
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[error]"), err)
		},
	})
	if err != nil {
		return err
	}
	if err := orch.Load(context.Background()); err != nil {
		orch.Close()
		return err
	}

	s.orch = orch
	s.snaps = snaps
	return nil
}

func (s *replSession) printWelcome(platforms []model.ApiType) {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = export.PlatformDisplayName(p)
	}
	fmt.Println(welcomeStyle.Render("eva") + infoStyle.Render(" - chatting with "+strings.Join(names, " and ")))
	fmt.Println(infoStyle.Render("Type /help for commands, /exit to leave."))
	fmt.Println()
}

// loop is the main REPL loop.
func (s *replSession) loop() error {
	for {
		input, err := s.input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C or Ctrl+D leaves the chat.
			if err == liner.ErrPromptAborted {
				fmt.Println()
				return nil
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := s.handleCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		s.ask(input)
	}
}

// ask fans the question out and prints the settled answers.
func (s *replSession) ask(text string) {
	s.drainSnapshots()
	if !s.orch.AskQuestion(text) {
		fmt.Println(warningStyle.Render("Still waiting for the previous answers."))
		return
	}
	snap := s.waitIdle()
	s.printLatestRound(snap)
}

// drainSnapshots discards stale snapshots from before the question.
func (s *replSession) drainSnapshots() {
	for {
		select {
		case <-s.snaps:
		default:
			return
		}
	}
}

// waitIdle blocks until every backend has settled and the round has
// been committed.
func (s *replSession) waitIdle() chat.Snapshot {
	for snap := range s.snaps {
		if snap.Idle && !snap.PendingRound() {
			return snap
		}
	}
	return s.orch.Snapshot()
}

// printLatestRound prints the answers of the most recent round.
func (s *replSession) printLatestRound(snap chat.Snapshot) {
	grouped := chat.GroupMessages(snap.Messages)
	slot := chat.LatestRound(grouped)
	if slot < 0 || slot%2 == 0 {
		return
	}
	fmt.Println()
	for _, msg := range grouped[slot] {
		label := export.PlatformDisplayName(msg.Platform())
		if msg.IsError {
			fmt.Println(errorStyle.Render("[" + label + "] failed"))
			if !msg.IsBlank() {
				fmt.Println(infoStyle.Render(msg.Content))
			}
			fmt.Println()
			continue
		}
		fmt.Println(platformStyle.Render("[" + label + "]"))
		fmt.Println(s.render(msg.Content))
		fmt.Println()
	}
}

// render formats answer content, as markdown when enabled.
func (s *replSession) render(content string) string {
	if s.renderer == nil {
		return content
	}
	out, err := s.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand processes a slash command. Returns true to quit.
func (s *replSession) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(input, cmd))

	switch cmd {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		fmt.Println(infoStyle.Render("/retry <backend>  /edit <text>  /title <text>  /export  /new  /exit"))
		return false, nil

	case "/retry":
		if rest == "" {
			return false, fmt.Errorf("usage: /retry <backend>")
		}
		platform, ok := model.ParseApiType(rest)
		if !ok {
			return false, fmt.Errorf("unknown backend %q", rest)
		}
		return false, s.retry(platform)

	case "/edit":
		if rest == "" {
			return false, fmt.Errorf("usage: /edit <new question>")
		}
		return false, s.edit(rest)

	case "/title":
		if rest == "" {
			return false, fmt.Errorf("usage: /title <text>")
		}
		return false, s.orch.UpdateTitle(context.Background(), rest)

	case "/export":
		room := s.orch.Room()
		messages := s.orch.Messages()
		path, err := export.ExportMarkdown(room, messages, export.DefaultOptions())
		if err != nil {
			return false, err
		}
		fmt.Println(infoStyle.Render("Exported to " + path))
		return false, nil

	case "/new":
		s.orch.Close()
		if err := s.open(0); err != nil {
			return true, err
		}
		fmt.Println(infoStyle.Render("Started a new conversation."))
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s", cmd)
	}
}

// retry re-asks the last question on one backend only.
func (s *replSession) retry(platform model.ApiType) error {
	target, ok := s.latestAnswer(platform)
	if !ok {
		return fmt.Errorf("no %s answer to retry", platform)
	}
	s.drainSnapshots()
	if !s.orch.RetryQuestion(target) {
		return fmt.Errorf("cannot retry right now")
	}
	snap := s.waitIdle()
	s.printLatestRound(snap)
	return nil
}

// edit re-asks the last question with new content on all backends.
func (s *replSession) edit(content string) error {
	original, ok := s.latestQuestion()
	if !ok {
		return fmt.Errorf("no question to edit")
	}
	s.drainSnapshots()
	if !s.orch.EditQuestion(original, content) {
		return fmt.Errorf("cannot edit right now")
	}
	snap := s.waitIdle()
	s.printLatestRound(snap)
	return nil
}

// latestAnswer finds the most recent answer from a backend.
func (s *replSession) latestAnswer(platform model.ApiType) (model.Message, bool) {
	messages := s.orch.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Platform() == platform {
			return messages[i], true
		}
	}
	return model.Message{}, false
}

// latestQuestion finds the most recent user message.
func (s *replSession) latestQuestion() (model.Message, bool) {
	messages := s.orch.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsUser() {
			return messages[i], true
		}
	}
	return model.Message{}, false
}
