// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/hoshisato/eva-tui/internal/export"
	"github.com/hoshisato/eva-tui/internal/model"
	"github.com/hoshisato/eva-tui/internal/storage"
)

// =============================================================================
// SESSION COMMANDS
// =============================================================================

// RunSession handles the "session" command and its subcommands.
func (a *App) RunSession(args *ArgParser) error {
	ctx := context.Background()

	switch args.Subcommand() {
	case "", "list":
		return a.sessionList(ctx)
	case "show":
		return a.sessionShow(ctx, args)
	case "export":
		return a.sessionExport(ctx, args)
	case "delete":
		return a.sessionDelete(ctx, args)
	case "delete-all":
		return a.sessionDeleteAll(ctx, args)
	default:
		return fmt.Errorf("unknown session subcommand: %s", args.Subcommand())
	}
}

func (a *App) sessionList(ctx context.Context) error {
	rooms, err := a.Store.ListRooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println(infoStyle.Render("No saved conversations."))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tBACKENDS\tCREATED")
	for _, room := range rooms {
		created := time.Unix(room.CreatedAt, 0).Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			room.ID, room.DisplayTitle(), model.JoinPlatforms(room.EnabledPlatform), created)
	}
	return w.Flush()
}

func (a *App) sessionShow(ctx context.Context, args *ArgParser) error {
	room, err := a.resolveRoom(ctx, args.Positional(1))
	if err != nil {
		return err
	}
	messages, err := a.Store.ListMessages(ctx, room.ID)
	if err != nil {
		return err
	}

	fmt.Println(welcomeStyle.Render(room.DisplayTitle()))
	fmt.Println()
	for _, msg := range messages {
		if msg.IsUser() {
			fmt.Println(promptStyle.Render("you> ") + msg.Content)
			fmt.Println()
			continue
		}
		label := export.PlatformDisplayName(msg.Platform())
		if msg.IsError {
			fmt.Println(errorStyle.Render("[" + label + "] failed"))
		} else {
			fmt.Println(platformStyle.Render("[" + label + "]"))
		}
		fmt.Println(msg.Content)
		fmt.Println()
	}
	return nil
}

func (a *App) sessionExport(ctx context.Context, args *ArgParser) error {
	room, err := a.resolveRoom(ctx, args.Positional(1))
	if err != nil {
		return err
	}
	messages, err := a.Store.ListMessages(ctx, room.ID)
	if err != nil {
		return err
	}

	opts := &export.Options{
		OutputDir:       args.FlagOrDefault("dir", "."),
		OpenAfterExport: args.BoolFlag("open"),
	}
	path, err := export.ExportMarkdown(room, messages, opts)
	if err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("Exported to " + path))
	return nil
}

func (a *App) sessionDelete(ctx context.Context, args *ArgParser) error {
	if !args.BoolFlag("confirm") {
		return fmt.Errorf("deleting a conversation is permanent; add --confirm")
	}
	room, err := a.resolveRoom(ctx, args.Positional(1))
	if err != nil {
		return err
	}
	if err := a.Store.DeleteRooms(ctx, []model.ChatRoom{room}); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("Deleted conversation %d.", room.ID)))
	return nil
}

func (a *App) sessionDeleteAll(ctx context.Context, args *ArgParser) error {
	if !args.BoolFlag("confirm") {
		return fmt.Errorf("deleting all conversations is permanent; add --confirm")
	}
	rooms, err := a.Store.ListRooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println(infoStyle.Render("Nothing to delete."))
		return nil
	}
	if err := a.Store.DeleteRooms(ctx, rooms); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("Deleted %d conversations.", len(rooms))))
	return nil
}

// resolveRoom parses a conversation id argument and loads the room.
func (a *App) resolveRoom(ctx context.Context, arg string) (model.ChatRoom, error) {
	if arg == "" {
		return model.ChatRoom{}, fmt.Errorf("conversation id required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return model.ChatRoom{}, fmt.Errorf("invalid conversation id %q", arg)
	}
	room, err := a.Store.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.ChatRoom{}, fmt.Errorf("conversation %d not found", id)
		}
		return model.ChatRoom{}, err
	}
	return room, nil
}
