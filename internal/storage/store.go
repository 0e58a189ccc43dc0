// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("room not found")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore persists conversations in SQLite.
type ChatStore struct {
	db *sql.DB
}

// Config holds store configuration
type Config struct {
	// DatabasePath is where to store the SQLite database
	DatabasePath string
}

// DefaultConfig returns default configuration rooted at dataDir.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DatabasePath: filepath.Join(dataDir, "chats.db"),
	}
}

// Open opens (creating if needed) the conversation database.
func Open(config *Config) (*ChatStore, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &ChatStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *ChatStore) Close() error {
	return s.db.Close()
}

func (s *ChatStore) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	_, err := s.db.Exec(InitMetadata)
	return err
}

// =============================================================================
// ROOMS
// =============================================================================

// ListRooms returns every saved room, most recently created first.
func (s *ChatStore) ListRooms(ctx context.Context) ([]model.ChatRoom, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, enabled_platform, created_at
		FROM chat_rooms
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []model.ChatRoom
	for rows.Next() {
		var (
			room      model.ChatRoom
			platforms string
		)
		if err := rows.Scan(&room.ID, &room.Title, &platforms, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		room.State = model.RoomPersisted
		room.EnabledPlatform = model.ParsePlatforms(platforms)
		out = append(out, room)
	}
	return out, rows.Err()
}

// GetRoom returns one saved room by ID.
func (s *ChatStore) GetRoom(ctx context.Context, id int64) (model.ChatRoom, error) {
	var (
		room      model.ChatRoom
		platforms string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, enabled_platform, created_at
		FROM chat_rooms
		WHERE id = ?`, id).Scan(&room.ID, &room.Title, &platforms, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ChatRoom{}, ErrNotFound
	}
	if err != nil {
		return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	room.State = model.RoomPersisted
	room.EnabledPlatform = model.ParsePlatforms(platforms)
	return room, nil
}

// UpdateTitle renames a saved room.
func (s *ChatStore) UpdateTitle(ctx context.Context, room model.ChatRoom, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_rooms SET title = ? WHERE id = ?`, title, room.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRooms removes rooms and all their messages.
func (s *ChatStore) DeleteRooms(ctx context.Context, rooms []model.ChatRoom) error {
	if len(rooms) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	for _, room := range rooms {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM messages WHERE chat_id = ?`, room.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chat_rooms WHERE id = ?`, room.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// MESSAGES
// =============================================================================

// ListMessages returns a room's messages in creation order. Rows that
// share a timestamp come back in insertion order, which keeps a
// question ahead of its answers.
func (s *ChatStore) ListMessages(ctx context.Context, chatID int64) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, content, created_at, platform_type, is_error
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var (
			msg      model.Message
			platform sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Content, &msg.CreatedAt, &platform, &msg.IsError); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if platform.Valid {
			if p, ok := model.ParseApiType(platform.String); ok {
				msg.PlatformType = &p
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// SaveChat writes the room and its complete message set in one
// transaction. A transient room is inserted and returned with its
// durable ID; a persisted room has its metadata refreshed. The message
// set replaces whatever was stored before, and messages that already
// carry an ID keep it, so a retried answer lands on the same row.
func (s *ChatStore) SaveChat(ctx context.Context, room model.ChatRoom, messages []model.Message) (model.ChatRoom, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	platforms := model.JoinPlatforms(room.EnabledPlatform)

	if room.State == model.RoomPersisted {
		res, err := tx.ExecContext(ctx, `
			UPDATE chat_rooms SET title = ?, enabled_platform = ?
			WHERE id = ?`, room.Title, platforms, room.ID)
		if err != nil {
			return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return model.ChatRoom{}, ErrNotFound
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO chat_rooms (title, enabled_platform, created_at)
			VALUES (?, ?, ?)`, room.Title, platforms, room.CreatedAt)
		if err != nil {
			return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		room.ID = id
		room.State = model.RoomPersisted
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE chat_id = ?`, room.ID); err != nil {
		return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for _, msg := range messages {
		var platform any
		if msg.PlatformType != nil {
			platform = string(*msg.PlatformType)
		}

		if msg.ID != 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO messages (id, chat_id, content, created_at, platform_type, is_error)
				VALUES (?, ?, ?, ?, ?, ?)`,
				msg.ID, room.ID, msg.Content, msg.CreatedAt, platform, msg.IsError)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO messages (chat_id, content, created_at, platform_type, is_error)
				VALUES (?, ?, ?, ?, ?)`,
				room.ID, msg.Content, msg.CreatedAt, platform, msg.IsError)
		}
		if err != nil {
			return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.ChatRoom{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return room, nil
}
