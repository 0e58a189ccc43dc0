// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hoshisato/eva-tui/internal/chat"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// CONVERSATION PICKER
// =============================================================================

// pickerItem is one saved conversation, or the "new conversation"
// entry at the top of the list.
type pickerItem struct {
	room  model.ChatRoom
	fresh bool
}

func (i pickerItem) Title() string {
	if i.fresh {
		return "Start a new conversation"
	}
	return i.room.DisplayTitle()
}

func (i pickerItem) Description() string {
	if i.fresh {
		return "ask every enabled backend"
	}
	created := time.Unix(i.room.CreatedAt, 0).Format("2006-01-02 15:04")
	return model.JoinPlatforms(i.room.EnabledPlatform) + " · " + created
}

func (i pickerItem) FilterValue() string {
	return i.Title()
}

type pickerModel struct {
	list   list.Model
	store  chat.Store
	choice int64
	chosen bool
	err    error
}

func newPickerModel(store chat.Store, rooms []model.ChatRoom) pickerModel {
	items := make([]list.Item, 0, len(rooms)+1)
	items = append(items, pickerItem{fresh: true})
	for _, r := range rooms {
		items = append(items, pickerItem{room: r})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(cyan).BorderLeftForeground(cyan)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(textSecondary).BorderLeftForeground(cyan)

	l := list.New(items, delegate, 0, 0)
	l.Title = "eva · conversations"
	l.Styles.Title = headerStyle
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		}
	}

	return pickerModel{list: l, store: store}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		h, v := lipgloss.NewStyle().Margin(1, 2).GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "enter":
			item, ok := m.list.SelectedItem().(pickerItem)
			if !ok {
				return m, nil
			}
			m.chosen = true
			if !item.fresh {
				m.choice = item.room.ID
			}
			return m, tea.Quit

		case "d":
			item, ok := m.list.SelectedItem().(pickerItem)
			if !ok || item.fresh {
				return m, nil
			}
			if err := m.store.DeleteRooms(context.Background(), []model.ChatRoom{item.room}); err != nil {
				m.err = err
				return m, nil
			}
			m.list.RemoveItem(m.list.Index())
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	view := lipgloss.NewStyle().Margin(1, 2).Render(m.list.View())
	if m.err != nil {
		view += "\n" + errorStyle.Render("error: "+m.err.Error())
	}
	return view
}

// runPicker shows the saved conversations and returns the chosen chat
// ID (0 for a new conversation). ok is false when the user quit
// without choosing. An empty store skips the picker.
func runPicker(store chat.Store) (int64, bool, error) {
	rooms, err := store.ListRooms(context.Background())
	if err != nil {
		return 0, false, fmt.Errorf("list conversations: %w", err)
	}
	if len(rooms) == 0 {
		return 0, true, nil
	}

	p := tea.NewProgram(newPickerModel(store, rooms), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return 0, false, err
	}
	picked := final.(pickerModel)
	if !picked.chosen {
		return 0, false, nil
	}
	return picked.choice, true, nil
}
