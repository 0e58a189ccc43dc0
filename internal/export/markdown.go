// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a conversation to markdown.
type MarkdownExporter struct {
	options *Options
	// now is overridable for deterministic tests.
	now func() time.Time
}

// NewMarkdownExporter creates a markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// Export renders the room's messages to markdown. Messages are
// rendered in the order given; callers pass the committed history.
func (e *MarkdownExporter) Export(room model.ChatRoom, messages []model.Message) ([]byte, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Chat Export: %q\n\n", room.DisplayTitle()))
	sb.WriteString(fmt.Sprintf("**Exported on:** %s\n\n", e.now().Format("2006-01-02 03:04 PM")))
	sb.WriteString("---\n\n")
	sb.WriteString("## Chat History\n\n")

	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("**%s:**\n", senderLabel(msg)))
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

var titleCaser = cases.Title(language.English)

// senderLabel names the author of a message for display.
func senderLabel(msg model.Message) string {
	if msg.IsUser() {
		return "User"
	}
	return "Eva (" + PlatformDisplayName(msg.Platform()) + ")"
}

// PlatformDisplayName returns the human-readable name of a backend.
func PlatformDisplayName(platform model.ApiType) string {
	switch platform {
	case model.ApiTypeOpenAI:
		return "OpenAI"
	default:
		return titleCaser.String(string(platform))
	}
}
