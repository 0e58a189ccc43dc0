// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hoshisato/eva-tui/internal/model"
	"github.com/hoshisato/eva-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export renders a conversation to the target format.
	Export(room model.ChatRoom, messages []model.Message) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g. ".md").
	FileExtension() string

	// MimeType returns the MIME type of the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files are written.
	// Default: current working directory.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir: ".",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders a conversation with the given exporter and
// writes it atomically. Returns the output file path.
func ExportToFile(room model.ChatRoom, messages []model.Message, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(room, messages)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("export_%s_%d%s",
		sanitizeFilename(room.DisplayTitle()),
		time.Now().UnixMilli(),
		exporter.FileExtension(),
	)

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// The file was written; the caller still gets its path.
			return outputPath, fmt.Errorf("exported to %s but could not open it: %w", outputPath, err)
		}
	}

	return outputPath, nil
}

// ExportMarkdown exports a conversation to a markdown file.
func ExportMarkdown(room model.ChatRoom, messages []model.Message, opts *Options) (string, error) {
	return ExportToFile(room, messages, NewMarkdownExporter(opts), opts)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames
// on Windows or Unix.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case replacer[r] != 0:
			result = append(result, replacer[r])
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "chat"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
// Swappable so tests can observe open failures.
var openFile = func(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
