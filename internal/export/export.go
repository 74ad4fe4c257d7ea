// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/util"
)

// ErrEmptySession is returned when a session has no messages to export.
var ErrEmptySession = errors.New("session has no messages")

// FilePrefix starts every exported file name.
const FilePrefix = "chatbot-conversation-"

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a session in one format.
type Exporter interface {
	// Export converts a session to the target format.
	Export(session *model.ChatSession) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".txt".
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures the richer formats. The text format ignores them.
type Options struct {
	// IncludeMetadata adds a header (title, dates, counts).
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	Theme string

	// Now stamps the export time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
		Now:               time.Now,
	}
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Formats lists the accepted format names, default first.
var Formats = []string{"text", "md", "json", "html"}

// ForFormat returns the exporter for a format name. "" selects text.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "txt":
		return NewTextExporter(), nil
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// DOWNLOAD
// =============================================================================

// FileName returns the download name for the UTC calendar date of now.
func FileName(now time.Time, ext string) string {
	return FilePrefix + now.UTC().Format("2006-01-02") + ext
}

// Download renders session and writes it into dir. It returns the path
// written. An existing file is never overwritten; " (1)", " (2)", ... is
// inserted before the extension instead.
func Download(session *model.ChatSession, exporter Exporter, dir string, now time.Time) (string, error) {
	if session == nil || session.IsEmpty() {
		return "", ErrEmptySession
	}

	content, err := exporter.Export(session)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := uniquePath(filepath.Join(dir, FileName(now, exporter.FileExtension())))
	if err := util.AtomicWriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// LocaleTimestamp formats a time the way an en-US locale prints a date and
// time: "3/7/2024, 9:05:01 AM".
func LocaleTimestamp(t time.Time) string {
	return t.Format("1/2/2006, 3:04:05 PM")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("3:04:05 PM")
}

// formatTimestamp formats a timestamp for metadata.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func attachmentNames(media []model.MediaContent) string {
	names := make([]string, len(media))
	for i, m := range media {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}
