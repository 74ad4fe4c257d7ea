// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"

	"github.com/jeranaias/chatbot-tui/internal/model"
)

// TextExporter writes the plain-text transcript:
//
//	You (3/7/2024, 9:05:01 AM):
//	hello
//	[Attachments: cat.png]
//
//	ChatBot (3/7/2024, 9:05:03 AM):
//	Hi!
type TextExporter struct{}

// NewTextExporter creates a text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export implements Exporter.
func (e *TextExporter) Export(session *model.ChatSession) ([]byte, error) {
	if session == nil || session.IsEmpty() {
		return nil, ErrEmptySession
	}

	blocks := make([]string, 0, len(session.Messages))
	for _, msg := range session.Messages {
		var sb strings.Builder
		sb.WriteString(msg.Role.DisplayName())
		sb.WriteString(" (")
		sb.WriteString(LocaleTimestamp(msg.Timestamp))
		sb.WriteString("):\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
		if msg.HasMedia() {
			sb.WriteString("[Attachments: ")
			sb.WriteString(attachmentNames(msg.Media))
			sb.WriteString("]\n")
		}
		blocks = append(blocks, sb.String())
	}
	return []byte(strings.Join(blocks, "\n")), nil
}

// FileExtension implements Exporter.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType implements Exporter.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
