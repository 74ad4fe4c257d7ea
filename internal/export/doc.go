// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders chat sessions as downloadable documents.
//
// # Formats
//
//   - text (default): "You (1/2/2006, 3:04:05 PM):" blocks, one per message
//   - md: Markdown with YAML front matter
//   - json: the session as stored
//   - html: a standalone page with attachments embedded
//
// # Usage
//
//	exporter, _ := export.ForFormat("text", nil)
//	path, err := export.Download(session, exporter, downloadsDir, time.Now())
//
// Files are named chatbot-conversation-YYYY-MM-DD.<ext>; an existing file
// of the same name gets a numeric suffix instead of being overwritten.
package export
