// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatbot packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing (temp file, fsync, rename)
//   - TruncateRunes: UTF-8 safe truncation with an ellipsis
//   - TruncateWidth: display-width aware truncation for terminal layout
//   - PadRight: pad a string to a display width
//
// # Usage
//
//	display := util.TruncateWidth(session.Title, 24)
//	err := util.AtomicWriteFile(path, data, 0o600)
package util
