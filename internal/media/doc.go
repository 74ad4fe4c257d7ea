// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package media turns local files and capture devices into attachments.
//
// # Key Types
//
//   - Constraints: size limit and accepted MIME types per media kind
//   - Uploader: validates a file and embeds it as a data URI
//   - Capture: camera/microphone streams and recording into a file
//   - Device: source of capture streams (FFmpegDevice in production)
//
// Validation and device failures are reported to the user through a
// notify.Notifier and returned as sentinel errors.
package media
