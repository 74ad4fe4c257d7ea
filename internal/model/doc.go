// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions, messages and
// media attachments.
//
// # Key Types
//
//   - Role: who authored a message (user or assistant)
//   - Message: one turn in a conversation, optionally carrying media
//   - MediaContent: descriptor of an uploaded or captured image/audio/video
//   - ChatSession: an ordered, titled list of messages
//
// Messages are immutable once created; a session only ever appends or removes
// whole messages.
package model
