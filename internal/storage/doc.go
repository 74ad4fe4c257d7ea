// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key/value store that chat sessions are
// persisted into, and the versioned on-disk schema for them.
//
// # Key Types
//
//   - Backend: Get/Set/Delete of opaque values by key
//   - FileBackend: one JSON file per key, atomic writes, fsnotify watching
//   - SQLiteBackend: a single kv table in a SQLite database
//   - MemoryBackend: in-process map, for tests and ephemeral runs
//   - Snapshot: the decoded sessions collection plus current selection
//
// # Schema
//
// Version 2 is an envelope:
//
//	{"version": 2, "current_session_id": "...", "sessions": [...]}
//
// Version 1 is a bare JSON array of sessions. A legacy flat array of messages
// stored under LegacyMessagesKey is migrated into a single session. Anything
// newer than CurrentSchemaVersion is rejected with ErrUnsupportedSchema.
//
// # Storage Location
//
// Files live in ~/.chatbot/data/ unless configured otherwise.
package storage
