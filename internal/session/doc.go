// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the collection of chat sessions and the current
// selection, and persists every change through a storage.Backend.
//
// # Key Types
//
//   - Store: the session collection, safe for concurrent use
//   - Option: functional options for New
//
// # Usage
//
//	backend, _ := storage.Open(storage.KindFile, dataDir)
//	store := session.New(backend)
//	if err := store.Load(); err != nil {
//	    return err
//	}
//	id := store.CreateSession()
//	store.AddMessage(id, model.NewUserMessage("hello", nil))
//
// Sessions are kept newest first. Every mutation rewrites the whole
// collection under one key; writes from two processes can clobber each other.
// Watch reloads the collection when another process changes it.
package session
