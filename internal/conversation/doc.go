// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation ties the session store, the chat client and the
// exporter together into the send/regenerate/delete/export workflow.
//
// A send is split in two so the UI can render the user's message before the
// reply arrives:
//
//	turn, err := ctrl.Submit("hello", nil) // user message stored, loading set
//	reply, err := turn.Resolve(ctx)         // request made, reply stored
//
// Only one request may be outstanding at a time; a second Submit while the
// first is unresolved returns ErrBusy.
package conversation
