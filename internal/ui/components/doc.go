// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual building blocks of the chat UI:
// header, session sidebar, message list, welcome screen, pending
// attachments and toasts.
//
// Components are plain structs with setters and a View method. They hold no
// application state beyond what they are given, so the chat model can rebuild
// them from controller state on every update.
package components
