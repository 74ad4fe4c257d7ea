// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea model for the chat screen.
//
// The model keeps only view state (focus, pending attachments, toasts,
// scroll position). Sessions, the loading flag and the error slot are read
// from the conversation controller on every update, so the screen is always
// a projection of controller state.
//
// # Focus
//
// Tab cycles between the input, the message list and the session sidebar.
// In the message list, c copies, r regenerates and d deletes the selected
// message. In the sidebar, enter opens a session and d deletes it.
//
// # Slash commands
//
//	/attach <path>   attach an image, audio or video file
//	/camera, /mic    start recording from a capture device
//	/stop            stop recording and attach the result
//	/discard         drop pending attachments
//	/export [fmt]    export the chat (text, md, json, html)
//	/clear           delete the current chat
//	/new             start a new chat
//	/help            show keys and commands
package chat
