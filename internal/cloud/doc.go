// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the client for OpenAI-compatible chat-completion
// APIs (Groq, MiniMax and anything else speaking the same protocol).
//
// # Key Types
//
//   - Client: builds a completion request from history plus a new turn and
//     returns the reply as an assistant message
//   - Provider: endpoint, key and model for one API
//   - APIError: a non-2xx response
//
// # Usage
//
//	client := cloud.NewClient(cfg.ActiveProvider()).
//	    WithTimeout(60 * time.Second)
//	reply, err := client.Send(ctx, "hello", nil, history)
//
// Media is not uploaded; each attachment is summarized in the message text.
// Requests are never retried.
package cloud
