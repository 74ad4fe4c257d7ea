// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads chatbot settings.
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//   - Built-in defaults
//   - ~/.chatbot/config.toml (or the path given with --config)
//   - Environment variables (GROQ_API_KEY, MINIMAX_API_KEY, CHATBOT_*)
//
// No API key has a default. With neither GROQ_API_KEY nor MINIMAX_API_KEY
// set the client reports that it is not configured.
//
// # Provider Selection
//
// ActiveProvider picks MiniMax when its key is present and Groq otherwise.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client := cloud.NewClient(cfg.ActiveProvider())
package config
