// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the chatbot command tree.
//
// Commands:
//
//	chatbot                         Full-screen chat (same as "chatbot tui")
//	chatbot tui                     Full-screen chat; line mode when not a terminal
//	chatbot chat                    Line-oriented chat with input history
//	chatbot sessions list           List saved conversations
//	chatbot sessions show <id>      Print a conversation transcript
//	chatbot sessions export <id>    Write a conversation to the downloads folder
//	chatbot sessions delete <id>    Delete a conversation
//	chatbot config show             Print the effective configuration
//	chatbot config path             Print the config file location
//	chatbot config init             Write a default config file
//
// Global flags:
//
//	--config <file>    Config file (default ~/.chatbot/config.toml)
//	--data-dir <dir>   Directory for sessions, captures and the log file
//	--debug            Log at debug level
package cli
