// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chatbot is a multimodal AI chat client for the terminal.
package main

import (
	"os"

	"github.com/jeranaias/chatbot-tui/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
