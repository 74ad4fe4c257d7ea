// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the chatbot palette and the Theme of lipgloss styles.
//
// Colors are lipgloss.AdaptiveColor values, so every style follows the
// renderer's dark/light setting. Theme.SetDark flips that setting at runtime;
// the UI binds it to ctrl+t.
//
// # Usage
//
//	theme := styles.NewTheme("auto")
//	title := theme.HeaderTitle.Render("ChatBot")
//	theme.Toggle()
package styles
