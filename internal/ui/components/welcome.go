// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// WelcomeTitle is the empty-conversation heading.
const WelcomeTitle = "How can I help you today?"

// WelcomeText is the line under the heading.
const WelcomeText = "Start a conversation by typing a message below, or attach an image, audio or video file."

// Welcome is the empty state of the message area.
type Welcome struct {
	Width  int
	Height int
	theme  *styles.Theme
}

// NewWelcome creates the empty-state view.
func NewWelcome(theme *styles.Theme) Welcome {
	return Welcome{theme: theme}
}

// SetSize sets the area to center in.
func (w *Welcome) SetSize(width, height int) {
	w.Width = width
	w.Height = height
}

// View renders the heading, the subtext and a few key hints.
func (w Welcome) View() string {
	t := w.theme
	textWidth := w.Width - 8
	if textWidth < 20 {
		textWidth = 20
	}
	if textWidth > 60 {
		textWidth = 60
	}

	hints := []string{
		t.KeyHint.Render("enter") + " " + t.KeyDesc.Render("send"),
		t.KeyHint.Render("/attach") + " " + t.KeyDesc.Render("add a file"),
		t.KeyHint.Render("/help") + " " + t.KeyDesc.Render("commands"),
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		t.WelcomeTitle.Render(WelcomeTitle),
		"",
		t.WelcomeText.Width(textWidth).Align(lipgloss.Center).Render(WelcomeText),
		"",
		strings.Join(hints, "   "),
	)

	if w.Width <= 0 || w.Height <= 0 {
		return body
	}
	return lipgloss.Place(w.Width, w.Height, lipgloss.Center, lipgloss.Center, body)
}
