// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
	"github.com/jeranaias/chatbot-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: app name, provider, message count and theme.
type Header struct {
	Title        string
	Provider     string
	Model        string
	MessageCount int
	Width        int
	theme        *styles.Theme
}

// NewHeader creates a header with the default title.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "ChatBot",
		Width: 80,
		theme: theme,
	}
}

// SetWidth sets the available width.
func (h *Header) SetWidth(width int) { h.Width = width }

// SetProvider sets the provider and model shown in the subtitle.
func (h *Header) SetProvider(provider, model string) {
	h.Provider = provider
	h.Model = model
}

// SetMessageCount sets the message count of the current session.
func (h *Header) SetMessageCount(n int) { h.MessageCount = n }

// Subtitle returns "Powered by <provider>".
func (h *Header) Subtitle() string {
	if h.Provider == "" {
		return ""
	}
	return "Powered by " + h.Provider
}

// View renders the header across the full width.
func (h *Header) View() string {
	t := h.theme
	width := h.Width
	if width < 20 {
		width = 20
	}

	left := t.HeaderBadge.Render(h.Title)
	if sub := h.Subtitle(); sub != "" {
		left += " " + t.HeaderSubtitle.Render(sub)
	}

	metaParts := []string{pluralize(h.MessageCount, "message")}
	if h.Model != "" {
		metaParts = append([]string{h.Model}, metaParts...)
	}
	metaParts = append(metaParts, themeIndicator(t))
	right := t.HeaderMeta.Render(strings.Join(metaParts, " | "))

	// Inner width excludes the header's horizontal padding.
	inner := width - 2
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Drop the meta before the title gets cut.
		right = ""
		gap = inner - lipgloss.Width(left)
		if gap < 0 {
			left = util.TruncateWidth(h.Title+" "+h.Subtitle(), inner)
			gap = 0
		}
	}

	line := left + strings.Repeat(" ", gap) + right
	return t.Header.Width(width).Render(line)
}

func themeIndicator(t *styles.Theme) string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
