// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/jeranaias/chatbot-tui/internal/media"
	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// ActionHints is shown under the selected message.
const ActionHints = "[c] copy  [r] regenerate  [d] delete"

// UserActionHints omits regenerate, which only applies to replies.
const UserActionHints = "[c] copy  [d] delete"

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one message with its role label and attachments.
type MessageBubble struct {
	Message  *model.Message
	Width    int
	Selected bool

	// CanRegenerate enables the regenerate hint on a selected reply.
	CanRegenerate bool

	theme    *styles.Theme
	markdown *MarkdownRenderer
}

// NewMessageBubble creates a bubble for msg.
func NewMessageBubble(msg *model.Message, theme *styles.Theme, md *MarkdownRenderer) *MessageBubble {
	return &MessageBubble{
		Message:  msg,
		Width:    80,
		theme:    theme,
		markdown: md,
	}
}

// View renders the bubble.
func (b *MessageBubble) View() string {
	if b.Message.Role == model.RoleUser {
		return b.renderUser()
	}
	return b.renderAssistant()
}

func (b *MessageBubble) contentWidth() int {
	w := b.Width - 8
	if w < 20 {
		w = 20
	}
	return w
}

func (b *MessageBubble) renderUser() string {
	t := b.theme
	width := b.contentWidth()

	body := RenderCodeFences(b.Message.Content, width, t.ChromaStyle(), func(s string) string {
		return wrap.String(wordwrap.String(strings.TrimRight(s, "\n"), width), width)
	})
	if chips := b.renderMedia(); chips != "" {
		if strings.TrimSpace(body) == "" {
			body = chips
		} else {
			body += "\n" + chips
		}
	}

	bubble := t.UserBubble
	if b.Selected {
		bubble = bubble.BorderForeground(styles.Cyan)
	}

	header := t.RoleUser.Render(model.RoleUser.DisplayName()) + " " + t.Timestamp.Render(formatTime(b.Message))
	out := lipgloss.JoinVertical(lipgloss.Right, header, bubble.Render(body))
	if b.Selected {
		out = lipgloss.JoinVertical(lipgloss.Right, out, t.ActionHint.Render(UserActionHints))
	}
	return lipgloss.PlaceHorizontal(b.Width, lipgloss.Right, out)
}

func (b *MessageBubble) renderAssistant() string {
	t := b.theme
	width := b.contentWidth()

	var body string
	switch {
	case b.Message.IsGenerating:
		body = t.Typing.Render("...")
	case b.markdown != nil:
		body = b.markdown.Render(b.Message.Content, t.GlamourStyle(), width)
	default:
		body = wrap.String(wordwrap.String(b.Message.Content, width), width)
	}
	if chips := b.renderMedia(); chips != "" {
		body += "\n" + chips
	}

	bubble := t.AssistantBubble
	if b.Selected {
		bubble = bubble.BorderForeground(styles.Cyan)
	}

	header := t.RoleAssistant.Render(model.RoleAssistant.DisplayName()) + " " + t.Timestamp.Render(formatTime(b.Message))
	out := lipgloss.JoinVertical(lipgloss.Left, header, bubble.Render(body))
	if b.Selected {
		hints := UserActionHints
		if b.CanRegenerate {
			hints = ActionHints
		}
		out = lipgloss.JoinVertical(lipgloss.Left, out, t.ActionHint.Render(hints))
	}
	return out
}

func (b *MessageBubble) renderMedia() string {
	if len(b.Message.Media) == 0 {
		return ""
	}
	chips := make([]string, len(b.Message.Media))
	for i, m := range b.Message.Media {
		chips[i] = b.theme.MediaChip.Render(DescribeMedia(m))
	}
	return strings.Join(chips, "\n")
}

// DescribeMedia returns "[image] cat.png 2.0 KiB 640x480".
func DescribeMedia(m model.MediaContent) string {
	parts := []string{fmt.Sprintf("[%s]", m.Type), m.Name}
	if m.Size > 0 {
		parts = append(parts, media.FormatSize(m.Size))
	}
	if m.Width > 0 && m.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", m.Width, m.Height))
	}
	return strings.Join(parts, " ")
}

func formatTime(msg *model.Message) string {
	if msg.Timestamp.IsZero() {
		return ""
	}
	return msg.Timestamp.Local().Format("3:04 PM")
}

// =============================================================================
// MESSAGE LIST
// =============================================================================

// MessageList renders a conversation for the viewport.
type MessageList struct {
	Messages []*model.Message
	Width    int

	// Selected is the index of the focused message, or -1.
	Selected int

	theme    *styles.Theme
	markdown *MarkdownRenderer
	offsets  []int
}

// NewMessageList creates an empty list.
func NewMessageList(theme *styles.Theme, md *MarkdownRenderer) *MessageList {
	return &MessageList{
		Width:    80,
		Selected: -1,
		theme:    theme,
		markdown: md,
	}
}

// SetMessages replaces the messages.
func (ml *MessageList) SetMessages(messages []*model.Message) {
	ml.Messages = messages
	if ml.Selected >= len(messages) {
		ml.Selected = len(messages) - 1
	}
}

// SetWidth sets the render width.
func (ml *MessageList) SetWidth(width int) { ml.Width = width }

// Offsets returns the first line of each message in the last View.
func (ml *MessageList) Offsets() []int { return ml.offsets }

// View renders all messages separated by blank lines.
func (ml *MessageList) View() string {
	ml.offsets = ml.offsets[:0]
	var b strings.Builder
	line := 0
	for i, msg := range ml.Messages {
		bubble := NewMessageBubble(msg, ml.theme, ml.markdown)
		bubble.Width = ml.Width
		bubble.Selected = i == ml.Selected
		bubble.CanRegenerate = msg.Role == model.RoleAssistant && i > 0 && ml.Messages[i-1].Role == model.RoleUser

		rendered := bubble.View()
		ml.offsets = append(ml.offsets, line)
		b.WriteString(rendered)
		b.WriteString("\n\n")
		line += lipgloss.Height(rendered) + 1
	}
	return strings.TrimRight(b.String(), "\n")
}
