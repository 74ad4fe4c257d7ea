// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
	"github.com/jeranaias/chatbot-tui/internal/util"
)

// SidebarWidth is the default width of the session list.
const SidebarWidth = 30

// EmptySessionsText is shown when there are no sessions.
const EmptySessionsText = "No chat sessions yet"

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// Sidebar lists chat sessions, newest first.
type Sidebar struct {
	Sessions  []*model.ChatSession
	CurrentID string
	Selected  int
	Focused   bool
	Width     int
	Height    int
	Now       func() time.Time
	theme     *styles.Theme
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{
		Width: SidebarWidth,
		Now:   time.Now,
		theme: theme,
	}
}

// SetSessions replaces the list and keeps the cursor in range. When the
// cursor was never moved it follows the current session.
func (s *Sidebar) SetSessions(sessions []*model.ChatSession, currentID string) {
	s.Sessions = sessions
	s.CurrentID = currentID
	if !s.Focused {
		for i, sess := range sessions {
			if sess.ID == currentID {
				s.Selected = i
			}
		}
	}
	s.clamp()
}

// SetSize sets the rendered dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// MoveUp moves the cursor up one session.
func (s *Sidebar) MoveUp() {
	s.Selected--
	s.clamp()
}

// MoveDown moves the cursor down one session.
func (s *Sidebar) MoveDown() {
	s.Selected++
	s.clamp()
}

// SelectedSession returns the session under the cursor.
func (s *Sidebar) SelectedSession() (*model.ChatSession, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Sessions) {
		return nil, false
	}
	return s.Sessions[s.Selected], true
}

func (s *Sidebar) clamp() {
	if s.Selected >= len(s.Sessions) {
		s.Selected = len(s.Sessions) - 1
	}
	if s.Selected < 0 {
		s.Selected = 0
	}
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	t := s.theme
	inner := s.Width - 3
	if inner < 10 {
		inner = 10
	}

	var b strings.Builder
	b.WriteString(t.SidebarTitle.Render("Chats"))
	b.WriteString("\n")
	b.WriteString(t.KeyHint.Render("ctrl+n") + " " + t.KeyDesc.Render("New Chat"))
	b.WriteString("\n\n")

	if len(s.Sessions) == 0 {
		b.WriteString(t.SessionMeta.Render(util.TruncateWidth(EmptySessionsText, inner)))
	}

	used := 4
	for i, sess := range s.Sessions {
		if s.Height > 0 && used+2 > s.Height {
			break
		}
		title := util.TruncateWidth(util.SingleLine(sess.Title), inner-2)
		marker := "  "
		if sess.ID == s.CurrentID {
			marker = "> "
		}

		style := t.SessionItem
		switch {
		case s.Focused && i == s.Selected:
			style = t.SessionItemSelected
		case sess.ID == s.CurrentID:
			style = t.SessionItemCurrent
		}

		b.WriteString(style.Render(util.PadRight(marker+title, inner)))
		b.WriteString("\n")
		b.WriteString(t.SessionMeta.Render("  " + util.TruncateWidth(s.meta(sess), inner-2)))
		b.WriteString("\n")
		used += 2
	}

	box := t.Sidebar
	if s.Focused {
		box = t.SidebarFocused
	}
	box = box.Width(s.Width - 1)
	if s.Height > 0 {
		box = box.Height(s.Height)
	}
	return box.Render(strings.TrimRight(b.String(), "\n"))
}

func (s *Sidebar) meta(sess *model.ChatSession) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return humanize.RelTime(sess.UpdatedAt, now(), "ago", "from now") + " | " + pluralize(sess.MessageCount(), "msg")
}
