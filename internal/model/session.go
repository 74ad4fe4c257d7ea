// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/jeranaias/chatbot-tui/internal/util"
)

// TitleMaxRunes is how much of the first message becomes the session title.
const TitleMaxRunes = 30

// =============================================================================
// CHAT SESSION TYPE
// =============================================================================

// ChatSession is a titled conversation thread. Message order is
// chronological order.
type ChatSession struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewChatSession creates an empty session with the date-based default title.
func NewChatSession(now time.Time) *ChatSession {
	return &ChatSession{
		ID:        NewID(),
		Title:     DefaultTitle(now),
		Messages:  make([]*Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DefaultTitle is the title of a session that has no messages yet.
func DefaultTitle(t time.Time) string {
	return "Chat " + t.Format("1/2/2006")
}

// DeriveTitle builds a title from the first message of a session: the first
// 30 characters of its text followed by an ellipsis. Media-only messages use
// the first attachment name.
func DeriveTitle(msg *Message) string {
	content := util.SingleLine(strings.TrimSpace(msg.Content))
	if content == "" && len(msg.Media) > 0 {
		content = msg.Media[0].Name
	}
	return util.PrefixRunes(content, TitleMaxRunes) + util.Ellipsis
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message, refreshes UpdatedAt, and titles the session when
// this is its first message.
func (s *ChatSession) Append(msg *Message, now time.Time) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = now
	if len(s.Messages) == 1 {
		s.Title = DeriveTitle(msg)
	}
}

// Remove deletes a message by ID and reports whether it existed.
func (s *ChatSession) Remove(id string, now time.Time) bool {
	idx := s.IndexOf(id)
	if idx < 0 {
		return false
	}
	s.Messages = append(s.Messages[:idx], s.Messages[idx+1:]...)
	s.UpdatedAt = now
	return true
}

// IndexOf returns the position of a message, or -1.
func (s *ChatSession) IndexOf(id string) int {
	for i, msg := range s.Messages {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

// Message returns a message by ID.
func (s *ChatSession) Message(id string) *Message {
	if idx := s.IndexOf(id); idx >= 0 {
		return s.Messages[idx]
	}
	return nil
}

// LastMessage returns the newest message, or nil.
func (s *ChatSession) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// LastAssistantMessage returns the newest assistant message, or nil.
func (s *ChatSession) LastAssistantMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i]
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (s *ChatSession) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty reports whether the session has no messages.
func (s *ChatSession) IsEmpty() bool {
	return len(s.Messages) == 0
}

// Clone returns a deep copy, safe to hand to other goroutines.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = make([]*Message, len(s.Messages))
	for i, msg := range s.Messages {
		c.Messages[i] = msg.Clone()
	}
	return &c
}
