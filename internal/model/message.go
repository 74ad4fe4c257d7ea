// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the label shown next to a message.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "ChatBot"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a conversation.
type Message struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Role      Role           `json:"role"`
	Timestamp time.Time      `json:"timestamp"`
	Media     []MediaContent `json:"media,omitempty"`

	// IsGenerating marks a placeholder shown while a reply is outstanding.
	IsGenerating bool `json:"isGenerating,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, content string, media []MediaContent) *Message {
	return &Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Media:     cloneMedia(media),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string, media []MediaContent) *Message {
	return NewMessage(RoleUser, content, media)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content, nil)
}

// NewID returns an opaque unique identifier.
func NewID() string {
	return uuid.NewString()
}

// HasMedia reports whether the message carries attachments.
func (m *Message) HasMedia() bool {
	return len(m.Media) > 0
}

// IsEmpty reports whether the message has neither text nor media.
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.Media) == 0
}

// MediaNames returns the attachment names in order.
func (m *Message) MediaNames() []string {
	names := make([]string, 0, len(m.Media))
	for _, media := range m.Media {
		names = append(names, media.Name)
	}
	return names
}

// Preview returns a single-line, rune-safe preview of the content.
func (m *Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(content)
	if maxLen <= 3 || len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Media = cloneMedia(m.Media)
	return &c
}

func cloneMedia(media []MediaContent) []MediaContent {
	if len(media) == 0 {
		return nil
	}
	out := make([]MediaContent, len(media))
	copy(out, media)
	return out
}
