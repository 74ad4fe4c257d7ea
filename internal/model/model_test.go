// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "ChatBot"},
		{Role("system"), "system"},
	}
	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("tool").Valid())
	assert.False(t, Role("").Valid())
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := NewUserMessage("hi", nil)
		require.NotEmpty(t, msg.ID)
		require.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
}

func TestNewMessage_CopiesMedia(t *testing.T) {
	media := []MediaContent{{Type: MediaImage, Name: "a.png"}}
	msg := NewUserMessage("", media)
	media[0].Name = "changed.png"
	assert.Equal(t, "a.png", msg.Media[0].Name)
}

func TestMessage_IsEmpty(t *testing.T) {
	assert.True(t, (&Message{Content: "  \n"}).IsEmpty())
	assert.False(t, (&Message{Content: "x"}).IsEmpty())
	assert.False(t, (&Message{Media: []MediaContent{{Name: "a"}}}).IsEmpty())
}

func TestMessage_Preview(t *testing.T) {
	msg := &Message{Content: "hello\nworld  again"}
	assert.Equal(t, "hello world again", msg.Preview(50))
	assert.Equal(t, "hello ...", msg.Preview(9))
}

func TestMessage_Clone(t *testing.T) {
	orig := NewUserMessage("hi", []MediaContent{{Name: "a"}})
	c := orig.Clone()
	c.Media[0].Name = "b"
	c.Content = "bye"
	assert.Equal(t, "a", orig.Media[0].Name)
	assert.Equal(t, "hi", orig.Content)

	var nilMsg *Message
	assert.Nil(t, nilMsg.Clone())
}

// =============================================================================
// MEDIA TESTS
// =============================================================================

func TestAnnotate(t *testing.T) {
	assert.Equal(t, "hello", Annotate("hello", nil))

	media := []MediaContent{
		{Type: MediaImage, Name: "cat.png"},
		{Type: MediaAudio, Name: "note.wav"},
	}
	want := "look\n\n[User has attached 2 media file(s): image - cat.png, audio - note.wav]"
	assert.Equal(t, want, Annotate("look", media))
}

func TestMediaContent_IsDataURI(t *testing.T) {
	assert.True(t, MediaContent{URL: "data:image/png;base64,AAAA"}.IsDataURI())
	assert.False(t, MediaContent{URL: "file:///tmp/x.webm"}.IsDataURI())
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestDefaultTitle(t *testing.T) {
	ts := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "Chat 3/7/2024", DefaultTitle(ts))
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want string
	}{
		{
			name: "short content still gets ellipsis",
			msg:  &Message{Content: "Hello"},
			want: "Hello...",
		},
		{
			name: "long content is cut at 30 characters",
			msg:  &Message{Content: strings.Repeat("a", 45)},
			want: strings.Repeat("a", 30) + "...",
		},
		{
			name: "multibyte content is cut by characters",
			msg:  &Message{Content: strings.Repeat("日", 40)},
			want: strings.Repeat("日", 30) + "...",
		},
		{
			name: "media-only message uses attachment name",
			msg:  &Message{Media: []MediaContent{{Name: "photo.jpg"}}},
			want: "photo.jpg...",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveTitle(tc.msg))
		})
	}
}

func TestChatSession_AppendSetsTitleOnce(t *testing.T) {
	now := time.Now()
	s := NewChatSession(now)
	assert.True(t, strings.HasPrefix(s.Title, "Chat "))

	later := now.Add(time.Minute)
	s.Append(NewUserMessage("first question", nil), later)
	assert.Equal(t, "first question...", s.Title)
	assert.Equal(t, later, s.UpdatedAt)

	s.Append(NewAssistantMessage("answer"), later.Add(time.Second))
	assert.Equal(t, "first question...", s.Title)
	assert.Equal(t, 2, s.MessageCount())
}

func TestChatSession_Remove(t *testing.T) {
	now := time.Now()
	s := NewChatSession(now)
	a := NewUserMessage("a", nil)
	b := NewAssistantMessage("b")
	s.Append(a, now)
	s.Append(b, now)

	later := now.Add(time.Hour)
	assert.True(t, s.Remove(a.ID, later))
	assert.False(t, s.Remove(a.ID, later))
	assert.Equal(t, later, s.UpdatedAt)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, b.ID, s.Messages[0].ID)
}

func TestChatSession_Lookups(t *testing.T) {
	now := time.Now()
	s := NewChatSession(now)
	assert.Nil(t, s.LastMessage())
	assert.Nil(t, s.LastAssistantMessage())

	u := NewUserMessage("q", nil)
	a := NewAssistantMessage("r")
	s.Append(u, now)
	s.Append(a, now)
	s.Append(NewUserMessage("q2", nil), now)

	assert.Equal(t, a.ID, s.LastAssistantMessage().ID)
	assert.Equal(t, 1, s.IndexOf(a.ID))
	assert.Equal(t, -1, s.IndexOf("missing"))
	assert.Equal(t, u, s.Message(u.ID))
}

func TestChatSession_CloneIsDeep(t *testing.T) {
	now := time.Now()
	s := NewChatSession(now)
	s.Append(NewUserMessage("q", nil), now)

	c := s.Clone()
	c.Messages[0].Content = "changed"
	c.Messages = append(c.Messages, NewAssistantMessage("x"))

	assert.Equal(t, "q", s.Messages[0].Content)
	assert.Len(t, s.Messages, 1)
}
