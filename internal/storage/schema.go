// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/chatbot-tui/internal/model"
)

// Storage keys.
const (
	SessionsKey       = "chatbot-sessions"
	LegacyMessagesKey = "chatbot-messages"
)

// CurrentSchemaVersion is the version written by Encode.
const CurrentSchemaVersion = 2

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the persisted sessions collection. Sessions are ordered newest
// first.
type Snapshot struct {
	Version          int                  `json:"version"`
	CurrentSessionID string               `json:"current_session_id,omitempty"`
	Sessions         []*model.ChatSession `json:"sessions"`
}

// Report describes what Decode had to fix up.
type Report struct {
	// FromVersion is the schema version found on disk (0 for legacy messages).
	FromVersion int

	// Migrated is true when the data was not already at CurrentSchemaVersion.
	Migrated bool

	// DroppedSessions and DroppedMessages count invalid entries removed.
	DroppedSessions int
	DroppedMessages int
}

// Encode serializes a snapshot at CurrentSchemaVersion.
func Encode(s *Snapshot) ([]byte, error) {
	out := Snapshot{
		Version:          CurrentSchemaVersion,
		CurrentSessionID: s.CurrentSessionID,
		Sessions:         s.Sessions,
	}
	if out.Sessions == nil {
		out.Sessions = []*model.ChatSession{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode parses any supported schema version, migrates it to the current
// one, and validates the result.
func Decode(data []byte) (*Snapshot, Report, error) {
	var report Report
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, report, fmt.Errorf("%w: empty value", ErrCorrupt)
	}

	var snap Snapshot
	switch trimmed[0] {
	case '[':
		// Version 1: bare array of sessions.
		if err := json.Unmarshal(trimmed, &snap.Sessions); err != nil {
			return nil, report, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		report.FromVersion = 1

	case '{':
		var probe struct {
			Version int `json:"version"`
		}
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, report, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		report.FromVersion = probe.Version
		switch {
		case probe.Version > CurrentSchemaVersion:
			return nil, report, fmt.Errorf("%w: version %d", ErrUnsupportedSchema, probe.Version)
		case probe.Version < 2:
			return nil, report, fmt.Errorf("%w: missing schema version", ErrCorrupt)
		}
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return nil, report, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

	default:
		return nil, report, fmt.Errorf("%w: unexpected %q", ErrCorrupt, trimmed[0])
	}

	report.Migrated = report.FromVersion != CurrentSchemaVersion
	snap.Version = CurrentSchemaVersion
	validate(&snap, &report)
	return &snap, report, nil
}

// DecodeLegacyMessages migrates a flat message array, as written by the
// single-conversation variant, into a one-session snapshot.
func DecodeLegacyMessages(data []byte, now time.Time) (*Snapshot, Report, error) {
	report := Report{FromVersion: 0, Migrated: true}

	var messages []*model.Message
	if err := json.Unmarshal(bytes.TrimSpace(data), &messages); err != nil {
		return nil, report, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	session := model.NewChatSession(now)
	session.Messages = messages
	snap := &Snapshot{Version: CurrentSchemaVersion, Sessions: []*model.ChatSession{session}}
	validate(snap, &report)

	if len(session.Messages) == 0 {
		snap.Sessions = nil
		snap.CurrentSessionID = ""
		return snap, report, nil
	}

	first := session.Messages[0]
	last := session.LastMessage()
	session.Title = model.DeriveTitle(first)
	if !first.Timestamp.IsZero() {
		session.CreatedAt = first.Timestamp
	}
	if !last.Timestamp.IsZero() {
		session.UpdatedAt = last.Timestamp
	}
	return snap, report, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// validate drops entries that would break store invariants: sessions without
// an id, duplicate session ids, and messages that are nil, lack an id, repeat
// an id within their session, have an unknown role, or are stale
// "generating" placeholders. The current selection falls back to the first
// session.
func validate(snap *Snapshot, report *Report) {
	seenSessions := make(map[string]bool, len(snap.Sessions))
	sessions := make([]*model.ChatSession, 0, len(snap.Sessions))

	for _, s := range snap.Sessions {
		if s == nil || s.ID == "" || seenSessions[s.ID] {
			report.DroppedSessions++
			continue
		}
		seenSessions[s.ID] = true

		seenMessages := make(map[string]bool, len(s.Messages))
		messages := make([]*model.Message, 0, len(s.Messages))
		for _, m := range s.Messages {
			if m == nil || m.ID == "" || seenMessages[m.ID] || !m.Role.Valid() || m.IsGenerating {
				report.DroppedMessages++
				continue
			}
			seenMessages[m.ID] = true
			messages = append(messages, m)
		}
		s.Messages = messages
		sessions = append(sessions, s)
	}
	snap.Sessions = sessions

	if !seenSessions[snap.CurrentSessionID] {
		snap.CurrentSessionID = ""
		if len(sessions) > 0 {
			snap.CurrentSessionID = sessions[0].ID
		}
	}
}
