// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/storage"
)

// ErrWatchUnsupported is returned by Watch when the backend cannot report
// external changes.
var ErrWatchUnsupported = errors.New("storage backend does not support watching")

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKey overrides the storage key the collection is written under.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// =============================================================================
// STORE
// =============================================================================

// Store is the session collection. All methods are safe for concurrent use;
// returned sessions are deep copies.
type Store struct {
	mu        sync.Mutex
	backend   storage.Backend
	key       string
	now       func() time.Time
	sessions  []*model.ChatSession
	currentID string

	// lastWritten lets reload skip notifications for our own writes.
	lastWritten []byte

	// persistErr is the outcome of the latest write made by a mutation.
	persistErr error

	listenersMu sync.Mutex
	listeners   []func()

	watchCancel context.CancelFunc
}

// New creates an empty store over backend. Call Load to read persisted data.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		key:      storage.SessionsKey,
		now:      time.Now,
		sessions: make([]*model.ChatSession, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one, migrating
// older schemas. Unreadable data is logged, kept aside under a backup key,
// and the store starts empty. Only backend I/O failures are returned.
func (s *Store) Load() error {
	s.mu.Lock()
	err := s.loadLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) loadLocked() error {
	data, err := s.backend.Get(s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return s.loadLegacyLocked()
	}
	if err != nil {
		return fmt.Errorf("read sessions: %w", err)
	}

	snap, report, err := storage.Decode(data)
	if err != nil {
		log.Warn("discarding unreadable sessions", "key", s.key, "err", err)
		s.backupLocked(data)
		s.reset()
		return nil
	}
	s.apply(snap)
	logReport(report)

	if report.Migrated {
		if err := s.persistLocked(); err != nil {
			return err
		}
	} else {
		s.lastWritten = data
	}
	return nil
}

// loadLegacyLocked migrates the single-conversation message list if present.
func (s *Store) loadLegacyLocked() error {
	data, err := s.backend.Get(storage.LegacyMessagesKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.reset()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read legacy messages: %w", err)
	}

	snap, report, err := storage.DecodeLegacyMessages(data, s.now())
	if err != nil {
		log.Warn("discarding unreadable legacy messages", "err", err)
		s.reset()
		return nil
	}
	s.apply(snap)
	logReport(report)

	if err := s.persistLocked(); err != nil {
		return err
	}
	if err := s.backend.Delete(storage.LegacyMessagesKey); err != nil {
		log.Warn("failed to remove legacy messages", "err", err)
	}
	return nil
}

func (s *Store) backupLocked(data []byte) {
	key := fmt.Sprintf("%s-backup-%d", s.key, s.now().UnixMilli())
	if err := s.backend.Set(key, data); err != nil {
		log.Error("failed to back up unreadable sessions", "key", key, "err", err)
		return
	}
	log.Info("unreadable sessions kept", "key", key)
}

func (s *Store) reset() {
	s.sessions = make([]*model.ChatSession, 0)
	s.currentID = ""
	s.lastWritten = nil
}

func (s *Store) apply(snap *storage.Snapshot) {
	s.sessions = snap.Sessions
	if s.sessions == nil {
		s.sessions = make([]*model.ChatSession, 0)
	}
	s.currentID = snap.CurrentSessionID
}

func logReport(r storage.Report) {
	if r.Migrated {
		log.Info("migrated sessions", "from_version", r.FromVersion, "to_version", storage.CurrentSchemaVersion)
	}
	if r.DroppedSessions > 0 || r.DroppedMessages > 0 {
		log.Warn("dropped invalid session data", "sessions", r.DroppedSessions, "messages", r.DroppedMessages)
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateSession adds an empty session at the front, makes it current and
// returns its id.
func (s *Store) CreateSession() string {
	s.mu.Lock()
	session := model.NewChatSession(s.now())
	s.sessions = append([]*model.ChatSession{session}, s.sessions...)
	s.currentID = session.ID
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return session.ID
}

// AddMessage appends a copy of msg to the session. The first message of a
// session sets its title. Unknown session ids are ignored.
func (s *Store) AddMessage(sessionID string, msg *model.Message) bool {
	if msg == nil {
		return false
	}
	s.mu.Lock()
	session := s.find(sessionID)
	if session == nil {
		s.mu.Unlock()
		return false
	}
	session.Append(msg.Clone(), s.now())
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// RemoveMessage deletes one message from a session.
func (s *Store) RemoveMessage(sessionID, messageID string) bool {
	s.mu.Lock()
	session := s.find(sessionID)
	if session == nil || !session.Remove(messageID, s.now()) {
		s.mu.Unlock()
		return false
	}
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// DeleteSession removes a session. When it was current, the first remaining
// session becomes current, or none.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.currentID == id {
		s.currentID = ""
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		}
	}
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// SetCurrentSessionID selects a session. Unknown ids are ignored.
func (s *Store) SetCurrentSessionID(id string) bool {
	s.mu.Lock()
	if s.find(id) == nil {
		s.mu.Unlock()
		return false
	}
	if s.currentID == id {
		s.mu.Unlock()
		return true
	}
	s.currentID = id
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// =============================================================================
// QUERIES
// =============================================================================

// CurrentSessionID returns the selected session id, or "".
func (s *Store) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// CurrentSession returns a copy of the selected session.
func (s *Store) CurrentSession() (*model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session := s.find(s.currentID); session != nil {
		return session.Clone(), true
	}
	return nil, false
}

// Session returns a copy of the session with the given id.
func (s *Store) Session(id string) (*model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session := s.find(id); session != nil {
		return session.Clone(), true
	}
	return nil, false
}

// Sessions returns copies of all sessions, newest first.
func (s *Store) Sessions() []*model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ChatSession, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = session.Clone()
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) find(id string) *model.ChatSession {
	if idx := s.indexOf(id); idx >= 0 {
		return s.sessions[idx]
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, session := range s.sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// saveLocked persists after a mutation. A failure is logged and kept for
// PersistErr; the in-memory state stays authoritative.
func (s *Store) saveLocked() {
	s.persistErr = s.persistLocked()
	if s.persistErr != nil {
		log.Error("failed to persist sessions", "key", s.key, "err", s.persistErr)
	}
}

// PersistErr returns the error from the most recent mutation's write, or
// nil once a later write succeeds.
func (s *Store) PersistErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// persistLocked writes the whole collection.
func (s *Store) persistLocked() error {
	data, err := storage.Encode(&storage.Snapshot{
		CurrentSessionID: s.currentID,
		Sessions:         s.sessions,
	})
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := s.backend.Set(s.key, data); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	s.lastWritten = data
	return nil
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// OnChange registers fn to run after every mutation or reload. Callbacks run
// on the goroutine that made the change, outside the store lock.
func (s *Store) OnChange(fn func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Watch reloads the collection whenever another process rewrites it. The
// returned channel receives after each reload that changed something and is
// closed when ctx is done or Close is called.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, ok := s.backend.(storage.Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}

	ctx, cancel := context.WithCancel(ctx)
	events, err := watcher.Watch(ctx, s.key)
	if err != nil {
		cancel()
		return nil, err
	}

	s.mu.Lock()
	if s.watchCancel != nil {
		s.watchCancel()
	}
	s.watchCancel = cancel
	s.mu.Unlock()

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range events {
			changed, err := s.reload()
			if err != nil {
				log.Warn("failed to reload sessions", "err", err)
				continue
			}
			if !changed {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}

// reload re-reads the collection, ignoring data this store wrote itself.
// The current selection is kept when it still exists.
func (s *Store) reload() (bool, error) {
	s.mu.Lock()
	data, err := s.backend.Get(s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		data = nil
	case err != nil:
		s.mu.Unlock()
		return false, err
	}
	if bytes.Equal(data, s.lastWritten) {
		s.mu.Unlock()
		return false, nil
	}

	previous := s.currentID
	if data == nil {
		s.reset()
	} else {
		snap, _, err := storage.Decode(data)
		if err != nil {
			s.mu.Unlock()
			return false, err
		}
		s.apply(snap)
		s.lastWritten = data
		if s.find(previous) != nil {
			s.currentID = previous
		}
	}
	s.mu.Unlock()

	s.notify()
	return true, nil
}

// Close stops watching. The backend is owned by the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	return nil
}
