// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/storage"
)

// fakeClock advances one second per call so timestamps are distinct.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, backend storage.Backend) *Store {
	t.Helper()
	s := New(backend, WithClock(newFakeClock().Now))
	require.NoError(t, s.Load())
	return s
}

// =============================================================================
// CREATE / SELECT
// =============================================================================

func TestStore_EmptyOnFirstLoad(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.CurrentSessionID())
	_, ok := s.CurrentSession()
	assert.False(t, ok)
}

func TestStore_CreateSessionPrependsAndSelects(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())

	first := s.CreateSession()
	second := s.CreateSession()
	assert.NotEqual(t, first, second)

	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second, sessions[0].ID, "newest first")
	assert.Equal(t, first, sessions[1].ID)
	assert.Equal(t, second, s.CurrentSessionID())
	assert.True(t, strings.HasPrefix(sessions[0].Title, "Chat 3/7/2024"))
	assert.Empty(t, sessions[0].Messages)
}

func TestStore_SetCurrentSessionID(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	a := s.CreateSession()
	b := s.CreateSession()

	assert.True(t, s.SetCurrentSessionID(a))
	assert.Equal(t, a, s.CurrentSessionID())

	assert.False(t, s.SetCurrentSessionID("nope"))
	assert.Equal(t, a, s.CurrentSessionID(), "unknown id leaves selection unchanged")

	s.SetCurrentSessionID(b)
	cur, ok := s.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, b, cur.ID)
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestStore_AddMessageTitlesAndTimestamps(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	id := s.CreateSession()
	before, _ := s.Session(id)

	long := "Explain the difference between goroutines and threads"
	require.True(t, s.AddMessage(id, model.NewUserMessage(long, nil)))
	require.True(t, s.AddMessage(id, model.NewAssistantMessage("Sure.")))

	after, ok := s.Session(id)
	require.True(t, ok)
	assert.Equal(t, "Explain the difference between...", after.Title)
	assert.Len(t, after.Messages, 2)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestStore_AddMessageUnknownSessionIsNoop(t *testing.T) {
	backend := storage.NewMemoryBackend()
	s := newTestStore(t, backend)
	s.CreateSession()
	saved, err := backend.Get(storage.SessionsKey)
	require.NoError(t, err)

	assert.False(t, s.AddMessage("missing", model.NewUserMessage("x", nil)))
	assert.False(t, s.AddMessage("", nil))

	again, err := backend.Get(storage.SessionsKey)
	require.NoError(t, err)
	assert.Equal(t, saved, again, "nothing rewritten")
}

func TestStore_AddMessageStoresCopy(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	id := s.CreateSession()

	msg := model.NewUserMessage("original", nil)
	s.AddMessage(id, msg)
	msg.Content = "mutated"

	got, _ := s.Session(id)
	assert.Equal(t, "original", got.Messages[0].Content)

	got.Messages[0].Content = "mutated copy"
	again, _ := s.Session(id)
	assert.Equal(t, "original", again.Messages[0].Content)
}

func TestStore_RemoveMessage(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	id := s.CreateSession()
	u := model.NewUserMessage("q", nil)
	a := model.NewAssistantMessage("r")
	s.AddMessage(id, u)
	s.AddMessage(id, a)

	assert.True(t, s.RemoveMessage(id, a.ID))
	assert.False(t, s.RemoveMessage(id, a.ID))
	assert.False(t, s.RemoveMessage("missing", u.ID))

	got, _ := s.Session(id)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, u.ID, got.Messages[0].ID)
}

// =============================================================================
// DELETE
// =============================================================================

func TestStore_DeleteCurrentSelectsFirstRemaining(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	a := s.CreateSession()
	b := s.CreateSession()
	c := s.CreateSession() // order: c, b, a

	s.SetCurrentSessionID(b)
	assert.True(t, s.DeleteSession(b))
	assert.Equal(t, c, s.CurrentSessionID())

	assert.True(t, s.DeleteSession(a))
	assert.Equal(t, c, s.CurrentSessionID(), "deleting a non-current session keeps selection")

	assert.True(t, s.DeleteSession(c))
	assert.Empty(t, s.CurrentSessionID())
	assert.Equal(t, 0, s.Len())

	assert.False(t, s.DeleteSession("missing"))
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestStore_PersistsAcrossInstances(t *testing.T) {
	backend := storage.NewMemoryBackend()
	s := newTestStore(t, backend)
	a := s.CreateSession()
	s.AddMessage(a, model.NewUserMessage("hello", []model.MediaContent{{
		Type: model.MediaAudio, Name: "n.wav", Size: 3, MimeType: "audio/wav", URL: "data:audio/wav;base64,AAAA",
	}}))
	b := s.CreateSession()
	s.SetCurrentSessionID(a)

	reloaded := newTestStore(t, backend)
	sessions := reloaded.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, b, sessions[0].ID)
	assert.Equal(t, a, sessions[1].ID)
	assert.Equal(t, a, reloaded.CurrentSessionID())
	assert.Equal(t, "hello...", sessions[1].Title)
	assert.Equal(t, "n.wav", sessions[1].Messages[0].Media[0].Name)
}

func TestStore_LoadCorruptDataStartsEmptyAndKeepsBackup(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(storage.SessionsKey, []byte("{not json")))

	s := New(backend, WithClock(func() time.Time { return time.UnixMilli(1700000000000) }))
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())

	backup, err := backend.Get(storage.SessionsKey + "-backup-1700000000000")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))
}

func TestStore_LoadFutureSchemaStartsEmpty(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(storage.SessionsKey, []byte(`{"version":9,"sessions":[]}`)))

	s := newTestStore(t, backend)
	assert.Equal(t, 0, s.Len())
}

func TestStore_LoadMigratesVersion1(t *testing.T) {
	backend := storage.NewMemoryBackend()
	v1 := `[{"id":"s1","title":"Hi...","createdAt":"2024-03-07T10:00:00.000Z","updatedAt":"2024-03-07T10:00:00.000Z",
	  "messages":[{"id":"m1","content":"Hi","role":"user","timestamp":"2024-03-07T10:00:00.000Z"}]}]`
	require.NoError(t, backend.Set(storage.SessionsKey, []byte(v1)))

	s := newTestStore(t, backend)
	assert.Equal(t, "s1", s.CurrentSessionID())

	data, err := backend.Get(storage.SessionsKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 2`, "migrated data is rewritten")
}

func TestStore_LoadMigratesLegacyMessages(t *testing.T) {
	backend := storage.NewMemoryBackend()
	legacy := `[{"id":"1","content":"Old chat","role":"user","timestamp":"2024-01-01T00:00:00Z"}]`
	require.NoError(t, backend.Set(storage.LegacyMessagesKey, []byte(legacy)))

	s := newTestStore(t, backend)
	require.Equal(t, 1, s.Len())
	cur, ok := s.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, "Old chat...", cur.Title)

	_, err := backend.Get(storage.LegacyMessagesKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// failingBackend fails every write.
type failingBackend struct {
	*storage.MemoryBackend
}

func (failingBackend) Set(string, []byte) error { return errors.New("disk full") }

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	s := newTestStore(t, failingBackend{storage.NewMemoryBackend()})
	id := s.CreateSession()
	assert.True(t, s.AddMessage(id, model.NewUserMessage("x", nil)))
	assert.Equal(t, 1, s.Len())
	assert.ErrorContains(t, s.PersistErr(), "disk full")
}

// flakyBackend fails writes while broken is set.
type flakyBackend struct {
	*storage.MemoryBackend
	broken bool
}

func (b *flakyBackend) Set(key string, data []byte) error {
	if b.broken {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Set(key, data)
}

func TestStore_PersistErrClearsAfterSuccessfulWrite(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: storage.NewMemoryBackend()}
	s := newTestStore(t, backend)
	assert.NoError(t, s.PersistErr())

	backend.broken = true
	id := s.CreateSession()
	assert.Error(t, s.PersistErr())

	backend.broken = false
	assert.True(t, s.AddMessage(id, model.NewUserMessage("saved", nil)))
	assert.NoError(t, s.PersistErr())

	data, err := backend.MemoryBackend.Get(storage.SessionsKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved")
}

type errBackend struct{ storage.MemoryBackend }

func (*errBackend) Get(string) ([]byte, error) { return nil, errors.New("io error") }

func TestStore_LoadReturnsIOError(t *testing.T) {
	s := New(&errBackend{})
	assert.Error(t, s.Load())
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

func TestStore_OnChange(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	calls := 0
	s.OnChange(func() {
		calls++
		_ = s.Len() // callbacks may re-enter the store
	})

	id := s.CreateSession()
	s.AddMessage(id, model.NewUserMessage("x", nil))
	s.AddMessage("missing", model.NewUserMessage("x", nil))
	s.DeleteSession(id)
	assert.Equal(t, 3, calls)
}

func TestStore_WatchUnsupported(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryBackend())
	_, err := s.Watch(context.Background())
	assert.ErrorIs(t, err, ErrWatchUnsupported)
}

func TestStore_WatchReloadsExternalChanges(t *testing.T) {
	dir := t.TempDir()
	backendA, err := storage.NewFileBackend(dir)
	require.NoError(t, err)
	backendA.Debounce = 20 * time.Millisecond
	backendB, err := storage.NewFileBackend(dir)
	require.NoError(t, err)

	a := newTestStore(t, backendA)
	defer a.Close()
	changes, err := a.Watch(context.Background())
	require.NoError(t, err)

	// Own writes do not produce reload notifications.
	a.CreateSession()
	select {
	case <-changes:
		t.Fatal("own write reported as external change")
	case <-time.After(300 * time.Millisecond):
	}

	b := newTestStore(t, backendB)
	id := b.CreateSession()
	b.AddMessage(id, model.NewUserMessage("from another process", nil))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-changes:
		case <-deadline:
			t.Fatal("no reload after external write")
		}
		if _, ok := a.Session(id); ok {
			break
		}
	}
	assert.Equal(t, 2, a.Len())

	require.NoError(t, a.Close())
	select {
	case _, ok := <-changes:
		if ok {
			_, ok = <-changes
		}
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel not closed")
	}
}
