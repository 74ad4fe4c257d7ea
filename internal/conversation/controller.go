// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/chatbot-tui/internal/export"
	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/session"
)

var (
	// ErrEmptyInput is returned for a send with no text and no media.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy is returned when a request is already outstanding.
	ErrBusy = errors.New("a response is still being generated")

	// ErrCannotRegenerate is returned when the target is not an assistant
	// message directly preceded by a user message.
	ErrCannotRegenerate = errors.New("message cannot be regenerated")

	// ErrNothingToExport is returned when the current session has no messages.
	ErrNothingToExport = errors.New("no messages to export")

	// ErrTurnResolved is returned when a turn is resolved twice.
	ErrTurnResolved = errors.New("turn already resolved")
)

// Sender produces an assistant reply for a user turn.
type Sender interface {
	Send(ctx context.Context, content string, media []model.MediaContent, history []*model.Message) (*model.Message, error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the loading flag and the error slot. Session data lives
// in the store.
type Controller struct {
	store    *session.Store
	sender   Sender
	notifier notify.Notifier
	now      func() time.Time

	downloadsDir  string
	exportFormat  string
	exportOptions *export.Options

	mu      sync.Mutex
	loading bool
	err     error
	cancel  context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where user-visible notices go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithDownloadsDir sets the directory exports are written to.
func WithDownloadsDir(dir string) Option {
	return func(c *Controller) { c.downloadsDir = dir }
}

// WithExportFormat sets the format used when Export is called with "".
func WithExportFormat(format string) Option {
	return func(c *Controller) { c.exportFormat = format }
}

// WithExportOptions sets options for the Markdown, JSON and HTML formats.
func WithExportOptions(opts *export.Options) Option {
	return func(c *Controller) { c.exportOptions = opts }
}

// New creates a controller over a loaded store.
func New(store *session.Store, sender Sender, opts ...Option) *Controller {
	c := &Controller{
		store:        store,
		sender:       sender,
		notifier:     notify.Discard,
		now:          time.Now,
		downloadsDir: ".",
		exportFormat: "text",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exportOptions == nil {
		c.exportOptions = export.DefaultOptions()
		c.exportOptions.Now = c.now
	}
	return c
}

// =============================================================================
// SENDING
// =============================================================================

// Turn is a submitted user message awaiting its reply.
type Turn struct {
	c *Controller

	SessionID string
	Content   string
	Media     []model.MediaContent
	History   []*model.Message

	// UserMessage is the stored user message. It is nil for a regenerate.
	UserMessage *model.Message

	// abort is done once Cancel is called for this turn.
	abort       context.Context
	resolveOnce sync.Once
}

// Submit stores the user's message in the current session (creating one if
// needed) and marks the controller loading.
func (c *Controller) Submit(content string, media []model.MediaContent) (*Turn, error) {
	content = normalizeInput(content)
	if content == "" && len(media) == 0 {
		return nil, ErrEmptyInput
	}

	abort, err := c.begin()
	if err != nil {
		return nil, err
	}

	sessionID := c.store.CurrentSessionID()
	if sessionID == "" {
		sessionID = c.store.CreateSession()
	}

	var history []*model.Message
	if current, ok := c.store.Session(sessionID); ok {
		history = current.Messages
	}

	msg := model.NewUserMessage(content, media)
	msg.Timestamp = c.now()
	c.store.AddMessage(sessionID, msg)

	return &Turn{
		c:           c,
		SessionID:   sessionID,
		Content:     content,
		Media:       msg.Media,
		History:     history,
		UserMessage: msg,
		abort:       abort,
	}, nil
}

// Resolve requests the reply and appends it to the turn's session. On
// failure the error slot is set and a notice is sent; nothing is appended.
func (t *Turn) Resolve(ctx context.Context) (*model.Message, error) {
	err := ErrTurnResolved
	var reply *model.Message
	t.resolveOnce.Do(func() {
		reply, err = t.c.resolve(ctx, t)
	})
	return reply, err
}

func (c *Controller) resolve(ctx context.Context, t *Turn) (*model.Message, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(t.abort, cancel)
	defer stop()

	var (
		reply *model.Message
		err   error
	)
	if t.abort.Err() != nil {
		err = context.Canceled
	} else {
		reply, err = c.sender.Send(ctx, t.Content, t.Media, t.History)
	}

	c.mu.Lock()
	c.loading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.err = err
	}
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("request cancelled", "session", t.SessionID)
			notify.Status(c.notifier, "Request cancelled", "")
		} else {
			log.Error("chat request failed", "session", t.SessionID, "err", err)
			notify.Error(c.notifier, "Error", err.Error())
		}
		return nil, err
	}

	if !c.store.AddMessage(t.SessionID, reply) {
		log.Warn("reply dropped, session no longer exists", "session", t.SessionID)
	}
	return reply, nil
}

// HandleSend submits and resolves in one call.
func (c *Controller) HandleSend(ctx context.Context, content string, media []model.MediaContent) (*model.Message, error) {
	turn, err := c.Submit(content, media)
	if err != nil {
		return nil, err
	}
	return turn.Resolve(ctx)
}

// Cancel aborts the outstanding request, if any. A turn cancelled before it
// is resolved never reaches the sender.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// begin marks the controller loading and returns the context Cancel
// closes for the new turn.
func (c *Controller) begin() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		notify.Warning(c.notifier, "Please wait", "A response is still being generated")
		return nil, ErrBusy
	}
	abort, cancel := context.WithCancel(context.Background())
	c.loading = true
	c.err = nil
	c.cancel = cancel
	return abort, nil
}

// normalizeInput returns NFC-normalized, trimmed text.
func normalizeInput(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// =============================================================================
// MESSAGE ACTIONS
// =============================================================================

// PrepareRegenerate removes an assistant reply and returns a turn that asks
// again with the preceding user message and everything before it as history.
func (c *Controller) PrepareRegenerate(messageID string) (*Turn, error) {
	current, ok := c.store.CurrentSession()
	if !ok {
		return nil, ErrCannotRegenerate
	}
	idx := current.IndexOf(messageID)
	if idx < 1 ||
		current.Messages[idx].Role != model.RoleAssistant ||
		current.Messages[idx-1].Role != model.RoleUser {
		return nil, ErrCannotRegenerate
	}

	abort, err := c.begin()
	if err != nil {
		return nil, err
	}

	user := current.Messages[idx-1]
	c.store.RemoveMessage(current.ID, messageID)

	return &Turn{
		c:         c,
		SessionID: current.ID,
		Content:   user.Content,
		Media:     user.Media,
		History:   current.Messages[:idx-1],
		abort:     abort,
	}, nil
}

// Regenerate replaces an assistant reply with a fresh one.
func (c *Controller) Regenerate(ctx context.Context, messageID string) (*model.Message, error) {
	turn, err := c.PrepareRegenerate(messageID)
	if err != nil {
		return nil, err
	}
	return turn.Resolve(ctx)
}

// Delete removes a message from the current session.
func (c *Controller) Delete(messageID string) bool {
	return c.store.RemoveMessage(c.store.CurrentSessionID(), messageID)
}

// Export writes the current session to the downloads directory and returns
// the path. format "" uses the configured default.
func (c *Controller) Export(format string) (string, error) {
	current, ok := c.store.CurrentSession()
	if !ok || current.IsEmpty() {
		notify.Warning(c.notifier, "No messages to export", "Start a conversation first")
		return "", ErrNothingToExport
	}

	if format == "" {
		format = c.exportFormat
	}
	exporter, err := export.ForFormat(format, c.exportOptions)
	if err != nil {
		notify.Error(c.notifier, "Export failed", err.Error())
		return "", err
	}

	path, err := export.Download(current, exporter, c.downloadsDir, c.now())
	if err != nil {
		log.Error("export failed", "session", current.ID, "err", err)
		notify.Error(c.notifier, "Export failed", err.Error())
		return "", err
	}

	log.Info("session exported", "session", current.ID, "path", path)
	notify.Success(c.notifier, "Chat exported", fmt.Sprintf("Conversation saved to %s", path))
	return path, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// ClearSession deletes the current session.
func (c *Controller) ClearSession() bool {
	current, ok := c.store.CurrentSession()
	if !ok {
		return false
	}
	c.store.DeleteSession(current.ID)
	if !current.IsEmpty() {
		notify.Success(c.notifier, "Chat cleared", "All messages have been deleted")
	}
	return true
}

// NewChat creates and selects an empty session.
func (c *Controller) NewChat() string {
	return c.store.CreateSession()
}

// SelectSession makes id current. Unknown ids are ignored.
func (c *Controller) SelectSession(id string) bool {
	return c.store.SetCurrentSessionID(id)
}

// DeleteSession removes any session.
func (c *Controller) DeleteSession(id string) bool {
	return c.store.DeleteSession(id)
}

// Sessions returns copies of all sessions, newest first.
func (c *Controller) Sessions() []*model.ChatSession {
	return c.store.Sessions()
}

// CurrentSession returns a copy of the selected session.
func (c *Controller) CurrentSession() (*model.ChatSession, bool) {
	return c.store.CurrentSession()
}

// =============================================================================
// STATE
// =============================================================================

// Loading reports whether a request is outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the last request error, cleared by the next send.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ClearError empties the error slot.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}
