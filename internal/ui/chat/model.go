// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/chatbot-tui/internal/conversation"
	"github.com/jeranaias/chatbot-tui/internal/media"
	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/ui/components"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

type focus int

const (
	focusInput focus = iota
	focusMessages
	focusSidebar
)

func (f focus) String() string {
	switch f {
	case focusMessages:
		return "messages"
	case focusSidebar:
		return "chats"
	default:
		return "input"
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Deps are the collaborators of the chat screen. Capture, Notices and
// Changes may be nil.
type Deps struct {
	Controller *conversation.Controller
	Uploader   *media.Uploader
	Capture    *media.Capture

	// Notices receives notices from the controller, uploader and capture.
	Notices notify.Channel

	// Changes fires when the store reloads external edits.
	Changes <-chan struct{}

	Theme         *styles.Theme
	Provider      string
	Model         string
	ShowSidebar   bool
	ToastDuration time.Duration

	// Clipboard overrides clipboard.WriteAll.
	Clipboard func(string) error

	// Context bounds every request. Defaults to context.Background.
	Context context.Context
}

// Model is the chat screen.
type Model struct {
	ctrl      *conversation.Controller
	uploader  *media.Uploader
	capture   *media.Capture
	notices   notify.Channel
	changes   <-chan struct{}
	clipboard func(string) error
	ctx       context.Context

	theme       *styles.Theme
	keys        KeyMap
	help        help.Model
	header      *components.Header
	sidebar     *components.Sidebar
	messages    *components.MessageList
	attachments *components.Attachments
	toasts      *components.ToastManager
	welcome     components.Welcome

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	focus       focus
	showSidebar bool
	showHelp    bool
	pending     []model.MediaContent
	capturing   components.CaptureState

	width  int
	height int

	renderKey        string
	lastSessionID    string
	follow           bool
	scrollToSelected bool
	quitting         bool
}

// New creates the chat screen.
func New(deps Deps) Model {
	theme := deps.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	clip := deps.Clipboard
	if clip == nil {
		clip = clipboard.WriteAll
	}
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or /help for commands..."
	ti.CharLimit = 16000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	md := components.NewMarkdownRenderer()
	header := components.NewHeader(theme)
	header.SetProvider(deps.Provider, deps.Model)

	m := Model{
		ctrl:        deps.Controller,
		uploader:    deps.Uploader,
		capture:     deps.Capture,
		notices:     deps.Notices,
		changes:     deps.Changes,
		clipboard:   clip,
		ctx:         ctx,
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		header:      header,
		sidebar:     components.NewSidebar(theme),
		messages:    components.NewMessageList(theme, md),
		attachments: components.NewAttachments(theme),
		toasts:      components.NewToastManager(deps.ToastDuration),
		welcome:     components.NewWelcome(theme),
		viewport:    viewport.New(80, 20),
		input:       ti,
		spinner:     sp,
		showSidebar: deps.ShowSidebar,
		width:       80,
		height:      24,
		follow:      true,
	}
	m.refresh()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the notice, store-change and toast loops.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForNotice(m.notices),
		waitForChange(m.changes),
		components.ToastTickCmd(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderKey = ""

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case replyMsg:
		if msg.Err == nil {
			m.follow = true
		}

	case noticeMsg:
		m.toasts.Add(msg.Notice)
		cmds = append(cmds, waitForNotice(m.notices))

	case storeChangedMsg:
		m.renderKey = ""
		cmds = append(cmds, waitForChange(m.changes))

	case uploadDoneMsg:
		if msg.Err == nil && msg.Media != nil {
			m.pending = append(m.pending, *msg.Media)
		}

	case recordingStartedMsg:
		switch {
		case errors.Is(msg.Err, media.ErrCaptureCancelled):
			// Stopped while opening; the state was already reset.
			log.Debug("recording cancelled while opening", "kind", msg.Kind)
		case msg.Err != nil:
			log.Debug("recording did not start", "kind", msg.Kind, "err", msg.Err)
			m.capturing = components.CaptureIdle
		case m.capturing == components.CaptureIdle && m.capture != nil:
			log.Debug("recording started after it was stopped, releasing", "kind", msg.Kind)
			m.capture.StopCapture()
		}

	case recordingStoppedMsg:
		m.capturing = components.CaptureIdle
		if msg.Err == nil && msg.Media != nil {
			m.pending = append(m.pending, *msg.Media)
			m.notify(notify.KindSuccess, "Recording attached", msg.Media.Name)
		}

	case exportDoneMsg:
		// The controller reports the outcome.

	case components.ToastTickMsg:
		m.toasts.Tick()
		cmds = append(cmds, components.ToastTickCmd())

	case spinner.TickMsg:
		if m.ctrl.Loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.ctrl.Cancel()
		if m.capture != nil {
			m.capture.StopCapture()
		}
		m.quitting = true
		return m, tea.Quit
	}

	// Any key closes the help overlay.
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m.handleEscape(), nil

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.NewChat()
		m.setFocus(focusInput)
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar && m.focus == focusSidebar {
			m.setFocus(focusInput)
		}
		m.renderKey = ""
		return m, nil

	case key.Matches(msg, m.keys.CycleFocus):
		m.cycleFocus()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, exportCmd(m.ctrl, "")

	case key.Matches(msg, m.keys.Clear):
		m.ctrl.ClearSession()
		return m, nil

	case key.Matches(msg, m.keys.ToggleTheme):
		m.theme.Toggle()
		m.renderKey = ""
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	switch m.focus {
	case focusMessages:
		return m.handleMessageKey(msg)
	case focusSidebar:
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Send) {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input, or runs it when it is a slash command.
func (m Model) submit() (Model, tea.Cmd) {
	value := m.input.Value()
	if isCommand(value) {
		m.input.Reset()
		return m.runCommand(value)
	}

	turn, err := m.ctrl.Submit(value, m.pending)
	if err != nil {
		// Busy is reported by the controller; an empty send does nothing.
		if !errors.Is(err, conversation.ErrEmptyInput) && !errors.Is(err, conversation.ErrBusy) {
			log.Warn("submit failed", "err", err)
		}
		return m, nil
	}

	m.input.Reset()
	m.pending = nil
	m.follow = true
	return m, tea.Batch(resolveCmd(m.ctx, turn), m.spinner.Tick)
}

func (m Model) handleMessageKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.messages.Selected > 0 {
			m.messages.Selected--
		}
		m.scrollToSelected = true

	case key.Matches(msg, m.keys.Down):
		if m.messages.Selected < len(m.messages.Messages)-1 {
			m.messages.Selected++
		}
		m.scrollToSelected = true

	case key.Matches(msg, m.keys.Copy):
		m.copySelected()

	case key.Matches(msg, m.keys.Regenerate):
		return m.regenerateSelected()

	case key.Matches(msg, m.keys.Delete):
		if sel := m.selectedMessage(); sel != nil {
			m.ctrl.Delete(sel.ID)
		}

	case key.Matches(msg, m.keys.Open):
		m.setFocus(focusInput)

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	}
	return m, nil
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()

	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()

	case key.Matches(msg, m.keys.Open):
		if sess, ok := m.sidebar.SelectedSession(); ok {
			m.ctrl.SelectSession(sess.ID)
			m.setFocus(focusInput)
		}

	case key.Matches(msg, m.keys.Delete):
		if sess, ok := m.sidebar.SelectedSession(); ok {
			m.ctrl.DeleteSession(sess.ID)
		}

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	}
	return m, nil
}

// handleEscape cancels the most pressing thing: a request, a recording, the
// error banner, then message or sidebar focus.
func (m Model) handleEscape() Model {
	switch {
	case m.ctrl.Loading():
		m.ctrl.Cancel()
	case m.capturing != components.CaptureIdle:
		if m.capture != nil {
			m.capture.StopCapture()
		}
		m.capturing = components.CaptureIdle
		m.notify(notify.KindStatus, "Recording discarded", "")
	case m.ctrl.Err() != nil:
		m.ctrl.ClearError()
	case m.focus != focusInput:
		m.setFocus(focusInput)
	default:
		m.toasts.DismissAll()
	}
	return m
}

// =============================================================================
// FOCUS
// =============================================================================

func (m *Model) setFocus(f focus) {
	m.focus = f
	switch f {
	case focusInput:
		m.input.Focus()
		m.messages.Selected = -1
	case focusMessages:
		m.input.Blur()
		if m.messages.Selected < 0 {
			m.messages.Selected = len(m.messages.Messages) - 1
		}
		m.scrollToSelected = true
	default:
		m.input.Blur()
		m.messages.Selected = -1
	}
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case focusInput:
		if len(m.messages.Messages) > 0 {
			m.setFocus(focusMessages)
		} else if m.sidebarVisible() {
			m.setFocus(focusSidebar)
		}
	case focusMessages:
		if m.sidebarVisible() {
			m.setFocus(focusSidebar)
		} else {
			m.setFocus(focusInput)
		}
	default:
		m.setFocus(focusInput)
	}
}

func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width >= 60
}

// =============================================================================
// MESSAGE ACTIONS
// =============================================================================

func (m Model) selectedMessage() *model.Message {
	i := m.messages.Selected
	if i < 0 || i >= len(m.messages.Messages) {
		return nil
	}
	return m.messages.Messages[i]
}

func (m *Model) copySelected() {
	sel := m.selectedMessage()
	if sel == nil {
		return
	}
	if err := m.clipboard(sel.Content); err != nil {
		log.Warn("clipboard write failed", "err", err)
		m.notify(notify.KindError, "Copy failed", "Failed to copy message to clipboard")
		return
	}
	m.notify(notify.KindSuccess, "Copied to clipboard", "Message copied successfully")
}

func (m Model) regenerateSelected() (Model, tea.Cmd) {
	sel := m.selectedMessage()
	if sel == nil {
		return m, nil
	}
	turn, err := m.ctrl.PrepareRegenerate(sel.ID)
	switch {
	case errors.Is(err, conversation.ErrCannotRegenerate):
		m.notify(notify.KindWarning, "Cannot regenerate", "Only replies to your messages can be regenerated")
		return m, nil
	case err != nil:
		return m, nil
	}
	m.follow = true
	return m, tea.Batch(resolveCmd(m.ctx, turn), m.spinner.Tick)
}

func (m *Model) notify(kind notify.Kind, title, detail string) {
	m.toasts.Add(notify.Notice{Kind: kind, Title: title, Detail: detail, At: time.Now()})
}

// =============================================================================
// STATE PROJECTION
// =============================================================================

// refresh rebuilds the components from controller state. The message list
// is re-rendered only when its inputs changed.
func (m *Model) refresh() {
	var (
		msgs      []*model.Message
		currentID string
		updated   time.Time
	)
	if current, ok := m.ctrl.CurrentSession(); ok {
		msgs = current.Messages
		currentID = current.ID
		updated = current.UpdatedAt
	}
	if currentID != m.lastSessionID {
		m.lastSessionID = currentID
		m.follow = true
		if m.focus == focusMessages {
			m.messages.Selected = -1
			m.setFocus(focusInput)
		}
	}

	m.header.SetMessageCount(len(msgs))
	m.sidebar.Focused = m.focus == focusSidebar
	m.sidebar.SetSessions(m.ctrl.Sessions(), currentID)
	m.attachments.Pending = m.pending
	m.attachments.Capture = m.capturing
	m.messages.SetMessages(msgs)
	if m.focus == focusMessages && len(msgs) == 0 {
		m.setFocus(focusInput)
	}

	m.layout()

	renderKey := fmt.Sprintf("%s|%d|%d|%d|%d|%s",
		currentID, len(msgs), updated.UnixNano(), m.messages.Selected, m.viewport.Width, m.theme.Name())
	if renderKey != m.renderKey {
		atBottom := m.viewport.AtBottom()
		m.messages.SetWidth(m.viewport.Width)
		m.viewport.SetContent(m.messages.View())
		if m.follow || atBottom {
			m.viewport.GotoBottom()
		}
		m.renderKey = renderKey
	}
	m.follow = false

	if m.scrollToSelected {
		m.scrollToSelected = false
		m.ensureSelectedVisible()
	}
}

func (m *Model) ensureSelectedVisible() {
	offsets := m.messages.Offsets()
	i := m.messages.Selected
	if i < 0 || i >= len(offsets) {
		return
	}
	top := offsets[i]
	if top < m.viewport.YOffset || top >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(top)
	}
}
