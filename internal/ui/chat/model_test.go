// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatbot-tui/internal/conversation"
	"github.com/jeranaias/chatbot-tui/internal/media"
	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/session"
	"github.com/jeranaias/chatbot-tui/internal/storage"
	"github.com/jeranaias/chatbot-tui/internal/ui/components"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// =============================================================================
// FIXTURE
// =============================================================================

type stubSender struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSender) Send(_ context.Context, content string, _ []model.MediaContent, _ []*model.Message) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return model.NewAssistantMessage("reply to " + content), nil
}

type harness struct {
	m         Model
	ctrl      *conversation.Controller
	sender    *stubSender
	notices   *notify.Recorder
	copied    []string
	copyErr   error
	downloads string
}

func newHarness(t *testing.T, sidebar bool) *harness {
	t.Helper()
	store := session.New(storage.NewMemoryBackend())
	require.NoError(t, store.Load())

	h := &harness{
		sender:    &stubSender{},
		notices:   &notify.Recorder{},
		downloads: filepath.Join(t.TempDir(), "Downloads"),
	}
	h.ctrl = conversation.New(store, h.sender,
		conversation.WithNotifier(h.notices),
		conversation.WithDownloadsDir(h.downloads),
	)
	h.m = New(Deps{
		Controller:  h.ctrl,
		Uploader:    media.NewUploader(media.DefaultConstraints(), h.notices),
		Theme:       styles.NewTheme("dark"),
		Provider:    "Groq",
		ShowSidebar: sidebar,
		Clipboard: func(s string) error {
			if h.copyErr != nil {
				return h.copyErr
			}
			h.copied = append(h.copied, s)
			return nil
		},
	})
	return h
}

// send feeds msg to the model and runs any resulting commands to completion,
// feeding their messages back in. Tick and blink commands are skipped.
func (h *harness) send(msg tea.Msg) {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	for _, out := range collect(cmd) {
		next, _ := h.m.Update(out)
		h.m = next.(Model)
	}
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case replyMsg, uploadDoneMsg, exportDoneMsg, recordingStartedMsg, recordingStoppedMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

// typeText edits the input without running the cursor blink command.
func (h *harness) typeText(s string) {
	next, _ := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	h.m = next.(Model)
}

func (h *harness) press(k tea.KeyType) {
	h.send(tea.KeyMsg{Type: k})
}

func (h *harness) pressRune(r rune) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func (h *harness) submit(s string) {
	h.typeText(s)
	h.press(tea.KeyEnter)
}

func (h *harness) messages(t *testing.T) []*model.Message {
	t.Helper()
	current, ok := h.ctrl.CurrentSession()
	require.True(t, ok)
	return current.Messages
}

func (h *harness) toastTitles() []string {
	var titles []string
	for _, toast := range h.m.toasts.Toasts() {
		titles = append(titles, toast.Notice.Title)
	}
	return titles
}

// =============================================================================
// SEND
// =============================================================================

func TestModel_EmptyStateShowsWelcome(t *testing.T) {
	h := newHarness(t, false)
	view := h.m.View()
	assert.Contains(t, view, "How can I help you today?")
	assert.Contains(t, view, "Powered by Groq")
}

func TestModel_SubmitSendsAndRendersReply(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")

	msgs := h.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "reply to hello", msgs[1].Content)
	assert.Empty(t, h.m.input.Value())
	assert.False(t, h.ctrl.Loading())
	assert.Contains(t, h.m.View(), "2 messages")
}

func TestModel_EmptySubmitIsIgnored(t *testing.T) {
	h := newHarness(t, false)
	h.typeText("   ")
	h.press(tea.KeyEnter)

	_, ok := h.ctrl.CurrentSession()
	assert.False(t, ok)
	assert.Equal(t, 0, h.sender.calls)
}

func TestModel_ErrorBannerAndEscape(t *testing.T) {
	h := newHarness(t, false)
	h.sender.err = errors.New("boom")
	h.submit("hi")

	require.Error(t, h.ctrl.Err())
	assert.Contains(t, h.m.View(), "Error: boom")

	h.press(tea.KeyEsc)
	assert.NoError(t, h.ctrl.Err())
	assert.NotContains(t, h.m.View(), "Error: boom")
}

// =============================================================================
// MESSAGE ACTIONS
// =============================================================================

func TestModel_CopySelectedMessage(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")

	h.press(tea.KeyTab)
	assert.Equal(t, focusMessages, h.m.focus)
	assert.Equal(t, 1, h.m.messages.Selected)

	h.pressRune('c')
	assert.Equal(t, []string{"reply to hello"}, h.copied)
	assert.Contains(t, h.toastTitles(), "Copied to clipboard")
}

func TestModel_CopyFailure(t *testing.T) {
	h := newHarness(t, false)
	h.copyErr = errors.New("no clipboard")
	h.submit("hello")

	h.press(tea.KeyTab)
	h.pressRune('c')
	assert.Contains(t, h.toastTitles(), "Copy failed")
}

func TestModel_RegenerateReply(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")
	firstReply := h.messages(t)[1].ID

	h.press(tea.KeyTab)
	h.pressRune('r')

	msgs := h.messages(t)
	require.Len(t, msgs, 2)
	assert.NotEqual(t, firstReply, msgs[1].ID)
	assert.Equal(t, 2, h.sender.calls)
}

func TestModel_RegenerateUserMessageWarns(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")

	h.press(tea.KeyTab)
	h.press(tea.KeyUp)
	assert.Equal(t, 0, h.m.messages.Selected)

	h.pressRune('r')
	assert.Contains(t, h.toastTitles(), "Cannot regenerate")
	assert.Equal(t, 1, h.sender.calls)
}

func TestModel_DeleteSelectedMessage(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")

	h.press(tea.KeyTab)
	h.pressRune('d')

	msgs := h.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
}

func TestModel_EscapeLeavesMessageFocus(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")
	h.press(tea.KeyTab)
	h.press(tea.KeyEsc)
	assert.Equal(t, focusInput, h.m.focus)
	assert.Equal(t, -1, h.m.messages.Selected)
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestModel_NewChatAndClear(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")
	first, _ := h.ctrl.CurrentSession()

	h.press(tea.KeyCtrlN)
	current, ok := h.ctrl.CurrentSession()
	require.True(t, ok)
	assert.NotEqual(t, first.ID, current.ID)
	assert.Len(t, h.ctrl.Sessions(), 2)

	h.press(tea.KeyCtrlL)
	assert.Len(t, h.ctrl.Sessions(), 1)
}

func TestModel_SidebarSelectsSession(t *testing.T) {
	h := newHarness(t, true)
	older := h.ctrl.NewChat()
	h.ctrl.NewChat()
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})

	h.press(tea.KeyTab)
	require.Equal(t, focusSidebar, h.m.focus)

	h.press(tea.KeyDown)
	h.press(tea.KeyEnter)

	current, ok := h.ctrl.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, older, current.ID)
	assert.Equal(t, focusInput, h.m.focus)
}

func TestModel_SidebarToggle(t *testing.T) {
	h := newHarness(t, true)
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Contains(t, h.m.View(), "No chat sessions yet")

	h.press(tea.KeyCtrlB)
	assert.NotContains(t, h.m.View(), "No chat sessions yet")
}

func TestModel_ThemeToggle(t *testing.T) {
	h := newHarness(t, false)
	require.True(t, h.m.theme.IsDark)
	h.press(tea.KeyCtrlT)
	assert.False(t, h.m.theme.IsDark)
	assert.Contains(t, h.m.View(), "light")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs string
	}{
		{"/help", "help", ""},
		{"  /Export md ", "export", "md"},
		{"/attach ~/My Pictures/cat.png", "attach", "~/My Pictures/cat.png"},
		{"/", "", ""},
	}
	for _, tt := range tests {
		name, args := parseCommand(tt.input)
		assert.Equal(t, tt.wantName, name, tt.input)
		assert.Equal(t, tt.wantArgs, args, tt.input)
	}
}

func TestModel_UnknownCommand(t *testing.T) {
	h := newHarness(t, false)
	h.submit("/frobnicate")
	assert.Contains(t, h.toastTitles(), "Unknown command")
	assert.Empty(t, h.m.input.Value())
	assert.Equal(t, 0, h.sender.calls)
}

func TestModel_HelpOverlay(t *testing.T) {
	h := newHarness(t, false)
	h.submit("/help")
	assert.True(t, h.m.showHelp)
	assert.Contains(t, h.m.View(), "/attach")

	h.pressRune('x')
	assert.False(t, h.m.showHelp)
}

func TestModel_AttachThenSend(t *testing.T) {
	h := newHarness(t, false)

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	h.submit("/attach " + path)
	require.Len(t, h.m.pending, 1)
	assert.Contains(t, h.m.View(), "cat.png")

	h.submit("look")
	msgs := h.messages(t)
	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].Media, 1)
	assert.Equal(t, "cat.png", msgs[0].Media[0].Name)
	assert.Empty(t, h.m.pending)
}

func TestModel_AttachMissingFile(t *testing.T) {
	h := newHarness(t, false)
	h.submit("/attach " + filepath.Join(t.TempDir(), "missing.png"))
	assert.Empty(t, h.m.pending)
	assert.Contains(t, h.notices.Titles(), "Upload failed")
}

func TestModel_DiscardPending(t *testing.T) {
	h := newHarness(t, false)
	h.m.pending = []model.MediaContent{{Type: model.MediaImage, Name: "a.png"}}
	h.submit("/discard")
	assert.Empty(t, h.m.pending)
}

func TestModel_CaptureWithoutDevice(t *testing.T) {
	h := newHarness(t, false)
	h.submit("/camera")
	assert.Contains(t, h.toastTitles(), "Capture unavailable")

	h.submit("/stop")
	assert.Contains(t, h.toastTitles(), "Not recording")
}

// pipeStream is a capture stream fed through a pipe.
type pipeStream struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	closes atomic.Int32
}

func newPipeStream() *pipeStream {
	r, w := io.Pipe()
	return &pipeStream{r: r, w: w}
}

func (s *pipeStream) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *pipeStream) MimeType() string           { return "video/webm" }
func (s *pipeStream) Stop() error                { return s.w.Close() }
func (s *pipeStream) Close() error {
	s.closes.Add(1)
	s.w.Close()
	return s.r.Close()
}

// slowCamera holds OpenCamera until release is closed.
type slowCamera struct {
	stream  *pipeStream
	opening chan struct{}
	release chan struct{}
}

func (d *slowCamera) OpenCamera(context.Context) (media.Stream, error) {
	close(d.opening)
	<-d.release
	return d.stream, nil
}

func (d *slowCamera) OpenMicrophone(ctx context.Context) (media.Stream, error) {
	return d.OpenCamera(ctx)
}

func TestModel_EscapeWhileCameraOpensReleasesDevice(t *testing.T) {
	h := newHarness(t, false)
	stream := newPipeStream()
	dev := &slowCamera{stream: stream, opening: make(chan struct{}), release: make(chan struct{})}
	capture := media.NewCapture(dev, t.TempDir(), h.notices)
	h.m.capture = capture

	h.typeText("/camera")
	next, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	h.m = next.(Model)
	require.NotNil(t, cmd)

	results := make(chan []tea.Msg, 1)
	go func() { results <- collect(cmd) }()

	<-dev.opening
	h.press(tea.KeyEsc)
	close(dev.release)
	for _, msg := range <-results {
		next, _ := h.m.Update(msg)
		h.m = next.(Model)
	}

	assert.False(t, capture.IsCapturing())
	assert.False(t, capture.HasStream())
	assert.Equal(t, int32(1), stream.closes.Load())
	assert.Equal(t, components.CaptureIdle, h.m.capturing)
}

func TestModel_LateRecordingStartIsReleased(t *testing.T) {
	h := newHarness(t, false)
	stream := newPipeStream()
	dev := &slowCamera{stream: stream, opening: make(chan struct{}), release: make(chan struct{})}
	close(dev.release)
	capture := media.NewCapture(dev, t.TempDir(), h.notices)
	h.m.capture = capture

	opened, err := capture.StartCamera(context.Background())
	require.NoError(t, err)
	require.NoError(t, capture.StartRecording(opened, model.MediaVideo))

	h.send(recordingStartedMsg{Kind: model.MediaVideo})
	assert.False(t, capture.IsCapturing())
	assert.False(t, capture.HasStream())
	assert.GreaterOrEqual(t, stream.closes.Load(), int32(1))
}

func TestModel_ExportCommand(t *testing.T) {
	h := newHarness(t, false)
	h.submit("hello")
	h.submit("/export md")

	entries, err := os.ReadDir(h.downloads)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".md"))
	assert.Contains(t, h.notices.Titles(), "Chat exported")
}

func TestModel_ExportEmptyChat(t *testing.T) {
	h := newHarness(t, false)
	h.press(tea.KeyCtrlE)
	assert.Contains(t, h.notices.Titles(), "No messages to export")
}

// =============================================================================
// NOTICES
// =============================================================================

func TestModel_NoticeBecomesToast(t *testing.T) {
	h := newHarness(t, false)
	h.send(noticeMsg{Notice: notify.Notice{Kind: notify.KindSuccess, Title: "Chat cleared"}})
	assert.Equal(t, []string{"Chat cleared"}, h.toastTitles())
	assert.Contains(t, h.m.View(), "Chat cleared")
}

func TestModel_QuitClearsScreen(t *testing.T) {
	h := newHarness(t, false)
	next, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	m := next.(Model)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}
