// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatbot-tui/internal/conversation"
	"github.com/jeranaias/chatbot-tui/internal/media"
	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
)

// =============================================================================
// ASYNC RESULT MESSAGES
// =============================================================================

// replyMsg carries the outcome of a resolved turn.
type replyMsg struct {
	Reply *model.Message
	Err   error
}

// noticeMsg is a notice read from the notifier channel.
type noticeMsg struct {
	Notice notify.Notice
}

// storeChangedMsg reports that the sessions file changed on disk.
type storeChangedMsg struct{}

// uploadDoneMsg carries an /attach result.
type uploadDoneMsg struct {
	Media *model.MediaContent
	Err   error
}

// recordingStartedMsg reports that a capture device opened (or failed to).
type recordingStartedMsg struct {
	Kind model.MediaKind
	Err  error
}

// recordingStoppedMsg carries a finished recording.
type recordingStoppedMsg struct {
	Media *model.MediaContent
	Err   error
}

// exportDoneMsg carries an export result.
type exportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// COMMANDS
// =============================================================================

func resolveCmd(ctx context.Context, turn *conversation.Turn) tea.Cmd {
	return func() tea.Msg {
		reply, err := turn.Resolve(ctx)
		return replyMsg{Reply: reply, Err: err}
	}
}

// waitForNotice blocks until the next notice. A closed channel ends the loop.
func waitForNotice(ch notify.Channel) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{Notice: n}
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

func uploadCmd(u *media.Uploader, path string) tea.Cmd {
	return func() tea.Msg {
		m, err := u.UploadPath(path)
		return uploadDoneMsg{Media: m, Err: err}
	}
}

func startRecordingCmd(ctx context.Context, c *media.Capture, kind model.MediaKind) tea.Cmd {
	return func() tea.Msg {
		open := c.StartMicrophone
		if kind == model.MediaVideo {
			open = c.StartCamera
		}
		stream, err := open(ctx)
		if err != nil {
			return recordingStartedMsg{Kind: kind, Err: err}
		}
		if err := c.StartRecording(stream, kind); err != nil {
			if !errors.Is(err, media.ErrCaptureCancelled) {
				c.StopCapture()
			}
			return recordingStartedMsg{Kind: kind, Err: err}
		}
		return recordingStartedMsg{Kind: kind}
	}
}

func stopRecordingCmd(c *media.Capture) tea.Cmd {
	return func() tea.Msg {
		m, err := c.StopRecording()
		return recordingStoppedMsg{Media: m, Err: err}
	}
}

func exportCmd(ctrl *conversation.Controller, format string) tea.Cmd {
	return func() tea.Msg {
		path, err := ctrl.Export(format)
		return exportDoneMsg{Path: path, Err: err}
	}
}
