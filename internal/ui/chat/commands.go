// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/ui/components"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashCommand describes a command for /help.
type slashCommand struct {
	Name string
	Args string
	Desc string
}

var slashCommands = []slashCommand{
	{"attach", "<path>", "Attach an image, audio or video file"},
	{"camera", "", "Record video from the camera"},
	{"mic", "", "Record audio from the microphone"},
	{"stop", "", "Stop recording and attach it"},
	{"discard", "", "Drop pending attachments and recordings"},
	{"export", "[text|md|json|html]", "Save the chat to the downloads folder"},
	{"clear", "", "Delete the current chat"},
	{"new", "", "Start a new chat"},
	{"help", "", "Show keys and commands"},
}

func isCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// parseCommand splits "/name args" into a lowercase name and trimmed args.
func parseCommand(input string) (name, args string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, args, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (m Model) runCommand(input string) (Model, tea.Cmd) {
	name, args := parseCommand(input)

	switch name {
	case "attach", "a":
		if args == "" {
			m.notify(notify.KindWarning, "Usage: /attach <path>", "Give the path of an image, audio or video file")
			return m, nil
		}
		if m.uploader == nil {
			m.notify(notify.KindWarning, "Uploads unavailable", "")
			return m, nil
		}
		return m, uploadCmd(m.uploader, expandPath(unquote(args)))

	case "camera", "video":
		return m.startRecording(model.MediaVideo)

	case "mic", "microphone", "audio":
		return m.startRecording(model.MediaAudio)

	case "stop":
		if m.capturing == components.CaptureIdle || m.capture == nil {
			m.notify(notify.KindWarning, "Not recording", "Use /camera or /mic to start")
			return m, nil
		}
		return m, stopRecordingCmd(m.capture)

	case "discard":
		if m.capturing != components.CaptureIdle && m.capture != nil {
			m.capture.StopCapture()
		}
		m.capturing = components.CaptureIdle
		if len(m.pending) > 0 {
			m.pending = nil
			m.notify(notify.KindStatus, "Attachments discarded", "")
		}
		return m, nil

	case "export":
		return m, exportCmd(m.ctrl, args)

	case "clear":
		m.ctrl.ClearSession()
		return m, nil

	case "new":
		m.ctrl.NewChat()
		return m, nil

	case "help", "?":
		m.showHelp = true
		return m, nil
	}

	m.notify(notify.KindWarning, "Unknown command", "/"+name+" is not a command. Type /help for a list")
	return m, nil
}

func (m Model) startRecording(kind model.MediaKind) (Model, tea.Cmd) {
	if m.capture == nil {
		m.notify(notify.KindWarning, "Capture unavailable", "No capture device is configured")
		return m, nil
	}
	if m.capturing != components.CaptureIdle {
		m.notify(notify.KindWarning, "Already recording", "Use /stop to finish the current recording")
		return m, nil
	}

	m.capturing = components.CaptureRecordingAudio
	if kind == model.MediaVideo {
		m.capturing = components.CaptureRecordingVideo
	}
	return m, startRecordingCmd(m.ctx, m.capture, kind)
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// expandPath resolves a leading ~ to the home directory.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
