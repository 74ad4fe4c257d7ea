// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
	"github.com/jeranaias/chatbot-tui/internal/util"
)

// CaptureState is what the capture device is doing.
type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CaptureRecordingVideo
	CaptureRecordingAudio
)

// Attachments shows pending media above the input and the recording
// indicator.
type Attachments struct {
	Pending []model.MediaContent
	Capture CaptureState
	Width   int
	theme   *styles.Theme
}

// NewAttachments creates an empty attachment bar.
func NewAttachments(theme *styles.Theme) *Attachments {
	return &Attachments{theme: theme}
}

// Empty reports whether there is nothing to show.
func (a *Attachments) Empty() bool {
	return len(a.Pending) == 0 && a.Capture == CaptureIdle
}

// View renders one line: recording status, then one chip per pending file.
func (a *Attachments) View() string {
	if a.Empty() {
		return ""
	}
	t := a.theme

	var parts []string
	switch a.Capture {
	case CaptureRecordingVideo:
		parts = append(parts, t.Recording.Render(styles.StatusIndicators.Record+" Recording video")+" "+t.KeyDesc.Render("/stop to attach, esc to discard"))
	case CaptureRecordingAudio:
		parts = append(parts, t.Recording.Render(styles.StatusIndicators.Record+" Recording audio")+" "+t.KeyDesc.Render("/stop to attach, esc to discard"))
	}

	for i, m := range a.Pending {
		label := fmt.Sprintf("%d. %s", i+1, DescribeMedia(m))
		if a.Width > 0 {
			label = util.TruncateWidth(label, max(a.Width/2, 16))
		}
		parts = append(parts, t.Attachment.Render(label))
	}
	if len(a.Pending) > 0 {
		parts = append(parts, t.KeyDesc.Render("/discard to clear"))
	}
	return strings.Join(parts, " ")
}
