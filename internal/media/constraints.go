// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/chatbot-tui/internal/model"
)

// DefaultMaxFileSize is the upload limit (10 MiB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Constraints limits what can be attached.
type Constraints struct {
	MaxFileSize int64
	ImageTypes  []string
	AudioTypes  []string
	VideoTypes  []string
}

// DefaultConstraints returns the stock limits.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxFileSize: DefaultMaxFileSize,
		ImageTypes:  []string{"image/jpeg", "image/png", "image/webp"},
		AudioTypes:  []string{"audio/mp3", "audio/wav", "audio/mpeg"},
		VideoTypes:  []string{"video/mp4", "video/webm"},
	}
}

// KindOf maps a MIME type to its media kind. The second result is false for
// unsupported types.
func (c Constraints) KindOf(mimeType string) (model.MediaKind, bool) {
	mimeType = normalizeMime(mimeType)
	switch {
	case slices.Contains(c.ImageTypes, mimeType):
		return model.MediaImage, true
	case slices.Contains(c.AudioTypes, mimeType):
		return model.MediaAudio, true
	case slices.Contains(c.VideoTypes, mimeType):
		return model.MediaVideo, true
	default:
		return "", false
	}
}

// Supported lists every accepted MIME type.
func (c Constraints) Supported() []string {
	out := make([]string, 0, len(c.ImageTypes)+len(c.AudioTypes)+len(c.VideoTypes))
	out = append(out, c.ImageTypes...)
	out = append(out, c.AudioTypes...)
	return append(out, c.VideoTypes...)
}

// MaxSizeLabel renders the size limit for messages ("10 MiB").
func (c Constraints) MaxSizeLabel() string {
	return FormatSize(c.MaxFileSize)
}

// FormatSize renders a byte count for display.
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// normalizeMime lowercases and strips parameters ("; codecs=...").
func normalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
