// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// MediaKind is the broad category of an attachment.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Valid reports whether k is a known kind.
func (k MediaKind) Valid() bool {
	return k == MediaImage || k == MediaAudio || k == MediaVideo
}

// MediaContent describes an uploaded or captured asset. URL is either a
// remote/file reference or an embedded data URI.
type MediaContent struct {
	Type     MediaKind `json:"type"`
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mimeType"`

	// Pixel dimensions, images only.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// IsDataURI reports whether the content is embedded in URL.
func (m MediaContent) IsDataURI() bool {
	return strings.HasPrefix(m.URL, "data:")
}

// Label returns "<type> - <name>", the form used in request annotations.
func (m MediaContent) Label() string {
	return fmt.Sprintf("%s - %s", m.Type, m.Name)
}

// Annotate appends the bracketed attachment summary that stands in for media
// when a message is sent to a text-only completion endpoint.
func Annotate(content string, media []MediaContent) string {
	if len(media) == 0 {
		return content
	}
	labels := make([]string, len(media))
	for i, m := range media {
		labels[i] = m.Label()
	}
	return fmt.Sprintf("%s\n\n[User has attached %d media file(s): %s]",
		content, len(media), strings.Join(labels, ", "))
}
