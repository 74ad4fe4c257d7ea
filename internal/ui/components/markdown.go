// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
)

// MarkdownRenderer renders assistant replies with glamour. Renderers are
// built lazily per style and wrap width.
type MarkdownRenderer struct {
	mu        sync.Mutex
	renderers map[markdownKey]*glamour.TermRenderer
}

type markdownKey struct {
	style string
	width int
}

// NewMarkdownRenderer creates an empty renderer cache.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{renderers: make(map[markdownKey]*glamour.TermRenderer)}
}

// Render renders markdown for style ("dark" or "light") at the given wrap
// width. The raw text is returned when glamour fails.
func (m *MarkdownRenderer) Render(content, style string, width int) string {
	if width < 20 {
		width = 20
	}
	r, err := m.renderer(style, width)
	if err != nil {
		log.Debug("markdown renderer unavailable", "style", style, "err", err)
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		log.Debug("markdown render failed", "err", err)
		return content
	}
	return strings.Trim(out, "\n")
}

func (m *MarkdownRenderer) renderer(style string, width int) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := markdownKey{style: style, width: width}
	if r, ok := m.renderers[key]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	m.renderers[key] = r
	return r, nil
}
