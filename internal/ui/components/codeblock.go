// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock is a fenced code block from a message.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int

	// Style is the chroma style name ("monokai", "github", ...).
	Style string
}

// NewCodeBlock creates a code block with the default width and style.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
		Style:    "monokai",
	}
}

// Render highlights the code and frames it with line numbers.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n")
	lines := strings.Split(highlightCode(code, c.Language, c.Style), "\n")

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = lineNumStyle.Render(strconv.Itoa(i+1)) + line
	}

	var header string
	if c.Language != "" {
		header = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.SurfaceBright).
			Padding(0, 1).
			Bold(true).
			Render(c.Language) + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(header + strings.Join(rendered, "\n"))
}

// =============================================================================
// FENCE PARSER
// =============================================================================

// Segment is a run of message text: prose or a fenced code block.
type Segment struct {
	Code     bool
	Language string
	Text     string
}

// SplitFences splits text on ``` fences. An unclosed fence runs to the end
// of the text.
func SplitFences(text string) []Segment {
	var (
		segments []Segment
		buf      []string
		inCode   bool
		language string
	)

	flush := func() {
		if len(buf) == 0 && !inCode {
			return
		}
		segments = append(segments, Segment{Code: inCode, Language: language, Text: strings.Join(buf, "\n")})
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			flush()
			if inCode {
				inCode, language = false, ""
			} else {
				inCode, language = true, strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return segments
}

// RenderCodeFences renders prose through the given function and replaces
// fenced blocks with highlighted code blocks.
func RenderCodeFences(text string, width int, chromaStyle string, prose func(string) string) string {
	segments := SplitFences(text)
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Code {
			cb := NewCodeBlock(seg.Language, seg.Text)
			cb.MaxWidth = width
			cb.Style = chromaStyle
			parts = append(parts, cb.Render())
			continue
		}
		parts = append(parts, prose(seg.Text))
	}
	return strings.Join(parts, "\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode highlights code for a 256-color terminal. The input is
// returned unchanged when highlighting fails.
func highlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
