// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/chatbot-tui/internal/model"
)

var (
	codeFenceRegex  = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter writes a standalone page. Code fences are highlighted with
// inline styles and attachments are embedded from their URLs.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a session to HTML.
func (e *HTMLExporter) Export(session *model.ChatSession) ([]byte, error) {
	if session == nil || session.IsEmpty() {
		return nil, ErrEmptySession
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(session.Title))
	sb.WriteString("<meta name=\"generator\" content=\"chatbot-tui\">\n")
	fmt.Fprintf(&sb, "<meta name=\"date\" content=\"%s\">\n", session.CreatedAt.Format(time.RFC3339))
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		sb.WriteString("<header>\n")
		fmt.Fprintf(&sb, "<h1>%s</h1>\n", html.EscapeString(session.Title))
		fmt.Fprintf(&sb, "<p class=\"meta\">Created %s &middot; %d messages</p>\n",
			formatTimestamp(session.CreatedAt), session.MessageCount())
		sb.WriteString("</header>\n")
	}

	sb.WriteString("<main>\n")
	for _, msg := range session.Messages {
		sb.WriteString(e.renderMessage(msg, theme))
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer>Exported from <strong>chatbot-tui</strong> on %s</footer>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderMessage(msg *model.Message, theme string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<div class=\"message %s\">\n", msg.Role)
	fmt.Fprintf(&sb, "<div class=\"header\"><span class=\"role\">%s</span>", msg.Role.DisplayName())
	if e.options.IncludeTimestamps {
		fmt.Fprintf(&sb, "<span class=\"time\">%s</span>", html.EscapeString(LocaleTimestamp(msg.Timestamp)))
	}
	sb.WriteString("</div>\n")

	if msg.HasMedia() {
		sb.WriteString("<div class=\"media\">\n")
		for _, m := range msg.Media {
			sb.WriteString(renderMedia(m))
		}
		sb.WriteString("</div>\n")
	}

	if strings.TrimSpace(msg.Content) != "" {
		sb.WriteString("<div class=\"content\">\n")
		sb.WriteString(formatContent(msg.Content, theme))
		sb.WriteString("</div>\n")
	}
	sb.WriteString("</div>\n")
	return sb.String()
}

func renderMedia(m model.MediaContent) string {
	src := html.EscapeString(m.URL)
	name := html.EscapeString(m.Name)
	switch m.Type {
	case model.MediaImage:
		return fmt.Sprintf("<figure><img src=\"%s\" alt=\"%s\"><figcaption>%s</figcaption></figure>\n", src, name, name)
	case model.MediaAudio:
		return fmt.Sprintf("<figure><audio controls src=\"%s\"></audio><figcaption>%s</figcaption></figure>\n", src, name)
	case model.MediaVideo:
		return fmt.Sprintf("<figure><video controls src=\"%s\"></video><figcaption>%s</figcaption></figure>\n", src, name)
	default:
		return fmt.Sprintf("<p class=\"attachment\">%s</p>\n", name)
	}
}

// formatContent renders fenced code through chroma and the rest as escaped
// paragraphs.
func formatContent(content, theme string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range codeFenceRegex.FindAllStringSubmatchIndex(content, -1) {
		sb.WriteString(formatProse(content[last:loc[0]]))
		lang := content[loc[2]:loc[3]]
		code := content[loc[4]:loc[5]]
		sb.WriteString(highlightCode(code, lang, theme))
		last = loc[1]
	}
	sb.WriteString(formatProse(content[last:]))
	return sb.String()
}

func formatProse(text string) string {
	var sb strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = inlineCodeRegex.ReplaceAllString(escaped, "<code>$1</code>")
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
		sb.WriteString("<p>")
		sb.WriteString(escaped)
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

func highlightCode(code, lang, theme string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := styles.Get(styleName)

	label := ""
	if lang != "" {
		label = fmt.Sprintf("<div class=\"lang\">%s</div>", html.EscapeString(lang))
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Sprintf("<div class=\"code\">%s<pre><code>%s</code></pre></div>\n", label, html.EscapeString(code))
	}

	var buf strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return fmt.Sprintf("<div class=\"code\">%s<pre><code>%s</code></pre></div>\n", label, html.EscapeString(code))
	}
	return fmt.Sprintf("<div class=\"code\">%s%s</div>\n", label, buf.String())
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `<style>
* { box-sizing: border-box; margin: 0; padding: 0; }
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
body.dark { background: #0f1117; color: #e4e6eb; }
body.light { background: #f7f7f8; color: #1f2328; }
.container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
header { margin-bottom: 2rem; }
header h1 { font-size: 1.6rem; }
.meta { opacity: 0.7; font-size: 0.9rem; }
.message { border-radius: 12px; padding: 1rem 1.25rem; margin-bottom: 1rem; }
body.dark .message.user { background: #1d4ed8; color: #fff; margin-left: 15%; }
body.dark .message.assistant { background: #1c1f26; margin-right: 15%; }
body.light .message.user { background: #2563eb; color: #fff; margin-left: 15%; }
body.light .message.assistant { background: #fff; border: 1px solid #e5e7eb; margin-right: 15%; }
.message .header { display: flex; justify-content: space-between; font-size: 0.8rem; opacity: 0.8; margin-bottom: 0.5rem; }
.role { font-weight: 600; }
.content p { margin-bottom: 0.75rem; }
.content p:last-child { margin-bottom: 0; }
code { font-family: "JetBrains Mono", Consolas, monospace; font-size: 0.9em; }
.code { margin: 0.75rem 0; border-radius: 8px; overflow: hidden; }
.code pre { padding: 0.75rem 1rem; overflow-x: auto; }
.lang { font-size: 0.75rem; padding: 0.25rem 1rem; background: rgba(127,127,127,0.2); }
.media figure { margin-bottom: 0.75rem; }
.media img, .media video { max-width: 100%; border-radius: 8px; }
.media audio { width: 100%; }
figcaption { font-size: 0.75rem; opacity: 0.8; }
footer { text-align: center; opacity: 0.6; font-size: 0.8rem; margin-top: 2rem; }
</style>
`
