// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatbot-tui/internal/model"
)

var (
	t0       = time.Date(2024, 3, 7, 9, 5, 1, 0, time.UTC)
	exported = time.Date(2024, 3, 8, 14, 30, 0, 0, time.UTC)
)

func testSession() *model.ChatSession {
	s := model.NewChatSession(t0)
	user := &model.Message{
		ID:        "u1",
		Role:      model.RoleUser,
		Content:   "What is in this picture?",
		Timestamp: t0,
		Media: []model.MediaContent{{
			Type: model.MediaImage, URL: "data:image/png;base64,AAAA", Name: "cat.png", Size: 2048, MimeType: "image/png",
		}},
	}
	reply := &model.Message{
		ID:        "a1",
		Role:      model.RoleAssistant,
		Content:   "A cat.\n\n```go\nfmt.Println(\"meow\")\n```",
		Timestamp: t0.Add(2 * time.Second),
	}
	s.Append(user, t0)
	s.Append(reply, t0.Add(2*time.Second))
	return s
}

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return exported }
	return opts
}

// =============================================================================
// TEXT
// =============================================================================

func TestTextExporter_Format(t *testing.T) {
	out, err := NewTextExporter().Export(testSession())
	require.NoError(t, err)

	want := "You (3/7/2024, 9:05:01 AM):\n" +
		"What is in this picture?\n" +
		"[Attachments: cat.png]\n" +
		"\n" +
		"ChatBot (3/7/2024, 9:05:03 AM):\n" +
		"A cat.\n\n```go\nfmt.Println(\"meow\")\n```\n"
	assert.Equal(t, want, string(out))
}

func TestTextExporter_NoAttachmentLine(t *testing.T) {
	s := model.NewChatSession(t0)
	s.Append(&model.Message{ID: "1", Role: model.RoleUser, Content: "hi", Timestamp: t0}, t0)

	out, err := NewTextExporter().Export(s)
	require.NoError(t, err)
	assert.Equal(t, "You (3/7/2024, 9:05:01 AM):\nhi\n", string(out))
}

func TestTextExporter_Empty(t *testing.T) {
	_, err := NewTextExporter().Export(model.NewChatSession(t0))
	assert.ErrorIs(t, err, ErrEmptySession)

	_, err = NewTextExporter().Export(nil)
	assert.ErrorIs(t, err, ErrEmptySession)
}

func TestLocaleTimestamp(t *testing.T) {
	assert.Equal(t, "12/31/2024, 11:59:59 PM", LocaleTimestamp(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, "1/1/2025, 12:00:00 AM", LocaleTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(testSession())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "title: What is in this picture?...\n")
	assert.Contains(t, md, "messages: 2\n")
	assert.Contains(t, md, "exported: 2024-03-08T14:30:00Z\n")
	assert.Contains(t, md, "# What is in this picture?...\n")
	assert.Contains(t, md, "### You <sub>9:05:01 AM</sub>")
	assert.Contains(t, md, "### ChatBot <sub>9:05:03 AM</sub>")
	assert.Contains(t, md, "- image: cat.png (2.0 KiB)")
	assert.Contains(t, md, "```go\nfmt.Println(\"meow\")\n```")
	assert.NotContains(t, md, "base64,AAAA")
	assert.Contains(t, md, "*Exported from chatbot-tui on March 8, 2024 at 2:30 PM*")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(testSession())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# "))
	assert.Contains(t, md, "### You\n")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"line\nbreak"`, escapeYAML("line\nbreak"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\# \*bold\* \_x\_ \[link\]`, escapeMarkdown("# *bold* _x_ [link]"))
}

// =============================================================================
// JSON
// =============================================================================

func TestJSONExporter_RoundTripsSession(t *testing.T) {
	s := testSession()
	out, err := NewJSONExporter(nil).Export(s)
	require.NoError(t, err)

	var got model.ChatSession
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Title, got.Title)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "data:image/png;base64,AAAA", got.Messages[0].Media[0].URL)
}

// =============================================================================
// HTML
// =============================================================================

func TestHTMLExporter(t *testing.T) {
	s := testSession()
	s.Messages[0].Content = "<script>alert(1)</script> and `x`"

	out, err := NewHTMLExporter(testOptions()).Export(s)
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, `<body class="dark">`)
	assert.Contains(t, page, `<img src="data:image/png;base64,AAAA" alt="cat.png">`)
	assert.Contains(t, page, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.Contains(t, page, "<code>x</code>")
	assert.Contains(t, page, `<div class="lang">go</div>`)
	assert.Contains(t, page, "Println")
	assert.Contains(t, page, "March 8, 2024 at 2:30 PM")
}

func TestRenderMedia(t *testing.T) {
	assert.Contains(t, renderMedia(model.MediaContent{Type: model.MediaAudio, URL: "file:///a.webm", Name: "a.webm"}), "<audio controls")
	assert.Contains(t, renderMedia(model.MediaContent{Type: model.MediaVideo, URL: "file:///v.webm", Name: "v.webm"}), "<video controls")
}

func TestFormatProse(t *testing.T) {
	assert.Equal(t, "<p>one<br>\ntwo</p>\n<p>three</p>\n", formatProse("one\ntwo\n\nthree"))
	assert.Equal(t, "", formatProse("  \n\n "))
}

// =============================================================================
// FORMAT SELECTION AND DOWNLOAD
// =============================================================================

func TestForFormat(t *testing.T) {
	cases := map[string]string{
		"":         ".txt",
		"text":     ".txt",
		"TXT":      ".txt",
		"md":       ".md",
		"markdown": ".md",
		"json":     ".json",
		"html":     ".html",
	}
	for name, ext := range cases {
		e, err := ForFormat(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, ext, e.FileExtension(), name)
	}

	_, err := ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "chatbot-conversation-2024-03-07.txt", FileName(t0, ".txt"))

	// 23:30 on the 6th in UTC-5 is already the 7th in UTC.
	late := time.Date(2024, 3, 6, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "chatbot-conversation-2024-03-07.md", FileName(late, ".md"))
}

func TestDownload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Downloads")
	s := testSession()

	path, err := Download(s, NewTextExporter(), dir, t0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chatbot-conversation-2024-03-07.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "You (3/7/2024, 9:05:01 AM):\n"))

	second, err := Download(s, NewTextExporter(), dir, t0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chatbot-conversation-2024-03-07 (1).txt"), second)

	third, err := Download(s, NewTextExporter(), dir, t0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chatbot-conversation-2024-03-07 (2).txt"), third)
}

func TestDownload_EmptySession(t *testing.T) {
	dir := t.TempDir()
	_, err := Download(model.NewChatSession(t0), NewTextExporter(), dir, t0)
	assert.ErrorIs(t, err, ErrEmptySession)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
