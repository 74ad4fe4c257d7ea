// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

func TestConstraints_KindOf(t *testing.T) {
	c := DefaultConstraints()
	tests := []struct {
		mime string
		kind model.MediaKind
		ok   bool
	}{
		{"image/jpeg", model.MediaImage, true},
		{"image/png", model.MediaImage, true},
		{"IMAGE/WEBP", model.MediaImage, true},
		{"audio/mp3", model.MediaAudio, true},
		{"audio/wav", model.MediaAudio, true},
		{"audio/mpeg", model.MediaAudio, true},
		{"video/mp4", model.MediaVideo, true},
		{"video/webm; codecs=vp8", model.MediaVideo, true},
		{"image/gif", "", false},
		{"application/pdf", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		kind, ok := c.KindOf(tc.mime)
		assert.Equal(t, tc.ok, ok, tc.mime)
		assert.Equal(t, tc.kind, kind, tc.mime)
	}
	assert.Len(t, c.Supported(), 8)
	assert.Equal(t, "10 MiB", c.MaxSizeLabel())
}

// =============================================================================
// UPLOAD
// =============================================================================

func TestUpload_ImageBecomesDataURIWithDimensions(t *testing.T) {
	rec := &notify.Recorder{}
	u := NewUploader(DefaultConstraints(), rec)
	data := pngBytes(t, 4, 3)

	media, err := u.Upload(File{Name: "dot.png", MimeType: "image/png", Size: int64(len(data)), Reader: bytes.NewReader(data)})
	require.NoError(t, err)

	assert.Equal(t, model.MediaImage, media.Type)
	assert.Equal(t, "dot.png", media.Name)
	assert.Equal(t, int64(len(data)), media.Size)
	assert.Equal(t, "image/png", media.MimeType)
	assert.Equal(t, 4, media.Width)
	assert.Equal(t, 3, media.Height)
	assert.True(t, strings.HasPrefix(media.URL, "data:image/png;base64,"))

	mimeType, decoded, err := DecodeDataURI(media.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, data, decoded)
	assert.Empty(t, rec.Notices())
}

func TestUpload_TooLarge(t *testing.T) {
	rec := &notify.Recorder{}
	u := NewUploader(DefaultConstraints(), rec)

	_, err := u.Upload(File{Name: "big.mp4", MimeType: "video/mp4", Size: DefaultMaxFileSize + 1, Reader: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.KindWarning, last.Kind)
	assert.Equal(t, "File too large", last.Title)
}

func TestUpload_ExactlyAtLimitIsAccepted(t *testing.T) {
	c := DefaultConstraints()
	c.MaxFileSize = 8
	u := NewUploader(c, nil)

	media, err := u.Upload(File{Name: "a.wav", MimeType: "audio/wav", Size: 8, Reader: strings.NewReader("12345678")})
	require.NoError(t, err)
	assert.Equal(t, model.MediaAudio, media.Type)
}

func TestUpload_DeclaredSizeIsNotTrusted(t *testing.T) {
	c := DefaultConstraints()
	c.MaxFileSize = 4
	rec := &notify.Recorder{}
	u := NewUploader(c, rec)

	_, err := u.Upload(File{Name: "a.wav", MimeType: "audio/wav", Size: 1, Reader: strings.NewReader("123456")})
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, []string{"File too large"}, rec.Titles())
}

func TestUpload_UnsupportedType(t *testing.T) {
	rec := &notify.Recorder{}
	u := NewUploader(DefaultConstraints(), rec)

	_, err := u.Upload(File{Name: "doc.pdf", MimeType: "application/pdf", Size: 10, Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, []string{"Unsupported file type"}, rec.Titles())
}

func TestUpload_SizeCheckedBeforeType(t *testing.T) {
	rec := &notify.Recorder{}
	u := NewUploader(DefaultConstraints(), rec)

	_, err := u.Upload(File{Name: "doc.pdf", MimeType: "application/pdf", Size: DefaultMaxFileSize * 2})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUpload_UndecodableImageHasNoDimensions(t *testing.T) {
	u := NewUploader(DefaultConstraints(), nil)
	media, err := u.Upload(File{Name: "x.webp", MimeType: "image/webp", Size: 3, Reader: strings.NewReader("abc")})
	require.NoError(t, err)
	assert.Zero(t, media.Width)
	assert.Zero(t, media.Height)
}

func TestUploadPath(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "shot.PNG")
	require.NoError(t, os.WriteFile(pngPath, pngBytes(t, 2, 2), 0o644))

	u := NewUploader(DefaultConstraints(), nil)
	media, err := u.UploadPath(pngPath)
	require.NoError(t, err)
	assert.Equal(t, "shot.PNG", media.Name)
	assert.Equal(t, "image/png", media.MimeType)
	assert.Equal(t, 2, media.Width)

	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("hi"), 0o644))
	_, err = u.UploadPath(txtPath)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = u.UploadPath(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	_, err = u.UploadPath(dir)
	assert.Error(t, err)
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectMimeType("a.JPG", nil))
	assert.Equal(t, "audio/wav", DetectMimeType("a.wav", nil))
	assert.Equal(t, "audio/mpeg", DetectMimeType("a.mp3", nil))
	assert.Equal(t, "video/webm", DetectMimeType("clip.webm", nil))
	assert.Equal(t, "image/png", DetectMimeType("noext", pngBytes(t, 1, 1)))
	assert.Equal(t, "application/octet-stream", DetectMimeType("noext", nil))
}

func TestDecodeDataURI_Errors(t *testing.T) {
	_, _, err := DecodeDataURI("https://example.com/a.png")
	assert.Error(t, err)
	_, _, err = DecodeDataURI("data:image/png;base64")
	assert.Error(t, err)
	_, _, err = DecodeDataURI("data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(-5))
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KiB", FormatSize(1536))
}
