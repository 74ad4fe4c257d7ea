// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
)

var (
	// ErrFileTooLarge is returned for files over Constraints.MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedType is returned for MIME types outside the constraints.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// extensionTypes declares MIME types for the extensions we accept, ahead of
// the platform table (which varies, e.g. audio/x-wav).
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// File is an upload candidate. Size and MimeType are as declared by the
// caller; the content is read from Reader.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// =============================================================================
// UPLOADER
// =============================================================================

// Uploader validates files and converts them into attachments.
type Uploader struct {
	constraints Constraints
	notifier    notify.Notifier
}

// NewUploader creates an uploader. A nil notifier discards notices.
func NewUploader(c Constraints, n notify.Notifier) *Uploader {
	if n == nil {
		n = notify.Discard
	}
	return &Uploader{constraints: c, notifier: n}
}

// Constraints returns the active limits.
func (u *Uploader) Constraints() Constraints {
	return u.constraints
}

// Validate checks size then type, warning the user on rejection.
func (u *Uploader) Validate(f File) error {
	if f.Size > u.constraints.MaxFileSize {
		notify.Warning(u.notifier, "File too large",
			fmt.Sprintf("Please select a file smaller than %s", u.constraints.MaxSizeLabel()))
		return fmt.Errorf("%w: %s is %s", ErrFileTooLarge, f.Name, FormatSize(f.Size))
	}
	if _, ok := u.constraints.KindOf(f.MimeType); !ok {
		notify.Warning(u.notifier, "Unsupported file type",
			"Please select a valid image, audio, or video file")
		return fmt.Errorf("%w: %q", ErrUnsupportedType, f.MimeType)
	}
	return nil
}

// Upload validates f and returns an attachment whose URL embeds the content
// as a base64 data URI. Image dimensions are filled in when decodable.
func (u *Uploader) Upload(f File) (*model.MediaContent, error) {
	if err := u.Validate(f); err != nil {
		return nil, err
	}

	// The declared size may be wrong; never read past the limit.
	data, err := io.ReadAll(io.LimitReader(f.Reader, u.constraints.MaxFileSize+1))
	if err != nil {
		log.Warn("media read failed", "name", f.Name, "err", err)
		notify.Error(u.notifier, "Upload failed", "Failed to process the file")
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if int64(len(data)) > u.constraints.MaxFileSize {
		return nil, u.Validate(File{Name: f.Name, MimeType: f.MimeType, Size: int64(len(data))})
	}

	mimeType := normalizeMime(f.MimeType)
	kind, _ := u.constraints.KindOf(mimeType)
	media := &model.MediaContent{
		Type:     kind,
		URL:      DataURI(mimeType, data),
		Name:     f.Name,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}

	if kind == model.MediaImage {
		if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
			b := img.Bounds()
			media.Width, media.Height = b.Dx(), b.Dy()
		} else {
			log.Debug("image dimensions unavailable", "name", f.Name, "mime", mimeType, "err", err)
		}
	}

	log.Debug("media attached", "name", media.Name, "type", media.Type, "size", media.Size)
	return media, nil
}

// UploadPath uploads a local file, declaring its MIME type from the
// extension and falling back to content sniffing.
func (u *Uploader) UploadPath(path string) (*model.MediaContent, error) {
	fh, err := os.Open(path)
	if err != nil {
		notify.Error(u.notifier, "Upload failed", err.Error())
		return nil, err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		notify.Error(u.notifier, "Upload failed", path+" is a directory")
		return nil, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(fh, head)
	head = head[:n]

	return u.Upload(File{
		Name:     filepath.Base(path),
		MimeType: DetectMimeType(path, head),
		Size:     info.Size(),
		Reader:   io.MultiReader(bytes.NewReader(head), fh),
	})
}

// DetectMimeType guesses a MIME type from a file name, then from the first
// bytes of content.
func DetectMimeType(name string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return normalizeMime(t)
	}
	if len(head) == 0 {
		return "application/octet-stream"
	}
	return normalizeMime(http.DetectContentType(head))
}

// DataURI encodes data as "data:<mime>;base64,<payload>".
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the payload of a base64 data URI.
func DecodeDataURI(uri string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URI")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return mimeType, []byte(payload), nil
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	return mimeType, data, err
}
