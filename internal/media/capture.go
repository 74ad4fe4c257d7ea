// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/util"
)

var (
	// ErrPermissionDenied is returned when a capture device cannot be opened.
	ErrPermissionDenied = errors.New("capture device access denied")

	// ErrAlreadyRecording is returned by StartRecording while a recording runs.
	ErrAlreadyRecording = errors.New("already recording")

	// ErrNotRecording is returned by StopRecording when nothing is recording.
	ErrNotRecording = errors.New("not recording")

	// ErrEmptyRecording is returned when the device produced no data.
	ErrEmptyRecording = errors.New("recording is empty")

	// ErrCaptureCancelled is returned when the capture was stopped while the
	// device was still opening. The new stream has already been released.
	ErrCaptureCancelled = errors.New("capture cancelled")
)

// DefaultStopTimeout bounds how long StopRecording waits for the device to
// flush before it is closed forcibly.
const DefaultStopTimeout = 5 * time.Second

// defaultRecordingMime is used when a stream does not declare its type.
const defaultRecordingMime = "video/webm"

// =============================================================================
// DEVICE INTERFACES
// =============================================================================

// Stream is a live capture. Read yields the encoded container bytes.
type Stream interface {
	io.Reader

	// MimeType is the container type of the bytes read, e.g. "video/webm".
	MimeType() string

	// Stop asks the device to finish. Read returns io.EOF once buffered
	// data has been drained.
	Stop() error

	// Close releases the device immediately. Safe to call more than once.
	Close() error
}

// Device opens capture streams.
type Device interface {
	OpenCamera(ctx context.Context) (Stream, error)
	OpenMicrophone(ctx context.Context) (Stream, error)
}

// =============================================================================
// CAPTURE
// =============================================================================

// Capture manages at most one open stream and one recording.
type Capture struct {
	mu          sync.Mutex
	device      Device
	notifier    notify.Notifier
	dir         string
	now         func() time.Time
	stopTimeout time.Duration

	stream    Stream
	recording *recording

	// gen advances on every stop. A stream opened under an older
	// generation is released instead of kept.
	gen uint64
}

// ownedStream is a stream opened by Capture, tagged with the generation
// it was opened under.
type ownedStream struct {
	Stream
	gen uint64
}

type recording struct {
	stream Stream
	kind   model.MediaKind
	done   chan struct{}
	data   []byte
	err    error
}

// CaptureOption configures a Capture.
type CaptureOption func(*Capture)

// WithCaptureClock overrides time.Now for recording names.
func WithCaptureClock(now func() time.Time) CaptureOption {
	return func(c *Capture) { c.now = now }
}

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) CaptureOption {
	return func(c *Capture) { c.stopTimeout = d }
}

// NewCapture creates a capture manager writing recordings into dir.
func NewCapture(device Device, dir string, n notify.Notifier, opts ...CaptureOption) *Capture {
	if n == nil {
		n = notify.Discard
	}
	c := &Capture{
		device:      device,
		notifier:    n,
		dir:         dir,
		now:         time.Now,
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartCamera opens the camera (with audio). A previously open stream is
// released first.
func (c *Capture) StartCamera(ctx context.Context) (Stream, error) {
	return c.open(ctx, c.device.OpenCamera,
		"Camera access denied", "Please allow camera access to record video")
}

// StartMicrophone opens the microphone.
func (c *Capture) StartMicrophone(ctx context.Context) (Stream, error) {
	return c.open(ctx, c.device.OpenMicrophone,
		"Microphone access denied", "Please allow microphone access to record audio")
}

func (c *Capture) open(ctx context.Context, openFn func(context.Context) (Stream, error), title, detail string) (Stream, error) {
	c.StopCapture()

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	stream, err := openFn(ctx)
	if err != nil {
		c.mu.Lock()
		stale := c.gen != gen
		c.mu.Unlock()
		if stale {
			return nil, ErrCaptureCancelled
		}
		log.Warn("capture device unavailable", "notice", title, "err", err)
		notify.Warning(c.notifier, title, detail)
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		stream.Close()
		log.Debug("capture stopped while the device was opening")
		return nil, ErrCaptureCancelled
	}
	owned := &ownedStream{Stream: stream, gen: gen}
	c.stream = owned
	c.mu.Unlock()
	return owned, nil
}

// StartRecording begins buffering stream in the background. A stream from
// StartCamera or StartMicrophone that was released by a stop since it
// opened is closed and ErrCaptureCancelled is returned.
func (c *Capture) StartRecording(stream Stream, kind model.MediaKind) error {
	if stream == nil {
		return errors.New("no capture stream")
	}

	c.mu.Lock()
	if owned, ok := stream.(*ownedStream); ok && owned.gen != c.gen {
		c.mu.Unlock()
		stream.Close()
		return ErrCaptureCancelled
	}
	defer c.mu.Unlock()
	if c.recording != nil {
		return ErrAlreadyRecording
	}

	rec := &recording{stream: stream, kind: kind, done: make(chan struct{})}
	c.recording = rec
	c.stream = stream

	go func() {
		defer close(rec.done)
		data, err := io.ReadAll(stream)
		rec.data = data
		if err != nil && !errors.Is(err, io.ErrClosedPipe) {
			rec.err = err
		}
	}()

	log.Debug("recording started", "kind", kind, "mime", stream.MimeType())
	return nil
}

// StopRecording finishes the recording, writes it under the captures
// directory and releases the stream. The attachment URL is a file:// URL.
func (c *Capture) StopRecording() (*model.MediaContent, error) {
	c.mu.Lock()
	rec := c.recording
	stream := c.stream
	c.recording = nil
	c.stream = nil
	c.gen++
	c.mu.Unlock()

	if rec == nil {
		if stream != nil {
			stream.Close()
		}
		return nil, ErrNotRecording
	}

	if err := rec.stream.Stop(); err != nil {
		log.Debug("capture stop request failed", "err", err)
	}
	select {
	case <-rec.done:
	case <-time.After(c.stopTimeout):
		log.Warn("capture device did not finish in time", "timeout", c.stopTimeout)
	}
	rec.stream.Close()
	<-rec.done

	if rec.err != nil {
		log.Warn("recording read failed", "err", rec.err)
	}
	if len(rec.data) == 0 {
		notify.Warning(c.notifier, "Recording failed", "No data was captured")
		return nil, ErrEmptyRecording
	}

	mimeType := normalizeMime(rec.stream.MimeType())
	if mimeType == "" {
		mimeType = defaultRecordingMime
		if rec.kind == model.MediaAudio {
			mimeType = "audio/webm"
		}
	}
	kind := model.MediaAudio
	if strings.HasPrefix(mimeType, "video") {
		kind = model.MediaVideo
	}

	name := fmt.Sprintf("recorded_%s_%d", kind, c.now().UnixMilli())
	path, err := filepath.Abs(filepath.Join(c.dir, name+extensionFor(mimeType)))
	if err != nil {
		return nil, err
	}
	if err := util.AtomicWriteFile(path, rec.data, 0o600); err != nil {
		notify.Error(c.notifier, "Recording failed", err.Error())
		return nil, fmt.Errorf("save recording: %w", err)
	}

	log.Info("recording saved", "path", path, "size", len(rec.data))
	return &model.MediaContent{
		Type:     kind,
		URL:      FileURL(path),
		Name:     name,
		Size:     int64(len(rec.data)),
		MimeType: mimeType,
	}, nil
}

// StopCapture releases any open stream and abandons a running recording.
// A device still opening is released as soon as it opens. Safe to call at
// any time.
func (c *Capture) StopCapture() {
	c.mu.Lock()
	stream := c.stream
	rec := c.recording
	c.stream = nil
	c.recording = nil
	c.gen++
	c.mu.Unlock()

	if rec != nil {
		rec.stream.Close()
		<-rec.done
	}
	if stream != nil {
		stream.Close()
	}
}

// IsCapturing reports whether a recording is running.
func (c *Capture) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording != nil
}

// HasStream reports whether a device stream is open.
func (c *Capture) HasStream() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// FileURL converts an absolute path to a file:// URL.
func FileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String()
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "video/webm", "audio/webm":
		return ".webm"
	case "video/mp4":
		return ".mp4"
	case "audio/wav":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
