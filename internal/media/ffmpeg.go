// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrFFmpegNotFound is returned when the ffmpeg binary is not on PATH.
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// DefaultProbeTimeout is how long a device gets to produce its first bytes
// before it is assumed to be working.
const DefaultProbeTimeout = 3 * time.Second

// =============================================================================
// FFMPEG DEVICE
// =============================================================================

// FFmpegDevice captures from the platform's camera and microphone by running
// ffmpeg and reading a WebM stream from its stdout.
type FFmpegDevice struct {
	// Path to the ffmpeg binary ("ffmpeg" resolves via PATH).
	Path string

	// CameraInput and MicInput override the platform input arguments, e.g.
	// []string{"-f", "v4l2", "-i", "/dev/video1"}.
	CameraInput []string
	MicInput    []string

	// ProbeTimeout overrides DefaultProbeTimeout.
	ProbeTimeout time.Duration
}

// OpenCamera implements Device.
func (d *FFmpegDevice) OpenCamera(ctx context.Context) (Stream, error) {
	input := d.CameraInput
	if len(input) == 0 {
		input = defaultCameraInput(runtime.GOOS)
	}
	args := append([]string{}, input...)
	args = append(args, "-c:v", "libvpx", "-deadline", "realtime", "-c:a", "libopus", "-f", "webm", "pipe:1")
	return d.start(ctx, args, "video/webm")
}

// OpenMicrophone implements Device.
func (d *FFmpegDevice) OpenMicrophone(ctx context.Context) (Stream, error) {
	input := d.MicInput
	if len(input) == 0 {
		input = defaultMicInput(runtime.GOOS)
	}
	args := append([]string{}, input...)
	args = append(args, "-vn", "-c:a", "libopus", "-f", "webm", "pipe:1")
	return d.start(ctx, args, "audio/webm")
}

func (d *FFmpegDevice) start(ctx context.Context, args []string, mimeType string) (Stream, error) {
	bin := d.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}

	// stdin stays open: Stop writes "q" to it.
	full := append([]string{"-hide_banner", "-loglevel", "error"}, args...)

	cmd := exec.Command(resolved, full...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &ffmpegStream{
		cmd:    cmd,
		stdin:  stdin,
		out:    bufio.NewReaderSize(stdout, 64*1024),
		mime:   mimeType,
		stderr: stderr,
		probed: make(chan struct{}),
	}

	probeTimeout := d.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	// A device that is missing or denied makes ffmpeg exit before producing
	// any output.
	probeErr := make(chan error, 1)
	go func() {
		defer close(s.probed)
		_, err := s.out.Peek(1)
		probeErr <- err
	}()

	select {
	case err := <-probeErr:
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open device: %s", s.describe(err))
		}
	case <-time.After(probeTimeout):
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
	return s, nil
}

func defaultCameraInput(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"-f", "avfoundation", "-framerate", "30", "-i", "0:0"}
	case "windows":
		return []string{"-f", "dshow", "-i", "video=Integrated Camera:audio=Microphone"}
	default:
		return []string{"-f", "v4l2", "-i", "/dev/video0", "-f", "pulse", "-i", "default"}
	}
}

func defaultMicInput(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"-f", "avfoundation", "-i", ":0"}
	case "windows":
		return []string{"-f", "dshow", "-i", "audio=Microphone"}
	default:
		return []string{"-f", "pulse", "-i", "default"}
	}
}

// =============================================================================
// FFMPEG STREAM
// =============================================================================

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *bufio.Reader
	mime   string
	stderr *tailBuffer
	probed chan struct{}

	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	<-s.probed
	return s.out.Read(p)
}

func (s *ffmpegStream) MimeType() string { return s.mime }

// Stop sends ffmpeg's interactive quit command so it writes the container
// trailer before exiting.
func (s *ffmpegStream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		_, err = io.WriteString(s.stdin, "q")
		s.stdin.Close()
	})
	return err
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.stdin.Close()
		if s.cmd.ProcessState == nil {
			s.cmd.Process.Kill()
		}
		if err := s.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

func (s *ffmpegStream) describe(err error) string {
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return msg
	}
	return err.Error()
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
