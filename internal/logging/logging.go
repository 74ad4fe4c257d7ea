// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging routes the package-level charmbracelet/log logger to a
// file. The terminal belongs to the UI, so nothing is written to stderr once
// Setup has run.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures Setup.
type Options struct {
	// File is the log path. Parent directories are created.
	File string

	// Level is debug, info, warn or error.
	Level string

	// Debug forces debug level.
	Debug bool
}

// Setup opens the log file and installs a logfmt logger as the default.
// The returned closer restores the previous default and closes the file.
func Setup(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = log.DebugLevel
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	previous := log.Default()
	log.SetDefault(New(f, level))
	log.Debug("logging started", "file", opts.File, "level", level.String())

	return &closer{file: f, previous: previous}, nil
}

// New builds a logger writing logfmt lines to w.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "chatbot",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
	})
}

// ParseLevel accepts debug, info, warn and error. "" is info.
func ParseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

type closer struct {
	file     *os.File
	previous *log.Logger
}

func (c *closer) Close() error {
	log.SetDefault(c.previous)
	return c.file.Close()
}
