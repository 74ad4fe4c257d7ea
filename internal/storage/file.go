// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/chatbot-tui/internal/util"
)

// DefaultWatchDebounce coalesces bursts of filesystem events into one
// notification.
const DefaultWatchDebounce = 150 * time.Millisecond

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileBackend stores each key as <dir>/<key>.json.
type FileBackend struct {
	// Dir is the directory holding the value files.
	Dir string

	// Debounce is the quiet period before a watch notification fires.
	Debounce time.Duration

	mu     sync.Mutex
	closed bool
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("storage directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileBackend{Dir: dir, Debounce: DefaultWatchDebounce}, nil
}

// Path returns the file that holds key.
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.Dir, key+".json")
}

// Get implements Backend.
func (b *FileBackend) Get(key string) ([]byte, error) {
	if err := b.check(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set implements Backend. The write is atomic.
func (b *FileBackend) Set(key string, value []byte) error {
	if err := b.check(key); err != nil {
		return err
	}
	return util.AtomicWriteFile(b.Path(key), value, 0o600)
}

// Delete implements Backend.
func (b *FileBackend) Delete(key string) error {
	if err := b.check(key); err != nil {
		return err
	}
	if err := os.Remove(b.Path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *FileBackend) check(key string) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return validateKey(key)
}

// =============================================================================
// WATCHING
// =============================================================================

// Watch reports writes, creates and removals of key's file made by anyone,
// this process included. Atomic writes land as a create of the target name,
// so the directory is watched rather than the file.
func (b *FileBackend) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	if err := b.check(key); err != nil {
		return nil, err
	}
	target, err := filepath.Abs(b.Path(key))
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", b.Dir, err)
	}

	debounce := b.Debounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name, _ := filepath.Abs(ev.Name)
				if name != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("storage watcher error", "dir", b.Dir, "err", err)

			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}
