// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify carries short user-facing notices (toasts) from the core
// packages to whatever front end is attached.
//
// Core code only knows the Notifier interface; the TUI turns notices into
// toasts, the REPL prints them, and tests record them.
package notify

import (
	"fmt"
	"sync"
	"time"
)

// Kind classifies a notice.
type Kind int

const (
	KindStatus Kind = iota
	KindSuccess
	KindWarning
	KindError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindSuccess:
		return "success"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Notice is a single user-facing message. Detail is optional.
type Notice struct {
	Kind   Kind
	Title  string
	Detail string
	At     time.Time
}

// String renders the notice on one line.
func (n Notice) String() string {
	if n.Detail == "" {
		return n.Title
	}
	return n.Title + ": " + n.Detail
}

// Notifier receives notices.
type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to the Notifier interface.
type Func func(Notice)

// Notify calls f(n).
func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// Channel delivers notices to ch without blocking. Notices are dropped when
// the buffer is full.
type Channel chan Notice

// NewChannel returns a buffered Channel.
func NewChannel(size int) Channel {
	return make(Channel, size)
}

// Notify implements Notifier.
func (c Channel) Notify(n Notice) {
	select {
	case c <- n:
	default:
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func send(n Notifier, kind Kind, title, detail string) {
	if n == nil {
		return
	}
	n.Notify(Notice{Kind: kind, Title: title, Detail: detail, At: time.Now()})
}

// Status sends an informational notice.
func Status(n Notifier, title, detail string) { send(n, KindStatus, title, detail) }

// Success sends a success notice.
func Success(n Notifier, title, detail string) { send(n, KindSuccess, title, detail) }

// Warning sends a warning notice.
func Warning(n Notifier, title, detail string) { send(n, KindWarning, title, detail) }

// Error sends an error notice.
func Error(n Notifier, title, detail string) { send(n, KindError, title, detail) }

// =============================================================================
// RECORDER
// =============================================================================

// Recorder stores every notice it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records n.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Titles returns the recorded titles in order.
func (r *Recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Title
	}
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset forgets all notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
