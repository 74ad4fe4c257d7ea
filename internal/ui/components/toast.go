// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// DefaultToastDuration is the auto-dismiss duration for status and success
// toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is longer so errors can be read.
const ErrorToastDuration = 8 * time.Second

// WarningToastDuration is the auto-dismiss duration for warnings.
const WarningToastDuration = 6 * time.Second

// maxToasts bounds the visible stack.
const maxToasts = 4

// =============================================================================
// TOAST
// =============================================================================

// Toast is a notice on screen.
type Toast struct {
	ID        int
	Notice    notify.Notice
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast should be gone at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the visible toasts, newest first.
type ToastManager struct {
	mu       sync.Mutex
	toasts   []Toast
	nextID   int
	base     time.Duration
	now      func() time.Time
	maxShown int
}

// NewToastManager creates a manager. base is the duration for status and
// success toasts; zero means DefaultToastDuration.
func NewToastManager(base time.Duration) *ToastManager {
	if base <= 0 {
		base = DefaultToastDuration
	}
	return &ToastManager{
		nextID:   1,
		base:     base,
		now:      time.Now,
		maxShown: maxToasts,
	}
}

// SetClock overrides time.Now.
func (m *ToastManager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// DurationFor returns how long a notice of kind stays visible.
func (m *ToastManager) DurationFor(kind notify.Kind) time.Duration {
	switch kind {
	case notify.KindError:
		return max(ErrorToastDuration, m.base)
	case notify.KindWarning:
		return max(WarningToastDuration, m.base)
	default:
		return m.base
	}
}

// Add shows a notice and returns its toast ID.
func (m *ToastManager) Add(n notify.Notice) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	toast := Toast{
		ID:        m.nextID,
		Notice:    n,
		CreatedAt: m.now(),
		Duration:  m.DurationFor(n.Kind),
	}
	m.nextID++

	m.toasts = append([]Toast{toast}, m.toasts...)
	if len(m.toasts) > m.maxShown {
		m.toasts = m.toasts[:m.maxShown]
	}
	return toast.ID
}

// Dismiss removes a toast by ID.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// DismissAll removes every toast.
func (m *ToastManager) DismissAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = nil
}

// Tick drops expired toasts and returns the rest.
func (m *ToastManager) Tick() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return append([]Toast(nil), m.toasts...)
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// HasToasts reports whether anything is visible.
func (m *ToastManager) HasToasts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts) > 0
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// ToastTickMsg drives expiry.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders one toast.
func RenderToast(theme *styles.Theme, toast Toast, width int) string {
	maxWidth := 50
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 24 {
		maxWidth = 24
	}

	var (
		color lipgloss.AdaptiveColor
		icon  string
	)
	switch toast.Notice.Kind {
	case notify.KindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case notify.KindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case notify.KindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	title := lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon + " " + toast.Notice.Title)
	content := title
	if detail := strings.TrimSpace(toast.Notice.Detail); detail != "" {
		wrapped := wordwrap.String(detail, maxWidth-4)
		content += "\n" + lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(wrapped)
	}

	return theme.Toast.
		BorderForeground(color).
		MaxWidth(maxWidth).
		Render(content)
}

// RenderToastStack renders toasts stacked, right-aligned to width.
func RenderToastStack(theme *styles.Theme, toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, len(toasts))
	for i, t := range toasts {
		rendered[i] = RenderToast(theme, t, width)
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
	}
	return stack
}
