// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Blue is the brand color: header badge, user bubbles, focus.
var Blue = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}

// BlueDeep backs the selected sidebar row.
var BlueDeep = lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1E3A5F"}

// Cyan marks commands and key hints.
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Purple marks the assistant.
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Emerald - success notices.
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors and the recording indicator.
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - warnings.
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT
// =============================================================================

var (
	Surface       = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111827"}
	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}
	SurfaceBright = lipgloss.AdaptiveColor{Light: "#F9FAFB", Dark: "#374151"}
	Overlay       = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#D1D5DB"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111827"}
)

// =============================================================================
// MESSAGE BUBBLES
// =============================================================================

var (
	UserBubbleBg     = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#1D4ED8"}
	UserBubbleFg     = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#EFF6FF"}
	UserBubbleBorder = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}

	AssistantBubbleBg     = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}
	AssistantBubbleFg     = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F3F4F6"}
	AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
)

// =============================================================================
// ACCESSIBILITY: ASCII status indicators
// =============================================================================

// StatusIndicatorSet pairs each notice kind with a shape so state does not
// rely on color alone.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Record  string
}

// StatusIndicators are ASCII-only for terminal compatibility.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Record:  "[REC]",
}
