// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header         lipgloss.Style
	HeaderBadge    lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	HeaderMeta     lipgloss.Style

	// Sidebar
	Sidebar             lipgloss.Style
	SidebarFocused      lipgloss.Style
	SidebarTitle        lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionItemCurrent  lipgloss.Style
	SessionMeta         lipgloss.Style

	// Messages
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SelectedBubble  lipgloss.Style
	RoleUser        lipgloss.Style
	RoleAssistant   lipgloss.Style
	Timestamp       lipgloss.Style
	MediaChip       lipgloss.Style
	ActionHint      lipgloss.Style

	// Empty state
	WelcomeTitle lipgloss.Style
	WelcomeText  lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	InputFocused   lipgloss.Style
	InputPrompt    lipgloss.Style
	Attachment     lipgloss.Style
	Recording      lipgloss.Style

	// Feedback
	Typing     lipgloss.Style
	ErrorBar   lipgloss.Style
	Toast      lipgloss.Style
	StatusBar  lipgloss.Style
	KeyHint    lipgloss.Style
	KeyDesc    lipgloss.Style
	HelpBox    lipgloss.Style
	CodeBadge  lipgloss.Style
	InlineCode lipgloss.Style

	// Accessibility
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme builds a theme. mode is "auto" (ask the terminal), "dark" or
// "light".
func NewTheme(mode string) *Theme {
	t := &Theme{ColorProfile: termenv.ColorProfile()}

	switch strings.ToLower(mode) {
	case "dark":
		t.SetDark(true)
	case "light":
		t.SetDark(false)
	default:
		t.SetDark(termenv.HasDarkBackground())
	}
	t.initStyles()
	return t
}

// SetDark switches the adaptive palette.
func (t *Theme) SetDark(dark bool) {
	t.IsDark = dark
	lipgloss.SetHasDarkBackground(dark)
}

// Toggle flips between dark and light.
func (t *Theme) Toggle() {
	t.SetDark(!t.IsDark)
}

// Name returns "dark" or "light".
func (t *Theme) Name() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// GlamourStyle names the glamour standard style matching the palette.
func (t *Theme) GlamourStyle() string {
	return t.Name()
}

// ChromaStyle names the chroma style used for code fences.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.HeaderBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Blue).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SidebarFocused = t.Sidebar.
		BorderForeground(Blue)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.SessionItem = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.SessionItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(BlueDeep)

	t.SessionItemCurrent = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	t.SessionMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Messages
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)

	t.SelectedBubble = lipgloss.NewStyle().
		BorderForeground(Cyan)

	t.RoleUser = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	t.RoleAssistant = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.MediaChip = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceBright).
		Padding(0, 1)

	t.ActionHint = lipgloss.NewStyle().
		Foreground(Cyan).
		Italic(true)

	// Empty state
	t.WelcomeTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.WelcomeText = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputFocused = t.InputContainer.
		BorderForeground(Blue)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Blue).
		Bold(true)

	t.Attachment = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceBright).
		Padding(0, 1).
		MarginRight(1)

	t.Recording = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose)

	// Feedback
	t.Typing = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ErrorBar = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Rose).
		PaddingLeft(1)

	t.Toast = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.KeyHint = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.KeyDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.HelpBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.CodeBadge = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceBright).
		Padding(0, 1).
		Bold(true)

	t.InlineCode = lipgloss.NewStyle().
		Foreground(Cyan)

	// Accessibility
	t.SuccessStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.InfoStyle = lipgloss.NewStyle().Foreground(Cyan)
}
