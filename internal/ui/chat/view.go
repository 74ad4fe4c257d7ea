// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatbot-tui/internal/ui/components"
	"github.com/jeranaias/chatbot-tui/internal/util"
)

// Fixed heights of the input box (border + line) and the status bar.
const (
	inputHeight  = 3
	statusHeight = 1
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) mainWidth() int {
	w := m.width
	if m.sidebarVisible() {
		w -= components.SidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// layout sizes every component for the current window. The extras rendered
// between the message area and the input take space from the viewport.
func (m *Model) layout() {
	width := max(m.width, 20)
	height := max(m.height, 10)
	mainW := m.mainWidth()

	m.header.SetWidth(width)
	m.attachments.Width = mainW
	m.help.Width = mainW
	m.input.Width = max(mainW-8, 10)

	headerH := lipgloss.Height(m.header.View())
	reserved := headerH + inputHeight + statusHeight
	for _, extra := range m.extras() {
		reserved += lipgloss.Height(extra)
	}

	vh := max(height-reserved, 3)
	m.viewport.Width = mainW
	m.viewport.Height = vh
	m.welcome.SetSize(mainW, vh)

	if m.sidebarVisible() {
		m.sidebar.SetSize(components.SidebarWidth, height-headerH)
	}
}

// extras are the optional rows under the message area: toasts, the typing
// indicator or error banner, and pending attachments.
func (m Model) extras() []string {
	var out []string
	mainW := m.mainWidth()

	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		out = append(out, components.RenderToastStack(m.theme, toasts, mainW))
	}
	if line := m.statusLine(mainW); line != "" {
		out = append(out, line)
	}
	if !m.attachments.Empty() {
		out = append(out, m.attachments.View())
	}
	return out
}

// statusLine is the typing indicator while loading, else the error banner.
func (m Model) statusLine(width int) string {
	t := m.theme
	if m.ctrl.Loading() {
		return m.spinner.View() + " " + t.Typing.Render("ChatBot is typing...") + "  " + t.KeyDesc.Render("esc to cancel")
	}
	if err := m.ctrl.Err(); err != nil {
		msg := util.TruncateWidth(util.SingleLine("Error: "+err.Error()), max(width-20, 10))
		return t.ErrorBar.Render(msg) + "  " + t.KeyDesc.Render("esc to dismiss")
	}
	return ""
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	main := m.renderMain()
	body := main
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body)
}

func (m Model) renderMain() string {
	parts := []string{m.renderContent()}
	parts = append(parts, m.extras()...)
	parts = append(parts, m.renderInput(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderContent() string {
	switch {
	case m.showHelp:
		return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.renderHelp())
	case len(m.messages.Messages) == 0:
		return m.welcome.View()
	default:
		return m.viewport.View()
	}
}

func (m Model) renderInput() string {
	box := m.theme.InputContainer
	if m.focus == focusInput {
		box = m.theme.InputFocused
	}
	return box.Width(m.mainWidth() - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var bindings []key.Binding
	switch m.focus {
	case focusMessages:
		bindings = []key.Binding{m.keys.Up, m.keys.Copy, m.keys.Regenerate, m.keys.Delete, m.keys.CycleFocus, m.keys.Help}
	case focusSidebar:
		bindings = []key.Binding{m.keys.Up, m.keys.Open, m.keys.Delete, m.keys.CycleFocus, m.keys.Help}
	default:
		bindings = m.keys.ShortHelp()
	}
	mode := m.theme.KeyHint.Render("[" + m.focus.String() + "]")
	line := mode + " " + m.help.ShortHelpView(bindings)
	return m.theme.StatusBar.Render(util.TruncateWidth(line, m.mainWidth()-2))
}

func (m Model) renderHelp() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.HeaderTitle.Render("Keys"))
	b.WriteString("\n\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(t.HeaderTitle.Render("Commands"))
	b.WriteString("\n\n")
	for _, c := range slashCommands {
		usage := "/" + c.Name
		if c.Args != "" {
			usage += " " + c.Args
		}
		b.WriteString(t.KeyHint.Render(util.PadRight(usage, 18)))
		b.WriteString(t.KeyDesc.Render(c.Desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(t.KeyDesc.Render("Press any key to close"))
	return t.HelpBox.Render(b.String())
}
