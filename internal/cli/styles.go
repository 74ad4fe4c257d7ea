// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// =============================================================================
// PRINTER
// =============================================================================

// printer writes styled lines to one output. Colors follow the output, so
// piped output and test buffers stay plain.
type printer struct {
	out    io.Writer
	styled bool
	width  int

	Title   lipgloss.Style
	Section lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
	User    lipgloss.Style
	Bot     lipgloss.Style
	Prompt  lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(ColorProfile(w))

	return &printer{
		out:    w,
		styled: ColorsEnabled(w),
		width:  TerminalWidth(w),

		Title:   r.NewStyle().Bold(true).Foreground(styles.Cyan),
		Section: r.NewStyle().Bold(true).Foreground(styles.TextPrimary),
		Label:   r.NewStyle().Foreground(styles.TextMuted),
		Value:   r.NewStyle().Foreground(styles.TextSecondary),
		Success: r.NewStyle().Bold(true).Foreground(styles.Emerald),
		Error:   r.NewStyle().Bold(true).Foreground(styles.Rose),
		Warning: r.NewStyle().Foreground(styles.Amber),
		Info:    r.NewStyle().Foreground(styles.Blue),
		Dim:     r.NewStyle().Foreground(styles.TextMuted),
		User:    r.NewStyle().Bold(true).Foreground(styles.Blue),
		Bot:     r.NewStyle().Bold(true).Foreground(styles.Purple),
		Prompt:  r.NewStyle().Bold(true).Foreground(styles.Cyan),
	}
}

// Println writes a line.
func (p *printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Printf writes formatted text.
func (p *printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Field writes an aligned "label  value" line.
func (p *printer) Field(label, value string, width int) {
	pad := width - runewidth.StringWidth(label)
	if pad < 1 {
		pad = 1
	}
	p.Println("  " + p.Label.Render(label) + strings.Repeat(" ", pad) + p.Value.Render(value))
}

// Separator writes a rule no wider than the output.
func (p *printer) Separator() {
	w := p.width - 4
	if w > 72 {
		w = 72
	}
	p.Println(p.Dim.Render(strings.Repeat("-", w)))
}

// Notice writes one notice with its status indicator.
func (p *printer) Notice(n notify.Notice) {
	var style lipgloss.Style
	var indicator string
	switch n.Kind {
	case notify.KindSuccess:
		style, indicator = p.Success, styles.StatusIndicators.Success
	case notify.KindWarning:
		style, indicator = p.Warning, styles.StatusIndicators.Warning
	case notify.KindError:
		style, indicator = p.Error, styles.StatusIndicators.Error
	default:
		style, indicator = p.Info, styles.StatusIndicators.Info
	}

	line := style.Render(indicator + " " + n.Title)
	if n.Detail != "" {
		line += p.Dim.Render(": " + n.Detail)
	}
	p.Println(line)
}
