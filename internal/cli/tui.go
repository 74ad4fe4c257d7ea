// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/ui/chat"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// noticeBuffer is how many notices may queue before the UI drains them.
const noticeBuffer = 64

func newTUICommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Full-screen chat (default)",
		Long: `Open the full-screen chat interface.

Falls back to line mode ("chatbot chat") when stdin or stdout is not a
terminal. Press ? inside the interface for key bindings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	if !IsTTY() || !isTerminalWriter(cmd.OutOrStdout()) {
		log.Debug("not a terminal, using line mode")
		return runChat(cmd, opts)
	}

	cfg, err := opts.load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	notices := notify.NewChannel(noticeBuffer)
	a, err := newApp(ctx, cfg, notices)
	if err != nil {
		return err
	}
	defer a.Close()

	provider := cfg.ActiveProvider()
	m := chat.New(chat.Deps{
		Controller:    a.controller,
		Uploader:      a.uploader,
		Capture:       a.capture,
		Notices:       notices,
		Changes:       a.changes,
		Theme:         styles.NewTheme(cfg.UI.Theme),
		Provider:      provider.Name,
		Model:         provider.Model,
		ShowSidebar:   cfg.UI.ShowSidebar,
		ToastDuration: time.Duration(cfg.UI.ToastSeconds) * time.Second,
		Context:       ctx,
	})

	program := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := program.Run(); err != nil {
		log.Error("ui exited with error", "err", err)
		return err
	}
	log.Info("ui closed")
	return nil
}
