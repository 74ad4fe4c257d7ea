// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatbot-tui/internal/export"
	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/session"
)

var (
	// ErrSessionNotFound is returned when no session matches a reference.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAmbiguousSession is returned when an id prefix matches several
	// sessions.
	ErrAmbiguousSession = errors.New("session reference is ambiguous")
)

// shortIDLen is how much of a session id the listing shows.
const shortIDLen = 8

// =============================================================================
// SESSION LOOKUP
// =============================================================================

// findSession resolves ref as a list number (1-based, newest first), a full
// id, or a unique id prefix.
func findSession(store *session.Store, ref string) (*model.ChatSession, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrSessionNotFound
	}
	sessions := store.Sessions()

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(sessions) && len(ref) < shortIDLen {
		return sessions[n-1], nil
	}

	var match *model.ChatSession
	for _, s := range sessions {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q", ErrAmbiguousSession, ref)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, ref)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// printSessions writes one line per session, newest first. The current
// session is marked with "*".
func printSessions(p *printer, sessions []*model.ChatSession, currentID string, now time.Time) {
	if len(sessions) == 0 {
		p.Println(p.Dim.Render("No chat sessions yet"))
		return
	}

	titleWidth := p.width - 42
	if titleWidth < 16 {
		titleWidth = 16
	}
	for i, s := range sessions {
		marker := " "
		if s.ID == currentID {
			marker = "*"
		}
		title := runewidth.FillRight(runewidth.Truncate(s.Title, titleWidth, "..."), titleWidth)
		meta := fmt.Sprintf("%s | %d msgs", humanize.RelTime(s.UpdatedAt, now, "ago", "from now"), s.MessageCount())

		p.Println(fmt.Sprintf("%s %3d  %s  %s  %s",
			marker,
			i+1,
			p.Dim.Render(shortID(s.ID)),
			title,
			p.Dim.Render(meta)))
	}
}

// =============================================================================
// SESSIONS COMMAND
// =============================================================================

func newSessionsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage saved conversations",
		Long: `List, print, export and delete saved conversations.

A session can be referred to by its number in "sessions list", its full id
or a unique id prefix.`,
	}
	cmd.AddCommand(
		newSessionsListCommand(opts),
		newSessionsShowCommand(opts),
		newSessionsExportCommand(opts),
		newSessionsDeleteCommand(opts),
	)
	return cmd
}

// withStore loads the config, opens the session store and runs fn.
func withStore(opts *globalOptions, fn func(store *sessionStore) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newSessionsListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *sessionStore) error {
				p := newPrinter(cmd.OutOrStdout())
				printSessions(p, store.Sessions(), store.CurrentSessionID(), time.Now())
				return nil
			})
		},
	}
}

func newSessionsShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation as plain text",
		Args:  requireArgs(1, "chatbot sessions show <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *sessionStore) error {
				s, err := findSession(store.Store, args[0])
				if err != nil {
					return err
				}
				if s.IsEmpty() {
					p := newPrinter(cmd.OutOrStdout())
					p.Println(p.Dim.Render(fmt.Sprintf("%s has no messages", s.Title)))
					return nil
				}
				data, err := export.NewTextExporter().Export(s)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func newSessionsExportCommand(opts *globalOptions) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a conversation to the downloads folder",
		Long: fmt.Sprintf(`Write a conversation to a file named %s<date>.<ext>.

Formats: %s. The default comes from export.format in the config file.
An existing file is never overwritten; a numbered name is used instead.`, export.FilePrefix, strings.Join(export.Formats, ", ")),
		Args: requireArgs(1, "chatbot sessions export <id> [--format text|md|json|html]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Export.Format
			}
			if output == "" {
				output = cfg.Export.DownloadsDir
			}

			exportOpts := export.DefaultOptions()
			if cfg.UI.Theme == "light" {
				exportOpts.Theme = "light"
			}
			exporter, err := export.ForFormat(format, exportOpts)
			if err != nil {
				return err
			}

			return withStore(opts, func(store *sessionStore) error {
				s, err := findSession(store.Store, args[0])
				if err != nil {
					return err
				}
				path, err := export.Download(s, exporter, output, time.Now())
				if err != nil {
					return fmt.Errorf("export %s: %w", shortID(s.ID), err)
				}
				p := newPrinter(cmd.OutOrStdout())
				p.Println(p.Success.Render("Exported"), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "export format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory to write into (default: export.downloads_dir)")
	return cmd
}

func newSessionsDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    requireArgs(1, "chatbot sessions delete <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *sessionStore) error {
				s, err := findSession(store.Store, args[0])
				if err != nil {
					return err
				}
				if !store.DeleteSession(s.ID) {
					return fmt.Errorf("%w: %q", ErrSessionNotFound, args[0])
				}
				p := newPrinter(cmd.OutOrStdout())
				p.Println(p.Success.Render("Deleted"), s.Title)
				return nil
			})
		},
	}
}
