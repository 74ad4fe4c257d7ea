// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatbot-tui/internal/config"
	"github.com/jeranaias/chatbot-tui/internal/logging"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions holds the persistent flags and the config they resolve to.
// The config is loaded on first use so "config init" works with a broken
// config file.
type globalOptions struct {
	configPath string
	dataDir    string
	debug      bool

	cfg  *config.Config
	logs io.Closer
}

// load reads the config once and starts file logging.
func (o *globalOptions) load() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}

	cfg, err := config.Load(o.configPath, func(c *config.Config) {
		if o.dataDir != "" {
			c.Storage.DataDir = o.dataDir
		}
	})
	if err != nil {
		return nil, err
	}

	logs, err := logging.Setup(logging.Options{
		File:  cfg.Log.File,
		Level: cfg.Log.Level,
		Debug: o.debug,
	})
	if err != nil {
		return nil, err
	}

	o.cfg, o.logs = cfg, logs
	log.Info("chatbot starting",
		"version", Version,
		"provider", cfg.ActiveProvider().Name,
		"storage", cfg.Storage.Backend,
		"data_dir", cfg.Storage.DataDir)
	return cfg, nil
}

func (o *globalOptions) close() {
	if o.logs != nil {
		o.logs.Close()
		o.logs = nil
	}
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCommand(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "chatbot",
		Short: "Multimodal AI chat in your terminal",
		Long: `chatbot is a terminal chat client for Groq and MiniMax chat-completion APIs.

Conversations are saved locally and can include images, audio and video
attachments. Run without a subcommand to open the full-screen interface.

Set GROQ_API_KEY or MINIMAX_API_KEY before chatting.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.chatbot/config.toml)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory for sessions, captures and the log file")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newTUICommand(opts),
		newChatCommand(opts),
		newSessionsCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// Run executes the command tree with the given arguments and streams.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts := &globalOptions{}
	defer opts.close()

	root := newRootCommand(opts)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// Execute runs the CLI against the process arguments and returns the exit
// code.
func Execute() int {
	if err := Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		p := newPrinter(os.Stderr)
		p.Println(p.Error.Render("Error:"), err)
		return 1
	}
	return 0
}

// =============================================================================
// HELPERS
// =============================================================================

// requireArgs is cobra.ExactArgs with a usage hint in the message.
func requireArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}
}
