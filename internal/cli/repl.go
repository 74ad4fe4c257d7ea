// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/wordwrap"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatbot-tui/internal/media"
	"github.com/jeranaias/chatbot-tui/internal/model"
	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/ui/components"
	"github.com/jeranaias/chatbot-tui/internal/ui/styles"
)

// HistoryFileName is the REPL input history, kept in the data directory.
const HistoryFileName = "chat_history"

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the part of liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// historyLiner is a liner.State that loads and saves its history file.
type historyLiner struct {
	*liner.State
	path string
}

func openLiner(historyPath string) *historyLiner {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return &historyLiner{State: line, path: historyPath}
}

// Close writes the history with owner-only permissions and restores the
// terminal.
func (h *historyLiner) Close() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o700); err == nil {
		if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			if _, err := h.WriteHistory(f); err != nil {
				log.Debug("failed to write input history", "err", err)
			}
			f.Close()
		}
	}
	return h.State.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-oriented chat with input history",
		Long: `Chat one line at a time. Works with pipes and dumb terminals.

Type /help inside the chat for commands. Ctrl+C cancels a pending reply;
Ctrl+C at the prompt or Ctrl+D exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	a, err := newApp(cmd.Context(), cfg, notify.Func(p.Notice))
	if err != nil {
		return err
	}
	defer a.Close()

	in := openLiner(filepath.Join(cfg.Storage.DataDir, HistoryFileName))
	defer in.Close()

	r := newREPL(a, in, p, styles.NewTheme(cfg.UI.Theme).GlamourStyle())
	r.interrupts = true
	return r.run(cmd.Context())
}

// =============================================================================
// REPL
// =============================================================================

// repl drives the controller from a line reader.
type repl struct {
	app     *app
	in      lineReader
	p       *printer
	md      *components.MarkdownRenderer
	mdStyle string

	// interrupts routes SIGINT to Controller.Cancel while a reply is
	// pending.
	interrupts bool

	pending []model.MediaContent
}

func newREPL(a *app, in lineReader, p *printer, glamourStyle string) *repl {
	return &repl{
		app:     a,
		in:      in,
		p:       p,
		md:      components.NewMarkdownRenderer(),
		mdStyle: glamourStyle,
	}
}

// errQuit ends the loop without an error.
var errQuit = errors.New("quit")

// run reads lines until EOF, Ctrl+C at the prompt or /quit.
func (r *repl) run(ctx context.Context) error {
	r.printWelcome()

	for {
		input, err := r.in.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				r.p.Println()
				r.printGoodbye()
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			r.printGoodbye()
			return nil
		}
		if strings.HasPrefix(input, "/") {
			if err := r.command(ctx, input); err != nil {
				if errors.Is(err, errQuit) {
					r.printGoodbye()
					return nil
				}
				r.p.Notice(notify.Notice{Kind: notify.KindError, Title: "Error", Detail: err.Error()})
			}
			continue
		}

		r.send(ctx, input)
	}
}

func (r *repl) prompt() string {
	label := "you> "
	if n := len(r.pending); n > 0 {
		label = fmt.Sprintf("you [%d attached]> ", n)
	}
	if r.app.capture.IsCapturing() {
		label = styles.StatusIndicators.Record + " " + label
	}
	// liner measures the prompt itself; escape codes break its cursor math.
	return label
}

// send submits input with any pending attachments and prints the reply.
func (r *repl) send(ctx context.Context, input string) {
	turn, err := r.app.controller.Submit(input, r.pending)
	if err != nil {
		// ErrBusy has already been reported as a notice.
		log.Debug("send rejected", "err", err)
		return
	}
	r.pending = nil

	if r.interrupts {
		stop := r.cancelOnInterrupt()
		defer stop()
	}

	r.p.Println(r.p.Dim.Render("ChatBot is typing... (Ctrl+C to cancel)"))
	reply, err := turn.Resolve(ctx)
	if err != nil {
		// The controller has already sent a notice.
		return
	}
	r.printMessage(reply)
}

// cancelOnInterrupt cancels the pending reply on SIGINT until the returned
// func is called.
func (r *repl) cancelOnInterrupt() func() {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sig, os.Interrupt)
	go func() {
		for {
			select {
			case <-sig:
				r.app.controller.Cancel()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printWelcome() {
	provider := r.app.cfg.ActiveProvider()
	r.p.Println(r.p.Title.Render("ChatBot") + " " + r.p.Dim.Render(fmt.Sprintf("Powered by %s (%s)", provider.Name, provider.Model)))
	r.p.Println(r.p.Dim.Render("Type /help for commands, /quit to exit."))

	if current, ok := r.app.controller.CurrentSession(); ok && !current.IsEmpty() {
		r.p.Println(r.p.Dim.Render(fmt.Sprintf("Continuing %q (%d messages). /history to review, /new to start over.",
			current.Title, current.MessageCount())))
	}
	r.p.Println()
}

func (r *repl) printGoodbye() {
	if r.app.capture.IsCapturing() {
		r.app.capture.StopCapture()
		r.p.Println(r.p.Warning.Render("Recording discarded."))
	}
	r.p.Println(r.p.Dim.Render("Goodbye."))
}

// printMessage writes a header line, attachment lines and the content.
// Assistant Markdown is rendered with glamour on a color terminal.
func (r *repl) printMessage(m *model.Message) {
	label := r.p.User.Render(m.Role.DisplayName())
	if m.Role == model.RoleAssistant {
		label = r.p.Bot.Render(m.Role.DisplayName())
	}
	r.p.Println(label + " " + r.p.Dim.Render(m.Timestamp.Local().Format("15:04")))

	for _, item := range m.Media {
		r.p.Println("  " + r.p.Dim.Render(components.DescribeMedia(item)))
	}

	if m.Content == "" {
		r.p.Println()
		return
	}
	width := r.p.width - 4
	if m.Role == model.RoleAssistant && r.p.styled {
		r.p.Println(strings.TrimRight(r.md.Render(m.Content, r.mdStyle, width), "\n"))
	} else {
		r.p.Println(wordwrap.String(m.Content, width))
	}
	r.p.Println()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

type replCommand struct {
	name  string
	args  string
	usage string
}

var replCommands = []replCommand{
	{"attach", "<path>", "Attach an image, audio or video file to the next message"},
	{"camera", "", "Start recording from the camera"},
	{"mic", "", "Start recording from the microphone"},
	{"stop", "", "Stop recording and attach the result"},
	{"discard", "", "Drop pending attachments and any recording"},
	{"export", "[text|md|json|html]", "Save this conversation to the downloads folder"},
	{"history", "", "Print this conversation"},
	{"sessions", "", "List saved conversations"},
	{"open", "<n|id>", "Switch to a saved conversation"},
	{"new", "", "Start a new conversation"},
	{"clear", "", "Delete this conversation"},
	{"help", "", "Show this help"},
	{"quit", "", "Exit"},
}

func (r *repl) command(ctx context.Context, input string) error {
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "attach":
		return r.attach(arg)
	case "camera", "video":
		return r.startRecording(ctx, model.MediaVideo)
	case "mic", "audio":
		return r.startRecording(ctx, model.MediaAudio)
	case "stop":
		return r.stopRecording()
	case "discard":
		r.discard()
	case "export":
		// Failures arrive as notices.
		r.app.controller.Export(arg)
	case "history":
		r.printHistory()
	case "sessions":
		printSessions(r.p, r.app.controller.Sessions(), r.app.store.CurrentSessionID(), time.Now())
	case "open", "switch":
		return r.open(arg)
	case "new":
		r.app.controller.NewChat()
		r.p.Println(r.p.Success.Render("Started a new conversation."))
	case "clear":
		if !r.app.controller.ClearSession() {
			r.p.Println(r.p.Dim.Render("Nothing to clear."))
		}
	case "help", "?":
		r.printHelp()
	case "quit", "exit", "q":
		return errQuit
	default:
		r.p.Notice(notify.Notice{Kind: notify.KindWarning, Title: "Unknown command", Detail: "/" + name + " (try /help)"})
	}
	return nil
}

func (r *repl) attach(arg string) error {
	if arg == "" {
		return errors.New("usage: /attach <path>")
	}
	path := expandPath(unquote(arg))
	item, err := r.app.uploader.UploadPath(path)
	if err != nil {
		// The uploader has already sent a notice.
		log.Debug("attach failed", "path", path, "err", err)
		return nil
	}
	r.pending = append(r.pending, *item)
	r.p.Println(r.p.Success.Render("Attached") + " " + components.DescribeMedia(*item))
	return nil
}

func (r *repl) startRecording(ctx context.Context, kind model.MediaKind) error {
	if r.app.capture.IsCapturing() {
		r.p.Notice(notify.Notice{Kind: notify.KindWarning, Title: "Already recording", Detail: "Use /stop first"})
		return nil
	}

	var stream media.Stream
	var err error
	if kind == model.MediaVideo {
		stream, err = r.app.capture.StartCamera(ctx)
	} else {
		stream, err = r.app.capture.StartMicrophone(ctx)
	}
	if err != nil {
		// The capture manager has already sent a notice.
		return nil
	}
	if err := r.app.capture.StartRecording(stream, kind); err != nil {
		r.app.capture.StopCapture()
		return err
	}
	r.p.Println(r.p.Error.Render(styles.StatusIndicators.Record) + " Recording " + string(kind) + ". /stop to attach, /discard to cancel.")
	return nil
}

func (r *repl) stopRecording() error {
	item, err := r.app.capture.StopRecording()
	if errors.Is(err, media.ErrNotRecording) {
		r.p.Notice(notify.Notice{Kind: notify.KindWarning, Title: "Not recording", Detail: "Use /camera or /mic to start"})
		return nil
	}
	if err != nil {
		return nil
	}
	r.pending = append(r.pending, *item)
	r.p.Println(r.p.Success.Render("Attached") + " " + components.DescribeMedia(*item))
	return nil
}

func (r *repl) discard() {
	n := len(r.pending)
	r.pending = nil
	if r.app.capture.IsCapturing() || r.app.capture.HasStream() {
		r.app.capture.StopCapture()
		n++
	}
	if n == 0 {
		r.p.Println(r.p.Dim.Render("Nothing to discard."))
		return
	}
	r.p.Println(r.p.Success.Render("Attachments discarded."))
}

func (r *repl) open(arg string) error {
	if arg == "" {
		return errors.New("usage: /open <n|id>")
	}
	s, err := findSession(r.app.store.Store, arg)
	if err != nil {
		return err
	}
	r.app.controller.SelectSession(s.ID)
	r.p.Println(r.p.Success.Render("Switched to") + " " + s.Title)
	r.printHistory()
	return nil
}

func (r *repl) printHistory() {
	current, ok := r.app.controller.CurrentSession()
	if !ok || current.IsEmpty() {
		r.p.Println(r.p.Dim.Render("No messages yet."))
		return
	}
	r.p.Println(r.p.Section.Render(current.Title))
	r.p.Separator()
	for _, m := range current.Messages {
		r.printMessage(m)
	}
}

func (r *repl) printHelp() {
	r.p.Println(r.p.Section.Render("Commands"))
	for _, c := range replCommands {
		usage := "/" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		r.p.Field(usage, c.usage, 28)
	}
	r.p.Println()
}

// =============================================================================
// HELPERS
// =============================================================================

// unquote strips one pair of matching quotes, so dragged-in paths work.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// expandPath resolves a leading "~".
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
