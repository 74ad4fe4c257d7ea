// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/chatbot-tui/internal/cloud"
	"github.com/jeranaias/chatbot-tui/internal/config"
	"github.com/jeranaias/chatbot-tui/internal/conversation"
	"github.com/jeranaias/chatbot-tui/internal/export"
	"github.com/jeranaias/chatbot-tui/internal/media"
	"github.com/jeranaias/chatbot-tui/internal/notify"
	"github.com/jeranaias/chatbot-tui/internal/session"
	"github.com/jeranaias/chatbot-tui/internal/storage"
)

// =============================================================================
// STORE
// =============================================================================

// sessionStore is a loaded store together with the backend it owns.
type sessionStore struct {
	*session.Store
	backend storage.Backend
}

// openStore opens the configured backend and loads the session collection.
func openStore(cfg *config.Config) (*sessionStore, error) {
	backend, err := storage.Open(cfg.Storage.Backend, cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	store := session.New(backend)
	if err := store.Load(); err != nil {
		backend.Close()
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return &sessionStore{Store: store, backend: backend}, nil
}

// Close stops any watch and closes the backend.
func (s *sessionStore) Close() error {
	return errors.Join(s.Store.Close(), s.backend.Close())
}

// =============================================================================
// APP
// =============================================================================

// app is the core shared by the full-screen UI and the line REPL.
type app struct {
	cfg        *config.Config
	store      *sessionStore
	client     *cloud.Client
	uploader   *media.Uploader
	capture    *media.Capture
	controller *conversation.Controller

	// changes receives after any store mutation, including reloads of
	// edits made by another process.
	changes chan struct{}
}

// newApp wires storage, the API client, media and the controller. Every
// notice goes to n.
func newApp(ctx context.Context, cfg *config.Config, n notify.Notifier) (*app, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		client:   cfg.NewClient(),
		uploader: media.NewUploader(cfg.MediaConstraints(), n),
		capture:  media.NewCapture(cfg.FFmpegDevice(), cfg.Media.CapturesDir, n),
	}

	opts := export.DefaultOptions()
	if cfg.UI.Theme == "light" {
		opts.Theme = "light"
	}
	a.controller = conversation.New(store.Store, a.client,
		conversation.WithNotifier(n),
		conversation.WithDownloadsDir(cfg.Export.DownloadsDir),
		conversation.WithExportFormat(cfg.Export.Format),
		conversation.WithExportOptions(opts),
	)

	a.changes = make(chan struct{}, 1)
	store.OnChange(func() {
		select {
		case a.changes <- struct{}{}:
		default:
		}
	})

	// Reloads reach a.changes through OnChange.
	if cfg.Storage.Watch {
		_, err := store.Watch(ctx)
		switch {
		case errors.Is(err, session.ErrWatchUnsupported):
			log.Debug("session watch unavailable", "storage", cfg.Storage.Backend)
		case err != nil:
			log.Warn("failed to watch sessions", "err", err)
		}
	}

	if !a.client.IsConfigured() {
		log.Warn("no API key configured", "provider", cfg.ActiveProvider().Name)
		notify.Warning(n, "No API key configured", "Set GROQ_API_KEY or MINIMAX_API_KEY to start chatting")
	}
	return a, nil
}

// Close stops capture and releases storage.
func (a *app) Close() error {
	a.controller.Cancel()
	a.capture.StopCapture()
	return a.store.Close()
}
