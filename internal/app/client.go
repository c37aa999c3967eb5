package app

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/api"
	"parley/internal/session"
	"parley/internal/ui"
)

// RunClient wires config, logging, the session store, and the REST
// client together and launches the Bubble Tea program. It blocks until
// the user quits.
func RunClient(cfg Config) error {
	baseURL, err := NormalizeServerURL(cfg.ServerURL)
	if err != nil {
		return err
	}
	cfg.ServerURL = baseURL

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger, logCloser, err := OpenLogger(cfg)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logCloser.Close()

	store, err := session.Open(cfg.SessionPath())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate session store: %w", err)
	}
	sess, err := store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("session load failed, starting logged out")
		sess = nil
	}

	client := api.New(cfg.ServerURL)
	if sess != nil {
		client.SetToken(sess.Token)
	}

	logger.Info().Str("server", cfg.ServerURL).Bool("resumed", sess != nil).Msg("client starting")

	model := ui.NewModel(ui.Deps{
		API:      client,
		Sessions: store,
		Session:  sess,
		BaseURL:  cfg.ServerURL,
		Logger:   logger,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
