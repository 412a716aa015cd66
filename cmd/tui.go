package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/services"
	"github.com/desertthunder/discpack/internal/session"
	"github.com/desertthunder/discpack/internal/shared"
	"github.com/desertthunder/discpack/internal/tasks"
	"github.com/desertthunder/discpack/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for one pack session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	tracks, err := r.loadTracks(cmd.Args().Slice())
	if err != nil {
		return err
	}

	req, err := r.buildRequest(cmd, nil)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/discpack-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	sess, err := r.newSession(tracks, req)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.logger.Warn("failed to release session files", "err", err)
		}
	}()

	if !cmd.Bool("no-history") {
		defer r.enableHistory()()
	}

	player := services.NewPlayer(r.config.Player.Command, r.config.Player.Args)
	defer player.Stop()

	model := ui.NewModel(ctx, sess, r.engine, player, req)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if result := model.Result(); result != nil && result.OutputPath != "" {
		r.writePlain("✓ Pack written to %s\n", result.OutputPath)
	}
	return nil
}

// newSession creates a session holding tracks and, when set, the request's custom icon.
func (r *Runner) newSession(tracks []models.Track, req tasks.BuildRequest) (*session.Session, error) {
	registry := session.NewRegistry(session.TempMaterializer{Dir: os.TempDir()}, r.logger)
	sess := session.New(registry)

	if _, err := sess.AddTracks(tracks); err != nil {
		if !tasks.IsSoft(err) {
			return nil, err
		}
		r.logger.Warn("session is full", "err", err)
	}
	if req.Icon != nil {
		if err := sess.SetIcon(req.Icon); err != nil {
			return nil, err
		}
	}
	return sess, nil
}
