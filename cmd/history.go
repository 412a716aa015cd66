package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/discpack/internal/formatter"
	"github.com/urfave/cli/v3"
)

// History lists recorded builds, shows one build's records or removes a build.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if id := cmd.String("delete"); id != "" {
		if err := repo.Delete(id); err != nil {
			return err
		}
		r.logger.Info("build removed from history", "id", id)
		return nil
	}

	if seq := cmd.Int("show"); seq > 0 {
		build, err := repo.GetBySequence(seq)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(build, true)
		}
		return r.writeBytes(formatter.BuildToText(build))
	}

	builds, err := repo.List(map[string]any{
		"name":  cmd.String("name"),
		"limit": cmd.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(builds, true)
	}
	return r.writeBytes(formatter.HistoryToText(builds))
}
