package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/discpack/internal/shared"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
)

// Watch builds the pack from a folder and rebuilds it whenever an audio file in it changes.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("%w: directory", shared.ErrMissingArgument)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", shared.ErrInvalidArgument, dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild := func() {
		if err := r.rebuildFolder(ctx, cmd, dir); err != nil {
			r.logger.Error("rebuild failed", "dir", dir, "err", err)
		}
	}

	rebuild()
	r.logger.Info("watching for changes", "dir", dir)
	return watchLoop(ctx, watcher, cmd.Duration("debounce"), rebuild, r.logger.Warn)
}

func (r *Runner) rebuildFolder(ctx context.Context, cmd *cli.Command, dir string) error {
	tracks, err := r.loadTracks([]string{dir})
	if err != nil {
		return err
	}
	req, err := r.buildRequest(cmd, tracks)
	if err != nil {
		return err
	}
	result, err := r.runBuild(ctx, cmd, req)
	if err != nil {
		return err
	}
	r.logger.Info("pack rebuilt", "path", result.OutputPath, "tracks", len(result.Assignments))
	return nil
}

// watchLoop calls rebuild once audio changes have been quiet for debounce. It returns when ctx ends.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, rebuild func(), warn func(msg any, kv ...any)) error {
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isAudio(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case <-timer.C:
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			warn("watcher error", "err", err)
		}
	}
}
