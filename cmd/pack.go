package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertthunder/discpack/internal/formatter"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/pack"
	"github.com/desertthunder/discpack/internal/services"
	"github.com/desertthunder/discpack/internal/shared"
	"github.com/desertthunder/discpack/internal/tasks"
	"github.com/urfave/cli/v3"
)

// audioExtensions are picked up when a directory is given instead of files.
var audioExtensions = []string{".ogg", ".oga", ".mp3"}

// Slots lists the disc catalog.
func (r *Runner) Slots(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	data, err := formatter.RenderSlots(models.Slots(), format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// Preview probes the given tracks and prints the assignment without building.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	tracks, err := r.loadTracks(cmd.Args().Slice())
	if err != nil {
		return err
	}

	r.logger.Debug("previewing", "tracks", len(tracks))
	assignments, dropped, err := r.engine.Preview(ctx, nil, tracks)
	if err != nil {
		return err
	}

	report := formatter.Report{Assignments: assignments, Dropped: dropped}
	if path := cmd.String("save"); path != "" {
		if err := formatter.WriteReport(report, format, path); err != nil {
			return err
		}
		r.logger.Info("report saved", "path", path)
	}

	data, err := report.Render(format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// Build probes, assigns and writes a pack.
func (r *Runner) Build(ctx context.Context, cmd *cli.Command) error {
	tracks, err := r.loadTracks(cmd.Args().Slice())
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

	if cmd.Bool("json") {
		return r.writeJSON(buildSummary(result), true)
	}
	r.printResult(result)
	return nil
}

// Inspect prints the manifest and records of an existing pack.
func (r *Runner) Inspect(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("%w: pack path", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	contents, err := readPack(path)
	if err != nil {
		return err
	}

	data, err := formatter.RenderContents(contents, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// Import rebuilds an existing pack, keeping its records, manifest metadata and icon unless overridden, and
// adding any extra tracks given after the pack path.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: pack path", shared.ErrMissingArgument)
	}

	contents, err := readPack(args[0])
	if err != nil {
		return err
	}
	r.logger.Info("imported pack", "name", contents.Name, "records", len(contents.Records))

	tracks := contents.Tracks()
	if len(args) > 1 {
		extra, err := r.loadTracks(args[1:])
		if err != nil {
			return err
		}
		tracks = mergeTracks(tracks, extra)
	}

	req, err := r.buildRequest(cmd, tracks)
	if err != nil {
		return err
	}

	imported := contents.MetadataInput()
	if req.Metadata.Name == "" {
		req.Metadata.Name = imported.Name
	}
	if req.Metadata.Description == "" {
		req.Metadata.Description = imported.Description
	}
	if req.Metadata.Version == [3]*int{} {
		req.Metadata.Version = imported.Version
	}
	if req.Icon == nil && len(contents.Icon) > 0 {
		req.Icon = contents.Icon
	}

	result, err := r.runBuild(ctx, cmd, req)
	if err != nil {
		return err
	}
	r.printResult(result)
	return nil
}

func readPack(path string) (*pack.Contents, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack: %w", err)
	}
	return pack.Inspect(data)
}

// mergeTracks appends extra tracks whose names are not already present.
func mergeTracks(tracks, extra []models.Track) []models.Track {
	out := slices.Clone(tracks)
	for _, tr := range extra {
		if !slices.ContainsFunc(out, func(t models.Track) bool { return t.Name == tr.Name }) {
			out = append(out, tr)
		}
	}
	return out
}

// buildRequest reads the shared metadata flags.
func (r *Runner) buildRequest(cmd *cli.Command, tracks []models.Track) (tasks.BuildRequest, error) {
	version, err := models.ParseVersion(cmd.String("version"))
	if err != nil {
		return tasks.BuildRequest{}, fmt.Errorf("%w: --version: %w", shared.ErrInvalidFlag, err)
	}

	req := tasks.BuildRequest{
		Tracks: tracks,
		Metadata: models.MetadataInput{
			Name:        cmd.String("name"),
			Description: cmd.String("description"),
			Version:     version,
		},
		NoIcon:     cmd.Bool("no-icon"),
		OutputPath: cmd.String("output"),
		OutputDir:  r.config.Pack.OutputDir,
	}
	if req.OutputDir == "" {
		req.OutputDir = "."
	}

	if path := cmd.String("icon"); path != "" && !req.NoIcon {
		data, err := os.ReadFile(path)
		if err != nil {
			return tasks.BuildRequest{}, fmt.Errorf("failed to read icon: %w", err)
		}
		req.Icon = data
	}
	return req, nil
}

// runBuild runs the engine while printing progress.
func (r *Runner) runBuild(ctx context.Context, cmd *cli.Command, req tasks.BuildRequest) (*tasks.BuildResult, error) {
	if !cmd.Bool("no-history") {
		defer r.enableHistory()()
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	quiet := cmd.Bool("json")
	go func() {
		defer close(done)
		for update := range progressCh {
			if quiet {
				continue
			}
			switch update.Phase {
			case tasks.ProbeTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.Done:
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Build(ctx, progressCh, req)
	close(progressCh)
	<-done

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Runner) printResult(result *tasks.BuildResult) {
	r.writePlain("\n")
	r.writePlainHeader("Pack Built!")
	r.writePlain("Pack: %s v%s\n", result.Metadata.Name, result.Metadata.Version)
	r.writePlain("Tracks: %d\n", len(result.Assignments))
	r.writePlain("Icon: %v\n", result.HasIcon)
	if result.OutputPath != "" {
		r.writePlain("Written to: %s (%d bytes)\n", result.OutputPath, len(result.Archive))
	}
	if result.BuildID != "" {
		r.writePlain("Build: %s\n", result.BuildID)
	}
	r.writePlain("\n")
	r.writeBytes(formatter.AssignmentsToText(result.Assignments, result.Dropped))
}

type summary struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	OutputPath  string              `json:"output_path,omitempty"`
	Size        int                 `json:"size"`
	HasIcon     bool                `json:"has_icon"`
	BuildID     string              `json:"build_id,omitempty"`
	Manifest    *models.Manifest    `json:"manifest"`
	Assignments []models.Assignment `json:"assignments"`
	Dropped     []models.Track      `json:"dropped,omitempty"`
}

func buildSummary(result *tasks.BuildResult) summary {
	return summary{
		Name:        result.Metadata.Name,
		Version:     result.Metadata.Version.String(),
		OutputPath:  result.OutputPath,
		Size:        len(result.Archive),
		HasIcon:     result.HasIcon,
		BuildID:     result.BuildID,
		Manifest:    result.Manifest,
		Assignments: result.Assignments,
		Dropped:     result.Dropped,
	}
}

// loadTracks reads the named files; directories contribute their audio files in name order.
//
// Duplicate names keep the first occurrence. More than [models.MaxTracks] tracks only warn; the assignment
// leaves out the ones that find no slot.
func (r *Runner) loadTracks(paths []string) ([]models.Track, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: at least one track", shared.ErrMissingArgument)
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := audioFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	seen := make(map[string]bool, len(files))
	var tracks []models.Track
	for _, f := range files {
		name := filepath.Base(f)
		if seen[name] {
			r.logger.Warn("skipping duplicate track", "track", name)
			continue
		}
		seen[name] = true

		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read track: %w", err)
		}
		tracks = append(tracks, services.LoadTrack(f, data))
	}

	if len(tracks) == 0 {
		return nil, shared.ErrNoTracks
	}
	if len(tracks) > models.MaxTracks {
		r.logger.Warn(shared.ErrCapacityExceeded.Error(), "given", len(tracks), "slots", models.MaxTracks)
	}
	return tracks, nil
}

func audioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if isAudio(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func isAudio(name string) bool {
	return slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(name)))
}
